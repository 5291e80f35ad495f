package service

import (
	"context"
	"sort"

	"ScriptToVideo-server/models"

	"github.com/rs/zerolog"
)

// StageResult is the outcome of one batch stage run. Callers get counts,
// never a single pass/fail.
type StageResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// StageSpec parameterizes one stage of the pipeline. The selector decides
// eligibility by artifact presence, which makes re-runs idempotent; Invoke
// returns the scene fields to write on success, including the "-done" status.
type StageSpec struct {
	Name             string
	Selector         func(*models.Scene) bool
	ProcessingStatus string
	FailureStatus    string
	Invoke           func(ctx context.Context, scene *models.Scene) (map[string]interface{}, error)
}

// StageRunner drives one stage across the eligible scenes of a project,
// strictly in scene-number order, one scene at a time. A scene failure is
// recorded and the batch moves on.
type StageRunner struct {
	store ProjectStore
	log   zerolog.Logger
}

func NewStageRunner(store ProjectStore, logger zerolog.Logger) *StageRunner {
	return &StageRunner{store: store, log: logger}
}

// Eligible returns the scenes the spec selects, sorted ascending by scene
// number.
func (r *StageRunner) Eligible(scenes []models.Scene, spec StageSpec) []models.Scene {
	var eligible []models.Scene
	for i := range scenes {
		if spec.Selector(&scenes[i]) {
			eligible = append(eligible, scenes[i])
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].SceneNumber < eligible[j].SceneNumber
	})
	return eligible
}

func (r *StageRunner) Run(ctx context.Context, scenes []models.Scene, spec StageSpec) StageResult {
	eligible := r.Eligible(scenes, spec)
	result := StageResult{Total: len(eligible)}
	if result.Total == 0 {
		return result
	}

	r.log.Info().
		Str("stage", spec.Name).
		Int("eligible", result.Total).
		Msg("stage started")

	for i := range eligible {
		scene := &eligible[i]
		if err := r.store.UpdateScene(ctx, scene.ID, map[string]interface{}{
			"status": spec.ProcessingStatus,
		}); err != nil {
			r.log.Error().Err(err).Str("scene_id", scene.ID).Msg("failed to mark scene processing")
			result.Failed++
			continue
		}

		fields, err := spec.Invoke(ctx, scene)
		if err != nil {
			r.log.Warn().Err(err).
				Str("stage", spec.Name).
				Int("scene_number", scene.SceneNumber).
				Msg("scene failed")
			if uerr := r.store.UpdateScene(ctx, scene.ID, map[string]interface{}{
				"status": spec.FailureStatus,
			}); uerr != nil {
				r.log.Error().Err(uerr).Str("scene_id", scene.ID).Msg("failed to mark scene failed")
			}
			result.Failed++
			continue
		}

		if err := r.store.UpdateScene(ctx, scene.ID, fields); err != nil {
			r.log.Error().Err(err).Str("scene_id", scene.ID).Msg("failed to store stage result")
			result.Failed++
			continue
		}

		result.Processed++
		r.log.Info().
			Str("stage", spec.Name).
			Int("scene_number", scene.SceneNumber).
			Msg("scene done")
	}

	r.log.Info().
		Str("stage", spec.Name).
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Msg("stage finished")
	return result
}

// Canonical stage selectors. Artifact absence, never status, is the signal
// that a stage still owes this scene its output.

func SelectNeedsImage(s *models.Scene) bool {
	return s.ImageUrl == ""
}

// SelectPendingImage is the stricter selector of the images-only batch
// endpoint: only untouched scenes.
func SelectPendingImage(s *models.Scene) bool {
	return s.Status == models.SceneStatusPending
}

func SelectNeedsAudio(s *models.Scene) bool {
	return s.AudioUrl == "" && s.Narration != ""
}

func SelectNeedsVideo(s *models.Scene) bool {
	return s.ImageUrl != "" && s.VideoUrl == ""
}

func SelectNeedsMerge(s *models.Scene) bool {
	return s.VideoUrl != "" && s.AudioUrl != "" && s.MergedVideoUrl == ""
}
