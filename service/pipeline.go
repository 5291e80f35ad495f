package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"ScriptToVideo-server/models"

	"github.com/rs/zerolog"
)

// ErrWorkerUnavailable is returned by the standalone video and merge
// operations when the video worker health check fails. Inside the full
// pipeline the same condition only skips the dependent stages.
var ErrWorkerUnavailable = errors.New("video worker unavailable")

// ErrNothingToConcatenate is returned by final concatenation when no scene
// has a merged video yet.
var ErrNothingToConcatenate = errors.New("no merged videos to concatenate")

// PipelineOptions tune a full pipeline run.
type PipelineOptions struct {
	Voice       string  `json:"voice"`
	Temperature float64 `json:"temperature"`
	// LocalFirst keeps intermediate artifacts on the worker filesystem and
	// promotes everything to the CDN in one reconciliation pass at the end.
	LocalFirst bool `json:"local_first"`
}

// PipelineResults reports per-stage counts for one full run.
type PipelineResults struct {
	Images        StageResult `json:"images"`
	Audio         StageResult `json:"audio"`
	Videos        StageResult `json:"videos"`
	Merge         StageResult `json:"merge"`
	FinalVideoUrl string      `json:"finalVideoUrl,omitempty"`
	Reconciled    int         `json:"reconciled,omitempty"`
}

// Pipeline sequences the generation stages for one project. It holds no
// mutable state of its own; everything lives in the store, keyed by
// project/scene id, so separate projects can run concurrently.
type Pipeline struct {
	store    ProjectStore
	runner   *StageRunner
	images   ImageGenerator
	speech   SpeechGenerator
	animator VideoAnimator
	merger   VideoMerger
	concat   VideoConcatenator
	uploader AssetUploader
	log      zerolog.Logger
}

func NewPipeline(
	store ProjectStore,
	images ImageGenerator,
	speech SpeechGenerator,
	animator VideoAnimator,
	merger VideoMerger,
	concat VideoConcatenator,
	uploader AssetUploader,
	logger zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		store:    store,
		runner:   NewStageRunner(store, logger),
		images:   images,
		speech:   speech,
		animator: animator,
		merger:   merger,
		concat:   concat,
		uploader: uploader,
		log:      logger,
	}
}

// ============================================================================
// Stage specs
// ============================================================================

func (p *Pipeline) imageStage(projectID string, selector func(*models.Scene) bool, uploadToCDN bool) StageSpec {
	return StageSpec{
		Name:             "images",
		Selector:         selector,
		ProcessingStatus: models.SceneStatusImageProcessing,
		FailureStatus:    models.SceneStatusFailed,
		Invoke: func(ctx context.Context, scene *models.Scene) (map[string]interface{}, error) {
			result, err := p.images.Generate(ctx, ImageRequest{
				Subject:     scene.Subject,
				ProjectID:   projectID,
				SceneNumber: scene.SceneNumber,
				UploadToCDN: uploadToCDN,
			})
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"image_url": result.URL(),
				"status":    models.SceneStatusImageDone,
			}, nil
		},
	}
}

func (p *Pipeline) audioStage(projectID, voice string, temperature float64) StageSpec {
	return StageSpec{
		Name:             "audio",
		Selector:         SelectNeedsAudio,
		ProcessingStatus: models.SceneStatusAudioProcessing,
		FailureStatus:    models.SceneStatusAudioFailed,
		Invoke: func(ctx context.Context, scene *models.Scene) (map[string]interface{}, error) {
			result, err := p.speech.Generate(ctx, SpeechRequest{
				Text:        scene.Narration,
				Voice:       voice,
				Temperature: temperature,
				ProjectID:   projectID,
				SceneNumber: scene.SceneNumber,
			})
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"audio_url":         result.AudioUrl,
				"audio_duration":    result.Duration,
				"audio_voice":       voice,
				"audio_temperature": temperature,
				"status":            models.SceneStatusAudioDone,
			}, nil
		},
	}
}

// videoStage animates scene images synchronously. Duration follows the scene
// audio when present; pan direction alternates by scene parity so adjacent
// scenes do not all drift the same way.
func (p *Pipeline) videoStage(projectID string, followAudio bool) StageSpec {
	return StageSpec{
		Name:             "videos",
		Selector:         SelectNeedsVideo,
		ProcessingStatus: models.SceneStatusVideoProcessing,
		FailureStatus:    models.SceneStatusVideoFailed,
		Invoke: func(ctx context.Context, scene *models.Scene) (map[string]interface{}, error) {
			duration := 10
			pan := "vertical"
			if followAudio {
				if scene.AudioDuration > 0 {
					duration = int(math.Ceil(scene.AudioDuration))
				}
				if scene.SceneNumber%2 == 0 {
					pan = "vertical_reverse"
				}
			}
			result, err := p.animator.GenerateSync(ctx, AnimateRequest{
				ImageUrl:     scene.ImageUrl,
				SceneID:      scene.ID,
				Duration:     duration,
				PanDirection: pan,
				ProjectID:    projectID,
				SceneNumber:  scene.SceneNumber,
			})
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"video_url": result.VideoUrl,
				"status":    models.SceneStatusVideoDone,
			}, nil
		},
	}
}

func (p *Pipeline) mergeStage(projectID string) StageSpec {
	return StageSpec{
		Name:             "merge",
		Selector:         SelectNeedsMerge,
		ProcessingStatus: models.SceneStatusMerging,
		FailureStatus:    models.SceneStatusMergeFailed,
		Invoke: func(ctx context.Context, scene *models.Scene) (map[string]interface{}, error) {
			result, err := p.merger.Merge(ctx, MergeRequest{
				VideoUrl:    scene.VideoUrl,
				AudioUrl:    scene.AudioUrl,
				SceneID:     scene.ID,
				Narration:   scene.Narration,
				ProjectID:   projectID,
				SceneNumber: scene.SceneNumber,
			})
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"merged_video_url": result.MergedVideoUrl,
				"status":           models.SceneStatusCompleted,
			}, nil
		},
	}
}

// ============================================================================
// Single-stage operations
// ============================================================================

// runStage wraps one standalone stage invocation: skip entirely on an empty
// eligible set, otherwise write the transitional marker, run, and derive the
// terminal project status from the batch counts.
func (p *Pipeline) runStage(ctx context.Context, projectID, marker string, spec StageSpec) (StageResult, error) {
	_, scenes, err := p.store.GetProject(ctx, projectID)
	if err != nil {
		return StageResult{}, fmt.Errorf("project not found: %w", err)
	}

	if len(p.runner.Eligible(scenes, spec)) == 0 {
		return StageResult{}, nil
	}

	if marker != "" {
		if err := p.store.UpdateProjectStatus(ctx, projectID, marker); err != nil {
			return StageResult{}, err
		}
	}

	result := p.runner.Run(ctx, scenes, spec)

	if err := p.store.UpdateProjectStatus(ctx, projectID, models.DeriveBatchStatus(result.Failed, result.Total)); err != nil {
		p.log.Error().Err(err).Str("project_id", projectID).Msg("failed to update project status")
	}
	return result, nil
}

func (p *Pipeline) GenerateImages(ctx context.Context, projectID string) (StageResult, error) {
	return p.runStage(ctx, projectID, models.ProjectStatusProcessing,
		p.imageStage(projectID, SelectPendingImage, true))
}

func (p *Pipeline) GenerateAudio(ctx context.Context, projectID, voice string, temperature float64) (StageResult, error) {
	return p.runStage(ctx, projectID, "",
		p.audioStage(projectID, voice, temperature))
}

// GenerateVideosSync animates every ready scene, blocking on each call.
func (p *Pipeline) GenerateVideosSync(ctx context.Context, projectID string) (StageResult, error) {
	if !p.animator.Healthy(ctx) {
		return StageResult{}, ErrWorkerUnavailable
	}
	return p.runStage(ctx, projectID, models.ProjectStatusVideoProcessing,
		p.videoStage(projectID, false))
}

// SubmitVideos dispatches animation requests without waiting; completion
// arrives through the webhook correlator. Returns the number of scenes now
// processing.
func (p *Pipeline) SubmitVideos(ctx context.Context, projectID string) (int, error) {
	if !p.animator.Healthy(ctx) {
		return 0, ErrWorkerUnavailable
	}

	_, scenes, err := p.store.GetProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("project not found: %w", err)
	}

	eligible := p.runner.Eligible(scenes, StageSpec{Selector: SelectNeedsVideo})
	if len(eligible) == 0 {
		return 0, nil
	}

	if err := p.store.UpdateProjectStatus(ctx, projectID, models.ProjectStatusVideoProcessing); err != nil {
		return 0, err
	}

	submitted := 0
	for i := range eligible {
		scene := &eligible[i]
		if err := p.store.UpdateScene(ctx, scene.ID, map[string]interface{}{
			"status": models.SceneStatusVideoProcessing,
		}); err != nil {
			p.log.Error().Err(err).Str("scene_id", scene.ID).Msg("failed to mark scene processing")
			continue
		}
		if err := p.animator.Submit(ctx, AnimateRequest{
			ImageUrl:     scene.ImageUrl,
			SceneID:      scene.ID,
			Duration:     10,
			PanDirection: "vertical",
			ProjectID:    projectID,
			SceneNumber:  scene.SceneNumber,
		}); err != nil {
			p.log.Warn().Err(err).Int("scene_number", scene.SceneNumber).Msg("video submission failed")
			if uerr := p.store.UpdateScene(ctx, scene.ID, map[string]interface{}{
				"status": models.SceneStatusVideoFailed,
			}); uerr != nil {
				p.log.Error().Err(uerr).Str("scene_id", scene.ID).Msg("failed to mark scene failed")
			}
			continue
		}
		submitted++
	}
	return submitted, nil
}

func (p *Pipeline) MergeScenes(ctx context.Context, projectID string) (StageResult, error) {
	if !p.animator.Healthy(ctx) {
		return StageResult{}, ErrWorkerUnavailable
	}
	return p.runStage(ctx, projectID, models.ProjectStatusMerging,
		p.mergeStage(projectID))
}

// ConcatenateFinal assembles the final video from every merged scene, ordered
// by scene number, and stores the URL on the project.
func (p *Pipeline) ConcatenateFinal(ctx context.Context, projectID string) (string, error) {
	_, scenes, err := p.store.GetProject(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("project not found: %w", err)
	}

	urls := mergedVideoUrls(scenes)
	if len(urls) == 0 {
		return "", ErrNothingToConcatenate
	}

	finalUrl, err := p.concat.Concatenate(ctx, projectID, urls)
	if err != nil {
		return "", err
	}

	if err := p.store.UpdateProject(ctx, projectID, map[string]interface{}{
		"final_video_url": finalUrl,
	}); err != nil {
		return "", err
	}

	p.log.Info().
		Str("project_id", projectID).
		Int("segments", len(urls)).
		Str("final_video_url", finalUrl).
		Msg("final video assembled")
	return finalUrl, nil
}

// mergedVideoUrls collects merged artifacts sorted ascending by scene number.
// Ordering comes from the scene number alone, never from completion order.
func mergedVideoUrls(scenes []models.Scene) []string {
	merged := make([]models.Scene, 0, len(scenes))
	for _, s := range scenes {
		if s.MergedVideoUrl != "" {
			merged = append(merged, s)
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].SceneNumber < merged[j].SceneNumber
	})
	urls := make([]string, len(merged))
	for i, s := range merged {
		urls[i] = s.MergedVideoUrl
	}
	return urls
}

// ============================================================================
// Full pipeline
// ============================================================================

// RunFull drives image -> audio -> video -> merge -> final concat for one
// project, re-fetching the scene list between stages. The video and merge
// stages are skipped when the worker is down; the affected scenes are simply
// picked up by a later re-run.
func (p *Pipeline) RunFull(ctx context.Context, projectID string, opts PipelineOptions) (*PipelineResults, error) {
	project, scenes, err := p.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}

	if opts.Voice == "" {
		opts.Voice = DefaultVoice
	}
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}

	p.log.Info().
		Str("project_id", projectID).
		Str("title", project.Title).
		Int("scenes", len(scenes)).
		Bool("local_first", opts.LocalFirst).
		Msg("pipeline started")

	if err := p.store.UpdateProjectStatus(ctx, projectID, models.ProjectStatusPipelineRunning); err != nil {
		return nil, err
	}

	results := &PipelineResults{}

	// Step 1: images. The full run keys off the missing artifact so failed
	// scenes from earlier runs are retried too.
	results.Images = p.runner.Run(ctx, scenes, p.imageStage(projectID, SelectNeedsImage, !opts.LocalFirst))

	// Step 2: audio.
	if _, scenes, err = p.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	results.Audio = p.runner.Run(ctx, scenes, p.audioStage(projectID, opts.Voice, opts.Temperature))

	// Steps 3+4: animation and merge, gated on worker health.
	healthy := p.animator.Healthy(ctx)
	if !healthy {
		p.log.Warn().Str("project_id", projectID).Msg("video worker down, skipping video and merge stages")
	} else {
		if _, scenes, err = p.store.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
		results.Videos = p.runner.Run(ctx, scenes, p.videoStage(projectID, true))

		if _, scenes, err = p.store.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
		results.Merge = p.runner.Run(ctx, scenes, p.mergeStage(projectID))
	}

	// Step 5: final assembly. Failure here never fails the run; the merged
	// per-scene videos are already durable.
	finalUrl, err := p.ConcatenateFinal(ctx, projectID)
	switch {
	case errors.Is(err, ErrNothingToConcatenate):
		p.log.Warn().Str("project_id", projectID).Msg("no merged videos, skipping final assembly")
	case err != nil:
		p.log.Error().Err(err).Str("project_id", projectID).Msg("final assembly failed")
	default:
		results.FinalVideoUrl = finalUrl
	}

	// Step 6: promote any local artifacts to the CDN. Non-fatal by design.
	if opts.LocalFirst {
		reconciled, err := p.ReconcileAssets(ctx, projectID)
		if err != nil {
			p.log.Warn().Err(err).Str("project_id", projectID).Msg("asset reconciliation failed")
		} else {
			results.Reconciled = reconciled
		}
	}

	failed := results.Images.Failed + results.Audio.Failed + results.Videos.Failed + results.Merge.Failed
	total := results.Images.Total + results.Audio.Total + results.Videos.Total + results.Merge.Total
	finalStatus := models.DeriveBatchStatus(failed, total)
	if err := p.store.UpdateProjectStatus(ctx, projectID, finalStatus); err != nil {
		p.log.Error().Err(err).Str("project_id", projectID).Msg("failed to update project status")
	}

	p.log.Info().
		Str("project_id", projectID).
		Str("status", finalStatus).
		Interface("results", results).
		Msg("pipeline finished")
	return results, nil
}

// ============================================================================
// Asset reconciliation
// ============================================================================

var sceneArtifactColumns = []struct {
	column string
	kind   string
	value  func(*models.Scene) string
}{
	{"image_url", "image", func(s *models.Scene) string { return s.ImageUrl }},
	{"audio_url", "audio", func(s *models.Scene) string { return s.AudioUrl }},
	{"video_url", "video", func(s *models.Scene) string { return s.VideoUrl }},
	{"merged_video_url", "merged_video", func(s *models.Scene) string { return s.MergedVideoUrl }},
}

// ReconcileAssets uploads every local-path artifact to the CDN and rewrites
// the scene fields with the returned URLs. Already-promoted URLs are skipped,
// so the pass is idempotent.
func (p *Pipeline) ReconcileAssets(ctx context.Context, projectID string) (int, error) {
	_, scenes, err := p.store.GetProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("project not found: %w", err)
	}

	var files []AssetFile
	columnBySceneType := make(map[string]string)
	sceneByNumber := make(map[int]string)
	for i := range scenes {
		scene := &scenes[i]
		sceneByNumber[scene.SceneNumber] = scene.ID
		for _, a := range sceneArtifactColumns {
			v := a.value(scene)
			if !isLocalArtifact(v) {
				continue
			}
			files = append(files, AssetFile{
				LocalPath:   localArtifactPath(v),
				Type:        a.kind,
				SceneNumber: scene.SceneNumber,
			})
			columnBySceneType[fmt.Sprintf("%d/%s", scene.SceneNumber, a.kind)] = a.column
		}
	}

	if len(files) == 0 {
		return 0, nil
	}

	result, err := p.uploader.UploadBatch(ctx, projectID, files)
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for _, up := range result.Uploads {
		column, ok := columnBySceneType[fmt.Sprintf("%d/%s", up.SceneNumber, up.Type)]
		if !ok {
			continue
		}
		sceneID := sceneByNumber[up.SceneNumber]
		if err := p.store.UpdateScene(ctx, sceneID, map[string]interface{}{
			column: up.CdnUrl,
		}); err != nil {
			p.log.Error().Err(err).Str("scene_id", sceneID).Msg("failed to rewrite artifact URL")
			continue
		}
		reconciled++
	}

	p.log.Info().
		Str("project_id", projectID).
		Int("reconciled", reconciled).
		Msg("assets reconciled")
	return reconciled, nil
}

// isLocalArtifact reports whether the artifact still lives on the worker
// filesystem rather than the CDN.
func isLocalArtifact(v string) bool {
	if v == "" {
		return false
	}
	return !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://")
}

func localArtifactPath(v string) string {
	return strings.TrimPrefix(v, "local://")
}
