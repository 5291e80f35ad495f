package service

import (
	"context"
	"errors"
	"fmt"

	"ScriptToVideo-server/models"

	"github.com/rs/zerolog"
)

// ErrUnknownScene is returned when a completion event names a scene this
// server never issued.
var ErrUnknownScene = errors.New("unknown scene")

// CompletionEvent is the webhook payload the video worker posts when an
// asynchronously submitted animation finishes.
type CompletionEvent struct {
	SceneID  string `json:"sceneId" binding:"required"`
	Status   string `json:"status" binding:"required"`
	VideoUrl string `json:"videoUrl"`
	Error    string `json:"error"`
}

// CompletionOutcome reports what one event changed. ProjectStatus is empty
// when scenes are still in flight and the project was left untouched.
type CompletionOutcome struct {
	ProjectID     string            `json:"projectId"`
	SceneNumber   int               `json:"sceneNumber"`
	SceneStatus   string            `json:"sceneStatus"`
	ProjectStatus string            `json:"projectStatus,omitempty"`
	Stats         models.SceneStats `json:"stats"`
}

// Correlator matches async completion events back to their scenes and rolls
// the project status up once the whole batch has resolved. Events arrive in
// any order; only the aggregate decides the project status, so correlation is
// insensitive to ordering and to duplicate delivery.
type Correlator struct {
	store ProjectStore
	log   zerolog.Logger
}

func NewCorrelator(store ProjectStore, logger zerolog.Logger) *Correlator {
	return &Correlator{store: store, log: logger}
}

func (c *Correlator) Handle(ctx context.Context, event CompletionEvent) (*CompletionOutcome, error) {
	if event.SceneID == "" {
		return nil, fmt.Errorf("%w: empty scene id", ErrUnknownScene)
	}

	scene, err := c.store.GetSceneByID(ctx, event.SceneID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScene, event.SceneID)
	}

	outcome := &CompletionOutcome{
		ProjectID:   scene.ProjectId,
		SceneNumber: scene.SceneNumber,
	}

	switch event.Status {
	case "completed":
		fields := map[string]interface{}{
			"status": models.SceneStatusCompleted,
		}
		if event.VideoUrl != "" {
			fields["video_url"] = event.VideoUrl
		}
		if err := c.store.UpdateScene(ctx, scene.ID, fields); err != nil {
			return nil, err
		}
		outcome.SceneStatus = models.SceneStatusCompleted
		c.log.Info().
			Str("scene_id", scene.ID).
			Int("scene_number", scene.SceneNumber).
			Str("video_url", event.VideoUrl).
			Msg("scene video ready")
	case "failed":
		if err := c.store.UpdateScene(ctx, scene.ID, map[string]interface{}{
			"status": models.SceneStatusVideoFailed,
		}); err != nil {
			return nil, err
		}
		outcome.SceneStatus = models.SceneStatusVideoFailed
		c.log.Warn().
			Str("scene_id", scene.ID).
			Int("scene_number", scene.SceneNumber).
			Str("error", event.Error).
			Msg("scene video failed")
	default:
		return nil, fmt.Errorf("unexpected completion status %q", event.Status)
	}

	stats, err := c.store.SceneStats(ctx, scene.ProjectId)
	if err != nil {
		return nil, err
	}
	outcome.Stats = stats

	// The project resolves only when every scene has reported. A mixed batch
	// with stragglers still pending stays in its transitional status.
	switch {
	case stats.Total > 0 && stats.Completed == stats.Total:
		outcome.ProjectStatus = models.ProjectStatusCompleted
	case stats.Failed > 0 && stats.Completed+stats.Failed == stats.Total:
		outcome.ProjectStatus = models.ProjectStatusPartial
	}

	if outcome.ProjectStatus != "" {
		if err := c.store.UpdateProjectStatus(ctx, scene.ProjectId, outcome.ProjectStatus); err != nil {
			return nil, err
		}
		c.log.Info().
			Str("project_id", scene.ProjectId).
			Str("status", outcome.ProjectStatus).
			Msg("project resolved")
	}
	return outcome, nil
}
