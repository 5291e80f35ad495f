package api

import (
	"errors"
	"io"
	"net/http"

	"ScriptToVideo-server/models"
	"ScriptToVideo-server/service"

	"github.com/gin-gonic/gin"
)

// GenerateImages runs the image stage over every untouched scene.
func (h *Handler) GenerateImages(c *gin.Context) {
	result, err := h.Pipeline.GenerateImages(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		h.stageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": result})
}

type audioRequest struct {
	Voice       string  `json:"voice"`
	Temperature float64 `json:"temperature"`
}

// GenerateAudio narrates every scene that still lacks audio.
func (h *Handler) GenerateAudio(c *gin.Context) {
	// An empty body means defaults.
	var req audioRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Voice == "" {
		req.Voice = service.DefaultVoice
	}
	if req.Temperature == 0 {
		req.Temperature = service.DefaultTemperature
	}

	result, err := h.Pipeline.GenerateAudio(c.Request.Context(), c.Param("project_id"), req.Voice, req.Temperature)
	if err != nil {
		h.stageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": result, "voice": req.Voice})
}

// GenerateVideos animates scene images. The default submits to the worker and
// resolves through the completion webhook; ?sync=true blocks per scene.
func (h *Handler) GenerateVideos(c *gin.Context) {
	projectID := c.Param("project_id")

	if c.Query("sync") == "true" {
		result, err := h.Pipeline.GenerateVideosSync(c.Request.Context(), projectID)
		if err != nil {
			h.stageError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": result})
		return
	}

	submitted, err := h.Pipeline.SubmitVideos(c.Request.Context(), projectID)
	if err != nil {
		h.stageError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"scenesProcessing": submitted,
		"message":          "video generation submitted, results arrive via webhook",
	})
}

// MergeScenes pairs each scene video with its narration audio.
func (h *Handler) MergeScenes(c *gin.Context) {
	result, err := h.Pipeline.MergeScenes(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		h.stageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": result})
}

// ConcatenateFinal assembles the per-scene merged videos into the final cut.
func (h *Handler) ConcatenateFinal(c *gin.Context) {
	finalUrl, err := h.Pipeline.ConcatenateFinal(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		h.stageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"finalVideoUrl": finalUrl})
}

type pipelineRequest struct {
	Voice       string  `json:"voice"`
	Temperature float64 `json:"temperature"`
	LocalFirst  bool    `json:"local_first"`
}

// RunPipeline drives the whole chain for a project. The default enqueues a
// background run; ?sync=true runs inline and returns the stage counts.
func (h *Handler) RunPipeline(c *gin.Context) {
	projectID := c.Param("project_id")

	var req pipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, _, ok := h.fetchProject(c, c.Request.Context(), projectID); !ok {
		return
	}

	if c.Query("sync") == "true" {
		results, err := h.Pipeline.RunFull(c.Request.Context(), projectID, service.PipelineOptions{
			Voice:       req.Voice,
			Temperature: req.Temperature,
			LocalFirst:  req.LocalFirst,
		})
		if err != nil {
			h.stageError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
		return
	}

	if err := h.Queue.EnqueuePipeline(service.PipelinePayload{
		ProjectID:   projectID,
		Voice:       req.Voice,
		Temperature: req.Temperature,
		LocalFirst:  req.LocalFirst,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue pipeline: " + err.Error()})
		return
	}
	if err := h.Store.UpdateProjectStatus(c.Request.Context(), projectID, models.ProjectStatusPipelineRunning); err != nil {
		h.Log.Error().Err(err).Str("project_id", projectID).Msg("failed to mark project running")
	}
	c.JSON(http.StatusAccepted, gin.H{
		"projectId": projectID,
		"status":    models.ProjectStatusPipelineRunning,
		"message":   "pipeline run enqueued",
	})
}

// ReconcileAssets promotes local artifacts to the CDN and rewrites scene URLs.
func (h *Handler) ReconcileAssets(c *gin.Context) {
	reconciled, err := h.Pipeline.ReconcileAssets(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		h.stageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciled": reconciled})
}

// Health reports this server plus the reachability of the video worker.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"videoWorker": h.Animator.Healthy(c.Request.Context()),
	})
}
