package api

import (
	"context"
	"errors"
	"net/http"

	"ScriptToVideo-server/models"
	"ScriptToVideo-server/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Handler carries the wired services into the gin handlers.
type Handler struct {
	Store      *models.Store
	Pipeline   *service.Pipeline
	Correlator *service.Correlator
	Queue      *service.Queue
	Animator   service.VideoAnimator
	Log        zerolog.Logger
}

func NewHandler(
	store *models.Store,
	pipeline *service.Pipeline,
	correlator *service.Correlator,
	queue *service.Queue,
	animator service.VideoAnimator,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		Store:      store,
		Pipeline:   pipeline,
		Correlator: correlator,
		Queue:      queue,
		Animator:   animator,
		Log:        logger,
	}
}

// fetchProject loads the project or writes the 404 itself.
func (h *Handler) fetchProject(c *gin.Context, ctx context.Context, id string) (*models.Project, []models.Scene, bool) {
	project, scenes, err := h.Store.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found: " + id})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, nil, false
	}
	return project, scenes, true
}

// stageError maps orchestration failures onto HTTP statuses. A down worker is
// a 503 so callers can back off and retry the whole batch.
func (h *Handler) stageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkerUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "video service is not available"})
	case errors.Is(err, service.ErrNothingToConcatenate):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no merged scene videos to concatenate"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
