package api

import (
	"fmt"
	"net/http"

	"ScriptToVideo-server/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type sceneInput struct {
	SceneNumber int    `json:"sceneNumber" binding:"required"`
	Timestamp   string `json:"timestamp"`
	Narration   string `json:"narration"`
	Subject     string `json:"subject"`
}

type createProjectRequest struct {
	Title         string       `json:"title" binding:"required"`
	TotalDuration int          `json:"totalDuration"`
	Scenes        []sceneInput `json:"scenes" binding:"required"`
}

// CreateProject stores a project and its scene breakdown in one transaction.
// Scenes start in pending; no generation is kicked off here.
func (h *Handler) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Scenes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scenes must not be empty"})
		return
	}

	// Every scene must carry its full script before any row is written.
	seen := make(map[int]bool, len(req.Scenes))
	for i, s := range req.Scenes {
		if s.SceneNumber <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sceneNumber must be positive"})
			return
		}
		if seen[s.SceneNumber] {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("duplicate sceneNumber: %d", s.SceneNumber)})
			return
		}
		seen[s.SceneNumber] = true
		if s.Timestamp == "" || s.Narration == "" || s.Subject == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("scene %d: timestamp, narration and subject are required", i+1),
			})
			return
		}
	}

	project := models.Project{
		ID:            uuid.NewString(),
		Title:         req.Title,
		TotalDuration: req.TotalDuration,
		TotalScenes:   len(req.Scenes),
		Status:        models.ProjectStatusPending,
	}

	scenes := make([]models.Scene, len(req.Scenes))
	for i, s := range req.Scenes {
		scenes[i] = models.Scene{
			ID:          uuid.NewString(),
			SceneNumber: s.SceneNumber,
			Timestamp:   s.Timestamp,
			Narration:   s.Narration,
			Subject:     s.Subject,
			Status:      models.SceneStatusPending,
		}
	}

	if err := h.Store.CreateProjectWithScenes(c.Request.Context(), &project, scenes); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project: " + err.Error()})
		return
	}

	h.Log.Info().
		Str("project_id", project.ID).
		Int("scenes", len(scenes)).
		Msg("project created")
	c.JSON(http.StatusCreated, gin.H{"project": project, "scenes": scenes})
}

func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.Store.ListProjects(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *Handler) GetProject(c *gin.Context) {
	project, scenes, ok := h.fetchProject(c, c.Request.Context(), c.Param("project_id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project": project,
		"scenes":  scenes,
		"stats":   models.ComputeSceneStats(scenes),
	})
}

// GetProjectStats returns the aggregate alone, recomputed from the store.
func (h *Handler) GetProjectStats(c *gin.Context) {
	projectID := c.Param("project_id")
	if _, _, ok := h.fetchProject(c, c.Request.Context(), projectID); !ok {
		return
	}
	stats, err := h.Store.SceneStats(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *Handler) DeleteProject(c *gin.Context) {
	projectID := c.Param("project_id")
	if _, _, ok := h.fetchProject(c, c.Request.Context(), projectID); !ok {
		return
	}
	if err := h.Store.DeleteProject(c.Request.Context(), projectID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.Log.Info().Str("project_id", projectID).Msg("project deleted")
	c.JSON(http.StatusOK, gin.H{"deleted": projectID})
}
