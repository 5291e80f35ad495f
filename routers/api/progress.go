package api

import (
	"net/http"
	"time"

	"ScriptToVideo-server/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type progressFrame struct {
	ProjectID string            `json:"projectId"`
	Status    string            `json:"status"`
	Stats     models.SceneStats `json:"stats"`
}

// ProjectProgressWebSocket streams the project's scene stats. The store is
// the only source; stage runners and the webhook correlator write there and
// this loop just polls and pushes on change.
func (h *Handler) ProjectProgressWebSocket(c *gin.Context) {
	projectID := c.Param("project_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "websocket upgrade failed"})
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	project, scenes, err := h.Store.GetProject(ctx, projectID)
	if err != nil {
		_ = conn.WriteJSON(gin.H{"error": "project not found: " + projectID})
		return
	}

	prev := progressFrame{
		ProjectID: projectID,
		Status:    project.Status,
		Stats:     models.ComputeSceneStats(scenes),
	}
	_ = conn.WriteJSON(prev)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		project, scenes, err = h.Store.GetProject(ctx, projectID)
		if err != nil {
			continue
		}
		cur := progressFrame{
			ProjectID: projectID,
			Status:    project.Status,
			Stats:     models.ComputeSceneStats(scenes),
		}
		if cur != prev {
			if err := conn.WriteJSON(cur); err != nil {
				return
			}
			prev = cur
		}

		switch project.Status {
		case models.ProjectStatusCompleted, models.ProjectStatusPartial, models.ProjectStatusFailed:
			_ = conn.WriteJSON(cur)
			return
		}
	}
}
