package routers

import (
	"ScriptToVideo-server/routers/api"

	"github.com/gin-gonic/gin"
)

func InitRouter(h *api.Handler) *gin.Engine {
	r := gin.Default()
	r.GET("/health", h.Health)

	v1 := r.Group("/v1/api")
	{
		v1.POST("/projects", h.CreateProject)
		v1.GET("/projects", h.ListProjects)
		v1.GET("/projects/:project_id", h.GetProject)
		v1.GET("/projects/:project_id/stats", h.GetProjectStats)
		v1.DELETE("/projects/:project_id", h.DeleteProject)

		v1.POST("/projects/:project_id/generate-images", h.GenerateImages)
		v1.POST("/projects/:project_id/generate-audio", h.GenerateAudio)
		v1.POST("/projects/:project_id/generate-videos", h.GenerateVideos)
		v1.POST("/projects/:project_id/merge-videos", h.MergeScenes)
		v1.POST("/projects/:project_id/concatenate-final", h.ConcatenateFinal)
		v1.POST("/projects/:project_id/generate-pipeline", h.RunPipeline)
		v1.POST("/projects/:project_id/reconcile-assets", h.ReconcileAssets)
		v1.GET("/projects/:project_id/progress", h.ProjectProgressWebSocket)
	}

	r.POST("/webhook/video-ready", h.VideoReady)
	return r
}
