package service

import (
	"context"

	"ScriptToVideo-server/models"
)

// ProjectStore is the slice of the scene record store the orchestration core
// depends on. models.Store is the MySQL implementation; tests swap in an
// in-memory fake.
type ProjectStore interface {
	GetProject(ctx context.Context, id string) (*models.Project, []models.Scene, error)
	GetSceneByID(ctx context.Context, id string) (*models.Scene, error)
	UpdateScene(ctx context.Context, id string, fields map[string]interface{}) error
	UpdateProject(ctx context.Context, id string, fields map[string]interface{}) error
	UpdateProjectStatus(ctx context.Context, id string, status string) error
	SceneStats(ctx context.Context, projectID string) (models.SceneStats, error)
}

var _ ProjectStore = (*models.Store)(nil)
