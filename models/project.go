package models

import "time"

// Project status values. Transitional markers are written while a run is in
// flight; terminal values are derived from scene statuses, never set by hand.
const (
	ProjectStatusPending         = "pending"
	ProjectStatusProcessing      = "processing"
	ProjectStatusVideoProcessing = "video_processing"
	ProjectStatusMerging         = "merging"
	ProjectStatusPipelineRunning = "pipeline_running"
	ProjectStatusCompleted       = "completed"
	ProjectStatusPartial         = "partial"
	ProjectStatusFailed          = "failed"
)

type Project struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title         string    `json:"title"`
	TotalDuration int       `json:"totalDuration"`
	TotalScenes   int       `json:"totalScenes"`
	Status        string    `json:"status"`
	FinalVideoUrl string    `json:"finalVideoUrl"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Project) TableName() string {
	return "project"
}

// DeriveBatchStatus maps a batch outcome onto the project status.
// All failed -> failed, none failed -> completed, mixed -> partial.
func DeriveBatchStatus(failed, total int) string {
	switch {
	case total > 0 && failed == total:
		return ProjectStatusFailed
	case failed == 0:
		return ProjectStatusCompleted
	default:
		return ProjectStatusPartial
	}
}
