package models

import "time"

// Scene status values. The happy path walks the stages in order; each stage
// has its own failure branch. Failure statuses are not terminal: a scene is
// re-selected for a stage by missing artifact, not by status.
const (
	SceneStatusPending         = "pending"
	SceneStatusImageProcessing = "image_processing"
	SceneStatusImageDone       = "image_done"
	SceneStatusAudioProcessing = "audio_processing"
	SceneStatusAudioDone       = "audio_done"
	SceneStatusVideoProcessing = "video_processing"
	SceneStatusVideoDone       = "video_done"
	SceneStatusMerging         = "merging"
	SceneStatusCompleted       = "completed"

	SceneStatusFailed      = "failed"
	SceneStatusAudioFailed = "audio_failed"
	SceneStatusVideoFailed = "video_failed"
	SceneStatusMergeFailed = "merge_failed"
)

type Scene struct {
	ID               string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectId        string    `gorm:"index" json:"projectId"`
	SceneNumber      int       `json:"sceneNumber"`
	Timestamp        string    `json:"timestamp"`
	Narration        string    `json:"narration"`
	Subject          string    `json:"subject"`
	Status           string    `json:"status"`
	ImageUrl         string    `json:"imageUrl"`
	AudioUrl         string    `json:"audioUrl"`
	AudioDuration    float64   `json:"audioDuration"`
	AudioVoice       string    `json:"audioVoice"`
	AudioTemperature float64   `json:"audioTemperature"`
	VideoUrl         string    `json:"videoUrl"`
	MergedVideoUrl   string    `json:"mergedVideoUrl"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (Scene) TableName() string {
	return "scene"
}

// sceneTransitions is the legal transition table. Every in-progress state may
// branch to its failure status, and any state may be re-entered through the
// stage that owns it when the artifact is still missing.
var sceneTransitions = map[string][]string{
	SceneStatusPending:         {SceneStatusImageProcessing},
	SceneStatusImageProcessing: {SceneStatusImageDone, SceneStatusFailed},
	SceneStatusImageDone:       {SceneStatusAudioProcessing, SceneStatusVideoProcessing},
	SceneStatusAudioProcessing: {SceneStatusAudioDone, SceneStatusAudioFailed},
	SceneStatusAudioDone:       {SceneStatusVideoProcessing},
	SceneStatusVideoProcessing: {SceneStatusVideoDone, SceneStatusCompleted, SceneStatusVideoFailed},
	SceneStatusVideoDone:       {SceneStatusMerging},
	SceneStatusMerging:         {SceneStatusCompleted, SceneStatusMergeFailed},

	// Failure branches re-enter the stage that failed.
	SceneStatusFailed:      {SceneStatusImageProcessing},
	SceneStatusAudioFailed: {SceneStatusAudioProcessing},
	SceneStatusVideoFailed: {SceneStatusVideoProcessing},
	SceneStatusMergeFailed: {SceneStatusMerging},

	// A completed scene may be re-merged or re-animated after an artifact
	// was cleared by hand.
	SceneStatusCompleted: {SceneStatusVideoProcessing, SceneStatusMerging},
}

// CanTransition reports whether from -> to is a legal scene status change.
func CanTransition(from, to string) bool {
	for _, next := range sceneTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsFailureStatus reports whether s is one of the per-stage failure branches.
func IsFailureStatus(s string) bool {
	switch s {
	case SceneStatusFailed, SceneStatusAudioFailed, SceneStatusVideoFailed, SceneStatusMergeFailed:
		return true
	}
	return false
}

// IsProcessingStatus reports whether s marks work in flight.
func IsProcessingStatus(s string) bool {
	switch s {
	case SceneStatusImageProcessing, SceneStatusAudioProcessing, SceneStatusVideoProcessing, SceneStatusMerging:
		return true
	}
	return false
}
