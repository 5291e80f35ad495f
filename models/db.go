package models

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"ScriptToVideo-server/config"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *sql.DB
var GormDB *gorm.DB

func InitDB() {
	if config.AppConfig == nil {
		log.Fatal("config.AppConfig is nil, call config.InitConfig first")
	}
	dsn := config.AppConfig.MySQL.DSN
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	DB = db
	GormDB, err = gorm.Open(mysql.New(mysql.Config{
		Conn: DB,
	}), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to initialize GORM: %v", err)
	}

	if err := GormDB.AutoMigrate(&Project{}, &Scene{}); err != nil {
		log.Fatalf("auto migration failed: %v", err)
	}
}

// SceneStats is the per-project aggregate, always recomputed from the store.
type SceneStats struct {
	Total           int `json:"total"`
	Pending         int `json:"pending"`
	ImageProcessing int `json:"image_processing"`
	ImageDone       int `json:"image_done"`
	AudioProcessing int `json:"audio_processing"`
	AudioDone       int `json:"audio_done"`
	VideoProcessing int `json:"video_processing"`
	VideoDone       int `json:"video_done"`
	Merging         int `json:"merging"`
	Completed       int `json:"completed"`
	Failed          int `json:"failed"`
	Progress        int `json:"progress"`
}

// Store is the scene record store backed by MySQL through GORM.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateProjectWithScenes inserts the project and all of its scenes as one
// transaction; either everything lands or nothing does.
func (s *Store) CreateProjectWithScenes(ctx context.Context, project *Project, scenes []Scene) error {
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now
	for i := range scenes {
		scenes[i].ProjectId = project.ID
		scenes[i].CreatedAt = now
		scenes[i].UpdatedAt = now
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		if len(scenes) > 0 {
			if err := tx.Create(&scenes).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetProject returns the project and its scenes ordered by scene number.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, []Scene, error) {
	var project Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, nil, err
	}
	var scenes []Scene
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", id).
		Order("scene_number ASC").
		Find(&scenes).Error; err != nil {
		return nil, nil, err
	}
	return &project, scenes, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&projects).Error
	return projects, err
}

func (s *Store) GetSceneByID(ctx context.Context, id string) (*Scene, error) {
	var scene Scene
	if err := s.db.WithContext(ctx).First(&scene, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &scene, nil
}

// UpdateScene writes the given fields for one scene. Field keys are column
// names; updated_at is stamped on every write.
func (s *Store) UpdateScene(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	res := s.db.WithContext(ctx).Model(&Scene{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("scene not found: %s", id)
	}
	return nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return s.db.WithContext(ctx).Model(&Project{}).Where("id = ?", id).Updates(fields).Error
}

func (s *Store) UpdateProjectStatus(ctx context.Context, id string, status string) error {
	return s.UpdateProject(ctx, id, map[string]interface{}{"status": status})
}

// DeleteProject removes the project and all of its scenes. Scenes never
// outlive their project.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&Scene{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Project{}, "id = ?", id).Error
	})
}

// SceneStats recomputes the aggregate from the current scene rows.
func (s *Store) SceneStats(ctx context.Context, projectID string) (SceneStats, error) {
	var scenes []Scene
	if err := s.db.WithContext(ctx).
		Select("status").
		Where("project_id = ?", projectID).
		Find(&scenes).Error; err != nil {
		return SceneStats{}, err
	}
	return ComputeSceneStats(scenes), nil
}

// ComputeSceneStats counts scene statuses. Split out so the orchestrator
// tests can run it against in-memory scenes.
func ComputeSceneStats(scenes []Scene) SceneStats {
	stats := SceneStats{Total: len(scenes)}
	for _, sc := range scenes {
		switch sc.Status {
		case SceneStatusPending:
			stats.Pending++
		case SceneStatusImageProcessing:
			stats.ImageProcessing++
		case SceneStatusImageDone:
			stats.ImageDone++
		case SceneStatusAudioProcessing:
			stats.AudioProcessing++
		case SceneStatusAudioDone:
			stats.AudioDone++
		case SceneStatusVideoProcessing:
			stats.VideoProcessing++
		case SceneStatusVideoDone:
			stats.VideoDone++
		case SceneStatusMerging:
			stats.Merging++
		case SceneStatusCompleted:
			stats.Completed++
		}
		if IsFailureStatus(sc.Status) {
			stats.Failed++
		}
	}
	if stats.Total > 0 {
		stats.Progress = stats.Completed * 100 / stats.Total
	}
	return stats
}
