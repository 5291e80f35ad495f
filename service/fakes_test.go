package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ScriptToVideo-server/models"

	"github.com/rs/zerolog"
)

// fakeStore is an in-memory ProjectStore for orchestration tests.
type fakeStore struct {
	mu       sync.Mutex
	projects map[string]*models.Project
	scenes   map[string]*models.Scene

	// sceneWrites records scene ids in update order.
	sceneWrites []string
}

func newFakeStore(project *models.Project, scenes []models.Scene) *fakeStore {
	s := &fakeStore{
		projects: map[string]*models.Project{project.ID: project},
		scenes:   make(map[string]*models.Scene),
	}
	for i := range scenes {
		sc := scenes[i]
		s.scenes[sc.ID] = &sc
	}
	return s
}

func (s *fakeStore) GetProject(ctx context.Context, id string) (*models.Project, []models.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return nil, nil, fmt.Errorf("record not found")
	}
	var scenes []models.Scene
	for _, sc := range s.scenes {
		if sc.ProjectId == id {
			scenes = append(scenes, *sc)
		}
	}
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].SceneNumber < scenes[j].SceneNumber
	})
	copied := *project
	return &copied, scenes, nil
}

func (s *fakeStore) GetSceneByID(ctx context.Context, id string) (*models.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scenes[id]
	if !ok {
		return nil, fmt.Errorf("record not found")
	}
	copied := *sc
	return &copied, nil
}

func (s *fakeStore) UpdateScene(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scenes[id]
	if !ok {
		return fmt.Errorf("scene not found: %s", id)
	}
	s.sceneWrites = append(s.sceneWrites, id)
	for k, v := range fields {
		switch k {
		case "status":
			sc.Status = v.(string)
		case "image_url":
			sc.ImageUrl = v.(string)
		case "audio_url":
			sc.AudioUrl = v.(string)
		case "audio_duration":
			sc.AudioDuration = v.(float64)
		case "audio_voice":
			sc.AudioVoice = v.(string)
		case "audio_temperature":
			sc.AudioTemperature = v.(float64)
		case "video_url":
			sc.VideoUrl = v.(string)
		case "merged_video_url":
			sc.MergedVideoUrl = v.(string)
		}
	}
	return nil
}

func (s *fakeStore) UpdateProject(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("project not found: %s", id)
	}
	for k, v := range fields {
		switch k {
		case "status":
			p.Status = v.(string)
		case "final_video_url":
			p.FinalVideoUrl = v.(string)
		}
	}
	return nil
}

func (s *fakeStore) UpdateProjectStatus(ctx context.Context, id string, status string) error {
	return s.UpdateProject(ctx, id, map[string]interface{}{"status": status})
}

func (s *fakeStore) SceneStats(ctx context.Context, projectID string) (models.SceneStats, error) {
	_, scenes, err := s.GetProject(ctx, projectID)
	if err != nil {
		return models.SceneStats{}, err
	}
	return models.ComputeSceneStats(scenes), nil
}

func (s *fakeStore) scene(id string) models.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.scenes[id]
}

func (s *fakeStore) project(id string) models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.projects[id]
}

// ============================================================================
// Fake stage clients
// ============================================================================

type fakeImageGen struct {
	failOn map[int]bool
	calls  []int
}

func (f *fakeImageGen) Generate(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	f.calls = append(f.calls, req.SceneNumber)
	if f.failOn[req.SceneNumber] {
		return nil, fmt.Errorf("image generation failed")
	}
	if !req.UploadToCDN {
		return &ImageResult{LocalPath: fmt.Sprintf("/tmp/scene_%d.png", req.SceneNumber)}, nil
	}
	return &ImageResult{CDNUrl: fmt.Sprintf("https://cdn.test/scene_%d.png", req.SceneNumber)}, nil
}

type fakeSpeechGen struct {
	failOn   map[int]bool
	duration float64
}

func (f *fakeSpeechGen) Generate(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	if f.failOn[req.SceneNumber] {
		return nil, fmt.Errorf("tts failed")
	}
	d := f.duration
	if d == 0 {
		d = 4.2
	}
	return &SpeechResult{
		AudioUrl: fmt.Sprintf("https://cdn.test/scene_%d.mp3", req.SceneNumber),
		Duration: d,
	}, nil
}

type fakeAnimator struct {
	healthy   bool
	failOn    map[int]bool
	syncCalls []AnimateRequest
	submitted []AnimateRequest
}

func (f *fakeAnimator) Healthy(ctx context.Context) bool { return f.healthy }

func (f *fakeAnimator) GenerateSync(ctx context.Context, req AnimateRequest) (*AnimateResult, error) {
	f.syncCalls = append(f.syncCalls, req)
	if f.failOn[req.SceneNumber] {
		return nil, fmt.Errorf("animation timed out")
	}
	return &AnimateResult{VideoUrl: fmt.Sprintf("https://cdn.test/scene_%d.mp4", req.SceneNumber)}, nil
}

func (f *fakeAnimator) Submit(ctx context.Context, req AnimateRequest) error {
	if f.failOn[req.SceneNumber] {
		return fmt.Errorf("submission rejected")
	}
	f.submitted = append(f.submitted, req)
	return nil
}

type fakeMerger struct {
	failOn map[int]bool
}

func (f *fakeMerger) Merge(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	if f.failOn[req.SceneNumber] {
		return nil, fmt.Errorf("merge failed")
	}
	return &MergeResult{MergedVideoUrl: fmt.Sprintf("https://cdn.test/scene_%d_merged.mp4", req.SceneNumber)}, nil
}

type fakeConcat struct {
	gotUrls []string
	err     error
}

func (f *fakeConcat) Concatenate(ctx context.Context, projectID string, videoUrls []string) (string, error) {
	f.gotUrls = videoUrls
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.test/" + projectID + "_final.mp4", nil
}

type fakeUploader struct {
	gotFiles []AssetFile
}

func (f *fakeUploader) UploadBatch(ctx context.Context, projectID string, files []AssetFile) (*UploadResult, error) {
	f.gotFiles = files
	result := &UploadResult{}
	for _, file := range files {
		result.Uploaded++
		result.Uploads = append(result.Uploads, UploadedAsset{
			SceneNumber: file.SceneNumber,
			Type:        file.Type,
			CdnUrl:      fmt.Sprintf("https://cdn.test/%s/scene_%d_%s", projectID, file.SceneNumber, file.Type),
		})
	}
	return result, nil
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testProject(id string, sceneNumbers ...int) (*models.Project, []models.Scene) {
	project := &models.Project{
		ID:          id,
		Title:       "test project",
		TotalScenes: len(sceneNumbers),
		Status:      models.ProjectStatusPending,
	}
	scenes := make([]models.Scene, len(sceneNumbers))
	for i, n := range sceneNumbers {
		scenes[i] = models.Scene{
			ID:          fmt.Sprintf("%s-scene-%d", id, n),
			ProjectId:   id,
			SceneNumber: n,
			Narration:   fmt.Sprintf("narration %d", n),
			Subject:     fmt.Sprintf("subject %d", n),
			Status:      models.SceneStatusPending,
		}
	}
	return project, scenes
}

func newTestPipeline(store *fakeStore, images *fakeImageGen, speech *fakeSpeechGen, animator *fakeAnimator, merger *fakeMerger, concat *fakeConcat, uploader *fakeUploader) *Pipeline {
	return NewPipeline(store, images, speech, animator, merger, concat, uploader, testLogger())
}
