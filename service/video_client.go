package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// GPU-bound work on the video worker takes minutes, not seconds.
const (
	healthTimeout  = 5 * time.Second
	animateTimeout = 3 * time.Minute
	mergeTimeout   = 10 * time.Minute
	concatTimeout  = 15 * time.Minute
)

type AnimateRequest struct {
	ImageUrl     string
	SceneID      string
	Duration     int
	PanDirection string
	ProjectID    string
	SceneNumber  int
}

type AnimateResult struct {
	VideoUrl string
}

// VideoAnimator exposes both completion styles of the animation worker: a
// blocking call and a submit that resolves later through the webhook.
type VideoAnimator interface {
	Healthy(ctx context.Context) bool
	GenerateSync(ctx context.Context, req AnimateRequest) (*AnimateResult, error)
	Submit(ctx context.Context, req AnimateRequest) error
}

type MergeRequest struct {
	VideoUrl    string
	AudioUrl    string
	SceneID     string
	Narration   string
	ProjectID   string
	SceneNumber int
}

type MergeResult struct {
	MergedVideoUrl string
}

type VideoMerger interface {
	Merge(ctx context.Context, req MergeRequest) (*MergeResult, error)
}

type VideoConcatenator interface {
	Concatenate(ctx context.Context, projectID string, videoUrls []string) (string, error)
}

// videoAPIClient talks to the video worker. One client implements animation,
// merge and concatenation since they live on the same service.
type videoAPIClient struct {
	baseURL     string
	callbackURL string
	log         zerolog.Logger

	healthClient  *http.Client
	animateClient *http.Client
	mergeClient   *http.Client
	concatClient  *http.Client
}

func NewVideoClient(baseURL, callbackURL string, logger zerolog.Logger) *videoAPIClient {
	return &videoAPIClient{
		baseURL:       baseURL,
		callbackURL:   callbackURL,
		log:           logger,
		healthClient:  &http.Client{Timeout: healthTimeout},
		animateClient: &http.Client{Timeout: animateTimeout},
		mergeClient:   &http.Client{Timeout: mergeTimeout},
		concatClient:  &http.Client{Timeout: concatTimeout},
	}
}

var _ VideoAnimator = (*videoAPIClient)(nil)
var _ VideoMerger = (*videoAPIClient)(nil)
var _ VideoConcatenator = (*videoAPIClient)(nil)

func (c *videoAPIClient) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/video/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.healthClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("video worker unreachable")
		return false
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return false
	}
	return body.Status == "ok"
}

func (c *videoAPIClient) GenerateSync(ctx context.Context, req AnimateRequest) (*AnimateResult, error) {
	var resp struct {
		Success  bool   `json:"success"`
		VideoUrl string `json:"video_url"`
		Error    string `json:"error"`
	}
	err := postJSON(ctx, c.animateClient, c.baseURL+"/api/video/generate-sync", c.animateBody(req, ""), &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("video generation failed: %s", resp.Error)
	}
	return &AnimateResult{VideoUrl: resp.VideoUrl}, nil
}

// Submit is fire-and-forget: the worker acknowledges immediately and reports
// the result later on the callback URL.
func (c *videoAPIClient) Submit(ctx context.Context, req AnimateRequest) error {
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	err := postJSON(ctx, c.animateClient, c.baseURL+"/api/video/generate", c.animateBody(req, c.callbackURL), &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("video submission rejected: %s", resp.Message)
	}
	c.log.Info().
		Str("scene_id", req.SceneID).
		Int("scene_number", req.SceneNumber).
		Msg("video generation submitted")
	return nil
}

func (c *videoAPIClient) animateBody(req AnimateRequest, callbackURL string) map[string]interface{} {
	body := map[string]interface{}{
		"image_url":     req.ImageUrl,
		"scene_id":      req.SceneID,
		"duration":      req.Duration,
		"pan_direction": req.PanDirection,
	}
	if callbackURL != "" {
		body["callback_url"] = callbackURL
	}
	if req.ProjectID != "" {
		body["project_id"] = req.ProjectID
		body["scene_number"] = req.SceneNumber
	}
	return body
}

func (c *videoAPIClient) Merge(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	body := map[string]interface{}{
		"video_url": req.VideoUrl,
		"audio_url": req.AudioUrl,
		"scene_id":  req.SceneID,
		"narration": req.Narration,
	}
	if req.ProjectID != "" {
		body["project_id"] = req.ProjectID
		body["scene_number"] = req.SceneNumber
	}

	var resp struct {
		Success        bool   `json:"success"`
		MergedVideoUrl string `json:"merged_video_url"`
		Error          string `json:"error"`
	}
	if err := postJSON(ctx, c.mergeClient, c.baseURL+"/api/video/merge-video-audio", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("merge failed: %s", resp.Error)
	}
	return &MergeResult{MergedVideoUrl: resp.MergedVideoUrl}, nil
}

func (c *videoAPIClient) Concatenate(ctx context.Context, projectID string, videoUrls []string) (string, error) {
	body := map[string]interface{}{
		"video_urls": videoUrls,
		"project_id": projectID,
	}

	var resp struct {
		Success  bool   `json:"success"`
		VideoUrl string `json:"video_url"`
		Error    string `json:"error"`
	}
	if err := postJSON(ctx, c.concatClient, c.baseURL+"/api/video/concatenate", body, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("concatenation failed: %s", resp.Error)
	}
	return resp.VideoUrl, nil
}
