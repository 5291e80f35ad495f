package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultVoice       = "walter"
	DefaultTemperature = 0.8
)

type SpeechRequest struct {
	Text        string
	Voice       string
	Temperature float64
	ProjectID   string
	SceneNumber int
}

type SpeechResult struct {
	AudioUrl string
	Duration float64
}

type SpeechGenerator interface {
	Generate(ctx context.Context, req SpeechRequest) (*SpeechResult, error)
}

// speechAPIClient talks to the TTS service over HTTP.
type speechAPIClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewSpeechClient(baseURL string, logger zerolog.Logger) SpeechGenerator {
	return &speechAPIClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 2 * time.Minute},
		log:     logger,
	}
}

func (c *speechAPIClient) Generate(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	if req.Voice == "" {
		req.Voice = DefaultVoice
	}
	if req.Temperature == 0 {
		req.Temperature = DefaultTemperature
	}

	body := map[string]interface{}{
		"text":        req.Text,
		"voice":       req.Voice,
		"temperature": req.Temperature,
	}
	if req.ProjectID != "" {
		body["project_id"] = req.ProjectID
		body["scene_number"] = req.SceneNumber
	}

	var resp struct {
		Success   bool    `json:"success"`
		AudioUrl  string  `json:"audio_url"`
		LocalPath string  `json:"local_path"`
		Duration  float64 `json:"duration"`
		Error     string  `json:"error"`
	}
	if err := postJSON(ctx, c.client, c.baseURL+"/api/tts/generate", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("speech generation failed: %s", resp.Error)
	}

	audioUrl := resp.AudioUrl
	if audioUrl == "" {
		audioUrl = resp.LocalPath
	}

	c.log.Info().
		Str("project_id", req.ProjectID).
		Int("scene_number", req.SceneNumber).
		Float64("duration", resp.Duration).
		Msg("speech generated")

	return &SpeechResult{AudioUrl: audioUrl, Duration: resp.Duration}, nil
}
