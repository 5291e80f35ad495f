package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ImageRequest carries the prompt seed for one scene image.
type ImageRequest struct {
	Subject     string
	ProjectID   string
	SceneNumber int
	UploadToCDN bool
}

// ImageResult holds either a CDN URL or a local path on the generation host.
type ImageResult struct {
	CDNUrl    string
	LocalPath string
}

// URL returns whichever location the generator produced.
func (r *ImageResult) URL() string {
	if r.CDNUrl != "" {
		return r.CDNUrl
	}
	return r.LocalPath
}

type ImageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

// Fixed style template: every scene image is rendered in the same look, the
// subject only supplies the content.
const imageStyleTemplate = "THICK IMPASTO gouache painting, HEAVY VISIBLE BRUSHSTROKES, " +
	"chunky paint application, textured canvas with paint ridges, bold loose brushwork, " +
	"palette knife technique, authentic paint texture NOT smooth, rough painted surface, " +
	"expressive brush marks, bright warm Mediterranean colors with reds yellows ochre blues, " +
	"traditional gouache medium with thick layers, NOT digital rendering, " +
	"detailed facial features, sharp focus, close-up perspective, high detail on figures"

// imageAPIClient talks to the image generation service over HTTP.
type imageAPIClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewImageClient(baseURL string, logger zerolog.Logger) ImageGenerator {
	return &imageAPIClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 2 * time.Minute},
		log:     logger,
	}
}

func (c *imageAPIClient) Generate(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	body := map[string]interface{}{
		"prompt":        fmt.Sprintf("%s, %s", req.Subject, imageStyleTemplate),
		"upload_to_cdn": req.UploadToCDN,
	}
	if req.ProjectID != "" {
		body["project_id"] = req.ProjectID
		body["scene_number"] = req.SceneNumber
	}

	var resp struct {
		Success   bool   `json:"success"`
		CdnUrl    string `json:"cdn_url"`
		LocalPath string `json:"local_path"`
		Error     string `json:"error"`
	}
	if err := postJSON(ctx, c.client, c.baseURL+"/generate-image", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("image generation failed: %s", resp.Error)
	}

	c.log.Info().
		Str("project_id", req.ProjectID).
		Int("scene_number", req.SceneNumber).
		Str("cdn_url", resp.CdnUrl).
		Msg("image generated")

	return &ImageResult{CDNUrl: resp.CdnUrl, LocalPath: resp.LocalPath}, nil
}

// postJSON posts body as JSON and decodes the response into out. Shared by
// all stage clients.
func postJSON(ctx context.Context, client *http.Client, url string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response failed: %w", err)
	}
	return nil
}

func decodeJSON(resp *http.Response, out interface{}) error {
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
