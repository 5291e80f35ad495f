package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestImageClientGenerate(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate-image" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"cdn_url": "https://cdn.test/scene_1.png",
		})
	}))
	defer srv.Close()

	client := NewImageClient(srv.URL, testLogger())
	result, err := client.Generate(context.Background(), ImageRequest{
		Subject:     "a lighthouse at dawn",
		ProjectID:   "p1",
		SceneNumber: 1,
		UploadToCDN: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.URL() != "https://cdn.test/scene_1.png" {
		t.Errorf("url = %q", result.URL())
	}

	prompt, _ := gotBody["prompt"].(string)
	if !strings.HasPrefix(prompt, "a lighthouse at dawn, ") {
		t.Errorf("prompt must lead with the subject: %q", prompt)
	}
	if !strings.Contains(prompt, "gouache") {
		t.Errorf("style template missing from prompt: %q", prompt)
	}
	if gotBody["upload_to_cdn"] != true {
		t.Errorf("upload_to_cdn not forwarded: %v", gotBody)
	}
}

func TestImageClientGenerateFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "model overloaded",
		})
	}))
	defer srv.Close()

	client := NewImageClient(srv.URL, testLogger())
	if _, err := client.Generate(context.Background(), ImageRequest{Subject: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestImageResultPrefersCdnUrl(t *testing.T) {
	r := &ImageResult{CDNUrl: "https://cdn.test/a.png", LocalPath: "/data/a.png"}
	if r.URL() != "https://cdn.test/a.png" {
		t.Errorf("URL() = %q", r.URL())
	}
	r = &ImageResult{LocalPath: "/data/a.png"}
	if r.URL() != "/data/a.png" {
		t.Errorf("URL() = %q", r.URL())
	}
}

func TestSpeechClientAppliesDefaults(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tts/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"audio_url": "https://cdn.test/scene_1.mp3",
			"duration":  3.7,
		})
	}))
	defer srv.Close()

	client := NewSpeechClient(srv.URL, testLogger())
	result, err := client.Generate(context.Background(), SpeechRequest{Text: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Duration != 3.7 {
		t.Errorf("duration = %v", result.Duration)
	}
	if gotBody["voice"] != DefaultVoice {
		t.Errorf("voice = %v, want default", gotBody["voice"])
	}
	if gotBody["temperature"] != DefaultTemperature {
		t.Errorf("temperature = %v, want default", gotBody["temperature"])
	}
}

func TestSpeechClientFallsBackToLocalPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":    true,
			"local_path": "/data/audio/scene_1.mp3",
			"duration":   2.0,
		})
	}))
	defer srv.Close()

	client := NewSpeechClient(srv.URL, testLogger())
	result, err := client.Generate(context.Background(), SpeechRequest{Text: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if result.AudioUrl != "/data/audio/scene_1.mp3" {
		t.Errorf("audio url = %q", result.AudioUrl)
	}
}

func TestVideoClientHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/video/health" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	client := NewVideoClient(srv.URL, "http://cb.test/webhook/video-ready", testLogger())
	if !client.Healthy(context.Background()) {
		t.Error("expected healthy")
	}
}

func TestVideoClientUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
	}))
	client := NewVideoClient(srv.URL, "", testLogger())
	if client.Healthy(context.Background()) {
		t.Error("degraded worker reported healthy")
	}

	srv.Close()
	if client.Healthy(context.Background()) {
		t.Error("unreachable worker reported healthy")
	}
}

func TestVideoClientSubmitSendsCallback(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/video/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))
	defer srv.Close()

	client := NewVideoClient(srv.URL, "http://cb.test/webhook/video-ready", testLogger())
	err := client.Submit(context.Background(), AnimateRequest{
		ImageUrl:     "https://cdn.test/img.png",
		SceneID:      "s1",
		Duration:     10,
		PanDirection: "vertical",
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotBody["callback_url"] != "http://cb.test/webhook/video-ready" {
		t.Errorf("callback_url = %v", gotBody["callback_url"])
	}
}

func TestVideoClientGenerateSyncOmitsCallback(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/video/generate-sync" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"video_url": "https://cdn.test/scene_1.mp4",
		})
	}))
	defer srv.Close()

	client := NewVideoClient(srv.URL, "http://cb.test/webhook/video-ready", testLogger())
	result, err := client.GenerateSync(context.Background(), AnimateRequest{
		ImageUrl: "https://cdn.test/img.png",
		SceneID:  "s1",
		Duration: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.VideoUrl != "https://cdn.test/scene_1.mp4" {
		t.Errorf("video url = %q", result.VideoUrl)
	}
	if _, ok := gotBody["callback_url"]; ok {
		t.Error("sync call must not carry a callback url")
	}
}

func TestVideoClientMergeAndConcatenate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/video/merge-video-audio":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success":          true,
				"merged_video_url": "https://cdn.test/merged.mp4",
			})
		case "/api/video/concatenate":
			var body struct {
				VideoUrls []string `json:"video_urls"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if len(body.VideoUrls) != 2 {
				t.Errorf("video_urls = %v", body.VideoUrls)
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success":   true,
				"video_url": "https://cdn.test/final.mp4",
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewVideoClient(srv.URL, "", testLogger())

	merged, err := client.Merge(context.Background(), MergeRequest{
		VideoUrl: "https://cdn.test/v.mp4",
		AudioUrl: "https://cdn.test/a.mp3",
		SceneID:  "s1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if merged.MergedVideoUrl != "https://cdn.test/merged.mp4" {
		t.Errorf("merged url = %q", merged.MergedVideoUrl)
	}

	final, err := client.Concatenate(context.Background(), "p1", []string{"u1", "u2"})
	if err != nil {
		t.Fatal(err)
	}
	if final != "https://cdn.test/final.mp4" {
		t.Errorf("final url = %q", final)
	}
}
