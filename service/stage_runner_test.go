package service

import (
	"context"
	"fmt"
	"testing"

	"ScriptToVideo-server/models"
)

func testStageSpec(invoke func(ctx context.Context, scene *models.Scene) (map[string]interface{}, error)) StageSpec {
	return StageSpec{
		Name:             "images",
		Selector:         SelectNeedsImage,
		ProcessingStatus: models.SceneStatusImageProcessing,
		FailureStatus:    models.SceneStatusFailed,
		Invoke:           invoke,
	}
}

func TestStageRunnerProcessesInSceneNumberOrder(t *testing.T) {
	project, scenes := testProject("p1", 3, 1, 2)
	store := newFakeStore(project, scenes)
	runner := NewStageRunner(store, testLogger())

	var order []int
	spec := testStageSpec(func(ctx context.Context, scene *models.Scene) (map[string]interface{}, error) {
		order = append(order, scene.SceneNumber)
		return map[string]interface{}{
			"image_url": fmt.Sprintf("https://cdn.test/%d.png", scene.SceneNumber),
			"status":    models.SceneStatusImageDone,
		}, nil
	})

	_, all, _ := store.GetProject(context.Background(), "p1")
	result := runner.Run(context.Background(), all, spec)

	if result.Processed != 3 || result.Failed != 0 || result.Total != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	for i, n := range order {
		if n != i+1 {
			t.Fatalf("scenes processed out of order: %v", order)
		}
	}
}

func TestStageRunnerIsolatesSceneFailures(t *testing.T) {
	project, scenes := testProject("p1", 1, 2, 3)
	store := newFakeStore(project, scenes)
	runner := NewStageRunner(store, testLogger())

	spec := testStageSpec(func(ctx context.Context, scene *models.Scene) (map[string]interface{}, error) {
		if scene.SceneNumber == 2 {
			return nil, fmt.Errorf("generator exploded")
		}
		return map[string]interface{}{
			"image_url": "https://cdn.test/img.png",
			"status":    models.SceneStatusImageDone,
		}, nil
	})

	_, all, _ := store.GetProject(context.Background(), "p1")
	result := runner.Run(context.Background(), all, spec)

	if result.Processed != 2 || result.Failed != 1 || result.Total != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := store.scene("p1-scene-2").Status; got != models.SceneStatusFailed {
		t.Errorf("failed scene status = %q, want %q", got, models.SceneStatusFailed)
	}
	if got := store.scene("p1-scene-3").Status; got != models.SceneStatusImageDone {
		t.Errorf("scene after failure not processed, status = %q", got)
	}
}

func TestStageRunnerEmptyEligibleIsNoop(t *testing.T) {
	project, scenes := testProject("p1", 1, 2)
	for i := range scenes {
		scenes[i].ImageUrl = "https://cdn.test/done.png"
		scenes[i].Status = models.SceneStatusImageDone
	}
	store := newFakeStore(project, scenes)
	runner := NewStageRunner(store, testLogger())

	spec := testStageSpec(func(ctx context.Context, scene *models.Scene) (map[string]interface{}, error) {
		t.Fatal("invoke must not be called for an empty eligible set")
		return nil, nil
	})

	_, all, _ := store.GetProject(context.Background(), "p1")
	result := runner.Run(context.Background(), all, spec)

	if result != (StageResult{}) {
		t.Fatalf("expected zero result, got %+v", result)
	}
	if len(store.sceneWrites) != 0 {
		t.Errorf("no scene should be touched, wrote %v", store.sceneWrites)
	}
}

// A second run selects only the scenes the first run left without artifacts.
func TestStageRunnerRerunIsIdempotent(t *testing.T) {
	project, scenes := testProject("p1", 1, 2, 3)
	store := newFakeStore(project, scenes)
	runner := NewStageRunner(store, testLogger())

	failSecond := true
	spec := testStageSpec(func(ctx context.Context, scene *models.Scene) (map[string]interface{}, error) {
		if failSecond && scene.SceneNumber == 2 {
			return nil, fmt.Errorf("transient failure")
		}
		return map[string]interface{}{
			"image_url": fmt.Sprintf("https://cdn.test/%d.png", scene.SceneNumber),
			"status":    models.SceneStatusImageDone,
		}, nil
	})

	_, all, _ := store.GetProject(context.Background(), "p1")
	first := runner.Run(context.Background(), all, spec)
	if first.Processed != 2 || first.Failed != 1 {
		t.Fatalf("first run: %+v", first)
	}

	failSecond = false
	_, all, _ = store.GetProject(context.Background(), "p1")
	second := runner.Run(context.Background(), all, spec)
	if second.Total != 1 || second.Processed != 1 {
		t.Fatalf("second run should retry only the failed scene: %+v", second)
	}

	_, all, _ = store.GetProject(context.Background(), "p1")
	third := runner.Run(context.Background(), all, spec)
	if third != (StageResult{}) {
		t.Fatalf("third run should be a no-op: %+v", third)
	}
}

func TestSelectors(t *testing.T) {
	cases := []struct {
		name     string
		scene    models.Scene
		selector func(*models.Scene) bool
		want     bool
	}{
		{"image missing", models.Scene{}, SelectNeedsImage, true},
		{"image present", models.Scene{ImageUrl: "u"}, SelectNeedsImage, false},
		{"pending only", models.Scene{Status: models.SceneStatusPending}, SelectPendingImage, true},
		{"failed not pending", models.Scene{Status: models.SceneStatusFailed}, SelectPendingImage, false},
		{"audio needs narration", models.Scene{Narration: ""}, SelectNeedsAudio, false},
		{"audio missing", models.Scene{Narration: "n"}, SelectNeedsAudio, true},
		{"audio present", models.Scene{Narration: "n", AudioUrl: "u"}, SelectNeedsAudio, false},
		{"video needs image", models.Scene{}, SelectNeedsVideo, false},
		{"video missing", models.Scene{ImageUrl: "i"}, SelectNeedsVideo, true},
		{"video present", models.Scene{ImageUrl: "i", VideoUrl: "v"}, SelectNeedsVideo, false},
		{"merge needs both", models.Scene{VideoUrl: "v"}, SelectNeedsMerge, false},
		{"merge missing", models.Scene{VideoUrl: "v", AudioUrl: "a"}, SelectNeedsMerge, true},
		{"merge present", models.Scene{VideoUrl: "v", AudioUrl: "a", MergedVideoUrl: "m"}, SelectNeedsMerge, false},
	}
	for _, tc := range cases {
		if got := tc.selector(&tc.scene); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
