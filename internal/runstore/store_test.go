package runstore_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scenecast/internal/runstore"
	"scenecast/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if store.Path() != cfg.RunStorePath() {
		t.Fatalf("unexpected store path %q", store.Path())
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.StateDir, "runs.db")); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	ctx := context.Background()
	run, err := store.Create(ctx, "run-1", "Explain recursion")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if run.Status != runstore.StatusRunning || run.Prompt != "Explain recursion" || run.CreatedAt.IsZero() {
		t.Fatalf("unexpected run %#v", run)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := runstore.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Create(context.Background(), "run-keep", "prompt"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	store.Close()

	reopened := testsupport.MustOpenStore(t, cfg)
	if _, err := reopened.Get(context.Background(), "run-keep"); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
}

func TestCompleteRecordsOutcome(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if _, err := store.Create(ctx, "run-ok", "prompt"); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateStage(ctx, "run-ok", "render"); err != nil {
		t.Fatalf("UpdateStage: %v", err)
	}
	outcome := runstore.Outcome{RenderAttempts: 2, Strategy: "speed_video", VideoSeconds: 50, AudioSeconds: 40, ArtifactPath: "/out/final_output.mp4"}
	if err := store.Complete(ctx, "run-ok", outcome); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	run, err := store.Get(ctx, "run-ok")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != runstore.StatusSucceeded || run.Stage != "" || run.RenderAttempts != 2 ||
		run.Strategy != "speed_video" || run.ArtifactPath != "/out/final_output.mp4" || run.FinishedAt.IsZero() {
		t.Fatalf("unexpected run %#v", run)
	}
	if run.Duration(time.Now()) < 0 {
		t.Fatal("negative run duration")
	}
}

func TestFailRecordsStageAndKind(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if _, err := store.Create(ctx, "run-bad", "prompt"); err != nil {
		t.Fatal(err)
	}
	if err := store.Fail(ctx, "run-bad", "sync", "mux", "ffmpeg exploded"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	run, err := store.Get(ctx, "run-bad")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != runstore.StatusFailed || run.Stage != "sync" || run.ErrorKind != "mux" || run.ErrorMessage != "ffmpeg exploded" {
		t.Fatalf("unexpected run %#v", run)
	}
}

func TestUnknownRunIsNotFound(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, runstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateStage(ctx, "missing", "render"); !errors.Is(err, runstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirstAndStats(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("run-%d", i)
		if _, err := store.Create(ctx, id, "prompt"); err != nil {
			t.Fatal(err)
		}
		if i%2 == 0 {
			if err := store.Fail(ctx, id, "script", "generation", "quota"); err != nil {
				t.Fatal(err)
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	runs, err := store.List(ctx, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "run-4" || runs[2].ID != "run-2" {
		t.Fatalf("unexpected order: %v", []string{runs[0].ID, runs[1].ID, runs[2].ID})
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[runstore.StatusFailed] != 3 || stats[runstore.StatusRunning] != 2 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestMarkAbandoned(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if _, err := store.Create(ctx, "run-stale", "prompt"); err != nil {
		t.Fatal(err)
	}
	changed, err := store.MarkAbandoned(ctx, 0)
	if err != nil {
		t.Fatalf("MarkAbandoned: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 abandoned run, got %d", changed)
	}
	run, _ := store.Get(ctx, "run-stale")
	if run.Status != runstore.StatusFailed || run.ErrorKind != "abandoned" {
		t.Fatalf("unexpected run %#v", run)
	}
}
