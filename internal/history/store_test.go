package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"releasekit/internal/history"
	"releasekit/internal/services"
	"releasekit/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if err := store.BeginRun(ctx, history.Run{ID: "run-1", Project: "acme", Mode: "release", Repository: "local"}); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := store.RecordArtifact(ctx, "run-1", history.Artifact{Name: "A", Version: "1.1.0", Digest: "sha256:abc", Size: 42}); err != nil {
		t.Fatalf("RecordArtifact failed: %v", err)
	}
	entries := []history.ErrorEntry{{Phase: "BUILD", Module: "B", Version: "2.0.1", Message: "compile failed"}}
	if err := store.FinishRun(ctx, "run-1", history.StatusFailed, entries); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	run, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run.Status != history.StatusFailed || run.FinishedAt == nil {
		t.Fatalf("unexpected run state: %#v", run)
	}
	if len(run.Artifacts) != 1 || run.Artifacts[0].Name != "A" || run.Artifacts[0].Size != 42 {
		t.Fatalf("unexpected artifacts: %#v", run.Artifacts)
	}
	if len(run.Errors) != 1 || run.Errors[0] != entries[0] {
		t.Fatalf("unexpected errors: %#v", run.Errors)
	}
}

func TestListNewestFirstWithCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		run := history.Run{ID: id, Project: "acme", Mode: "release", StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.BeginRun(ctx, run); err != nil {
			t.Fatalf("BeginRun %s failed: %v", id, err)
		}
	}
	if err := store.RecordArtifact(ctx, "mid", history.Artifact{Name: "A", Version: "1.0.0"}); err != nil {
		t.Fatalf("RecordArtifact failed: %v", err)
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Fatalf("unexpected order: %#v", runs)
	}
	if runs[1].ArtifactCount != 1 || runs[0].Status != history.StatusRunning {
		t.Fatalf("unexpected counts/status: %#v", runs)
	}
}

func TestMissingRunIsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Get, got %v", err)
	}
	if err := store.FinishRun(ctx, "nope", history.StatusSucceeded, nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from FinishRun, got %v", err)
	}
	if err := store.BeginRun(ctx, history.Run{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.BeginRun(context.Background(), history.Run{ID: "persisted", Project: "acme", Mode: "release"}); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenHistory(t, cfg)
	if _, err := reopened.Get(context.Background(), "persisted"); err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
}
