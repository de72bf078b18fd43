package services_test

import (
	"context"
	"testing"

	"releasekit/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithPhase(ctx, "publish")
	ctx = services.WithModule(ctx, "core")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if phase, ok := services.PhaseFromContext(ctx); !ok || phase != "publish" {
		t.Fatalf("unexpected phase: %v %v", phase, ok)
	}
	if module, ok := services.ModuleFromContext(ctx); !ok || module != "core" {
		t.Fatalf("unexpected module: %v %v", module, ok)
	}
}

func TestPhaseBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithPhase(ctx, "")
	if _, ok := services.PhaseFromContext(ctx); ok {
		t.Fatal("expected no phase value")
	}
}
