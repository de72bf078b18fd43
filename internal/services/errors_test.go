package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"releasekit/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrPublish, "publish", "put", "upload failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrPublish) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"publish", "put", "upload failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "release failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindClassifiesMarkers(t *testing.T) {
	cases := map[string]error{
		"propagation": services.Wrap(services.ErrPropagation, "update_versions", "write", "", errors.New("io")),
		"veto":        fmt.Errorf("outer: %w", services.ErrVeto),
		"build":       services.ErrBuild,
		"error":       errors.New("plain"),
		"":            nil,
	}
	for want, err := range cases {
		if got := services.Kind(err); got != want {
			t.Fatalf("Kind(%v) = %q, want %q", err, got, want)
		}
	}
}
