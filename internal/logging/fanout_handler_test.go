package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeHandlerNilHandlers(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
}

func TestTeeHandlerSingleHandlerUnwrapped(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if TeeHandler(nil, inner) != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestTeeHandlerRespectsPerHandlerLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(TeeHandler(info, debug)).With("run_id", "r1")
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected tee to be enabled for debug")
	}
	logger.Debug("only debug")
	logger.Info("both")

	if strings.Contains(infoBuf.String(), "only debug") {
		t.Fatalf("info handler received debug record: %q", infoBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "only debug") || !strings.Contains(debugBuf.String(), "run_id=r1") {
		t.Fatalf("debug handler missing record or attrs: %q", debugBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "both") {
		t.Fatalf("info handler missing record: %q", infoBuf.String())
	}
}
