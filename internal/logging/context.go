package logging

import (
	"context"
	"log/slog"

	"releasekit/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for release run identifiers.
	FieldRunID = "run_id"
	// FieldPhase is the standardized structured logging key for pipeline phases.
	FieldPhase = "phase"
	// FieldModule is the standardized structured logging key for module names.
	FieldModule = "module"
	// FieldVersion is the standardized structured logging key for module versions.
	FieldVersion = "version"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if phase, ok := services.PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if module, ok := services.ModuleFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldModule, module))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
