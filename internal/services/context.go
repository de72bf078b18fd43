package services

import "context"

type contextKey string

const (
	runIDKey  contextKey = "run_id"
	phaseKey  contextKey = "phase"
	moduleKey contextKey = "module"
)

// WithRunID annotates context with the release run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the release run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPhase annotates context with the pipeline phase name.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(phaseKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithModule annotates context with the module being released.
func WithModule(ctx context.Context, module string) context.Context {
	if module == "" {
		return ctx
	}
	return context.WithValue(ctx, moduleKey, module)
}

// ModuleFromContext returns the module name if present.
func ModuleFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(moduleKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
