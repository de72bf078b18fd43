package release

import (
	"context"
	"fmt"
	"log/slog"

	"releasekit/internal/logging"
	"releasekit/internal/repository"
)

// Participant is anything that joins the release pipeline. A participant
// takes part in a phase by implementing the matching hook interface below.
type Participant interface {
	Name() string
}

// PreUpdateVersionsHook runs before any version is written. Returning false
// vetoes the run.
type PreUpdateVersionsHook interface {
	PreUpdateVersions(ctx context.Context, rc *Context) bool
}

// PreReleaseHook runs after versions are written and before any build.
// Returning false vetoes the run.
type PreReleaseHook interface {
	PreRelease(ctx context.Context, rc *Context) bool
}

// PreJarReleaseHook runs with each built artifact before it is published.
// Returning false skips the module.
type PreJarReleaseHook interface {
	PreJarRelease(ctx context.Context, rc *Context, artifact *repository.Artifact) bool
}

// PostJarReleaseHook runs with the read-back copy of each published artifact.
type PostJarReleaseHook interface {
	PostJarRelease(ctx context.Context, rc *Context, artifact *repository.Artifact)
}

// PostReleaseHook runs exactly once per run.
type PostReleaseHook interface {
	PostRelease(ctx context.Context, rc *Context, success bool)
}

// Registry holds participants in registration order.
type Registry struct {
	participants []Participant
	logger       *slog.Logger
}

// NewRegistry returns a registry with the given participants.
func NewRegistry(participants ...Participant) *Registry {
	r := &Registry{logger: logging.NewNop()}
	for _, p := range participants {
		r.Register(p)
	}
	return r
}

// SetLogger routes hook diagnostics to logger.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	r.logger = logging.NewComponentLogger(logger, "participants")
}

// Register appends a participant. Nil participants are ignored.
func (r *Registry) Register(p Participant) {
	if p == nil {
		return
	}
	r.participants = append(r.participants, p)
}

// Participants returns the registered participants.
func (r *Registry) Participants() []Participant {
	return append([]Participant(nil), r.participants...)
}

// PreUpdateVersions asks every PreUpdateVersionsHook, stopping at the first veto.
func (r *Registry) PreUpdateVersions(ctx context.Context, rc *Context) bool {
	return r.ask(ctx, rc, "", "", func(p Participant) (bool, bool) {
		hook, ok := p.(PreUpdateVersionsHook)
		if !ok {
			return true, false
		}
		return hook.PreUpdateVersions(ctx, rc), true
	})
}

// PreRelease asks every PreReleaseHook, stopping at the first veto.
func (r *Registry) PreRelease(ctx context.Context, rc *Context) bool {
	return r.ask(ctx, rc, "", "", func(p Participant) (bool, bool) {
		hook, ok := p.(PreReleaseHook)
		if !ok {
			return true, false
		}
		return hook.PreRelease(ctx, rc), true
	})
}

// PreJarRelease asks every PreJarReleaseHook about artifact, stopping at the
// first veto.
func (r *Registry) PreJarRelease(ctx context.Context, rc *Context, artifact *repository.Artifact) bool {
	return r.ask(ctx, rc, artifact.Name, artifact.Version.String(), func(p Participant) (bool, bool) {
		hook, ok := p.(PreJarReleaseHook)
		if !ok {
			return true, false
		}
		return hook.PreJarRelease(ctx, rc, artifact), true
	})
}

// PostJarRelease notifies every PostJarReleaseHook.
func (r *Registry) PostJarRelease(ctx context.Context, rc *Context, artifact *repository.Artifact) {
	for _, p := range r.participants {
		if hook, ok := p.(PostJarReleaseHook); ok {
			hook.PostJarRelease(ctx, rc, artifact)
		}
	}
}

// PostRelease notifies every PostReleaseHook.
func (r *Registry) PostRelease(ctx context.Context, rc *Context, success bool) {
	for _, p := range r.participants {
		if hook, ok := p.(PostReleaseHook); ok {
			hook.PostRelease(ctx, rc, success)
		}
	}
}

// ask runs a pre hook across participants. A participant that vetoes without
// recording why gets a generic record so the report names it.
func (r *Registry) ask(ctx context.Context, rc *Context, module, version string, call func(Participant) (proceed, handled bool)) bool {
	for _, p := range r.participants {
		before := rc.ErrorCount()
		proceed, handled := call(p)
		if !handled || proceed {
			continue
		}
		if rc.ErrorCount() == before {
			rc.AddError(module, version, fmt.Sprintf("vetoed by %s", p.Name()))
		}
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "participant vetoed", "participant_veto",
			logging.String("participant", p.Name()),
			logging.String(logging.FieldImpact, "release stops at this phase"),
		)
		return false
	}
	return true
}
