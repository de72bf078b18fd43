package release

import (
	"context"
	"fmt"
	"log/slog"

	"releasekit/internal/build"
	"releasekit/internal/logging"
	"releasekit/internal/repository"
	"releasekit/internal/services"
	"releasekit/internal/version"
	"releasekit/internal/workspace"
)

// Releaser builds, publishes and verifies one module.
type Releaser struct {
	builder  build.Trigger
	registry *Registry
	logger   *slog.Logger
}

// NewReleaser returns a releaser using builder and the registry's hooks.
func NewReleaser(builder build.Trigger, registry *Registry, logger *slog.Logger) *Releaser {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Releaser{builder: builder, registry: registry, logger: logger}
}

// Release runs BUILD, PRE_JAR_RELEASE, PUBLISH and POST_JAR_RELEASE for
// module. It returns true only when the artifact was published and read back.
func (r *Releaser) Release(ctx context.Context, rc *Context, module workspace.Module) bool {
	ctx = services.WithModule(ctx, module.Name)

	artifact, ok := r.build(ctx, rc, module)
	if !ok {
		return false
	}

	rc.SetPhase(PhasePreJarRelease)
	if !r.registry.PreJarRelease(services.WithPhase(ctx, PhasePreJarRelease.String()), rc, artifact) {
		return false
	}

	released, ok := r.publish(services.WithPhase(ctx, PhasePublish.String()), rc, artifact)
	if !ok {
		return false
	}
	rc.AddReleased(*released)

	rc.SetPhase(PhasePostJarRelease)
	r.registry.PostJarRelease(services.WithPhase(ctx, PhasePostJarRelease.String()), rc, released)
	return true
}

func (r *Releaser) build(ctx context.Context, rc *Context, module workspace.Module) (*repository.Artifact, bool) {
	rc.SetPhase(PhaseBuild)
	ctx = services.WithPhase(ctx, PhaseBuild.String())
	logger := logging.WithContext(ctx, r.logger)

	artifact, report := r.builder.BuildModule(ctx, rc.Project(), module)
	if report != nil {
		for _, warning := range report.Warnings {
			logging.WarnWithContext(logger, "build warning", "build_warning",
				logging.String("warning", warning),
			)
		}
	}
	if artifact != nil && report.OK() {
		return artifact, true
	}

	name, ver := r.identity(rc, module, artifact)
	if ctx.Err() != nil {
		logger.Info("module build interrupted",
			logging.String(logging.FieldEventType, "build_interrupted"),
			logging.String(logging.FieldVersion, ver),
		)
		return nil, false
	}
	if report.OK() {
		rc.AddError(name, ver, "build produced no artifact")
	} else {
		for _, message := range report.Errors {
			rc.AddError(name, ver, message)
		}
	}
	logging.ErrorWithContext(logger, "module build failed", "build_failed",
		logging.String(logging.FieldVersion, ver),
		logging.Error(services.Wrap(services.ErrBuild, PhaseBuild.String(), "build module", name, nil)),
		logging.String(logging.FieldErrorHint, "fix the reported build errors and rerun the release"),
	)
	return nil, false
}

// identity names a failed build: the artifact's identity when one was
// produced, otherwise the module name and the diff's suggested version.
func (r *Releaser) identity(rc *Context, module workspace.Module, artifact *repository.Artifact) (string, string) {
	if artifact != nil {
		return artifact.Name, artifact.Version.String()
	}
	if result, ok := rc.Result(module.Name); ok {
		return module.Name, result.SuggestedVersion.String()
	}
	if module.Version != nil {
		return module.Name, module.Version.String()
	}
	return module.Name, ""
}

func (r *Releaser) publish(ctx context.Context, rc *Context, artifact *repository.Artifact) (*repository.Artifact, bool) {
	rc.SetPhase(PhasePublish)
	logger := logging.WithContext(ctx, r.logger)
	name, ver := artifact.Name, artifact.Version.String()
	repo := rc.Repository()

	locator, err := repo.Put(ctx, artifact)
	if err != nil {
		r.publishFailed(ctx, logger, rc, name, ver, fmt.Sprintf("publish to %s failed: %v", repo.Name(), err), err)
		return nil, false
	}

	released, err := repo.Get(ctx, name, version.Exact(artifact.Version), repository.StrategyHighest)
	switch {
	case err != nil:
		r.publishFailed(ctx, logger, rc, name, ver, fmt.Sprintf("read-back from %s failed: %v", repo.Name(), err), err)
		return nil, false
	case !released.Exists():
		r.publishFailed(ctx, logger, rc, name, ver, fmt.Sprintf("read-back from %s returned no file", repo.Name()), nil)
		return nil, false
	}

	logger.Info("module released",
		logging.String(logging.FieldEventType, "module_released"),
		logging.String(logging.FieldVersion, ver),
		logging.String("repository", repo.Name()),
		logging.String("locator", locator),
		logging.String("digest", released.Digest.String()),
	)
	return released, true
}

// publishFailed records a publish error unless the run was cancelled, in which
// case the interrupted transfer is only logged.
func (r *Releaser) publishFailed(ctx context.Context, logger *slog.Logger, rc *Context, name, ver, message string, cause error) {
	if ctx.Err() != nil {
		logger.Info("module publish interrupted",
			logging.String(logging.FieldEventType, "publish_interrupted"),
			logging.String(logging.FieldVersion, ver),
			logging.Error(cause),
		)
		return
	}
	rc.AddError(name, ver, message)
	logging.ErrorWithContext(logger, "module publish failed", "publish_failed",
		logging.String(logging.FieldVersion, ver),
		logging.Error(services.Wrap(services.ErrPublish, PhasePublish.String(), "publish module", name, cause)),
		logging.String(logging.FieldErrorHint, "check repository connectivity and permissions"),
	)
}
