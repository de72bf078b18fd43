package release

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"releasekit/internal/build"
	"releasekit/internal/diff"
	"releasekit/internal/logging"
	"releasekit/internal/propagate"
	"releasekit/internal/repository"
	"releasekit/internal/services"
)

// Status is the final state of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusVetoed    Status = "vetoed"
	StatusCancelled Status = "cancelled"
)

// Outcome summarizes a finished run.
type Outcome struct {
	Status   Status
	Success  bool
	Phase    Phase
	Released []repository.Artifact
	Errors   []ErrorRecord
	Updated  []propagate.Update
	Duration time.Duration
}

// Propagator writes confirmed versions into the project.
type Propagator interface {
	Propagate(ctx context.Context, results []diff.Result) ([]propagate.Update, error)
}

// Presenter shows the end-of-run error report.
type Presenter interface {
	ShowErrors(ctx context.Context, project string, phase Phase, records []ErrorRecord)
}

// Options wires an Orchestrator.
type Options struct {
	Registry   *Registry
	Propagator Propagator
	Builder    build.Trigger
	Presenter  Presenter
	Logger     *slog.Logger
}

// Orchestrator runs the release pipeline.
type Orchestrator struct {
	registry   *Registry
	propagator Propagator
	releaser   *Releaser
	presenter  Presenter
	logger     *slog.Logger
}

// NewOrchestrator validates opts and returns an orchestrator.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Propagator == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "orchestrator", "propagator is required", nil)
	}
	if opts.Builder == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "orchestrator", "build trigger is required", nil)
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "release")
	opts.Registry.SetLogger(logger)
	return &Orchestrator{
		registry:   opts.Registry,
		propagator: opts.Propagator,
		releaser:   NewReleaser(opts.Builder, opts.Registry, logger),
		presenter:  opts.Presenter,
		logger:     logger,
	}, nil
}

// Run executes the pipeline against rc. Only propagation failures are
// returned as errors (wrapping services.ErrPropagation); every other failure
// is recorded on rc and reflected in the outcome.
func (o *Orchestrator) Run(ctx context.Context, rc *Context) (Outcome, error) {
	started := time.Now()
	ctx = services.WithRunID(ctx, rc.RunID())
	project := rc.Project()
	outcome := Outcome{}

	finish := func(status Status, success bool) Outcome {
		lastPhase := rc.Phase()
		rc.SetPhase(PhasePostRelease)
		rc.setStatus(status)
		// Post hooks run even when the run was cancelled.
		hookCtx := services.WithPhase(context.WithoutCancel(ctx), PhasePostRelease.String())
		o.registry.PostRelease(hookCtx, rc, success)

		outcome.Status = status
		outcome.Success = success
		outcome.Phase = lastPhase
		outcome.Released = rc.Released()
		outcome.Errors = rc.Errors()
		outcome.Duration = time.Since(started)
		if len(outcome.Errors) > 0 && o.presenter != nil {
			o.presenter.ShowErrors(hookCtx, project.Name, lastPhase, outcome.Errors)
		}
		o.logger.Info("release finished",
			logging.String(logging.FieldEventType, "release_complete"),
			logging.String(logging.FieldRunID, rc.RunID()),
			logging.String("status", string(status)),
			logging.Int("released", len(outcome.Released)),
			logging.Int("errors", len(outcome.Errors)),
			logging.Duration("duration", outcome.Duration),
		)
		return outcome
	}

	o.logger.Info("release started",
		logging.String(logging.FieldEventType, "release_start"),
		logging.String(logging.FieldRunID, rc.RunID()),
		logging.String("project", project.Name),
		logging.Int("modules", len(rc.Results())),
		logging.Bool("update_only", rc.UpdateOnly()),
	)

	cancelled := func() (Outcome, bool) {
		err := ctx.Err()
		if err == nil {
			return Outcome{}, false
		}
		o.logger.Warn("release cancelled",
			logging.String(logging.FieldEventType, "release_cancelled"),
			logging.String("phase", rc.Phase().String()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "remaining modules are not released; published modules stay published"),
		)
		return finish(StatusCancelled, false), true
	}

	rc.SetPhase(PhasePreUpdateVersions)
	if !o.registry.PreUpdateVersions(services.WithPhase(ctx, PhasePreUpdateVersions.String()), rc) {
		return finish(StatusVetoed, false), nil
	}
	if out, ok := cancelled(); ok {
		return out, nil
	}

	rc.SetPhase(PhaseUpdateVersions)
	phaseCtx := services.WithPhase(ctx, PhaseUpdateVersions.String())
	updates, err := o.propagator.Propagate(phaseCtx, rc.Results())
	outcome.Updated = updates
	if err == nil {
		err = project.Reload(phaseCtx)
	}
	if err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil) {
		if out, ok := cancelled(); ok {
			return out, nil
		}
	}
	if err != nil {
		wrapped := services.Wrap(services.ErrPropagation, PhaseUpdateVersions.String(), "update versions", "", err)
		rc.AddError("", "", err.Error())
		logging.ErrorWithContext(logging.WithContext(phaseCtx, o.logger), "version propagation failed", "propagation_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the descriptor or marker file and rerun the release"),
		)
		return finish(StatusFailed, false), wrapped
	}

	rc.SetPhase(PhasePreRelease)
	if !o.registry.PreRelease(services.WithPhase(ctx, PhasePreRelease.String()), rc) {
		return finish(StatusVetoed, false), nil
	}
	if out, ok := cancelled(); ok {
		return out, nil
	}

	if rc.UpdateOnly() {
		return finish(StatusSucceeded, true), nil
	}

	success := true
	for _, result := range rc.Results() {
		if out, ok := cancelled(); ok {
			return out, nil
		}
		module, ok := project.Module(result.Name)
		if !ok {
			o.logger.Info("nothing to release",
				logging.String(logging.FieldModule, result.Name),
			)
			continue
		}
		if !o.releaser.Release(ctx, rc, module) {
			success = false
		}
	}
	if out, ok := cancelled(); ok {
		return out, nil
	}
	if success {
		return finish(StatusSucceeded, true), nil
	}
	return finish(StatusFailed, false), nil
}

// IsPropagationFailure reports whether err came from the UPDATE_VERSIONS phase.
func IsPropagationFailure(err error) bool {
	return errors.Is(err, services.ErrPropagation)
}
