package releaserun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"releasekit/internal/build"
	"releasekit/internal/config"
	"releasekit/internal/diff"
	"releasekit/internal/history"
	"releasekit/internal/logging"
	"releasekit/internal/notifications"
	"releasekit/internal/participants"
	"releasekit/internal/propagate"
	"releasekit/internal/release"
	"releasekit/internal/repository"
	"releasekit/internal/services"
	"releasekit/internal/ui"
	"releasekit/internal/workspace"
)

// ErrLocked reports that another release of the same project holds the lock.
var ErrLocked = errors.New("another release of this project is already running")

// Options configures one release run.
type Options struct {
	ProjectDir string
	// DiffFile overrides release.diff_report and release.diff_command.
	DiffFile   string
	Repository string
	UpdateOnly bool
	// Overrides are "module=version" or "module/package=version" entries
	// applied before the operator sees the results.
	Overrides []string

	Surface ui.Surface
	// Logger defaults to logging.NewFromConfig.
	Logger *slog.Logger
	// Builder defaults to a build.CommandTrigger.
	Builder build.Trigger
}

// Result describes what happened. Outcome and Summary are zero when the
// operator cancelled at the confirmation step.
type Result struct {
	RunID   string
	Action  ui.Action
	Outcome release.Outcome
	Summary release.Summary
}

// Run performs one release. Pipeline failures are reported through the
// outcome; the error covers failures to start the pipeline and propagation
// failures.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Surface == nil {
		return nil, fmt.Errorf("ui surface is required")
	}

	ctx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.NewFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	project, err := workspace.Open(ctx, projectDir(opts.ProjectDir))
	if err != nil {
		return nil, err
	}

	lock := flock.New(cfg.LockPath(project.Name))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire release lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, project.Name)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger.Info("release run starting",
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldEventType, "release_run_started"),
		logging.String("project", project.Name),
		logging.String("root", project.Root),
		logging.Bool("update_only", opts.UpdateOnly),
	)

	builder := opts.Builder
	if builder == nil {
		builder = build.NewCommandTrigger(logger)
	}
	if err := fullBuild(ctx, builder, project, logger); err != nil {
		return nil, err
	}

	results, err := loadResults(ctx, cfg, project, opts)
	if err != nil {
		return nil, err
	}

	loop := ui.NewLoop(opts.Surface, logger)
	defer loop.Close()

	decision, err := loop.Confirm(ctx, ui.Request{
		Project:           project.Name,
		Results:           results,
		Repositories:      cfg.RepositoryNames(),
		DefaultRepository: firstNonEmpty(opts.Repository, cfg.Release.DefaultRepository),
		UpdateOnly:        opts.UpdateOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("confirm release: %w", err)
	}
	result := &Result{RunID: runID, Action: decision.Action}
	if decision.Action == ui.ActionCancel {
		logger.Info("release cancelled by operator",
			logging.String(logging.FieldEventType, "release_run_cancelled"),
		)
		return result, nil
	}

	results, err = diff.Apply(results, decision.Overrides)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "apply overrides", "invalid version override", err)
	}

	updateOnly := decision.Action == ui.ActionUpdateOnly
	var repoCfg *config.Repository
	var repo repository.Repository
	if !updateOnly {
		found, ok := cfg.Repository(decision.Repository)
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, "", "select repository",
				fmt.Sprintf("repository %q is not configured", decision.Repository), nil)
		}
		repoCfg = &found
		repo, err = OpenRepository(cfg, found)
		if err != nil {
			return nil, err
		}
	}

	rc, err := release.NewContext(project, results, repo, updateOnly)
	if err != nil {
		return nil, err
	}
	rc.SetRunID(runID)

	registry := release.NewRegistry()
	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			logger.Warn("history unavailable; run will not be recorded",
				logging.Error(err),
				logging.String(logging.FieldEventType, "history_open_failed"),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
				logging.String(logging.FieldImpact, "release history is incomplete"),
			)
		} else {
			defer store.Close()
			registry.Register(participants.NewLedger(store, logger))
		}
	}
	registry.Register(participants.NewPreflight(cfg, repoCfg, logger))
	if cfg.Git.Enabled {
		registry.Register(participants.NewGitTagger(cfg.Git, logger))
	}
	registry.Register(participants.NewNotifier(notifications.NewService(cfg), logger))

	orchestrator, err := release.NewOrchestrator(release.Options{
		Registry:   registry,
		Propagator: propagate.New(project, nil, logger),
		Builder:    builder,
		Presenter:  loop,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	outcome, runErr := orchestrator.Run(ctx, rc)
	result.Outcome = outcome
	result.Summary = release.NewSummary(rc, outcome)
	if err := loop.ShowSummary(context.WithoutCancel(ctx), result.Summary); err != nil {
		logger.Warn("summary display failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "summary_display_failed"),
		)
	}
	logger.Info("release run finished",
		logging.String(logging.FieldEventType, "release_run_finished"),
		logging.String("status", string(outcome.Status)),
		logging.Int("released", len(outcome.Released)),
		logging.Int("errors", len(outcome.Errors)),
		logging.Duration("duration", outcome.Duration),
	)
	return result, runErr
}

// Pending opens the project and loads the diff results a run would present,
// with opts.Overrides applied. No build is performed.
func Pending(ctx context.Context, cfg *config.Config, opts Options) (*workspace.Project, []diff.Result, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	project, err := workspace.Open(ctx, projectDir(opts.ProjectDir))
	if err != nil {
		return nil, nil, err
	}
	results, err := loadResults(ctx, cfg, project, opts)
	if err != nil {
		return nil, nil, err
	}
	return project, results, nil
}

func fullBuild(ctx context.Context, builder build.Trigger, project *workspace.Project, logger *slog.Logger) error {
	report, err := builder.FullBuild(ctx, project)
	if err != nil {
		return services.Wrap(services.ErrBuild, "", "full build", "full build could not run", err)
	}
	for _, warning := range report.Warnings {
		logger.Warn("full build warning",
			logging.String(logging.FieldEventType, "full_build_warning"),
			logging.String("message", warning),
		)
	}
	if !report.OK() {
		return services.Wrap(services.ErrBuild, "", "full build",
			fmt.Sprintf("full build failed: %s", strings.Join(report.Errors, "; ")), nil)
	}
	return nil
}

func loadResults(ctx context.Context, cfg *config.Config, project *workspace.Project, opts Options) ([]diff.Result, error) {
	source, err := diffSource(cfg, project, opts.DiffFile)
	if err != nil {
		return nil, err
	}
	results, err := source.Results(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "load diff", "diff report unavailable", err)
	}
	overrides := diff.Overrides{}
	for _, assignment := range opts.Overrides {
		if err := overrides.ParseAssignment(assignment); err != nil {
			return nil, services.Wrap(services.ErrValidation, "", "parse override", "invalid --set value", err)
		}
	}
	results, err = diff.Apply(results, overrides)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "apply overrides", "invalid version override", err)
	}
	return results, nil
}

func diffSource(cfg *config.Config, project *workspace.Project, file string) (diff.Source, error) {
	switch {
	case strings.TrimSpace(file) != "":
		return diff.FileSource{Path: file}, nil
	case cfg.Release.DiffReport != "":
		return diff.FileSource{Path: cfg.Release.DiffReport}, nil
	case len(cfg.Release.DiffCommand) > 0:
		return diff.CommandSource{Argv: cfg.Release.DiffCommand, Dir: project.Root}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "", "load diff",
			"no diff source: pass --diff or set release.diff_report or release.diff_command", nil)
	}
}

func projectDir(dir string) string {
	if strings.TrimSpace(dir) == "" {
		return "."
	}
	return dir
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
