package participants

import (
	"context"
	"fmt"
	"log/slog"

	"releasekit/internal/config"
	"releasekit/internal/logging"
	"releasekit/internal/preflight"
	"releasekit/internal/release"
)

// Preflight vetoes a run whose directories, build tool or repository are not
// usable.
type Preflight struct {
	cfg    *config.Config
	repo   *config.Repository
	logger *slog.Logger
}

// NewPreflight returns the readiness participant. repo may be nil for
// update-only runs.
func NewPreflight(cfg *config.Config, repo *config.Repository, logger *slog.Logger) *Preflight {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Preflight{cfg: cfg, repo: repo, logger: logging.NewComponentLogger(logger, "preflight")}
}

// Name implements release.Participant.
func (p *Preflight) Name() string { return "preflight" }

// PreUpdateVersions runs the checks and records every failure in one table.
func (p *Preflight) PreUpdateVersions(ctx context.Context, rc *release.Context) bool {
	results := preflight.RunAll(ctx, p.cfg, preflight.Target{
		Project:    rc.Project(),
		Repository: p.repo,
		UpdateOnly: rc.UpdateOnly(),
	})
	failed := preflight.Failed(results)
	logger := logging.WithContext(ctx, p.logger)
	if len(failed) == 0 {
		logger.Debug("preflight passed", logging.Int("checks", len(results)))
		return true
	}

	rows := make([][]string, 0, len(failed))
	for _, r := range failed {
		rows = append(rows, []string{r.Name, r.Detail})
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "fix permissions or configuration and rerun"),
		)
	}
	noun := "checks"
	if len(failed) == 1 {
		noun = "check"
	}
	rc.AddErrorTable("", "", fmt.Sprintf("%d preflight %s failed", len(failed), noun), []string{"Check", "Detail"}, rows)
	return false
}
