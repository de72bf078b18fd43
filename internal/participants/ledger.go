package participants

import (
	"context"
	"log/slog"

	"releasekit/internal/history"
	"releasekit/internal/logging"
	"releasekit/internal/release"
	"releasekit/internal/repository"
)

// Ledger records each run in the history store. It never vetoes; ledger
// failures are logged and the release continues.
type Ledger struct {
	store  *history.Store
	logger *slog.Logger
	begun  bool
}

// NewLedger returns the history participant.
func NewLedger(store *history.Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Ledger{store: store, logger: logging.NewComponentLogger(logger, "history")}
}

// Name implements release.Participant.
func (l *Ledger) Name() string { return "history" }

// PreUpdateVersions opens the run row.
func (l *Ledger) PreUpdateVersions(ctx context.Context, rc *release.Context) bool {
	l.begin(ctx, rc)
	return true
}

// PostJarRelease records a released artifact.
func (l *Ledger) PostJarRelease(ctx context.Context, rc *release.Context, artifact *repository.Artifact) {
	if !l.begun || artifact == nil {
		return
	}
	err := l.store.RecordArtifact(ctx, rc.RunID(), history.Artifact{
		Name:    artifact.Name,
		Version: artifact.Version.String(),
		Digest:  artifact.Digest.String(),
		Size:    artifact.Size,
		Path:    artifact.Path,
	})
	if err != nil {
		l.warn(ctx, "record artifact failed", err)
	}
}

// PostRelease closes the run with its status and error records. A run vetoed
// before the ledger was asked is opened here first.
func (l *Ledger) PostRelease(ctx context.Context, rc *release.Context, _ bool) {
	if !l.begun {
		l.begin(ctx, rc)
		if !l.begun {
			return
		}
	}
	status := history.Status(rc.Status())
	if status == "" {
		status = history.StatusFailed
	}
	records := rc.Errors()
	entries := make([]history.ErrorEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, history.ErrorEntry{
			Phase:   rec.Phase.String(),
			Module:  rec.Module,
			Version: rec.Version,
			Message: rec.Message,
		})
	}
	if err := l.store.FinishRun(ctx, rc.RunID(), status, entries); err != nil {
		l.warn(ctx, "finish run failed", err)
	}
}

func (l *Ledger) begin(ctx context.Context, rc *release.Context) {
	run := history.Run{
		ID:      rc.RunID(),
		Project: rc.Project().Name,
		Mode:    "release",
	}
	if rc.UpdateOnly() {
		run.Mode = "update"
	}
	if repo := rc.Repository(); repo != nil && !rc.UpdateOnly() {
		run.Repository = repo.Name()
	}
	if err := l.store.BeginRun(ctx, run); err != nil {
		l.warn(ctx, "begin run failed", err)
		return
	}
	l.begun = true
}

func (l *Ledger) warn(ctx context.Context, msg string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, l.logger), msg, "history_write_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "run history is incomplete"),
	)
}
