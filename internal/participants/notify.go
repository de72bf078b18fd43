package participants

import (
	"context"
	"log/slog"
	"time"

	"releasekit/internal/logging"
	"releasekit/internal/notifications"
	"releasekit/internal/release"
)

// Notifier posts the run result to ntfy.
type Notifier struct {
	svc     notifications.Service
	logger  *slog.Logger
	started time.Time
}

// NewNotifier wraps svc as a participant.
func NewNotifier(svc notifications.Service, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Notifier{svc: svc, logger: logging.NewComponentLogger(logger, "notify")}
}

// Name implements release.Participant.
func (n *Notifier) Name() string { return "notify" }

// PreUpdateVersions marks the run start. It never vetoes.
func (n *Notifier) PreUpdateVersions(context.Context, *release.Context) bool {
	n.started = time.Now()
	return true
}

// PostRelease sends one message per run. Delivery failures are logged only.
func (n *Notifier) PostRelease(ctx context.Context, rc *release.Context, success bool) {
	if !notifications.Enabled(n.svc) {
		return
	}
	project := rc.Project().Name

	var err error
	switch {
	case success && rc.UpdateOnly():
		var updated []string
		for _, result := range rc.Results() {
			if _, ok := rc.Project().Module(result.Name); ok && result.Changed() {
				updated = append(updated, result.Name+"-"+result.SuggestedVersion.String())
			}
		}
		err = n.svc.NotifyUpdateCompleted(ctx, project, updated)
	case success:
		var released []string
		for _, artifact := range rc.Released() {
			released = append(released, artifact.String())
		}
		var elapsed time.Duration
		if !n.started.IsZero() {
			elapsed = time.Since(n.started)
		}
		err = n.svc.NotifyReleaseCompleted(ctx, project, released, elapsed)
	default:
		status := string(rc.Status())
		if status == "" {
			status = string(release.StatusFailed)
		}
		err = n.svc.NotifyReleaseFailed(ctx, project, status, rc.ErrorCount())
	}
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, n.logger), "release notification failed", "notify_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "release result is unaffected"),
		)
	}
}
