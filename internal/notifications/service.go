package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"releasekit/internal/config"
)

const userAgent = "releasekit/0.1.0"

// Service defines the notification surface exposed to release participants.
type Service interface {
	NotifyReleaseCompleted(ctx context.Context, project string, released []string, duration time.Duration) error
	NotifyUpdateCompleted(ctx context.Context, project string, updated []string) error
	NotifyReleaseFailed(ctx context.Context, project, status string, errorCount int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

// Enabled reports whether svc delivers anything.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyReleaseCompleted(ctx context.Context, project string, released []string, duration time.Duration) error {
	project = strings.TrimSpace(project)
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var message string
	switch len(released) {
	case 0:
		message = fmt.Sprintf("%s: nothing released", project)
	case 1:
		message = fmt.Sprintf("%s: released %s in %s", project, released[0], duration)
	default:
		message = fmt.Sprintf("%s: released %d artifacts in %s\n%s", project, len(released), duration, strings.Join(released, "\n"))
	}
	data := payload{
		title:   "Release Complete",
		message: message,
		tags:    []string{"releasekit", "release", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUpdateCompleted(ctx context.Context, project string, updated []string) error {
	project = strings.TrimSpace(project)
	message := fmt.Sprintf("%s: no module versions changed", project)
	if len(updated) > 0 {
		message = fmt.Sprintf("%s: updated versions\n%s", project, strings.Join(updated, "\n"))
	}
	data := payload{
		title:   "Versions Updated",
		message: message,
		tags:    []string{"releasekit", "update"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReleaseFailed(ctx context.Context, project, status string, errorCount int) error {
	project = strings.TrimSpace(project)
	status = strings.TrimSpace(status)
	if status == "" {
		status = "failed"
	}
	noun := "errors"
	if errorCount == 1 {
		noun = "error"
	}
	data := payload{
		title:    "Release " + strings.ToUpper(status[:1]) + status[1:],
		message:  fmt.Sprintf("%s: release %s with %d %s", project, status, errorCount, noun),
		tags:     []string{"releasekit", "release", status},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Release Error",
		message:  builder.String(),
		tags:     []string{"releasekit", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "releasekit test",
		message:  "Notification system test",
		tags:     []string{"releasekit", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyReleaseCompleted(context.Context, string, []string, time.Duration) error {
	return nil
}
func (noopService) NotifyUpdateCompleted(context.Context, string, []string) error  { return nil }
func (noopService) NotifyReleaseFailed(context.Context, string, string, int) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error               { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
