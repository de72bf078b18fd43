package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"releasekit/internal/config"
	"releasekit/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if notifications.Enabled(svc) {
		t.Fatal("expected noop service without topic")
	}
	if err := svc.NotifyReleaseFailed(context.Background(), "acme", "failed", 2); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "release single artifact",
			send: func(svc notifications.Service) error {
				return svc.NotifyReleaseCompleted(context.Background(), "acme", []string{"com.acme.core-1.1.0"}, 61*time.Second)
			},
			expectTitle:   "Release Complete",
			expectMessage: "acme: released com.acme.core-1.1.0 in 1m1s",
			expectTags:    "releasekit,release,completed",
		},
		{
			name: "release several artifacts",
			send: func(svc notifications.Service) error {
				return svc.NotifyReleaseCompleted(context.Background(), "acme", []string{"a-1.0.0", "b-2.0.0"}, 2*time.Second)
			},
			expectTitle:   "Release Complete",
			expectMessage: "acme: released 2 artifacts in 2s\na-1.0.0\nb-2.0.0",
			expectTags:    "releasekit,release,completed",
		},
		{
			name: "update only",
			send: func(svc notifications.Service) error {
				return svc.NotifyUpdateCompleted(context.Background(), "acme", []string{"a-1.1.0"})
			},
			expectTitle:   "Versions Updated",
			expectMessage: "acme: updated versions\na-1.1.0",
			expectTags:    "releasekit,update",
		},
		{
			name: "vetoed",
			send: func(svc notifications.Service) error {
				return svc.NotifyReleaseFailed(context.Background(), "acme", "vetoed", 1)
			},
			expectTitle:    "Release Vetoed",
			expectMessage:  "acme: release vetoed with 1 error",
			expectTags:     "releasekit,release,vetoed",
			expectPriority: "high",
		},
		{
			name: "error",
			send: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("descriptor uses a macro"), "propagation")
			},
			expectTitle:    "Release Error",
			expectMessage:  "Error with propagation: descriptor uses a macro",
			expectTags:     "releasekit,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for forbidden topic")
	}
}
