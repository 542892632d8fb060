package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"albumsync/internal/config"
	"albumsync/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		captured []capturedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		mu.Lock()
		captured = append(captured, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), captured...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), notifications.RunReport{Synced: 3}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop test notification to return nil, got %v", err)
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
			name: "clean run",
			send: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), notifications.RunReport{Synced: 4, Duration: 61 * time.Second})
			},
			expectTitle:   "albumsync - Sync Complete",
			expectMessage: "Synced 4 items in 1m1s",
			expectTags:    "albumsync,sync,completed",
		},
		{
			name: "run with recovery and leftovers",
			send: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), notifications.RunReport{
					Synced:              2,
					Recovered:           1,
					Outstanding:         5,
					SkippedDestinations: 1,
					Duration:            2 * time.Second,
				})
			},
			expectTitle:   "albumsync - Sync Complete (with errors)",
			expectMessage: "Synced 3 items in 2s (1 recovered from iCloud)\n5 items outstanding, 1 destinations skipped; rerun to retry",
			expectTags:    "albumsync,sync,warning",
		},
		{
			name: "error",
			send: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("ledger is read-only"), "sync")
			},
			expectTitle:    "albumsync - Error",
			expectMessage:  "Error during sync: ledger is read-only",
			expectTags:     "albumsync,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(svc notifications.Service) error { return svc.TestNotification(context.Background()) },
			expectTitle:    "albumsync - Test",
			expectMessage:  "Notification system test",
			expectTags:     "albumsync,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, requests := newNtfyServer(t)

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			got := requests()
			if len(got) != 1 {
				t.Fatalf("expected 1 request, got %d", len(got))
			}
			if got[0].title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got[0].title)
			}
			if got[0].body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got[0].body)
			}
			if got[0].tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got[0].tags)
			}
			if got[0].priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got[0].priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server, requests := newNtfyServer(t)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	if err := svc.NotifyRunCompleted(ctx, notifications.RunReport{DryRun: true, Synced: 3}); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if err := svc.NotifyRunCompleted(ctx, notifications.RunReport{}); err != nil {
		t.Fatalf("empty run: %v", err)
	}

	cfg.Notifications.Errors = false
	cfg.Notifications.RunSummary = false
	svc = notifications.NewService(&cfg)
	if err := svc.NotifyError(ctx, errors.New("boom"), "sync"); err != nil {
		t.Fatalf("disabled errors: %v", err)
	}
	if err := svc.NotifyRunCompleted(ctx, notifications.RunReport{Synced: 1}); err != nil {
		t.Fatalf("disabled summary: %v", err)
	}

	if got := requests(); len(got) != 0 {
		t.Fatalf("expected no requests, got %+v", got)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic reserved", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
