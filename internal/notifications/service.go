package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"albumsync/internal/config"
)

const userAgent = "albumsync/0.1.0"

// RunReport is the subset of a run summary worth pushing to a phone.
type RunReport struct {
	DryRun              bool
	Synced              int
	Recovered           int
	Outstanding         int
	SkippedDestinations int
	Duration            time.Duration
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, report RunReport) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		runSummary: cfg.Notifications.RunSummary,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	runSummary bool
	errors     bool
}

// NotifyRunCompleted skips dry runs and runs that transferred nothing and
// left nothing outstanding.
func (n *ntfyService) NotifyRunCompleted(ctx context.Context, report RunReport) error {
	if !n.runSummary || report.DryRun {
		return nil
	}
	transferred := report.Synced + report.Recovered
	if transferred == 0 && report.Outstanding == 0 {
		return nil
	}

	duration := report.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	data := payload{
		title:   "albumsync - Sync Complete",
		message: fmt.Sprintf("Synced %d items in %s", transferred, duration),
		tags:    []string{"albumsync", "sync", "completed"},
	}
	if report.Recovered > 0 {
		data.message += fmt.Sprintf(" (%d recovered from iCloud)", report.Recovered)
	}
	if report.Outstanding > 0 || report.SkippedDestinations > 0 {
		data.title = "albumsync - Sync Complete (with errors)"
		data.message += fmt.Sprintf("\n%d items outstanding, %d destinations skipped; rerun to retry", report.Outstanding, report.SkippedDestinations)
		data.tags = []string{"albumsync", "sync", "warning"}
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "albumsync - Error",
		message:  builder.String(),
		tags:     []string{"albumsync", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "albumsync - Test",
		message:  "Notification system test",
		tags:     []string{"albumsync", "test"},
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

func (noopService) NotifyRunCompleted(context.Context, RunReport) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error    { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
