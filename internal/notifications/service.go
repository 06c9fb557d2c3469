// Package notifications pushes editor events to ntfy when a topic is
// configured. Without one, a noop implementation is returned so callers
// never branch on configuration.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"subcue/internal/config"
)

const userAgent = "subcue/0.1.0"

// Service defines the notification surface exposed to the editor daemon.
type Service interface {
	NotifySaveFailed(ctx context.Context, jobID string, err error) error
	NotifyImportCompleted(ctx context.Context, jobID, title string, cueCount int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		saveErrors: cfg.Notifications.SaveErrors,
		imports:    cfg.Notifications.Imports,
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
	saveErrors bool
	imports    bool
}

func (n *ntfyService) NotifySaveFailed(ctx context.Context, jobID string, err error) error {
	if !n.saveErrors {
		return nil
	}
	data := payload{
		title:    "subcue - Save Failed",
		message:  fmt.Sprintf("Autosave for project %s failed: %v\nEdits are kept in memory and will retry.", jobID, err),
		tags:     []string{"subcue", "save", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyImportCompleted(ctx context.Context, jobID, title string, cueCount int) error {
	if !n.imports {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = jobID
	}
	data := payload{
		title:   "subcue - Import Complete",
		message: fmt.Sprintf("Imported %s (%d cues)", title, cueCount),
		tags:    []string{"subcue", "import", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "subcue - Test",
		message:  "Notification system test",
		tags:     []string{"subcue", "test"},
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

// NewNop returns a Service that discards every notification.
func NewNop() Service {
	return noopService{}
}

type noopService struct{}

func (noopService) NotifySaveFailed(context.Context, string, error) error            { return nil }
func (noopService) NotifyImportCompleted(context.Context, string, string, int) error { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
