package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dubber/internal/config"
)

const userAgent = "Dubber-Go/0.1.0"

// Service defines the notification surface exposed to the workflow.
type Service interface {
	NotifyJobStarted(ctx context.Context, jobID int64, source string, languages []string) error
	NotifyLanguageCompleted(ctx context.Context, jobID int64, lang, finalFile string) error
	NotifyJobCompleted(ctx context.Context, jobID int64, source string, languages int, duration time.Duration) error
	NotifyJobFailed(ctx context.Context, jobID int64, source, reason string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.Topic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// NewNtfyService builds an ntfy notifier against an explicit endpoint.
// Intended for tests and tooling that bypass full configuration.
func NewNtfyService(endpoint string, client *http.Client) Service {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ntfyService{endpoint: endpoint, client: client}
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

func (n *ntfyService) NotifyJobStarted(ctx context.Context, jobID int64, source string, languages []string) error {
	source = strings.TrimSpace(source)
	data := payload{
		title:   "Dubber - Job Started",
		message: fmt.Sprintf("Started dubbing job #%d: %s -> %s", jobID, source, strings.Join(languages, ", ")),
		tags:    []string{"dubber", "job", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyLanguageCompleted(ctx context.Context, jobID int64, lang, finalFile string) error {
	lang = strings.TrimSpace(lang)
	finalFile = strings.TrimSpace(finalFile)
	message := fmt.Sprintf("Language %s complete for job #%d", lang, jobID)
	if finalFile != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, finalFile)
	}
	data := payload{
		title:   "Dubber - Language Complete",
		message: message,
		tags:    []string{"dubber", "language", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobID int64, source string, languages int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title:    "Dubber - Job Complete",
		message:  fmt.Sprintf("✅ Job #%d complete: %s dubbed into %d language(s) in %s", jobID, strings.TrimSpace(source), languages, duration),
		tags:     []string{"dubber", "job", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID int64, source, reason string) error {
	source = strings.TrimSpace(source)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	data := payload{
		title:    "Dubber - Job Failed",
		message:  fmt.Sprintf("❌ Job #%d failed (%s): %s", jobID, source, reason),
		tags:     []string{"dubber", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Dubber - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"dubber", "test"},
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

func (noopService) NotifyJobStarted(context.Context, int64, string, []string) error { return nil }
func (noopService) NotifyLanguageCompleted(context.Context, int64, string, string) error {
	return nil
}
func (noopService) NotifyJobCompleted(context.Context, int64, string, int, time.Duration) error {
	return nil
}
func (noopService) NotifyJobFailed(context.Context, int64, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
