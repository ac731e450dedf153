package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"animforge/internal/config"
	"animforge/internal/pipeline"
	"animforge/internal/services"
	"animforge/internal/textutil"
)

const (
	userAgent        = "animforge/0.1.0"
	maxErrorSnippet  = 300
	defaultTimeout   = 10 * time.Second
	defaultTagPrefix = "animforge"
)

// Service defines the notification surface used by the CLI.
type Service interface {
	// Record announces a finished run. It satisfies pipeline.Recorder.
	Record(ctx context.Context, report pipeline.Report) error
	TestNotification(ctx context.Context) error
	Enabled() bool
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.NotifyOnSuccess,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
}

func (n *ntfyService) Enabled() bool { return true }

func (n *ntfyService) Record(ctx context.Context, report pipeline.Report) error {
	label := strings.TrimSpace(report.Label)
	if label == "" {
		label = report.RunID
	}

	if report.Succeeded() {
		if !n.onSuccess {
			return nil
		}
		message := fmt.Sprintf("✅ Rendered %s", label)
		if report.SceneID != "" {
			message = fmt.Sprintf("%s (%s)", message, report.SceneID)
		}
		message = fmt.Sprintf("%s\nFile: %s\nRepairs: %d", message, filepath.Base(report.ArtifactPath), report.RepairCalls)
		return n.send(ctx, payload{
			title:   "animforge - Render Complete",
			message: message,
			tags:    []string{defaultTagPrefix, "render", "completed"},
		})
	}

	stage := services.FailureStage(report.Err)
	return n.send(ctx, payload{
		title: "animforge - Render Failed",
		message: fmt.Sprintf("❌ %s failed at %s: %s", label, stage,
			textutil.Truncate(strings.TrimSpace(report.ErrorMessage()), maxErrorSnippet)),
		tags:     []string{defaultTagPrefix, "error", stage},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "animforge - Test",
		message:  "🧪 Notification system test",
		tags:     []string{defaultTagPrefix, "test"},
		priority: "low",
	})
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

func (noopService) Record(context.Context, pipeline.Report) error { return nil }
func (noopService) TestNotification(context.Context) error        { return nil }
func (noopService) Enabled() bool                                 { return false }
