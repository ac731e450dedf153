package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"animforge/internal/config"
	"animforge/internal/notifications"
	"animforge/internal/pipeline"
	"animforge/internal/services"
)

type capture struct {
	mu       sync.Mutex
	calls    int
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T, c *capture) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		c.mu.Lock()
		c.calls++
		c.title = r.Header.Get("Title")
		c.tags = r.Header.Get("Tags")
		c.priority = r.Header.Get("Priority")
		c.body = string(body)
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(config.Notifications{})
	if svc.Enabled() {
		t.Fatal("expected disabled service without topic")
	}
	if err := svc.Record(context.Background(), pipeline.Report{}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestRecordAnnouncesSuccess(t *testing.T) {
	var got capture
	server := newNtfyServer(t, &got)
	svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL, NotifyOnSuccess: true})

	report := pipeline.Report{
		RunID:        "run-1",
		Label:        "intro.py",
		SceneID:      "Intro",
		ArtifactPath: "/videos/anim_1/720p30/Intro.mp4",
		RepairCalls:  2,
	}
	if err := svc.Record(context.Background(), report); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got.title != "animforge - Render Complete" {
		t.Fatalf("unexpected title %q", got.title)
	}
	if got.body != "✅ Rendered intro.py (Intro)\nFile: Intro.mp4\nRepairs: 2" {
		t.Fatalf("unexpected body %q", got.body)
	}
	if got.tags != "animforge,render,completed" || got.priority != "" {
		t.Fatalf("unexpected tags/priority %q/%q", got.tags, got.priority)
	}
}

func TestRecordAnnouncesFailure(t *testing.T) {
	var got capture
	server := newNtfyServer(t, &got)
	svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL})

	report := pipeline.Report{
		RunID: "run-2",
		Err:   services.Wrap(services.ErrTrialRender, "trial_render", "render fix loop", "render-fix budget exhausted", nil),
	}
	if err := svc.Record(context.Background(), report); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got.title != "animforge - Render Failed" || got.priority != "high" {
		t.Fatalf("unexpected title/priority %q/%q", got.title, got.priority)
	}
	if !strings.HasPrefix(got.body, "❌ run-2 failed at trial_render: ") {
		t.Fatalf("unexpected body %q", got.body)
	}
	if got.tags != "animforge,error,trial_render" {
		t.Fatalf("unexpected tags %q", got.tags)
	}
}

func TestRecordSkipsSuccessWhenDisabled(t *testing.T) {
	var got capture
	server := newNtfyServer(t, &got)
	svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL, NotifyOnSuccess: false})

	if err := svc.Record(context.Background(), pipeline.Report{RunID: "r", ArtifactPath: "/a.mp4"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got.calls != 0 {
		t.Fatalf("expected no push for success, got %d", got.calls)
	}
}

func TestSendReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL})
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
