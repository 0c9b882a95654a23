package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"meetflow/internal/config"
)

const userAgent = "meetflow/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventQueueDrained Event = "queue_drained"
	EventTest         Event = "test"
)

// Payload carries event fields. Values are rendered with %v.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobCompleted:
		body := fmt.Sprintf("✅ Processed: %s", payload.text("title"))
		if summary := payload.text("summary"); summary != "" {
			body += "\n" + summary
		}
		return message{
			title: "meetflow - Session Processed",
			body:  body,
			tags:  []string{"meetflow", "job", "completed"},
		}, true
	case EventJobFailed:
		return message{
			title:    "meetflow - Session Failed",
			body:     fmt.Sprintf("❌ Failed: %s\n%s", payload.text("title"), payload.text("error")),
			tags:     []string{"meetflow", "job", "failed"},
			priority: "high",
		}, true
	case EventQueueDrained:
		completed, _ := payload["completed"].(int)
		failed, _ := payload["failed"].(int)
		duration, _ := payload["duration"].(time.Duration)
		duration = max(duration.Round(time.Second), 0)
		title := "meetflow - Queue Complete"
		body := fmt.Sprintf("Queue processing complete: %d sessions processed in %s", completed, duration)
		if failed > 0 {
			title = "meetflow - Queue Complete (with errors)"
			body = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", completed, failed, duration)
		}
		return message{title: title, body: body, tags: []string{"meetflow", "queue", "completed"}}, true
	case EventTest:
		return message{
			title:    "meetflow - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"meetflow", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (p Payload) text(key string) string {
	if v, ok := p[key]; ok && v != nil {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
