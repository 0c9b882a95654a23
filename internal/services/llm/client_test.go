package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func completionServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return server
}

func writeChoice(t *testing.T, w http.ResponseWriter, message map[string]any) {
	t.Helper()
	payload := map[string]any{"choices": []any{map[string]any{"message": message}}}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func noSleep(time.Duration) {}

func TestClientHealthCheck(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "meetflow" {
			t.Errorf("unexpected title header %q", got)
		}
		writeChoice(t, w, map[string]any{"content": `{"ok":true}`})
	})

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", Title: "meetflow"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeChoice(t, w, map[string]any{"content": "```json\n{\"ok\":true}\n```"})
	})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	})
	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL}, WithSleeper(noSleep))
	err := client.HealthCheck(context.Background())
	if err == nil || !strings.Contains(err.Error(), "http 401") {
		t.Fatalf("expected 401 failure, got %v", err)
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	if client.Configured() {
		t.Fatal("expected unconfigured client")
	}
	if _, err := client.CompleteJSON(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected api key error")
	}
}

func TestClientToolCallArguments(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeChoice(t, w, map[string]any{
			"content": "",
			"tool_calls": []any{map[string]any{
				"function": map[string]any{"arguments": `{"ok":true}`},
			}},
		})
	})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	content, err := client.CompleteJSON(context.Background(), "sys", "user")
	if err != nil || content != `{"ok":true}` {
		t.Fatalf("unexpected content %q err=%v", content, err)
	}
}

func TestClientDeltaContent(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"delta":{"content":"{\"ok\":true}"}}]}`))
	})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls atomic.Int32
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeChoice(t, w, map[string]any{"content": `{"ok":true}`})
	})

	var slept []time.Duration
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if calls.Load() != 3 || len(slept) != 2 || slept[0] != time.Second {
		t.Fatalf("unexpected retry pattern: calls=%d slept=%v", calls.Load(), slept)
	}
}

func TestClientRetriesOnEmptyContentThenGivesUp(t *testing.T) {
	var calls atomic.Int32
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":""},"finish_reason":"length"}]}`))
	})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL},
		WithSleeper(noSleep), WithRetryMaxAttempts(3))
	_, err := client.CompleteJSON(context.Background(), "sys", "user")
	if err == nil || !strings.Contains(err.Error(), `finish_reason="length"`) {
		t.Fatalf("expected empty content error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestBackoffDelayIsCapped(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 5*time.Second))
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, expected := range want {
		if got := client.retry.delay(i + 1); got != expected {
			t.Fatalf("attempt %d: got %s, want %s", i+1, got, expected)
		}
	}
}

func TestDecodeLLMJSONStripsProse(t *testing.T) {
	var out struct {
		A int `json:"a"`
	}
	if err := DecodeLLMJSON("Sure! Here you go: {\"a\": 3} hope that helps", &out); err != nil || out.A != 3 {
		t.Fatalf("unexpected decode result %+v err=%v", out, err)
	}
	if err := DecodeLLMJSON("   ", &out); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestStripCodeFenceDropsInfoString(t *testing.T) {
	cases := map[string]string{
		"```mermaid\ngraph TD; A-->B\n```": "graph TD; A-->B",
		"```json\n{\"a\": 1}\n```":         `{"a": 1}`,
		"```\nsequenceDiagram\n```":        "sequenceDiagram",
		"```{\"a\": 1}```":                 `{"a": 1}`,
		"graph LR; X-->Y":                  "graph LR; X-->Y",
	}
	for in, want := range cases {
		if got := stripCodeFence(in); got != want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}
