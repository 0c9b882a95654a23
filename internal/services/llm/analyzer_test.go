package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"meetflow/internal/pipeline"
	"meetflow/internal/services"
)

func TestAnalyzerMapsResponse(t *testing.T) {
	reply := map[string]any{
		"call_type":     "technical",
		"customer_name": " Acme ",
		"title":         "Ingest design",
		"summary":       "Reviewed the pipeline.",
		"action_items": []any{
			map[string]any{"owner": "Dana", "text": "send sizing"},
			map[string]any{"owner": "Lee", "text": "  "},
		},
		"components": []any{"Kafka", " "},
		"diagram":    "```mermaid\ngraph TD; A-->B\n```",
	}
	encoded, _ := json.Marshal(reply)
	var prompt string
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Messages[1].Content
		writeChoice(t, w, map[string]any{"content": string(encoded)})
	})

	analyzer := NewAnalyzer(NewClient(Config{APIKey: "k", BaseURL: server.URL}))
	if !analyzer.IsReady() {
		t.Fatal("expected analyzer ready")
	}
	date := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	analysis, err := analyzer.Analyze(context.Background(), &pipeline.Transcript{
		SourceID: "s1", Title: "Weekly sync", Text: "hello there", Date: &date,
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !strings.Contains(prompt, "Session date: 2026-04-02") || !strings.Contains(prompt, "hello there") {
		t.Fatalf("unexpected user prompt %q", prompt)
	}
	if analysis.CallType != pipeline.CallTechnical || analysis.CustomerName != "Acme" {
		t.Fatalf("unexpected analysis %+v", analysis)
	}
	if len(analysis.ActionItems) != 1 || len(analysis.Components) != 1 {
		t.Fatalf("expected empty entries dropped, got %+v", analysis)
	}
	if analysis.Diagram != "graph TD; A-->B" {
		t.Fatalf("expected fences stripped, got %q", analysis.Diagram)
	}
}

func TestAnalyzerClassifiesFailures(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeChoice(t, w, map[string]any{"content": "not json at all"})
	})
	analyzer := NewAnalyzer(NewClient(Config{APIKey: "k", BaseURL: server.URL}))
	_, err := analyzer.Analyze(context.Background(), &pipeline.Transcript{Text: "x"})
	if !errors.Is(err, services.ErrAnalysis) {
		t.Fatalf("expected analysis error, got %v", err)
	}
	if NewAnalyzer(NewClient(Config{})).IsReady() {
		t.Fatal("expected analyzer without key to be unready")
	}
}

func TestTruncateMiddle(t *testing.T) {
	got := truncateMiddle(strings.Repeat("a", 10)+strings.Repeat("b", 10), 10)
	if !strings.HasPrefix(got, "aaaaa\n") || !strings.HasSuffix(got, "\nbbbbb") {
		t.Fatalf("unexpected truncation %q", got)
	}
}
