package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"meetflow/internal/pipeline"
	"meetflow/internal/services"
)

// maxTranscriptRunes bounds the prompt size; longer transcripts keep their
// opening and closing sections.
const maxTranscriptRunes = 120_000

// Analyzer implements pipeline.Analyzer with a chat completion client.
type Analyzer struct {
	client *Client
}

// NewAnalyzer wraps client.
func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

var _ pipeline.Analyzer = (*Analyzer)(nil)

// IsReady reports whether an API key is configured.
func (a *Analyzer) IsReady() bool {
	return a != nil && a.client.Configured()
}

type analysisPayload struct {
	CallType     string   `json:"call_type"`
	CustomerName string   `json:"customer_name"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	ActionItems  []item   `json:"action_items"`
	Components   []string `json:"components"`
	Gaps         []string `json:"gaps"`
	Diagram      string   `json:"diagram"`
}

type item struct {
	Owner string `json:"owner"`
	Text  string `json:"text"`
}

// Analyze sends the transcript to the model and maps the reply.
func (a *Analyzer) Analyze(ctx context.Context, transcript *pipeline.Transcript) (*pipeline.Analysis, error) {
	if transcript == nil {
		return nil, services.Wrap(services.ErrValidation, "analyze", "build prompt", "transcript required", nil)
	}
	content, err := a.client.CompleteJSON(ctx, TranscriptAnalysisPrompt, userPrompt(transcript))
	if err != nil {
		return nil, services.Wrap(services.ErrAnalysis, "analyze", "chat completion", "analyzer request failed", err)
	}
	var payload analysisPayload
	if err := DecodeLLMJSON(content, &payload); err != nil {
		return nil, services.Wrap(services.ErrAnalysis, "analyze", "decode analysis", "analyzer returned malformed JSON", err)
	}
	return payload.toAnalysis(), nil
}

func (p analysisPayload) toAnalysis() *pipeline.Analysis {
	analysis := &pipeline.Analysis{
		CallType:     pipeline.CallType(strings.TrimSpace(p.CallType)),
		CustomerName: strings.TrimSpace(p.CustomerName),
		Title:        strings.TrimSpace(p.Title),
		Summary:      strings.TrimSpace(p.Summary),
		Components:   compact(p.Components),
		Gaps:         compact(p.Gaps),
		Diagram:      stripCodeFence(p.Diagram),
	}
	for _, it := range p.ActionItems {
		if text := strings.TrimSpace(it.Text); text != "" {
			analysis.ActionItems = append(analysis.ActionItems, pipeline.ActionItem{Owner: strings.TrimSpace(it.Owner), Text: text})
		}
	}
	return analysis
}

func userPrompt(t *pipeline.Transcript) string {
	var b strings.Builder
	if title := strings.TrimSpace(t.Title); title != "" {
		fmt.Fprintf(&b, "Session title: %s\n", title)
	}
	if t.Date != nil {
		fmt.Fprintf(&b, "Session date: %s\n", t.Date.Format("2006-01-02"))
	}
	b.WriteString("Transcript:\n")
	b.WriteString(truncateMiddle(t.Text, maxTranscriptRunes))
	return b.String()
}

func truncateMiddle(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	half := limit / 2
	return string(runes[:half]) + "\n[... transcript truncated ...]\n" + string(runes[len(runes)-half:])
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
