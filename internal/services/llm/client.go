package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"meetflow/internal/config"
	"meetflow/internal/logging"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultTimeout = 15 * time.Second
)

// Config holds the chat-completions endpoint settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// ConfigFrom copies the [llm] section of the application config.
func ConfigFrom(cfg config.LLMConfig) Config {
	return Config(cfg)
}

func (c Config) normalized() Config {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.Model = strings.TrimSpace(c.Model)
	c.Referer = strings.TrimSpace(c.Referer)
	c.Title = strings.TrimSpace(c.Title)
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	return c
}

// Client issues JSON-mode chat completions with retry on transient failures.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	retry  backoff
}

// Option customizes the client.
type Option func(*Client)

// WithRetryMaxAttempts caps total attempts per call (default 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) { c.retry.attempts = attempts }
}

// WithRetryBackoff sets the first delay and the ceiling for doubling.
func WithRetryBackoff(base, ceiling time.Duration) Option {
	return func(c *Client) {
		c.retry.base = base
		c.retry.ceiling = ceiling
	}
}

// WithSleeper replaces the context-aware timer used between attempts.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *Client) { c.retry.sleep = sleep }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client; an empty BaseURL selects OpenRouter.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg:    cfg.normalized(),
		http:   &http.Client{Timeout: timeout},
		logger: logging.NewNop(),
		retry:  defaultBackoff(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// CompleteJSON sends one system and one user message and returns the JSON
// text the model produced.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	const op = "llm complete"
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" || userPrompt == "" {
		return "", fmt.Errorf("%s: system and user prompts are required", op)
	}
	if !c.Configured() {
		return "", fmt.Errorf("%s: api key required", op)
	}
	return c.complete(ctx, op, c.newRequest(systemPrompt, userPrompt))
}

// HealthCheck asks the model for a trivial JSON object to prove the key and
// model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	const op = "llm health"
	if !c.Configured() {
		return fmt.Errorf("%s: api key required", op)
	}
	content, err := c.complete(ctx, op, c.newRequest("Reply with JSON only.", `Reply with {"ok":true}`))
	if err != nil {
		return err
	}
	var reply struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &reply); err != nil {
		return fmt.Errorf("%s: parse reply: %w", op, err)
	}
	if !reply.OK {
		return errors.New(op + ": model did not confirm")
	}
	return nil
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) newRequest(systemPrompt, userPrompt string) chatRequest {
	return chatRequest{
		Model:          c.cfg.Model,
		Messages:       []chatMessage{{Role: "system", Content: systemPrompt}, {Role: "user", Content: userPrompt}},
		ResponseFormat: map[string]string{"type": "json_object"},
	}
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatChoice struct {
	Message chatReply `json:"message"`
	// streaming-shaped payloads from some providers
	Delta        chatReply `json:"delta"`
	Text         string    `json:"text"`
	FinishReason string    `json:"finish_reason"`
}

type chatReply struct {
	Content   string `json:"content"`
	Refusal   string `json:"refusal"`
	ToolCalls []struct {
		Function struct {
			Arguments string `json:"arguments"`
		} `json:"function"`
	} `json:"tool_calls"`
}

// text prefers message content and falls back to the first tool call's
// arguments.
func (r chatReply) text() string {
	if s := strings.TrimSpace(r.Content); s != "" {
		return s
	}
	for _, call := range r.ToolCalls {
		if s := strings.TrimSpace(call.Function.Arguments); s != "" {
			return s
		}
	}
	return ""
}

// firstContent scans choices for usable text. When none has any it reports
// the first finish reason and refusal it saw.
func (resp chatResponse) firstContent() (content, finishReason, refusal string) {
	for _, choice := range resp.Choices {
		for _, s := range []string{choice.Message.text(), choice.Delta.text(), strings.TrimSpace(choice.Text)} {
			if s != "" {
				return s, "", ""
			}
		}
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if refusal == "" {
			refusal = strings.TrimSpace(choice.Message.Refusal + choice.Delta.Refusal)
		}
	}
	return "", finishReason, refusal
}

// post performs a single HTTP round trip and decodes the completion. The raw
// body is returned alongside for error snippets.
func (c *Client) post(ctx context.Context, payload chatRequest) (chatResponse, []byte, error) {
	var out chatResponse
	body, err := json.Marshal(payload)
	if err != nil {
		return out, nil, fmt.Errorf("llm request: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return out, nil, fmt.Errorf("llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	for header, value := range map[string]string{"HTTP-Referer": c.cfg.Referer, "X-Title": c.cfg.Title} {
		if value != "" {
			req.Header.Set(header, value)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return out, nil, fmt.Errorf("llm request: %w (timeout %s)", err, c.http.Timeout)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, nil, fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= 300 {
		wait, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return out, raw, &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw)), RetryAfter: wait}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, raw, fmt.Errorf("llm request: decode response: %w", err)
	}
	if out.Error != nil {
		return out, raw, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(out.Error.Message))
	}
	return out, raw, nil
}
