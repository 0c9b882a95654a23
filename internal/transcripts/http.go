package transcripts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meetflow/internal/pipeline"
	"meetflow/internal/services"
)

const (
	defaultTimeout  = 60 * time.Second
	maxResponseSize = 16 << 20
)

// HTTPDoer describes the HTTP client used by HTTPSource.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource fetches transcripts from a transcript service.
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

// HTTPOption customizes an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithTimeout replaces the default client with one using timeout.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		if timeout > 0 {
			s.client = &http.Client{Timeout: timeout}
		}
	}
}

// WithClient overrides the HTTP client.
func WithClient(client HTTPDoer) HTTPOption {
	return func(s *HTTPSource) {
		if client != nil {
			s.client = client
		}
	}
}

// NewHTTPSource constructs an HTTP-backed source. apiKey is sent as a bearer
// token when non-empty.
func NewHTTPSource(baseURL, apiKey string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Source = (*HTTPSource)(nil)

// IsReady reports whether a base URL is configured.
func (s *HTTPSource) IsReady() bool {
	return s != nil && s.baseURL != ""
}

// Describe returns the configured base URL.
func (s *HTTPSource) Describe() string {
	return s.baseURL
}

type transcriptPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Date  string `json:"date"`
}

// Fetch retrieves one transcript.
func (s *HTTPSource) Fetch(ctx context.Context, sourceID string) (*pipeline.Transcript, error) {
	sourceID, err := validateSourceID(sourceID)
	if err != nil {
		return nil, err
	}
	resp, err := s.get(ctx, "/transcripts/"+url.PathEscape(sourceID))
	if err != nil {
		return nil, services.Wrap(services.ErrUpstreamFetch, "fetch", "GET transcript", "transcript service unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, services.Wrap(services.ErrUpstreamFetch, "fetch", "read transcript", "transcript response truncated", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrUpstreamFetch, "fetch", "GET transcript",
			fmt.Sprintf("transcript %q not found", sourceID), services.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, services.Wrap(services.ErrConfiguration, "fetch", "GET transcript",
			"transcript service rejected the api key", fmt.Errorf("http %d", resp.StatusCode))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, services.Wrap(services.ErrTransient, "fetch", "GET transcript",
			"transcript service error", fmt.Errorf("http %d: %s", resp.StatusCode, snippet(body)))
	case resp.StatusCode >= http.StatusMultipleChoices:
		return nil, services.Wrap(services.ErrUpstreamFetch, "fetch", "GET transcript",
			"unexpected transcript response", fmt.Errorf("http %d: %s", resp.StatusCode, snippet(body)))
	}

	transcript := &pipeline.Transcript{SourceID: sourceID}
	if isJSON(resp.Header.Get("Content-Type")) {
		var payload transcriptPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, services.Wrap(services.ErrUpstreamFetch, "fetch", "decode transcript", "malformed transcript payload", err)
		}
		transcript.Title = strings.TrimSpace(payload.Title)
		transcript.Text = payload.Text
		transcript.Date = parseDate(payload.Date)
	} else {
		transcript.Text = string(body)
	}
	return transcript, nil
}

// Ping verifies the service answers and accepts the api key.
func (s *HTTPSource) Ping(ctx context.Context) error {
	if !s.IsReady() {
		return errors.New("transcript base url not configured")
	}
	resp, err := s.get(ctx, "/transcripts?limit=1")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("auth failed (%d)", resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("service error (%d)", resp.StatusCode)
	}
	return nil
}

func (s *HTTPSource) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build transcript request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	return s.client.Do(req)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"))
}

func snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		return text[:200] + "..."
	}
	return text
}
