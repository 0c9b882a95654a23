package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meetflow/internal/api"
	"meetflow/internal/config"
)

// ErrUnavailable reports that no daemon is listening.
var ErrUnavailable = errors.New("daemon API unavailable")

// ErrUnauthorized reports a rejected or missing API token.
var ErrUnauthorized = errors.New("daemon API rejected credentials")

const defaultTimeout = 30 * time.Second

// Client is a thin JSON client for the daemon API.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	stream *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithHTTPClient replaces the transport used for regular requests and log
// streaming.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
			c.stream = hc
		}
	}
}

// New builds a client for bind, which may be host:port or a full URL.
func New(bind string, opts ...Option) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, fmt.Errorf("api bind address is empty")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	c := &Client{
		base: base,
		http: &http.Client{Timeout: defaultTimeout},
		// Follow mode blocks until events arrive or the caller cancels.
		stream: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FromConfig builds a client for the configured bind address and token.
func FromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	opts = append([]Option{WithToken(cfg.Paths.APIToken)}, opts...)
	return New(cfg.Paths.APIBind, opts...)
}

// BaseURL returns the daemon address the client targets.
func (c *Client) BaseURL() string {
	if c == nil || c.base == nil {
		return ""
	}
	return c.base.String()
}

// IsUnavailable reports whether err means the daemon could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, c.http, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, c.http, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, body, out any) error {
	if c == nil || c.base == nil {
		return ErrUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload api.ErrorResponse
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		payload = api.ErrorResponse{Error: msg}
	}
	if resp.StatusCode == http.StatusUnauthorized || payload.Code == api.CodeUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, payload.Error)
	}
	if payload.Code == "" {
		return fmt.Errorf("api returned status %d: %s", resp.StatusCode, payload.Error)
	}
	return api.CodeError(payload.Code, payload.Error)
}
