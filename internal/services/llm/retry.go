package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"meetflow/internal/logging"
)

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, e.Body)
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Op, e.FinishReason, e.Refusal, e.Snippet)
}

// backoff doubles from base up to ceiling between attempts.
type backoff struct {
	attempts int
	base     time.Duration
	ceiling  time.Duration
	// sleep replaces the timer in tests.
	sleep func(time.Duration)
}

func defaultBackoff() backoff {
	return backoff{attempts: 5, base: time.Second, ceiling: 10 * time.Second}
}

func (b backoff) maxAttempts() int { return max(b.attempts, 1) }

// delay returns the wait before retrying after the given attempt (1-based).
func (b backoff) delay(attempt int) time.Duration {
	if b.base <= 0 {
		return 0
	}
	d := b.base
	for i := 1; i < attempt && d < b.limit(); i++ {
		d *= 2
	}
	return b.clamp(d)
}

func (b backoff) limit() time.Duration {
	if b.ceiling > 0 {
		return b.ceiling
	}
	return defaultBackoff().ceiling
}

func (b backoff) clamp(d time.Duration) time.Duration {
	return min(max(d, 0), b.limit())
}

// wait blocks for d or until ctx ends.
func (b backoff) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
	}
	if b.sleep != nil {
		b.sleep(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// next decides whether err is worth another attempt and how long to wait.
// Rate limits honour Retry-After.
func (b backoff) next(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= b.maxAttempts() || ctx.Err() != nil {
		return 0, false
	}
	var (
		empty  *emptyContentError
		status *httpStatusError
		netErr net.Error
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 0, false
	case errors.As(err, &empty):
		return b.delay(attempt), true
	case errors.As(err, &status):
		if !retryableStatus(status.StatusCode) {
			return 0, false
		}
		if status.RetryAfter > 0 {
			return b.clamp(status.RetryAfter), true
		}
		return b.delay(attempt), true
	case errors.As(err, &netErr) && netErr.Timeout():
		return b.delay(attempt), true
	}
	return 0, false
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

func (c *Client) complete(ctx context.Context, op string, payload chatRequest) (string, error) {
	for attempt := 1; ; attempt++ {
		content, err := c.attempt(ctx, op, payload)
		if err == nil {
			return content, nil
		}
		wait, retry := c.retry.next(ctx, err, attempt)
		if !retry {
			if attempt > 1 {
				return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
			}
			return "", err
		}
		c.logger.Debug("llm request retry",
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Duration("delay", wait),
			logging.Error(err),
		)
		if err := c.retry.wait(ctx, wait); err != nil {
			return "", err
		}
	}
}

func (c *Client) attempt(ctx context.Context, op string, payload chatRequest) (string, error) {
	resp, raw, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	content, finishReason, refusal := resp.firstContent()
	switch {
	case content != "":
		return content, nil
	case len(resp.Choices) == 0:
		return "", fmt.Errorf("%s: empty choices", op)
	}
	return "", &emptyContentError{
		Op:           op,
		FinishReason: finishReason,
		Refusal:      refusal,
		Snippet:      summarizePayloadSnippet(string(raw)),
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, seconds >= 0
	}
	when, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	d := time.Until(when)
	return d, d > 0
}
