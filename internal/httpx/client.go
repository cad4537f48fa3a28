package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 4 << 20

// Policy controls retry behavior for one call site. All retryable conditions
// (429, 5xx, transport failures) share the same attempt budget.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(status int, err error) bool
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Retryable:   DefaultRetryable,
	}
}

// DefaultRetryable retries transport failures, 429 and 5xx. Other 4xx are
// permanent: retrying will not fix a bad request or missing permission.
func DefaultRetryable(status int, err error) bool {
	if err != nil {
		return true
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500
}

type APIError struct {
	Status int
	Body   string
	Hint   string
}

func (e *APIError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("API error (%d): %s", e.Status, e.Hint)
	}
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

var ErrMaxRetries = errors.New("max retries exceeded")

// Client wraps outbound vendor calls with a retry policy, an optional
// outbound rate limiter and an optional circuit breaker. Zero value is not
// usable; construct with New.
type Client struct {
	HTTP    *http.Client
	Policy  Policy
	Limiter *rate.Limiter
	Breaker *gobreaker.CircuitBreaker[*http.Response]
	Logger  *zap.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(httpClient *http.Client, policy Policy, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if policy.MaxAttempts <= 0 {
		policy = DefaultPolicy()
	}
	if policy.Retryable == nil {
		policy.Retryable = DefaultRetryable
	}
	return &Client{
		HTTP:   httpClient,
		Policy: policy,
		Logger: logger,
		sleep:  sleepCtx,
	}
}

// WithRateLimit caps outbound requests per second across all calls sharing
// this client.
func (c *Client) WithRateLimit(rps float64) *Client {
	if rps > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return c
}

// WithBreaker trips after consecutive failures so a dead vendor endpoint
// fails fast instead of burning the retry budget on every entity.
func (c *Client) WithBreaker(name string) *Client {
	c.Breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    name,
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return c
}

// Do performs the request with retries. On 429 the Retry-After hint drives
// the wait; 5xx and transport failures use exponential backoff
// (base * 2^attempt). The response body is only returned for the final,
// non-retried response.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.Policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}

		resp, err := c.execute(req.WithContext(ctx))
		c.logAttempt(req, resp, attempt, err)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, err
			}
			lastErr = err
			if attempt == c.Policy.MaxAttempts-1 || !c.Policy.Retryable(0, err) {
				break
			}
			if serr := c.sleep(ctx, c.backoff(attempt)); serr != nil {
				return nil, serr
			}
			continue
		}

		if !c.Policy.Retryable(resp.StatusCode, nil) {
			return resp, nil
		}

		// Retryable status: capture the body for diagnostics, then retry.
		body := readBody(resp)
		lastErr = &APIError{Status: resp.StatusCode, Body: body}
		if attempt == c.Policy.MaxAttempts-1 {
			break
		}
		delay := c.backoff(attempt)
		if resp.StatusCode == http.StatusTooManyRequests {
			if hinted := retryAfter(resp); hinted > 0 {
				delay = hinted
			}
		}
		if serr := c.sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}
	if lastErr == nil {
		lastErr = ErrMaxRetries
	}
	return nil, fmt.Errorf("request to %s failed after %d attempts: %w", req.URL.Path, c.Policy.MaxAttempts, lastErr)
}

// DoJSON performs the request and decodes a JSON body into out. A successful
// transport status with a non-JSON content type (typically an HTML error
// page) is converted into a descriptive APIError instead of a decode failure.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "json") {
		return &APIError{
			Status: resp.StatusCode,
			Body:   snippet(body),
			Hint:   nonJSONHint(resp.StatusCode, contentType),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) execute(req *http.Request) (*http.Response, error) {
	if c.Breaker != nil {
		return c.Breaker.Execute(func() (*http.Response, error) {
			return c.HTTP.Do(req)
		})
	}
	return c.HTTP.Do(req)
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.Policy.BaseDelay * time.Duration(1<<uint(attempt))
	if c.Policy.MaxDelay > 0 && delay > c.Policy.MaxDelay {
		delay = c.Policy.MaxDelay
	}
	return delay
}

func (c *Client) logAttempt(req *http.Request, resp *http.Response, attempt int, err error) {
	if c.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Int("attempt", attempt+1),
	}
	if err != nil {
		c.Logger.Debug("vendor request failed", append(fields, zap.Error(err))...)
		return
	}
	c.Logger.Debug("vendor request", append(fields, zap.Int("status", resp.StatusCode))...)
}

func retryAfter(resp *http.Response) time.Duration {
	raw := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

func nonJSONHint(status int, contentType string) string {
	switch {
	case status == http.StatusOK:
		return fmt.Sprintf("expected JSON, got %s; the API may not be enabled for this project or the quota is exhausted", contentType)
	case status == http.StatusForbidden:
		return "got a non-JSON 403; check API access and quota for this project"
	default:
		return fmt.Sprintf("expected JSON, got %s (HTTP %d)", contentType, status)
	}
}

func readBody(resp *http.Response) string {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return ""
	}
	return snippet(body)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
