// Package upstream is the shared HTTP plumbing for outbound provider calls.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/domain"
	"github.com/citysnap/gateway/internal/metrics"
)

// DefaultMaxBody caps the response body read from a provider.
const DefaultMaxBody = 4 << 20

// Config holds settings for one provider client.
type Config struct {
	Provider  string
	UserAgent string
	Timeout   time.Duration // per attempt; zero leaves it to the caller's context
	RetryMax  int
	Logger    *zap.Logger
}

// Client issues GET requests to a provider and records upstream metrics.
type Client struct {
	http      *retryablehttp.Client
	provider  string
	userAgent string
	maxBody   int64
	logger    *zap.Logger
}

// Response is a fully read provider response.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// New creates a provider client. Retries only happen when RetryMax > 0.
func New(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.HTTPClient.Timeout = cfg.Timeout
	// hand back the last response instead of a generic "giving up" error
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = newLeveledLogger(cfg.Logger)

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		http:      rc,
		provider:  cfg.Provider,
		userAgent: cfg.UserAgent,
		maxBody:   DefaultMaxBody,
		logger:    log.With(zap.String("provider", cfg.Provider)),
	}
}

// Provider returns the provider name used in errors and metrics.
func (c *Client) Provider() string { return c.provider }

// Get performs a GET and reads the body. Transport failures and oversized
// bodies are returned as *domain.UpstreamError; HTTP status handling is left
// to the caller.
func (c *Client) Get(ctx context.Context, op, rawURL string) (Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(c.provider, op, statusLabel(0, err), start)
		c.logger.Warn("Upstream request failed",
			zap.String("op", op),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return Response{}, domain.NewUpstreamError(c.provider, op, 0, err)
	}
	defer resp.Body.Close()

	body, err := readAllLimit(resp.Body, c.maxBody)
	metrics.ObserveUpstream(c.provider, op, statusLabel(resp.StatusCode, err), start)
	if err != nil {
		c.logger.Warn("Upstream response unreadable",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return Response{}, domain.NewUpstreamError(c.provider, op, resp.StatusCode, err)
	}

	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Info("Upstream call", fields...)
	} else {
		c.logger.Warn("Upstream returned non-success status", append(fields, zap.String("body", snippet(body)))...)
	}

	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// StatusError builds the upstream error for an unexpected status.
func (c *Client) StatusError(op string, resp Response) error {
	return domain.NewUpstreamError(c.provider, op, resp.StatusCode,
		fmt.Errorf("unexpected response: %s", snippet(resp.Body)))
}

// DecodeError builds the upstream error for an unparsable body.
func (c *Client) DecodeError(op string, resp Response, err error) error {
	return domain.NewUpstreamError(c.provider, op, resp.StatusCode, fmt.Errorf("invalid payload: %w", err))
}

var errPayloadTooLarge = errors.New("payload too large")

func readAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(b)) > limit {
		return nil, errPayloadTooLarge
	}
	return b, nil
}

func statusLabel(code int, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case err != nil:
		return "error"
	default:
		return strconv.Itoa(code)
	}
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
