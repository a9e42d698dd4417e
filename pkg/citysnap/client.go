package citysnap

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	buildingInfoPath = "/api/v1/building/info"
	healthPath       = "/api/v1/health"

	maxResponseBytes = 4 << 20
)

// Client talks to a CitySnap gateway over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *retryablehttp.Client
	userAgent string
	obs       *observer
}

// New creates a Client for the gateway at baseURL (for example "http://localhost:8080").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("citysnap: invalid base URL %q", baseURL)
	}

	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	rc := retryablehttp.NewClient()
	if cfg.httpClient != nil {
		rc.HTTPClient = cfg.httpClient
	} else {
		rc.HTTPClient.Timeout = cfg.timeout
	}
	rc.RetryMax = cfg.retryMax
	rc.RetryWaitMin = cfg.retryWaitMin
	rc.RetryWaitMax = cfg.retryWaitMax
	rc.CheckRetry = retryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	// *slog.Logger satisfies retryablehttp.LeveledLogger
	rc.Logger = nil
	if cfg.logger != nil {
		rc.Logger = cfg.logger
	}

	return &Client{
		baseURL:   strings.TrimRight(u.String(), "/"),
		http:      rc,
		userAgent: cfg.userAgent,
		obs:       obs,
	}, nil
}

// BuildingInfo looks up a building. Errors wrap ErrValidation, ErrNotFound or
// ErrUpstream; gateway answers are available as *APIError.
func (c *Client) BuildingInfo(ctx context.Context, q Query) (res *Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("building_info", start, err) }()

	body := buildingInfoRequest{
		Address:     strings.TrimSpace(q.Address),
		Coordinates: q.Coordinates,
	}
	if len(q.Image) > 0 {
		body.ImageBase64 = base64.StdEncoding.EncodeToString(q.Image)
	}
	if body.Address == "" && body.Coordinates == nil {
		return nil, fmt.Errorf("citysnap: %w: address or coordinates required", ErrValidation)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("citysnap: encode request: %w", err)
	}

	var out Result
	if err := c.do(ctx, http.MethodPost, buildingInfoPath, payload, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the gateway health report. An unhealthy gateway (503)
// still yields a report with Status "error" and a nil error.
func (c *Client) Health(ctx context.Context) (hs HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	if err := c.do(ctx, http.MethodGet, healthPath, nil, &hs, http.StatusOK, http.StatusServiceUnavailable); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any, okStatuses ...int) error {
	var raw any
	if body != nil {
		raw = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, raw)
	if err != nil {
		return fmt.Errorf("citysnap: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("citysnap: %s %s: %w: %w", method, path, ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("citysnap: read response: %w: %w", ErrUpstream, err)
	}

	for _, s := range okStatuses {
		if resp.StatusCode == s {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("citysnap: decode response: %w", err)
			}
			return nil
		}
	}
	return newAPIError(resp.StatusCode, data)
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Code != "" {
		apiErr.Code = er.Code
		apiErr.Message = er.Message
		return apiErr
	}
	apiErr.Code = http.StatusText(status)
	apiErr.Message = strings.TrimSpace(string(bytes.ToValidUTF8(body, nil)))
	return apiErr
}

// retryPolicy retries transport errors and 5xx answers except 501.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented {
		return true, nil
	}
	return false, nil
}
