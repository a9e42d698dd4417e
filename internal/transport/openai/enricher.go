// Package openai fills missing building facts through an OpenAI-compatible chat completion API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/domain"
	"github.com/citysnap/gateway/internal/domain/building"
	"github.com/citysnap/gateway/internal/metrics"
)

const opChat = "chat"

// Config holds the enrichment provider settings. An empty APIKey yields a disabled enricher.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Enricher asks an LLM for the year, architect and history of a building.
// The zero-credential variant is a no-op.
type Enricher struct {
	client      *openai.Client // nil when disabled
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewEnricher creates an enricher. Without an API key the result is disabled.
func NewEnricher(cfg Config) *Enricher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Enricher{model: cfg.Model, temperature: cfg.Temperature, logger: logger}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return e
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	e.client = openai.NewClientWithConfig(clientCfg)
	return e
}

// Enabled reports whether a provider is configured.
func (e *Enricher) Enabled() bool { return e.client != nil }

// Enrich returns partial with the fields the model could determine filled in.
// Fields already present in partial are kept as they are.
func (e *Enricher) Enrich(
	ctx context.Context, partial building.Info, location domain.Coordinates, hint building.Hint,
) (building.Info, error) {
	if !e.Enabled() {
		return partial, nil
	}

	req := openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		Messages:    buildMessages(partial, location, hint),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		apiErr := parseAPIError(err)
		metrics.ObserveUpstream(metrics.ProviderOpenAI, opChat, "error", start)
		return partial, apiErr
	}
	metrics.ObserveUpstream(metrics.ProviderOpenAI, opChat, "200", start)

	if len(resp.Choices) == 0 {
		return partial, domain.NewUpstreamError(metrics.ProviderOpenAI, opChat, 0, errors.New("empty completion"))
	}

	found, err := parseAnswer(resp.Choices[0].Message.Content)
	if err != nil {
		return partial, domain.NewUpstreamError(metrics.ProviderOpenAI, opChat, 0, err)
	}

	e.logger.Debug("Enrichment answer received",
		zap.String("model", e.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Strings("sources", found.sources),
	)

	merged, _ := building.FillMissing(partial, found.info)
	return merged, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Enricher) HealthCheck(ctx context.Context) error {
	if !e.Enabled() {
		return nil
	}
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", parseAPIError(err))
	}
	return nil
}

// parseAPIError converts a client error into an upstream error carrying the HTTP status.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return domain.NewUpstreamError(metrics.ProviderOpenAI, opChat, reqErr.HTTPStatusCode, errors.New(detail))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewUpstreamError(metrics.ProviderOpenAI, opChat, apiErr.HTTPStatusCode, errors.New(apiErr.Message))
	}

	return domain.NewUpstreamError(metrics.ProviderOpenAI, opChat, 0, err)
}

// extractDetail extracts the "detail" field some OpenAI-compatible gateways use for errors.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
