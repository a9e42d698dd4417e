package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/citysnap/gateway/internal/domain"
	"github.com/citysnap/gateway/internal/domain/building"
)

func str(s string) *string { return &s }

var kemerovo = domain.Coordinates{Lat: 55.3754026, Lon: 86.0725171}

// chatResponse mirrors the OpenAI-compatible chat completion response.
func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"model":   "test-model",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	}
}

func newTestEnricher(t *testing.T, handler http.HandlerFunc) *Enricher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewEnricher(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	})
}

func TestEnricher_Enrich(t *testing.T) {
	var gotReq struct {
		Model          string `json:"model"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	e := newTestEnricher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotReq); err != nil {
			t.Errorf("bad request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(
			`{"year": "built in 1960", "architect": "unknown", "history": " Drama theatre. ", "sources": ["wiki", ""]}`,
		))
	})

	partial := building.Info{Name: str("Kemerovo Drama Theatre")}
	got, err := e.Enrich(context.Background(), partial, kemerovo, building.Hint{HasPhoto: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := building.Info{
		Name:      str("Kemerovo Drama Theatre"),
		YearBuilt: building.Year(1960),
		History:   str("Drama theatre."),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("info mismatch (-want +got):\n%s", diff)
	}

	if gotReq.Model != "test-model" {
		t.Errorf("unexpected model %q", gotReq.Model)
	}
	if gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %q", gotReq.ResponseFormat.Type)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages %+v", gotReq.Messages)
	}
	user := gotReq.Messages[1].Content
	for _, want := range []string{"Address: Kemerovo Drama Theatre", "lat=55.375403", "name: Kemerovo Drama Theatre", "photo"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q:\n%s", want, user)
		}
	}
}

func TestEnricher_KeepsKnownFields(t *testing.T) {
	e := newTestEnricher(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse(
			`{"name": "Other", "year": 1950, "architect": "Someone", "history": "Text"}`,
		))
	})

	partial := building.Info{Name: str("House of Soviets"), Architect: str("Lev Rudnev")}
	got, err := e.Enrich(context.Background(), partial, kemerovo, building.Hint{Address: "Moskovsky 212"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got.Name != "House of Soviets" || *got.Architect != "Lev Rudnev" {
		t.Errorf("known fields overwritten: %+v", got)
	}
	if got.YearBuilt == nil || *got.YearBuilt != 1950 {
		t.Errorf("expected year 1950, got %v", got.YearBuilt)
	}
}

func TestEnricher_APIError(t *testing.T) {
	e := newTestEnricher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	})

	_, err := e.Enrich(context.Background(), building.Info{}, kemerovo, building.Hint{})
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if ue.StatusCode != http.StatusTooManyRequests || ue.Provider != "openai" {
		t.Errorf("unexpected upstream error %+v", ue)
	}
}

func TestEnricher_InvalidAnswer(t *testing.T) {
	e := newTestEnricher(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse(`I think it was built in 1960.`))
	})

	_, err := e.Enrich(context.Background(), building.Info{}, kemerovo, building.Hint{})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestEnricher_Disabled(t *testing.T) {
	e := NewEnricher(Config{Model: "test-model"})
	if e.Enabled() {
		t.Fatal("enricher without api key must be disabled")
	}

	partial := building.Info{YearBuilt: building.Year(1938)}
	got, err := e.Enrich(context.Background(), partial, kemerovo, building.Hint{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(partial, got); diff != "" {
		t.Errorf("disabled enricher must return input unchanged (-want +got):\n%s", diff)
	}
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Errorf("disabled health check must pass, got %v", err)
	}
}

func TestEnricher_HealthCheck(t *testing.T) {
	e := newTestEnricher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	})

	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseAPIError_DetailBody(t *testing.T) {
	body := []byte(`{"detail":"Model not found"}`)
	if got := extractDetail(body); got != "Model not found" {
		t.Errorf("extractDetail() = %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("expected empty detail, got %q", got)
	}
}
