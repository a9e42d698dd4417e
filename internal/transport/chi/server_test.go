package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/domain"
	dombuilding "github.com/citysnap/gateway/internal/domain/building"
	healthuc "github.com/citysnap/gateway/internal/usecase/health"
)

// --- Mocks ---

type mockBuildingService struct {
	result dombuilding.Result
	err    error
	panics bool
	calls  int
	last   dombuilding.Query
}

func (m *mockBuildingService) Build(_ context.Context, q dombuilding.Query) (dombuilding.Result, error) {
	m.calls++
	m.last = q
	if m.panics {
		panic("boom")
	}
	return m.result, m.err
}

type mockHealthService struct {
	report healthuc.Report
}

func (m *mockHealthService) Check(_ context.Context) healthuc.Report { return m.report }

// --- Helpers ---

func newTestRouter(t *testing.T, svc *mockBuildingService, cfg RouterConfig) http.Handler {
	t.Helper()
	health := &mockHealthService{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}}
	return NewRouter(NewServer(svc, health, zap.NewNop()), cfg, zap.NewNop())
}

func postInfo(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/building/info", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

// --- Tests ---

func TestBuildingInfo_Success(t *testing.T) {
	loc := domain.Coordinates{Lat: 55.7, Lon: 37.6}
	svc := &mockBuildingService{result: dombuilding.Result{
		Building: dombuilding.Info{
			Name:      dombuilding.Text("Pashkov House"),
			YearBuilt: dombuilding.Year(1786),
			Location:  &loc,
		},
		Sources: []string{dombuilding.SourceMapData},
	}}
	h := newTestRouter(t, svc, RouterConfig{})

	rec := postInfo(t, h, `{"address":"  Vozdvizhenka 3/5  "}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.last.Address != "Vozdvizhenka 3/5" {
		t.Errorf("address = %q", svc.last.Address)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := body["building"].(map[string]any)
	if b["name"] != "Pashkov House" {
		t.Errorf("name = %v", b["name"])
	}
	if b["year_built"] != float64(1786) {
		t.Errorf("year_built = %v", b["year_built"])
	}
	if v, ok := b["architect"]; !ok || v != nil {
		t.Errorf("architect should be null, got %v (present=%v)", v, ok)
	}
	location := b["location"].(map[string]any)
	if location["lat"] != 55.7 || location["lon"] != 37.6 {
		t.Errorf("location = %v", location)
	}
	sources := body["source"].([]any)
	if len(sources) != 1 || sources[0] != dombuilding.SourceMapData {
		t.Errorf("source = %v", sources)
	}
}

func TestBuildingInfo_EmptySourcesIsList(t *testing.T) {
	h := newTestRouter(t, &mockBuildingService{}, RouterConfig{})

	rec := postInfo(t, h, `{"coordinates":{"lat":1,"lon":2}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"source":[]`) {
		t.Errorf("expected empty source list, got %s", rec.Body.String())
	}
}

func TestBuildingInfo_CoordinatesForwarded(t *testing.T) {
	svc := &mockBuildingService{}
	h := newTestRouter(t, svc, RouterConfig{})

	rec := postInfo(t, h, `{"coordinates":{"lat":-33.8568,"lon":151.2153},"unknown":true}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.last.Coordinates == nil || svc.last.Coordinates.Lat != -33.8568 || svc.last.Coordinates.Lon != 151.2153 {
		t.Errorf("coordinates = %v", svc.last.Coordinates)
	}
}

func TestBuildingInfo_ImageDataURI(t *testing.T) {
	svc := &mockBuildingService{}
	h := newTestRouter(t, svc, RouterConfig{})

	rec := postInfo(t, h, `{"address":"x","image_base64":"data:image/png;base64,aGVsbG8="}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(svc.last.Image, []byte("hello")) {
		t.Errorf("image = %q", svc.last.Image)
	}
}

func TestBuildingInfo_RequestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"address":`, CodeBadRequest},
		{"invalid base64", `{"address":"x","image_base64":"%%%"}`, CodeValidationFailed},
		{"missing lon", `{"coordinates":{"lat":1}}`, CodeValidationFailed},
		{"lat out of range", `{"coordinates":{"lat":91,"lon":0}}`, CodeValidationFailed},
		{"lon out of range", `{"coordinates":{"lat":0,"lon":-181}}`, CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBuildingService{}
			h := newTestRouter(t, svc, RouterConfig{})

			rec := postInfo(t, h, tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := decodeError(t, rec).Code; got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
			if svc.calls != 0 {
				t.Errorf("service called %d times", svc.calls)
			}
		})
	}
}

func TestBuildingInfo_DomainErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domain.Validationf("either an address or coordinates are required"), http.StatusBadRequest, CodeValidationFailed},
		{"not found", domain.NotFoundf("no building matches the address"), http.StatusNotFound, CodeNotFound},
		{"upstream", domain.NewUpstreamError("nominatim", "geocode", 503, errors.New("secret detail")), http.StatusBadGateway, CodeUpstreamError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &mockBuildingService{err: tt.err}, RouterConfig{})

			rec := postInfo(t, h, `{"address":"x"}`)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			resp := decodeError(t, rec)
			if resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
			if strings.Contains(resp.Message, "secret detail") {
				t.Errorf("message leaks upstream cause: %q", resp.Message)
			}
		})
	}
}

func TestBuildingInfo_BodyTooLarge(t *testing.T) {
	svc := &mockBuildingService{}
	h := newTestRouter(t, svc, RouterConfig{MaxBodyBytes: 16})

	rec := postInfo(t, h, `{"address":"`+strings.Repeat("a", 64)+`"}`)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.calls != 0 {
		t.Errorf("service called %d times", svc.calls)
	}
}

func TestBuildingInfo_RateLimited(t *testing.T) {
	h := newTestRouter(t, &mockBuildingService{}, RouterConfig{RateLimitPerMinute: 1})

	if rec := postInfo(t, h, `{"address":"x"}`); rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}
	rec := postInfo(t, h, `{"address":"x"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != CodeRateLimited {
		t.Errorf("code = %q, want %q", got, CodeRateLimited)
	}
}

func TestBuildingInfo_PanicRecovered(t *testing.T) {
	h := newTestRouter(t, &mockBuildingService{panics: true}, RouterConfig{})

	rec := postInfo(t, h, `{"address":"x"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != CodeInternalError {
		t.Errorf("code = %q, want %q", got, CodeInternalError)
	}
}

func TestBuildingInfo_RequestIDHeader(t *testing.T) {
	h := newTestRouter(t, &mockBuildingService{}, RouterConfig{})

	rec := postInfo(t, h, `{"address":"x"}`)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		status healthuc.Status
		want   int
	}{
		{"healthy", healthuc.Healthy, http.StatusOK},
		{"degraded", healthuc.Degraded, http.StatusOK},
		{"unhealthy", healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			health := &mockHealthService{report: healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{healthuc.ComponentCache: healthuc.CheckOK},
			}}
			h := NewRouter(NewServer(&mockBuildingService{}, health, zap.NewNop()), RouterConfig{}, zap.NewNop())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tt.status) {
				t.Errorf("status = %q, want %q", resp.Status, tt.status)
			}
			if resp.Checks[healthuc.ComponentCache] != "ok" {
				t.Errorf("checks = %v", resp.Checks)
			}
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestRouter(t, &mockBuildingService{}, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != CodeNotFound {
		t.Errorf("code = %q, want %q", got, CodeNotFound)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, &mockBuildingService{}, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
