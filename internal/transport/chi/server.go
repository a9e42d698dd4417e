package chi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/domain"
	dombuilding "github.com/citysnap/gateway/internal/domain/building"
	healthuc "github.com/citysnap/gateway/internal/usecase/health"
)

// BuildingService answers building lookups.
type BuildingService interface {
	Build(ctx context.Context, q dombuilding.Query) (dombuilding.Result, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers of the gateway API.
type Server struct {
	buildings     BuildingService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(buildings BuildingService, health HealthService, logger *zap.Logger) *Server {
	return &Server{
		buildings: buildings,
		health:    health,
		logger:    logger,
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
			sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
			sentinelHandler(domain.ErrUpstream, http.StatusBadGateway, CodeUpstreamError),
		},
	}
}

// BuildingInfo handles POST /api/v1/building/info.
func (s *Server) BuildingInfo(w http.ResponseWriter, r *http.Request) {
	var req BuildingInfoRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	q, err := req.toQuery()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	res, err := s.buildings.Build(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, responseFromResult(res))
}

// HealthCheck handles GET /api/v1/health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	render.Status(r, status)
	render.JSON(w, r, HealthResponse{Status: string(report.Status), Checks: checks})
}
