package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentCache      = "cache"
	ComponentEnrichment = "enrichment"
	ComponentStorage    = "storage"
)

const defaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	cache      CachePinger
	enrichment EnrichmentChecker
	storage    StoragePinger
	timeout    time.Duration
}

// New creates a Service. Every dependency is optional; nil ones are not reported.
func New(cache CachePinger, enrichment EnrichmentChecker, storage StoragePinger) *Service {
	return &Service{cache: cache, enrichment: enrichment, storage: storage, timeout: defaultCheckTimeout}
}

// WithTimeout sets the per-check timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.cache != nil {
		checks[ComponentCache] = s.run(ctx, ComponentCache, s.cache.Ping)
	}
	if s.enrichment != nil {
		checks[ComponentEnrichment] = s.run(ctx, ComponentEnrichment, s.enrichment.HealthCheck)
	}
	if s.storage != nil {
		checks[ComponentStorage] = s.run(ctx, ComponentStorage, s.storage.Ping)
	}

	return Report{Status: aggregate(checks), Checks: checks}
}

func (s *Service) run(ctx context.Context, component string, check func(context.Context) error) CheckResult {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := check(cctx); err != nil {
		logger.FromContext(ctx).Warn("Health check failed",
			zap.String("component", component),
			zap.Error(err),
		)
		return CheckError
	}
	return CheckOK
}

func aggregate(checks map[string]CheckResult) Status {
	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}
	switch {
	case failed == 0:
		return Healthy
	case failed == len(checks):
		return Unhealthy
	default:
		return Degraded
	}
}
