package health

import "context"

// CachePinger checks lookup cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EnrichmentChecker checks enrichment provider availability.
type EnrichmentChecker interface {
	HealthCheck(ctx context.Context) error
}

// StoragePinger checks image storage availability.
type StoragePinger interface {
	Ping(ctx context.Context) error
}
