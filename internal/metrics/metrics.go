// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "citysnap"

// Upstream providers, used as the "provider" label.
const (
	ProviderNominatim     = "nominatim"
	ProviderOpenStreetMap = "openstreetmap"
	ProviderOpenAI        = "openai"
	ProviderImageStorage  = "image-storage"
)

// Enrichment outcomes.
const (
	EnrichmentApplied = "applied" // at least one field filled
	EnrichmentEmpty   = "empty"   // provider answered, nothing usable
	EnrichmentFailed  = "failed"
	EnrichmentSkipped = "skipped" // map data already complete or no enricher configured
)

var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of requests to upstream providers",
		},
		[]string{"provider", "operation", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)

	EnrichmentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_total",
			Help:      "Enrichment attempts by outcome",
		},
		[]string{"outcome"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      "Lookup cache hits and misses",
		},
		[]string{"cache", "result"}, // result: "hit" / "miss"
	)
)

var registerOnce sync.Once

// Register registers all gateway collectors with the default registry. Must be called from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			UpstreamRequestsTotal,
			UpstreamRequestDuration,
			EnrichmentTotal,
			CacheTotal,
		)
	})
}

// ObserveUpstream records one upstream call. status is "ok" or an error class.
func ObserveUpstream(provider, operation, status string, started time.Time) {
	UpstreamRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	UpstreamRequestDuration.WithLabelValues(provider, operation).Observe(time.Since(started).Seconds())
}
