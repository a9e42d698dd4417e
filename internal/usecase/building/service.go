package building

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/citysnap/gateway/internal/domain"
	dombuilding "github.com/citysnap/gateway/internal/domain/building"
	"github.com/citysnap/gateway/internal/logger"
	"github.com/citysnap/gateway/internal/metrics"
)

// Fallback provider names for collaborator errors that carry no classification.
const (
	providerGeocoding    = "geocoding"
	providerMapData      = "map-data"
	providerImageStorage = metrics.ProviderImageStorage
)

// Timeouts bound each external call. Zero disables the limit for that call.
type Timeouts struct {
	Geocoding  time.Duration
	MapData    time.Duration
	Enrichment time.Duration
	ImageStore time.Duration
}

// DefaultTimeouts returns the per-call limits used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Geocoding:  10 * time.Second,
		MapData:    10 * time.Second,
		Enrichment: 30 * time.Second,
		ImageStore: 10 * time.Second,
	}
}

// Service resolves a building from a query and aggregates its description.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	geo      Geocoder
	maps     MapData
	enricher Enricher
	images   ImageStore
	timeouts Timeouts
}

// New creates a building service. images may be nil when uploads are not supported.
func New(geo Geocoder, maps MapData, enricher Enricher, images ImageStore) *Service {
	return &Service{
		geo:      geo,
		maps:     maps,
		enricher: enricher,
		images:   images,
		timeouts: DefaultTimeouts(),
	}
}

// WithTimeouts overrides the per-call limits.
func (s *Service) WithTimeouts(t Timeouts) *Service {
	s.timeouts = t
	return s
}

// Build answers a query. Every returned error wraps exactly one of
// domain.ErrValidation, domain.ErrNotFound or domain.ErrUpstream.
func (s *Service) Build(ctx context.Context, q dombuilding.Query) (dombuilding.Result, error) {
	if err := q.Validate(); err != nil {
		return dombuilding.Result{}, err
	}
	if q.HasImage() && s.images == nil {
		return dombuilding.Result{}, domain.Validationf("image uploads are not supported")
	}

	ctx = logger.WithFields(ctx, queryFields(q)...)
	g, gctx := errgroup.WithContext(ctx)

	var imagePath string
	if q.HasImage() {
		g.Go(func() error {
			path, err := s.storeImage(gctx, q.Image)
			if err != nil {
				return err
			}
			imagePath = path
			return nil
		})
	}

	var result dombuilding.Result
	g.Go(func() error {
		r, err := s.describe(gctx, q)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	err := g.Wait()
	if err == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = domain.NewUpstreamError("request", "build", 0, ctxErr)
		}
	}
	if err != nil {
		if imagePath != "" {
			s.discardImage(ctx, imagePath)
		}
		return dombuilding.Result{}, err
	}

	if imagePath != "" {
		result.Building.ImagePath = &imagePath
	}
	return result, nil
}

// describe runs the sequential part: resolve identity, fetch map data, enrich.
func (s *Service) describe(ctx context.Context, q dombuilding.Query) (dombuilding.Result, error) {
	id, location, err := s.resolve(ctx, q)
	if err != nil {
		return dombuilding.Result{}, err
	}
	ctx = logger.WithFields(ctx, zap.Stringer("building_id", id))

	info, err := s.fetch(ctx, id)
	if err != nil {
		return dombuilding.Result{}, err
	}
	info.Location = &location
	info.ImagePath = nil

	sources := make([]string, 0, 2)
	if dombuilding.HasData(info) {
		sources = append(sources, dombuilding.SourceMapData)
	}

	if dombuilding.IsComplete(info) {
		metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichmentSkipped).Inc()
		return dombuilding.Result{Building: info, Sources: sources}, nil
	}

	hint := dombuilding.Hint{Address: strings.TrimSpace(q.Address), HasPhoto: q.HasImage()}
	if extra, ok := s.enrich(ctx, info, location, hint); ok {
		merged, filled := dombuilding.FillMissing(info, extra)
		if filled > 0 {
			info = merged
			sources = append(sources, dombuilding.SourceEnrichment)
			metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichmentApplied).Inc()
		} else {
			metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichmentEmpty).Inc()
		}
	}

	return dombuilding.Result{Building: info, Sources: sources}, nil
}

// resolve returns the building identity and the location reported to the caller.
// Supplied coordinates win over the address and are kept as the location.
func (s *Service) resolve(ctx context.Context, q dombuilding.Query) (domain.BuildingID, domain.Coordinates, error) {
	ctx, cancel := withTimeout(ctx, s.timeouts.Geocoding)
	defer cancel()

	if q.Coordinates != nil {
		coords := *q.Coordinates
		id, err := s.geo.ReverseGeocode(ctx, coords)
		if err != nil {
			return domain.BuildingID{}, domain.Coordinates{}, classifyLookup(
				err, "reverse", fmt.Sprintf("no building at %s", coords),
			)
		}
		return id, coords, nil
	}

	address := strings.TrimSpace(q.Address)
	place, err := s.geo.Geocode(ctx, address)
	if err != nil {
		return domain.BuildingID{}, domain.Coordinates{}, classifyLookup(
			err, "search", fmt.Sprintf("no match for address %q", address),
		)
	}
	return place.BuildingID, place.Coordinates, nil
}

// fetch loads map attributes. A missing record degrades to an empty Info.
func (s *Service) fetch(ctx context.Context, id domain.BuildingID) (dombuilding.Info, error) {
	ctx, cancel := withTimeout(ctx, s.timeouts.MapData)
	defer cancel()

	info, err := s.maps.Fetch(ctx, id)
	switch {
	case err == nil:
		return info, nil
	case errors.Is(err, domain.ErrNotFound):
		logger.FromContext(ctx).Debug("No map data for building")
		return dombuilding.Info{}, nil
	case errors.Is(err, domain.ErrUpstream):
		return dombuilding.Info{}, fmt.Errorf("fetch map data for %s: %w", id, err)
	default:
		return dombuilding.Info{}, domain.NewUpstreamError(providerMapData, "fetch", 0, err)
	}
}

// enrich calls the enricher and reports whether it produced a usable answer.
// Failures are logged and counted, never returned.
func (s *Service) enrich(
	ctx context.Context, info dombuilding.Info, location domain.Coordinates, hint dombuilding.Hint,
) (dombuilding.Info, bool) {
	if s.enricher == nil {
		metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichmentSkipped).Inc()
		return dombuilding.Info{}, false
	}

	ctx, cancel := withTimeout(ctx, s.timeouts.Enrichment)
	defer cancel()

	extra, err := s.enricher.Enrich(ctx, info, location, hint)
	if err != nil {
		metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichmentFailed).Inc()
		logger.FromContext(ctx).Warn("Enrichment failed, continuing with map data",
			zap.Stringer("location", location),
			zap.Error(err),
		)
		return dombuilding.Info{}, false
	}
	return extra, true
}

func (s *Service) storeImage(ctx context.Context, data []byte) (string, error) {
	ctx, cancel := withTimeout(ctx, s.timeouts.ImageStore)
	defer cancel()

	path, err := s.images.Store(ctx, data)
	switch {
	case err == nil && path != "":
		return path, nil
	case err == nil:
		return "", domain.NewUpstreamError(providerImageStorage, "store", 0, errors.New("empty path returned"))
	case errors.Is(err, domain.ErrValidation):
		return "", fmt.Errorf("store image: %w", err)
	default:
		return "", domain.NewUpstreamError(providerImageStorage, "store", 0, err)
	}
}

// discardImage removes an image stored for a request that failed.
// It runs detached from ctx so a cancelled caller still gets cleaned up.
func (s *Service) discardImage(ctx context.Context, path string) {
	dctx, cancel := withTimeout(context.WithoutCancel(ctx), s.timeouts.ImageStore)
	defer cancel()

	log := logger.FromContext(ctx)
	if err := s.images.Delete(dctx, path); err != nil {
		log.Warn("Failed to discard uploaded image", zap.String("image_path", path), zap.Error(err))
		return
	}
	log.Debug("Discarded uploaded image", zap.String("image_path", path))
}

// queryFields describes the query for the request logger. Image bytes are never logged.
func queryFields(q dombuilding.Query) []zap.Field {
	fields := []zap.Field{zap.Bool("has_image", q.HasImage())}
	if q.Coordinates != nil {
		fields = append(fields, zap.Stringer("coordinates", *q.Coordinates))
	}
	if address := strings.TrimSpace(q.Address); address != "" {
		fields = append(fields, zap.String("address", address))
	}
	return fields
}

// classifyLookup maps a geocoder error onto the domain kinds.
func classifyLookup(err error, op, notFoundMsg string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.NotFoundf("%s", notFoundMsg)
	case errors.Is(err, domain.ErrUpstream):
		return err
	default:
		return domain.NewUpstreamError(providerGeocoding, op, 0, err)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
