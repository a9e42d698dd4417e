package osmcache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/domain"
)

// Geocoder caches successful geocoding answers. Misses and errors are not cached.
type Geocoder struct {
	base
	inner geocoder
}

// NewGeocoder wraps inner with a cache.
// cacheTotal is a counter vec with labels "cache" and "result", passed explicitly.
func NewGeocoder(
	inner geocoder, s store, ttl time.Duration,
	cacheTotal *prometheus.CounterVec, logger *zap.Logger,
) *Geocoder {
	return &Geocoder{
		base:  base{store: s, ttl: ttl, cacheTotal: cacheTotal, logger: logger},
		inner: inner,
	}
}

// Geocode returns a cached place or asks the inner geocoder.
func (g *Geocoder) Geocode(ctx context.Context, address string) (domain.Place, error) {
	key := geocodeKey(address)

	var cached placeDTO
	if g.get(ctx, cacheGeocode, key, &cached) {
		if place, ok := cached.toDomain(); ok {
			return place, nil
		}
	}

	place, err := g.inner.Geocode(ctx, address)
	if err != nil {
		return domain.Place{}, err
	}

	g.put(ctx, key, placeFromDomain(place))
	return place, nil
}

// ReverseGeocode returns a cached building id or asks the inner geocoder.
func (g *Geocoder) ReverseGeocode(ctx context.Context, coords domain.Coordinates) (domain.BuildingID, error) {
	key := reverseKey(coords)

	var cached buildingIDDTO
	if g.get(ctx, cacheReverse, key, &cached) {
		if id, ok := cached.toDomain(); ok {
			return id, nil
		}
	}

	id, err := g.inner.ReverseGeocode(ctx, coords)
	if err != nil {
		return domain.BuildingID{}, err
	}

	g.put(ctx, key, buildingIDFromDomain(id))
	return id, nil
}
