package osmcache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/domain"
	"github.com/citysnap/gateway/internal/domain/building"
)

// MapData caches map attributes per building id, including empty answers.
type MapData struct {
	base
	inner mapData
}

// NewMapData wraps inner with a cache.
func NewMapData(
	inner mapData, s store, ttl time.Duration,
	cacheTotal *prometheus.CounterVec, logger *zap.Logger,
) *MapData {
	return &MapData{
		base:  base{store: s, ttl: ttl, cacheTotal: cacheTotal, logger: logger},
		inner: inner,
	}
}

// Fetch returns cached attributes or asks the inner source.
func (m *MapData) Fetch(ctx context.Context, id domain.BuildingID) (building.Info, error) {
	key := mapDataKey(id)

	var cached infoDTO
	if m.get(ctx, cacheMapData, key, &cached) {
		return cached.toDomain(), nil
	}

	info, err := m.inner.Fetch(ctx, id)
	if err != nil {
		return building.Info{}, err
	}

	m.put(ctx, key, infoFromDomain(info))
	return info, nil
}
