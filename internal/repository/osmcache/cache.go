// Package osmcache caches geocoding and map data lookups in a key-value store.
package osmcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/db"
	"github.com/citysnap/gateway/internal/domain"
	"github.com/citysnap/gateway/internal/domain/building"
)

const keyPrefix = "citysnap:"

// Cache names, used as the "cache" metric label.
const (
	cacheGeocode = "geocode"
	cacheReverse = "reverse"
	cacheMapData = "mapdata"
)

// store is the consumer interface for the cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Place, error)
	ReverseGeocode(ctx context.Context, coords domain.Coordinates) (domain.BuildingID, error)
}

type mapData interface {
	Fetch(ctx context.Context, id domain.BuildingID) (building.Info, error)
}

// base holds what both decorators share. Store failures are logged and ignored.
type base struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

func (b *base) get(ctx context.Context, cache, key string, dst any) bool {
	data, err := b.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			b.logger.Warn("Failed to read cache", zap.String("key", key), zap.Error(err))
		}
		b.inc(cache, "miss")
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		b.logger.Warn("Failed to parse cached value", zap.String("key", key), zap.Error(err))
		b.inc(cache, "miss")
		return false
	}
	b.inc(cache, "hit")
	return true
}

func (b *base) put(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Warn("Failed to encode cache value", zap.String("key", key), zap.Error(err))
		return
	}
	if err := b.store.SetWithTTL(ctx, key, data, b.ttl); err != nil {
		b.logger.Warn("Failed to write cache", zap.String("key", key), zap.Error(err))
	}
}

func (b *base) inc(cache, result string) {
	if b.cacheTotal != nil {
		b.cacheTotal.WithLabelValues(cache, result).Inc()
	}
}

func geocodeKey(address string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.Join(strings.Fields(address), " "))))
	return keyPrefix + cacheGeocode + ":" + hex.EncodeToString(h[:])
}

func reverseKey(c domain.Coordinates) string {
	return keyPrefix + cacheReverse + ":" + c.String()
}

func mapDataKey(id domain.BuildingID) string {
	return keyPrefix + cacheMapData + ":" + id.String()
}
