package osmcache

import (
	"context"
	"sync"
	"time"

	"github.com/citysnap/gateway/internal/db"
	"github.com/citysnap/gateway/internal/domain"
	"github.com/citysnap/gateway/internal/domain/building"
)

// --- Mocks ---

type mockGeocoder struct {
	place        domain.Place
	id           domain.BuildingID
	err          error
	geocodeCalls int
	reverseCalls int
}

func (m *mockGeocoder) Geocode(_ context.Context, _ string) (domain.Place, error) {
	m.geocodeCalls++
	return m.place, m.err
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _ domain.Coordinates) (domain.BuildingID, error) {
	m.reverseCalls++
	return m.id, m.err
}

type mockMapData struct {
	info  building.Info
	err   error
	calls int
}

func (m *mockMapData) Fetch(_ context.Context, _ domain.BuildingID) (building.Info, error) {
	m.calls++
	return m.info, m.err
}

// memStore is an in-memory store recording TTLs.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}
