package driver

import (
	"context"
	"sort"
	"sync"

	"veni/internal/geo"
	"veni/internal/types"
)

// MemStore keeps the directory in process memory. Proximity search is a
// linear scan, which is plenty for the demo fleet sizes this mode serves.
type MemStore struct {
	mu      sync.RWMutex
	drivers map[types.ID]*Driver
}

func NewMemStore() *MemStore {
	return &MemStore{drivers: make(map[types.ID]*Driver)}
}

func (m *MemStore) Upsert(_ context.Context, d Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := d
	m.drivers[d.ID] = &cp
	return nil
}

func (m *MemStore) SetLocation(_ context.Context, id types.ID, p types.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return ErrNotFound
	}
	d.Location = p
	return nil
}

func (m *MemStore) SetAvailability(_ context.Context, id types.ID, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return ErrNotFound
	}
	d.Available = available
	return nil
}

func (m *MemStore) Get(_ context.Context, id types.ID) (*Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemStore) Nearby(_ context.Context, p types.Point, radiusKm float64, limit int) ([]Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Candidate, 0)
	for _, d := range m.drivers {
		if !d.Available {
			continue
		}
		dist := geo.DistanceKm(p, d.Location)
		if radiusKm > 0 && dist > radiusKm {
			continue
		}
		out = append(out, Candidate{Driver: *d, DistanceKm: dist})
	}
	// Pre-sort by id so equal distances resolve deterministically; the
	// distance sort is stable.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	geo.SortByDistance(out, func(c Candidate) float64 { return c.DistanceKm })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
