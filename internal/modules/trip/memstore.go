package trip

import (
	"context"
	"sort"
	"sync"
	"time"

	"veni/internal/types"
)

// MemStore keeps trips in process memory behind one mutex, so every
// conditional update is trivially atomic. It backs the demo storage mode and
// the tests; the semantics match the Postgres store exactly.
type MemStore struct {
	mu    sync.Mutex
	trips map[types.ID]*Trip
}

func NewMemStore() *MemStore {
	return &MemStore{trips: make(map[types.ID]*Trip)}
}

func (m *MemStore) Insert(_ context.Context, t *Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.trips[t.ID] = &cp
	return nil
}

func (m *MemStore) Get(_ context.Context, id types.ID) (*Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemStore) Claim(_ context.Context, tripID, driverID types.ID) (*Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trips[tripID]
	if !ok {
		return nil, ErrNotFound
	}
	if t.DriverID != nil {
		return nil, ErrAlreadyClaimed
	}
	if t.Status != StatusPending {
		return nil, ErrNotFound
	}
	for _, other := range m.trips {
		if other.DriverID != nil && *other.DriverID == driverID && other.Status.Active() {
			return nil, ErrDriverBusy
		}
	}

	d := driverID
	t.DriverID = &d
	t.Status = StatusAccepted
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

func (m *MemStore) UpdateStatus(_ context.Context, id types.ID, from, to Status, fields UpdateFields) (*Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != from {
		return nil, ErrInvalidState
	}
	t.Status = to
	if fields.DistanceKm != nil {
		t.DistanceKm = *fields.DistanceKm
	}
	if fields.Price != nil {
		t.Price = *fields.Price
	}
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

func (m *MemStore) ListPending(_ context.Context) ([]*Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Trip, 0)
	for _, t := range m.trips {
		if t.Status == StatusPending && t.DriverID == nil {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemStore) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.trips)), nil
}

func (m *MemStore) CountByStatus(_ context.Context, s Status) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.trips {
		if t.Status == s {
			n++
		}
	}
	return n, nil
}
