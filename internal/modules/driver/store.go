package driver

import (
	"context"
	"errors"

	"veni/internal/types"
)

var (
	// ErrInvalid means the driver record fails basic validation.
	ErrInvalid = errors.New("invalid driver")
	// ErrNotFound means the driver is not registered in the directory.
	ErrNotFound = errors.New("driver not found")
	// ErrNoDrivers means no available driver was inside the search radius.
	ErrNoDrivers = errors.New("no available drivers")
)

// Store holds driver positions and availability. Nearby returns available
// drivers within radiusKm of p, closest first, at most limit entries
// (limit <= 0 means no cap).
type Store interface {
	Upsert(ctx context.Context, d Driver) error
	SetLocation(ctx context.Context, id types.ID, p types.Point) error
	SetAvailability(ctx context.Context, id types.ID, available bool) error
	Get(ctx context.Context, id types.ID) (*Driver, error)
	Nearby(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]Candidate, error)
}
