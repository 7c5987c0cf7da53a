package trip

import (
	"context"
	"errors"

	"veni/internal/types"
)

var (
	ErrValidation     = errors.New("missing or malformed input")
	ErrNotFound       = errors.New("trip not found")
	ErrForbidden      = errors.New("actor is not the trip's assigned driver")
	ErrAlreadyClaimed = errors.New("trip already claimed by another driver")
	ErrDriverBusy     = errors.New("driver already has an active trip")
	ErrInvalidState   = errors.New("invalid state transition")
)

// UpdateFields carries the optional columns a status transition may refresh.
// Nil fields are left untouched.
type UpdateFields struct {
	DistanceKm *float64
	Price      *float64
}

// Store is the persistence collaborator. Implementations must make Claim a
// single atomic conditional update: under concurrent claims on one trip
// exactly one caller wins, and a driver holding an active trip never wins.
type Store interface {
	Insert(ctx context.Context, t *Trip) error
	Get(ctx context.Context, id types.ID) (*Trip, error)

	// Claim transitions pending → accepted and sets the driver in one CAS
	// guarded by "driver_id IS NULL" and "driver has no active trip".
	// Returns ErrNotFound, ErrAlreadyClaimed or ErrDriverBusy on failure.
	Claim(ctx context.Context, tripID, driverID types.ID) (*Trip, error)

	// UpdateStatus applies from → to only while the trip is still in from,
	// refreshing updated_at and any provided fields. Returns ErrInvalidState
	// when the guard no longer holds and ErrNotFound for unknown trips.
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, fields UpdateFields) (*Trip, error)

	// ListPending returns unclaimed pending trips, oldest first.
	ListPending(ctx context.Context) ([]*Trip, error)

	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, s Status) (int64, error)
}
