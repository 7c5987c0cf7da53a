package trip

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"veni/internal/geo"
	"veni/internal/modules/pricing"
	"veni/internal/types"
)

// Service is the trip registry: the only component allowed to create trips
// and move them through the lifecycle.
type Service struct {
	store Store
	fares *pricing.Estimator
	log   *slog.Logger
}

func NewService(store Store, fares *pricing.Estimator, log *slog.Logger) *Service {
	return &Service{store: store, fares: fares, log: log}
}

// Create registers a new trip in pending state with distance and price
// computed up front.
func (s *Service) Create(ctx context.Context, riderID types.ID, origin, destination types.Point) (*Trip, error) {
	if riderID == "" || !origin.IsFinite() || !destination.IsFinite() {
		return nil, ErrValidation
	}

	distance := geo.DistanceKm(origin, destination)
	now := time.Now().UTC()
	t := &Trip{
		ID:          types.ID(uuid.NewString()),
		RiderID:     riderID,
		Origin:      origin,
		Destination: destination,
		Status:      StatusPending,
		DistanceKm:  distance,
		Price:       s.fares.Estimate(distance),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info("trip created",
		"trip_id", t.ID, "rider_id", riderID,
		"distance_km", t.DistanceKm, "price", t.Price)
	return t, nil
}

// Claim attaches a driver to a pending trip. The store performs the whole
// check-and-set atomically, so two concurrent claims on one trip resolve to
// exactly one winner, and a driver with an active trip never wins a second.
func (s *Service) Claim(ctx context.Context, tripID, driverID types.ID) (*Trip, error) {
	if tripID == "" || driverID == "" {
		return nil, ErrValidation
	}
	t, err := s.store.Claim(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}
	s.log.Info("trip claimed", "trip_id", tripID, "driver_id", driverID)
	return t, nil
}

// Start moves an accepted trip to in_progress. Only the assigned driver may
// start it.
func (s *Service) Start(ctx context.Context, tripID, driverID types.ID) (*Trip, error) {
	if err := s.checkOwnership(ctx, tripID, driverID); err != nil {
		return nil, err
	}
	return s.store.UpdateStatus(ctx, tripID, StatusAccepted, StatusInProgress, UpdateFields{})
}

// Complete finishes an in_progress trip. The price is recomputed when the
// record is missing it, or when a per-minute rate is configured, in which
// case the time spent in_progress is priced in. Completing an
// already-completed trip fails with ErrInvalidState; the operation is not
// idempotent.
func (s *Service) Complete(ctx context.Context, tripID, driverID types.ID) (*Trip, error) {
	t, err := s.store.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.DriverID == nil || *t.DriverID != driverID {
		return nil, ErrForbidden
	}

	fields := UpdateFields{}
	if t.Price == 0 || s.fares.PricesDuration() {
		distance := t.DistanceKm
		if distance == 0 {
			distance = geo.DistanceKm(t.Origin, t.Destination)
		}
		// UpdatedAt was last touched when the trip started.
		price := s.fares.EstimateWithDuration(distance, time.Since(t.UpdatedAt).Minutes())
		fields.DistanceKm = &distance
		fields.Price = &price
	}

	done, err := s.store.UpdateStatus(ctx, tripID, StatusInProgress, StatusCompleted, fields)
	if err != nil {
		return nil, err
	}
	s.log.Info("trip completed", "trip_id", tripID, "driver_id", driverID, "price", done.Price)
	return done, nil
}

// Cancel aborts a non-terminal trip. The rider or the assigned driver may
// cancel; anyone else is forbidden.
func (s *Service) Cancel(ctx context.Context, tripID, actorID types.ID) (*Trip, error) {
	t, err := s.store.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if actorID != t.RiderID && (t.DriverID == nil || *t.DriverID != actorID) {
		return nil, ErrForbidden
	}
	if t.Status.Terminal() {
		return nil, ErrInvalidState
	}
	cancelled, err := s.store.UpdateStatus(ctx, tripID, t.Status, StatusCancelled, UpdateFields{})
	if err != nil {
		return nil, err
	}
	s.log.Info("trip cancelled", "trip_id", tripID, "actor_id", actorID)
	return cancelled, nil
}

func (s *Service) Get(ctx context.Context, tripID types.ID) (*Trip, error) {
	return s.store.Get(ctx, tripID)
}

// ListPending returns claimable trips, oldest first, for driver-facing
// "available trips" queries.
func (s *Service) ListPending(ctx context.Context) ([]*Trip, error) {
	return s.store.ListPending(ctx)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

func (s *Service) CountByStatus(ctx context.Context, status Status) (int64, error) {
	return s.store.CountByStatus(ctx, status)
}

func (s *Service) checkOwnership(ctx context.Context, tripID, driverID types.ID) error {
	t, err := s.store.Get(ctx, tripID)
	if err != nil {
		return err
	}
	if t.DriverID == nil || *t.DriverID != driverID {
		return ErrForbidden
	}
	return nil
}
