package driver

import (
	"context"
	"log/slog"

	"veni/internal/config"
	"veni/internal/types"
)

// Directory tracks the fleet and answers proximity queries for dispatch.
type Directory struct {
	store    Store
	radiusKm float64
	log      *slog.Logger
}

func NewDirectory(store Store, cfg config.DriversConfig, log *slog.Logger) *Directory {
	return &Directory{store: store, radiusKm: cfg.SearchRadiusKm, log: log}
}

// Seed registers the configured demo fleet. Existing entries are overwritten.
func (d *Directory) Seed(ctx context.Context, seed []config.DriverSeed) error {
	for _, s := range seed {
		err := d.store.Upsert(ctx, Driver{
			ID:        types.ID(s.ID),
			Location:  types.Point{Lat: s.Lat, Lng: s.Lng},
			Available: s.Available,
		})
		if err != nil {
			return err
		}
	}
	d.log.Info("driver directory seeded", "count", len(seed))
	return nil
}

func (d *Directory) Register(ctx context.Context, drv Driver) error {
	if drv.ID == "" || !drv.Location.IsFinite() {
		return ErrInvalid
	}
	return d.store.Upsert(ctx, drv)
}

func (d *Directory) UpdateLocation(ctx context.Context, id types.ID, p types.Point) error {
	return d.store.SetLocation(ctx, id, p)
}

func (d *Directory) SetAvailability(ctx context.Context, id types.ID, available bool) error {
	return d.store.SetAvailability(ctx, id, available)
}

func (d *Directory) Get(ctx context.Context, id types.ID) (*Driver, error) {
	return d.store.Get(ctx, id)
}

// Nearest returns the closest available driver to p, or ErrNoDrivers.
func (d *Directory) Nearest(ctx context.Context, p types.Point) (*Candidate, error) {
	candidates, err := d.store.Nearby(ctx, p, d.radiusKm, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoDrivers
	}
	return &candidates[0], nil
}

// Nearby returns up to limit available drivers around p, closest first.
func (d *Directory) Nearby(ctx context.Context, p types.Point, limit int) ([]Candidate, error) {
	return d.store.Nearby(ctx, p, d.radiusKm, limit)
}
