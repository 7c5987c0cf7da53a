package trip

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"veni/internal/types"
)

// PGStore persists trips in PostgreSQL. Claim relies on a single conditional
// UPDATE plus the uniq_driver_active partial index, so the at-most-one-driver
// and one-active-trip-per-driver invariants hold under concurrent writers
// without explicit locking.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const tripColumns = `id, rider_id, driver_id, origin_lat, origin_lng, dest_lat, dest_lng,
       status, distance_km, price, created_at, updated_at`

func (s *PGStore) Insert(ctx context.Context, t *Trip) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO trips (
            id, rider_id, driver_id,
            origin_lat, origin_lng, dest_lat, dest_lng,
            status, distance_km, price, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(t.ID),
		string(t.RiderID),
		idPtr(t.DriverID),
		t.Origin.Lat, t.Origin.Lng,
		t.Destination.Lat, t.Destination.Lng,
		string(t.Status),
		t.DistanceKm,
		t.Price,
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Trip, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id = $1`, string(id))
	return scanTrip(row)
}

func (s *PGStore) Claim(ctx context.Context, tripID, driverID types.ID) (*Trip, error) {
	row := s.db.QueryRow(ctx, `
        UPDATE trips
        SET driver_id = $2,
            status = 'accepted',
            updated_at = now()
        WHERE id = $1
          AND status = 'pending'
          AND driver_id IS NULL
          AND NOT EXISTS (
              SELECT 1 FROM trips
              WHERE driver_id = $2 AND status IN ('accepted', 'in_progress')
          )
        RETURNING `+tripColumns,
		string(tripID), string(driverID))

	t, err := scanTrip(row)
	if err == nil {
		return t, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// uniq_driver_active tripped: the driver won another claim first.
		return nil, ErrDriverBusy
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return nil, s.classifyClaimFailure(ctx, tripID, driverID)
}

// classifyClaimFailure decides which guard rejected the claim. Read after the
// fact purely for the error message; the decision itself was atomic.
func (s *PGStore) classifyClaimFailure(ctx context.Context, tripID, driverID types.ID) error {
	t, err := s.Get(ctx, tripID)
	if err != nil {
		return err
	}
	if t.DriverID != nil {
		return ErrAlreadyClaimed
	}
	if t.Status != StatusPending {
		return ErrNotFound
	}

	var busy bool
	err = s.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM trips
            WHERE driver_id = $1 AND status IN ('accepted', 'in_progress')
        )`, string(driverID)).Scan(&busy)
	if err != nil {
		return err
	}
	if busy {
		return ErrDriverBusy
	}
	return ErrAlreadyClaimed
}

func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, fields UpdateFields) (*Trip, error) {
	row := s.db.QueryRow(ctx, `
        UPDATE trips
        SET status = $3,
            distance_km = COALESCE($4, distance_km),
            price = COALESCE($5, price),
            updated_at = now()
        WHERE id = $1 AND status = $2
        RETURNING `+tripColumns,
		string(id), string(from), string(to), fields.DistanceKm, fields.Price)

	t, err := scanTrip(row)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	// Distinguish a missing trip from a lost CAS.
	if _, getErr := s.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrInvalidState
}

func (s *PGStore) ListPending(ctx context.Context) ([]*Trip, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+tripColumns+`
        FROM trips
        WHERE status = 'pending' AND driver_id IS NULL
        ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PGStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM trips`).Scan(&n)
	return n, err
}

func (s *PGStore) CountByStatus(ctx context.Context, status Status) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM trips WHERE status = $1`, string(status)).Scan(&n)
	return n, err
}

func scanTrip(row pgx.Row) (*Trip, error) {
	var t Trip
	var driverID *string
	err := row.Scan(
		&t.ID, &t.RiderID, &driverID,
		&t.Origin.Lat, &t.Origin.Lng,
		&t.Destination.Lat, &t.Destination.Lng,
		&t.Status, &t.DistanceKm, &t.Price,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if driverID != nil {
		d := types.ID(*driverID)
		t.DriverID = &d
	}
	return &t, nil
}

func idPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
