// README: Driver directory backed by Redis GEO and a set of available drivers.
package driver

import (
	"context"

	"github.com/redis/go-redis/v9"

	"veni/internal/types"
)

const (
	driverGeoKey       = "drivers:geo"
	driverAvailableKey = "drivers:available"
)

type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redis *redis.Client) *RedisStore {
	return &RedisStore{redis: redis}
}

func (s *RedisStore) Upsert(ctx context.Context, d Driver) error {
	pipe := s.redis.Pipeline()
	pipe.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      string(d.ID),
		Longitude: d.Location.Lng,
		Latitude:  d.Location.Lat,
	})
	if d.Available {
		pipe.SAdd(ctx, driverAvailableKey, string(d.ID))
	} else {
		pipe.SRem(ctx, driverAvailableKey, string(d.ID))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) SetLocation(ctx context.Context, id types.ID, p types.Point) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	return s.redis.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (s *RedisStore) SetAvailability(ctx context.Context, id types.ID, available bool) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	if available {
		return s.redis.SAdd(ctx, driverAvailableKey, string(id)).Err()
	}
	return s.redis.SRem(ctx, driverAvailableKey, string(id)).Err()
}

func (s *RedisStore) Get(ctx context.Context, id types.ID) (*Driver, error) {
	pos, err := s.redis.GeoPos(ctx, driverGeoKey, string(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(pos) == 0 || pos[0] == nil {
		return nil, ErrNotFound
	}
	available, err := s.redis.SIsMember(ctx, driverAvailableKey, string(id)).Result()
	if err != nil {
		return nil, err
	}
	return &Driver{
		ID:        id,
		Location:  types.Point{Lat: pos[0].Latitude, Lng: pos[0].Longitude},
		Available: available,
	}, nil
}

func (s *RedisStore) Nearby(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]Candidate, error) {
	results, err := s.redis.GeoSearchLocation(ctx, driverGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  p.Lng,
			Latitude:   p.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		available, err := s.redis.SIsMember(ctx, driverAvailableKey, r.Name).Result()
		if err != nil {
			return nil, err
		}
		if !available {
			continue
		}
		out = append(out, Candidate{
			Driver: Driver{
				ID:        types.ID(r.Name),
				Location:  types.Point{Lat: r.Latitude, Lng: r.Longitude},
				Available: true,
			},
			DistanceKm: r.Dist,
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *RedisStore) exists(ctx context.Context, id types.ID) error {
	pos, err := s.redis.GeoPos(ctx, driverGeoKey, string(id)).Result()
	if err != nil {
		return err
	}
	if len(pos) == 0 || pos[0] == nil {
		return ErrNotFound
	}
	return nil
}
