// README: Driver directory model.
package driver

import "veni/internal/types"

// Driver is a registered driver and their last known position.
type Driver struct {
	ID        types.ID    `json:"id"`
	Location  types.Point `json:"location"`
	Available bool        `json:"available"`
}

// Candidate is a driver returned by a proximity search, annotated with the
// distance to the search origin.
type Candidate struct {
	Driver
	DistanceKm float64 `json:"distance_km"`
}
