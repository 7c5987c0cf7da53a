// Package types holds the small value objects shared across modules.
package types

import "math"

// ID identifies riders, drivers, trips and servers.
type ID string

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsFinite reports whether both components are real numbers. The geo math is
// total over finite inputs, so this is the only validation the core performs.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lng) && !math.IsInf(p.Lng, 0)
}
