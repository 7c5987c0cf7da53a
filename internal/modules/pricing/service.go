// Package pricing computes deterministic fare estimates from trip distance.
package pricing

import (
	"math"

	"veni/internal/config"
)

// Estimator prices a trip as base + distance*perKm (+ duration*perMin when a
// duration is known), rounded to two decimals. Deterministic and total.
type Estimator struct {
	base   float64
	perKm  float64
	perMin float64
}

func NewEstimator(cfg config.FareConfig) *Estimator {
	return &Estimator{base: cfg.Base, perKm: cfg.PerKm, perMin: cfg.PerMin}
}

// Estimate returns the fare for a trip of the given length in kilometres.
func (e *Estimator) Estimate(distanceKm float64) float64 {
	return round2(e.base + distanceKm*e.perKm)
}

// EstimateWithDuration adds a per-minute component for deployments that
// price ride time. With the default per-minute rate of zero it matches
// Estimate exactly.
func (e *Estimator) EstimateWithDuration(distanceKm, durationMin float64) float64 {
	return round2(e.base + distanceKm*e.perKm + durationMin*e.perMin)
}

// PricesDuration reports whether a per-minute rate is configured, i.e.
// whether the final fare depends on ride duration.
func (e *Estimator) PricesDuration() bool {
	return e.perMin != 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
