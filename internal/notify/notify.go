// Package notify publishes trip events for downstream consumers.
package notify

import (
	"context"

	"veni/internal/types"
)

// Assignment is the event emitted when a trip gets a driver.
type Assignment struct {
	TripID     types.ID `json:"trip_id"`
	RiderID    types.ID `json:"rider_id"`
	DriverID   types.ID `json:"driver_id"`
	Server     string   `json:"server,omitempty"`
	DistanceKm float64  `json:"distance_km"`
	Price      float64  `json:"price"`
}

// StatusChange is the event emitted when a trip moves between states.
type StatusChange struct {
	TripID types.ID `json:"trip_id"`
	From   string   `json:"from,omitempty"`
	To     string   `json:"to"`
}

type Notifier interface {
	NotifyAssignment(ctx context.Context, a Assignment) error
	NotifyStatusChange(ctx context.Context, s StatusChange) error
}
