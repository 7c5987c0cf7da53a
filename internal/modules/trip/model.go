// Package trip owns trip records and their state machine. All status and
// driver mutations go through the Service; callers never write fields
// directly.
package trip

import (
	"time"

	"veni/internal/types"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type Trip struct {
	ID          types.ID    `json:"id"`
	RiderID     types.ID    `json:"rider_id"`
	DriverID    *types.ID   `json:"driver_id,omitempty"`
	Origin      types.Point `json:"origin"`
	Destination types.Point `json:"destination"`
	Status      Status      `json:"status"`
	DistanceKm  float64     `json:"distance_km"`
	Price       float64     `json:"price"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Active reports whether the trip occupies its driver: a driver may hold at
// most one trip in an active status at a time.
func (s Status) Active() bool {
	return s == StatusAccepted || s == StatusInProgress
}

// Terminal statuses have no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// AllowedTransitions encodes the forward-only trip lifecycle. Cancellation is
// reachable from every non-terminal state.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
