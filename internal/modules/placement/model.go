// Package placement picks the backend server instance that should serve a
// trip request, and classifies routes by distance.
package placement

import "veni/internal/types"

type RequestType string

const (
	RequestLight RequestType = "light"
	RequestHeavy RequestType = "heavy"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Server is a read-only snapshot of a placement candidate. Load and latency
// are supplied externally (configuration); this package never mutates them.
type Server struct {
	Name      string      `json:"name"`
	Location  types.Point `json:"location"`
	Load      float64     `json:"load"`
	LatencyMs float64     `json:"latency_ms"`
	HasGPU    bool        `json:"has_gpu"`
}
