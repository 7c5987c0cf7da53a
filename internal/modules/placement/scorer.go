package placement

import (
	"errors"
	"sort"

	"veni/internal/config"
	"veni/internal/geo"
	"veni/internal/types"
)

var ErrNoServers = errors.New("no servers in placement pool")

// Scorer performs greedy weighted nearest-server selection with a soft
// capacity and capability bias. Stateless: every request is scored against a
// fresh snapshot of the pool with no memory of prior assignments. Favors
// responsiveness over perfect load balance.
type Scorer struct {
	pool              []Server
	overloadThreshold float64
	priorityDiscount  float64
}

func NewScorer(cfg config.PlacementConfig) *Scorer {
	pool := make([]Server, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		pool = append(pool, Server{
			Name:      s.Name,
			Location:  types.Point{Lat: s.Lat, Lng: s.Lng},
			Load:      s.Load,
			LatencyMs: s.LatencyMs,
			HasGPU:    s.HasGPU,
		})
	}
	return &Scorer{
		pool:              pool,
		overloadThreshold: cfg.OverloadThreshold,
		priorityDiscount:  cfg.PriorityDiscount,
	}
}

type scored struct {
	server Server
	score  float64
}

// Assign returns the pool member with the lowest score for this request.
//
// Overloaded servers are excluded up front; if that leaves nothing, the first
// pool entry is returned anyway (availability over optimality). Heavy
// requests narrow the pool to GPU nodes only when at least one survives the
// load filter, so capability filtering can never empty the candidate set.
func (s *Scorer) Assign(userLocation types.Point, requestType RequestType, priority Priority) (Server, error) {
	if len(s.pool) == 0 {
		return Server{}, ErrNoServers
	}

	candidates := make([]Server, 0, len(s.pool))
	for _, srv := range s.pool {
		if srv.Load < s.overloadThreshold {
			candidates = append(candidates, srv)
		}
	}
	if len(candidates) == 0 {
		return s.pool[0], nil
	}

	if requestType == RequestHeavy {
		gpuNodes := make([]Server, 0, len(candidates))
		for _, srv := range candidates {
			if srv.HasGPU {
				gpuNodes = append(gpuNodes, srv)
			}
		}
		if len(gpuNodes) > 0 {
			candidates = gpuNodes
		}
	}

	ranked := make([]scored, 0, len(candidates))
	for _, srv := range candidates {
		score := geo.DistanceKm(userLocation, srv.Location) +
			srv.Load*100 +
			max(0, srv.LatencyMs-10)*0.5
		if priority == PriorityHigh {
			score *= s.priorityDiscount
		}
		ranked = append(ranked, scored{server: srv, score: score})
	}

	// Deterministic tie-break: lowest score, then lexicographic name.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score < ranked[j].score
		}
		return ranked[i].server.Name < ranked[j].server.Name
	})

	return ranked[0].server, nil
}
