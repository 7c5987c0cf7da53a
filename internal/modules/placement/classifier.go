package placement

import (
	"veni/internal/geo"
	"veni/internal/types"
)

// Classifier labels a requested route light or heavy by distance threshold.
// Heavy routes bias server selection toward GPU-capable nodes.
type Classifier struct {
	thresholdKm float64
}

func NewClassifier(thresholdKm float64) *Classifier {
	return &Classifier{thresholdKm: thresholdKm}
}

// Classify returns RequestHeavy iff the origin-destination distance strictly
// exceeds the threshold. Exactly at the threshold is light.
func (c *Classifier) Classify(origin, destination types.Point) RequestType {
	if geo.DistanceKm(origin, destination) > c.thresholdKm {
		return RequestHeavy
	}
	return RequestLight
}
