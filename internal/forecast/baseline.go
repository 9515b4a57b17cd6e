package forecast

import (
	"math"

	"github.com/andresuchdata/bakeplan/internal/domain"
)

// EstimateBaseline returns the recency-weighted mean of obs, which must be
// ordered oldest first. The newest observation has weight 1 and each step
// back multiplies the weight by decay, so weights never increase with
// distance from the present. decay outside (0,1] is treated as 1, which
// gives the plain mean. The result is never negative.
func EstimateBaseline(obs []domain.DemandObservation, decay float64) float64 {
	if len(obs) == 0 {
		return 0
	}
	if decay <= 0 || decay > 1 {
		decay = 1
	}

	var weighted, total float64
	weight := 1.0
	for i := len(obs) - 1; i >= 0; i-- {
		weighted += weight * obs[i].Quantity
		total += weight
		weight *= decay
	}

	lambda := weighted / total
	if lambda < 0 || math.IsNaN(lambda) {
		return 0
	}
	return lambda
}
