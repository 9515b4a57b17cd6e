package forecast

import (
	"math"
	"sort"

	"github.com/andresuchdata/bakeplan/internal/domain"
)

const (
	// madScale makes the MAD a consistent estimator of the standard deviation.
	madScale = 1.4826
	// meanADScale does the same for the mean absolute deviation.
	meanADScale = 1.2533
	// minKeptObservations is the floor below which filtering never goes.
	minKeptObservations = 2
)

// FilterResult is a filtered sample and the number of observations dropped.
type FilterResult struct {
	Observations []domain.DemandObservation
	Removed      int
}

// FilterOutliers drops observations further than k robust standard
// deviations from the sample median. The spread is the scaled median
// absolute deviation, or the scaled mean absolute deviation when the MAD is
// zero. At least two observations always survive: when more would be
// dropped, the two closest to the median are kept. Order is preserved.
func FilterOutliers(obs []domain.DemandObservation, k float64) FilterResult {
	if k <= 0 {
		k = DefaultParams().OutlierK
	}
	if len(obs) <= minKeptObservations {
		return FilterResult{Observations: append([]domain.DemandObservation(nil), obs...)}
	}

	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.Quantity
	}
	med := median(values)

	deviations := make([]float64, len(values))
	var sumDev float64
	for i, v := range values {
		deviations[i] = math.Abs(v - med)
		sumDev += deviations[i]
	}

	spread := madScale * median(deviations)
	if spread == 0 {
		spread = meanADScale * sumDev / float64(len(deviations))
	}
	if spread == 0 {
		return FilterResult{Observations: append([]domain.DemandObservation(nil), obs...)}
	}

	limit := k * spread
	keep := make([]bool, len(obs))
	kept := 0
	for i, d := range deviations {
		if d <= limit {
			keep[i] = true
			kept++
		}
	}

	if kept < minKeptObservations {
		idx := make([]int, len(obs))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return deviations[idx[a]] < deviations[idx[b]] })
		for i := range keep {
			keep[i] = false
		}
		for _, i := range idx[:minKeptObservations] {
			keep[i] = true
		}
		kept = minKeptObservations
	}

	filtered := make([]domain.DemandObservation, 0, kept)
	for i, o := range obs {
		if keep[i] {
			filtered = append(filtered, o)
		}
	}

	return FilterResult{Observations: filtered, Removed: len(obs) - len(filtered)}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
