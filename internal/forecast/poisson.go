package forecast

import "math"

// quantileTolerance absorbs floating-point error when comparing a summed CDF
// against a target probability.
const quantileTolerance = 1e-12

// poissonPMF returns P(D = k) for D ~ Poisson(lambda). It works in log space
// so large rates do not underflow exp(-lambda).
func poissonPMF(k int, lambda float64) float64 {
	if k < 0 {
		return 0
	}
	if lambda == 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	lg, _ := math.Lgamma(float64(k) + 1)
	return math.Exp(float64(k)*math.Log(lambda) - lambda - lg)
}

// poissonCDF returns P(D <= k).
func poissonCDF(k int, lambda float64) float64 {
	if k < 0 {
		return 0
	}
	var sum float64
	for i := 0; i <= k; i++ {
		sum += poissonPMF(i, lambda)
	}
	if sum > 1 {
		return 1
	}
	return sum
}

// poissonQuantile returns the smallest k with P(D <= k) >= q.
func poissonQuantile(q, lambda float64) int {
	if q <= 0 || lambda == 0 {
		return 0
	}
	limit := int(math.Ceil(lambda + 40*math.Sqrt(lambda) + 100))
	var cum float64
	for k := 0; k <= limit; k++ {
		cum += poissonPMF(k, lambda)
		if cum >= q-quantileTolerance {
			return k
		}
	}
	return limit
}
