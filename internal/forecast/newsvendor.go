package forecast

import (
	"fmt"
	"math"

	"github.com/andresuchdata/bakeplan/internal/domain"
)

// NewsvendorInput describes one single-period ordering decision.
type NewsvendorInput struct {
	Lambda        float64 // Expected demand, Poisson rate
	UnitPrice     float64
	UnitCost      float64
	ServiceLevel  float64 // Explicit in-stock target in (0,1); 0 uses the critical fractile
	IntervalWidth float64 // Central mass of the prediction interval; 0 uses 0.90
}

// NewsvendorResult is the optimal order and its risk profile. P(demand == Q)
// is counted in neither StockoutProbability nor WasteProbability, so the two
// need not sum to 1.
type NewsvendorResult struct {
	CriticalFractile    float64
	ServiceLevel        float64
	OptimalQuantity     int
	StockoutProbability float64 // P(demand > Q)
	WasteProbability    float64 // P(demand < Q)
	IntervalLower       int
	IntervalUpper       int
	ExpectedDemand      float64
	ExpectedSales       float64
	ExpectedProfit      float64
}

// CriticalFractile returns (p-c)/p clamped to [0,1].
func CriticalFractile(price, cost float64) float64 {
	if price <= 0 {
		return 0
	}
	return clamp01((price - cost) / price)
}

// Optimize solves the newsvendor problem for Poisson demand. The optimal
// quantity is the smallest Q whose CDF reaches the service level.
func Optimize(in NewsvendorInput) (NewsvendorResult, error) {
	if err := validateNewsvendorInput(in); err != nil {
		return NewsvendorResult{}, err
	}

	width := in.IntervalWidth
	if width <= 0 || width >= 1 {
		width = DefaultParams().IntervalWidth
	}

	res := NewsvendorResult{
		CriticalFractile: CriticalFractile(in.UnitPrice, in.UnitCost),
		ExpectedDemand:   in.Lambda,
	}
	res.ServiceLevel = res.CriticalFractile
	if in.ServiceLevel > 0 {
		res.ServiceLevel = in.ServiceLevel
	}

	if in.Lambda == 0 {
		return res, nil
	}

	q := poissonQuantile(res.ServiceLevel, in.Lambda)
	res.OptimalQuantity = q

	// Truncated expectation E[min(D,Q)] accumulated alongside CDF(Q-1).
	var belowQ, partialMean float64
	for k := 0; k < q; k++ {
		pmf := poissonPMF(k, in.Lambda)
		belowQ += pmf
		partialMean += float64(k) * pmf
	}
	belowQ = clamp01(belowQ)
	atQ := poissonPMF(q, in.Lambda)

	res.WasteProbability = belowQ
	res.StockoutProbability = clamp01(1 - belowQ - atQ)
	res.ExpectedSales = partialMean + float64(q)*(1-belowQ)
	res.ExpectedProfit = in.UnitPrice*res.ExpectedSales - in.UnitCost*float64(q)

	tailMass := (1 - width) / 2
	res.IntervalLower = poissonQuantile(tailMass, in.Lambda)
	res.IntervalUpper = poissonQuantile(1-tailMass, in.Lambda)

	return res, nil
}

func validateNewsvendorInput(in NewsvendorInput) error {
	switch {
	case math.IsNaN(in.Lambda) || math.IsInf(in.Lambda, 0) || in.Lambda < 0:
		return fmt.Errorf("%w: lambda %v", domain.ErrInvalidForecastInput, in.Lambda)
	case math.IsNaN(in.UnitPrice) || in.UnitPrice <= 0:
		return fmt.Errorf("%w: unit price %v must be positive", domain.ErrInvalidForecastInput, in.UnitPrice)
	case math.IsNaN(in.UnitCost) || in.UnitCost < 0:
		return fmt.Errorf("%w: unit cost %v must not be negative", domain.ErrInvalidForecastInput, in.UnitCost)
	case math.IsNaN(in.ServiceLevel) || in.ServiceLevel < 0 || in.ServiceLevel >= 1:
		return fmt.Errorf("%w: service level %v outside (0,1)", domain.ErrInvalidForecastInput, in.ServiceLevel)
	}
	return nil
}

// Confidence scores how much a forecast can be trusted from the amount of
// history and the share of it discarded as outliers. It rises with
// sampleSize, falls with removed, and stays within [0,1].
func Confidence(sampleSize, removed int, scale float64) float64 {
	if sampleSize <= 0 {
		return 0
	}
	if scale <= 0 {
		scale = DefaultParams().ConfidenceScale
	}
	if removed < 0 {
		removed = 0
	}
	if removed > sampleSize {
		removed = sampleSize
	}
	volume := 1 - math.Exp(-float64(sampleSize)/scale)
	cleanliness := 1 - float64(removed)/float64(sampleSize)
	return clamp01(volume * cleanliness)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
