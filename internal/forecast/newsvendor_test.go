package forecast

import (
	"math"
	"testing"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeCriticalFractileExample(t *testing.T) {
	res, err := Optimize(NewsvendorInput{Lambda: 10, UnitPrice: 20, UnitCost: 8})
	require.NoError(t, err)

	assert.InDelta(t, 0.6, res.CriticalFractile, 1e-12)
	assert.InDelta(t, 0.6, res.ServiceLevel, 1e-12)
	// CDF(10;10) ~ 0.583 < 0.6 <= CDF(11;10) ~ 0.697
	assert.Equal(t, 11, res.OptimalQuantity)
	assert.InDelta(t, 0.583, poissonCDF(10, 10), 0.001)
	assert.InDelta(t, 0.697, poissonCDF(11, 10), 0.001)
}

func TestOptimizeProbabilities(t *testing.T) {
	res, err := Optimize(NewsvendorInput{Lambda: 10, UnitPrice: 20, UnitCost: 8})
	require.NoError(t, err)

	assert.InDelta(t, poissonCDF(10, 10), res.WasteProbability, 1e-12)
	assert.InDelta(t, 1-poissonCDF(11, 10), res.StockoutProbability, 1e-12)
	assert.InDelta(t, 1-poissonPMF(11, 10), res.StockoutProbability+res.WasteProbability, 1e-9)
	assert.Equal(t, 5, res.IntervalLower)
	assert.Equal(t, 15, res.IntervalUpper)
	assert.Equal(t, 10.0, res.ExpectedDemand)
}

func TestOptimizeExpectedProfit(t *testing.T) {
	in := NewsvendorInput{Lambda: 4, UnitPrice: 5, UnitCost: 2}
	res, err := Optimize(in)
	require.NoError(t, err)

	// Brute-force E[min(D,Q)] over a long tail.
	var expectedSales float64
	for k := 0; k < 200; k++ {
		expectedSales += math.Min(float64(k), float64(res.OptimalQuantity)) * poissonPMF(k, in.Lambda)
	}
	want := in.UnitPrice*expectedSales - in.UnitCost*float64(res.OptimalQuantity)
	assert.InDelta(t, want, res.ExpectedProfit, 1e-9)
}

func TestOptimizeZeroLambda(t *testing.T) {
	res, err := Optimize(NewsvendorInput{Lambda: 0, UnitPrice: 3, UnitCost: 1})
	require.NoError(t, err)

	assert.Equal(t, 0, res.OptimalQuantity)
	assert.Zero(t, res.StockoutProbability)
	assert.Zero(t, res.WasteProbability)
	assert.Zero(t, res.IntervalLower)
	assert.Zero(t, res.IntervalUpper)
	assert.Zero(t, res.ExpectedProfit)
}

func TestOptimizeServiceLevelOverride(t *testing.T) {
	res, err := Optimize(NewsvendorInput{Lambda: 10, UnitPrice: 20, UnitCost: 8, ServiceLevel: 0.95})
	require.NoError(t, err)

	assert.Equal(t, 0.95, res.ServiceLevel)
	assert.GreaterOrEqual(t, poissonCDF(res.OptimalQuantity, 10), 0.95)
	assert.Less(t, poissonCDF(res.OptimalQuantity-1, 10), 0.95)
}

func TestOptimizeInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   NewsvendorInput
	}{
		{name: "negative lambda", in: NewsvendorInput{Lambda: -1, UnitPrice: 1}},
		{name: "NaN lambda", in: NewsvendorInput{Lambda: math.NaN(), UnitPrice: 1}},
		{name: "infinite lambda", in: NewsvendorInput{Lambda: math.Inf(1), UnitPrice: 1}},
		{name: "zero price", in: NewsvendorInput{Lambda: 3, UnitPrice: 0}},
		{name: "negative cost", in: NewsvendorInput{Lambda: 3, UnitPrice: 2, UnitCost: -1}},
		{name: "service level of one", in: NewsvendorInput{Lambda: 3, UnitPrice: 2, ServiceLevel: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Optimize(tt.in)
			assert.ErrorIs(t, err, domain.ErrInvalidForecastInput)
		})
	}
}

func TestOptimalQuantityMonotonic(t *testing.T) {
	levels := []float64{0.05, 0.2, 0.5, 0.6, 0.8, 0.9, 0.95, 0.99}
	lambdas := []float64{0, 0.5, 1, 3, 7.5, 10, 25, 60, 150, 300}

	for _, s := range levels {
		prev := -1
		for _, l := range lambdas {
			res, err := Optimize(NewsvendorInput{Lambda: l, UnitPrice: 10, UnitCost: 4, ServiceLevel: s})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.OptimalQuantity, prev, "lambda=%v s=%v", l, s)
			prev = res.OptimalQuantity

			assert.GreaterOrEqual(t, res.StockoutProbability, 0.0)
			assert.LessOrEqual(t, res.StockoutProbability, 1.0)
			assert.GreaterOrEqual(t, res.WasteProbability, 0.0)
			assert.LessOrEqual(t, res.WasteProbability, 1.0)
		}
	}

	for _, l := range lambdas {
		prev := -1
		for _, s := range levels {
			res, err := Optimize(NewsvendorInput{Lambda: l, UnitPrice: 10, UnitCost: 4, ServiceLevel: s})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.OptimalQuantity, prev, "lambda=%v s=%v", l, s)
			prev = res.OptimalQuantity
		}
	}
}

func TestPoissonLargeLambdaDoesNotUnderflow(t *testing.T) {
	q := poissonQuantile(0.5, 900)
	assert.InDelta(t, 900, q, 2)
}

func TestConfidence(t *testing.T) {
	assert.Zero(t, Confidence(0, 0, 8))
	assert.Less(t, Confidence(3, 0, 8), Confidence(8, 0, 8))
	assert.Less(t, Confidence(8, 2, 8), Confidence(8, 1, 8))
	assert.Less(t, Confidence(8, 1, 8), Confidence(16, 1, 8))

	for n := 1; n < 50; n++ {
		for r := 0; r <= n; r++ {
			c := Confidence(n, r, 8)
			assert.GreaterOrEqual(t, c, 0.0)
			assert.LessOrEqual(t, c, 1.0)
		}
	}
}
