package forecast

import (
	"testing"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func observations(values ...float64) []domain.DemandObservation {
	start := day("2024-01-01")
	obs := make([]domain.DemandObservation, len(values))
	for i, v := range values {
		obs[i] = domain.DemandObservation{Date: start.Add(time.Duration(i) * 24 * time.Hour), Quantity: v}
	}
	return obs
}

func quantities(obs []domain.DemandObservation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.Quantity
	}
	return out
}

func TestFilterOutliersExample(t *testing.T) {
	res := FilterOutliers(observations(10, 12, 11, 13, 50), 3)

	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, []float64{10, 12, 11, 13}, quantities(res.Observations))
	assert.InDelta(t, 11.5, EstimateBaseline(res.Observations, 1), 1e-9)
}

func TestFilterOutliersZeroMAD(t *testing.T) {
	res := FilterOutliers(observations(10, 10, 10, 10, 50), 3)

	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, []float64{10, 10, 10, 10}, quantities(res.Observations))
}

func TestFilterOutliersConstantSample(t *testing.T) {
	res := FilterOutliers(observations(7, 7, 7), 3)

	assert.Zero(t, res.Removed)
	assert.Len(t, res.Observations, 3)
}

func TestFilterOutliersKeepsAtLeastTwo(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		k      float64
	}{
		{name: "tiny threshold", values: []float64{1, 5, 9, 40, 100, 1000}, k: 0.0001},
		{name: "two points", values: []float64{1, 1e9}, k: 3},
		{name: "one point", values: []float64{4}, k: 3},
		{name: "extreme spread", values: []float64{0, 1e6, 2e6, 5e9}, k: 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := FilterOutliers(observations(tt.values...), tt.k)
			want := 2
			if len(tt.values) < 2 {
				want = len(tt.values)
			}
			assert.GreaterOrEqual(t, len(res.Observations), want)
			assert.Equal(t, len(tt.values)-len(res.Observations), res.Removed)
		})
	}
}

func TestEstimateBaseline(t *testing.T) {
	obs := observations(10, 12, 11, 13)

	first := EstimateBaseline(obs, 0.8)
	second := EstimateBaseline(obs, 0.8)
	require.Equal(t, first, second)

	// Newest observations weigh more when decaying.
	assert.Greater(t, EstimateBaseline(observations(1, 1, 1, 10), 0.5), EstimateBaseline(observations(1, 1, 1, 10), 1))
	assert.Zero(t, EstimateBaseline(nil, 1))
	assert.InDelta(t, 11.5, EstimateBaseline(obs, 0), 1e-9)
}
