package forecast

import (
	"testing"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSKU() domain.SKU {
	return domain.SKU{
		ProductID:   "croissant",
		MarketID:    "m1",
		ProductName: "Butter Croissant",
		MarketName:  "Saturday Market",
		Category:    domain.CategoryBakery,
		Outdoor:     true,
	}
}

func mondayHistory() []domain.SaleRecord {
	return []domain.SaleRecord{
		sale("2024-05-06", 10),
		sale("2024-05-13", 12),
		sale("2024-05-20", 11),
		sale("2024-05-27", 13),
		sale("2024-04-29", 50),
	}
}

func TestBuilderBuild(t *testing.T) {
	created := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	b := NewBuilder(DefaultParams()).WithClock(func() time.Time { return created })

	f, err := b.Build(Request{
		SKU:       testSKU(),
		Date:      day("2024-06-03"),
		Weather:   domain.WeatherRain,
		History:   mondayHistory(),
		UnitPrice: 20,
		UnitCost:  8,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "Butter Croissant", f.ProductName)
	assert.Equal(t, day("2024-06-03"), f.ForecastForDate)
	assert.Equal(t, 5, f.HistoricalDataPointCount)
	assert.Equal(t, 1, f.OutliersRemoved)
	assert.Equal(t, domain.BaselineSourceSKU, f.BaselineSource)
	assert.InDelta(t, 11.5, f.BaselineForecast, 1e-9)
	assert.InDelta(t, 11.5*0.8, f.WeatherAdjustedForecast, 1e-9)
	assert.Equal(t, f.WeatherAdjustedForecast, f.LambdaPoisson)
	assert.Equal(t, f.LambdaPoisson, f.ExpectedDemand)
	assert.InDelta(t, 0.6, f.ServiceLevelTarget, 1e-12)
	assert.GreaterOrEqual(t, f.OptimalQuantity, 0)
	assert.Greater(t, f.ConfidenceLevel, 0.0)
	assert.LessOrEqual(t, f.ConfidenceLevel, 1.0)
	assert.Equal(t, created, f.CreatedAt)
}

func TestBuilderUnknownWeatherPassesThrough(t *testing.T) {
	f, err := NewBuilder(DefaultParams()).Build(Request{
		SKU:       testSKU(),
		Date:      day("2024-06-03"),
		History:   mondayHistory(),
		UnitPrice: 20,
		UnitCost:  8,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.WeatherNone, f.WeatherForecast)
	assert.Equal(t, f.BaselineForecast, f.WeatherAdjustedForecast)
}

func TestBuilderInsufficientHistory(t *testing.T) {
	b := NewBuilder(DefaultParams())
	req := Request{
		SKU:       testSKU(),
		Date:      day("2024-06-03"),
		History:   []domain.SaleRecord{sale("2024-05-27", 9)},
		UnitPrice: 4,
		UnitCost:  1,
	}

	_, err := b.Build(req)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)

	rate := 6.0
	req.FallbackRate = &rate
	f, err := b.Build(req)
	require.NoError(t, err)
	assert.Equal(t, domain.BaselineSourceFallback, f.BaselineSource)
	assert.Equal(t, 6.0, f.BaselineForecast)
	assert.Equal(t, 1, f.HistoricalDataPointCount)
	assert.InDelta(t, Confidence(1, 0, DefaultParams().ConfidenceScale), f.ConfidenceLevel, 1e-12)

	full, err := b.Build(Request{SKU: testSKU(), Date: day("2024-06-03"), History: mondayHistory(), UnitPrice: 4, UnitCost: 1})
	require.NoError(t, err)
	assert.Less(t, f.ConfidenceLevel, full.ConfidenceLevel)
}

func TestBuilderInvalidPrice(t *testing.T) {
	_, err := NewBuilder(DefaultParams()).Build(Request{
		SKU:       testSKU(),
		Date:      day("2024-06-03"),
		History:   mondayHistory(),
		UnitPrice: 0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidForecastInput)
}

func TestWeatherFactor(t *testing.T) {
	assert.Equal(t, 0.8, WeatherFactor(domain.CategoryBakery, domain.WeatherRain, true))
	assert.InDelta(t, 0.9, WeatherFactor(domain.CategoryBakery, domain.WeatherRain, false), 1e-12)
	assert.Greater(t, WeatherFactor(domain.CategoryColdBeverage, domain.WeatherSunny, true), 1.0)
	assert.Less(t, WeatherFactor(domain.CategoryHotBeverage, domain.WeatherSunny, true), 1.0)
	assert.Equal(t, 1.0, WeatherFactor("pastry", domain.WeatherNone, true))
	assert.Equal(t, 0.8, WeatherFactor("unknown", domain.WeatherRain, true))
}
