package reconcile

import (
	"testing"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinActualsSumsSalesAndAttachesInventory(t *testing.T) {
	forecasts := []domain.ProductionForecast{
		forecastFor("bagel", "2024-06-03", 20, 26),
		forecastFor("scone", "2024-06-03", 8, 12),
	}
	sales := []domain.SaleRecord{
		{ProductID: "bagel", MarketID: "m1", SaleDate: date("2024-06-03").Add(9 * time.Hour), QuantitySold: 12},
		{ProductID: "bagel", MarketID: "m1", SaleDate: date("2024-06-03").Add(14 * time.Hour), QuantitySold: 6},
		{ProductID: "bagel", MarketID: "m2", SaleDate: date("2024-06-03"), QuantitySold: 99},
	}
	inventory := []domain.DailyInventory{inventoryFor("bagel", "2024-06-03", 20, 18, 2)}

	rows := JoinActuals(forecasts, sales, inventory)
	require.Len(t, rows, 2)

	assert.Equal(t, "bagel", rows[0].Forecast.ProductID)
	assert.True(t, rows[0].HasSales)
	assert.Equal(t, 18, rows[0].SoldQty)
	require.NotNil(t, rows[0].Inventory)
	assert.Equal(t, 2, rows[0].Inventory.LeftoverQty)

	assert.Equal(t, "scone", rows[1].Forecast.ProductID)
	assert.False(t, rows[1].HasSales)
	assert.Nil(t, rows[1].Inventory)
	assert.True(t, BuildComparison(rows[1]).IsPending())
}

func TestJoinActualsPrefersLatestForecast(t *testing.T) {
	older := forecastFor("bagel", "2024-06-03", 20, 26)
	newer := forecastFor("bagel", "2024-06-03", 24, 30)
	newer.ID = "regenerated"
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	rows := JoinActuals([]domain.ProductionForecast{newer, older}, nil, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, "regenerated", rows[0].Forecast.ID)

	rows = JoinActuals([]domain.ProductionForecast{older, newer}, nil, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, "regenerated", rows[0].Forecast.ID)
}

func TestJoinActualsOrdersByDate(t *testing.T) {
	rows := JoinActuals([]domain.ProductionForecast{
		forecastFor("bagel", "2024-06-04", 10, 14),
		forecastFor("bagel", "2024-06-03", 10, 14),
	}, nil, nil)

	require.Len(t, rows, 2)
	assert.True(t, rows[0].Forecast.ForecastForDate.Before(rows[1].Forecast.ForecastForDate))
}
