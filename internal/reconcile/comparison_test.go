package reconcile

import (
	"testing"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/stretchr/testify/assert"
)

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func forecastFor(productID, on string, qty, upper int) domain.ProductionForecast {
	return domain.ProductionForecast{
		ID:                      productID + "-" + on,
		ProductID:               productID,
		MarketID:                "m1",
		ProductName:             productID,
		MarketName:              "Main Street",
		ForecastForDate:         date(on),
		OptimalQuantity:         qty,
		PredictionIntervalUpper: upper,
		UnitPrice:               4,
		UnitCost:                1.5,
		CreatedAt:               date(on).Add(-12 * time.Hour),
	}
}

func inventoryFor(productID, on string, toShop, sold, leftover int) domain.DailyInventory {
	return domain.DailyInventory{
		ProductID:     productID,
		MarketID:      "m1",
		InventoryDate: date(on),
		ToShopQty:     toShop,
		SoldQty:       sold,
		LeftoverQty:   leftover,
	}
}

func TestBuildComparisonExamples(t *testing.T) {
	tests := []struct {
		name      string
		row       JoinedRow
		status    domain.ComparisonStatus
		diff      int
		wasteCost float64
		stockout  float64
	}{
		{
			name: "exact match sold out",
			row: JoinedRow{
				Forecast:  forecastFor("bagel", "2024-06-03", 20, 26),
				SoldQty:   20,
				HasSales:  true,
				Inventory: ptr(inventoryFor("bagel", "2024-06-03", 20, 20, 0)),
			},
			status: domain.StatusMatchedExact,
		},
		{
			name: "leftover drives waste",
			row: JoinedRow{
				Forecast:  forecastFor("bagel", "2024-06-03", 20, 26),
				SoldQty:   14,
				HasSales:  true,
				Inventory: ptr(inventoryFor("bagel", "2024-06-03", 20, 14, 6)),
			},
			status:    domain.StatusOverProduced,
			diff:      6,
			wasteCost: 9,
		},
		{
			name: "sold out under forecast",
			row: JoinedRow{
				Forecast:  forecastFor("bagel", "2024-06-03", 15, 22),
				SoldQty:   18,
				HasSales:  true,
				Inventory: ptr(inventoryFor("bagel", "2024-06-03", 18, 18, 0)),
			},
			status:   domain.StatusUnderProduced,
			diff:     -3,
			stockout: 16,
		},
		{
			name: "under forecast with stock left",
			row: JoinedRow{
				Forecast:  forecastFor("bagel", "2024-06-03", 15, 22),
				SoldQty:   18,
				HasSales:  true,
				Inventory: ptr(inventoryFor("bagel", "2024-06-03", 20, 18, 2)),
			},
			status:    domain.StatusUnderProduced,
			diff:      -3,
			wasteCost: 3,
		},
		{
			name: "no inventory falls back to surplus",
			row: JoinedRow{
				Forecast: forecastFor("bagel", "2024-06-03", 12, 18),
				SoldQty:  9,
				HasSales: true,
			},
			status:    domain.StatusOverProduced,
			diff:      3,
			wasteCost: 4.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := BuildComparison(tt.row)
			assert.Equal(t, tt.status, rec.Status)
			assert.Equal(t, tt.diff, rec.Diff)
			assert.Equal(t, rec.ForecastQty-rec.ActualQty, rec.Diff)
			assert.InDelta(t, tt.wasteCost, rec.WasteCost, 1e-9)
			assert.InDelta(t, tt.stockout, rec.StockoutRevenue, 1e-9)
		})
	}
}

func TestBuildComparisonStockoutUsesShortfallFloor(t *testing.T) {
	f := forecastFor("bagel", "2024-06-03", 10, 11)
	rec := BuildComparison(JoinedRow{
		Forecast:  f,
		SoldQty:   16,
		HasSales:  true,
		Inventory: ptr(inventoryFor("bagel", "2024-06-03", 16, 16, 0)),
	})

	assert.Equal(t, 6, rec.StockoutQty)
	assert.InDelta(t, 24.0, rec.StockoutRevenue, 1e-9)
}

func TestBuildComparisonPending(t *testing.T) {
	rec := BuildComparison(JoinedRow{Forecast: forecastFor("bagel", "2024-06-03", 10, 14)})

	assert.True(t, rec.IsPending())
	assert.Zero(t, rec.Diff)
	assert.Zero(t, rec.WasteCost)
	assert.Zero(t, rec.StockoutRevenue)
}

func TestBuildComparisonInventoryFallback(t *testing.T) {
	rec := BuildComparison(JoinedRow{
		Forecast:  forecastFor("bagel", "2024-06-03", 10, 14),
		Inventory: ptr(inventoryFor("bagel", "2024-06-03", 12, 8, 4)),
	})

	assert.Equal(t, domain.StatusOverProduced, rec.Status)
	assert.Equal(t, 8, rec.ActualQty)
	assert.Equal(t, 4, rec.WasteQty)
}

func TestDisplayNameIncludesVariant(t *testing.T) {
	f := forecastFor("bagel", "2024-06-03", 10, 14)
	f.ProductName = "Bagel"
	f.VariantName = "Sesame"

	assert.Equal(t, "Bagel (Sesame)", BuildComparison(JoinedRow{Forecast: f}).ProductName)
}

func ptr[T any](v T) *T {
	return &v
}
