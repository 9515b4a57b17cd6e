package reconcile

import (
	"sort"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
)

// JoinedRow is a forecast paired with whatever actuals exist for its day.
type JoinedRow struct {
	Forecast  domain.ProductionForecast
	SoldQty   int
	HasSales  bool
	Inventory *domain.DailyInventory
}

type dayKey struct {
	sku  domain.SKUKey
	date time.Time
}

// JoinActuals pairs forecasts with realized sales and inventory by SKU and
// day. When a SKU has several forecasts for the same day (regenerated
// forecasts are appended, never updated) the most recently created one is
// used. Rows without sales or inventory are still returned and become
// pending comparisons.
func JoinActuals(forecasts []domain.ProductionForecast, sales []domain.SaleRecord, inventory []domain.DailyInventory) []JoinedRow {
	latest := make(map[dayKey]domain.ProductionForecast, len(forecasts))
	for _, f := range forecasts {
		k := dayKey{sku: f.Key(), date: domain.DateOf(f.ForecastForDate)}
		if cur, ok := latest[k]; ok && !newerForecast(f, cur) {
			continue
		}
		latest[k] = f
	}

	sold := make(map[dayKey]int)
	for _, s := range sales {
		sold[dayKey{sku: s.Key(), date: domain.DateOf(s.SaleDate)}] += s.QuantitySold
	}

	stock := make(map[dayKey]domain.DailyInventory)
	for _, inv := range inventory {
		stock[dayKey{sku: inv.Key(), date: domain.DateOf(inv.InventoryDate)}] = inv
	}

	rows := make([]JoinedRow, 0, len(latest))
	for k, f := range latest {
		row := JoinedRow{Forecast: f}
		if qty, ok := sold[k]; ok {
			row.SoldQty = qty
			row.HasSales = true
		}
		if inv, ok := stock[k]; ok {
			row.Inventory = &inv
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].Forecast, rows[j].Forecast
		if !a.ForecastForDate.Equal(b.ForecastForDate) {
			return a.ForecastForDate.Before(b.ForecastForDate)
		}
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		return a.Key().String() < b.Key().String()
	})

	return rows
}

func newerForecast(a, b domain.ProductionForecast) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
