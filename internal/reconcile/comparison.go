package reconcile

import (
	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/shopspring/decimal"
)

// BuildComparison derives the comparison record for one joined row.
//
// Waste prefers the leftover quantity measured by inventory tracking and
// only falls back to the forecast surplus when no inventory row exists.
// Stockout revenue is only counted when inventory shows the SKU sold out
// and the forecast fell short of sales; the lost units are estimated as the
// forecast's upper prediction bound minus what was sent to the shop, and
// never less than the observed shortfall.
func BuildComparison(row JoinedRow) domain.ComparisonRecord {
	f := row.Forecast
	rec := domain.ComparisonRecord{
		ProductID:   f.ProductID,
		VariantID:   f.VariantID,
		MarketID:    f.MarketID,
		ProductName: displayName(f),
		MarketName:  f.MarketName,
		Date:        domain.DateOf(f.ForecastForDate),
		ForecastQty: f.OptimalQuantity,
	}

	if row.Inventory != nil {
		rec.HasInventory = true
		rec.ToShopQty = row.Inventory.ToShopQty
		rec.LeftoverQty = row.Inventory.LeftoverQty
	}

	switch {
	case row.HasSales:
		rec.ActualQty = row.SoldQty
	case row.Inventory != nil:
		rec.ActualQty = row.Inventory.SoldQty
	default:
		rec.Status = domain.StatusPending
		return rec
	}

	rec.Diff = rec.ForecastQty - rec.ActualQty
	switch {
	case rec.Diff > 0:
		rec.Status = domain.StatusOverProduced
	case rec.Diff < 0:
		rec.Status = domain.StatusUnderProduced
	default:
		rec.Status = domain.StatusMatchedExact
	}

	if rec.HasInventory {
		rec.WasteQty = max(rec.LeftoverQty, 0)
	} else {
		rec.WasteQty = max(rec.Diff, 0)
	}
	rec.WasteCost = money(rec.WasteQty, f.UnitCost)

	if rec.HasInventory && rec.LeftoverQty == 0 && rec.Diff < 0 {
		supplied := rec.ToShopQty
		if supplied <= 0 {
			supplied = rec.ActualQty
		}
		rec.StockoutQty = max(f.PredictionIntervalUpper-supplied, -rec.Diff, 0)
		rec.StockoutRevenue = money(rec.StockoutQty, f.UnitPrice)
	}

	return rec
}

// BuildComparisons derives comparison records for all joined rows.
func BuildComparisons(rows []JoinedRow) []domain.ComparisonRecord {
	out := make([]domain.ComparisonRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, BuildComparison(row))
	}
	return out
}

func money(qty int, unit float64) float64 {
	return decimal.NewFromInt(int64(qty)).Mul(decimal.NewFromFloat(unit)).Round(2).InexactFloat64()
}

func displayName(f domain.ProductionForecast) string {
	if f.VariantName == "" {
		return f.ProductName
	}
	return f.ProductName + " (" + f.VariantName + ")"
}
