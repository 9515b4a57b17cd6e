package domain

import "time"

// ComparisonRecord pairs a forecast with realized sales and inventory.
type ComparisonRecord struct {
	ProductID       string           `json:"product_id"`
	VariantID       string           `json:"variant_id,omitempty"`
	MarketID        string           `json:"market_id"`
	ProductName     string           `json:"product_name"`
	MarketName      string           `json:"market_name"`
	Date            time.Time        `json:"date"`
	ForecastQty     int              `json:"forecast_qty"`
	ActualQty       int              `json:"actual_qty"`
	ToShopQty       int              `json:"to_shop_qty"`
	LeftoverQty     int              `json:"leftover_qty"`
	HasInventory    bool             `json:"has_inventory"`
	Diff            int              `json:"diff"`
	WasteQty        int              `json:"waste_qty"`
	WasteCost       float64          `json:"waste_cost"`
	StockoutQty     int              `json:"stockout_qty"`
	StockoutRevenue float64          `json:"stockout_revenue"`
	Status          ComparisonStatus `json:"status"`
}

// IsPending reports whether actual sales are still missing.
func (r ComparisonRecord) IsPending() bool {
	return r.Status == StatusPending
}

// AccuracySummary holds totals across an analysed range.
type AccuracySummary struct {
	OverallAccuracy      float64 `json:"overall_accuracy"`
	OverallBiasPercent   float64 `json:"overall_bias_percent"`
	TotalForecastQty     int     `json:"total_forecast_qty"`
	TotalActualQty       int     `json:"total_actual_qty"`
	TotalWasteQty        int     `json:"total_waste_qty"`
	TotalWasteCost       float64 `json:"total_waste_cost"`
	TotalStockoutQty     int     `json:"total_stockout_qty"`
	TotalStockoutRevenue float64 `json:"total_stockout_revenue"`
	DaysWithData         int     `json:"days_with_data"`
	TotalDays            int     `json:"total_days"`
	RecordCount          int     `json:"record_count"`
	PendingCount         int     `json:"pending_count"`
}

// DailyTrendPoint is one day of the accuracy trend.
type DailyTrendPoint struct {
	Date            string   `json:"date"`
	Accuracy        *float64 `json:"accuracy"`
	BiasPercent     float64  `json:"bias_percent"`
	WasteCost       float64  `json:"waste_cost"`
	StockoutRevenue float64  `json:"stockout_revenue"`
	SampleSize      int      `json:"sample_size"`
	PendingCount    int      `json:"pending_count"`
}

// DayAccuracy is the accuracy for one weekday. Accuracy is nil when there is no data.
type DayAccuracy struct {
	Weekday     time.Weekday `json:"weekday"`
	Name        string       `json:"name"`
	Accuracy    *float64     `json:"accuracy"`
	BiasPercent float64      `json:"bias_percent"`
	SampleSize  int          `json:"sample_size"`
	LossCost    float64      `json:"loss_cost"`
}

// ProductAccuracy is the accuracy for one product across the range.
type ProductAccuracy struct {
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name"`
	Accuracy        float64 `json:"accuracy"`
	BiasPercent     float64 `json:"bias_percent"`
	SampleSize      int     `json:"sample_size"`
	WasteCost       float64 `json:"waste_cost"`
	StockoutRevenue float64 `json:"stockout_revenue"`
}

// MarketAccuracy is the accuracy for one market across the range.
type MarketAccuracy struct {
	MarketID        string  `json:"market_id"`
	MarketName      string  `json:"market_name"`
	Accuracy        float64 `json:"accuracy"`
	BiasPercent     float64 `json:"bias_percent"`
	SampleSize      int     `json:"sample_size"`
	WasteCost       float64 `json:"waste_cost"`
	StockoutRevenue float64 `json:"stockout_revenue"`
}

// Recommendation is a prioritized, targeted suggestion.
type Recommendation struct {
	Type       string  `json:"type"`
	Target     string  `json:"target"`
	Issue      string  `json:"issue"`
	Suggestion string  `json:"suggestion"`
	Priority   string  `json:"priority"`
	Cost       float64 `json:"cost"`
}

// AccuracyAnalysisResult is the full accuracy report for a date range.
type AccuracyAnalysisResult struct {
	From             string            `json:"from"`
	To               string            `json:"to"`
	MarketID         string            `json:"market_id,omitempty"`
	Summary          AccuracySummary   `json:"summary"`
	DailyTrend       []DailyTrendPoint `json:"daily_trend"`
	DayAccuracy      []DayAccuracy     `json:"day_accuracy"`
	ProductAccuracy  []ProductAccuracy `json:"product_accuracy"`
	TopPerformers    []ProductAccuracy `json:"top_performers"`
	NeedsImprovement []ProductAccuracy `json:"needs_improvement"`
	MarketAccuracy   []MarketAccuracy  `json:"market_accuracy"`
	Recommendations  []Recommendation  `json:"recommendations"`
}

// AnalysisFilter scopes an accuracy analysis.
type AnalysisFilter struct {
	From     time.Time
	To       time.Time
	MarketID string
}
