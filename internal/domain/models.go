// internal/domain/models.go
package domain

import "time"

// SKU is a product/variant sold at a market. Descriptive fields are copied
// into forecasts at creation time so later renames never rewrite history.
type SKU struct {
	ProductID    string  `json:"product_id" db:"product_id"`
	VariantID    string  `json:"variant_id,omitempty" db:"variant_id"`
	MarketID     string  `json:"market_id" db:"market_id"`
	ProductName  string  `json:"product_name" db:"product_name"`
	VariantName  string  `json:"variant_name,omitempty" db:"variant_name"`
	MarketName   string  `json:"market_name" db:"market_name"`
	Category     string  `json:"category" db:"category"`
	Outdoor      bool    `json:"outdoor" db:"outdoor"`
	DefaultPrice float64 `json:"default_price" db:"default_price"`
	DefaultCost  float64 `json:"default_cost" db:"default_cost"`
}

// Key returns the identity of the SKU.
func (s SKU) Key() SKUKey {
	return SKUKey{ProductID: s.ProductID, VariantID: s.VariantID, MarketID: s.MarketID}
}

// SKUKey identifies a product/variant/market combination.
type SKUKey struct {
	ProductID string
	VariantID string
	MarketID  string
}

func (k SKUKey) String() string {
	if k.VariantID == "" {
		return k.ProductID + "@" + k.MarketID
	}
	return k.ProductID + "/" + k.VariantID + "@" + k.MarketID
}

// SaleRecord is one row of the sales log.
type SaleRecord struct {
	ProductID    string    `json:"product_id" db:"product_id"`
	VariantID    string    `json:"variant_id,omitempty" db:"variant_id"`
	MarketID     string    `json:"market_id" db:"market_id"`
	SaleDate     time.Time `json:"sale_date" db:"sale_date"`
	QuantitySold int       `json:"quantity_sold" db:"quantity_sold"`
	PricePerUnit float64   `json:"price_per_unit" db:"price_per_unit"`
	CostPerUnit  float64   `json:"cost_per_unit" db:"cost_per_unit"`
}

// Key returns the SKU identity of the sale.
func (r SaleRecord) Key() SKUKey {
	return SKUKey{ProductID: r.ProductID, VariantID: r.VariantID, MarketID: r.MarketID}
}

// DailyInventory is the end-of-day stock record for a SKU.
type DailyInventory struct {
	ProductID     string    `json:"product_id" db:"product_id"`
	VariantID     string    `json:"variant_id,omitempty" db:"variant_id"`
	MarketID      string    `json:"market_id" db:"market_id"`
	InventoryDate time.Time `json:"inventory_date" db:"inventory_date"`
	ProducedQty   int       `json:"produced_qty" db:"produced_qty"`
	ToShopQty     int       `json:"to_shop_qty" db:"to_shop_qty"`
	SoldQty       int       `json:"sold_qty" db:"sold_qty"`
	WasteQty      int       `json:"waste_qty" db:"waste_qty"`
	LeftoverQty   int       `json:"leftover_qty" db:"leftover_qty"`
}

// Key returns the SKU identity of the inventory row.
func (r DailyInventory) Key() SKUKey {
	return SKUKey{ProductID: r.ProductID, VariantID: r.VariantID, MarketID: r.MarketID}
}

// WeatherForecast is the forecast condition for a market on a date.
type WeatherForecast struct {
	MarketID     string    `json:"market_id" db:"market_id"`
	ForecastDate time.Time `json:"forecast_date" db:"forecast_date"`
	Condition    Weather   `json:"condition" db:"condition"`
}

// DemandObservation is one historical (date, quantity sold) pair.
type DemandObservation struct {
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// ProductionForecast is the persisted, write-once forecast for a SKU and date.
type ProductionForecast struct {
	ID              string    `json:"id" db:"id"`
	ProductID       string    `json:"product_id" db:"product_id"`
	VariantID       string    `json:"variant_id,omitempty" db:"variant_id"`
	MarketID        string    `json:"market_id" db:"market_id"`
	ForecastForDate time.Time `json:"forecast_for_date" db:"forecast_for_date"`

	ProductName string `json:"product_name" db:"product_name"`
	VariantName string `json:"variant_name,omitempty" db:"variant_name"`
	MarketName  string `json:"market_name" db:"market_name"`
	Category    string `json:"category" db:"category"`

	WeatherForecast          Weather `json:"weather_forecast" db:"weather_forecast"`
	HistoricalDataPointCount int     `json:"historical_data_point_count" db:"historical_data_point_count"`
	OutliersRemoved          int     `json:"outliers_removed" db:"outliers_removed"`
	BaselineSource           string  `json:"baseline_source" db:"baseline_source"`

	BaselineForecast        float64 `json:"baseline_forecast" db:"baseline_forecast"`
	WeatherAdjustedForecast float64 `json:"weather_adjusted_forecast" db:"weather_adjusted_forecast"`
	LambdaPoisson           float64 `json:"lambda_poisson" db:"lambda_poisson"`
	OptimalQuantity         int     `json:"optimal_quantity" db:"optimal_quantity"`
	ServiceLevelTarget      float64 `json:"service_level_target" db:"service_level_target"`
	StockoutProbability     float64 `json:"stockout_probability" db:"stockout_probability"`
	WasteProbability        float64 `json:"waste_probability" db:"waste_probability"`
	ConfidenceLevel         float64 `json:"confidence_level" db:"confidence_level"`
	PredictionIntervalLower int     `json:"prediction_interval_lower" db:"prediction_interval_lower"`
	PredictionIntervalUpper int     `json:"prediction_interval_upper" db:"prediction_interval_upper"`

	UnitPrice      float64 `json:"unit_price" db:"unit_price"`
	UnitCost       float64 `json:"unit_cost" db:"unit_cost"`
	ExpectedDemand float64 `json:"expected_demand" db:"expected_demand"`
	ExpectedProfit float64 `json:"expected_profit" db:"expected_profit"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Key returns the SKU identity of the forecast.
func (f ProductionForecast) Key() SKUKey {
	return SKUKey{ProductID: f.ProductID, VariantID: f.VariantID, MarketID: f.MarketID}
}

// Baseline sources recorded on a forecast.
const (
	BaselineSourceSKU      = "sku"
	BaselineSourceFallback = "fallback"
)

// ForecastOutcome reports the result of forecasting one SKU in a batch.
type ForecastOutcome struct {
	ProductID string              `json:"product_id"`
	VariantID string              `json:"variant_id,omitempty"`
	MarketID  string              `json:"market_id"`
	Forecast  *ProductionForecast `json:"forecast,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// ForecastBatchResult holds per-SKU successes and failures of a batch.
type ForecastBatchResult struct {
	Date      string            `json:"date"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Outcomes  []ForecastOutcome `json:"outcomes"`
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"
