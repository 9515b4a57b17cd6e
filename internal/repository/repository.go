// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
)

// Date ranges are inclusive calendar days unless stated otherwise. An empty
// marketID matches every market.

type CatalogRepository interface {
	ListSKUs(ctx context.Context, marketID string) ([]domain.SKU, error)
	UpsertSKUs(ctx context.Context, skus []domain.SKU) error
}

type SalesRepository interface {
	// History returns sales for one SKU with from <= sale_date < to.
	History(ctx context.Context, key domain.SKUKey, from, to time.Time) ([]domain.SaleRecord, error)
	ListByRange(ctx context.Context, from, to time.Time, marketID string) ([]domain.SaleRecord, error)
	// CategoryDailyAverage returns the mean units sold per SKU-day for a
	// category at a market with from <= sale_date < to, and the number of
	// SKU-days it was computed from.
	CategoryDailyAverage(ctx context.Context, category, marketID string, from, to time.Time) (float64, int, error)
	InsertSales(ctx context.Context, sales []domain.SaleRecord) error
}

type WeatherRepository interface {
	// ForecastFor reports false when no forecast was recorded.
	ForecastFor(ctx context.Context, marketID string, date time.Time) (domain.WeatherForecast, bool, error)
	UpsertWeather(ctx context.Context, rows []domain.WeatherForecast) error
}

// ForecastRepository is append-only. Regenerating a forecast appends a new
// row; rows are only ever removed by an explicit delete of a whole day.
type ForecastRepository interface {
	Append(ctx context.Context, forecasts []domain.ProductionForecast) error
	ListByDate(ctx context.Context, date time.Time, marketID string) ([]domain.ProductionForecast, error)
	ListByRange(ctx context.Context, from, to time.Time, marketID string) ([]domain.ProductionForecast, error)
	DeleteByDate(ctx context.Context, date time.Time, marketID string) (int64, error)
}

type InventoryRepository interface {
	ListByDate(ctx context.Context, date time.Time, marketID string) ([]domain.DailyInventory, error)
	ListByRange(ctx context.Context, from, to time.Time, marketID string) ([]domain.DailyInventory, error)
	UpsertInventory(ctx context.Context, rows []domain.DailyInventory) error
}
