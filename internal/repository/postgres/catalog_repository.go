package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/andresuchdata/bakeplan/internal/repository"
	"github.com/jmoiron/sqlx"
)

type catalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) repository.CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListSKUs(ctx context.Context, marketID string) ([]domain.SKU, error) {
	var args []interface{}
	conditions := []string{"active"}
	conditions, args = marketClause(conditions, args, "", marketID)

	query := `
		SELECT product_id, variant_id, market_id, product_name, variant_name, market_name,
		       category, outdoor, default_price, default_cost
		FROM skus` + where(conditions) + `
		ORDER BY market_id, product_name, variant_name
	`

	var skus []domain.SKU
	if err := r.db.SelectContext(ctx, &skus, query, args...); err != nil {
		return nil, fmt.Errorf("error getting skus: %w", err)
	}
	return skus, nil
}

func (r *catalogRepository) UpsertSKUs(ctx context.Context, skus []domain.SKU) error {
	if len(skus) == 0 {
		return nil
	}

	query := `
		INSERT INTO skus (
			product_id, variant_id, market_id, product_name, variant_name, market_name,
			category, outdoor, default_price, default_cost, active, updated_at
		) VALUES (
			:product_id, :variant_id, :market_id, :product_name, :variant_name, :market_name,
			:category, :outdoor, :default_price, :default_cost, TRUE, NOW()
		)
		ON CONFLICT (product_id, variant_id, market_id)
		DO UPDATE SET
			product_name = EXCLUDED.product_name,
			variant_name = EXCLUDED.variant_name,
			market_name = EXCLUDED.market_name,
			category = EXCLUDED.category,
			outdoor = EXCLUDED.outdoor,
			default_price = EXCLUDED.default_price,
			default_cost = EXCLUDED.default_cost,
			active = TRUE,
			updated_at = NOW()
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, sku := range skus {
			if _, err := stmt.ExecContext(ctx, sku); err != nil {
				return fmt.Errorf("failed to upsert sku %s: %w", sku.Key(), err)
			}
		}
		return nil
	})
}

type weatherRepository struct {
	db *DB
}

func NewWeatherRepository(db *DB) repository.WeatherRepository {
	return &weatherRepository{db: db}
}

func (r *weatherRepository) ForecastFor(ctx context.Context, marketID string, date time.Time) (domain.WeatherForecast, bool, error) {
	query := `
		SELECT market_id, forecast_date, condition
		FROM weather_forecasts
		WHERE market_id = $1 AND forecast_date = $2::date
	`

	var row domain.WeatherForecast
	err := r.db.GetContext(ctx, &row, query, marketID, domain.DateOf(date))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WeatherForecast{}, false, nil
	}
	if err != nil {
		return domain.WeatherForecast{}, false, fmt.Errorf("error getting weather for %s: %w", marketID, err)
	}
	return row, true, nil
}

func (r *weatherRepository) UpsertWeather(ctx context.Context, rows []domain.WeatherForecast) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO weather_forecasts (market_id, forecast_date, condition, updated_at)
		VALUES (:market_id, :forecast_date, :condition, NOW())
		ON CONFLICT (market_id, forecast_date)
		DO UPDATE SET condition = EXCLUDED.condition, updated_at = NOW()
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, row := range rows {
			if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
				return fmt.Errorf("failed to upsert weather for %s: %w", row.MarketID, err)
			}
		}
		return nil
	})
}
