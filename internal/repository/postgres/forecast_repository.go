package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/andresuchdata/bakeplan/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const forecastColumns = `
	id, product_id, variant_id, market_id, forecast_for_date,
	product_name, variant_name, market_name, category,
	weather_forecast, historical_data_point_count, outliers_removed, baseline_source,
	baseline_forecast, weather_adjusted_forecast, lambda_poisson, optimal_quantity,
	service_level_target, stockout_probability, waste_probability, confidence_level,
	prediction_interval_lower, prediction_interval_upper,
	unit_price, unit_cost, expected_demand, expected_profit, created_at`

type forecastRepository struct {
	db *DB
}

func NewForecastRepository(db *DB) repository.ForecastRepository {
	return &forecastRepository{db: db}
}

func (r *forecastRepository) Append(ctx context.Context, forecasts []domain.ProductionForecast) error {
	if len(forecasts) == 0 {
		return nil
	}

	query := `
		INSERT INTO production_forecasts (` + forecastColumns + `)
		VALUES (
			:id, :product_id, :variant_id, :market_id, :forecast_for_date,
			:product_name, :variant_name, :market_name, :category,
			:weather_forecast, :historical_data_point_count, :outliers_removed, :baseline_source,
			:baseline_forecast, :weather_adjusted_forecast, :lambda_poisson, :optimal_quantity,
			:service_level_target, :stockout_probability, :waste_probability, :confidence_level,
			:prediction_interval_lower, :prediction_interval_upper,
			:unit_price, :unit_cost, :expected_demand, :expected_profit, :created_at
		)
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, f := range forecasts {
			if _, err := tx.NamedExecContext(ctx, query, f); err != nil {
				return fmt.Errorf("failed to append forecast %s for %s: %w",
					f.Key(), f.ForecastForDate.Format(domain.DateLayout), err)
			}
		}
		return nil
	})
}

func (r *forecastRepository) ListByDate(ctx context.Context, date time.Time, marketID string) ([]domain.ProductionForecast, error) {
	return r.ListByRange(ctx, date, date, marketID)
}

func (r *forecastRepository) ListByRange(ctx context.Context, from, to time.Time, marketID string) ([]domain.ProductionForecast, error) {
	args := []interface{}{domain.DateOf(from), domain.DateOf(to)}
	conditions := []string{"forecast_for_date BETWEEN $1::date AND $2::date"}
	conditions, args = marketClause(conditions, args, "", marketID)

	query := `SELECT ` + forecastColumns + ` FROM production_forecasts` + where(conditions) +
		` ORDER BY forecast_for_date, product_name, created_at`

	var rows []domain.ProductionForecast
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting forecasts: %w", err)
	}
	return rows, nil
}

func (r *forecastRepository) DeleteByDate(ctx context.Context, date time.Time, marketID string) (int64, error) {
	args := []interface{}{domain.DateOf(date)}
	conditions := []string{"forecast_for_date = $1::date"}
	conditions, args = marketClause(conditions, args, "", marketID)

	var deleted int64
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM production_forecasts`+where(conditions), args...)
		if err != nil {
			return fmt.Errorf("error deleting forecasts: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("date", date.Format(domain.DateLayout)).
		Str("market_id", marketID).
		Int64("deleted", deleted).
		Msg("forecasts deleted")
	return deleted, nil
}
