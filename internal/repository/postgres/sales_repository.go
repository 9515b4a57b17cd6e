package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/andresuchdata/bakeplan/internal/repository"
	"github.com/jmoiron/sqlx"
)

type salesRepository struct {
	db *DB
}

func NewSalesRepository(db *DB) repository.SalesRepository {
	return &salesRepository{db: db}
}

func (r *salesRepository) History(ctx context.Context, key domain.SKUKey, from, to time.Time) ([]domain.SaleRecord, error) {
	query := `
		SELECT product_id, variant_id, market_id, sale_date, quantity_sold, price_per_unit, cost_per_unit
		FROM sales_log
		WHERE product_id = $1 AND variant_id = $2 AND market_id = $3
		  AND sale_date >= $4::date AND sale_date < $5::date
		ORDER BY sale_date
	`

	var rows []domain.SaleRecord
	if err := r.db.SelectContext(ctx, &rows, query,
		key.ProductID, key.VariantID, key.MarketID, domain.DateOf(from), domain.DateOf(to)); err != nil {
		return nil, fmt.Errorf("error getting sales history for %s: %w", key, err)
	}
	return rows, nil
}

func (r *salesRepository) ListByRange(ctx context.Context, from, to time.Time, marketID string) ([]domain.SaleRecord, error) {
	args := []interface{}{domain.DateOf(from), domain.DateOf(to)}
	conditions := []string{"sale_date BETWEEN $1::date AND $2::date"}
	conditions, args = marketClause(conditions, args, "", marketID)

	query := `
		SELECT product_id, variant_id, market_id, sale_date, quantity_sold, price_per_unit, cost_per_unit
		FROM sales_log` + where(conditions) + `
		ORDER BY sale_date
	`

	var rows []domain.SaleRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting sales: %w", err)
	}
	return rows, nil
}

func (r *salesRepository) CategoryDailyAverage(ctx context.Context, category, marketID string, from, to time.Time) (float64, int, error) {
	query := `
		WITH sku_days AS (
			SELECT s.product_id, s.variant_id, s.sale_date, SUM(s.quantity_sold) AS qty
			FROM sales_log s
			JOIN skus k ON k.product_id = s.product_id AND k.variant_id = s.variant_id AND k.market_id = s.market_id
			WHERE k.category = $1 AND s.market_id = $2
			  AND s.sale_date >= $3::date AND s.sale_date < $4::date
			GROUP BY s.product_id, s.variant_id, s.sale_date
		)
		SELECT COALESCE(AVG(qty), 0)::float AS rate, COUNT(*) AS days
		FROM sku_days
	`

	var out struct {
		Rate float64 `db:"rate"`
		Days int     `db:"days"`
	}
	if err := r.db.GetContext(ctx, &out, query, category, marketID, domain.DateOf(from), domain.DateOf(to)); err != nil {
		return 0, 0, fmt.Errorf("error getting category average for %s at %s: %w", category, marketID, err)
	}
	return out.Rate, out.Days, nil
}

// salesInsertChunk keeps one statement well under the 65535 bind parameter
// limit (7 columns per row).
const salesInsertChunk = 1000

const insertSalesQuery = `
		INSERT INTO sales_log (product_id, variant_id, market_id, sale_date, quantity_sold, price_per_unit, cost_per_unit)
		VALUES (:product_id, :variant_id, :market_id, :sale_date, :quantity_sold, :price_per_unit, :cost_per_unit)`

func (r *salesRepository) InsertSales(ctx context.Context, sales []domain.SaleRecord) error {
	if len(sales) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// sqlx expands a slice into one multi-row VALUES list.
		for start := 0; start < len(sales); start += salesInsertChunk {
			end := min(start+salesInsertChunk, len(sales))
			if _, err := tx.NamedExecContext(ctx, insertSalesQuery, sales[start:end]); err != nil {
				return fmt.Errorf("failed to insert sales rows %d-%d: %w", start, end-1, err)
			}
		}
		return nil
	})
}
