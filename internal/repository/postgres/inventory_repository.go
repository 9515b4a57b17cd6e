package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/andresuchdata/bakeplan/internal/repository"
	"github.com/jmoiron/sqlx"
)

type inventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) repository.InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) ListByDate(ctx context.Context, date time.Time, marketID string) ([]domain.DailyInventory, error) {
	return r.ListByRange(ctx, date, date, marketID)
}

func (r *inventoryRepository) ListByRange(ctx context.Context, from, to time.Time, marketID string) ([]domain.DailyInventory, error) {
	args := []interface{}{domain.DateOf(from), domain.DateOf(to)}
	conditions := []string{"inventory_date BETWEEN $1::date AND $2::date"}
	conditions, args = marketClause(conditions, args, "", marketID)

	query := `
		SELECT product_id, variant_id, market_id, inventory_date,
		       produced_qty, to_shop_qty, sold_qty, waste_qty, leftover_qty
		FROM daily_inventory` + where(conditions) + `
		ORDER BY inventory_date
	`

	var rows []domain.DailyInventory
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting daily inventory: %w", err)
	}
	return rows, nil
}

func (r *inventoryRepository) UpsertInventory(ctx context.Context, rows []domain.DailyInventory) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO daily_inventory (
			product_id, variant_id, market_id, inventory_date,
			produced_qty, to_shop_qty, sold_qty, waste_qty, leftover_qty, updated_at
		) VALUES (
			:product_id, :variant_id, :market_id, :inventory_date,
			:produced_qty, :to_shop_qty, :sold_qty, :waste_qty, :leftover_qty, NOW()
		)
		ON CONFLICT (product_id, variant_id, market_id, inventory_date)
		DO UPDATE SET
			produced_qty = EXCLUDED.produced_qty,
			to_shop_qty = EXCLUDED.to_shop_qty,
			sold_qty = EXCLUDED.sold_qty,
			waste_qty = EXCLUDED.waste_qty,
			leftover_qty = EXCLUDED.leftover_qty,
			updated_at = NOW()
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row); err != nil {
				return fmt.Errorf("failed to upsert inventory for %s: %w", row.Key(), err)
			}
		}
		return nil
	})
}
