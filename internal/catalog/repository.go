package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed catalog lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindServiceItem returns one active purchasable item in the services group.
func (r *Repository) FindServiceItem(ctx context.Context) (Item, error) {
	const query = `
		SELECT id, code, name, item_group, stock_uom, is_purchase_item, disabled
		FROM items
		WHERE item_group = $1 AND is_purchase_item = TRUE AND disabled = FALSE
		ORDER BY id
		LIMIT 1`

	var item Item
	err := r.pool.QueryRow(ctx, query, ItemGroupServices).Scan(
		&item.ID, &item.Code, &item.Name, &item.ItemGroup,
		&item.StockUOM, &item.IsPurchaseItem, &item.Disabled,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

// GetPriceListRate resolves the rate for (item, price list).
func (r *Repository) GetPriceListRate(ctx context.Context, itemCode, priceList string) (float64, error) {
	const query = `SELECT rate FROM item_prices WHERE item_code = $1 AND price_list = $2 LIMIT 1`

	var rate float64
	err := r.pool.QueryRow(ctx, query, itemCode, priceList).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return rate, nil
}
