package purchasing

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartage-erp/cartage-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const orderColumns = `id, number, supplier, supplier_name, company, source_quotation,
	transaction_date, schedule_date, status, grand_total`

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(
		&po.ID, &po.Number, &po.Supplier, &po.SupplierName, &po.Company, &po.SourceQuotation,
		&po.TransactionDate, &po.ScheduleDate, &po.Status, &po.GrandTotal,
	)
	return po, err
}

// Get returns a purchase order and its lines.
func (r *Repository) Get(ctx context.Context, id int64) (PurchaseOrder, []OrderLine, error) {
	po, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, nil, ErrNotFound
		}
		return PurchaseOrder{}, nil, err
	}
	lines, err := r.ListLinesByOrderIDs(ctx, []int64{po.ID})
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, lines, nil
}

func filterClause(filters ListFilters, args *[]any) string {
	clause := ""
	if filters.Supplier != "" {
		*args = append(*args, filters.Supplier)
		clause += ` AND supplier = $` + strconv.Itoa(len(*args))
	}
	if filters.Status != "" {
		*args = append(*args, filters.Status)
		clause += ` AND status = $` + strconv.Itoa(len(*args))
	}
	if filters.SourceQuotation != "" {
		*args = append(*args, filters.SourceQuotation)
		clause += ` AND source_quotation = $` + strconv.Itoa(len(*args))
	}
	return clause
}

// List returns a page of purchase orders ordered by transaction date desc.
func (r *Repository) List(ctx context.Context, filters ListFilters, start, pageLength int) ([]PurchaseOrder, error) {
	args := []any{}
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE 1=1` + filterClause(filters, &args)
	args = append(args, pageLength)
	query += ` ORDER BY transaction_date DESC, id DESC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, start)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PurchaseOrder
	for rows.Next() {
		po, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, po)
	}
	return result, rows.Err()
}

// Count returns the number of purchase orders matching the filters.
func (r *Repository) Count(ctx context.Context, filters ListFilters) (int, error) {
	args := []any{}
	query := `SELECT COUNT(*) FROM purchase_orders WHERE 1=1` + filterClause(filters, &args)
	var total int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ListLinesByOrderIDs fetches lines for a batch of orders in one query.
func (r *Repository) ListLinesByOrderIDs(ctx context.Context, ids []int64) ([]OrderLine, error) {
	const query = `
		SELECT id, order_id, item_code, item_name, description, qty, rate, amount, uom,
			schedule_date, source_quotation, source_quotation_line
		FROM purchase_order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, id`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ItemCode, &l.ItemName, &l.Description,
			&l.Qty, &l.Rate, &l.Amount, &l.UOM,
			&l.ScheduleDate, &l.SourceQuotation, &l.SourceQuotationLine); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// Create inserts the purchase order header.
func (t *txRepo) Create(ctx context.Context, po PurchaseOrder) (int64, error) {
	const query = `
		INSERT INTO purchase_orders
			(number, supplier, supplier_name, company, source_quotation,
			 transaction_date, schedule_date, status, grand_total)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`

	var id int64
	err := t.tx.QueryRow(ctx, query,
		po.Number, po.Supplier, po.SupplierName, po.Company, po.SourceQuotation,
		po.TransactionDate, po.ScheduleDate, po.Status, po.GrandTotal,
	).Scan(&id)
	return id, err
}

// InsertLine inserts a purchase order line.
func (t *txRepo) InsertLine(ctx context.Context, line OrderLine) error {
	const query = `
		INSERT INTO purchase_order_lines
			(order_id, item_code, item_name, description, qty, rate, amount, uom,
			 schedule_date, source_quotation, source_quotation_line)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := t.tx.Exec(ctx, query,
		line.OrderID, line.ItemCode, line.ItemName, line.Description,
		line.Qty, line.Rate, line.Amount, line.UOM,
		line.ScheduleDate, line.SourceQuotation, line.SourceQuotationLine)
	return err
}

// UpdateStatus transitions the order's submission state.
func (t *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $2 WHERE id = $1`, id, status)
	return err
}
