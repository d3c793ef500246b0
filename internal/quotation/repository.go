package quotation

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

const quotationColumns = `id, number, supplier, supplier_name, company, transaction_date, valid_till,
	freight_mode, loading_charges, distance_km, location, remarks, grand_total,
	workflow_state, po_created, docstatus`

func scanQuotation(row pgx.Row) (Quotation, error) {
	var q Quotation
	err := row.Scan(
		&q.ID, &q.Number, &q.Supplier, &q.SupplierName, &q.Company, &q.TransactionDate, &q.ValidTill,
		&q.FreightMode, &q.LoadingCharges, &q.DistanceKM, &q.Location, &q.Remarks, &q.GrandTotal,
		&q.WorkflowState, &q.POCreated, &q.DocStatus,
	)
	return q, err
}

// Get returns a quotation and its lines by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Quotation, []Line, error) {
	q, err := scanQuotation(r.pool.QueryRow(ctx,
		`SELECT `+quotationColumns+` FROM supplier_quotations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quotation{}, nil, ErrNotFound
		}
		return Quotation{}, nil, err
	}
	lines, err := r.ListLinesByQuotationIDs(ctx, []int64{q.ID})
	if err != nil {
		return Quotation{}, nil, err
	}
	return q, lines, nil
}

// GetByNumber returns a quotation and its lines by document number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (Quotation, []Line, error) {
	q, err := scanQuotation(r.pool.QueryRow(ctx,
		`SELECT `+quotationColumns+` FROM supplier_quotations WHERE number = $1`, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quotation{}, nil, ErrNotFound
		}
		return Quotation{}, nil, err
	}
	lines, err := r.ListLinesByQuotationIDs(ctx, []int64{q.ID})
	if err != nil {
		return Quotation{}, nil, err
	}
	return q, lines, nil
}

func filterClause(filters ListFilters, args *[]any) string {
	clause := ""
	if filters.Supplier != "" {
		*args = append(*args, filters.Supplier)
		clause += ` AND supplier = $` + strconv.Itoa(len(*args))
	}
	if filters.WorkflowState != "" {
		*args = append(*args, filters.WorkflowState)
		clause += ` AND workflow_state = $` + strconv.Itoa(len(*args))
	}
	if filters.FreightMode != "" {
		*args = append(*args, filters.FreightMode)
		clause += ` AND freight_mode = $` + strconv.Itoa(len(*args))
	}
	return clause
}

// List returns a page of quotations ordered by transaction date descending.
func (r *Repository) List(ctx context.Context, filters ListFilters, start, pageLength int) ([]Quotation, error) {
	args := []any{}
	query := `SELECT ` + quotationColumns + ` FROM supplier_quotations WHERE 1=1` + filterClause(filters, &args)
	args = append(args, pageLength)
	query += ` ORDER BY transaction_date DESC, id DESC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, start)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	return result, rows.Err()
}

// Count returns the number of quotations matching the filters.
func (r *Repository) Count(ctx context.Context, filters ListFilters) (int, error) {
	args := []any{}
	query := `SELECT COUNT(*) FROM supplier_quotations WHERE 1=1` + filterClause(filters, &args)
	var total int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ListLinesByQuotationIDs fetches lines for a batch of quotations in one query.
func (r *Repository) ListLinesByQuotationIDs(ctx context.Context, ids []int64) ([]Line, error) {
	const query = `
		SELECT id, quotation_id, item_code, item_name, description, item_group, qty, rate, amount, uom
		FROM supplier_quotation_lines
		WHERE quotation_id = ANY($1)
		ORDER BY quotation_id, id`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.QuotationID, &l.ItemCode, &l.ItemName, &l.Description,
			&l.ItemGroup, &l.Qty, &l.Rate, &l.Amount, &l.UOM); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ListUnconverted returns numbers of quotations in the given workflow state
// whose conversion flag is still unset.
func (r *Repository) ListUnconverted(ctx context.Context, state string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT number FROM supplier_quotations WHERE workflow_state = $1 AND po_created = FALSE`, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// Create inserts the quotation header.
func (t *txRepo) Create(ctx context.Context, q Quotation) (int64, error) {
	const query = `
		INSERT INTO supplier_quotations
			(number, supplier, supplier_name, company, transaction_date, valid_till,
			 freight_mode, loading_charges, distance_km, location, remarks, grand_total,
			 workflow_state, po_created, docstatus)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id`

	var id int64
	err := t.tx.QueryRow(ctx, query,
		q.Number, q.Supplier, q.SupplierName, q.Company, q.TransactionDate, q.ValidTill,
		q.FreightMode, q.LoadingCharges, q.DistanceKM, q.Location, q.Remarks, q.GrandTotal,
		q.WorkflowState, q.POCreated, q.DocStatus,
	).Scan(&id)
	return id, err
}

// InsertLine inserts a quotation line.
func (t *txRepo) InsertLine(ctx context.Context, line Line) error {
	const query = `
		INSERT INTO supplier_quotation_lines
			(quotation_id, item_code, item_name, description, item_group, qty, rate, amount, uom)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := t.tx.Exec(ctx, query,
		line.QuotationID, line.ItemCode, line.ItemName, line.Description,
		line.ItemGroup, line.Qty, line.Rate, line.Amount, line.UOM)
	return err
}

// UpdateWorkflowState persists a new workflow state.
func (t *txRepo) UpdateWorkflowState(ctx context.Context, id int64, state string) error {
	_, err := t.tx.Exec(ctx, `UPDATE supplier_quotations SET workflow_state = $2 WHERE id = $1`, id, state)
	return err
}

// SetPOCreated flips the conversion flag.
func (t *txRepo) SetPOCreated(ctx context.Context, id int64, created bool) error {
	_, err := t.tx.Exec(ctx, `UPDATE supplier_quotations SET po_created = $2 WHERE id = $1`, id, created)
	return err
}
