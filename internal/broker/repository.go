package broker

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a broker record.
func (r *Repository) Create(ctx context.Context, b Broker) (Broker, error) {
	const query = `
		INSERT INTO brokers (number, broker_name, item_name, item_rate, taxes, vehicle_number, docstatus, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		b.Number, b.BrokerName, b.ItemName, b.ItemRate, b.Taxes, b.VehicleNumber, b.DocStatus, b.CreatedAt,
	).Scan(&b.ID)
	if err != nil {
		return Broker{}, err
	}
	return b, nil
}

// List returns a page of brokers ordered by creation time descending.
func (r *Repository) List(ctx context.Context, start, pageSize int) ([]Broker, error) {
	const query = `
		SELECT id, number, broker_name, item_name, item_rate, taxes, vehicle_number, docstatus, created_at
		FROM brokers
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, pageSize, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brokers []Broker
	for rows.Next() {
		var b Broker
		if err := rows.Scan(&b.ID, &b.Number, &b.BrokerName, &b.ItemName, &b.ItemRate,
			&b.Taxes, &b.VehicleNumber, &b.DocStatus, &b.CreatedAt); err != nil {
			return nil, err
		}
		brokers = append(brokers, b)
	}
	return brokers, rows.Err()
}

// Count returns the total number of broker records.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM brokers`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
