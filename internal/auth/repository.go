package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartage-erp/cartage-erp/internal/shared"
)

// Repository describes the persistence operations the service relies on.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByAPIKey(ctx context.Context, apiKey string) (*User, error)
	SaveAPICredentials(ctx context.Context, userID int64, apiKey, apiSecret string) error
	HasDoctypePermission(ctx context.Context, email, doctype, action string) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const userColumns = `id, email, full_name, password_hash, COALESCE(api_key, ''), COALESCE(api_secret, ''), is_active, created_at, updated_at`

func (r *repository) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.APIKey, &u.APISecret,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *repository) FindByAPIKey(ctx context.Context, apiKey string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE api_key = $1`, apiKey))
}

func (r *repository) SaveAPICredentials(ctx context.Context, userID int64, apiKey, apiSecret string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET api_key = $2, api_secret = $3, updated_at = NOW() WHERE id = $1`,
		userID, apiKey, apiSecret)
	return err
}

func (r *repository) HasDoctypePermission(ctx context.Context, email, doctype, action string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM user_doctype_permissions
			WHERE user_email = $1 AND doctype = $2 AND action = $3
		)`
	var allowed bool
	if err := r.pool.QueryRow(ctx, query, email, doctype, action).Scan(&allowed); err != nil {
		return false, err
	}
	return allowed, nil
}
