package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cartage-erp/cartage-erp/internal/shared"
)

type memoryAuthRepo struct {
	users       map[string]*User
	permissions map[string]bool
	saves       int
}

func newMemoryAuthRepo() *memoryAuthRepo {
	return &memoryAuthRepo{
		users:       make(map[string]*User),
		permissions: make(map[string]bool),
	}
}

func (m *memoryAuthRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memoryAuthRepo) FindByAPIKey(_ context.Context, apiKey string) (*User, error) {
	for _, u := range m.users {
		if u.APIKey == apiKey {
			clone := *u
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryAuthRepo) SaveAPICredentials(_ context.Context, userID int64, apiKey, apiSecret string) error {
	m.saves++
	for _, u := range m.users {
		if u.ID == userID {
			u.APIKey = apiKey
			u.APISecret = apiSecret
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryAuthRepo) HasDoctypePermission(_ context.Context, email, doctype, action string) (bool, error) {
	return m.permissions[email+"|"+doctype+"|"+action], nil
}

func seedUser(t *testing.T, repo *memoryAuthRepo, email, password string, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &User{
		ID:           int64(len(repo.users) + 1),
		Email:        email,
		FullName:     "Test User",
		PasswordHash: string(hash),
		IsActive:     active,
	}
	repo.users[email] = u
	return u
}

func TestAuthenticate(t *testing.T) {
	repo := newMemoryAuthRepo()
	seedUser(t, repo, "broker@example.com", "s3cret-pass", true)
	seedUser(t, repo, "gone@example.com", "s3cret-pass", false)
	svc := NewService(repo)

	user, err := svc.Authenticate(context.Background(), "broker@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, "broker@example.com", user.Email)

	_, err = svc.Authenticate(context.Background(), "broker@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "s3cret-pass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "gone@example.com", "s3cret-pass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestEnsureAPICredentialsStableAcrossLogins(t *testing.T) {
	repo := newMemoryAuthRepo()
	seedUser(t, repo, "broker@example.com", "s3cret-pass", true)
	svc := NewService(repo)

	user, err := svc.Authenticate(context.Background(), "broker@example.com", "s3cret-pass")
	require.NoError(t, err)

	first, err := svc.EnsureAPICredentials(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, first.APIKey, 15)
	require.Len(t, first.APISecret, 15)
	require.Equal(t, 1, repo.saves)

	again, err := svc.Authenticate(context.Background(), "broker@example.com", "s3cret-pass")
	require.NoError(t, err)
	second, err := svc.EnsureAPICredentials(context.Background(), again)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.saves)
}

func TestEnsureAPICredentialsFillsMissingHalf(t *testing.T) {
	repo := newMemoryAuthRepo()
	u := seedUser(t, repo, "broker@example.com", "s3cret-pass", true)
	u.APIKey = "existing-api-key"
	svc := NewService(repo)

	creds, err := svc.EnsureAPICredentials(context.Background(), u)
	require.NoError(t, err)
	require.Equal(t, "existing-api-key", creds.APIKey)
	require.Len(t, creds.APISecret, 15)
}

func TestHasPermission(t *testing.T) {
	repo := newMemoryAuthRepo()
	repo.permissions["broker@example.com|Supplier Quotation|read"] = true
	svc := NewService(repo)

	ctx := shared.ContextWithUser(context.Background(), "broker@example.com")
	ok, err := svc.HasPermission(ctx, "Supplier Quotation", "read")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.HasPermission(ctx, "Purchase Order", "read")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.HasPermission(context.Background(), "Supplier Quotation", "read")
	require.NoError(t, err)
	require.False(t, ok)
}
