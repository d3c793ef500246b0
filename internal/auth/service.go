package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cartage-erp/cartage-erp/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// EnsureAPICredentials returns the user's api_key/api_secret pair, generating
// only the missing parts. Existing credentials are never regenerated, so the
// pair stays stable across repeated logins.
func (s *Service) EnsureAPICredentials(ctx context.Context, user *User) (Credentials, error) {
	creds := Credentials{APIKey: user.APIKey, APISecret: user.APISecret}
	changed := false
	if creds.APIKey == "" {
		creds.APIKey = generateToken()
		changed = true
	}
	if creds.APISecret == "" {
		creds.APISecret = generateToken()
		changed = true
	}
	if changed {
		if err := s.repo.SaveAPICredentials(ctx, user.ID, creds.APIKey, creds.APISecret); err != nil {
			return Credentials{}, err
		}
		user.APIKey = creds.APIKey
		user.APISecret = creds.APISecret
	}
	return creds, nil
}

// FindByAPIKey resolves a user from the api_key half of a token.
func (s *Service) FindByAPIKey(ctx context.Context, apiKey string) (*User, error) {
	return s.repo.FindByAPIKey(ctx, apiKey)
}

// HasPermission reports whether the context user may perform action on the
// doctype. The user email is taken from the request context set by the token
// middleware.
func (s *Service) HasPermission(ctx context.Context, doctype, action string) (bool, error) {
	email := shared.UserFromContext(ctx)
	if email == "" {
		return false, nil
	}
	return s.repo.HasDoctypePermission(ctx, email, doctype, action)
}

// generateToken yields a 15-character opaque credential half.
func generateToken() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[:15]
}
