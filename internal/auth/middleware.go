package auth

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cartage-erp/cartage-erp/internal/platform/httpx"
	"github.com/cartage-erp/cartage-erp/internal/shared"
)

// TokenMiddleware authenticates requests carrying an
// "Authorization: token <api_key>:<api_secret>" header.
type TokenMiddleware struct {
	logger  *slog.Logger
	service *Service
	cache   *CredentialCache
}

// NewTokenMiddleware constructs the middleware.
func NewTokenMiddleware(logger *slog.Logger, service *Service, cache *CredentialCache) *TokenMiddleware {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TokenMiddleware{logger: logger, service: service, cache: cache}
}

// Handler wraps next with token authentication.
func (m *TokenMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey, apiSecret, ok := parseTokenHeader(r.Header.Get("Authorization"))
		if !ok {
			httpx.Fail(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		email, wantSecret, cached := m.cache.Get(r.Context(), apiKey)
		if !cached {
			user, err := m.service.FindByAPIKey(r.Context(), apiKey)
			if err != nil {
				if !errors.Is(err, shared.ErrNotFound) {
					m.logger.Error("resolve api key", slog.Any("error", err))
				}
				httpx.Fail(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			if !user.IsActive {
				httpx.Fail(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			email, wantSecret = user.Email, user.APISecret
			m.cache.Set(r.Context(), apiKey, email, wantSecret)
		}

		if wantSecret == "" || subtle.ConstantTimeCompare([]byte(apiSecret), []byte(wantSecret)) != 1 {
			httpx.Fail(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.ContextWithUser(r.Context(), email)))
	})
}

func parseTokenHeader(header string) (apiKey, apiSecret string, ok bool) {
	const scheme = "token "
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", "", false
	}
	pair := strings.SplitN(header[len(scheme):], ":", 2)
	if len(pair) != 2 || pair[0] == "" || pair[1] == "" {
		return "", "", false
	}
	return pair[0], pair[1], true
}
