package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cartage-erp/cartage-erp/internal/platform/httpx"
	"github.com/cartage-erp/cartage-erp/internal/shared"
)

// Handler wires the mobile login endpoint.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
}

type loginPayload struct {
	Usr string `json:"usr" validate:"required"`
	Pwd string `json:"pwd" validate:"required"`
}

type loginData struct {
	User      string `json:"user"`
	FullName  string `json:"full_name"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "usr and pwd are required")
		return
	}

	user, err := h.service.Authenticate(r.Context(), payload.Usr, payload.Pwd)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.JSON(w, http.StatusUnauthorized, httpx.Envelope{
				Status:  http.StatusUnauthorized,
				Success: false,
				Message: "Invalid login credentials",
			})
			return
		}
		h.logger.Error("login", slog.String("user", payload.Usr), slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	creds, err := h.service.EnsureAPICredentials(r.Context(), user)
	if err != nil {
		h.logger.Error("issue api credentials", slog.String("user", user.Email), slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	httpx.JSON(w, http.StatusOK, httpx.Envelope{
		Status:  http.StatusOK,
		Success: true,
		Message: "Login successful",
		Data: loginData{
			User:      user.Email,
			FullName:  user.FullName,
			APIKey:    creds.APIKey,
			APISecret: creds.APISecret,
		},
	})
}
