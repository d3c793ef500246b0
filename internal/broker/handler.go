package broker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cartage-erp/cartage-erp/internal/platform/httpx"
	"github.com/cartage-erp/cartage-erp/internal/shared"
)

// PermissionChecker resolves doctype permissions for the request user.
type PermissionChecker interface {
	HasPermission(ctx context.Context, doctype, action string) (bool, error)
}

// Handler wires the mobile broker endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	perms     PermissionChecker
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, perms PermissionChecker) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{logger: logger, service: service, perms: perms, validator: validator.New()}
}

// MountRoutes registers broker routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/brokers", h.handleCreate)
	r.Get("/brokers", h.handleList)
}

type createPayload struct {
	BrokerName    string  `json:"broker_name" validate:"required"`
	ItemName      string  `json:"item_name" validate:"required"`
	ItemRate      float64 `json:"item_rate" validate:"gte=0"`
	Taxes         string  `json:"taxes"`
	VehicleNumber string  `json:"vehicle_number"`
}

type brokerView struct {
	Name          string  `json:"name"`
	BrokerName    string  `json:"broker_name"`
	ItemName      string  `json:"item_name"`
	ItemRate      float64 `json:"item_rate"`
	Taxes         string  `json:"taxes"`
	VehicleNumber string  `json:"vehicle_number"`
	DocStatus     int     `json:"docstatus"`
	Creation      string  `json:"creation"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	allowed, err := h.perms.HasPermission(r.Context(), "Broker", "create")
	if err != nil {
		h.logger.Error("check broker permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !allowed {
		httpx.RespondError(w, shared.ErrPermissionDenied)
		return
	}

	var payload createPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "broker_name and item_name are required")
		return
	}

	created, err := h.service.Create(r.Context(), CreateInput{
		BrokerName:    payload.BrokerName,
		ItemName:      payload.ItemName,
		ItemRate:      payload.ItemRate,
		Taxes:         payload.Taxes,
		VehicleNumber: payload.VehicleNumber,
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			httpx.Fail(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("create broker", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.OK(w, "Broker created and submitted successfully", map[string]any{
		"name":      created.Number,
		"docstatus": created.DocStatus,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	allowed, err := h.perms.HasPermission(r.Context(), "Broker", "read")
	if err != nil {
		h.logger.Error("check broker permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !allowed {
		httpx.RespondError(w, shared.ErrPermissionDenied)
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 10)

	result, err := h.service.List(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("list brokers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	data := make([]brokerView, 0, len(result.Data))
	for _, b := range result.Data {
		data = append(data, brokerView{
			Name:          b.Number,
			BrokerName:    b.BrokerName,
			ItemName:      b.ItemName,
			ItemRate:      b.ItemRate,
			Taxes:         b.Taxes,
			VehicleNumber: b.VehicleNumber,
			DocStatus:     b.DocStatus,
			Creation:      b.CreatedAt.Format(time.RFC3339),
		})
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{
		Success:    true,
		Message:    "Brokers fetched successfully",
		Data:       data,
		Pagination: result.Pagination,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
