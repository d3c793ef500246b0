package quotation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cartage-erp/cartage-erp/internal/platform/httpx"
)

// PermissionChecker resolves doctype read permissions for the request user.
type PermissionChecker interface {
	HasPermission(ctx context.Context, doctype, action string) (bool, error)
}

// Handler wires the mobile quotation endpoints.
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

// MountRoutes registers quotation routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/supplier-quotations", h.handleCreate)
	r.Get("/supplier-quotations", h.handleList)
}

type createItemPayload struct {
	ItemCode string  `json:"item_code" validate:"required"`
	Qty      float64 `json:"qty"`
	Rate     float64 `json:"rate"`
	UOM      string  `json:"uom"`
}

type createPayload struct {
	Supplier        string              `json:"supplier" validate:"required"`
	TransactionDate string              `json:"transaction_date"`
	ValidTill       string              `json:"valid_till"`
	Freight         string              `json:"custom_freight" validate:"required,oneof=Inclusive Exclusive"`
	LoadingCharges  float64             `json:"custom_loading_charges"`
	DistanceKM      float64             `json:"custom_distance_in_km_"`
	Location        string              `json:"custom_location"`
	Remarks         string              `json:"custom_remarks"`
	Submit          bool                `json:"submit"`
	Items           []createItemPayload `json:"items" validate:"required,min=1,dive"`
}

type lineView struct {
	ItemCode string  `json:"item_code"`
	ItemName string  `json:"item_name"`
	Qty      float64 `json:"qty"`
	Rate     float64 `json:"rate"`
	Amount   float64 `json:"amount"`
	UOM      string  `json:"uom"`
}

type quotationView struct {
	Name            string     `json:"name"`
	Supplier        string     `json:"supplier"`
	SupplierName    string     `json:"supplier_name"`
	TransactionDate string     `json:"transaction_date"`
	DistanceKM      float64    `json:"custom_distance_in_km_"`
	Freight         string     `json:"custom_freight"`
	Remarks         string     `json:"custom_remarks"`
	WorkflowState   string     `json:"workflow_state"`
	ValidTill       string     `json:"valid_till,omitempty"`
	GrandTotal      float64    `json:"grand_total"`
	Items           []lineView `json:"items"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	input := CreateInput{
		Supplier:       payload.Supplier,
		FreightMode:    FreightMode(payload.Freight),
		LoadingCharges: payload.LoadingCharges,
		DistanceKM:     payload.DistanceKM,
		Location:       payload.Location,
		Remarks:        payload.Remarks,
		Submit:         payload.Submit,
	}
	if payload.TransactionDate != "" {
		d, err := time.Parse("2006-01-02", payload.TransactionDate)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "transaction_date must be a YYYY-MM-DD date")
			return
		}
		input.TransactionDate = d
	}
	if payload.ValidTill != "" {
		d, err := time.Parse("2006-01-02", payload.ValidTill)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "valid_till must be a YYYY-MM-DD date")
			return
		}
		input.ValidTill = d
	}
	for _, item := range payload.Items {
		input.Items = append(input.Items, LineInput{
			ItemCode: item.ItemCode,
			Qty:      item.Qty,
			Rate:     item.Rate,
			UOM:      item.UOM,
		})
	}

	q, err := h.service.Create(r.Context(), input)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			httpx.Fail(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("create supplier quotation", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Failed to create Supplier Quotation")
		return
	}

	httpx.OK(w, "Supplier Quotation created", map[string]any{
		"name":        q.Number,
		"grand_total": q.GrandTotal,
		"status":      q.WorkflowState,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	allowed, err := h.perms.HasPermission(r.Context(), "Supplier Quotation", "read")
	if err != nil {
		h.logger.Error("check quotation permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !allowed {
		httpx.Fail(w, http.StatusForbidden, "Insufficient permissions")
		return
	}

	input := ListInput{Filters: parseFilters(r), Start: queryInt(r, "start", 0), PageLength: queryInt(r, "page_length", 20)}
	result, err := h.service.List(r.Context(), input)
	if err != nil {
		h.logger.Error("list supplier quotations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	data := make([]quotationView, 0, len(result.Data))
	for _, entry := range result.Data {
		data = append(data, toQuotationView(entry))
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{
		Success:    true,
		Data:       data,
		TotalCount: httpx.IntPtr(result.TotalCount),
		PageLength: httpx.IntPtr(result.PageLength),
		Start:      httpx.IntPtr(result.Start),
	})
}

func toQuotationView(entry WithItems) quotationView {
	q := entry.Quotation
	view := quotationView{
		Name:            q.Number,
		Supplier:        q.Supplier,
		SupplierName:    q.SupplierName,
		TransactionDate: formatDate(q.TransactionDate),
		DistanceKM:      q.DistanceKM,
		Freight:         string(q.FreightMode),
		Remarks:         q.Remarks,
		WorkflowState:   q.WorkflowState,
		ValidTill:       formatDate(q.ValidTill),
		GrandTotal:      q.GrandTotal,
		Items:           []lineView{},
	}
	for _, line := range entry.Items {
		view.Items = append(view.Items, lineView{
			ItemCode: line.ItemCode,
			ItemName: line.ItemName,
			Qty:      line.Qty,
			Rate:     line.Rate,
			Amount:   line.Amount,
			UOM:      line.UOM,
		})
	}
	return view
}

// parseFilters accepts either individual query parameters or a JSON-encoded
// "filters" parameter, matching what the mobile client sends.
func parseFilters(r *http.Request) ListFilters {
	var filters ListFilters
	if raw := r.URL.Query().Get("filters"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &filters)
	}
	if v := r.URL.Query().Get("supplier"); v != "" {
		filters.Supplier = v
	}
	if v := r.URL.Query().Get("workflow_state"); v != "" {
		filters.WorkflowState = v
	}
	if v := r.URL.Query().Get("custom_freight"); v != "" {
		filters.FreightMode = v
	}
	return filters
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func validationMessage(err error) string {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		return vErrs[0].Field() + " is mandatory"
	}
	return "invalid request"
}
