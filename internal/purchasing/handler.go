package purchasing

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cartage-erp/cartage-erp/internal/platform/httpx"
	"github.com/cartage-erp/cartage-erp/internal/shared"
)

// PermissionChecker resolves doctype read permissions for the request user.
type PermissionChecker interface {
	HasPermission(ctx context.Context, doctype, action string) (bool, error)
}

// Handler wires the mobile purchase order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	perms   PermissionChecker
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, perms PermissionChecker) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{logger: logger, service: service, perms: perms}
}

// MountRoutes registers purchase order routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/purchase-orders", h.handleList)
}

type orderLineView struct {
	ItemCode            string  `json:"item_code"`
	ItemName            string  `json:"item_name"`
	Description         string  `json:"description"`
	ScheduleDate        string  `json:"schedule_date"`
	Qty                 float64 `json:"qty"`
	UOM                 string  `json:"uom"`
	Rate                float64 `json:"rate"`
	Amount              float64 `json:"amount"`
	SupplierQuotation   string  `json:"supplier_quotation,omitempty"`
	SupplierQuotationLn int64   `json:"supplier_quotation_item,omitempty"`
}

type orderView struct {
	Name              string          `json:"name"`
	Supplier          string          `json:"supplier"`
	SupplierName      string          `json:"supplier_name"`
	SupplierQuotation string          `json:"supplier_quotation"`
	TransactionDate   string          `json:"transaction_date"`
	ScheduleDate      string          `json:"schedule_date"`
	Status            string          `json:"status"`
	GrandTotal        float64         `json:"grand_total"`
	Items             []orderLineView `json:"items"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	allowed, err := h.perms.HasPermission(r.Context(), "Purchase Order", "read")
	if err != nil {
		h.logger.Error("check purchase order permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !allowed {
		httpx.RespondError(w, shared.ErrPermissionDenied)
		return
	}

	input := ListInput{Filters: parseFilters(r), Start: queryInt(r, "start", 0), PageLength: queryInt(r, "page_length", 20)}
	result, err := h.service.List(r.Context(), input)
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	data := make([]orderView, 0, len(result.Data))
	for _, entry := range result.Data {
		data = append(data, toOrderView(entry))
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{
		Success:    true,
		Message:    "Purchase Orders fetched successfully",
		Data:       data,
		TotalCount: httpx.IntPtr(result.TotalCount),
		PageLength: httpx.IntPtr(result.PageLength),
		Start:      httpx.IntPtr(result.Start),
	})
}

func toOrderView(entry WithItems) orderView {
	po := entry.Order
	view := orderView{
		Name:              po.Number,
		Supplier:          po.Supplier,
		SupplierName:      po.SupplierName,
		SupplierQuotation: po.SourceQuotation,
		TransactionDate:   formatDate(po.TransactionDate),
		ScheduleDate:      formatDate(po.ScheduleDate),
		Status:            string(po.Status),
		GrandTotal:        po.GrandTotal,
		Items:             []orderLineView{},
	}
	for _, line := range entry.Items {
		view.Items = append(view.Items, orderLineView{
			ItemCode:            line.ItemCode,
			ItemName:            line.ItemName,
			Description:         line.Description,
			ScheduleDate:        formatDate(line.ScheduleDate),
			Qty:                 line.Qty,
			UOM:                 line.UOM,
			Rate:                line.Rate,
			Amount:              line.Amount,
			SupplierQuotation:   line.SourceQuotation,
			SupplierQuotationLn: line.SourceQuotationLine,
		})
	}
	return view
}

func parseFilters(r *http.Request) ListFilters {
	var filters ListFilters
	if raw := r.URL.Query().Get("filters"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &filters)
	}
	if v := r.URL.Query().Get("supplier"); v != "" {
		filters.Supplier = v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filters.Status = v
	}
	if v := r.URL.Query().Get("supplier_quotation"); v != "" {
		filters.SourceQuotation = v
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
