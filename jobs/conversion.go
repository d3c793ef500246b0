package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/cartage-erp/cartage-erp/internal/quotation"
)

// Converter runs purchase order creation for a quotation by number.
type Converter interface {
	ConvertByNumber(ctx context.Context, number string) error
}

// UnconvertedLister reports quotations in the trigger state that never
// produced orders.
type UnconvertedLister interface {
	ListUnconverted(ctx context.Context) ([]string, error)
}

// ConversionHandlers holds the task handlers for the conversion pipeline.
type ConversionHandlers struct {
	converter Converter
	lister    UnconvertedLister
	logger    *slog.Logger
}

// NewConversionHandlers constructs the handlers.
func NewConversionHandlers(converter Converter, lister UnconvertedLister, logger *slog.Logger) *ConversionHandlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ConversionHandlers{converter: converter, lister: lister, logger: logger}
}

// HandleConversionRetry processes TaskConversionRetry tasks.
func (h *ConversionHandlers) HandleConversionRetry(ctx context.Context, t *asynq.Task) error {
	var payload ConversionRetryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.QuotationNumber == "" {
		return asynq.SkipRetry
	}

	err := h.converter.ConvertByNumber(ctx, payload.QuotationNumber)
	if err != nil {
		if errors.Is(err, quotation.ErrNotFound) {
			h.logger.Warn("conversion retry: quotation vanished", slog.String("quotation", payload.QuotationNumber))
			return asynq.SkipRetry
		}
		h.logger.Error("conversion retry failed",
			slog.String("quotation", payload.QuotationNumber),
			slog.Any("error", err),
		)
		return err
	}
	h.logger.Info("conversion retry completed", slog.String("quotation", payload.QuotationNumber))
	return nil
}

// HandleConversionReconcile processes TaskConversionReconcile tasks. Each
// stuck quotation is converted inline; a single failure does not abort the
// sweep.
func (h *ConversionHandlers) HandleConversionReconcile(ctx context.Context, _ *asynq.Task) error {
	numbers, err := h.lister.ListUnconverted(ctx)
	if err != nil {
		return err
	}
	if len(numbers) == 0 {
		return nil
	}
	h.logger.Info("reconciling unconverted quotations", slog.Int("count", len(numbers)))

	var failed int
	for _, number := range numbers {
		if err := h.converter.ConvertByNumber(ctx, number); err != nil {
			failed++
			h.logger.Error("reconcile conversion failed",
				slog.String("quotation", number),
				slog.Any("error", err),
			)
		}
	}
	if failed > 0 {
		h.logger.Warn("reconcile finished with failures",
			slog.Int("failed", failed),
			slog.Int("total", len(numbers)),
		)
	}
	return nil
}
