package purchasing

import (
	"context"
	"log/slog"

	"github.com/cartage-erp/cartage-erp/internal/quotation"
)

// handleOrderSaved runs after a purchase order is persisted and moves each
// referenced quotation into the converted state. Idempotent: quotations
// already in the state are left alone.
func (s *Service) handleOrderSaved(ctx context.Context, doc any) error {
	snap, ok := doc.(Snapshot)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	for _, line := range snap.Lines {
		if line.SourceQuotation == "" {
			continue
		}
		if _, done := seen[line.SourceQuotation]; done {
			continue
		}
		seen[line.SourceQuotation] = struct{}{}
		if err := s.quotations.SyncWorkflowState(ctx, line.SourceQuotation, quotation.StateConvertedToPO); err != nil {
			s.logger.Error("sync quotation workflow state",
				slog.Any("error", err),
				slog.String("order", snap.Order.Number),
				slog.String("quotation", line.SourceQuotation),
			)
			return err
		}
	}
	return nil
}
