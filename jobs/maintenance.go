package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TaskIdempotencyCleanup prunes processed idempotency keys past retention.
const TaskIdempotencyCleanup = "idempotency:cleanup"

// NewIdempotencyCleanupTask constructs the periodic cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Timeout(5*time.Minute))
}

// IdempotencyCleaner removes processed idempotency keys older than the cutoff.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// MaintenanceHandlers holds handlers for housekeeping tasks.
type MaintenanceHandlers struct {
	cleaner   IdempotencyCleaner
	retention time.Duration
	logger    *slog.Logger
}

// NewMaintenanceHandlers constructs the handlers. A non-positive retention
// falls back to 30 days.
func NewMaintenanceHandlers(cleaner IdempotencyCleaner, retention time.Duration, logger *slog.Logger) *MaintenanceHandlers {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MaintenanceHandlers{cleaner: cleaner, retention: retention, logger: logger}
}

// HandleIdempotencyCleanup processes TaskIdempotencyCleanup tasks.
func (h *MaintenanceHandlers) HandleIdempotencyCleanup(ctx context.Context, _ *asynq.Task) error {
	if err := h.cleaner.Cleanup(ctx, h.retention); err != nil {
		h.logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return err
	}
	h.logger.Info("idempotency cleanup completed", slog.Duration("retention", h.retention))
	return nil
}
