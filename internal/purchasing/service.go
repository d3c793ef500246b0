package purchasing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cartage-erp/cartage-erp/internal/catalog"
	"github.com/cartage-erp/cartage-erp/internal/lifecycle"
	"github.com/cartage-erp/cartage-erp/internal/quotation"
	"github.com/cartage-erp/cartage-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (PurchaseOrder, []OrderLine, error)
	List(ctx context.Context, filters ListFilters, start, pageLength int) ([]PurchaseOrder, error)
	Count(ctx context.Context, filters ListFilters) (int, error)
	ListLinesByOrderIDs(ctx context.Context, ids []int64) ([]OrderLine, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	Create(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertLine(ctx context.Context, line OrderLine) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

// QuotationPort exposes the quotation operations conversion depends on.
type QuotationPort interface {
	GetByNumber(ctx context.Context, number string) (quotation.Quotation, []quotation.Line, error)
	MarkConverted(ctx context.Context, id int64) error
	SyncWorkflowState(ctx context.Context, number, state string) error
}

// CatalogPort resolves the transport service item.
type CatalogPort interface {
	FindTransportItem(ctx context.Context, priceList string) (catalog.TransportItem, error)
}

// IdempotencyPort guards each (quotation, order kind) against duplicate
// creation across conversion retries.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// RetryEnqueuer schedules a conversion retry after a partial failure.
type RetryEnqueuer interface {
	EnqueueConversionRetry(ctx context.Context, quotationNumber string) error
}

// Notifier surfaces user-visible confirmation messages.
type Notifier interface {
	Publish(ctx context.Context, msg string)
}

// Snapshot is the document view handed to lifecycle handlers.
type Snapshot struct {
	Order PurchaseOrder
	Lines []OrderLine
}

// Config tunes conversion behaviour.
type Config struct {
	// PriceList names the buying price list used for the transport rate.
	PriceList string
}

// Service orchestrates purchase order creation from supplier quotations.
type Service struct {
	repo        RepositoryPort
	quotations  QuotationPort
	catalog     CatalogPort
	idempotency IdempotencyPort
	retries     RetryEnqueuer
	hooks       *lifecycle.Dispatcher
	notifier    Notifier
	logger      *slog.Logger
	cfg         Config
	printer     *message.Printer
	now         func() time.Time
}

// NewService constructs the purchasing service.
func NewService(repo RepositoryPort, quotations QuotationPort, cat CatalogPort, idem IdempotencyPort, hooks *lifecycle.Dispatcher, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.PriceList == "" {
		cfg.PriceList = "Standard Buying"
	}
	return &Service{
		repo:        repo,
		quotations:  quotations,
		catalog:     cat,
		idempotency: idem,
		hooks:       hooks,
		logger:      logger,
		cfg:         cfg,
		printer:     message.NewPrinter(language.English),
		now:         time.Now,
	}
}

// SetRetryEnqueuer wires the background retry queue. Optional; conversion
// still fails loud without it.
func (s *Service) SetRetryEnqueuer(r RetryEnqueuer) { s.retries = r }

// SetNotifier wires the user-visible message sink.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// RegisterHooks subscribes the conversion orchestrator and the post-save
// status sync on the lifecycle dispatcher.
func (s *Service) RegisterHooks() {
	if s.hooks == nil {
		return
	}
	s.hooks.Register(lifecycle.DoctypeSupplierQuotation, lifecycle.StatusChanged, s.handleQuotationStatusChanged)
	s.hooks.Register(lifecycle.DoctypePurchaseOrder, lifecycle.AfterSave, s.handleOrderSaved)
}

func (s *Service) handleQuotationStatusChanged(ctx context.Context, doc any) error {
	snap, ok := doc.(quotation.Snapshot)
	if !ok {
		return nil
	}
	return s.Convert(ctx, snap.Quotation, snap.Lines)
}

// Convert creates purchase orders for a quotation that reached the trigger
// state. Re-entrant triggers are no-ops once the conversion flag is set. With
// Exclusive freight the material and freight orders are created independently;
// a freight failure leaves the material order committed, guarded by its
// idempotency key, and schedules a retry.
func (s *Service) Convert(ctx context.Context, q quotation.Quotation, lines []quotation.Line) error {
	if q.WorkflowState != quotation.StateConvertedToPO {
		return nil
	}
	if q.POCreated {
		return nil
	}

	if err := s.createMaterialOrder(ctx, q, lines); err != nil {
		return err
	}

	if q.FreightMode == quotation.FreightExclusive {
		if err := s.createFreightOrder(ctx, q); err != nil {
			s.scheduleRetry(ctx, q.Number)
			return err
		}
	}

	if err := s.quotations.MarkConverted(ctx, q.ID); err != nil {
		return fmt.Errorf("purchasing: mark quotation converted: %w", err)
	}
	return nil
}

// ConvertByNumber loads the quotation and runs Convert. Used by the
// background retry and reconcile jobs.
func (s *Service) ConvertByNumber(ctx context.Context, number string) error {
	q, lines, err := s.quotations.GetByNumber(ctx, number)
	if err != nil {
		return err
	}
	return s.Convert(ctx, q, lines)
}

func (s *Service) createMaterialOrder(ctx context.Context, q quotation.Quotation, lines []quotation.Line) error {
	key := orderKey(q.Number, KindMaterial)
	if err := s.claimKey(ctx, key); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			s.logger.Info("material order already created", slog.String("quotation", q.Number))
			return nil
		}
		return err
	}

	orderLines := BuildMaterialLines(q, lines, s.now())
	po, err := s.CreateOrder(ctx, q, orderLines, KindMaterial)
	if err != nil {
		s.releaseKey(ctx, key)
		return err
	}
	s.notify(ctx, s.printer.Sprintf("Material Purchase Order Created: %s (total %.2f)", po.Number, po.GrandTotal))
	return nil
}

func (s *Service) createFreightOrder(ctx context.Context, q quotation.Quotation) error {
	key := orderKey(q.Number, KindFreight)
	if err := s.claimKey(ctx, key); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			s.logger.Info("freight order already created", slog.String("quotation", q.Number))
			return nil
		}
		return err
	}

	item, err := s.catalog.FindTransportItem(ctx, s.cfg.PriceList)
	if err != nil {
		s.releaseKey(ctx, key)
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("%w: no freight service item found", ErrValidation)
		}
		return err
	}
	line, err := BuildFreightLine(q, item, s.now())
	if err != nil {
		s.releaseKey(ctx, key)
		return err
	}
	po, err := s.CreateOrder(ctx, q, []OrderLine{line}, KindFreight)
	if err != nil {
		s.releaseKey(ctx, key)
		return err
	}
	s.notify(ctx, s.printer.Sprintf("Transport Purchase Order Created: %s (total %.2f)", po.Number, po.GrandTotal))
	return nil
}

// CreateOrder persists and submits a purchase order built from the quotation.
// Supplier and company are always copied from the quotation; supplying a
// default company here would leak orders across companies. Header, lines and
// submission share one transaction so a failure leaves nothing behind.
func (s *Service) CreateOrder(ctx context.Context, q quotation.Quotation, lines []OrderLine, kind OrderKind) (PurchaseOrder, error) {
	if len(lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: purchase order requires at least one line", ErrValidation)
	}

	now := s.now()
	po := PurchaseOrder{
		Number:          generateNumber("PO", now),
		Supplier:        q.Supplier,
		SupplierName:    q.SupplierName,
		Company:         q.Company,
		SourceQuotation: q.Number,
		TransactionDate: now,
		ScheduleDate:    now,
		Status:          StatusDraft,
	}
	for _, line := range lines {
		po.GrandTotal += line.Amount
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Create(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id
		for i := range lines {
			lines[i].OrderID = id
			if err := tx.InsertLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		return tx.UpdateStatus(ctx, id, StatusSubmitted)
	})
	if err != nil {
		s.logger.Error("create purchase order",
			slog.Any("error", err),
			slog.String("quotation", q.Number),
			slog.String("kind", string(kind)),
			slog.String("supplier", q.Supplier),
		)
		return PurchaseOrder{}, fmt.Errorf("purchasing: create %s order for %s: %w", kind, q.Number, err)
	}
	po.Status = StatusSubmitted

	if s.hooks != nil {
		if err := s.hooks.Fire(ctx, lifecycle.DoctypePurchaseOrder, lifecycle.AfterSave, Snapshot{Order: po, Lines: lines}); err != nil {
			s.logger.Warn("purchase order after-save hooks", slog.Any("error", err), slog.String("order", po.Number))
		}
	}
	return po, nil
}

// ListFilters restricts purchase order listings.
type ListFilters struct {
	Supplier        string `json:"supplier"`
	Status          string `json:"status"`
	SourceQuotation string `json:"supplier_quotation"`
}

// ListInput describes a paginated listing request.
type ListInput struct {
	Filters    ListFilters
	Start      int
	PageLength int
}

// WithItems couples an order with its line items for the mobile envelope.
type WithItems struct {
	Order PurchaseOrder
	Items []OrderLine
}

// ListResult is the page returned to the mobile API.
type ListResult struct {
	Data       []WithItems
	TotalCount int
	Start      int
	PageLength int
}

// List fetches a page of purchase orders ordered by transaction date
// descending, resolving all line items in one batched lookup.
func (s *Service) List(ctx context.Context, input ListInput) (ListResult, error) {
	if input.PageLength <= 0 {
		input.PageLength = 20
	}
	if input.Start < 0 {
		input.Start = 0
	}

	var (
		parents []PurchaseOrder
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		parents, err = s.repo.List(gctx, input.Filters, input.Start, input.PageLength)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, input.Filters)
		return err
	})
	if err := g.Wait(); err != nil {
		return ListResult{}, err
	}

	result := ListResult{
		Data:       []WithItems{},
		TotalCount: total,
		Start:      input.Start,
		PageLength: input.PageLength,
	}
	if len(parents) == 0 {
		result.TotalCount = 0
		return result, nil
	}

	ids := make([]int64, 0, len(parents))
	for _, po := range parents {
		ids = append(ids, po.ID)
	}
	lines, err := s.repo.ListLinesByOrderIDs(ctx, ids)
	if err != nil {
		return ListResult{}, err
	}
	byParent := make(map[int64][]OrderLine)
	for _, line := range lines {
		byParent[line.OrderID] = append(byParent[line.OrderID], line)
	}
	for _, po := range parents {
		items := byParent[po.ID]
		if items == nil {
			items = []OrderLine{}
		}
		result.Data = append(result.Data, WithItems{Order: po, Items: items})
	}
	return result, nil
}

func (s *Service) claimKey(ctx context.Context, key string) error {
	if s.idempotency == nil {
		return nil
	}
	return s.idempotency.CheckAndInsert(ctx, key, "purchasing.convert")
}

func (s *Service) releaseKey(ctx context.Context, key string) {
	if s.idempotency == nil {
		return
	}
	if err := s.idempotency.Delete(ctx, key); err != nil {
		s.logger.Warn("release idempotency key", slog.Any("error", err), slog.String("key", key))
	}
}

func (s *Service) scheduleRetry(ctx context.Context, number string) {
	if s.retries == nil {
		return
	}
	if err := s.retries.EnqueueConversionRetry(ctx, number); err != nil {
		s.logger.Warn("enqueue conversion retry", slog.Any("error", err), slog.String("quotation", number))
	}
}

func (s *Service) notify(ctx context.Context, msg string) {
	if s.notifier == nil {
		s.logger.Info(msg)
		return
	}
	s.notifier.Publish(ctx, msg)
}

func orderKey(quotationNumber string, kind OrderKind) string {
	return fmt.Sprintf("PO:%s:%s", quotationNumber, kind)
}

func generateNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d", prefix, now.UnixNano())
}
