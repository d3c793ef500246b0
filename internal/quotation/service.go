package quotation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cartage-erp/cartage-erp/internal/lifecycle"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Quotation, []Line, error)
	GetByNumber(ctx context.Context, number string) (Quotation, []Line, error)
	List(ctx context.Context, filters ListFilters, start, pageLength int) ([]Quotation, error)
	Count(ctx context.Context, filters ListFilters) (int, error)
	ListLinesByQuotationIDs(ctx context.Context, ids []int64) ([]Line, error)
	ListUnconverted(ctx context.Context, state string) ([]string, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	Create(ctx context.Context, q Quotation) (int64, error)
	InsertLine(ctx context.Context, line Line) error
	UpdateWorkflowState(ctx context.Context, id int64, state string) error
	SetPOCreated(ctx context.Context, id int64, created bool) error
}

// Snapshot is the document view handed to lifecycle handlers.
type Snapshot struct {
	Quotation Quotation
	Lines     []Line
}

// Service owns supplier quotation flows.
type Service struct {
	repo   RepositoryPort
	hooks  *lifecycle.Dispatcher
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a quotation service.
func NewService(repo RepositoryPort, hooks *lifecycle.Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, hooks: hooks, logger: logger, now: time.Now}
}

// ListFilters restricts quotation listings.
type ListFilters struct {
	Supplier      string `json:"supplier"`
	WorkflowState string `json:"workflow_state"`
	FreightMode   string `json:"custom_freight"`
}

// CreateInput describes the mobile quotation creation payload.
type CreateInput struct {
	Supplier        string
	TransactionDate time.Time
	ValidTill       time.Time
	FreightMode     FreightMode
	LoadingCharges  float64
	DistanceKM      float64
	Location        string
	Remarks         string
	Submit          bool
	Items           []LineInput
}

// LineInput describes one requested line.
type LineInput struct {
	ItemCode string
	Qty      float64
	Rate     float64
	UOM      string
}

// Create validates and persists a new supplier quotation. BeforeSave hooks
// run against the assembled document prior to any persistence.
func (s *Service) Create(ctx context.Context, input CreateInput) (Quotation, error) {
	if input.Supplier == "" {
		return Quotation{}, fmt.Errorf("%w: Supplier is mandatory", ErrValidation)
	}
	if !input.FreightMode.Valid() {
		return Quotation{}, fmt.Errorf("%w: Freight is mandatory", ErrValidation)
	}
	if len(input.Items) == 0 {
		return Quotation{}, fmt.Errorf("%w: At least one item is required", ErrValidation)
	}

	now := s.now()
	q := Quotation{
		Number:          generateNumber("SQ", now),
		Supplier:        input.Supplier,
		TransactionDate: defaultDate(input.TransactionDate, now),
		ValidTill:       input.ValidTill,
		FreightMode:     input.FreightMode,
		LoadingCharges:  input.LoadingCharges,
		DistanceKM:      input.DistanceKM,
		Location:        input.Location,
		Remarks:         input.Remarks,
		WorkflowState:   StatePending,
		DocStatus:       DocStatusDraft,
	}
	if input.Submit {
		q.DocStatus = DocStatusSubmitted
	}

	var lines []Line
	for _, item := range input.Items {
		if item.ItemCode == "" {
			return Quotation{}, fmt.Errorf("%w: item code is required", ErrValidation)
		}
		line := Line{
			ItemCode: item.ItemCode,
			Qty:      defaultFloat(item.Qty, 1),
			Rate:     item.Rate,
			UOM:      defaultString(item.UOM, "Nos"),
		}
		line.Amount = line.Qty * line.Rate
		q.GrandTotal += line.Amount
		lines = append(lines, line)
	}
	if q.FreightMode == FreightExclusive {
		q.GrandTotal += q.LoadingCharges
	}

	if err := s.fire(ctx, lifecycle.BeforeSave, Snapshot{Quotation: q, Lines: lines}); err != nil {
		return Quotation{}, err
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Create(ctx, q)
		if err != nil {
			return err
		}
		q.ID = id
		for _, line := range lines {
			line.QuotationID = id
			if err := tx.InsertLine(ctx, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("create quotation", slog.Any("error", err), slog.String("supplier", input.Supplier))
		return Quotation{}, err
	}

	if err := s.fire(ctx, lifecycle.AfterSave, Snapshot{Quotation: q, Lines: lines}); err != nil {
		return Quotation{}, err
	}
	return q, nil
}

// TransitionWorkflowState persists a workflow state change and fires the
// StatusChanged hooks with a fresh snapshot. This is the seam the workflow
// engine (and conversion retries) drive.
func (s *Service) TransitionWorkflowState(ctx context.Context, number, state string) error {
	q, lines, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return err
	}
	if q.WorkflowState != state {
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.UpdateWorkflowState(ctx, q.ID, state)
		})
		if err != nil {
			return err
		}
		q.WorkflowState = state
	}
	return s.fire(ctx, lifecycle.StatusChanged, Snapshot{Quotation: q, Lines: lines})
}

// GetByNumber loads a quotation with its lines.
func (s *Service) GetByNumber(ctx context.Context, number string) (Quotation, []Line, error) {
	return s.repo.GetByNumber(ctx, number)
}

// MarkConverted flips the conversion flag once purchase orders exist.
func (s *Service) MarkConverted(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetPOCreated(ctx, id, true)
	})
}

// SyncWorkflowState updates the workflow state without firing StatusChanged
// hooks. Used by post-save synchronisation from purchase orders.
func (s *Service) SyncWorkflowState(ctx context.Context, number, state string) error {
	q, _, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return err
	}
	if q.WorkflowState == state {
		return nil
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateWorkflowState(ctx, q.ID, state)
	})
}

// ListUnconverted returns numbers of quotations sitting in the trigger state
// with the conversion flag unset. Used by the reconcile job.
func (s *Service) ListUnconverted(ctx context.Context) ([]string, error) {
	return s.repo.ListUnconverted(ctx, StateConvertedToPO)
}

// ListInput describes a paginated listing request.
type ListInput struct {
	Filters    ListFilters
	Start      int
	PageLength int
}

// WithItems couples a quotation with its line items for the mobile envelope.
type WithItems struct {
	Quotation Quotation
	Items     []Line
}

// ListResult is the page returned to the mobile API.
type ListResult struct {
	Data       []WithItems
	TotalCount int
	Start      int
	PageLength int
}

// List fetches a page of quotations ordered by transaction date descending,
// with all line items resolved in a single batched lookup. The total count is
// computed independently of pagination.
func (s *Service) List(ctx context.Context, input ListInput) (ListResult, error) {
	if input.PageLength <= 0 {
		input.PageLength = 20
	}
	if input.Start < 0 {
		input.Start = 0
	}

	var (
		parents []Quotation
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
	for _, q := range parents {
		ids = append(ids, q.ID)
	}
	lines, err := s.repo.ListLinesByQuotationIDs(ctx, ids)
	if err != nil {
		return ListResult{}, err
	}
	byParent := make(map[int64][]Line)
	for _, line := range lines {
		byParent[line.QuotationID] = append(byParent[line.QuotationID], line)
	}
	for _, q := range parents {
		items := byParent[q.ID]
		if items == nil {
			items = []Line{}
		}
		result.Data = append(result.Data, WithItems{Quotation: q, Items: items})
	}
	return result, nil
}

func (s *Service) fire(ctx context.Context, event lifecycle.Event, snap Snapshot) error {
	if s.hooks == nil {
		return nil
	}
	return s.hooks.Fire(ctx, lifecycle.DoctypeSupplierQuotation, event, snap)
}

func generateNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d", prefix, now.UnixNano())
}

func defaultDate(value time.Time, fallback time.Time) time.Time {
	if value.IsZero() {
		return fallback
	}
	return value
}

func defaultFloat(value, fallback float64) float64 {
	if value == 0 {
		return fallback
	}
	return value
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
