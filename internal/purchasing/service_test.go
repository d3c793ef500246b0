package purchasing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cartage-erp/cartage-erp/internal/catalog"
	"github.com/cartage-erp/cartage-erp/internal/lifecycle"
	"github.com/cartage-erp/cartage-erp/internal/quotation"
	"github.com/cartage-erp/cartage-erp/internal/shared"
)

type memoryOrderRepo struct {
	orders    map[int64]PurchaseOrder
	lines     map[int64][]OrderLine
	nextID    int64
	failOnTx  error
	failCount int
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{
		orders: make(map[int64]PurchaseOrder),
		lines:  make(map[int64][]OrderLine),
		nextID: 1,
	}
}

func (m *memoryOrderRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.failOnTx != nil && m.failCount > 0 {
		m.failCount--
		return m.failOnTx
	}
	return fn(ctx, (*memoryOrderTx)(m))
}

func (m *memoryOrderRepo) Get(_ context.Context, id int64) (PurchaseOrder, []OrderLine, error) {
	po, ok := m.orders[id]
	if !ok {
		return PurchaseOrder{}, nil, ErrNotFound
	}
	return po, m.lines[id], nil
}

func (m *memoryOrderRepo) List(_ context.Context, filters ListFilters, start, pageLength int) ([]PurchaseOrder, error) {
	var matched []PurchaseOrder
	for id := int64(1); id < m.nextID; id++ {
		po, ok := m.orders[id]
		if !ok {
			continue
		}
		if filters.Supplier != "" && po.Supplier != filters.Supplier {
			continue
		}
		if filters.Status != "" && string(po.Status) != filters.Status {
			continue
		}
		if filters.SourceQuotation != "" && po.SourceQuotation != filters.SourceQuotation {
			continue
		}
		matched = append(matched, po)
	}
	if start >= len(matched) {
		return nil, nil
	}
	end := start + pageLength
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (m *memoryOrderRepo) Count(ctx context.Context, filters ListFilters) (int, error) {
	all, err := m.List(ctx, filters, 0, int(m.nextID))
	return len(all), err
}

func (m *memoryOrderRepo) ListLinesByOrderIDs(_ context.Context, ids []int64) ([]OrderLine, error) {
	var out []OrderLine
	for _, id := range ids {
		out = append(out, m.lines[id]...)
	}
	return out, nil
}

type memoryOrderTx memoryOrderRepo

func (m *memoryOrderTx) Create(_ context.Context, po PurchaseOrder) (int64, error) {
	po.ID = m.nextID
	m.nextID++
	m.orders[po.ID] = po
	return po.ID, nil
}

func (m *memoryOrderTx) InsertLine(_ context.Context, line OrderLine) error {
	m.lines[line.OrderID] = append(m.lines[line.OrderID], line)
	return nil
}

func (m *memoryOrderTx) UpdateStatus(_ context.Context, id int64, status Status) error {
	po, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	po.Status = status
	m.orders[id] = po
	return nil
}

type stubQuotations struct {
	byNumber  map[string]quotation.Quotation
	lines     map[string][]quotation.Line
	converted map[int64]bool
	synced    map[string]string
}

func newStubQuotations() *stubQuotations {
	return &stubQuotations{
		byNumber:  make(map[string]quotation.Quotation),
		lines:     make(map[string][]quotation.Line),
		converted: make(map[int64]bool),
		synced:    make(map[string]string),
	}
}

func (s *stubQuotations) add(q quotation.Quotation, lines ...quotation.Line) {
	s.byNumber[q.Number] = q
	s.lines[q.Number] = lines
}

func (s *stubQuotations) GetByNumber(_ context.Context, number string) (quotation.Quotation, []quotation.Line, error) {
	q, ok := s.byNumber[number]
	if !ok {
		return quotation.Quotation{}, nil, quotation.ErrNotFound
	}
	if s.converted[q.ID] {
		q.POCreated = true
	}
	return q, s.lines[number], nil
}

func (s *stubQuotations) MarkConverted(_ context.Context, id int64) error {
	s.converted[id] = true
	return nil
}

func (s *stubQuotations) SyncWorkflowState(_ context.Context, number, state string) error {
	s.synced[number] = state
	return nil
}

type stubCatalog struct {
	item catalog.TransportItem
	err  error
}

func (s stubCatalog) FindTransportItem(context.Context, string) (catalog.TransportItem, error) {
	if s.err != nil {
		return catalog.TransportItem{}, s.err
	}
	return s.item, nil
}

type memoryIdempotency struct {
	keys map[string]struct{}
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]struct{})}
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if _, exists := m.keys[key]; exists {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = struct{}{}
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type recordingRetries struct {
	enqueued []string
}

func (r *recordingRetries) EnqueueConversionRetry(_ context.Context, number string) error {
	r.enqueued = append(r.enqueued, number)
	return nil
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Publish(_ context.Context, msg string) {
	r.messages = append(r.messages, msg)
}

type fixture struct {
	repo       *memoryOrderRepo
	quotations *stubQuotations
	catalog    stubCatalog
	idem       *memoryIdempotency
	retries    *recordingRetries
	notifier   *recordingNotifier
	service    *Service
}

func newFixture(t *testing.T, cat stubCatalog) *fixture {
	t.Helper()
	f := &fixture{
		repo:       newMemoryOrderRepo(),
		quotations: newStubQuotations(),
		catalog:    cat,
		idem:       newMemoryIdempotency(),
		retries:    &recordingRetries{},
		notifier:   &recordingNotifier{},
	}
	f.service = NewService(f.repo, f.quotations, f.catalog, f.idem, nil, nil, Config{})
	f.service.SetRetryEnqueuer(f.retries)
	f.service.SetNotifier(f.notifier)
	return f
}

func transportCatalog() stubCatalog {
	return stubCatalog{item: catalog.TransportItem{
		Code: "SRV-TRANS",
		Name: "Transportation Charges",
		UOM:  "Nos",
		Rate: 500,
	}}
}

func inclusiveQuotation() (quotation.Quotation, []quotation.Line) {
	q := quotation.Quotation{
		ID:            1,
		Number:        "SQ-1",
		Supplier:      "SUP-0001",
		SupplierName:  "Hill Aggregates",
		Company:       "Cartage Co",
		FreightMode:   quotation.FreightInclusive,
		WorkflowState: quotation.StateConvertedToPO,
	}
	lines := []quotation.Line{
		{ID: 11, ItemCode: "GRAVEL-20MM", ItemGroup: "Raw Material", Qty: 10, Rate: 42.5},
		{ID: 12, ItemCode: "Transportation Charges", ItemGroup: catalog.ItemGroupServices, Qty: 1, Rate: 500},
	}
	return q, lines
}

func exclusiveQuotation() (quotation.Quotation, []quotation.Line) {
	q, lines := inclusiveQuotation()
	q.FreightMode = quotation.FreightExclusive
	q.LoadingCharges = 150
	return q, lines
}

func ordersByKind(f *fixture) (material, freight []PurchaseOrder) {
	for id := int64(1); id < f.repo.nextID; id++ {
		po := f.repo.orders[id]
		isFreight := false
		for _, line := range f.repo.lines[id] {
			if line.ItemCode == "Transportation Charges" && line.SourceQuotationLine == 0 {
				isFreight = true
			}
		}
		if isFreight {
			freight = append(freight, po)
		} else {
			material = append(material, po)
		}
	}
	return material, freight
}

func TestConvertInclusiveCreatesSingleOrder(t *testing.T) {
	f := newFixture(t, transportCatalog())
	q, lines := inclusiveQuotation()

	require.NoError(t, f.service.Convert(context.Background(), q, lines))

	material, freight := ordersByKind(f)
	require.Len(t, material, 1)
	require.Empty(t, freight)

	po := material[0]
	require.Equal(t, StatusSubmitted, po.Status)
	require.Equal(t, "SUP-0001", po.Supplier)
	require.Equal(t, "Cartage Co", po.Company)
	require.Equal(t, "SQ-1", po.SourceQuotation)
	require.InDelta(t, 425, po.GrandTotal, 0.001)

	// The service line from the quotation is excluded.
	require.Len(t, f.repo.lines[po.ID], 1)
	require.Equal(t, "GRAVEL-20MM", f.repo.lines[po.ID][0].ItemCode)

	require.True(t, f.quotations.converted[q.ID])
	require.Len(t, f.notifier.messages, 1)
	require.Contains(t, f.notifier.messages[0], "Material Purchase Order Created")
}

func TestConvertExclusiveCreatesMaterialAndFreightOrders(t *testing.T) {
	f := newFixture(t, transportCatalog())
	q, lines := exclusiveQuotation()

	require.NoError(t, f.service.Convert(context.Background(), q, lines))

	material, freight := ordersByKind(f)
	require.Len(t, material, 1)
	require.Len(t, freight, 1)

	freightLines := f.repo.lines[freight[0].ID]
	require.Len(t, freightLines, 1)
	require.Equal(t, float64(1), freightLines[0].Qty)
	require.Equal(t, float64(500), freightLines[0].Rate)
	require.Equal(t, "Transport Charges for SQ-1", freightLines[0].Description)
	require.Equal(t, StatusSubmitted, freight[0].Status)

	require.True(t, f.quotations.converted[q.ID])
	require.Len(t, f.notifier.messages, 2)
	require.Contains(t, f.notifier.messages[1], "Transport Purchase Order Created")
}

func TestConvertSkipsWhenAlreadyConverted(t *testing.T) {
	f := newFixture(t, transportCatalog())
	q, lines := inclusiveQuotation()
	q.POCreated = true

	require.NoError(t, f.service.Convert(context.Background(), q, lines))
	require.Empty(t, f.repo.orders)
}

func TestConvertSkipsOutsideTriggerState(t *testing.T) {
	f := newFixture(t, transportCatalog())
	q, lines := inclusiveQuotation()
	q.WorkflowState = quotation.StatePending

	require.NoError(t, f.service.Convert(context.Background(), q, lines))
	require.Empty(t, f.repo.orders)
}

func TestConvertExclusiveMissingTransportItem(t *testing.T) {
	f := newFixture(t, stubCatalog{err: catalog.ErrNotFound})
	q, lines := exclusiveQuotation()

	err := f.service.Convert(context.Background(), q, lines)
	require.ErrorIs(t, err, ErrValidation)

	// The material order is committed; the freight order is not.
	material, freight := ordersByKind(f)
	require.Len(t, material, 1)
	require.Empty(t, freight)
	require.False(t, f.quotations.converted[q.ID])
	require.Equal(t, []string{"SQ-1"}, f.retries.enqueued)
}

func TestConvertRetryDoesNotDuplicateMaterialOrder(t *testing.T) {
	f := newFixture(t, stubCatalog{err: catalog.ErrNotFound})
	q, lines := exclusiveQuotation()
	f.quotations.add(q, lines...)

	require.Error(t, f.service.Convert(context.Background(), q, lines))
	material, _ := ordersByKind(f)
	require.Len(t, material, 1)

	// Transport item appears; the retry creates only the freight order.
	f.service.catalog = transportCatalog()
	require.NoError(t, f.service.ConvertByNumber(context.Background(), "SQ-1"))

	material, freight := ordersByKind(f)
	require.Len(t, material, 1)
	require.Len(t, freight, 1)
	require.True(t, f.quotations.converted[q.ID])
}

func TestConvertReleasesKeyOnFailure(t *testing.T) {
	f := newFixture(t, transportCatalog())
	q, lines := inclusiveQuotation()
	f.repo.failOnTx = errors.New("connection reset")
	f.repo.failCount = 1

	require.Error(t, f.service.Convert(context.Background(), q, lines))
	require.Empty(t, f.idem.keys)

	// The next attempt succeeds because the key was released.
	require.NoError(t, f.service.Convert(context.Background(), q, lines))
	material, _ := ordersByKind(f)
	require.Len(t, material, 1)
}

func TestCreateOrderRequiresLines(t *testing.T) {
	f := newFixture(t, transportCatalog())
	q, _ := inclusiveQuotation()

	_, err := f.service.CreateOrder(context.Background(), q, nil, KindMaterial)
	require.ErrorIs(t, err, ErrValidation)
}

func TestStatusChangedHookDrivesConversion(t *testing.T) {
	hooks := lifecycle.NewDispatcher(nil)
	f := &fixture{
		repo:       newMemoryOrderRepo(),
		quotations: newStubQuotations(),
		idem:       newMemoryIdempotency(),
	}
	f.service = NewService(f.repo, f.quotations, transportCatalog(), f.idem, hooks, nil, Config{})
	f.service.RegisterHooks()

	q, lines := inclusiveQuotation()
	snap := quotation.Snapshot{Quotation: q, Lines: lines}
	require.NoError(t, hooks.Fire(context.Background(), lifecycle.DoctypeSupplierQuotation, lifecycle.StatusChanged, snap))

	require.Len(t, f.repo.orders, 1)
	// The after-save hook pushed the quotation back into the converted state.
	require.Equal(t, quotation.StateConvertedToPO, f.quotations.synced["SQ-1"])
}

func TestListOrders(t *testing.T) {
	f := newFixture(t, transportCatalog())
	q, lines := exclusiveQuotation()
	require.NoError(t, f.service.Convert(context.Background(), q, lines))

	result, err := f.service.List(context.Background(), ListInput{})
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalCount)
	require.Len(t, result.Data, 2)
	for _, entry := range result.Data {
		require.NotEmpty(t, entry.Items)
		require.Equal(t, "SQ-1", entry.Order.SourceQuotation)
	}

	bySource, err := f.service.List(context.Background(), ListInput{Filters: ListFilters{SourceQuotation: "SQ-1"}})
	require.NoError(t, err)
	require.Equal(t, 2, bySource.TotalCount)

	empty, err := f.service.List(context.Background(), ListInput{Start: 10})
	require.NoError(t, err)
	require.Zero(t, empty.TotalCount)
	require.Empty(t, empty.Data)
}
