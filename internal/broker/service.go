package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cartage-erp/cartage-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, b Broker) (Broker, error)
	List(ctx context.Context, start, pageSize int) ([]Broker, error)
	Count(ctx context.Context) (int, error)
}

// Service owns broker record flows.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a broker service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// CreateInput describes the broker creation payload.
type CreateInput struct {
	BrokerName    string
	ItemName      string
	ItemRate      float64
	Taxes         string
	VehicleNumber string
}

// Create persists a broker record and finalises it immediately; brokers have
// no draft stage in the mobile flow.
func (s *Service) Create(ctx context.Context, input CreateInput) (Broker, error) {
	if input.BrokerName == "" {
		return Broker{}, fmt.Errorf("%w: broker name is required", ErrValidation)
	}
	now := s.now()
	b := Broker{
		Number:        fmt.Sprintf("BRK-%d", now.UnixNano()),
		BrokerName:    input.BrokerName,
		ItemName:      input.ItemName,
		ItemRate:      input.ItemRate,
		Taxes:         input.Taxes,
		VehicleNumber: input.VehicleNumber,
		DocStatus:     DocStatusSubmitted,
		CreatedAt:     now,
	}
	created, err := s.repo.Create(ctx, b)
	if err != nil {
		s.logger.Error("create broker", slog.Any("error", err), slog.String("broker_name", input.BrokerName))
		return Broker{}, err
	}
	return created, nil
}

// ListResult is a paginated broker page.
type ListResult struct {
	Data       []Broker
	Pagination shared.Pagination
}

// List returns a page of brokers, newest first.
func (s *Service) List(ctx context.Context, page, pageSize int) (ListResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	start := (page - 1) * pageSize

	brokers, err := s.repo.List(ctx, start, pageSize)
	if err != nil {
		return ListResult{}, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return ListResult{}, err
	}
	if brokers == nil {
		brokers = []Broker{}
	}
	return ListResult{Data: brokers, Pagination: shared.NewPagination(page, pageSize, total)}, nil
}
