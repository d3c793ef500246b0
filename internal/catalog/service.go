package catalog

import (
	"context"
	"errors"
	"log/slog"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	FindServiceItem(ctx context.Context) (Item, error)
	GetPriceListRate(ctx context.Context, itemCode, priceList string) (float64, error)
}

// Service resolves catalog lookups for the conversion flow.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService constructs a catalog service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// FindTransportItem returns the active purchasable service item with its rate
// resolved from the named price list. A missing price entry is tolerated and
// resolves to rate 0; a missing item is an error.
func (s *Service) FindTransportItem(ctx context.Context, priceList string) (TransportItem, error) {
	item, err := s.repo.FindServiceItem(ctx)
	if err != nil {
		return TransportItem{}, err
	}

	rate, err := s.repo.GetPriceListRate(ctx, item.Code, priceList)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return TransportItem{}, err
		}
		if s.logger != nil {
			s.logger.Debug("no price entry for transport item",
				slog.String("item", item.Code),
				slog.String("price_list", priceList),
			)
		}
		rate = 0
	}

	return TransportItem{Code: item.Code, Name: item.Name, UOM: item.StockUOM, Rate: rate}, nil
}
