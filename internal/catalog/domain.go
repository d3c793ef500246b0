package catalog

import "errors"

// ItemGroupServices tags non-physical catalog entries such as transport.
const ItemGroupServices = "Services"

// Item is a catalog entry, read-only from this system's perspective.
type Item struct {
	ID             int64
	Code           string
	Name           string
	ItemGroup      string
	StockUOM       string
	IsPurchaseItem bool
	Disabled       bool
}

// ItemPrice maps (item, price list) to a rate.
type ItemPrice struct {
	ID        int64
	ItemCode  string
	PriceList string
	Rate      float64
}

// TransportItem is a service item with its price-list rate resolved.
type TransportItem struct {
	Code string
	Name string
	UOM  string
	Rate float64
}

var (
	// ErrNotFound indicates no eligible catalog record exists.
	ErrNotFound = errors.New("catalog: not found")
)
