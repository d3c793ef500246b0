package quotation

import (
	"errors"
	"time"
)

// FreightMode declares how transport cost is billed on a quotation.
type FreightMode string

const (
	// FreightInclusive folds transport cost into material pricing.
	FreightInclusive FreightMode = "Inclusive"
	// FreightExclusive bills transport as a separate purchase order.
	FreightExclusive FreightMode = "Exclusive"
)

// Valid reports whether the mode is one of the recognised values.
func (m FreightMode) Valid() bool {
	return m == FreightInclusive || m == FreightExclusive
}

// Workflow states of interest. The workflow engine owns the full state set;
// conversion only recognises StateConvertedToPO and treats the rest as opaque.
const (
	StatePending       = "Pending"
	StateConvertedToPO = "Converted to PO"
)

// Document submission states.
const (
	DocStatusDraft     = 0
	DocStatusSubmitted = 1
)

// Quotation is a supplier's priced offer, convertible into purchase orders.
type Quotation struct {
	ID              int64
	Number          string
	Supplier        string
	SupplierName    string
	Company         string
	TransactionDate time.Time
	ValidTill       time.Time
	FreightMode     FreightMode
	LoadingCharges  float64
	DistanceKM      float64
	Location        string
	Remarks         string
	GrandTotal      float64
	WorkflowState   string
	POCreated       bool
	DocStatus       int
}

// Line is a quotation line item. Lines are owned by their quotation.
type Line struct {
	ID          int64
	QuotationID int64
	ItemCode    string
	ItemName    string
	Description string
	ItemGroup   string
	Qty         float64
	Rate        float64
	Amount      float64
	UOM         string
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("quotation: not found")
	// ErrValidation indicates invalid input or a business-rule violation.
	ErrValidation = errors.New("quotation: invalid input")
)
