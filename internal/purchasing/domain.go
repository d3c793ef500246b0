package purchasing

import (
	"errors"
	"time"
)

// Status tracks purchase order submission state.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusSubmitted Status = "Submitted"
)

// OrderKind distinguishes the two orders a quotation may produce.
type OrderKind string

const (
	KindMaterial OrderKind = "material"
	KindFreight  OrderKind = "freight"
)

// PurchaseOrder is generated from a supplier quotation. Immutable once
// submitted except for status fields.
type PurchaseOrder struct {
	ID              int64
	Number          string
	Supplier        string
	SupplierName    string
	Company         string
	SourceQuotation string
	TransactionDate time.Time
	ScheduleDate    time.Time
	Status          Status
	GrandTotal      float64
}

// OrderLine belongs to a purchase order and records its source quotation line
// for traceability.
type OrderLine struct {
	ID                  int64
	OrderID             int64
	ItemCode            string
	ItemName            string
	Description         string
	Qty                 float64
	Rate                float64
	Amount              float64
	UOM                 string
	ScheduleDate        time.Time
	SourceQuotation     string
	SourceQuotationLine int64
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("purchasing: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("purchasing: invalid input")
)
