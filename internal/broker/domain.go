package broker

import (
	"errors"
	"time"
)

// Document submission states.
const (
	DocStatusDraft     = 0
	DocStatusSubmitted = 1
)

// Broker is a mobile-only record of a transport broker engagement.
type Broker struct {
	ID            int64
	Number        string
	BrokerName    string
	ItemName      string
	ItemRate      float64
	Taxes         string
	VehicleNumber string
	DocStatus     int
	CreatedAt     time.Time
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("broker: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("broker: invalid input")
)
