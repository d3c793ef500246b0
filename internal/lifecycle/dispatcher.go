// Package lifecycle routes document save and status events to registered
// handlers, mirroring host-framework document hooks as explicit registrations.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Event names a point in a document's save lifecycle.
type Event string

const (
	// BeforeSave fires before a document is persisted. Handlers may reject
	// the save by returning an error.
	BeforeSave Event = "before_save"
	// AfterSave fires once a document has been persisted.
	AfterSave Event = "after_save"
	// StatusChanged fires when a document's workflow state is updated.
	StatusChanged Event = "status_changed"
)

// Doctype identifiers used across modules.
const (
	DoctypeSupplierQuotation = "Supplier Quotation"
	DoctypePurchaseOrder     = "Purchase Order"
)

// Handler receives a document snapshot for a fired event.
type Handler func(ctx context.Context, doc any) error

// Dispatcher holds handler registrations per doctype and event.
type Dispatcher struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	handlers map[string]map[Event][]Handler
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		handlers: make(map[string]map[Event][]Handler),
	}
}

// Register appends a handler for the doctype and event.
func (d *Dispatcher) Register(doctype string, event Event, h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	byEvent, ok := d.handlers[doctype]
	if !ok {
		byEvent = make(map[Event][]Handler)
		d.handlers[doctype] = byEvent
	}
	byEvent[event] = append(byEvent[event], h)
}

// Fire invokes registered handlers in registration order and stops at the
// first error.
func (d *Dispatcher) Fire(ctx context.Context, doctype string, event Event, doc any) error {
	d.mu.RLock()
	var hs []Handler
	if byEvent, ok := d.handlers[doctype]; ok {
		hs = byEvent[event]
	}
	d.mu.RUnlock()

	for _, h := range hs {
		if err := h(ctx, doc); err != nil {
			if d.logger != nil {
				d.logger.Error("lifecycle handler failed",
					slog.String("doctype", doctype),
					slog.String("event", string(event)),
					slog.Any("error", err),
				)
			}
			return fmt.Errorf("lifecycle: %s %s: %w", doctype, event, err)
		}
	}
	return nil
}
