package service

import (
	"context"
	"fmt"
	"sync"

	"fleetbilling/internal/model"
)

type SalesInvoiceEvent string

const (
	OnSubmit SalesInvoiceEvent = "on_submit"
	OnCancel SalesInvoiceEvent = "on_cancel"
)

// SalesInvoiceHook reacts to a sales invoice lifecycle event.
// Hooks run inside the document's transaction; an error rolls the change back.
type SalesInvoiceHook func(ctx context.Context, invoice *model.SalesInvoice) error

// SalesInvoiceHooks is the registry of document event hooks for sales invoices
type SalesInvoiceHooks struct {
	mu    sync.RWMutex
	hooks map[SalesInvoiceEvent][]SalesInvoiceHook
}

func NewSalesInvoiceHooks() *SalesInvoiceHooks {
	return &SalesInvoiceHooks{hooks: make(map[SalesInvoiceEvent][]SalesInvoiceHook)}
}

func (h *SalesInvoiceHooks) Register(event SalesInvoiceEvent, hook SalesInvoiceHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks[event] = append(h.hooks[event], hook)
}

// Run calls the hooks for event in registration order and stops at the first error.
func (h *SalesInvoiceHooks) Run(ctx context.Context, event SalesInvoiceEvent, invoice *model.SalesInvoice) error {
	h.mu.RLock()
	hooks := append([]SalesInvoiceHook(nil), h.hooks[event]...)
	h.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, invoice); err != nil {
			return fmt.Errorf("%s hook for %s: %w", event, invoice.Name, err)
		}
	}
	return nil
}
