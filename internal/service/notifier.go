package service

// Realtime event names published to connected clients
const (
	EventSalesInvoiceCreated   = "sales_invoice.created"
	EventSalesInvoiceSubmitted = "sales_invoice.submitted"
	EventSalesInvoiceCancelled = "sales_invoice.cancelled"
)

// Notifier pushes user-facing notices to connected clients.
type Notifier interface {
	Publish(event string, payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, interface{}) {}
