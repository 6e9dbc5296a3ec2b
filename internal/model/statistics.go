package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingStatistics summarises invoicing activity over a posting-date window
type BillingStatistics struct {
	From          time.Time         `json:"from"`
	To            time.Time         `json:"to"`
	Drafts        int64             `json:"drafts"`
	Submitted     int64             `json:"submitted"`
	Cancelled     int64             `json:"cancelled"`
	NetTotal      decimal.Decimal   `json:"net_total"` // submitted invoices only
	TotalTaxes    decimal.Decimal   `json:"total_taxes"`
	GrandTotal    decimal.Decimal   `json:"grand_total"`
	TopCustomers  []CustomerBilling `json:"top_customers"`
	UnbilledCargo int64             `json:"unbilled_cargo"` // backlog right now, not windowed
	UnbilledValue decimal.Decimal   `json:"unbilled_value"`
}

// CustomerBilling ranks a customer by submitted grand total
type CustomerBilling struct {
	Customer    string          `json:"customer"`
	Invoices    int64           `json:"invoices"`
	BilledTotal decimal.Decimal `json:"billed_total"`
}
