package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesInvoice is the billing document generated from cargo details.
// It is created as a draft; cancelling it releases the cargo details it consumed.
type SalesInvoice struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string             `gorm:"type:varchar(140);uniqueIndex;not null" json:"name"`
	Customer    string             `gorm:"type:varchar(140);not null;index" json:"customer"`
	Company     string             `gorm:"type:varchar(140);not null;index" json:"company"`
	PostingDate time.Time          `gorm:"type:date;not null" json:"posting_date"`
	Currency    string             `gorm:"type:varchar(10)" json:"currency"`
	DocStatus   int                `gorm:"column:docstatus;not null;default:0;index" json:"docstatus"`
	TotalQty    decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0" json:"total_qty"`
	NetTotal    decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0" json:"net_total"`
	TaxRuleID   *uuid.UUID         `gorm:"type:uuid;index" json:"tax_rule_id"`
	TaxRule     *TaxRule           `gorm:"foreignKey:TaxRuleID" json:"tax_rule,omitempty"`
	TotalTaxes  decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0" json:"total_taxes"`
	GrandTotal  decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0" json:"grand_total"` // net_total + total_taxes
	CreatedBy   *uuid.UUID         `gorm:"type:uuid" json:"created_by"`
	CancelledAt *time.Time         `json:"cancelled_at"`
	Items       []SalesInvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (s *SalesInvoice) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SalesInvoiceItem is one invoice line, one per cargo detail
type SalesInvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Idx         int             `gorm:"not null" json:"idx"`
	ItemCode    string          `gorm:"type:varchar(140);not null" json:"item_code"`
	Qty         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"qty"`
	UOM         string          `gorm:"column:uom;type:varchar(50);not null" json:"uom"`
	Rate        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"rate"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Description string          `gorm:"type:text" json:"description"`
	CargoID     uuid.UUID       `gorm:"column:cargo_id;type:uuid;index" json:"cargo_id"`
	Truck       string          `gorm:"type:varchar(140)" json:"truck"` // extension column
}

func (i *SalesInvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
