package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionCreateSalesInvoice  = "CREATE_SALES_INVOICE"
	ActionSubmitSalesInvoice  = "SUBMIT_SALES_INVOICE"
	ActionCancelSalesInvoice  = "CANCEL_SALES_INVOICE"
	ActionLinkCargoDetails    = "LINK_CARGO_DETAILS"
	ActionUnlinkCargoDetails  = "UNLINK_CARGO_DETAILS"
	ActionUpdateDocTypeModule = "UPDATE_DOCTYPE_MODULE"
	ActionCreateTaxRule       = "CREATE_TAX_RULE"
	ActionUpdateTaxRule       = "UPDATE_TAX_RULE"
	ActionDeleteTaxRule       = "DELETE_TAX_RULE"
	ActionCreateUser          = "CREATE_USER"
	ActionUpdateUser          = "UPDATE_USER"
	ActionDeleteUser          = "DELETE_USER"
)

// AuditLog tracks Who, What, and When for billing changes
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"` // nil for system actions (hooks, migrations)
	User       *User          `gorm:"foreignKey:UserID" json:"user"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(140);index" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSON `json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
