package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin      = "admin"
	RoleAccounts   = "accounts"
	RoleDispatcher = "dispatcher"
)

const (
	PermCargoRead      = "cargo.read"
	PermInvoicesRead   = "invoices.read"
	PermInvoicesWrite  = "invoices.write"
	PermInvoicesCancel = "invoices.cancel"
	PermAuditRead      = "audit.read"
	PermTaxManage      = "tax.manage"
	PermUsersManage    = "users.manage"
)

// IsKnownRole reports whether name is one of the seeded roles
func IsKnownRole(name string) bool {
	switch name {
	case RoleAdmin, RoleAccounts, RoleDispatcher:
		return true
	}
	return false
}

// Role represents a user role with associated permissions
type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Permission is a single permission code that can be granted to roles
type Permission struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code  string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"` // e.g. "invoices.write"
	Name  string    `gorm:"type:varchar(255);not null" json:"name"`
	Group string    `gorm:"type:varchar(50);not null;index" json:"group"`
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
