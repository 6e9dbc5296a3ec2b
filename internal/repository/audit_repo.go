package repository

import (
	"context"
	"fmt"

	"fleetbilling/internal/model"

	"gorm.io/gorm"
)

type AuditListFilter struct {
	Action   string
	EntityID string
	Page     int
	Limit    int
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditListFilter) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

const auditSavePoint = "audit_log"

// Log inserts an entry. Inside a transaction the insert runs under a savepoint,
// so a failed audit write leaves the surrounding transaction usable.
func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	db := GetDB(ctx, r.db)
	if !InTx(ctx) {
		return db.Create(entry).Error
	}

	if err := db.SavePoint(auditSavePoint).Error; err != nil {
		return err
	}
	if err := db.Create(entry).Error; err != nil {
		if rbErr := db.RollbackTo(auditSavePoint).Error; rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
		}
		return err
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filter AuditListFilter) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.AuditLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Preload("User").Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
