package repository

import (
	"context"
	"time"

	"fleetbilling/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaxRuleRepository interface {
	Create(ctx context.Context, rule *model.TaxRule) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRule, error)
	FindActiveByType(ctx context.Context, taxType string, targetDate time.Time) (*model.TaxRule, error)
	List(ctx context.Context) ([]model.TaxRule, error)
	Update(ctx context.Context, rule *model.TaxRule) error
	Delete(ctx context.Context, rule *model.TaxRule) error
	CountOverlapping(ctx context.Context, taxType string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error)
}

type taxRuleRepository struct {
	db *gorm.DB
}

func NewTaxRuleRepository(db *gorm.DB) TaxRuleRepository {
	return &taxRuleRepository{db: db}
}

func (r *taxRuleRepository) Create(ctx context.Context, rule *model.TaxRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *taxRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRule, error) {
	var rule model.TaxRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// FindActiveByType returns the latest rule of taxType whose validity window covers targetDate.
func (r *taxRuleRepository) FindActiveByType(ctx context.Context, taxType string, targetDate time.Time) (*model.TaxRule, error) {
	var rule model.TaxRule
	if err := GetDB(ctx, r.db).
		Where("tax_type = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", taxType, targetDate, targetDate).
		Order("effective_from DESC").
		First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *taxRuleRepository) List(ctx context.Context) ([]model.TaxRule, error) {
	var rules []model.TaxRule
	if err := GetDB(ctx, r.db).Order("effective_from DESC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *taxRuleRepository) Update(ctx context.Context, rule *model.TaxRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *taxRuleRepository) Delete(ctx context.Context, rule *model.TaxRule) error {
	return GetDB(ctx, r.db).Delete(rule).Error
}

// CountOverlapping counts rules of taxType whose window intersects [from, to]; a nil to is open ended.
func (r *taxRuleRepository) CountOverlapping(ctx context.Context, taxType string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	upper := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if to != nil {
		upper = *to
	}

	query := GetDB(ctx, r.db).Model(&model.TaxRule{}).
		Where("tax_type = ?", taxType).
		Where("effective_from <= ?", upper).
		Where("(effective_to IS NULL OR effective_to >= ?)", from)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}
