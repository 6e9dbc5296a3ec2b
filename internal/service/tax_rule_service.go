package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetbilling/internal/model"
	"fleetbilling/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// --- DTOs ---

type TaxRuleRequest struct {
	TaxType       string `json:"tax_type" binding:"required,max=20"`
	Rate          string `json:"rate" binding:"required"`           // decimal string, "0.18" = 18%
	EffectiveFrom string `json:"effective_from" binding:"required"` // YYYY-MM-DD
	EffectiveTo   string `json:"effective_to"`                      // YYYY-MM-DD, empty = open ended
	Description   string `json:"description"`
}

type TaxRuleResponse struct {
	ID            string  `json:"id"`
	TaxType       string  `json:"tax_type"`
	Rate          string  `json:"rate"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to"`
	Description   string  `json:"description"`
	CreatedAt     string  `json:"created_at"`
}

type ActiveTaxRateResponse struct {
	TaxType string `json:"tax_type"`
	Rate    string `json:"rate"`
	RuleID  string `json:"rule_id"`
}

// --- Interface ---

// TaxRuleService maintains the dated tax rates applied to new invoices.
type TaxRuleService interface {
	GetTaxRules(ctx context.Context) ([]TaxRuleResponse, error)
	CreateTaxRule(ctx context.Context, req TaxRuleRequest, userID string) (TaxRuleResponse, error)
	UpdateTaxRule(ctx context.Context, id string, req TaxRuleRequest, userID string) (TaxRuleResponse, error)
	DeleteTaxRule(ctx context.Context, id string, userID string) error
	GetActiveTaxRate(ctx context.Context, taxType string) (*ActiveTaxRateResponse, error)
}

type taxRuleService struct {
	taxRuleRepo repository.TaxRuleRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewTaxRuleService(
	taxRuleRepo repository.TaxRuleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	log logrus.FieldLogger,
) TaxRuleService {
	return &taxRuleService{
		taxRuleRepo: taxRuleRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		log:         log,
		now:         time.Now,
	}
}

// --- Implementation ---

func (s *taxRuleService) GetTaxRules(ctx context.Context) ([]TaxRuleResponse, error) {
	rules, err := s.taxRuleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tax rules: %w", err)
	}

	res := make([]TaxRuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toTaxRuleResponse(r))
	}
	return res, nil
}

func (s *taxRuleService) CreateTaxRule(ctx context.Context, req TaxRuleRequest, userID string) (TaxRuleResponse, error) {
	rule := model.TaxRule{TaxType: req.TaxType, Description: req.Description}
	if err := applyTaxRuleFields(&rule, req); err != nil {
		return TaxRuleResponse{}, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.checkOverlap(txCtx, &rule, nil); err != nil {
			return err
		}
		if err := s.taxRuleRepo.Create(txCtx, &rule); err != nil {
			return fmt.Errorf("failed to create tax rule: %w", err)
		}
		return nil
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}

	writeAuditLog(ctx, s.auditRepo, s.log, userID, model.ActionCreateTaxRule, rule.ID.String(), rule.TaxType+" "+rule.Rate.StringFixed(4), req)
	s.log.WithFields(logrus.Fields{"tax_type": rule.TaxType, "rate": rule.Rate.String()}).Info("tax rule created")

	return toTaxRuleResponse(rule), nil
}

func (s *taxRuleService) UpdateTaxRule(ctx context.Context, id string, req TaxRuleRequest, userID string) (TaxRuleResponse, error) {
	var rule *model.TaxRule
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		rule, err = s.findRule(txCtx, id)
		if err != nil {
			return err
		}

		rule.TaxType = req.TaxType
		rule.Description = req.Description
		if err := applyTaxRuleFields(rule, req); err != nil {
			return err
		}
		if err := s.checkOverlap(txCtx, rule, &rule.ID); err != nil {
			return err
		}
		if err := s.taxRuleRepo.Update(txCtx, rule); err != nil {
			return fmt.Errorf("failed to update tax rule: %w", err)
		}
		return nil
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}

	writeAuditLog(ctx, s.auditRepo, s.log, userID, model.ActionUpdateTaxRule, rule.ID.String(), rule.TaxType+" "+rule.Rate.StringFixed(4), req)

	return toTaxRuleResponse(*rule), nil
}

// DeleteTaxRule removes a rule. Invoices that already used it keep their computed taxes.
func (s *taxRuleService) DeleteTaxRule(ctx context.Context, id string, userID string) error {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return err
	}
	if err := s.taxRuleRepo.Delete(ctx, rule); err != nil {
		return fmt.Errorf("failed to delete tax rule: %w", err)
	}

	writeAuditLog(ctx, s.auditRepo, s.log, userID, model.ActionDeleteTaxRule, rule.ID.String(), rule.TaxType+" "+rule.Rate.StringFixed(4), map[string]string{"deleted_id": id})
	return nil
}

// GetActiveTaxRate returns the rule in force today, or nil when none is.
func (s *taxRuleService) GetActiveTaxRate(ctx context.Context, taxType string) (*ActiveTaxRateResponse, error) {
	rule, err := s.taxRuleRepo.FindActiveByType(ctx, taxType, truncateToDate(s.now()))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query active tax rate: %w", err)
	}

	return &ActiveTaxRateResponse{
		TaxType: rule.TaxType,
		Rate:    rule.Rate.StringFixed(4),
		RuleID:  rule.ID.String(),
	}, nil
}

// --- Helpers ---

func (s *taxRuleService) findRule(ctx context.Context, id string) (*model.TaxRule, error) {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrTaxRuleNotFound
	}
	rule, err := s.taxRuleRepo.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaxRuleNotFound
		}
		return nil, fmt.Errorf("failed to fetch tax rule: %w", err)
	}
	return rule, nil
}

func (s *taxRuleService) checkOverlap(ctx context.Context, rule *model.TaxRule, excludeID *uuid.UUID) error {
	count, err := s.taxRuleRepo.CountOverlapping(ctx, rule.TaxType, rule.EffectiveFrom, rule.EffectiveTo, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check overlap: %w", err)
	}
	if count > 0 {
		return newValidationError(ErrTaxRuleOverlap, rule.TaxType)
	}
	return nil
}

func applyTaxRuleFields(rule *model.TaxRule, req TaxRuleRequest) error {
	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		return newValidationError(ErrInvalidTaxRule, "rate must be a decimal such as 0.18")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return newValidationError(ErrInvalidTaxRule, "rate must be between 0 and 1")
	}

	from, err := time.Parse(dateLayout, req.EffectiveFrom)
	if err != nil {
		return newValidationError(ErrInvalidTaxRule, "effective_from must be YYYY-MM-DD")
	}

	var to *time.Time
	if req.EffectiveTo != "" {
		t, err := time.Parse(dateLayout, req.EffectiveTo)
		if err != nil {
			return newValidationError(ErrInvalidTaxRule, "effective_to must be YYYY-MM-DD")
		}
		if t.Before(from) {
			return newValidationError(ErrInvalidTaxRule, "effective_to is before effective_from")
		}
		to = &t
	}

	rule.Rate = rate
	rule.EffectiveFrom = from
	rule.EffectiveTo = to
	return nil
}

func toTaxRuleResponse(r model.TaxRule) TaxRuleResponse {
	resp := TaxRuleResponse{
		ID:            r.ID.String(),
		TaxType:       r.TaxType,
		Rate:          r.Rate.StringFixed(4),
		EffectiveFrom: r.EffectiveFrom.Format(dateLayout),
		Description:   r.Description,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.EffectiveTo != nil {
		s := r.EffectiveTo.Format(dateLayout)
		resp.EffectiveTo = &s
	}
	return resp
}
