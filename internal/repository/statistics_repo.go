package repository

import (
	"context"
	"fmt"
	"time"

	"fleetbilling/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DocStatusCount struct {
	DocStatus int   `gorm:"column:docstatus"`
	Count     int64 `gorm:"column:count"`
}

type InvoiceTotals struct {
	NetTotal   decimal.Decimal `gorm:"column:net_total"`
	TotalTaxes decimal.Decimal `gorm:"column:total_taxes"`
	GrandTotal decimal.Decimal `gorm:"column:grand_total"`
}

type StatisticsRepository interface {
	CountInvoicesByStatus(ctx context.Context, start, end time.Time) ([]DocStatusCount, error)
	SubmittedTotals(ctx context.Context, start, end time.Time) (InvoiceTotals, error)
	TopCustomers(ctx context.Context, start, end time.Time, limit int) ([]model.CustomerBilling, error)
	UnbilledCargo(ctx context.Context) (int64, decimal.Decimal, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) inWindow(ctx context.Context, start, end time.Time) *gorm.DB {
	return GetDB(ctx, r.db).Model(&model.SalesInvoice{}).
		Where("posting_date >= ? AND posting_date <= ?", start, end)
}

func (r *statisticsRepository) CountInvoicesByStatus(ctx context.Context, start, end time.Time) ([]DocStatusCount, error) {
	var rows []DocStatusCount
	if err := r.inWindow(ctx, start, end).
		Select("docstatus, COUNT(*) AS count").
		Group("docstatus").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}
	return rows, nil
}

func (r *statisticsRepository) SubmittedTotals(ctx context.Context, start, end time.Time) (InvoiceTotals, error) {
	var totals InvoiceTotals
	err := r.inWindow(ctx, start, end).
		Select("COALESCE(SUM(net_total), 0) AS net_total, COALESCE(SUM(total_taxes), 0) AS total_taxes, COALESCE(SUM(grand_total), 0) AS grand_total").
		Where("docstatus = ?", model.DocStatusSubmitted).
		Scan(&totals).Error
	if err != nil {
		return InvoiceTotals{}, fmt.Errorf("failed to total invoices: %w", err)
	}
	return totals, nil
}

func (r *statisticsRepository) TopCustomers(ctx context.Context, start, end time.Time, limit int) ([]model.CustomerBilling, error) {
	var rankings []model.CustomerBilling
	if err := r.inWindow(ctx, start, end).
		Select("customer, COUNT(*) AS invoices, COALESCE(SUM(grand_total), 0) AS billed_total").
		Where("docstatus = ?", model.DocStatusSubmitted).
		Group("customer").
		Order("billed_total DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top customers: %w", err)
	}
	return rankings, nil
}

// UnbilledCargo counts submitted details of submitted registrations that carry no invoice reference.
func (r *statisticsRepository) UnbilledCargo(ctx context.Context) (int64, decimal.Decimal, error) {
	var result struct {
		Count int64           `gorm:"column:count"`
		Value decimal.Decimal `gorm:"column:value"`
	}
	err := GetDB(ctx, r.db).Table("cargo_details AS d").
		Select("COUNT(*) AS count, COALESCE(SUM(d.rate), 0) AS value").
		Joins("JOIN cargo_registrations AS r ON r.id = d.parent_id").
		Where("d.docstatus = ? AND r.docstatus = ?", model.DocStatusSubmitted, model.DocStatusSubmitted).
		Where("(d.invoice IS NULL OR d.invoice = '')").
		Scan(&result).Error
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to query unbilled cargo: %w", err)
	}
	return result.Count, result.Value, nil
}
