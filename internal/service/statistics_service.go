package service

import (
	"context"
	"time"

	"fleetbilling/internal/model"
	"fleetbilling/internal/repository"
)

const topCustomerLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, start, end time.Time) (model.BillingStatistics, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

// GetStatistics aggregates invoices whose posting date falls in [start, end]
func (s *statisticsService) GetStatistics(ctx context.Context, start, end time.Time) (model.BillingStatistics, error) {
	stats := model.BillingStatistics{From: start, To: end}

	counts, err := s.repo.CountInvoicesByStatus(ctx, start, end)
	if err != nil {
		return stats, err
	}
	for _, c := range counts {
		switch c.DocStatus {
		case model.DocStatusDraft:
			stats.Drafts = c.Count
		case model.DocStatusSubmitted:
			stats.Submitted = c.Count
		case model.DocStatusCancelled:
			stats.Cancelled = c.Count
		}
	}

	totals, err := s.repo.SubmittedTotals(ctx, start, end)
	if err != nil {
		return stats, err
	}
	stats.NetTotal = totals.NetTotal
	stats.TotalTaxes = totals.TotalTaxes
	stats.GrandTotal = totals.GrandTotal

	if stats.TopCustomers, err = s.repo.TopCustomers(ctx, start, end, topCustomerLimit); err != nil {
		return stats, err
	}
	if stats.TopCustomers == nil {
		stats.TopCustomers = []model.CustomerBilling{}
	}

	stats.UnbilledCargo, stats.UnbilledValue, err = s.repo.UnbilledCargo(ctx)
	return stats, err
}
