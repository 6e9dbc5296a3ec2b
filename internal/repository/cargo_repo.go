package repository

import (
	"context"

	"fleetbilling/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// uninvoicedClause matches detail rows without an invoice reference.
const uninvoicedClause = "(invoice IS NULL OR invoice = '')"

// Columns returned by the uninvoiced lookup.
var lookupColumns = []string{
	"id", "parent_id", "idx", "service_item", "rate", "currency", "cargo_route", "cargo_type",
	"net_weight", "number_of_packages", "manifest_number", "transporter_type", "assigned_truck",
	"truck_number", "driver_name", "created_trip", "cargo_destination_city", "cargo_destination_country",
}

// Columns needed to build invoice lines.
var billingColumns = []string{
	"id", "parent_id", "service_item", "rate", "currency", "cargo_route", "net_weight",
	"manifest_number", "transporter_type", "assigned_truck", "truck_number", "driver_name", "created_trip",
}

type RegistrationFilter struct {
	Customer string
	Company  string // optional
}

// BillingPreference carries the per-detail extension columns that shape an invoice line
type BillingPreference struct {
	AllowBillOnWeight bool
	BillUOM           string
}

type CargoRepository interface {
	ListSubmittedRegistrations(ctx context.Context, filter RegistrationFilter) ([]model.CargoRegistration, error)
	ListUninvoicedDetails(ctx context.Context, parentIDs []uuid.UUID) ([]model.CargoDetail, error)
	FindEligibleDetails(ctx context.Context, ids []uuid.UUID) ([]model.CargoDetail, error)
	FindBillingPreferences(ctx context.Context, ids []uuid.UUID, columns []string) (map[uuid.UUID]BillingPreference, error)
	LinkInvoice(ctx context.Context, ids []uuid.UUID, invoiceName string) (int64, error)
	ClearInvoice(ctx context.Context, invoiceName string) (int64, error)
}

type cargoRepository struct {
	db *gorm.DB
}

func NewCargoRepository(db *gorm.DB) CargoRepository {
	return &cargoRepository{db: db}
}

func (r *cargoRepository) ListSubmittedRegistrations(ctx context.Context, filter RegistrationFilter) ([]model.CargoRegistration, error) {
	var regs []model.CargoRegistration

	query := GetDB(ctx, r.db).
		Select("id", "name").
		Where("docstatus = ? AND customer = ?", model.DocStatusSubmitted, filter.Customer)
	if filter.Company != "" {
		query = query.Where("company = ?", filter.Company)
	}

	if err := query.Order("updated_at desc").Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *cargoRepository) ListUninvoicedDetails(ctx context.Context, parentIDs []uuid.UUID) ([]model.CargoDetail, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}

	var details []model.CargoDetail
	err := GetDB(ctx, r.db).
		Select(lookupColumns).
		Where("parent_id IN ?", parentIDs).
		Where("docstatus = ?", model.DocStatusSubmitted).
		Where(uninvoicedClause).
		Order("idx asc").
		Find(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (r *cargoRepository) FindEligibleDetails(ctx context.Context, ids []uuid.UUID) ([]model.CargoDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var details []model.CargoDetail
	err := GetDB(ctx, r.db).
		Select(billingColumns).
		Where("id IN ?", ids).
		Where("docstatus = ?", model.DocStatusSubmitted).
		Where(uninvoicedClause).
		Find(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

// FindBillingPreferences reads only the extension columns the caller knows to exist.
func (r *cargoRepository) FindBillingPreferences(ctx context.Context, ids []uuid.UUID, columns []string) (map[uuid.UUID]BillingPreference, error) {
	prefs := make(map[uuid.UUID]BillingPreference, len(ids))
	if len(ids) == 0 || len(columns) == 0 {
		return prefs, nil
	}

	var rows []model.CargoDetail
	selectCols := append([]string{"id"}, columns...)
	if err := GetDB(ctx, r.db).Select(selectCols).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		prefs[row.ID] = BillingPreference{
			AllowBillOnWeight: row.AllowBillOnWeight,
			BillUOM:           row.BillUOM,
		}
	}
	return prefs, nil
}

// LinkInvoice stamps invoiceName on the given details that are still unbilled.
// Rows billed in the meantime are skipped, so callers compare the count with len(ids).
func (r *cargoRepository) LinkInvoice(ctx context.Context, ids []uuid.UUID, invoiceName string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := GetDB(ctx, r.db).Model(&model.CargoDetail{}).
		Where("id IN ?", ids).
		Where(uninvoicedClause).
		Update("invoice", invoiceName)
	return res.RowsAffected, res.Error
}

// ClearInvoice empties the invoice reference of every detail pointing at invoiceName.
func (r *cargoRepository) ClearInvoice(ctx context.Context, invoiceName string) (int64, error) {
	if invoiceName == "" {
		return 0, nil
	}
	res := GetDB(ctx, r.db).Model(&model.CargoDetail{}).Where("invoice = ?", invoiceName).Update("invoice", "")
	return res.RowsAffected, res.Error
}
