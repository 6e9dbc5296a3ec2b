package repository

import (
	"context"

	"fleetbilling/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SalesInvoiceListFilter struct {
	Customer  string
	DocStatus *int
	Page      int
	Limit     int
}

type SalesInvoiceRepository interface {
	// Create inserts the invoice header, then its items leaving out itemOmit columns.
	Create(ctx context.Context, invoice *model.SalesInvoice, itemOmit ...string) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SalesInvoice, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.SalesInvoice, error)
	List(ctx context.Context, filter SalesInvoiceListFilter) ([]model.SalesInvoice, int64, error)
	UpdateStatus(ctx context.Context, invoice *model.SalesInvoice) error
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
}

type salesInvoiceRepository struct {
	db *gorm.DB
}

func NewSalesInvoiceRepository(db *gorm.DB) SalesInvoiceRepository {
	return &salesInvoiceRepository{db: db}
}

func (r *salesInvoiceRepository) Create(ctx context.Context, invoice *model.SalesInvoice, itemOmit ...string) error {
	db := GetDB(ctx, r.db)
	if err := db.Omit(clause.Associations).Create(invoice).Error; err != nil {
		return err
	}
	if len(invoice.Items) == 0 {
		return nil
	}

	for i := range invoice.Items {
		invoice.Items[i].InvoiceID = invoice.ID
	}
	itemQuery := db
	if len(itemOmit) > 0 {
		itemQuery = itemQuery.Omit(itemOmit...)
	}
	return itemQuery.Create(&invoice.Items).Error
}

func (r *salesInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SalesInvoice, error) {
	var invoice model.SalesInvoice
	if err := GetDB(ctx, r.db).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *salesInvoiceRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.SalesInvoice, error) {
	var invoice model.SalesInvoice
	err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("idx asc") }).
		Preload("TaxRule").
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *salesInvoiceRepository) List(ctx context.Context, filter SalesInvoiceListFilter) ([]model.SalesInvoice, int64, error) {
	var invoices []model.SalesInvoice
	var total int64

	db := GetDB(ctx, r.db)
	applyFilter := func(q *gorm.DB) *gorm.DB {
		if filter.Customer != "" {
			q = q.Where("customer = ?", filter.Customer)
		}
		if filter.DocStatus != nil {
			q = q.Where("docstatus = ?", *filter.DocStatus)
		}
		return q
	}

	if err := applyFilter(db.Model(&model.SalesInvoice{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := applyFilter(db.Model(&model.SalesInvoice{})).
		Preload("TaxRule").
		Order("created_at desc").
		Offset(offset).
		Limit(filter.Limit).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

func (r *salesInvoiceRepository) UpdateStatus(ctx context.Context, invoice *model.SalesInvoice) error {
	return GetDB(ctx, r.db).Model(invoice).Select("docstatus", "cancelled_at", "updated_at").Updates(invoice).Error
}

func (r *salesInvoiceRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.SalesInvoice{}).Where("name LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
