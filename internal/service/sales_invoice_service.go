package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetbilling/internal/config"
	"fleetbilling/internal/model"
	"fleetbilling/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- DTOs ---

// CargoDetailIDs accepts either a JSON array of ids or a string holding one,
// e.g. ["a","b"] or "[\"a\",\"b\"]".
type CargoDetailIDs []string

func (ids *CargoDetailIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*ids = nil
		return nil
	}

	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*ids = nil
			return nil
		}
		data = []byte(raw)
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("cargo_detail_ids must be a list of ids: %w", err)
	}
	*ids = list
	return nil
}

type CreateFromCargoRequest struct {
	Customer       string         `json:"customer"`
	Company        string         `json:"company"`
	CargoDetailIDs CargoDetailIDs `json:"cargo_detail_ids" swaggertype:"array,string"`
}

type SalesInvoiceFilter struct {
	Customer  string
	DocStatus *int
	Page      int
	Limit     int
}

type SalesInvoiceItemResponse struct {
	Idx         int    `json:"idx"`
	ItemCode    string `json:"item_code"`
	Qty         string `json:"qty"`
	UOM         string `json:"uom"`
	Rate        string `json:"rate"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	CargoDetail string `json:"cargo_detail"`
	Truck       string `json:"truck,omitempty"`
}

type SalesInvoiceResponse struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Customer    string                     `json:"customer"`
	Company     string                     `json:"company"`
	PostingDate string                     `json:"posting_date"`
	Currency    string                     `json:"currency"`
	DocStatus   int                        `json:"docstatus"`
	Status      string                     `json:"status"`
	TotalQty    string                     `json:"total_qty"`
	NetTotal    string                     `json:"net_total"`
	TaxRuleID   *string                    `json:"tax_rule_id"`
	TaxType     *string                    `json:"tax_type"`
	TaxRate     *string                    `json:"tax_rate"`
	TotalTaxes  string                     `json:"total_taxes"`
	GrandTotal  string                     `json:"grand_total"`
	CreatedBy   *string                    `json:"created_by"`
	CancelledAt *string                    `json:"cancelled_at"`
	Items       []SalesInvoiceItemResponse `json:"items,omitempty"`
	CreatedAt   string                     `json:"created_at"`
}

// CreatedInvoice is the synthesis result plus the notice shown to the user
type CreatedInvoice struct {
	Invoice SalesInvoiceResponse
	Notice  string
}

// --- Interface ---

type SalesInvoiceService interface {
	CreateFromCargo(ctx context.Context, req CreateFromCargoRequest, userID string) (CreatedInvoice, error)
	SubmitInvoice(ctx context.Context, id string, userID string) (SalesInvoiceResponse, error)
	CancelInvoice(ctx context.Context, id string, userID string) (SalesInvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (SalesInvoiceResponse, error)
	ListInvoices(ctx context.Context, filter SalesInvoiceFilter) ([]SalesInvoiceResponse, int64, error)
}

type salesInvoiceService struct {
	invoiceRepo  repository.SalesInvoiceRepository
	cargoRepo    repository.CargoRepository
	taxRuleRepo  repository.TaxRuleRepository
	schemaRepo   repository.SchemaRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	descriptions *DescriptionBuilder
	hooks        *SalesInvoiceHooks
	notifier     Notifier
	billing      config.BillingConfig
	log          logrus.FieldLogger
	now          func() time.Time
}

func NewSalesInvoiceService(
	invoiceRepo repository.SalesInvoiceRepository,
	cargoRepo repository.CargoRepository,
	taxRuleRepo repository.TaxRuleRepository,
	schemaRepo repository.SchemaRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	descriptions *DescriptionBuilder,
	hooks *SalesInvoiceHooks,
	notifier Notifier,
	billing config.BillingConfig,
	log logrus.FieldLogger,
) SalesInvoiceService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if hooks == nil {
		hooks = NewSalesInvoiceHooks()
	}
	return &salesInvoiceService{
		invoiceRepo:  invoiceRepo,
		cargoRepo:    cargoRepo,
		taxRuleRepo:  taxRuleRepo,
		schemaRepo:   schemaRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		descriptions: descriptions,
		hooks:        hooks,
		notifier:     notifier,
		billing:      billing,
		log:          log,
		now:          time.Now,
	}
}

// billingCapabilities records which optional extension columns the live schema carries.
type billingCapabilities struct {
	billOnWeight bool
	billUOM      bool
	itemTruck    bool
}

func (c billingCapabilities) preferenceColumns() []string {
	var cols []string
	if c.billOnWeight {
		cols = append(cols, "allow_bill_on_weight")
	}
	if c.billUOM {
		cols = append(cols, "bill_uom")
	}
	return cols
}

func (s *salesInvoiceService) resolveCapabilities(ctx context.Context) billingCapabilities {
	return billingCapabilities{
		billOnWeight: s.schemaRepo.HasColumn(ctx, &model.CargoDetail{}, "allow_bill_on_weight"),
		billUOM:      s.schemaRepo.HasColumn(ctx, &model.CargoDetail{}, "bill_uom"),
		itemTruck:    s.schemaRepo.HasColumn(ctx, &model.SalesInvoiceItem{}, "truck"),
	}
}

// --- Implementation ---

func (s *salesInvoiceService) CreateFromCargo(ctx context.Context, req CreateFromCargoRequest, userID string) (CreatedInvoice, error) {
	customer := strings.TrimSpace(req.Customer)
	company := strings.TrimSpace(req.Company)
	if customer == "" {
		return CreatedInvoice{}, newValidationError(ErrCustomerRequired, "")
	}
	if company == "" {
		return CreatedInvoice{}, newValidationError(ErrCompanyRequired, "")
	}

	ids, err := parseCargoDetailIDs(req.CargoDetailIDs)
	if err != nil {
		return CreatedInvoice{}, err
	}

	caps := s.resolveCapabilities(ctx)

	var invoice model.SalesInvoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		details, err := s.cargoRepo.FindEligibleDetails(txCtx, ids)
		if err != nil {
			return fmt.Errorf("failed to fetch cargo details: %w", err)
		}
		if len(details) == 0 {
			return newValidationError(ErrNoEligibleCargo, "")
		}
		details = orderByIDs(details, ids)

		eligibleIDs := make([]uuid.UUID, 0, len(details))
		for _, d := range details {
			eligibleIDs = append(eligibleIDs, d.ID)
		}

		prefs, err := s.cargoRepo.FindBillingPreferences(txCtx, eligibleIDs, caps.preferenceColumns())
		if err != nil {
			return fmt.Errorf("failed to fetch billing preferences: %w", err)
		}

		postingDate := truncateToDate(s.now())
		invoice = model.SalesInvoice{
			Customer:    customer,
			Company:     company,
			PostingDate: postingDate,
			Currency:    s.pickCurrency(details),
			DocStatus:   model.DocStatusDraft,
		}
		if userID != "" {
			if parsed, err := uuid.Parse(userID); err == nil {
				invoice.CreatedBy = &parsed
			}
		}

		for i, d := range details {
			// manifest reads stay outside the transaction; a failed read must not abort it
			invoice.Items = append(invoice.Items, s.buildItem(ctx, i+1, d, prefs[d.ID], caps))
		}

		if err := s.applyTotals(txCtx, &invoice); err != nil {
			return err
		}

		name, err := s.generateName(txCtx, postingDate)
		if err != nil {
			return fmt.Errorf("failed to generate invoice name: %w", err)
		}
		invoice.Name = name

		var itemOmit []string
		if !caps.itemTruck {
			itemOmit = append(itemOmit, "truck")
		}
		if err := s.invoiceRepo.Create(txCtx, &invoice, itemOmit...); err != nil {
			return fmt.Errorf("failed to create sales invoice: %w", err)
		}

		linked, err := s.cargoRepo.LinkInvoice(txCtx, eligibleIDs, invoice.Name)
		if err != nil {
			return fmt.Errorf("failed to link cargo details: %w", err)
		}
		if linked != int64(len(eligibleIDs)) {
			return newValidationError(ErrCargoRaced, fmt.Sprintf("linked %d of %d", linked, len(eligibleIDs)))
		}
		return nil
	})
	if err != nil {
		return CreatedInvoice{}, err
	}

	cargoIDs := make([]string, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		cargoIDs = append(cargoIDs, item.CargoID.String())
	}
	writeAuditLog(ctx, s.auditRepo, s.log, userID, model.ActionCreateSalesInvoice, invoice.ID.String(), invoice.Name, map[string]interface{}{
		"customer":    invoice.Customer,
		"company":     invoice.Company,
		"items":       len(invoice.Items),
		"grand_total": invoice.GrandTotal.StringFixed(4),
	})
	writeAuditLog(ctx, s.auditRepo, s.log, userID, model.ActionLinkCargoDetails, invoice.ID.String(), invoice.Name, map[string]interface{}{
		"cargo_details": cargoIDs,
	})

	s.log.WithFields(logrus.Fields{
		"invoice":  invoice.Name,
		"customer": invoice.Customer,
		"items":    len(invoice.Items),
	}).Info("sales invoice created from cargo")

	s.notifier.Publish(EventSalesInvoiceCreated, map[string]interface{}{
		"name":     invoice.Name,
		"customer": invoice.Customer,
		"items":    len(invoice.Items),
		"message":  fmt.Sprintf("Sales Invoice created with %d items", len(invoice.Items)),
	})

	reloaded, err := s.invoiceRepo.FindByIDWithItems(ctx, invoice.ID)
	if err != nil {
		return CreatedInvoice{}, fmt.Errorf("failed to reload sales invoice: %w", err)
	}

	return CreatedInvoice{
		Invoice: toSalesInvoiceResponse(*reloaded),
		Notice:  fmt.Sprintf("Sales Invoice %s created successfully", invoice.Name),
	}, nil
}

func (s *salesInvoiceService) buildItem(ctx context.Context, idx int, d model.CargoDetail, pref repository.BillingPreference, caps billingCapabilities) model.SalesInvoiceItem {
	qty := decimal.NewFromInt(1)
	if pref.AllowBillOnWeight {
		qty = billableTonnes(d.NetWeight)
	}

	uom := s.billing.DefaultUOM
	if pref.BillUOM != "" {
		uom = pref.BillUOM
	}

	item := model.SalesInvoiceItem{
		Idx:         idx,
		ItemCode:    d.ServiceItem,
		Qty:         qty,
		UOM:         uom,
		Rate:        d.Rate,
		Amount:      qty.Mul(d.Rate),
		Description: s.descriptions.Build(ctx, d),
		CargoID:     d.ID,
	}
	if caps.itemTruck {
		item.Truck = d.AssignedTruck
	}
	return item
}

// applyTotals sums the lines and applies the tax rule active on the posting date.
func (s *salesInvoiceService) applyTotals(ctx context.Context, invoice *model.SalesInvoice) error {
	totalQty := decimal.Zero
	netTotal := decimal.Zero
	for _, item := range invoice.Items {
		totalQty = totalQty.Add(item.Qty)
		netTotal = netTotal.Add(item.Amount)
	}

	taxes := decimal.Zero
	if s.billing.TaxType != "" {
		rule, err := s.taxRuleRepo.FindActiveByType(ctx, s.billing.TaxType, invoice.PostingDate)
		switch {
		case err == nil:
			invoice.TaxRuleID = &rule.ID
			taxes = netTotal.Mul(rule.Rate)
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("failed to fetch tax rule: %w", err)
		}
	}

	invoice.TotalQty = totalQty
	invoice.NetTotal = netTotal
	invoice.TotalTaxes = taxes
	invoice.GrandTotal = netTotal.Add(taxes)
	return nil
}

func (s *salesInvoiceService) pickCurrency(details []model.CargoDetail) string {
	for _, d := range details {
		if d.Currency != "" {
			return d.Currency
		}
	}
	return s.billing.DefaultCurrency
}

// generateName yields <prefix><year>-<sequence>, e.g. SINV-2026-00001.
func (s *salesInvoiceService) generateName(ctx context.Context, postingDate time.Time) (string, error) {
	prefix := fmt.Sprintf("%s%d-", s.billing.NamingPrefix, postingDate.Year())

	count, err := s.invoiceRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func (s *salesInvoiceService) SubmitInvoice(ctx context.Context, id string, userID string) (SalesInvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return SalesInvoiceResponse{}, ErrInvoiceNotFound
	}

	var invoice *model.SalesInvoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		invoice, findErr = s.findInvoice(txCtx, invoiceID)
		if findErr != nil {
			return findErr
		}

		if invoice.DocStatus != model.DocStatusDraft {
			return newValidationError(ErrInvalidDocStatus, "only draft invoices can be submitted, invoice is "+docStatusLabel(invoice.DocStatus))
		}

		invoice.DocStatus = model.DocStatusSubmitted
		if err := s.invoiceRepo.UpdateStatus(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to submit sales invoice: %w", err)
		}
		return s.hooks.Run(txCtx, OnSubmit, invoice)
	})
	if err != nil {
		return SalesInvoiceResponse{}, err
	}

	writeAuditLog(ctx, s.auditRepo, s.log, userID, model.ActionSubmitSalesInvoice, invoice.ID.String(), invoice.Name, map[string]interface{}{
		"docstatus": invoice.DocStatus,
	})
	s.notifier.Publish(EventSalesInvoiceSubmitted, map[string]interface{}{
		"name":    invoice.Name,
		"message": fmt.Sprintf("Sales Invoice %s submitted", invoice.Name),
	})

	return s.GetInvoice(ctx, invoice.ID.String())
}

// CancelInvoice cancels a draft or submitted invoice and runs the on_cancel hooks
// in the same transaction, which releases the cargo details it consumed.
func (s *salesInvoiceService) CancelInvoice(ctx context.Context, id string, userID string) (SalesInvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return SalesInvoiceResponse{}, ErrInvoiceNotFound
	}

	var invoice *model.SalesInvoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		invoice, findErr = s.findInvoice(txCtx, invoiceID)
		if findErr != nil {
			return findErr
		}

		if invoice.DocStatus == model.DocStatusCancelled {
			return newValidationError(ErrInvalidDocStatus, "invoice is already cancelled")
		}

		now := s.now()
		invoice.DocStatus = model.DocStatusCancelled
		invoice.CancelledAt = &now
		if err := s.invoiceRepo.UpdateStatus(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to cancel sales invoice: %w", err)
		}
		return s.hooks.Run(txCtx, OnCancel, invoice)
	})
	if err != nil {
		return SalesInvoiceResponse{}, err
	}

	writeAuditLog(ctx, s.auditRepo, s.log, userID, model.ActionCancelSalesInvoice, invoice.ID.String(), invoice.Name, map[string]interface{}{
		"docstatus": invoice.DocStatus,
	})
	s.log.WithField("invoice", invoice.Name).Info("sales invoice cancelled")
	s.notifier.Publish(EventSalesInvoiceCancelled, map[string]interface{}{
		"name":    invoice.Name,
		"message": fmt.Sprintf("Sales Invoice %s cancelled, its Cargo Details are available again", invoice.Name),
	})

	return s.GetInvoice(ctx, invoice.ID.String())
}

func (s *salesInvoiceService) GetInvoice(ctx context.Context, id string) (SalesInvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return SalesInvoiceResponse{}, ErrInvoiceNotFound
	}

	invoice, err := s.invoiceRepo.FindByIDWithItems(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SalesInvoiceResponse{}, ErrInvoiceNotFound
		}
		return SalesInvoiceResponse{}, fmt.Errorf("failed to fetch sales invoice: %w", err)
	}
	return toSalesInvoiceResponse(*invoice), nil
}

func (s *salesInvoiceService) ListInvoices(ctx context.Context, filter SalesInvoiceFilter) ([]SalesInvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	invoices, total, err := s.invoiceRepo.List(ctx, repository.SalesInvoiceListFilter{
		Customer:  filter.Customer,
		DocStatus: filter.DocStatus,
		Page:      filter.Page,
		Limit:     filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch sales invoices: %w", err)
	}

	result := make([]SalesInvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toSalesInvoiceResponse(inv))
	}
	return result, total, nil
}

func (s *salesInvoiceService) findInvoice(ctx context.Context, id uuid.UUID) (*model.SalesInvoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to fetch sales invoice: %w", err)
	}
	return invoice, nil
}

// --- Helpers ---

// parseCargoDetailIDs validates and de-duplicates the requested ids, keeping request order.
func parseCargoDetailIDs(raw CargoDetailIDs) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]struct{}, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, newValidationError(ErrInvalidCargoDetail, r)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, newValidationError(ErrNoCargoSelected, "")
	}
	return ids, nil
}

func orderByIDs(details []model.CargoDetail, ids []uuid.UUID) []model.CargoDetail {
	byID := make(map[uuid.UUID]model.CargoDetail, len(details))
	for _, d := range details {
		byID[d.ID] = d
	}
	ordered := make([]model.CargoDetail, 0, len(details))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			ordered = append(ordered, d)
		}
	}
	return ordered
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func docStatusLabel(status int) string {
	switch status {
	case model.DocStatusDraft:
		return "Draft"
	case model.DocStatusSubmitted:
		return "Submitted"
	case model.DocStatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// --- Mapping ---

func toSalesInvoiceResponse(inv model.SalesInvoice) SalesInvoiceResponse {
	resp := SalesInvoiceResponse{
		ID:          inv.ID.String(),
		Name:        inv.Name,
		Customer:    inv.Customer,
		Company:     inv.Company,
		PostingDate: inv.PostingDate.Format("2006-01-02"),
		Currency:    inv.Currency,
		DocStatus:   inv.DocStatus,
		Status:      docStatusLabel(inv.DocStatus),
		TotalQty:    inv.TotalQty.StringFixed(4),
		NetTotal:    inv.NetTotal.StringFixed(4),
		TotalTaxes:  inv.TotalTaxes.StringFixed(4),
		GrandTotal:  inv.GrandTotal.StringFixed(4),
		CreatedAt:   inv.CreatedAt.Format(time.RFC3339),
	}

	if inv.TaxRuleID != nil {
		s := inv.TaxRuleID.String()
		resp.TaxRuleID = &s
	}
	if inv.TaxRule != nil {
		resp.TaxType = &inv.TaxRule.TaxType
		rate := inv.TaxRule.Rate.StringFixed(4)
		resp.TaxRate = &rate
	}
	if inv.CreatedBy != nil {
		s := inv.CreatedBy.String()
		resp.CreatedBy = &s
	}
	if inv.CancelledAt != nil {
		s := inv.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &s
	}

	for _, item := range inv.Items {
		resp.Items = append(resp.Items, SalesInvoiceItemResponse{
			Idx:         item.Idx,
			ItemCode:    item.ItemCode,
			Qty:         item.Qty.StringFixed(4),
			UOM:         item.UOM,
			Rate:        item.Rate.StringFixed(4),
			Amount:      item.Amount.StringFixed(4),
			Description: item.Description,
			CargoDetail: item.CargoID.String(),
			Truck:       item.Truck,
		})
	}

	return resp
}
