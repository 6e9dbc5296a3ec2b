package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fleetbilling/internal/model"
	"fleetbilling/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func idsOf(reg model.CargoRegistration) CargoDetailIDs {
	ids := make(CargoDetailIDs, 0, len(reg.Details))
	for _, d := range reg.Details {
		ids = append(ids, d.ID.String())
	}
	return ids
}

func createReq(ids CargoDetailIDs) CreateFromCargoRequest {
	return CreateFromCargoRequest{Customer: "Acme", Company: "Fleet Co", CargoDetailIDs: ids}
}

func TestCargoDetailIDs_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []string
		wantErr bool
	}{
		{"list", `{"cargo_detail_ids":["a","b"]}`, []string{"a", "b"}, false},
		{"serialized list", `{"cargo_detail_ids":"[\"a\",\"b\"]"}`, []string{"a", "b"}, false},
		{"empty string", `{"cargo_detail_ids":""}`, nil, false},
		{"null", `{"cargo_detail_ids":null}`, nil, false},
		{"not a list", `{"cargo_detail_ids":"a,b"}`, nil, true},
		{"number", `{"cargo_detail_ids":7}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CreateFromCargoRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(req.CargoDetailIDs) != len(tt.want) {
				t.Fatalf("got %v, want %v", req.CargoDetailIDs, tt.want)
			}
			for i := range tt.want {
				if req.CargoDetailIDs[i] != tt.want[i] {
					t.Errorf("id %d = %q, want %q", i, req.CargoDetailIDs[i], tt.want[i])
				}
			}
		})
	}
}

func TestCreateFromCargo_ValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateFromCargoRequest
		want error
	}{
		{"customer", CreateFromCargoRequest{Company: "Fleet Co", CargoDetailIDs: CargoDetailIDs{uuid.NewString()}}, ErrCustomerRequired},
		{"company", CreateFromCargoRequest{Customer: "Acme", CargoDetailIDs: CargoDetailIDs{uuid.NewString()}}, ErrCompanyRequired},
		{"no ids", createReq(nil), ErrNoCargoSelected},
		{"blank ids", createReq(CargoDetailIDs{" ", ""}), ErrNoCargoSelected},
		{"bad id", createReq(CargoDetailIDs{"not-a-uuid"}), ErrInvalidCargoDetail},
		{"unknown id", createReq(CargoDetailIDs{uuid.NewString()}), ErrNoEligibleCargo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.invoices.CreateFromCargo(ctx, tt.req, "")
			if !errors.Is(err, tt.want) || !IsValidationError(err) {
				t.Errorf("got %v, want validation error %v", err, tt.want)
			}
		})
	}
}

func TestCreateFromCargo_QuantityPerBillingFlag(t *testing.T) {
	f := newFixture(t)

	byWeight := detail(1, "Haulage", 50)
	byWeight.NetWeight = kg(2000)
	byWeight.AllowBillOnWeight = true
	byWeight.BillUOM = "Tonne"
	byUnit := detail(2, "Loading", 30)
	byUnit.NetWeight = kg(0)
	reg := seedRegistration(t, f.db, "CR-0001", "Acme", model.DocStatusSubmitted, byWeight, byUnit)

	created, err := f.invoices.CreateFromCargo(context.Background(), createReq(idsOf(reg)), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := created.Invoice.Items
	if len(items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(items))
	}
	if items[0].Qty != "2.0000" || items[1].Qty != "1.0000" {
		t.Errorf("quantities = [%s, %s], want [2, 1]", items[0].Qty, items[1].Qty)
	}
	if items[0].UOM != "Tonne" || items[1].UOM != "Nos" {
		t.Errorf("uoms = [%s, %s], want [Tonne, Nos]", items[0].UOM, items[1].UOM)
	}
	if items[0].Amount != "100.0000" || items[1].Amount != "30.0000" {
		t.Errorf("amounts = [%s, %s]", items[0].Amount, items[1].Amount)
	}
	if items[0].CargoDetail != reg.Details[0].ID.String() {
		t.Errorf("line 1 should reference the first cargo detail")
	}
	if created.Invoice.TotalQty != "3.0000" || created.Invoice.NetTotal != "130.0000" {
		t.Errorf("totals = qty %s net %s", created.Invoice.TotalQty, created.Invoice.NetTotal)
	}
}

func TestCreateFromCargo_BillOnWeightWithoutWeightBillsOneTonne(t *testing.T) {
	f := newFixture(t)

	d := detail(1, "Haulage", 80)
	d.AllowBillOnWeight = true
	reg := seedRegistration(t, f.db, "CR-0001", "Acme", model.DocStatusSubmitted, d)

	created, err := f.invoices.CreateFromCargo(context.Background(), createReq(idsOf(reg)), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := created.Invoice.Items[0].Qty; got != "1.0000" {
		t.Errorf("qty = %s, want 1", got)
	}
}

func TestCreateFromCargo_BuildsDraftInvoiceAndLinksCargo(t *testing.T) {
	f := newFixture(t)

	if err := f.db.Create(&model.TaxRule{
		TaxType:       "VAT",
		Rate:          decimal.RequireFromString("0.18"),
		EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}).Error; err != nil {
		t.Fatalf("seed tax rule: %v", err)
	}
	seedManifest(t, f.db, model.Manifest{
		Name:                "MNF-001",
		TransporterType:     model.TransporterInHouse,
		TruckLicensePlateNo: "T 123 ABC",
		DriverName:          "Juma",
	})

	first := detail(1, "Haulage", 100)
	first.TransporterType = model.TransporterInHouse
	first.AssignedTruck = "TRK-7"
	first.CreatedTrip = "TRIP-01"
	first.ManifestNumber = "MNF-001"
	first.CargoRoute = "DAR-LUN"
	second := detail(2, "Haulage", 100)
	second.Currency = "TZS"
	reg := seedRegistration(t, f.db, "CR-0001", "Acme", model.DocStatusSubmitted, first, second)

	userID := uuid.New()
	created, err := f.invoices.CreateFromCargo(context.Background(), createReq(idsOf(reg)), userID.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inv := created.Invoice
	if inv.Name != "SINV-2026-00001" {
		t.Errorf("name = %s", inv.Name)
	}
	if created.Notice != "Sales Invoice SINV-2026-00001 created successfully" {
		t.Errorf("notice = %q", created.Notice)
	}
	if inv.DocStatus != model.DocStatusDraft || inv.Status != "Draft" {
		t.Errorf("invoice should be a draft, got %d %s", inv.DocStatus, inv.Status)
	}
	if inv.Currency != "TZS" {
		t.Errorf("currency = %s, want the first declared currency", inv.Currency)
	}
	if inv.PostingDate != "2026-03-15" {
		t.Errorf("posting date = %s", inv.PostingDate)
	}
	if inv.TotalTaxes != "36.0000" || inv.GrandTotal != "236.0000" {
		t.Errorf("taxes %s grand total %s", inv.TotalTaxes, inv.GrandTotal)
	}
	if inv.TaxType == nil || *inv.TaxType != "VAT" {
		t.Errorf("tax rule should be attached")
	}
	if inv.CreatedBy == nil || *inv.CreatedBy != userID.String() {
		t.Errorf("created_by = %v", inv.CreatedBy)
	}

	wantDesc := "<b>VEHICLE NUMBER:</b> TRK-7<br><b>TRIP:</b> TRIP-01<br><b>DRIVER:</b> Juma<br><b>ROUTE:</b> DAR-LUN"
	if inv.Items[0].Description != wantDesc {
		t.Errorf("description = %q", inv.Items[0].Description)
	}
	if inv.Items[0].Truck != "TRK-7" {
		t.Errorf("truck = %q, want the assigned truck", inv.Items[0].Truck)
	}

	for _, d := range reg.Details {
		if got := invoiceRef(reloadDetail(t, f.db, d.ID)); got != inv.Name {
			t.Errorf("detail %s invoice = %q, want %q", d.ID, got, inv.Name)
		}
	}

	if len(f.notifier.events) != 1 || f.notifier.events[0] != EventSalesInvoiceCreated {
		t.Errorf("events = %v", f.notifier.events)
	}
	if f.notifier.last["message"] != "Sales Invoice created with 2 items" {
		t.Errorf("notice payload = %v", f.notifier.last)
	}

	var audits int64
	f.db.Model(&model.AuditLog{}).Where("entity_id = ?", inv.ID).Count(&audits)
	if audits != 2 {
		t.Errorf("expected create and link audit entries, got %d", audits)
	}
}

func TestCreateFromCargo_SkipsAlreadyInvoicedDetails(t *testing.T) {
	f := newFixture(t)

	billed := detail(1, "Haulage", 100)
	billed.Invoice = strPtr("SINV-2025-00009")
	reg := seedRegistration(t, f.db, "CR-0001", "Acme", model.DocStatusSubmitted, billed, detail(2, "Loading", 40))

	created, err := f.invoices.CreateFromCargo(context.Background(), createReq(idsOf(reg)), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created.Invoice.Items) != 1 || created.Invoice.Items[0].ItemCode != "Loading" {
		t.Fatalf("only the unbilled detail should be invoiced: %+v", created.Invoice.Items)
	}
	if got := invoiceRef(reloadDetail(t, f.db, reg.Details[0].ID)); got != "SINV-2025-00009" {
		t.Errorf("billed detail was relinked to %q", got)
	}

	_, err = f.invoices.CreateFromCargo(context.Background(), createReq(idsOf(reg)), "")
	if !errors.Is(err, ErrNoEligibleCargo) {
		t.Errorf("second run should find nothing eligible, got %v", err)
	}
}

// rivalCargoRepo bills the first detail from inside the creating transaction,
// as a concurrent request would between eligibility check and link.
type rivalCargoRepo struct {
	repository.CargoRepository
	db *gorm.DB
}

func (r rivalCargoRepo) LinkInvoice(ctx context.Context, ids []uuid.UUID, invoiceName string) (int64, error) {
	if err := repository.GetDB(ctx, r.db).Model(&model.CargoDetail{}).
		Where("id = ?", ids[0]).
		Update("invoice", "SINV-RIVAL").Error; err != nil {
		return 0, err
	}
	return r.CargoRepository.LinkInvoice(ctx, ids, invoiceName)
}

func TestCreateFromCargo_RaceRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg := seedRegistration(t, f.db, "CR-0001", "Acme", model.DocStatusSubmitted, detail(1, "Haulage", 10), detail(2, "Haulage", 10))

	auditRepo := repository.NewAuditRepository(f.db)
	svc := NewSalesInvoiceService(
		repository.NewSalesInvoiceRepository(f.db),
		rivalCargoRepo{CargoRepository: repository.NewCargoRepository(f.db), db: f.db},
		repository.NewTaxRuleRepository(f.db),
		repository.NewSchemaRepository(f.db),
		auditRepo,
		repository.NewTransactionManager(f.db),
		NewDescriptionBuilder(f.manifests, f.log),
		NewSalesInvoiceHooks(),
		f.notifier,
		testBilling,
		f.log,
	)
	svc.(*salesInvoiceService).now = func() time.Time { return testNow }

	_, err := svc.CreateFromCargo(ctx, createReq(idsOf(reg)), "")
	if !errors.Is(err, ErrCargoRaced) {
		t.Fatalf("expected ErrCargoRaced, got %v", err)
	}

	var count int64
	f.db.Model(&model.SalesInvoice{}).Count(&count)
	if count != 0 {
		t.Errorf("invoice should be rolled back, found %d", count)
	}
	for _, d := range reg.Details {
		if ref := invoiceRef(reloadDetail(t, f.db, d.ID)); ref != "" {
			t.Errorf("detail %s should stay unbilled, got %q", d.ID, ref)
		}
	}
}

func TestCreateFromCargo_SequentialNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := seedRegistration(t, f.db, "CR-0001", "Acme", model.DocStatusSubmitted, detail(1, "Haulage", 10))
	b := seedRegistration(t, f.db, "CR-0002", "Acme", model.DocStatusSubmitted, detail(1, "Haulage", 10))

	first, err := f.invoices.CreateFromCargo(ctx, createReq(idsOf(a)), "")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.invoices.CreateFromCargo(ctx, createReq(idsOf(b)), "")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.Invoice.Name != "SINV-2026-00001" || second.Invoice.Name != "SINV-2026-00002" {
		t.Errorf("names = %s, %s", first.Invoice.Name, second.Invoice.Name)
	}
}

func TestCreateFromCargo_WithoutExtensionColumns(t *testing.T) {
	f := newFixture(t)

	d := detail(1, "Haulage", 100)
	d.NetWeight = kg(5000)
	d.AllowBillOnWeight = true
	d.BillUOM = "Tonne"
	d.TransporterType = model.TransporterInHouse
	d.AssignedTruck = "TRK-7"
	reg := seedRegistration(t, f.db, "CR-0001", "Acme", model.DocStatusSubmitted, d)

	m := f.db.Migrator()
	if err := m.DropColumn(&model.SalesInvoiceItem{}, "truck"); err != nil {
		t.Fatalf("drop truck: %v", err)
	}
	if err := m.DropColumn(&model.CargoDetail{}, "allow_bill_on_weight"); err != nil {
		t.Fatalf("drop allow_bill_on_weight: %v", err)
	}
	if err := m.DropColumn(&model.CargoDetail{}, "bill_uom"); err != nil {
		t.Fatalf("drop bill_uom: %v", err)
	}

	created, err := f.invoices.CreateFromCargo(context.Background(), createReq(idsOf(reg)), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item := created.Invoice.Items[0]
	if item.Qty != "1.0000" || item.UOM != "Nos" {
		t.Errorf("without extension columns lines bill one unit in the default uom, got %s %s", item.Qty, item.UOM)
	}
	if item.Truck != "" {
		t.Errorf("truck should not be stored, got %q", item.Truck)
	}
}

func TestCancelInvoice_ReleasesOnlyItsCargo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := detail(9, "Haulage", 10)
	other.Invoice = strPtr("SINV-2025-00001")
	untouched := seedRegistration(t, f.db, "CR-0000", "Acme", model.DocStatusSubmitted, other)
	reg := seedRegistration(t, f.db, "CR-0001", "Acme", model.DocStatusSubmitted, detail(1, "Haulage", 10), detail(2, "Haulage", 10))

	created, err := f.invoices.CreateFromCargo(ctx, createReq(idsOf(reg)), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.invoices.SubmitInvoice(ctx, created.Invoice.ID, ""); err != nil {
		t.Fatalf("submit: %v", err)
	}

	cancelled, err := f.invoices.CancelInvoice(ctx, created.Invoice.ID, "")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.DocStatus != model.DocStatusCancelled || cancelled.CancelledAt == nil {
		t.Errorf("invoice not cancelled: %+v", cancelled)
	}

	for _, d := range reg.Details {
		if got := invoiceRef(reloadDetail(t, f.db, d.ID)); got != "" {
			t.Errorf("detail %s still points at %q", d.ID, got)
		}
	}
	if got := invoiceRef(reloadDetail(t, f.db, untouched.Details[0].ID)); got != "SINV-2025-00001" {
		t.Errorf("unrelated detail changed to %q", got)
	}

	lookup, err := f.cargo.GetUninvoicedCargoDetails(ctx, UninvoicedCargoFilter{Customer: "Acme"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(lookup.Details) != 2 {
		t.Errorf("released details should be offered again, got %d", len(lookup.Details))
	}

	_, err = f.invoices.CancelInvoice(ctx, created.Invoice.ID, "")
	if !errors.Is(err, ErrInvalidDocStatus) {
		t.Errorf("cancelling twice should fail validation, got %v", err)
	}
}

func TestCancelInvoice_HookFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg := seedRegistration(t, f.db, "CR-0001", "Acme", model.DocStatusSubmitted, detail(1, "Haulage", 10))
	created, err := f.invoices.CreateFromCargo(ctx, createReq(idsOf(reg)), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	svc := f.invoices.(*salesInvoiceService)
	svc.hooks.Register(OnCancel, func(context.Context, *model.SalesInvoice) error {
		return errors.New("downstream refused")
	})

	if _, err := f.invoices.CancelInvoice(ctx, created.Invoice.ID, ""); err == nil {
		t.Fatal("expected hook error")
	}

	got, err := f.invoices.GetInvoice(ctx, created.Invoice.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DocStatus != model.DocStatusDraft {
		t.Errorf("status should be rolled back, got %d", got.DocStatus)
	}
	if ref := invoiceRef(reloadDetail(t, f.db, reg.Details[0].ID)); ref != created.Invoice.Name {
		t.Errorf("cargo link should be rolled back, got %q", ref)
	}
}

func TestCancelInvoice_AuditFailureDoesNotBlockRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg := seedRegistration(t, f.db, "CR-0001", "Acme", model.DocStatusSubmitted, detail(1, "Haulage", 10))
	created, err := f.invoices.CreateFromCargo(ctx, createReq(idsOf(reg)), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.db.Migrator().DropTable(&model.AuditLog{}); err != nil {
		t.Fatalf("drop audit table: %v", err)
	}

	cancelled, err := f.invoices.CancelInvoice(ctx, created.Invoice.ID, "")
	if err != nil {
		t.Fatalf("cancel should succeed when the audit write fails, got %v", err)
	}
	if cancelled.DocStatus != model.DocStatusCancelled {
		t.Errorf("invoice not cancelled: %d", cancelled.DocStatus)
	}
	if ref := invoiceRef(reloadDetail(t, f.db, reg.Details[0].ID)); ref != "" {
		t.Errorf("cargo should be released, still points at %q", ref)
	}

	warned := false
	for _, e := range f.logs.AllEntries() {
		if e.Message == "failed to write audit log" {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning for the failed audit write")
	}
}

func TestSubmitInvoice_OnlyDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg := seedRegistration(t, f.db, "CR-0001", "Acme", model.DocStatusSubmitted, detail(1, "Haulage", 10))
	created, err := f.invoices.CreateFromCargo(ctx, createReq(idsOf(reg)), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	submitted, err := f.invoices.SubmitInvoice(ctx, created.Invoice.ID, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.Status != "Submitted" {
		t.Errorf("status = %s", submitted.Status)
	}

	if _, err := f.invoices.SubmitInvoice(ctx, created.Invoice.ID, ""); !errors.Is(err, ErrInvalidDocStatus) {
		t.Errorf("resubmitting should fail validation, got %v", err)
	}
}

func TestGetInvoice_NotFound(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{uuid.NewString(), "garbage"} {
		if _, err := f.invoices.GetInvoice(context.Background(), id); !errors.Is(err, ErrInvoiceNotFound) {
			t.Errorf("GetInvoice(%q) = %v, want ErrInvoiceNotFound", id, err)
		}
	}
}

func TestListInvoices_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := seedRegistration(t, f.db, "CR-0001", "Acme", model.DocStatusSubmitted, detail(1, "Haulage", 10))
	b := seedRegistration(t, f.db, "CR-0002", "Acme", model.DocStatusSubmitted, detail(1, "Haulage", 10))
	first, err := f.invoices.CreateFromCargo(ctx, createReq(idsOf(a)), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.invoices.CreateFromCargo(ctx, createReq(idsOf(b)), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.invoices.SubmitInvoice(ctx, first.Invoice.ID, ""); err != nil {
		t.Fatalf("submit: %v", err)
	}

	all, total, err := f.invoices.ListInvoices(ctx, SalesInvoiceFilter{Customer: "Acme"})
	if err != nil || total != 2 || len(all) != 2 {
		t.Fatalf("list all: %d rows, total %d, err %v", len(all), total, err)
	}

	submitted := model.DocStatusSubmitted
	only, total, err := f.invoices.ListInvoices(ctx, SalesInvoiceFilter{DocStatus: &submitted})
	if err != nil || total != 1 || only[0].Name != first.Invoice.Name {
		t.Errorf("list submitted: %+v, total %d, err %v", only, total, err)
	}
}
