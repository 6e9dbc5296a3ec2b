package repository

import (
	"context"
	"testing"

	"fleetbilling/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)


func TestCargoRepository_LookupAndLinking(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCargoRepository(db)
	ctx := context.Background()

	billed := "SINV-2026-00001"
	reg := model.CargoRegistration{
		Name:      "CR-0001",
		Customer:  "Acme",
		Company:   "Fleet Co",
		DocStatus: model.DocStatusSubmitted,
		Details: []model.CargoDetail{
			{Idx: 2, DocStatus: model.DocStatusSubmitted, ServiceItem: "Loading", Rate: decimal.NewFromInt(20)},
			{Idx: 1, DocStatus: model.DocStatusSubmitted, ServiceItem: "Haulage", Rate: decimal.NewFromInt(10)},
			{Idx: 3, DocStatus: model.DocStatusSubmitted, ServiceItem: "Storage", Rate: decimal.NewFromInt(5), Invoice: &billed},
			{Idx: 4, DocStatus: model.DocStatusDraft, ServiceItem: "Draft", Rate: decimal.NewFromInt(1)},
		},
	}
	if err := db.Create(&reg).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	draftReg := model.CargoRegistration{Name: "CR-0002", Customer: "Acme", Company: "Fleet Co"}
	if err := db.Create(&draftReg).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	regs, err := repo.ListSubmittedRegistrations(ctx, RegistrationFilter{Customer: "Acme"})
	if err != nil {
		t.Fatalf("list registrations: %v", err)
	}
	if len(regs) != 1 || regs[0].Name != "CR-0001" {
		t.Fatalf("expected only the submitted registration, got %+v", regs)
	}

	details, err := repo.ListUninvoicedDetails(ctx, []uuid.UUID{reg.ID})
	if err != nil {
		t.Fatalf("list details: %v", err)
	}
	if len(details) != 2 || details[0].ServiceItem != "Haulage" || details[1].ServiceItem != "Loading" {
		t.Fatalf("expected unbilled submitted rows by idx, got %+v", details)
	}

	allIDs := []uuid.UUID{reg.Details[0].ID, reg.Details[1].ID, reg.Details[2].ID, reg.Details[3].ID}
	eligible, err := repo.FindEligibleDetails(ctx, allIDs)
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	if len(eligible) != 2 {
		t.Fatalf("expected 2 eligible rows, got %d", len(eligible))
	}

	linked, err := repo.LinkInvoice(ctx, allIDs, "SINV-2026-00002")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if linked != 3 {
		t.Errorf("linked %d rows, want the 3 unbilled ones", linked)
	}

	var storage model.CargoDetail
	db.First(&storage, "id = ?", reg.Details[2].ID)
	if storage.Invoice == nil || *storage.Invoice != billed {
		t.Errorf("already billed row must keep its invoice, got %v", storage.Invoice)
	}

	cleared, err := repo.ClearInvoice(ctx, "SINV-2026-00002")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared != 3 {
		t.Errorf("cleared %d rows, want 3", cleared)
	}
}

func TestCargoRepository_FindBillingPreferences(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCargoRepository(db)
	ctx := context.Background()

	reg := model.CargoRegistration{
		Name:      "CR-0001",
		Customer:  "Acme",
		DocStatus: model.DocStatusSubmitted,
		Details: []model.CargoDetail{
			{DocStatus: model.DocStatusSubmitted, ServiceItem: "Haulage", AllowBillOnWeight: true, BillUOM: "Tonne"},
		},
	}
	if err := db.Create(&reg).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	id := reg.Details[0].ID

	prefs, err := repo.FindBillingPreferences(ctx, []uuid.UUID{id}, []string{"allow_bill_on_weight", "bill_uom"})
	if err != nil {
		t.Fatalf("prefs: %v", err)
	}
	if got := prefs[id]; !got.AllowBillOnWeight || got.BillUOM != "Tonne" {
		t.Errorf("unexpected preference %+v", got)
	}

	onlyFlag, err := repo.FindBillingPreferences(ctx, []uuid.UUID{id}, []string{"allow_bill_on_weight"})
	if err != nil {
		t.Fatalf("prefs: %v", err)
	}
	if got := onlyFlag[id]; !got.AllowBillOnWeight || got.BillUOM != "" {
		t.Errorf("unselected columns must stay empty, got %+v", got)
	}

	none, err := repo.FindBillingPreferences(ctx, []uuid.UUID{id}, nil)
	if err != nil || len(none) != 0 {
		t.Errorf("no columns should skip the query, got %v, %v", none, err)
	}
}
