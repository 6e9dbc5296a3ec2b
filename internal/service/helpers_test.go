package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"fleetbilling/internal/config"
	"fleetbilling/internal/database"
	"fleetbilling/internal/model"
	"fleetbilling/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

var testBilling = config.BillingConfig{
	DefaultUOM:      "Nos",
	DefaultCurrency: "USD",
	NamingPrefix:    "SINV-",
	TaxType:         "VAT",
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), false)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

// recordingNotifier captures published events
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	last   map[string]interface{}
}

func (n *recordingNotifier) Publish(event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	if m, ok := payload.(map[string]interface{}); ok {
		n.last = m
	}
}

// countingManifests counts lookups per manifest name
type countingManifests struct {
	repository.ManifestRepository
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingManifests) FindByName(ctx context.Context, name string) (*model.Manifest, error) {
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()
	return c.ManifestRepository.FindByName(ctx, name)
}

type fixture struct {
	db        *gorm.DB
	log       *logrus.Logger
	logs      *test.Hook
	manifests *countingManifests
	notifier  *recordingNotifier
	cargo     CargoService
	invoices  SalesInvoiceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	log, hook := test.NewNullLogger()

	manifests := &countingManifests{ManifestRepository: repository.NewManifestRepository(db), calls: map[string]int{}}
	notifier := &recordingNotifier{}
	txManager := repository.NewTransactionManager(db)
	auditRepo := repository.NewAuditRepository(db)
	cargoRepo := repository.NewCargoRepository(db)

	cargo := NewCargoService(cargoRepo, manifests, auditRepo, txManager, log)
	hooks := NewSalesInvoiceHooks()
	hooks.Register(OnCancel, cargo.OnSalesInvoiceCancel)

	invoices := NewSalesInvoiceService(
		repository.NewSalesInvoiceRepository(db),
		cargoRepo,
		repository.NewTaxRuleRepository(db),
		repository.NewSchemaRepository(db),
		auditRepo,
		txManager,
		NewDescriptionBuilder(manifests, log),
		hooks,
		notifier,
		testBilling,
		log,
	)
	invoices.(*salesInvoiceService).now = func() time.Time { return testNow }

	return &fixture{
		db:        db,
		log:       log,
		logs:      hook,
		manifests: manifests,
		notifier:  notifier,
		cargo:     cargo,
		invoices:  invoices,
	}
}

func seedRegistration(t *testing.T, db *gorm.DB, name, customer string, docstatus int, details ...model.CargoDetail) model.CargoRegistration {
	t.Helper()
	reg := model.CargoRegistration{
		Name:      name,
		Customer:  customer,
		Company:   "Fleet Co",
		DocStatus: docstatus,
		Details:   details,
	}
	if err := db.Create(&reg).Error; err != nil {
		t.Fatalf("seed registration %s: %v", name, err)
	}
	return reg
}

func seedManifest(t *testing.T, db *gorm.DB, m model.Manifest) {
	t.Helper()
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed manifest %s: %v", m.Name, err)
	}
}

func detail(idx int, item string, rate int64) model.CargoDetail {
	return model.CargoDetail{
		Idx:         idx,
		DocStatus:   model.DocStatusSubmitted,
		ServiceItem: item,
		Rate:        decimal.NewFromInt(rate),
	}
}

func kg(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func strPtr(s string) *string { return &s }

func reloadDetail(t *testing.T, db *gorm.DB, id uuid.UUID) model.CargoDetail {
	t.Helper()
	var d model.CargoDetail
	if err := db.First(&d, "id = ?", id).Error; err != nil {
		t.Fatalf("reload detail: %v", err)
	}
	return d
}

func invoiceRef(d model.CargoDetail) string {
	if d.Invoice == nil {
		return ""
	}
	return *d.Invoice
}
