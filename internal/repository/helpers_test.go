package repository

import (
	"fmt"
	"strings"
	"testing"

	"fleetbilling/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(
		&model.User{}, &model.Role{}, &model.Permission{}, &model.AuditLog{}, &model.TaxRule{},
		&model.Manifest{}, &model.CargoRegistration{}, &model.CargoDetail{},
		&model.SalesInvoice{}, &model.SalesInvoiceItem{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}
