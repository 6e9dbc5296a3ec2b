package database

import (
	"context"
	"fmt"
	"time"

	"fleetbilling/internal/config"
	"fleetbilling/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return Open(postgres.Open(cfg.DSN()), cfg.LogMode)
}

// Open opens a GORM handle on any dialector with the service's pool settings.
func Open(dialector gorm.Dialector, logMode bool) (*gorm.DB, error) {
	gormLogger := logger.Default
	if !logMode {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// AutoMigrate runs schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Role{},
		&model.Permission{},
		&model.AuditLog{},
		&model.TaxRule{},
		&model.DocType{},
		&model.Manifest{},
		&model.CargoRegistration{},
		&model.CargoDetail{},
		&model.SalesInvoice{},
		&model.SalesInvoiceItem{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Migrate runs AutoMigrate followed by the after-migrate hooks.
// Hook failures are logged by the hooks themselves and never fail the migration.
func Migrate(ctx context.Context, db *gorm.DB, log logrus.FieldLogger, cfg config.MigrationConfig) error {
	if err := AutoMigrate(db); err != nil {
		return err
	}
	RunAfterMigrate(ctx, db, log, cfg)
	return nil
}
