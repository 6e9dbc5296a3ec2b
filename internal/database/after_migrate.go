package database

import (
	"context"
	"encoding/json"
	"fmt"

	"fleetbilling/internal/config"
	"fleetbilling/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunAfterMigrate runs the post-migration fix-ups.
func RunAfterMigrate(ctx context.Context, db *gorm.DB, log logrus.FieldLogger, cfg config.MigrationConfig) {
	if cfg.DocType == "" || cfg.Module == "" {
		return
	}
	EnsureDocTypeModule(ctx, db, log, cfg.DocType, cfg.Module)
}

// EnsureDocTypeModule sets the module of doctype to module when it differs.
// It reports whether a write happened. Errors and panics are logged under a
// "<doctype> Module Update Error" title and swallowed: a migration never fails here.
func EnsureDocTypeModule(ctx context.Context, db *gorm.DB, log logrus.FieldLogger, doctype, module string) (updated bool) {
	entry := log.WithField("doctype", doctype)
	title := doctype + " Module Update Error"

	defer func() {
		if r := recover(); r != nil {
			entry.WithField("title", title).Errorf("Error updating %s module: %v", doctype, r)
			updated = false
		}
	}()

	var rows []model.DocType
	if err := db.WithContext(ctx).Select("name", "module").Where("name = ?", doctype).Limit(1).Find(&rows).Error; err != nil {
		entry.WithField("title", title).WithError(err).Errorf("Error updating %s module", doctype)
		return false
	}
	if len(rows) == 0 {
		entry.Info("DocType not registered, skipping module update")
		return false
	}

	current := rows[0].Module
	if current == module {
		entry.Infof("%s module is already set to '%s'", doctype, module)
		return false
	}

	entry.Infof("Updating %s module from '%s' to '%s'", doctype, current, module)
	// UpdateColumn leaves updated_at untouched
	err := db.WithContext(ctx).Model(&model.DocType{}).Where("name = ?", doctype).UpdateColumn("module", module).Error
	if err != nil {
		entry.WithField("title", title).WithError(err).Errorf("Error updating %s module", doctype)
		return false
	}

	details, _ := json.Marshal(map[string]string{"from": current, "to": module})
	auditErr := db.WithContext(ctx).Create(&model.AuditLog{
		Action:     model.ActionUpdateDocTypeModule,
		EntityID:   doctype,
		EntityName: fmt.Sprintf("%s module", doctype),
		Details:    details,
	}).Error
	if auditErr != nil {
		entry.WithError(auditErr).Warn("Failed to record module update in audit log")
	}

	entry.Infof("%s module updated successfully", doctype)
	return true
}
