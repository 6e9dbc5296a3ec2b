package repository

import (
	"context"

	"gorm.io/gorm"
)

// SchemaRepository answers capability questions about the live schema,
// so optional extension columns are only referenced when they exist.
type SchemaRepository interface {
	HasColumn(ctx context.Context, value interface{}, column string) bool
}

type schemaRepository struct {
	db *gorm.DB
}

func NewSchemaRepository(db *gorm.DB) SchemaRepository {
	return &schemaRepository{db: db}
}

func (r *schemaRepository) HasColumn(ctx context.Context, value interface{}, column string) bool {
	return GetDB(ctx, r.db).Migrator().HasColumn(value, column)
}
