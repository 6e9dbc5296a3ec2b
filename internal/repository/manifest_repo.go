package repository

import (
	"context"

	"fleetbilling/internal/model"

	"gorm.io/gorm"
)

type ManifestRepository interface {
	FindByName(ctx context.Context, name string) (*model.Manifest, error)
}

type manifestRepository struct {
	db *gorm.DB
}

func NewManifestRepository(db *gorm.DB) ManifestRepository {
	return &manifestRepository{db: db}
}

func (r *manifestRepository) FindByName(ctx context.Context, name string) (*model.Manifest, error) {
	var manifest model.Manifest
	if err := GetDB(ctx, r.db).Where("name = ?", name).First(&manifest).Error; err != nil {
		return nil, err
	}
	return &manifest, nil
}
