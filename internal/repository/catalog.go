package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
)

// CatalogRepository resolves intent-document names against the tenant's menu.
// Matches are case-insensitive and exact.
type CatalogRepository interface {
	ProductByName(ctx context.Context, tenantID, name string) (*model.Product, error)
	ExtraByName(ctx context.Context, tenantID, name string) (*model.Extra, error)
}

type catalogRepoImpl struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepoImpl{db: db}
}

func (r *catalogRepoImpl) ProductByName(ctx context.Context, tenantID, name string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Category.Zones").
		Preload("Zones").
		Where("tenant_id = ? AND LOWER(name) = LOWER(?) AND available = ?", tenantID, name, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *catalogRepoImpl) ExtraByName(ctx context.Context, tenantID, name string) (*model.Extra, error) {
	var extra model.Extra
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND LOWER(name) = LOWER(?) AND available = ?", tenantID, name, true).
		First(&extra).Error
	if err != nil {
		return nil, err
	}
	return &extra, nil
}
