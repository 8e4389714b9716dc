// Package repository provides data access interfaces and implementations
package repository

import (
	"context"

	"settlement-backend/internal/models"

	"gorm.io/gorm"
)

// MerchantRepository defines the interface for Merchant data access
type MerchantRepository interface {
	Create(ctx context.Context, merchant *models.Merchant) error
	GetByID(ctx context.Context, id string) (*models.Merchant, error)
	List(ctx context.Context) ([]*models.Merchant, error)
}

type merchantRepository struct {
	db *gorm.DB
}

// NewMerchantRepository creates a new MerchantRepository instance
func NewMerchantRepository(db *gorm.DB) MerchantRepository {
	return &merchantRepository{db: db}
}

func (r *merchantRepository) Create(ctx context.Context, merchant *models.Merchant) error {
	return r.db.WithContext(ctx).Create(merchant).Error
}

func (r *merchantRepository) GetByID(ctx context.Context, id string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&merchant).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepository) List(ctx context.Context) ([]*models.Merchant, error) {
	var merchants []*models.Merchant
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&merchants).Error
	return merchants, err
}
