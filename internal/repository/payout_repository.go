package repository

import (
	"context"

	"settlement-backend/internal/models"

	"gorm.io/gorm"
)

// PayoutRepository defines the interface for Payout data access
type PayoutRepository interface {
	Create(ctx context.Context, payout *models.Payout) error
	GetByID(ctx context.Context, id string) (*models.Payout, error)
	Update(ctx context.Context, payout *models.Payout) error
	ListByMerchant(ctx context.Context, merchantID string) ([]*models.Payout, error)
}

type payoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository creates a new PayoutRepository instance
func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *payoutRepository) GetByID(ctx context.Context, id string) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *payoutRepository) Update(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Save(payout).Error
}

func (r *payoutRepository) ListByMerchant(ctx context.Context, merchantID string) ([]*models.Payout, error) {
	var payouts []*models.Payout
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at DESC").
		Find(&payouts).Error
	return payouts, err
}
