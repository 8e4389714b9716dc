package services

import (
	"context"
	"errors"
	"fmt"

	"settlement-backend/internal/models"
	"settlement-backend/internal/repository"

	"gorm.io/gorm"
)

// MerchantService manages merchant records. Merchants are created
// out-of-band of the settlement core; the core only reads them as the
// payout destination lookup.
type MerchantService struct {
	merchantRepo repository.MerchantRepository
}

// NewMerchantService creates a new MerchantService
func NewMerchantService(merchantRepo repository.MerchantRepository) *MerchantService {
	return &MerchantService{merchantRepo: merchantRepo}
}

// CreateMerchant registers a merchant with its payout chain/address pairing
func (s *MerchantService) CreateMerchant(ctx context.Context, name string, payoutChain models.Chain, payoutAddress string) (*models.Merchant, error) {
	if !payoutChain.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidChain, payoutChain)
	}
	if payoutAddress == "" {
		return nil, errors.New("payout address is required")
	}

	merchant := &models.Merchant{
		Name:          name,
		PayoutChain:   payoutChain,
		PayoutAddress: payoutAddress,
	}
	if err := s.merchantRepo.Create(ctx, merchant); err != nil {
		return nil, fmt.Errorf("failed to create merchant: %w", err)
	}
	return merchant, nil
}

// GetMerchant retrieves a merchant by ID
func (s *MerchantService) GetMerchant(ctx context.Context, merchantID string) (*models.Merchant, error) {
	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMerchantNotFound, merchantID)
		}
		return nil, err
	}
	return merchant, nil
}

// ListMerchants retrieves all merchants
func (s *MerchantService) ListMerchants(ctx context.Context) ([]*models.Merchant, error) {
	return s.merchantRepo.List(ctx)
}
