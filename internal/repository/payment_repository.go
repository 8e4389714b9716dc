package repository

import (
	"context"

	"settlement-backend/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository defines the interface for Payment data access
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetWithMerchant(ctx context.Context, id string) (*models.Payment, error)
	GetBySourceTxHash(ctx context.Context, txHash string) (*models.Payment, error)
	UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) error
	List(ctx context.Context, merchantID string) ([]*models.Payment, error)

	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *gorm.DB) PaymentRepository
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new PaymentRepository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	return &paymentRepository{db: tx}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetWithMerchant retrieves a payment with its merchant and transfers preloaded
func (r *paymentRepository) GetWithMerchant(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Merchant").
		Preload("Transfers").
		Where("id = ?", id).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetBySourceTxHash(ctx context.Context, txHash string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("source_tx_hash = ?", txHash).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// List retrieves payments, optionally filtered by merchant
func (r *paymentRepository) List(ctx context.Context, merchantID string) ([]*models.Payment, error) {
	var payments []*models.Payment
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if merchantID != "" {
		query = query.Where("merchant_id = ?", merchantID)
	}
	err := query.Find(&payments).Error
	return payments, err
}
