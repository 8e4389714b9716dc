package repository

import (
	"context"

	"settlement-backend/internal/models"

	"gorm.io/gorm"
)

// TransferRepository defines the interface for Transfer data access
type TransferRepository interface {
	Create(ctx context.Context, transfer *models.Transfer) error
	GetByID(ctx context.Context, id string) (*models.Transfer, error)
	GetWithPayment(ctx context.Context, id string) (*models.Transfer, error)
	GetActiveByPaymentID(ctx context.Context, paymentID string) (*models.Transfer, error)

	// AdvanceStatus performs a conditional status transition: the update is
	// keyed on the expected current status and reports whether this caller
	// won it. A false return with a nil error means another caller advanced
	// the row first; the loser must re-read instead of acting.
	AdvanceStatus(ctx context.Context, id string, from models.TransferStatus, updates map[string]interface{}) (bool, error)

	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *gorm.DB) TransferRepository
}

type transferRepository struct {
	db *gorm.DB
}

// NewTransferRepository creates a new TransferRepository instance
func NewTransferRepository(db *gorm.DB) TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) WithTx(tx *gorm.DB) TransferRepository {
	return &transferRepository{db: tx}
}

func (r *transferRepository) Create(ctx context.Context, transfer *models.Transfer) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r *transferRepository) GetByID(ctx context.Context, id string) (*models.Transfer, error) {
	var transfer models.Transfer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&transfer).Error
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// GetWithPayment retrieves a transfer with its payment and the payment's
// merchant preloaded
func (r *transferRepository) GetWithPayment(ctx context.Context, id string) (*models.Transfer, error) {
	var transfer models.Transfer
	err := r.db.WithContext(ctx).
		Preload("Payment").
		Preload("Payment.Merchant").
		Where("id = ?", id).
		First(&transfer).Error
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// GetActiveByPaymentID finds the payment's transfer in a non-terminal
// bridging status, if any
func (r *transferRepository) GetActiveByPaymentID(ctx context.Context, paymentID string) (*models.Transfer, error) {
	var transfer models.Transfer
	err := r.db.WithContext(ctx).
		Where("payment_id = ? AND status IN ?", paymentID, []models.TransferStatus{
			models.TransferStatusPendingBurn,
			models.TransferStatusPendingAttestation,
			models.TransferStatusPendingMint,
		}).
		First(&transfer).Error
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *transferRepository) AdvanceStatus(ctx context.Context, id string, from models.TransferStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
