package services

import (
	"context"
	"errors"
	"fmt"

	"settlement-backend/internal/metrics"
	"settlement-backend/internal/models"
	"settlement-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RegisterPaymentInput is one "incoming payment detected" event from the
// chain watcher. Delivery is at-least-once; SourceTxHash dedupes replays.
type RegisterPaymentInput struct {
	MerchantID             string
	SourceChain            models.Chain
	SourceTxHash           string
	AmountUSDC             decimal.Decimal
	CustodialSourceAddress string
}

// PaymentWithTransfer pairs a payment with its bridging transfer so callers
// get a uniform shape regardless of whether bridging was needed.
type PaymentWithTransfer struct {
	Payment  *models.Payment  `json:"payment"`
	Transfer *models.Transfer `json:"transfer"`
}

// PaymentService records incoming custodial deposits and decides whether
// each one needs to be bridged to the merchant's payout chain.
type PaymentService struct {
	db           *gorm.DB
	merchantRepo repository.MerchantRepository
	paymentRepo  repository.PaymentRepository
	transferRepo repository.TransferRepository
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	db *gorm.DB,
	merchantRepo repository.MerchantRepository,
	paymentRepo repository.PaymentRepository,
	transferRepo repository.TransferRepository,
) *PaymentService {
	return &PaymentService{
		db:           db,
		merchantRepo: merchantRepo,
		paymentRepo:  paymentRepo,
		transferRepo: transferRepo,
	}
}

// RegisterIncomingPayment records a deposit received on a custodial address.
// Registering the same source tx hash twice returns the existing records
// unchanged. Payment and transfer creation, the bridging decision and the
// settled write-back all happen in one database transaction: a failure
// partway leaves neither record behind.
func (s *PaymentService) RegisterIncomingPayment(ctx context.Context, input RegisterPaymentInput) (*PaymentWithTransfer, error) {
	if !input.SourceChain.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidChain, input.SourceChain)
	}
	if input.SourceTxHash == "" {
		return nil, ErrMissingTxHash
	}
	if input.CustodialSourceAddress == "" {
		return nil, ErrMissingAddress
	}
	if !input.AmountUSDC.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, input.AmountUSDC)
	}

	merchant, err := s.merchantRepo.GetByID(ctx, input.MerchantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMerchantNotFound, input.MerchantID)
		}
		return nil, fmt.Errorf("failed to load merchant: %w", err)
	}

	// Idempotency check: the chain watcher delivers at least once.
	if existing, err := s.paymentRepo.GetBySourceTxHash(ctx, input.SourceTxHash); err == nil {
		transfer, err := s.transferRepo.GetActiveByPaymentID(ctx, existing.ID)
		if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
			transfer, err = s.latestTransfer(ctx, existing.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load transfer for existing payment: %w", err)
		}
		metrics.PaymentsDuplicate.Inc()
		logrus.WithFields(logrus.Fields{
			"payment_id":     existing.ID,
			"source_tx_hash": input.SourceTxHash,
		}).Info("Duplicate registration, returning existing payment")
		return &PaymentWithTransfer{Payment: existing, Transfer: transfer}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing payment: %w", err)
	}

	needsBridge := merchant.PayoutChain != input.SourceChain

	payment := &models.Payment{
		MerchantID:             input.MerchantID,
		SourceChain:            input.SourceChain,
		SourceTxHash:           input.SourceTxHash,
		AmountUSDC:             input.AmountUSDC,
		Status:                 models.PaymentStatusReceived,
		CustodialSourceAddress: input.CustodialSourceAddress,
	}
	transfer := &models.Transfer{
		BurnChain: input.SourceChain,
		MintChain: merchant.PayoutChain,
		Status:    models.TransferStatusPendingBurn,
	}
	if !needsBridge {
		// Funds are already on the correct chain. The transfer row exists
		// only so downstream queries have a uniform shape.
		payment.Status = models.PaymentStatusSettled
		transfer.Status = models.TransferStatusCompleted
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.paymentRepo.WithTx(tx).Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		transfer.PaymentID = payment.ID
		if err := s.transferRepo.WithTx(tx).Create(ctx, transfer); err != nil {
			return fmt.Errorf("failed to create transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	path := "direct"
	if needsBridge {
		path = "bridged"
	}
	metrics.PaymentsRegistered.WithLabelValues(string(input.SourceChain), path).Inc()

	logrus.WithFields(logrus.Fields{
		"payment_id":   payment.ID,
		"merchant_id":  merchant.ID,
		"source_chain": input.SourceChain,
		"payout_chain": merchant.PayoutChain,
		"amount":       input.AmountUSDC.String(),
		"needs_bridge": needsBridge,
	}).Info("Incoming payment registered")

	return &PaymentWithTransfer{Payment: payment, Transfer: transfer}, nil
}

// GetPayment retrieves a payment with merchant and transfers preloaded
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetWithMerchant(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
		}
		return nil, err
	}
	return payment, nil
}

// ListPayments retrieves payments, optionally filtered by merchant
func (s *PaymentService) ListPayments(ctx context.Context, merchantID string) ([]*models.Payment, error) {
	return s.paymentRepo.List(ctx, merchantID)
}

// latestTransfer falls back to the payment's terminal transfer when no
// active one exists (same-chain payments complete immediately).
func (s *PaymentService) latestTransfer(ctx context.Context, paymentID string) (*models.Transfer, error) {
	var transfer models.Transfer
	err := s.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at DESC").
		First(&transfer).Error
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}
