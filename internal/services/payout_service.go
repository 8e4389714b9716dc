package services

import (
	"context"
	"errors"
	"fmt"

	"settlement-backend/internal/clients"
	"settlement-backend/internal/metrics"
	"settlement-backend/internal/models"
	"settlement-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PayoutService sends settled funds from custody to the merchant's own
// address via the chain client for the merchant's payout chain.
type PayoutService struct {
	merchantRepo repository.MerchantRepository
	payoutRepo   repository.PayoutRepository
	chainClients *clients.ChainClientRegistry
}

// NewPayoutService creates a new PayoutService
func NewPayoutService(
	merchantRepo repository.MerchantRepository,
	payoutRepo repository.PayoutRepository,
	chainClients *clients.ChainClientRegistry,
) *PayoutService {
	return &PayoutService{
		merchantRepo: merchantRepo,
		payoutRepo:   payoutRepo,
		chainClients: chainClients,
	}
}

// CreateAndSendPayout records payout intent and then sends USDC to the
// merchant. The PENDING row is durably persisted before the chain send is
// attempted, so a crash mid-send always leaves a record an operator can
// reconcile against chain state. A destination chain that differs from the
// merchant's payout preference is a caller bug and fails loudly.
func (s *PayoutService) CreateAndSendPayout(ctx context.Context, merchantID string, destinationChain models.Chain, amountUSDC decimal.Decimal) (*models.Payout, error) {
	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMerchantNotFound, merchantID)
		}
		return nil, fmt.Errorf("failed to load merchant: %w", err)
	}

	if merchant.PayoutChain != destinationChain {
		return nil, fmt.Errorf("%w: requested %s, merchant prefers %s",
			ErrPayoutChainMismatch, destinationChain, merchant.PayoutChain)
	}

	// Snapshot of the payout address at this instant, not a live reference.
	payout := &models.Payout{
		MerchantID:         merchantID,
		DestinationChain:   destinationChain,
		DestinationAddress: merchant.PayoutAddress,
		AmountUSDC:         amountUSDC,
		Status:             models.PayoutStatusPending,
	}
	if err := s.payoutRepo.Create(ctx, payout); err != nil {
		return nil, fmt.Errorf("failed to create payout record: %w", err)
	}

	client, err := s.chainClients.Get(destinationChain)
	if err != nil {
		s.markFailed(ctx, payout)
		return nil, err
	}

	txHash, err := client.SendUSDC(ctx, payout.DestinationAddress, amountUSDC)
	if err != nil {
		metrics.PayoutsDispatched.WithLabelValues(string(destinationChain), "failed").Inc()
		s.markFailed(ctx, payout)
		return nil, fmt.Errorf("payout send failed on %s: %w", destinationChain, err)
	}
	metrics.PayoutsDispatched.WithLabelValues(string(destinationChain), "sent").Inc()

	payout.TxHash = &txHash
	payout.Status = models.PayoutStatusSent
	if err := s.payoutRepo.Update(ctx, payout); err != nil {
		return nil, fmt.Errorf("failed to record payout result: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"payout_id":   payout.ID,
		"merchant_id": merchantID,
		"chain":       destinationChain,
		"amount":      amountUSDC.String(),
		"tx_hash":     txHash,
	}).Info("Payout sent")

	return payout, nil
}

// ListMerchantPayouts retrieves a merchant's payouts, newest first
func (s *PayoutService) ListMerchantPayouts(ctx context.Context, merchantID string) ([]*models.Payout, error) {
	return s.payoutRepo.ListByMerchant(ctx, merchantID)
}

func (s *PayoutService) markFailed(ctx context.Context, payout *models.Payout) {
	payout.Status = models.PayoutStatusFailed
	if err := s.payoutRepo.Update(ctx, payout); err != nil {
		logrus.WithError(err).WithField("payout_id", payout.ID).Error("Failed to record payout failure")
	}
}
