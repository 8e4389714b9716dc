package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"settlement-backend/internal/clients"
	"settlement-backend/internal/metrics"
	"settlement-backend/internal/models"
	"settlement-backend/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BridgeResult is the state returned by the orchestrator operations. Message
// is set when the call was an informational no-op (bridge already in
// progress, same-chain payment, lost race).
type BridgeResult struct {
	Payment  *models.Payment  `json:"payment"`
	Transfer *models.Transfer `json:"transfer,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// BridgeService drives a Transfer through its burn/attest/mint lifecycle.
// Both operations are safe to re-invoke: status transitions are conditional
// updates keyed on the expected prior status, so concurrent callers cannot
// double-burn or double-mint. The caller is an external scheduler that
// retries PollAttestationAndMint until it observes a terminal status.
type BridgeService struct {
	db             *gorm.DB
	paymentRepo    repository.PaymentRepository
	transferRepo   repository.TransferRepository
	bridgeClient   clients.BridgeClient
	payoutService  *PayoutService
	custodialAddrs map[models.Chain]string
}

// NewBridgeService creates a new BridgeService. custodialAddrs maps each
// chain to the custodial wallet that receives mint proceeds on it.
func NewBridgeService(
	db *gorm.DB,
	paymentRepo repository.PaymentRepository,
	transferRepo repository.TransferRepository,
	bridgeClient clients.BridgeClient,
	payoutService *PayoutService,
	custodialAddrs map[models.Chain]string,
) *BridgeService {
	return &BridgeService{
		db:             db,
		paymentRepo:    paymentRepo,
		transferRepo:   transferRepo,
		bridgeClient:   bridgeClient,
		payoutService:  payoutService,
		custodialAddrs: custodialAddrs,
	}
}

// StartBridgeForPayment issues the burn for a payment's pending transfer.
// Re-invocation after the burn has been claimed is an informational no-op:
// burning is a one-time, value-destroying operation and must never run twice
// for one transfer.
func (s *BridgeService) StartBridgeForPayment(ctx context.Context, paymentID string) (*BridgeResult, error) {
	payment, err := s.paymentRepo.GetWithMerchant(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}

	// Same chain: nothing to bridge. Settle idempotently.
	if payment.SourceChain == payment.Merchant.PayoutChain {
		if payment.Status != models.PaymentStatusSettled {
			if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, models.PaymentStatusSettled); err != nil {
				return nil, fmt.Errorf("failed to settle payment: %w", err)
			}
			payment.Status = models.PaymentStatusSettled
		}
		return &BridgeResult{Payment: payment, Message: "no bridge needed - same chain"}, nil
	}

	transfer, err := s.transferRepo.GetActiveByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoActiveTransfer, paymentID)
		}
		return nil, fmt.Errorf("failed to load transfer: %w", err)
	}

	switch transfer.Status {
	case models.TransferStatusPendingAttestation:
		return &BridgeResult{Payment: payment, Transfer: transfer, Message: "bridge already in progress"}, nil
	case models.TransferStatusPendingMint:
		return &BridgeResult{Payment: payment, Transfer: transfer, Message: "waiting for mint"}, nil
	}

	// Claim the burn before issuing it. The conditional update is the
	// double-burn guard: of two concurrent callers only one advances the
	// row; the loser sees zero rows affected and returns the current state.
	won, err := s.transferRepo.AdvanceStatus(ctx, transfer.ID, models.TransferStatusPendingBurn, map[string]interface{}{
		"status": models.TransferStatusPendingAttestation,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim burn: %w", err)
	}
	if !won {
		current, err := s.transferRepo.GetByID(ctx, transfer.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload transfer: %w", err)
		}
		return &BridgeResult{Payment: payment, Transfer: current, Message: "bridge already started by a concurrent caller"}, nil
	}

	start := time.Now()
	burnTxHash, err := s.bridgeClient.BurnUSDCOnChain(ctx, payment.SourceChain, payment.AmountUSDC, payment.CustodialSourceAddress)
	metrics.BridgeOperationDuration.WithLabelValues("burn").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BridgeBurns.WithLabelValues(string(payment.SourceChain), "failure").Inc()
		if failErr := s.markBridgeFailed(ctx, transfer.ID, payment.ID, models.TransferStatusPendingAttestation); failErr != nil {
			logrus.WithError(failErr).WithField("transfer_id", transfer.ID).Error("Failed to record burn failure")
		}
		return nil, fmt.Errorf("burn failed for transfer %s: %w", transfer.ID, err)
	}
	metrics.BridgeBurns.WithLabelValues(string(payment.SourceChain), "success").Inc()

	// Burn hash and payment progression are persisted as one unit.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transfer{}).
			Where("id = ?", transfer.ID).
			Update("burn_tx_hash", burnTxHash).Error; err != nil {
			return err
		}
		return s.paymentRepo.WithTx(tx).UpdateStatus(ctx, payment.ID, models.PaymentStatusBridgeInProgress)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record burn result: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"payment_id":   payment.ID,
		"transfer_id":  transfer.ID,
		"burn_chain":   transfer.BurnChain,
		"mint_chain":   transfer.MintChain,
		"burn_tx_hash": burnTxHash,
	}).Info("Burn completed, awaiting attestation")

	transfer.Status = models.TransferStatusPendingAttestation
	transfer.BurnTxHash = &burnTxHash
	payment.Status = models.PaymentStatusBridgeInProgress
	return &BridgeResult{Payment: payment, Transfer: transfer}, nil
}

// PollAttestationAndMint fetches the attestation for a burned transfer and,
// once attested, mints on the destination chain and dispatches the payout.
// Attestation-not-ready propagates without any state change; the scheduler
// simply polls again later. Terminal transfers are returned untouched.
func (s *BridgeService) PollAttestationAndMint(ctx context.Context, transferID string) (*BridgeResult, error) {
	transfer, err := s.transferRepo.GetWithPayment(ctx, transferID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTransferNotFound, transferID)
		}
		return nil, fmt.Errorf("failed to load transfer: %w", err)
	}
	payment := transfer.Payment

	switch transfer.Status {
	case models.TransferStatusCompleted:
		return &BridgeResult{Payment: payment, Transfer: transfer, Message: "transfer already completed"}, nil
	case models.TransferStatusFailed:
		return &BridgeResult{Payment: payment, Transfer: transfer, Message: "transfer failed; requires manual reconciliation"}, nil
	}

	if transfer.BurnTxHash == nil {
		return nil, fmt.Errorf("%w: transfer %s", ErrBurnNotCompleted, transferID)
	}

	var attestationID string
	if transfer.Status == models.TransferStatusPendingMint && transfer.AttestationID != nil {
		// A previous invocation crashed between attestation and mint; the
		// attestation is already on the record and is reused as-is.
		attestationID = *transfer.AttestationID
	} else {
		start := time.Now()
		attestationID, err = s.bridgeClient.GetAttestation(ctx, *transfer.BurnTxHash)
		metrics.BridgeOperationDuration.WithLabelValues("attestation").Observe(time.Since(start).Seconds())
		if err != nil {
			if errors.Is(err, clients.ErrAttestationNotReady) {
				metrics.AttestationPolls.WithLabelValues("not_ready").Inc()
				return nil, fmt.Errorf("attestation not ready for burn tx %s: %w", *transfer.BurnTxHash, err)
			}
			metrics.AttestationPolls.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to fetch attestation: %w", err)
		}
		metrics.AttestationPolls.WithLabelValues("ready").Inc()

		won, err := s.transferRepo.AdvanceStatus(ctx, transfer.ID, models.TransferStatusPendingAttestation, map[string]interface{}{
			"status":         models.TransferStatusPendingMint,
			"attestation_id": attestationID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to record attestation: %w", err)
		}
		if !won {
			current, err := s.transferRepo.GetByID(ctx, transfer.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to reload transfer: %w", err)
			}
			return &BridgeResult{Payment: payment, Transfer: current, Message: "mint already claimed by a concurrent caller"}, nil
		}
	}

	recipient, ok := s.custodialAddrs[transfer.MintChain]
	if !ok || recipient == "" {
		return nil, fmt.Errorf("no custodial address configured for mint chain %s", transfer.MintChain)
	}

	start := time.Now()
	mintTxHash, err := s.bridgeClient.MintUSDCOnChain(ctx, transfer.MintChain, attestationID, recipient)
	metrics.BridgeOperationDuration.WithLabelValues("mint").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BridgeMints.WithLabelValues(string(transfer.MintChain), "failure").Inc()
		// The attestation stays on the record: a failed mint does not
		// consume it, and an operator can reuse it.
		if failErr := s.markBridgeFailed(ctx, transfer.ID, payment.ID, models.TransferStatusPendingMint); failErr != nil {
			logrus.WithError(failErr).WithField("transfer_id", transfer.ID).Error("Failed to record mint failure")
		}
		return nil, fmt.Errorf("mint failed for transfer %s: %w", transfer.ID, err)
	}
	metrics.BridgeMints.WithLabelValues(string(transfer.MintChain), "success").Inc()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := s.transferRepo.WithTx(tx).AdvanceStatus(ctx, transfer.ID, models.TransferStatusPendingMint, map[string]interface{}{
			"status":       models.TransferStatusCompleted,
			"mint_tx_hash": mintTxHash,
		})
		if err != nil {
			return err
		}
		if !won {
			return fmt.Errorf("transfer %s left PENDING_MINT during mint", transfer.ID)
		}
		return s.paymentRepo.WithTx(tx).UpdateStatus(ctx, payment.ID, models.PaymentStatusSettled)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record mint result: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"payment_id":   payment.ID,
		"transfer_id":  transfer.ID,
		"mint_chain":   transfer.MintChain,
		"mint_tx_hash": mintTxHash,
	}).Info("Mint completed, payment settled")

	transfer.Status = models.TransferStatusCompleted
	transfer.AttestationID = &attestationID
	transfer.MintTxHash = &mintTxHash
	payment.Status = models.PaymentStatusSettled

	// Payout is a distinct failure domain: the bridge has succeeded and the
	// settled state above stays put, but the caller must still learn when
	// the money-movement step fails.
	if _, err := s.payoutService.CreateAndSendPayout(ctx, payment.MerchantID, transfer.MintChain, payment.AmountUSDC); err != nil {
		return nil, fmt.Errorf("payout dispatch failed after settlement of payment %s: %w", payment.ID, err)
	}

	return &BridgeResult{Payment: payment, Transfer: transfer}, nil
}

// GetTransfer retrieves a transfer with its payment preloaded
func (s *BridgeService) GetTransfer(ctx context.Context, transferID string) (*models.Transfer, error) {
	transfer, err := s.transferRepo.GetWithPayment(ctx, transferID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTransferNotFound, transferID)
		}
		return nil, err
	}
	return transfer, nil
}

// markBridgeFailed records a hard bridge failure on both rows. The transfer
// transition is conditional so a terminal row is never overwritten.
func (s *BridgeService) markBridgeFailed(ctx context.Context, transferID, paymentID string, from models.TransferStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.transferRepo.WithTx(tx).AdvanceStatus(ctx, transferID, from, map[string]interface{}{
			"status": models.TransferStatusFailed,
		}); err != nil {
			return err
		}
		return s.paymentRepo.WithTx(tx).UpdateStatus(ctx, paymentID, models.PaymentStatusBridgeFailed)
	})
}
