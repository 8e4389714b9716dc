package repository

import (
	"context"
	"fmt"
	"testing"

	"settlement-backend/internal/db"
	"settlement-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	return database
}

func seedTransfer(t *testing.T, database *gorm.DB, status models.TransferStatus) *models.Transfer {
	t.Helper()

	merchant := &models.Merchant{Name: "m", PayoutChain: models.ChainEthereum, PayoutAddress: "0xM"}
	require.NoError(t, database.Create(merchant).Error)

	payment := &models.Payment{
		MerchantID:             merchant.ID,
		SourceChain:            models.ChainSolana,
		SourceTxHash:           uuid.NewString(),
		AmountUSDC:             decimal.NewFromInt(10),
		Status:                 models.PaymentStatusReceived,
		CustodialSourceAddress: "custody",
	}
	require.NoError(t, database.Create(payment).Error)

	transfer := &models.Transfer{
		PaymentID: payment.ID,
		BurnChain: models.ChainSolana,
		MintChain: models.ChainEthereum,
		Status:    status,
	}
	require.NoError(t, database.Create(transfer).Error)
	return transfer
}

func TestAdvanceStatus_SingleWinner(t *testing.T) {
	database := newTestDB(t)
	repo := NewTransferRepository(database)
	transfer := seedTransfer(t, database, models.TransferStatusPendingBurn)
	ctx := context.Background()

	won, err := repo.AdvanceStatus(ctx, transfer.ID, models.TransferStatusPendingBurn, map[string]interface{}{
		"status": models.TransferStatusPendingAttestation,
	})
	require.NoError(t, err)
	assert.True(t, won)

	// The row already moved; a second caller with the same expectation loses.
	won, err = repo.AdvanceStatus(ctx, transfer.ID, models.TransferStatusPendingBurn, map[string]interface{}{
		"status": models.TransferStatusPendingAttestation,
	})
	require.NoError(t, err)
	assert.False(t, won)

	current, err := repo.GetByID(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusPendingAttestation, current.Status)
}

func TestAdvanceStatus_DoesNotResurrectTerminalRows(t *testing.T) {
	database := newTestDB(t)
	repo := NewTransferRepository(database)
	transfer := seedTransfer(t, database, models.TransferStatusFailed)
	ctx := context.Background()

	won, err := repo.AdvanceStatus(ctx, transfer.ID, models.TransferStatusPendingBurn, map[string]interface{}{
		"status": models.TransferStatusPendingAttestation,
	})
	require.NoError(t, err)
	assert.False(t, won)

	current, err := repo.GetByID(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusFailed, current.Status)
}

func TestAdvanceStatus_AppliesUpdatesAtomically(t *testing.T) {
	database := newTestDB(t)
	repo := NewTransferRepository(database)
	transfer := seedTransfer(t, database, models.TransferStatusPendingAttestation)
	ctx := context.Background()

	won, err := repo.AdvanceStatus(ctx, transfer.ID, models.TransferStatusPendingAttestation, map[string]interface{}{
		"status":         models.TransferStatusPendingMint,
		"attestation_id": "att-1",
	})
	require.NoError(t, err)
	require.True(t, won)

	current, err := repo.GetByID(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusPendingMint, current.Status)
	require.NotNil(t, current.AttestationID)
	assert.Equal(t, "att-1", *current.AttestationID)
}

func TestGetActiveByPaymentID_IgnoresTerminalTransfers(t *testing.T) {
	database := newTestDB(t)
	repo := NewTransferRepository(database)
	ctx := context.Background()

	completed := seedTransfer(t, database, models.TransferStatusCompleted)
	_, err := repo.GetActiveByPaymentID(ctx, completed.PaymentID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	pending := seedTransfer(t, database, models.TransferStatusPendingMint)
	active, err := repo.GetActiveByPaymentID(ctx, pending.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, active.ID)
}
