package services

import (
	"context"
	"errors"
	"testing"

	"settlement-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndSendPayout_Success(t *testing.T) {
	env := newTestEnv(t, models.ChainBase)
	merchant := createTestMerchant(t, env.db, models.ChainBase, "0xMerchantBase")

	payout, err := env.payouts.CreateAndSendPayout(context.Background(), merchant.ID, models.ChainBase, decimal.RequireFromString("75.10"))
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusSent, payout.Status)
	assert.Equal(t, "0xMerchantBase", payout.DestinationAddress)
	require.NotNil(t, payout.TxHash)
	assert.True(t, payout.AmountUSDC.Equal(decimal.RequireFromString("75.10")))
	assert.Equal(t, []string{"0xMerchantBase"}, env.chainClient.sends)
}

func TestCreateAndSendPayout_ChainMismatch(t *testing.T) {
	env := newTestEnv(t, models.ChainBase)
	merchant := createTestMerchant(t, env.db, models.ChainBase, "0xMerchantBase")

	_, err := env.payouts.CreateAndSendPayout(context.Background(), merchant.ID, models.ChainEthereum, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrPayoutChainMismatch)

	var count int64
	require.NoError(t, env.db.Model(&models.Payout{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "a mismatched request must not create a payout row")
}

func TestCreateAndSendPayout_SendFailureRecordedAndPropagated(t *testing.T) {
	env := newTestEnv(t, models.ChainBase)
	merchant := createTestMerchant(t, env.db, models.ChainBase, "0xMerchantBase")

	env.chainClient.sendErr = errors.New("insufficient balance")
	_, err := env.payouts.CreateAndSendPayout(context.Background(), merchant.ID, models.ChainBase, decimal.NewFromInt(50))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payout send failed")

	// The PENDING row was persisted before the send and now records FAILED.
	var payout models.Payout
	require.NoError(t, env.db.First(&payout, "merchant_id = ?", merchant.ID).Error)
	assert.Equal(t, models.PayoutStatusFailed, payout.Status)
	assert.Nil(t, payout.TxHash)
}

func TestCreateAndSendPayout_UnknownMerchant(t *testing.T) {
	env := newTestEnv(t, models.ChainBase)

	_, err := env.payouts.CreateAndSendPayout(context.Background(), "missing", models.ChainBase, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrMerchantNotFound)
}

func TestCreateAndSendPayout_NoClientForChain(t *testing.T) {
	// Registry only carries a BASE client; a SOLANA merchant cannot be paid.
	env := newTestEnv(t, models.ChainBase)
	merchant := createTestMerchant(t, env.db, models.ChainSolana, "SolMerchantAddr")

	_, err := env.payouts.CreateAndSendPayout(context.Background(), merchant.ID, models.ChainSolana, decimal.NewFromInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chain client registered")

	// The intent row still exists for reconciliation.
	var payout models.Payout
	require.NoError(t, env.db.First(&payout, "merchant_id = ?", merchant.ID).Error)
	assert.Equal(t, models.PayoutStatusFailed, payout.Status)
}

func TestCreateAndSendPayout_AddressIsSnapshot(t *testing.T) {
	env := newTestEnv(t, models.ChainBase)
	merchant := createTestMerchant(t, env.db, models.ChainBase, "0xOldAddress")

	payout, err := env.payouts.CreateAndSendPayout(context.Background(), merchant.ID, models.ChainBase, decimal.NewFromInt(5))
	require.NoError(t, err)

	// Merchant rotates their address afterwards; the payout record keeps the
	// address it actually paid.
	require.NoError(t, env.db.Model(merchant).Update("payout_address", "0xNewAddress").Error)

	var stored models.Payout
	require.NoError(t, env.db.First(&stored, "id = ?", payout.ID).Error)
	assert.Equal(t, "0xOldAddress", stored.DestinationAddress)
}

func TestListMerchantPayouts(t *testing.T) {
	env := newTestEnv(t, models.ChainBase)
	merchant := createTestMerchant(t, env.db, models.ChainBase, "0xMerchantBase")

	for i := 0; i < 3; i++ {
		_, err := env.payouts.CreateAndSendPayout(context.Background(), merchant.ID, models.ChainBase, decimal.NewFromInt(int64(i+1)))
		require.NoError(t, err)
	}

	payouts, err := env.payouts.ListMerchantPayouts(context.Background(), merchant.ID)
	require.NoError(t, err)
	assert.Len(t, payouts, 3)
}
