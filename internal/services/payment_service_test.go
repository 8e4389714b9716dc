package services

import (
	"context"
	"fmt"
	"testing"

	"settlement-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIncomingPayment_CrossChain(t *testing.T) {
	env := newTestEnv(t, models.ChainEthereum)
	merchant := createTestMerchant(t, env.db, models.ChainEthereum, "0xMerchant")

	result, err := env.payments.RegisterIncomingPayment(context.Background(), RegisterPaymentInput{
		MerchantID:             merchant.ID,
		SourceChain:            models.ChainSolana,
		SourceTxHash:           "sol-tx-1",
		AmountUSDC:             decimal.RequireFromString("250.50"),
		CustodialSourceAddress: "custody-sol",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusReceived, result.Payment.Status)
	assert.True(t, result.Payment.AmountUSDC.Equal(decimal.RequireFromString("250.50")))

	require.NotNil(t, result.Transfer)
	assert.Equal(t, models.TransferStatusPendingBurn, result.Transfer.Status)
	assert.Equal(t, models.ChainSolana, result.Transfer.BurnChain)
	assert.Equal(t, models.ChainEthereum, result.Transfer.MintChain)
	assert.Nil(t, result.Transfer.BurnTxHash)
	assert.Equal(t, result.Payment.ID, result.Transfer.PaymentID)
}

func TestRegisterIncomingPayment_SameChainSettlesImmediately(t *testing.T) {
	env := newTestEnv(t, models.ChainEthereum)
	merchant := createTestMerchant(t, env.db, models.ChainEthereum, "0xMerchant")

	result, err := env.payments.RegisterIncomingPayment(context.Background(), RegisterPaymentInput{
		MerchantID:             merchant.ID,
		SourceChain:            models.ChainEthereum,
		SourceTxHash:           "eth-tx-1",
		AmountUSDC:             decimal.NewFromInt(100),
		CustodialSourceAddress: "0xCustodyEth",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusSettled, result.Payment.Status)
	require.NotNil(t, result.Transfer)
	assert.Equal(t, models.TransferStatusCompleted, result.Transfer.Status)
}

func TestRegisterIncomingPayment_DuplicateTxHashReturnsExisting(t *testing.T) {
	env := newTestEnv(t, models.ChainEthereum)
	merchant := createTestMerchant(t, env.db, models.ChainEthereum, "0xMerchant")

	input := RegisterPaymentInput{
		MerchantID:             merchant.ID,
		SourceChain:            models.ChainSolana,
		SourceTxHash:           "sol-tx-dup",
		AmountUSDC:             decimal.NewFromInt(42),
		CustodialSourceAddress: "custody-sol",
	}

	first, err := env.payments.RegisterIncomingPayment(context.Background(), input)
	require.NoError(t, err)

	// Chain watcher replay with a different amount: the stored record wins.
	input.AmountUSDC = decimal.NewFromInt(9999)
	second, err := env.payments.RegisterIncomingPayment(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	assert.True(t, second.Payment.AmountUSDC.Equal(decimal.NewFromInt(42)))
	require.NotNil(t, second.Transfer)
	assert.Equal(t, first.Transfer.ID, second.Transfer.ID)

	var paymentCount, transferCount int64
	require.NoError(t, env.db.Model(&models.Payment{}).Count(&paymentCount).Error)
	require.NoError(t, env.db.Model(&models.Transfer{}).Count(&transferCount).Error)
	assert.EqualValues(t, 1, paymentCount)
	assert.EqualValues(t, 1, transferCount)
}

func TestRegisterIncomingPayment_DuplicateOfSettledPayment(t *testing.T) {
	env := newTestEnv(t, models.ChainEthereum)
	merchant := createTestMerchant(t, env.db, models.ChainEthereum, "0xMerchant")

	input := RegisterPaymentInput{
		MerchantID:             merchant.ID,
		SourceChain:            models.ChainEthereum,
		SourceTxHash:           "eth-tx-settled",
		AmountUSDC:             decimal.NewFromInt(10),
		CustodialSourceAddress: "0xCustodyEth",
	}

	first, err := env.payments.RegisterIncomingPayment(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusSettled, first.Payment.Status)

	// No active transfer exists; the replay falls back to the terminal one.
	second, err := env.payments.RegisterIncomingPayment(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	require.NotNil(t, second.Transfer)
	assert.Equal(t, models.TransferStatusCompleted, second.Transfer.Status)
}

func TestRegisterIncomingPayment_Validation(t *testing.T) {
	env := newTestEnv(t, models.ChainEthereum)
	merchant := createTestMerchant(t, env.db, models.ChainEthereum, "0xMerchant")

	valid := RegisterPaymentInput{
		MerchantID:             merchant.ID,
		SourceChain:            models.ChainSolana,
		SourceTxHash:           "sol-tx-x",
		AmountUSDC:             decimal.NewFromInt(1),
		CustodialSourceAddress: "custody-sol",
	}

	tests := []struct {
		name    string
		mutate  func(*RegisterPaymentInput)
		wantErr error
	}{
		{"unknown chain", func(in *RegisterPaymentInput) { in.SourceChain = "DOGECOIN" }, ErrInvalidChain},
		{"missing tx hash", func(in *RegisterPaymentInput) { in.SourceTxHash = "" }, ErrMissingTxHash},
		{"missing custodial address", func(in *RegisterPaymentInput) { in.CustodialSourceAddress = "" }, ErrMissingAddress},
		{"zero amount", func(in *RegisterPaymentInput) { in.AmountUSDC = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(in *RegisterPaymentInput) { in.AmountUSDC = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"unknown merchant", func(in *RegisterPaymentInput) { in.MerchantID = "missing" }, ErrMerchantNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)
			_, err := env.payments.RegisterIncomingPayment(context.Background(), input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Payment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "rejected registrations must not leave rows behind")
}

func TestGetPayment_NotFound(t *testing.T) {
	env := newTestEnv(t, models.ChainEthereum)

	_, err := env.payments.GetPayment(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestListPayments_FilterByMerchant(t *testing.T) {
	env := newTestEnv(t, models.ChainEthereum)
	merchantA := createTestMerchant(t, env.db, models.ChainEthereum, "0xA")
	merchantB := createTestMerchant(t, env.db, models.ChainEthereum, "0xB")

	for i, m := range []*models.Merchant{merchantA, merchantA, merchantB} {
		_, err := env.payments.RegisterIncomingPayment(context.Background(), RegisterPaymentInput{
			MerchantID:             m.ID,
			SourceChain:            models.ChainSolana,
			SourceTxHash:           fmt.Sprintf("sol-tx-%d", i),
			AmountUSDC:             decimal.NewFromInt(1),
			CustodialSourceAddress: "custody-sol",
		})
		require.NoError(t, err)
	}

	all, err := env.payments.ListPayments(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyA, err := env.payments.ListPayments(context.Background(), merchantA.ID)
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)
}
