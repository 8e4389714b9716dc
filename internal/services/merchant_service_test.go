package services

import (
	"context"
	"testing"

	"settlement-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMerchant(t *testing.T) {
	env := newTestEnv(t, models.ChainEthereum)

	merchant, err := env.merchants.CreateMerchant(context.Background(), "Acme", models.ChainEthereum, "0xAcme")
	require.NoError(t, err)
	assert.NotEmpty(t, merchant.ID)
	assert.Equal(t, models.ChainEthereum, merchant.PayoutChain)

	loaded, err := env.merchants.GetMerchant(context.Background(), merchant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", loaded.Name)
}

func TestCreateMerchant_Validation(t *testing.T) {
	env := newTestEnv(t, models.ChainEthereum)

	_, err := env.merchants.CreateMerchant(context.Background(), "Bad", "TRON", "addr")
	assert.ErrorIs(t, err, ErrInvalidChain)

	_, err = env.merchants.CreateMerchant(context.Background(), "Bad", models.ChainBase, "")
	assert.Error(t, err)
}

func TestGetMerchant_NotFound(t *testing.T) {
	env := newTestEnv(t, models.ChainEthereum)

	_, err := env.merchants.GetMerchant(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMerchantNotFound)
}
