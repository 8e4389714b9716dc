package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"settlement-backend/internal/clients"
	"settlement-backend/internal/db"
	"settlement-backend/internal/models"
	"settlement-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database with the full schema applied.
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

func createTestMerchant(t *testing.T, database *gorm.DB, payoutChain models.Chain, payoutAddress string) *models.Merchant {
	t.Helper()

	merchant := &models.Merchant{
		Name:          "Test Merchant",
		PayoutChain:   payoutChain,
		PayoutAddress: payoutAddress,
	}
	require.NoError(t, database.Create(merchant).Error)
	return merchant
}

// fakeBridgeClient is a scriptable CCTP double. Burn and mint calls are
// counted so tests can assert the at-most-once guarantees.
type fakeBridgeClient struct {
	mu sync.Mutex

	burnCalls int
	burnErr   error

	attestation    string
	attestationErr error

	mintCalls int
	mintErr   error
}

func (f *fakeBridgeClient) BurnUSDCOnChain(ctx context.Context, chain models.Chain, amountUSDC decimal.Decimal, custodialAddress string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.burnCalls++
	if f.burnErr != nil {
		return "", f.burnErr
	}
	return fmt.Sprintf("burn-tx-%d", f.burnCalls), nil
}

func (f *fakeBridgeClient) GetAttestation(ctx context.Context, burnTxHash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attestationErr != nil {
		return "", f.attestationErr
	}
	if f.attestation == "" {
		return "att-" + burnTxHash, nil
	}
	return f.attestation, nil
}

func (f *fakeBridgeClient) MintUSDCOnChain(ctx context.Context, chain models.Chain, attestationID, recipientAddress string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mintCalls++
	if f.mintErr != nil {
		return "", f.mintErr
	}
	return fmt.Sprintf("mint-tx-%d", f.mintCalls), nil
}

// fakeChainClient records USDC sends for one chain.
type fakeChainClient struct {
	chain   models.Chain
	sendErr error

	mu    sync.Mutex
	sends []string // recorded destination addresses
}

func (f *fakeChainClient) Chain() models.Chain { return f.chain }

func (f *fakeChainClient) SendUSDC(ctx context.Context, toAddress string, amountUSDC decimal.Decimal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sends = append(f.sends, toAddress)
	return fmt.Sprintf("payout-tx-%d", len(f.sends)), nil
}

func (f *fakeChainClient) GetUSDCBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// testEnv bundles the full service graph over a fresh database.
type testEnv struct {
	db           *gorm.DB
	bridgeClient *fakeBridgeClient
	chainClient  *fakeChainClient

	payments  *PaymentService
	bridge    *BridgeService
	payouts   *PayoutService
	merchants *MerchantService
}

func newTestEnv(t *testing.T, payoutChain models.Chain) *testEnv {
	t.Helper()

	database := newTestDB(t)
	merchantRepo := repository.NewMerchantRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)
	transferRepo := repository.NewTransferRepository(database)
	payoutRepo := repository.NewPayoutRepository(database)

	bridgeClient := &fakeBridgeClient{}
	chainClient := &fakeChainClient{chain: payoutChain}
	registry := clients.NewChainClientRegistry(chainClient)

	payoutService := NewPayoutService(merchantRepo, payoutRepo, registry)
	custodialAddrs := map[models.Chain]string{
		models.ChainSolana:   "custody-sol",
		models.ChainEthereum: "0xCustodyEth",
		models.ChainBase:     "0xCustodyBase",
	}

	return &testEnv{
		db:           database,
		bridgeClient: bridgeClient,
		chainClient:  chainClient,
		payments:     NewPaymentService(database, merchantRepo, paymentRepo, transferRepo),
		bridge:       NewBridgeService(database, paymentRepo, transferRepo, bridgeClient, payoutService, custodialAddrs),
		payouts:      payoutService,
		merchants:    NewMerchantService(merchantRepo),
	}
}
