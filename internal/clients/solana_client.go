package clients

import (
	"context"
	"fmt"

	"settlement-backend/internal/config"
	"settlement-backend/internal/models"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SolanaClient sends USDC on Solana from the custodial wallet via an SPL
// token transfer between associated token accounts.
type SolanaClient struct {
	client       *rpc.Client
	usdcMint     solana.PublicKey
	custodialKey solana.PrivateKey
}

var _ ChainClient = (*SolanaClient)(nil)

// NewSolanaClient creates the Solana chain client
func NewSolanaClient(cfg *config.ChainConfig) (*SolanaClient, error) {
	mint, err := solana.PublicKeyFromBase58(cfg.USDCContract)
	if err != nil {
		return nil, fmt.Errorf("invalid USDC mint address: %w", err)
	}

	key, err := solana.PrivateKeyFromBase58(cfg.CustodialKey)
	if err != nil {
		return nil, fmt.Errorf("invalid custodial key for SOLANA: %w", err)
	}

	return &SolanaClient{
		client:       rpc.New(cfg.RPCURL),
		usdcMint:     mint,
		custodialKey: key,
	}, nil
}

func (c *SolanaClient) Chain() models.Chain {
	return models.ChainSolana
}

// SendUSDC transfers USDC to the recipient's associated token account and
// returns the transaction signature.
func (c *SolanaClient) SendUSDC(ctx context.Context, toAddress string, amountUSDC decimal.Decimal) (string, error) {
	recipient, err := solana.PublicKeyFromBase58(toAddress)
	if err != nil {
		return "", fmt.Errorf("invalid SOLANA address %s: %w", toAddress, err)
	}

	custodialPub := c.custodialKey.PublicKey()

	sourceATA, _, err := solana.FindAssociatedTokenAddress(custodialPub, c.usdcMint)
	if err != nil {
		return "", fmt.Errorf("failed to derive source token account: %w", err)
	}
	destATA, _, err := solana.FindAssociatedTokenAddress(recipient, c.usdcMint)
	if err != nil {
		return "", fmt.Errorf("failed to derive destination token account: %w", err)
	}

	amountUnits := amountUSDC.Shift(usdcDecimals).BigInt().Uint64()
	instruction := token.NewTransferInstruction(
		amountUnits,
		sourceATA,
		destATA,
		custodialPub,
		nil,
	).Build()

	recent, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		recent.Value.Blockhash,
		solana.TransactionPayer(custodialPub),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(custodialPub) {
			return &c.custodialKey
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send USDC on SOLANA: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"chain":     models.ChainSolana,
		"to":        toAddress,
		"amount":    amountUSDC.String(),
		"signature": sig.String(),
	}).Info("USDC transfer submitted")

	return sig.String(), nil
}

// GetUSDCBalance queries the USDC balance of an address's associated token
// account
func (c *SolanaClient) GetUSDCBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid SOLANA address %s: %w", address, err)
	}

	ata, _, err := solana.FindAssociatedTokenAddress(owner, c.usdcMint)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to derive token account: %w", err)
	}

	balance, err := c.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentFinalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get token balance: %w", err)
	}

	amount, err := decimal.NewFromString(balance.Value.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse token balance: %w", err)
	}

	return amount.Shift(-usdcDecimals), nil
}
