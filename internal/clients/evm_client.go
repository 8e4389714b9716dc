package clients

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"settlement-backend/internal/config"
	"settlement-backend/internal/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const erc20TransferGasLimit = 100_000

// usdcDecimals USDC uses 6 decimals on every supported chain
const usdcDecimals = 6

// EVMClient sends USDC on an EVM-family chain (Ethereum, Base) from the
// custodial wallet via a signed ERC-20 transfer.
type EVMClient struct {
	chain         models.Chain
	client        *ethclient.Client
	chainID       *big.Int
	custodialKey  *ecdsa.PrivateKey
	custodialAddr common.Address
	usdcContract  common.Address
}

var _ ChainClient = (*EVMClient)(nil)

// NewEVMClient creates a chain client for one EVM chain
func NewEVMClient(chain models.Chain, cfg *config.ChainConfig) (*EVMClient, error) {
	if !chain.IsEVM() {
		return nil, fmt.Errorf("EVM client does not support chain %s", chain)
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s RPC: %w", chain, err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.CustodialKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid custodial key for %s: %w", chain, err)
	}

	return &EVMClient{
		chain:         chain,
		client:        client,
		chainID:       big.NewInt(cfg.ChainID),
		custodialKey:  key,
		custodialAddr: crypto.PubkeyToAddress(key.PublicKey),
		usdcContract:  common.HexToAddress(cfg.USDCContract),
	}, nil
}

func (c *EVMClient) Chain() models.Chain {
	return c.chain
}

// SendUSDC transfers USDC from the custodial wallet to the recipient and
// returns the transaction hash.
func (c *EVMClient) SendUSDC(ctx context.Context, toAddress string, amountUSDC decimal.Decimal) (string, error) {
	if !common.IsHexAddress(toAddress) {
		return "", fmt.Errorf("invalid %s address: %s", c.chain, toAddress)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.custodialAddr)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	calldata := erc20TransferCalldata(common.HexToAddress(toAddress), amountUSDC.Shift(usdcDecimals).BigInt())
	tx := types.NewTransaction(nonce, c.usdcContract, big.NewInt(0), erc20TransferGasLimit, gasPrice, calldata)

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.custodialKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send USDC on %s: %w", c.chain, err)
	}

	txHash := signedTx.Hash().Hex()
	logrus.WithFields(logrus.Fields{
		"chain":   c.chain,
		"to":      toAddress,
		"amount":  amountUSDC.String(),
		"tx_hash": txHash,
	}).Info("USDC transfer submitted")

	return txHash, nil
}

// GetUSDCBalance queries the USDC balance of an address
func (c *EVMClient) GetUSDCBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) {
		return decimal.Zero, fmt.Errorf("invalid %s address: %s", c.chain, address)
	}

	calldata := erc20BalanceOfCalldata(common.HexToAddress(address))
	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.usdcContract,
		Data: calldata,
	}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balanceOf call failed on %s: %w", c.chain, err)
	}

	balance := new(big.Int).SetBytes(result)
	return decimal.NewFromBigInt(balance, -usdcDecimals), nil
}

func erc20TransferCalldata(to common.Address, amount *big.Int) []byte {
	methodID := crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
	calldata := make([]byte, 0, 4+32+32)
	calldata = append(calldata, methodID...)
	calldata = append(calldata, common.LeftPadBytes(to.Bytes(), 32)...)
	calldata = append(calldata, common.LeftPadBytes(amount.Bytes(), 32)...)
	return calldata
}

func erc20BalanceOfCalldata(owner common.Address) []byte {
	methodID := crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	calldata := make([]byte, 0, 4+32)
	calldata = append(calldata, methodID...)
	calldata = append(calldata, common.LeftPadBytes(owner.Bytes(), 32)...)
	return calldata
}
