package clients

import (
	"context"
	"fmt"

	"settlement-backend/internal/models"

	"github.com/shopspring/decimal"
)

// ChainClient is the per-chain capability consumed by the payout dispatcher:
// send a USDC transfer from the custodial wallet and query a balance.
// One implementation exists per chain family (Solana, EVM).
type ChainClient interface {
	Chain() models.Chain
	SendUSDC(ctx context.Context, toAddress string, amountUSDC decimal.Decimal) (string, error)
	GetUSDCBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// ChainClientRegistry dispatches to the client for a given chain. Adding a
// chain means registering a client, not touching call sites.
type ChainClientRegistry struct {
	clients map[models.Chain]ChainClient
}

// NewChainClientRegistry creates a registry from the given clients
func NewChainClientRegistry(clients ...ChainClient) *ChainClientRegistry {
	registry := &ChainClientRegistry{clients: make(map[models.Chain]ChainClient, len(clients))}
	for _, client := range clients {
		registry.clients[client.Chain()] = client
	}
	return registry
}

// Get returns the client for a chain
func (r *ChainClientRegistry) Get(chain models.Chain) (ChainClient, error) {
	client, ok := r.clients[chain]
	if !ok {
		return nil, fmt.Errorf("no chain client registered for %s", chain)
	}
	return client, nil
}
