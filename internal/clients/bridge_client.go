package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"settlement-backend/internal/config"
	"settlement-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrAttestationNotReady signals that Circle has not yet attested a burn.
// This is an expected, retryable condition, not a failure.
var ErrAttestationNotReady = errors.New("attestation not ready")

// BridgeClient is the CCTP capability consumed by the bridge orchestrator.
// Burn is a one-time, value-destroying operation; the orchestrator guarantees
// it is called at most once per transfer. GetAttestation is safe to call
// repeatedly.
type BridgeClient interface {
	BurnUSDCOnChain(ctx context.Context, chain models.Chain, amountUSDC decimal.Decimal, custodialAddress string) (string, error)
	GetAttestation(ctx context.Context, burnTxHash string) (string, error)
	MintUSDCOnChain(ctx context.Context, chain models.Chain, attestationID, recipientAddress string) (string, error)
}

// CircleBridgeClient talks to Circle's CCTP API
type CircleBridgeClient struct {
	BaseURL string
	apiKey  string
	Client  *http.Client
}

// NewCircleBridgeClient creates a new Circle CCTP client
func NewCircleBridgeClient(cfg config.CircleConfig) *CircleBridgeClient {
	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &CircleBridgeClient{
		BaseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

type burnRequest struct {
	SourceDomain  uint32 `json:"sourceDomain"`
	Amount        string `json:"amount"` // smallest units (USDC has 6 decimals)
	SourceAddress string `json:"sourceAddress"`
}

type burnResponse struct {
	TxHash string `json:"txHash"`
}

type attestationResponse struct {
	Status      string `json:"status"`
	Attestation string `json:"attestation"`
}

type mintRequest struct {
	DestinationDomain uint32 `json:"destinationDomain"`
	Attestation       string `json:"attestation"`
	Recipient         string `json:"recipient"`
}

type mintResponse struct {
	TxHash string `json:"txHash"`
}

// BurnUSDCOnChain burns USDC on the source chain from the custodial wallet
// and returns the burn transaction hash.
func (c *CircleBridgeClient) BurnUSDCOnChain(ctx context.Context, chain models.Chain, amountUSDC decimal.Decimal, custodialAddress string) (string, error) {
	chainConfig, err := config.GetChainConfig(chain)
	if err != nil {
		return "", fmt.Errorf("burn unsupported on chain %s: %w", chain, err)
	}

	req := burnRequest{
		SourceDomain:  chainConfig.CCTPDomain,
		Amount:        toSmallestUnits(amountUSDC),
		SourceAddress: custodialAddress,
	}

	var resp burnResponse
	if err := c.postJSON(ctx, "/v1/bridge/burn", req, &resp); err != nil {
		return "", fmt.Errorf("cctp burn on %s failed: %w", chain, err)
	}

	logrus.WithFields(logrus.Fields{
		"chain":   chain,
		"amount":  amountUSDC.String(),
		"tx_hash": resp.TxHash,
	}).Info("CCTP burn submitted")

	return resp.TxHash, nil
}

// GetAttestation fetches the attestation for a burn transaction. Returns
// ErrAttestationNotReady while Circle is still confirming the burn.
func (c *CircleBridgeClient) GetAttestation(ctx context.Context, burnTxHash string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/attestations/"+burnTxHash, nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.Client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("attestation request failed: %w", err)
	}
	defer httpResp.Body.Close()

	// Circle returns 404 until the burn has been observed at all.
	if httpResp.StatusCode == http.StatusNotFound {
		return "", ErrAttestationNotReady
	}
	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return "", fmt.Errorf("attestation request returned %d: %s", httpResp.StatusCode, string(body))
	}

	var resp attestationResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to decode attestation response: %w", err)
	}

	if resp.Status != "complete" {
		return "", ErrAttestationNotReady
	}

	return resp.Attestation, nil
}

// MintUSDCOnChain mints USDC on the destination chain using an attestation
// and returns the mint transaction hash.
func (c *CircleBridgeClient) MintUSDCOnChain(ctx context.Context, chain models.Chain, attestationID, recipientAddress string) (string, error) {
	chainConfig, err := config.GetChainConfig(chain)
	if err != nil {
		return "", fmt.Errorf("mint unsupported on chain %s: %w", chain, err)
	}

	req := mintRequest{
		DestinationDomain: chainConfig.CCTPDomain,
		Attestation:       attestationID,
		Recipient:         recipientAddress,
	}

	var resp mintResponse
	if err := c.postJSON(ctx, "/v1/bridge/mint", req, &resp); err != nil {
		return "", fmt.Errorf("cctp mint on %s failed: %w", chain, err)
	}

	logrus.WithFields(logrus.Fields{
		"chain":   chain,
		"tx_hash": resp.TxHash,
	}).Info("CCTP mint submitted")

	return resp.TxHash, nil
}

func (c *CircleBridgeClient) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.Client.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(httpResp.Body)
		return fmt.Errorf("request returned %d: %s", httpResp.StatusCode, string(respBody))
	}

	return json.NewDecoder(httpResp.Body).Decode(out)
}

// toSmallestUnits converts a USDC amount to its 6-decimal smallest units.
func toSmallestUnits(amount decimal.Decimal) string {
	return amount.Shift(6).Truncate(0).String()
}
