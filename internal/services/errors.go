package services

import "errors"

// Sentinel errors surfaced by the settlement services. Handlers map these to
// HTTP statuses; callers distinguish them with errors.Is.
var (
	ErrMerchantNotFound = errors.New("merchant not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrNoActiveTransfer bridging was requested for a payment that has no
	// transfer in a non-terminal bridging status
	ErrNoActiveTransfer = errors.New("no active transfer found for payment")

	// ErrBurnNotCompleted attestation was polled before the burn stage
	// recorded its transaction hash
	ErrBurnNotCompleted = errors.New("burn transaction hash not recorded")

	ErrInvalidAmount   = errors.New("amount must be a positive decimal")
	ErrInvalidChain    = errors.New("unsupported chain")
	ErrMissingTxHash   = errors.New("source transaction hash is required")
	ErrMissingAddress  = errors.New("custodial source address is required")

	// ErrPayoutChainMismatch the requested payout chain does not match the
	// merchant's payout preference. This is a caller bug, never silently
	// redirected.
	ErrPayoutChainMismatch = errors.New("destination chain does not match merchant payout chain")
)
