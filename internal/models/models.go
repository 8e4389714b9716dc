package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Chain identifies a blockchain the platform can receive or pay out on.
type Chain string

const (
	ChainSolana   Chain = "SOLANA"
	ChainEthereum Chain = "ETHEREUM"
	ChainBase     Chain = "BASE"
)

// IsEVM reports whether the chain belongs to the EVM family. Solana is the
// only account-based chain supported; every other supported chain is EVM.
func (c Chain) IsEVM() bool {
	return c == ChainEthereum || c == ChainBase
}

// Valid reports whether the chain is one of the supported chains.
func (c Chain) Valid() bool {
	switch c {
	case ChainSolana, ChainEthereum, ChainBase:
		return true
	}
	return false
}

// PaymentStatus lifecycle of an incoming custodial deposit
type PaymentStatus string

const (
	PaymentStatusReceived         PaymentStatus = "RECEIVED"           // deposit recorded, bridge not started
	PaymentStatusBridgeInProgress PaymentStatus = "BRIDGE_IN_PROGRESS" // burn submitted, waiting on attestation/mint
	PaymentStatusBridgeFailed     PaymentStatus = "BRIDGE_FAILED"      // burn or mint failed
	PaymentStatusSettled          PaymentStatus = "SETTLED"            // funds available on the merchant's payout chain
)

// TransferStatus lifecycle of one bridging attempt. Strictly forward-moving;
// FAILED is terminal and reachable from any non-terminal state.
type TransferStatus string

const (
	TransferStatusPendingBurn        TransferStatus = "PENDING_BURN"
	TransferStatusPendingAttestation TransferStatus = "PENDING_ATTESTATION"
	TransferStatusPendingMint        TransferStatus = "PENDING_MINT"
	TransferStatusCompleted          TransferStatus = "COMPLETED"
	TransferStatusFailed             TransferStatus = "FAILED"
)

// PayoutStatus lifecycle of one outbound transfer to a merchant
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "PENDING"
	PayoutStatusSent    PayoutStatus = "SENT"
	PayoutStatusFailed  PayoutStatus = "FAILED"
)

// Merchant is the payout destination lookup. Created out-of-band; the
// settlement core only reads the payout chain/address pairing.
type Merchant struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name          string    `json:"name" gorm:"not null"`
	PayoutChain   Chain     `json:"payout_chain" gorm:"type:varchar(16);not null"`
	PayoutAddress string    `json:"payout_address" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Payments []Payment `json:"payments,omitempty" gorm:"foreignKey:MerchantID"`
	Payouts  []Payout  `json:"payouts,omitempty" gorm:"foreignKey:MerchantID"`
}

// Payment is one incoming USDC deposit on a custodial address.
// SourceTxHash is globally unique and is the idempotency key for registration.
type Payment struct {
	ID                     string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MerchantID             string          `json:"merchant_id" gorm:"type:varchar(36);not null;index"`
	SourceChain            Chain           `json:"source_chain" gorm:"type:varchar(16);not null"`
	SourceTxHash           string          `json:"source_tx_hash" gorm:"uniqueIndex;not null"`
	AmountUSDC             decimal.Decimal `json:"amount_usdc" gorm:"type:numeric(20,6);not null"`
	Status                 PaymentStatus   `json:"status" gorm:"type:varchar(24);not null;index"`
	CustodialSourceAddress string          `json:"custodial_source_address" gorm:"not null"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`

	Merchant  *Merchant  `json:"merchant,omitempty" gorm:"foreignKey:MerchantID"`
	Transfers []Transfer `json:"transfers,omitempty" gorm:"foreignKey:PaymentID"`
}

// Transfer is one burn/attest/mint bridging attempt for a Payment.
// Burn/attestation/mint fields stay nil until the corresponding stage
// completes, so a crash between stages is observable from the row itself.
type Transfer struct {
	ID            string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PaymentID     string         `json:"payment_id" gorm:"type:varchar(36);not null;index"`
	BurnChain     Chain          `json:"burn_chain" gorm:"type:varchar(16);not null"`
	MintChain     Chain          `json:"mint_chain" gorm:"type:varchar(16);not null"`
	BurnTxHash    *string        `json:"burn_tx_hash"`
	AttestationID *string        `json:"attestation_id"`
	MintTxHash    *string        `json:"mint_tx_hash"`
	Status        TransferStatus `json:"status" gorm:"type:varchar(24);not null;index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	Payment *Payment `json:"payment,omitempty" gorm:"foreignKey:PaymentID"`
}

// Payout is one outbound USDC transfer to a merchant's own address.
// DestinationAddress is a snapshot of the merchant's payout address at
// creation time, not a live reference. Not linked to the Transfer that
// triggered it.
type Payout struct {
	ID                 string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MerchantID         string          `json:"merchant_id" gorm:"type:varchar(36);not null;index"`
	DestinationChain   Chain           `json:"destination_chain" gorm:"type:varchar(16);not null"`
	DestinationAddress string          `json:"destination_address" gorm:"not null"`
	AmountUSDC         decimal.Decimal `json:"amount_usdc" gorm:"type:numeric(20,6);not null"`
	TxHash             *string         `json:"tx_hash"`
	Status             PayoutStatus    `json:"status" gorm:"type:varchar(16);not null;index"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	Merchant *Merchant `json:"merchant,omitempty" gorm:"foreignKey:MerchantID"`
}

func (m *Merchant) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (t *Transfer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (p *Payout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
