// Package events consumes custodial-deposit events from the chain-watching
// pipeline and feeds them into the settlement core.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"settlement-backend/internal/metrics"
	"settlement-backend/internal/models"
	"settlement-backend/internal/services"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DepositEvent is one "incoming payment detected" message from the chain
// watcher. Delivery is at-least-once; registration idempotency absorbs
// replays.
type DepositEvent struct {
	MerchantID       string `json:"merchant_id"`
	Chain            string `json:"chain"`
	TxHash           string `json:"tx_hash"`
	AmountUSDC       string `json:"amount_usdc"`
	CustodialAddress string `json:"custodial_address"`
}

// DepositListener subscribes to deposit events and drives registration plus
// the first bridge stage for each one.
type DepositListener struct {
	conn           *nats.Conn
	subject        string
	paymentService *services.PaymentService
	bridgeService  *services.BridgeService
	subscription   *nats.Subscription
}

// NewDepositListener connects to NATS and prepares the listener
func NewDepositListener(url, subject string, paymentService *services.PaymentService, bridgeService *services.BridgeService) (*DepositListener, error) {
	conn, err := nats.Connect(url,
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	return &DepositListener{
		conn:           conn,
		subject:        subject,
		paymentService: paymentService,
		bridgeService:  bridgeService,
	}, nil
}

// Start subscribes to the deposit subject
func (l *DepositListener) Start() error {
	sub, err := l.conn.Subscribe(l.subject, l.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", l.subject, err)
	}
	l.subscription = sub

	logrus.WithField("subject", l.subject).Info("Deposit listener started")
	return nil
}

// Close drains the subscription and closes the connection
func (l *DepositListener) Close() {
	if l.subscription != nil {
		_ = l.subscription.Drain()
	}
	l.conn.Close()
}

func (l *DepositListener) handleMessage(msg *nats.Msg) {
	var event DepositEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		metrics.DepositEventsReceived.WithLabelValues("invalid").Inc()
		logrus.WithError(err).Warn("Discarding malformed deposit event")
		return
	}

	amount, err := decimal.NewFromString(event.AmountUSDC)
	if err != nil {
		metrics.DepositEventsReceived.WithLabelValues("invalid").Inc()
		logrus.WithError(err).WithField("tx_hash", event.TxHash).Warn("Discarding deposit event with bad amount")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := l.paymentService.RegisterIncomingPayment(ctx, services.RegisterPaymentInput{
		MerchantID:             event.MerchantID,
		SourceChain:            models.Chain(event.Chain),
		SourceTxHash:           event.TxHash,
		AmountUSDC:             amount,
		CustodialSourceAddress: event.CustodialAddress,
	})
	if err != nil {
		metrics.DepositEventsReceived.WithLabelValues("failed").Inc()
		logrus.WithError(err).WithFields(logrus.Fields{
			"merchant_id": event.MerchantID,
			"tx_hash":     event.TxHash,
		}).Error("Failed to register deposit event")
		return
	}
	metrics.DepositEventsReceived.WithLabelValues("processed").Inc()

	// Kick the first bridge stage right away when one is needed. The
	// scheduler re-drives the rest, so a failure here is logged, not fatal.
	if result.Payment.Status == models.PaymentStatusReceived {
		if _, err := l.bridgeService.StartBridgeForPayment(ctx, result.Payment.ID); err != nil {
			if !errors.Is(err, services.ErrNoActiveTransfer) {
				logrus.WithError(err).WithField("payment_id", result.Payment.ID).Error("Failed to start bridge for deposit")
			}
		}
	}
}
