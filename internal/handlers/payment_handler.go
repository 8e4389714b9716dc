package handlers

import (
	"errors"
	"net/http"

	"settlement-backend/internal/models"
	"settlement-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PaymentHandler exposes payment registration and the bridge trigger
type PaymentHandler struct {
	paymentService *services.PaymentService
	bridgeService  *services.BridgeService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *services.PaymentService, bridgeService *services.BridgeService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		bridgeService:  bridgeService,
	}
}

// RegisterPaymentRequest is the body for POST /api/payments/incoming
type RegisterPaymentRequest struct {
	MerchantID             string `json:"merchant_id" binding:"required"`
	SourceChain            string `json:"source_chain" binding:"required,chain"`
	SourceTxHash           string `json:"source_tx_hash" binding:"required"`
	AmountUSDC             string `json:"amount_usdc" binding:"required"`
	CustodialSourceAddress string `json:"custodial_source_address" binding:"required"`
}

// RegisterPayment handles POST /api/payments/incoming
func (h *PaymentHandler) RegisterPayment(c *gin.Context) {
	var req RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.AmountUSDC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount_usdc: " + err.Error()})
		return
	}

	result, err := h.paymentService.RegisterIncomingPayment(c.Request.Context(), services.RegisterPaymentInput{
		MerchantID:             req.MerchantID,
		SourceChain:            models.Chain(req.SourceChain),
		SourceTxHash:           req.SourceTxHash,
		AmountUSDC:             amount,
		CustodialSourceAddress: req.CustodialSourceAddress,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMerchantNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrInvalidChain),
			errors.Is(err, services.ErrInvalidAmount),
			errors.Is(err, services.ErrMissingTxHash),
			errors.Is(err, services.ErrMissingAddress):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// StartBridge handles POST /api/payments/:id/bridge
func (h *PaymentHandler) StartBridge(c *gin.Context) {
	result, err := h.bridgeService.StartBridgeForPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNoActiveTransfer):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			// Burn submission failure; state is already FAILED in the DB.
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPayment handles GET /api/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, payment)
}

// ListPayments handles GET /api/payments?merchant_id=...
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	payments, err := h.paymentService.ListPayments(c.Request.Context(), c.Query("merchant_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments, "count": len(payments)})
}
