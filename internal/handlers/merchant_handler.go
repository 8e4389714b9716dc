package handlers

import (
	"errors"
	"net/http"

	"settlement-backend/internal/models"
	"settlement-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// MerchantHandler exposes merchant CRUD plus payout history
type MerchantHandler struct {
	merchantService *services.MerchantService
	payoutService   *services.PayoutService
}

// NewMerchantHandler creates a new MerchantHandler
func NewMerchantHandler(merchantService *services.MerchantService, payoutService *services.PayoutService) *MerchantHandler {
	return &MerchantHandler{
		merchantService: merchantService,
		payoutService:   payoutService,
	}
}

// CreateMerchantRequest is the body for POST /api/merchants
type CreateMerchantRequest struct {
	Name          string `json:"name" binding:"required"`
	PayoutChain   string `json:"payout_chain" binding:"required,chain"`
	PayoutAddress string `json:"payout_address" binding:"required"`
}

// CreateMerchant handles POST /api/merchants
func (h *MerchantHandler) CreateMerchant(c *gin.Context) {
	var req CreateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	merchant, err := h.merchantService.CreateMerchant(c.Request.Context(), req.Name, models.Chain(req.PayoutChain), req.PayoutAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, merchant)
}

// GetMerchant handles GET /api/merchants/:id
func (h *MerchantHandler) GetMerchant(c *gin.Context) {
	merchant, err := h.merchantService.GetMerchant(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrMerchantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, merchant)
}

// ListMerchants handles GET /api/merchants
func (h *MerchantHandler) ListMerchants(c *gin.Context) {
	merchants, err := h.merchantService.ListMerchants(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"merchants": merchants, "count": len(merchants)})
}

// ListMerchantPayouts handles GET /api/merchants/:id/payouts
func (h *MerchantHandler) ListMerchantPayouts(c *gin.Context) {
	merchantID := c.Param("id")

	// 404 for unknown merchants instead of an empty list
	if _, err := h.merchantService.GetMerchant(c.Request.Context(), merchantID); err != nil {
		if errors.Is(err, services.ErrMerchantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	payouts, err := h.payoutService.ListMerchantPayouts(c.Request.Context(), merchantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payouts": payouts, "count": len(payouts)})
}
