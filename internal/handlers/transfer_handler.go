package handlers

import (
	"errors"
	"net/http"

	"settlement-backend/internal/clients"
	"settlement-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// TransferHandler exposes transfer inspection and the poll-and-mint trigger
type TransferHandler struct {
	bridgeService *services.BridgeService
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(bridgeService *services.BridgeService) *TransferHandler {
	return &TransferHandler{bridgeService: bridgeService}
}

// PollTransfer handles POST /api/transfers/:id/poll. An attestation that is
// not ready yet is a normal in-flight condition, reported as 202 so callers
// know to come back, not as an error.
func (h *TransferHandler) PollTransfer(c *gin.Context) {
	result, err := h.bridgeService.PollAttestationAndMint(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, clients.ErrAttestationNotReady):
			c.JSON(http.StatusAccepted, gin.H{
				"status":  "pending",
				"message": "attestation not ready yet, retry later",
			})
		case errors.Is(err, services.ErrTransferNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrBurnNotCompleted):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransfer handles GET /api/transfers/:id
func (h *TransferHandler) GetTransfer(c *gin.Context) {
	transfer, err := h.bridgeService.GetTransfer(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrTransferNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, transfer)
}
