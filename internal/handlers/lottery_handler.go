package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nightcrane/lotterybot/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LotteryHandler handles lottery-related HTTP requests
type LotteryHandler struct {
	lotteryService services.LotteryService
}

// NewLotteryHandler creates a new LotteryHandler
func NewLotteryHandler(lotteryService services.LotteryService) *LotteryHandler {
	return &LotteryHandler{lotteryService: lotteryService}
}

// GetLotteryByID handles GET /lotteries/:id
func (h *LotteryHandler) GetLotteryByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	lottery, err := h.lotteryService.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve lottery: " + err.Error()})
		return
	}
	if lottery == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lottery not found"})
		return
	}
	c.JSON(http.StatusOK, lottery)
}

// GetUnendedLotteries handles GET /lotteries/unended
func (h *LotteryHandler) GetUnendedLotteries(c *gin.Context) {
	lotteries, err := h.lotteryService.GetUnended(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve lotteries: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, lotteries)
}
