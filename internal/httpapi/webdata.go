package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/velikanov/teleshop/internal/orders"
)

// handleWebData receives the cart submitted by the Telegram web app and
// hands it to the confirmation orchestrator.
func (s *Server) handleWebData(c *gin.Context) {
	if s.orchestrator == nil {
		// REST API running without the bot, nobody to send confirmations.
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "bot_unavailable",
			"message": "Order confirmation is not available",
		})
		return
	}

	var sub orders.CartSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		badRequest(c, err.Error())
		return
	}
	if sub.QueryID == "" || sub.ChatID == 0 {
		badRequest(c, "queryId and chatId are required")
		return
	}
	if len(sub.Products) == 0 {
		badRequest(c, "Cart must contain at least one product")
		return
	}

	res, err := s.orchestrator.SubmitCart(c.Request.Context(), sub)
	if err != nil {
		if errors.Is(err, orders.ErrNotAuthenticated) {
			unauthorized(c, "not_authenticated", "Please log in through the bot before submitting a cart")
			return
		}
		s.logger.Error().
			Err(err).
			Int64("chat_id", sub.ChatID).
			Msg("Cart submission failed")
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "confirmation_sent", "orderId": res.OrderID})
}
