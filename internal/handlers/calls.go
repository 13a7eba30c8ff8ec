package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"market-chat-service/internal/media"
)

// CallHandler fronts the external media-session token service.
type CallHandler struct {
	minter media.TokenMinter
}

// NewCallHandler builds a CallHandler.
func NewCallHandler(minter media.TokenMinter) *CallHandler {
	return &CallHandler{minter: minter}
}

// GetToken fetches a time-limited media-session token for a channel and a
// numeric participant id.
func (h *CallHandler) GetToken(c *gin.Context) {
	channel := c.Query("channel")
	if channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel is required"})
		return
	}
	uid, err := strconv.Atoi(c.Query("uid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid must be numeric"})
		return
	}

	token, err := h.minter.MintToken(c.Request.Context(), channel, uid)
	if err != nil {
		if errors.Is(err, media.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "media token service not configured"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to mint token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "channel": channel, "uid": uid})
}
