package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rawblock/address-risk-engine/internal/heuristics"
)

// GET /api/v1/watchlist
func (h *APIHandler) handleListWatchlist(c *gin.Context) {
	if h.watchlist == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Monitor not enabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.watchlist.List(), "count": h.watchlist.Size()})
}

// POST /api/v1/watchlist { "address": "...", "label": "..." }
// Adds an address to periodic re-scoring.
func (h *APIHandler) handleAddWatch(c *gin.Context) {
	if h.watchlist == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Monitor not enabled"})
		return
	}

	var req struct {
		Address string `json:"address" binding:"required"`
		Label   string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	address := strings.TrimSpace(req.Address)
	if !heuristics.IsValidAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Bitcoin address"})
		return
	}

	entry := h.watchlist.Add(address, req.Label)
	h.syncGauge()
	h.log.Info("Address added to watchlist", zap.String("address", address))

	c.JSON(http.StatusCreated, gin.H{"status": "watching", "entry": entry})
}

// DELETE /api/v1/watchlist/:address
func (h *APIHandler) handleRemoveWatch(c *gin.Context) {
	if h.watchlist == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Monitor not enabled"})
		return
	}

	address := c.Param("address")
	if !h.watchlist.Remove(address) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Address not on watchlist"})
		return
	}
	h.syncGauge()
	c.JSON(http.StatusOK, gin.H{"status": "removed", "address": address})
}

func (h *APIHandler) syncGauge() {
	if h.gauge != nil {
		h.gauge.SetWatched(h.watchlist.Size())
	}
}
