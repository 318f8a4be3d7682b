package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// handleListReports returns archived report summaries, newest first.
func (h *APIHandler) handleListReports(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not connected"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	reports, totalCount, err := h.archive.ListReports(c.Request.Context(), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       reports,
		"totalCount": totalCount,
		"page":       page,
		"limit":      limit,
	})
}

// handleGetReport returns one archived report.
func (h *APIHandler) handleGetReport(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not connected"})
		return
	}

	report, err := h.archive.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
