package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rawblock/address-risk-engine/internal/config"
	"github.com/rawblock/address-risk-engine/internal/db"
	"github.com/rawblock/address-risk-engine/internal/explorer"
	"github.com/rawblock/address-risk-engine/internal/logger"
	"github.com/rawblock/address-risk-engine/internal/monitor"
	"github.com/rawblock/address-risk-engine/internal/service"
	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Engine is the analysis surface the handlers drive.
type Engine interface {
	Analyze(ctx context.Context, address string) (models.RiskReport, error)
	AnalyzeRaw(ctx context.Context, address string, raw []byte) (models.RiskReport, error)
	Identify(ctx context.Context, address string, withTransactions bool) (models.Identification, error)
	MatchScenarios(stats models.ActivityStats, minSimilarity *float64) []models.ScenarioMatch
	Scenarios() []models.ScenarioTemplate
}

// ReportArchive serves archived reports.
type ReportArchive interface {
	ListReports(ctx context.Context, page, limit int) ([]db.ReportSummary, int, error)
	GetReport(ctx context.Context, id string) (models.RiskReport, error)
}

// WatchGauge is told the watchlist size after every change.
type WatchGauge interface {
	SetWatched(n int)
}

type APIHandler struct {
	engine    Engine
	archive   ReportArchive
	watchlist *monitor.Watchlist
	gauge     WatchGauge
	log       *logger.Logger
}

// NewAPIHandler builds the handler set. archive, watchlist and gauge may
// be nil; the matching routes then answer 503.
func NewAPIHandler(engine Engine, archive ReportArchive, watchlist *monitor.Watchlist, gauge WatchGauge, log *logger.Logger) *APIHandler {
	return &APIHandler{
		engine:    engine,
		archive:   archive,
		watchlist: watchlist,
		gauge:     gauge,
		log:       log.WithComponent("api"),
	}
}

// SetupRouter mounts every route under /api/v1. Health, metrics and the
// stream are public; everything else sits behind auth and rate limiting.
func SetupRouter(cfg config.ServerConfig, handler *APIHandler, wsHub *Hub, limiter *RateLimiter, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(handler.log), corsMiddleware(cfg.AllowedOrigins))

	api := r.Group("/api/v1")
	{
		api.GET("/health", handler.handleHealth)
		if metrics != nil {
			api.GET("/metrics", gin.WrapH(metrics))
		}
		if wsHub != nil {
			api.GET("/stream", wsHub.Subscribe)
		}
	}

	protected := api.Group("")
	protected.Use(AuthMiddleware(cfg.AuthToken, handler.log))
	if limiter != nil {
		protected.Use(limiter.Middleware())
	}
	{
		protected.GET("/analyze/:address", handler.handleAnalyzeAddress)
		protected.POST("/analyze", handler.handleAnalyzeRaw)
		protected.GET("/identify/:address", handler.handleIdentify)
		protected.GET("/scenarios", handler.handleListScenarios)
		protected.POST("/scenarios/match", handler.handleMatchScenarios)
		protected.GET("/reports", handler.handleListReports)
		protected.GET("/reports/:id", handler.handleGetReport)
		protected.GET("/watchlist", handler.handleListWatchlist)
		protected.POST("/watchlist", handler.handleAddWatch)
		protected.DELETE("/watchlist/:address", handler.handleRemoveWatch)
	}

	return r
}

// corsMiddleware allows the configured origins. An empty list or "*"
// allows any origin.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if strings.TrimSpace(o) == "*" {
			allowAll = true
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range allowedOrigins {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					c.Writer.Header().Set("Vary", "Origin")
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("Request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()))
	}
}

// respondError maps pipeline errors onto HTTP status codes.
func (h *APIHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": "No transactions found for address"})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, explorer.ErrFetchFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch transactions", "details": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Upstream timed out"})
	default:
		h.log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// handleHealth returns engine status and capabilities for service discovery
func (h *APIHandler) handleHealth(c *gin.Context) {
	watched := 0
	if h.watchlist != nil {
		watched = h.watchlist.Size()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "operational",
		"engine":      "Address Risk Engine",
		"scenarios":   len(h.engine.Scenarios()),
		"dbConnected": h.archive != nil,
		"watched":     watched,
	})
}

// handleAnalyzeAddress returns the full risk report for one address.
func (h *APIHandler) handleAnalyzeAddress(c *gin.Context) {
	report, err := h.engine.Analyze(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleAnalyzeRaw scores caller-supplied explorer JSON.
// POST /api/v1/analyze { "address": "...", "transactions": [...] }
func (h *APIHandler) handleAnalyzeRaw(c *gin.Context) {
	var req struct {
		Address      string          `json:"address"`
		Transactions json.RawMessage `json:"transactions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Transactions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. Expected: {address?, transactions}"})
		return
	}

	report, err := h.engine.AnalyzeRaw(c.Request.Context(), req.Address, req.Transactions)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleIdentify attributes an address to an exchange.
func (h *APIHandler) handleIdentify(c *gin.Context) {
	withTxs, _ := strconv.ParseBool(c.DefaultQuery("withTransactions", "false"))
	id, err := h.engine.Identify(c.Request.Context(), c.Param("address"), withTxs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, id)
}

func (h *APIHandler) handleListScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.engine.Scenarios()})
}

// handleMatchScenarios matches caller-supplied stats.
// POST /api/v1/scenarios/match { "stats": {...}, "minSimilarity": 50 }
func (h *APIHandler) handleMatchScenarios(c *gin.Context) {
	var req struct {
		Stats         models.ActivityStats `json:"stats"`
		MinSimilarity *float64             `json:"minSimilarity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. Expected: {stats, minSimilarity?}"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": h.engine.MatchScenarios(req.Stats, req.MinSimilarity)})
}
