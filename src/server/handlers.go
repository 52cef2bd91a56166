package server

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"trade-deck/src/models"
	"trade-deck/src/sizing"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// REST Handlers
// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"name":     s.Config.Name,
		"upstream": s.Upstream.State().String(),
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getConfig(c *gin.Context) {
	// Expose only the parts the dashboard needs; storage credentials stay
	// server side.
	c.JSON(http.StatusOK, gin.H{
		"name":       s.Config.Name,
		"demoMode":   s.Config.DemoMode,
		"timeframes": s.Config.Timeframes,
		"trading":    s.Config.Trading,
		"indicator":  s.Config.Indicator,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getMetrics(c *gin.Context) {
	s.stateMutex.RLock()
	symbols := len(s.latestState.Prices)
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"upstreamState":   s.Upstream.State().String(),
		"pendingRequests": s.Upstream.PendingCount(),
		"clients":         atomic.LoadInt64(&s.clientCount),
		"trackedSymbols":  symbols,
		"timestamp":       time.Now().Unix(),
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getAnalysis(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	data, err := s.Network.FetchAnalysis(symbol)
	if err != nil {
		s.Logger.Warning("Analysis fetch failed for %s, falling back to socket: %v", symbol, err)

		ctx, cancel := s.requestContext(c)
		defer cancel()

		data, err = s.Upstream.GetAIAnalysis(ctx, symbol)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
	}

	c.Data(http.StatusOK, "application/json", data)
}

// -----------------------------------------------------------------------------

// getCandles serves the persisted candle history, deeper than what the live
// dashboard state retains.
func (s *DashboardServer) getCandles(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		symbol = s.Config.Trading.Symbol
	}

	timeframe := c.Query("timeframe")
	if timeframe == "" && len(s.Config.Timeframes) > 0 {
		timeframe = s.Config.Timeframes[0]
	}
	if !contains(s.Config.Timeframes, timeframe) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown timeframe"})
		return
	}

	limit := 500
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	candles, err := s.DB.LoadCandles(symbol, timeframe, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"timeframe": timeframe,
		"candles":   candles,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getPositions(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	positions, err := s.Upstream.GetPositions(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getHistory(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	trades, err := s.Upstream.GetTradingHistory(ctx, limit)
	if err != nil {
		// Serve the last persisted snapshot when the backend is unreachable
		cached, dbErr := s.DB.LoadTrades(s.Config.Trading.Symbol, limit)
		if dbErr != nil || len(cached) == 0 {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"trades": cached, "cached": true})
		return
	}

	// Warm the cache for the next outage
	if err := s.DB.SaveTrades(trades); err != nil {
		s.Logger.Warning("Failed to cache trading history: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getLogs(c *gin.Context) {
	limit := 200
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	lines, err := s.Upstream.GetLogs(ctx, limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": lines})
}

// -----------------------------------------------------------------------------
// Sizing Preview
// -----------------------------------------------------------------------------

type sizingPreviewRequest struct {
	Balance   float64            `json:"balance"`
	Leverage  int                `json:"leverage"`
	Mode      string             `json:"mode"`
	Unit      string             `json:"unit"`
	Size      float64            `json:"size"`
	Price     float64            `json:"price"`
	Positions []models.MPosition `json:"positions"`
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postSizingPreview(c *gin.Context) {
	var req sizingPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode, err := sizing.ParseMarginMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	unit, err := sizing.ParseSizeUnit(req.Unit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Leverage == 0 {
		req.Leverage = s.Config.Trading.DefaultLeverage
	}

	sizer := sizing.NewSizer(req.Balance, req.Leverage, mode, unit, req.Size, req.Price, req.Positions, s.Config.Trading.CrossReservePct)

	quoteValue, err := sizer.QuoteValue()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	maxTradable, err := sizer.MaxTradableAmount()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	margin, err := sizer.MarginRequirement()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slider, err := sizer.SliderPercentage()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quoteValue":        quoteValue,
		"maxTradableAmount": maxTradable,
		"marginRequirement": margin,
		"sliderPercentage":  slider,
	})
}

// -----------------------------------------------------------------------------
// Bot Control
// -----------------------------------------------------------------------------

type botStartRequest struct {
	Symbol   string `json:"symbol"`
	Strategy string `json:"strategy"`
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postBotStart(c *gin.Context) {
	var req botStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Symbol == "" {
		req.Symbol = s.Config.Trading.Symbol
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	status, err := s.Upstream.StartBot(ctx, req.Symbol, req.Strategy)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	s.pushBotStatus(status)
	c.JSON(http.StatusOK, status)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postBotStop(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	status, err := s.Upstream.StopBot(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	s.pushBotStatus(status)
	c.JSON(http.StatusOK, status)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postBotConfig(c *gin.Context) {
	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(patch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty config patch"})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	if err := s.Upstream.UpdateConfig(ctx, patch); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	s.applyConfigPatch(patch)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// -----------------------------------------------------------------------------

// applyConfigPatch mirrors accepted trading overrides into the local config
// file so a restart keeps the values the backend confirmed.
func (s *DashboardServer) applyConfigPatch(patch map[string]interface{}) {
	changed := false
	if sym, ok := patch["symbol"].(string); ok && sym != "" {
		s.Config.Trading.Symbol = sym
		changed = true
	}
	if lev, ok := patch["leverage"].(float64); ok && lev >= 1 {
		s.Config.Trading.DefaultLeverage = int(lev)
		changed = true
	}

	if !changed || s.Config.Path == "" {
		return
	}
	if err := s.Config.Save(s.Config.Path); err != nil {
		s.Logger.Warning("Failed to persist config update: %v", err)
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// requestContext bounds upstream calls by the configured request timeout and
// the HTTP request lifetime.
func (s *DashboardServer) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(s.Config.Upstream.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// -----------------------------------------------------------------------------

// pushBotStatus broadcasts a bot status change to connected dashboards.
// The Broadcast merge fills in the retained market data.
func (s *DashboardServer) pushBotStatus(status models.MBotStatus) {
	s.Broadcast(&models.MDashboardState{
		BotStatus: status,
		Timestamp: time.Now().UnixMilli(),
	})
}
