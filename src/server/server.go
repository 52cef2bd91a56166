package server

import (
	"fmt"
	"strings"
	"sync"

	"trade-deck/src/config"
	"trade-deck/src/interfaces"
	"trade-deck/src/logger"
	"trade-deck/src/models"
	"trade-deck/src/upstream"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// DashboardServer
// -----------------------------------------------------------------------------

type DashboardServer struct {
	Config   *config.Config
	Logger   *logger.Logger
	Upstream *upstream.Client
	Network  interfaces.INetworkManager
	DB       interfaces.IDatabase
	engine   *gin.Engine

	// WebSocket clients (map owned by the hub goroutine, count readable anywhere)
	clients     map[*Client]struct{}
	clientCount int64
	broadcast   chan *models.MDashboardState // Strongly typed and Buffered Queue
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}

	// Local cache
	latestState *models.MDashboardState
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDashboardServer(cfg *config.Config, log *logger.Logger, up *upstream.Client, netMgr interfaces.INetworkManager, db interfaces.IDatabase) *DashboardServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DashboardServer{
		Config:   cfg,
		Logger:   log,
		Upstream: up,
		Network:  netMgr,
		DB:       db,
		engine:   gin.Default(),
		clients:  make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking
		// Queue size of 256 ensures we can handle bursts of updates
		broadcast:  make(chan *models.MDashboardState, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		latestState: &models.MDashboardState{
			Type:     "INITIAL",
			Prices:   make(map[string]models.MPricePoint),
			Candles:  make(map[string]map[string][]models.MCandle),
			Overlays: make(map[string][]models.MOverlaySeries),
		},
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/metrics", s.getMetrics)
	s.engine.GET("/api/analysis/:symbol", s.getAnalysis)
	s.engine.GET("/api/candles", s.getCandles)
	s.engine.GET("/api/positions", s.getPositions)
	s.engine.GET("/api/history", s.getHistory)
	s.engine.GET("/api/logs", s.getLogs)
	s.engine.POST("/api/sizing/preview", s.postSizingPreview)
	s.engine.POST("/api/bot/start", s.postBotStart)
	s.engine.POST("/api/bot/stop", s.postBotStop)
	s.engine.POST("/api/bot/config", s.postBotConfig)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *DashboardServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting dashboard server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) Stop() error {
	// Signal the Hub loop to exit. The register/unregister/broadcast channels
	// stay open so pump goroutines draining at shutdown never hit a closed
	// channel.
	close(s.done)
	return nil
}
