package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-deck/src/analysis"
	"trade-deck/src/analysis/core"
	"trade-deck/src/config"
	"trade-deck/src/helpers"
	"trade-deck/src/interfaces"
	"trade-deck/src/logger"
	"trade-deck/src/models"
	"trade-deck/src/network"
	"trade-deck/src/orderbook"
	"trade-deck/src/server"
	"trade-deck/src/storage"
	"trade-deck/src/upstream"
	"trade-deck/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config.LogLevel, config.Name)

	// 1. Storage
	var db interfaces.IDatabase

	switch config.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(config.MConfig, appLogger)
	default:
		// Default to SQLite
		db, err = storage.NewAsyncSQLiteDB(config.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	// 2. Network + Upstream
	var networkManager interfaces.INetworkManager = network.NewAsyncNetworkManager(config.MConfig, appLogger)
	upstreamClient := upstream.NewClient(config.MConfig, appLogger)

	// 3. In-memory tick history
	maxPoints := utils.CalculateMaxDataPoints(config.Storage.RetentionDays)
	history := utils.NewHistoryStore(maxPoints, appLogger)

	// 4. Analysis + dashboard server
	overlays := analysis.NewOverlayFacade(config.MConfig, appLogger)
	srv := server.NewDashboardServer(config, appLogger, upstreamClient, networkManager, db)

	// 5. Wire upstream push events into the tick history
	upstreamClient.AddListener(func(event models.MUpstreamEvent) {
		switch event.Type {
		case "price_update":
			var point models.MPricePoint
			if err := json.Unmarshal(event.Data, &point); err != nil {
				appLogger.Warning("Malformed price_update: %v", err)
				return
			}
			if point.Timestamp == 0 {
				point.Timestamp = time.Now().UnixMilli()
			}
			history.AddPoint(point)

		case "bot_status":
			var status models.MBotStatus
			if err := json.Unmarshal(event.Data, &status); err != nil {
				return
			}
			srv.Broadcast(&models.MDashboardState{
				BotStatus: status,
				Timestamp: time.Now().UnixMilli(),
			})
		}
	})

	// 6. Connect upstream (reconnect loop takes over after the first dial)
	if config.DemoMode {
		appLogger.Info("Demo mode enabled, skipping upstream connection")
	} else {
		if err := upstreamClient.Connect(); err != nil {
			appLogger.Warning("Initial upstream connection failed: %v", err)
		}
		defer upstreamClient.Close()
	}

	// 7. Start Server
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 8. Demo data generator
	var bookGen *orderbook.Generator
	if config.DemoMode {
		bookGen = orderbook.NewGenerator(time.Now().UnixNano())
		go runDemoFeed(config.MConfig, history)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Starting dashboard state loop...")

	errHandler := helpers.NewErrorHandler()

	stateTicker := time.NewTicker(2 * time.Second)
	defer stateTicker.Stop()
	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer cleanupTicker.Stop()

	// 9. Main Loop (Push Model)
	for {
		select {
		case <-stateTicker.C:
			state := buildState(config.MConfig, history, overlays, bookGen)
			if state == nil {
				continue
			}
			persistState(db, state, errHandler)

			// Broadcast merges into the retained state before fan-out
			srv.Broadcast(state)

		case <-cleanupTicker.C:
			if err := db.CleanupOldData(); err != nil {
				appLogger.Warning("Cleanup failed: %v", err)
			}

		case <-quit:
			appLogger.Info("Shutting down...")
			srv.Stop()
			return
		}
	}
}

// -----------------------------------------------------------------------------
// State Assembly
// -----------------------------------------------------------------------------

// buildState assembles a full dashboard snapshot from the tick history.
// Returns nil when no data has arrived yet.
func buildState(cfg *models.MConfig, history *utils.HistoryStore, overlays *analysis.OverlayFacade, bookGen *orderbook.Generator) *models.MDashboardState {
	prices := history.LatestAll()
	if len(prices) == 0 {
		return nil
	}

	candles := make(map[string]map[string][]models.MCandle)
	overlayMap := make(map[string][]models.MOverlaySeries)

	for _, symbol := range history.Symbols() {
		points := history.History(symbol)
		if len(points) == 0 {
			continue
		}

		candles[symbol] = make(map[string][]models.MCandle)
		for _, tf := range cfg.Timeframes {
			candles[symbol][tf] = overlays.BuildCandles(symbol, points, tf)
		}

		// Session change relative to the oldest buffered tick
		if p, ok := prices[symbol]; ok {
			p.ChangePct = core.CalculateChangePercent(p.Price, points[0].Price)
			prices[symbol] = p
		}

		// Overlays from the shortest timeframe (the chart default)
		if len(cfg.Timeframes) > 0 {
			overlayMap[symbol] = overlays.ComputeOverlays(candles[symbol][cfg.Timeframes[0]])
		}
	}

	state := &models.MDashboardState{
		Prices:    prices,
		Candles:   candles,
		Overlays:  overlayMap,
		Timestamp: time.Now().UnixMilli(),
	}

	// Synthetic book around the primary symbol's last price
	if bookGen != nil {
		if last, ok := history.Latest(cfg.Trading.Symbol); ok {
			state.OrderBook = bookGen.Generate(cfg.Trading.Symbol, last.Price)
		}
	}

	return state
}

// -----------------------------------------------------------------------------

// persistState writes the snapshot's ticks and candles to storage.
func persistState(db interfaces.IDatabase, state *models.MDashboardState, errHandler *helpers.ErrorHandler) {
	var points []models.MPricePoint
	for _, p := range state.Prices {
		points = append(points, p)
	}
	errHandler.Handle(db.SavePricePointsBulk(points), "save price points")

	var allCandles []models.MCandle
	for _, timeframes := range state.Candles {
		for _, list := range timeframes {
			allCandles = append(allCandles, list...)
		}
	}
	errHandler.Handle(db.SaveCandles(allCandles), "save candles")
}

// -----------------------------------------------------------------------------
// Demo Feed
// -----------------------------------------------------------------------------

// runDemoFeed produces a random walk around a fixed base price so the
// dashboard is usable without a trading backend.
func runDemoFeed(cfg *models.MConfig, history *utils.HistoryStore) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	price := 50000.0

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		price = price * (1 + (rng.Float64()-0.5)*0.001)
		spread := price * 0.0002

		history.AddPoint(models.MPricePoint{
			Symbol:    cfg.Trading.Symbol,
			Price:     price,
			Bid:       price - spread/2,
			Ask:       price + spread/2,
			Volume:    rng.Float64() * 10,
			Timestamp: time.Now().UnixMilli(),
		})
	}
}
