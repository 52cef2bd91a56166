package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"trade-deck/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *DashboardServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			atomic.StoreInt64(&s.clientCount, int64(len(s.clients)))
			// Send initial state on connect
			s.stateMutex.RLock()
			client.send <- s.filteredResponse(nil, "")
			s.stateMutex.RUnlock()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				atomic.StoreInt64(&s.clientCount, int64(len(s.clients)))
			}

		case state := <-s.broadcast:
			// Fan out; the retained state was already merged by Broadcast
			for client := range s.clients {
				select {
				case client.send <- state:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			atomic.StoreInt64(&s.clientCount, int64(len(s.clients)))
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Implementation
// -----------------------------------------------------------------------------

// merge builds a new snapshot from the retained state plus the incoming
// partial update and publishes it as the retained state. Snapshots are never
// mutated after publication: client goroutines serialize them concurrently
// with later merges.
func (s *DashboardServer) merge(state *models.MDashboardState) *models.MDashboardState {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	prev := s.latestState
	next := &models.MDashboardState{
		Type:      "UPDATE",
		Prices:    make(map[string]models.MPricePoint, len(prev.Prices)+len(state.Prices)),
		Candles:   make(map[string]map[string][]models.MCandle, len(prev.Candles)),
		Overlays:  make(map[string][]models.MOverlaySeries, len(prev.Overlays)),
		OrderBook: prev.OrderBook,
		Positions: prev.Positions,
		BotStatus: prev.BotStatus,
		Timestamp: prev.Timestamp,
	}

	// 1. Merge Prices
	for sym, p := range prev.Prices {
		next.Prices[sym] = p
	}
	for sym, p := range state.Prices {
		next.Prices[sym] = p
	}

	// 2. Merge Candles (latest snapshot per symbol/timeframe)
	for sym, timeframes := range prev.Candles {
		inner := make(map[string][]models.MCandle, len(timeframes))
		for tf, candles := range timeframes {
			inner[tf] = candles
		}
		next.Candles[sym] = inner
	}
	for sym, timeframes := range state.Candles {
		inner := next.Candles[sym]
		if inner == nil {
			inner = make(map[string][]models.MCandle, len(timeframes))
			next.Candles[sym] = inner
		}
		for tf, candles := range timeframes {
			inner[tf] = candles
		}
	}

	// 3. Merge Overlays
	for sym, overlays := range prev.Overlays {
		next.Overlays[sym] = overlays
	}
	for sym, overlays := range state.Overlays {
		next.Overlays[sym] = overlays
	}

	// 4. Snapshot-style fields are replaced only when the update carries them,
	// so a sparse bot-status push never wipes market data and a tick without
	// bot status never wipes a running flag.
	if state.OrderBook != nil {
		next.OrderBook = state.OrderBook
	}
	if state.Positions != nil {
		next.Positions = state.Positions
	}
	if state.BotStatus != (models.MBotStatus{}) {
		next.BotStatus = state.BotStatus
	}
	if state.Timestamp != 0 {
		next.Timestamp = state.Timestamp
	}

	s.latestState = next
	return next
}

// -----------------------------------------------------------------------------

// UpdateState merges new data into the retained state without broadcasting
func (s *DashboardServer) UpdateState(state *models.MDashboardState) {
	if state == nil {
		return
	}
	s.merge(state)
}

// -----------------------------------------------------------------------------

// Broadcast merges a state update into the retained state and queues the
// merged snapshot for fan-out.
func (s *DashboardServer) Broadcast(state *models.MDashboardState) {
	if state == nil {
		return
	}
	merged := s.merge(state)

	// The buffered queue makes blocking rare; slow consumers are pruned
	// in the Hub loop.
	select {
	case s.broadcast <- merged:
	case <-s.done:
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MDashboardState, 256),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *DashboardServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	s.stateMutex.RLock()
	response := s.filteredResponse(cmd.Symbols, cmd.Timeframe)
	s.stateMutex.RUnlock()

	// Send response to client
	// Use select to avoid blocking if client's send buffer is full
	select {
	case client.send <- response:
	default:
		// Client buffer full; the Hub loop prunes persistently slow clients
	}
}

// -----------------------------------------------------------------------------
// Response Filtering
// -----------------------------------------------------------------------------

// filteredResponse narrows the retained state to the requested symbols and
// timeframe. Empty symbols means all; empty timeframe means all timeframes.
func (s *DashboardServer) filteredResponse(symbols []string, timeframe string) *models.MDashboardState {
	filteredPrices := make(map[string]models.MPricePoint)
	if len(symbols) == 0 {
		filteredPrices = s.latestState.Prices
	} else {
		for sym, p := range s.latestState.Prices {
			if contains(symbols, sym) {
				filteredPrices[sym] = p
			}
		}
	}

	filteredCandles := make(map[string]map[string][]models.MCandle)
	filteredOverlays := make(map[string][]models.MOverlaySeries)

	for sym, timeframes := range s.latestState.Candles {
		if len(symbols) > 0 && !contains(symbols, sym) {
			continue
		}

		if timeframe != "" {
			if candles, exists := timeframes[timeframe]; exists {
				filteredCandles[sym] = map[string][]models.MCandle{timeframe: candles}
			}
		} else {
			filteredCandles[sym] = timeframes
		}

		if overlays, exists := s.latestState.Overlays[sym]; exists {
			filteredOverlays[sym] = overlays
		}
	}

	return &models.MDashboardState{
		Type:      "INITIAL",
		Prices:    filteredPrices,
		Candles:   filteredCandles,
		Overlays:  filteredOverlays,
		OrderBook: s.latestState.OrderBook,
		Positions: s.latestState.Positions,
		BotStatus: s.latestState.BotStatus,
		Timestamp: s.latestState.Timestamp,
	}
}

// -----------------------------------------------------------------------------

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
