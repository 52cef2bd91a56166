package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"trade-deck/src/logger"
	"trade-deck/src/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 1024 * 1024 // 1MB
)

// -----------------------------------------------------------------------------
// Connection State
// -----------------------------------------------------------------------------

type ConnState int

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosedRetrying
	StateClosedExhausted
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosedRetrying:
		return "closed-retrying"
	default:
		return "closed-exhausted"
	}
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// ErrConnectionLost rejects every request still in flight when the
// connection drops. Requests are never left hanging.
var ErrConnectionLost = errors.New("connection to trading backend lost")

// ErrRequestTimeout rejects a request whose response never arrived within
// the configured per-request timeout.
var ErrRequestTimeout = errors.New("request timed out waiting for response")

// ErrNotConnected rejects sends attempted while the connection is down.
var ErrNotConnected = errors.New("not connected to trading backend")

// ServerError carries a message reported by the backend in a type=="error"
// response.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// -----------------------------------------------------------------------------
// Action / Response Type Table
// -----------------------------------------------------------------------------

// responseTypes maps each request action to the success response type the
// backend answers with. Actions missing from the table expect an echo of
// the action name.
var responseTypes = map[string]string{
	"start_bot":           "bot_started",
	"stop_bot":            "bot_stopped",
	"get_positions":       "positions",
	"get_trading_history": "trading_history",
	"get_ai_analysis":     "ai_analysis",
	"get_logs":            "logs",
	"update_config":       "config_updated",
}

// -----------------------------------------------------------------------------
// Pending Request Registry
// -----------------------------------------------------------------------------

// Result is the terminal outcome of one logical request.
type Result struct {
	Data json.RawMessage
	Err  error
}

type pendingRequest struct {
	id           string
	action       string
	expectedType string
	sentAt       time.Time
	resultCh     chan Result // buffered, written exactly once
}

// -----------------------------------------------------------------------------
// EventListener
// -----------------------------------------------------------------------------

// EventListener receives inbound events that did not match any pending
// request (fire-and-forget pushes from the backend).
type EventListener func(event models.MUpstreamEvent)

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// Client maintains one persistent websocket connection to the trading
// backend and multiplexes concurrent request/response exchanges over it,
// keyed by generated correlation ids.
type Client struct {
	Config *models.MConfig
	Logger *logger.Logger

	url            string
	requestTimeout time.Duration
	baseDelay      time.Duration
	maxAttempts    int

	conn    *websocket.Conn
	connMu  sync.Mutex // guards conn and writes
	state   ConnState
	stateMu sync.RWMutex

	pending   map[string]*pendingRequest
	pendingMu sync.Mutex

	listeners   map[int]EventListener
	nextListen  int
	listenersMu sync.RWMutex

	stopCh chan struct{}
	stopMu sync.Mutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

// NewClient builds a client from config. The client is constructed by the
// composition root and injected where needed; it is not a package singleton.
func NewClient(cfg *models.MConfig, log *logger.Logger) *Client {
	return &Client{
		Config:         cfg,
		Logger:         log,
		url:            cfg.Upstream.WebsocketURL,
		requestTimeout: time.Duration(cfg.Upstream.RequestTimeoutSeconds) * time.Second,
		baseDelay:      time.Duration(cfg.Upstream.ReconnectBaseDelayMs) * time.Millisecond,
		maxAttempts:    cfg.Upstream.ReconnectMaxAttempts,
		state:          StateClosedExhausted,
		pending:        make(map[string]*pendingRequest),
		listeners:      make(map[int]EventListener),
	}
}

// -----------------------------------------------------------------------------
// State
// -----------------------------------------------------------------------------

func (c *Client) State() ConnState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// -----------------------------------------------------------------------------

func (c *Client) setState(s ConnState) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Connect dials the backend and starts the read loop. It also rearms the
// reconnect machinery after a previous closed-exhausted state.
func (c *Client) Connect() error {
	c.stopMu.Lock()
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.stopMu.Unlock()

	c.setState(StateConnecting)

	conn, err := c.dial()
	if err != nil {
		c.setState(StateClosedExhausted)
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.setState(StateOpen)
	c.Logger.Info("Connected to trading backend at %s", c.url)

	go c.readLoop(conn, stopCh)
	return nil
}

// -----------------------------------------------------------------------------

func (c *Client) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: writeWait}
	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)
	return conn, nil
}

// -----------------------------------------------------------------------------

// Close stops the client. Outstanding requests are failed with
// ErrConnectionLost and no reconnect is attempted.
func (c *Client) Close() {
	c.stopMu.Lock()
	if c.stopCh != nil {
		select {
		case <-c.stopCh:
			// already closed
		default:
			close(c.stopCh)
		}
	}
	c.stopMu.Unlock()

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.setState(StateClosedExhausted)
	c.failAllPending(ErrConnectionLost)
}

// -----------------------------------------------------------------------------
// Sending
// -----------------------------------------------------------------------------

// Send transmits an action with a generated correlation id and returns a
// channel that receives exactly one Result: the matched response data, the
// server-reported error, a timeout, or a connection-lost failure.
func (c *Client) Send(action string, payload map[string]interface{}) <-chan Result {
	resultCh := make(chan Result, 1)

	if c.State() != StateOpen {
		resultCh <- Result{Err: ErrNotConnected}
		return resultCh
	}

	id := uuid.NewString()
	expected, ok := responseTypes[action]
	if !ok {
		expected = action
	}

	req := &pendingRequest{
		id:           id,
		action:       action,
		expectedType: expected,
		sentAt:       time.Now(),
		resultCh:     resultCh,
	}

	c.pendingMu.Lock()
	c.pending[id] = req
	c.pendingMu.Unlock()

	// Flatten payload fields next to action and messageId
	outbound := make(map[string]interface{}, len(payload)+2)
	for k, v := range payload {
		outbound[k] = v
	}
	outbound["action"] = action
	outbound["messageId"] = id

	if err := c.writeJSON(outbound); err != nil {
		c.resolve(id, Result{Err: fmt.Errorf("failed to send %s: %w", action, err)})
		return resultCh
	}

	// Per-request timeout so a silently dropped response cannot leave the
	// caller waiting past the connection lifecycle.
	if c.requestTimeout > 0 {
		time.AfterFunc(c.requestTimeout, func() {
			c.resolve(id, Result{Err: ErrRequestTimeout})
		})
	}

	return resultCh
}

// -----------------------------------------------------------------------------

// Do is the blocking form of Send, honoring context cancellation. A caller
// that abandons the request deregisters interest so the registry entry does
// not leak.
func (c *Client) Do(ctx context.Context, action string, payload map[string]interface{}) (json.RawMessage, error) {
	resultCh := c.Send(action, payload)

	select {
	case res := <-resultCh:
		return res.Data, res.Err
	case <-ctx.Done():
		c.dropByChannel(resultCh)
		return nil, ctx.Err()
	}
}

// -----------------------------------------------------------------------------

func (c *Client) writeJSON(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// -----------------------------------------------------------------------------
// Registry Resolution
// -----------------------------------------------------------------------------

// resolve removes the pending entry and delivers the result. Only the
// goroutine that removes the entry writes the channel, so each request is
// resolved exactly once even when timeout, response and disconnect race.
func (c *Client) resolve(id string, res Result) {
	c.pendingMu.Lock()
	req, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	if ok {
		req.resultCh <- res
	}
}

// -----------------------------------------------------------------------------

func (c *Client) dropByChannel(ch <-chan Result) {
	c.pendingMu.Lock()
	for id, req := range c.pending {
		if req.resultCh == ch {
			delete(c.pending, id)
			break
		}
	}
	c.pendingMu.Unlock()
}

// -----------------------------------------------------------------------------

func (c *Client) failAllPending(err error) {
	c.pendingMu.Lock()
	outstanding := c.pending
	c.pending = make(map[string]*pendingRequest)
	c.pendingMu.Unlock()

	for _, req := range outstanding {
		req.resultCh <- Result{Err: err}
	}
}

// -----------------------------------------------------------------------------

// PendingCount reports outstanding requests, for metrics.
func (c *Client) PendingCount() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}

// -----------------------------------------------------------------------------
// Listeners
// -----------------------------------------------------------------------------

// AddListener registers a listener for uncorrelated events. The returned id
// removes it again via RemoveListener.
func (c *Client) AddListener(fn EventListener) int {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.nextListen++
	c.listeners[c.nextListen] = fn
	return c.nextListen
}

// -----------------------------------------------------------------------------

func (c *Client) RemoveListener(id int) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	delete(c.listeners, id)
}

// -----------------------------------------------------------------------------

func (c *Client) broadcast(event models.MUpstreamEvent) {
	c.listenersMu.RLock()
	defer c.listenersMu.RUnlock()
	for _, fn := range c.listeners {
		fn(event)
	}
}

// -----------------------------------------------------------------------------
// Read Loop and Dispatch
// -----------------------------------------------------------------------------

func (c *Client) readLoop(conn *websocket.Conn, stopCh chan struct{}) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stopCh:
				// explicit Close already handled cleanup
				return
			default:
			}
			c.Logger.Warning("Read error from trading backend: %v", err)
			c.handleDisconnect(stopCh)
			return
		}

		var event models.MUpstreamEvent
		if err := json.Unmarshal(message, &event); err != nil {
			c.Logger.Warning("Failed to parse backend message: %v", err)
			continue
		}

		c.dispatch(event)
	}
}

// -----------------------------------------------------------------------------

// dispatch matches an inbound event against the pending registry. Error
// events reject the correlated request with the server-supplied message;
// success types resolve it; everything unmatched fans out to listeners.
func (c *Client) dispatch(event models.MUpstreamEvent) {
	if event.MessageID != "" {
		c.pendingMu.Lock()
		req, ok := c.pending[event.MessageID]
		if ok {
			delete(c.pending, event.MessageID)
		}
		c.pendingMu.Unlock()

		if ok {
			if event.Type == "error" {
				var serverErr models.MUpstreamError
				_ = json.Unmarshal(event.Data, &serverErr)
				if serverErr.Message == "" {
					serverErr.Message = fmt.Sprintf("backend rejected %s", req.action)
				}
				req.resultCh <- Result{Err: &ServerError{Message: serverErr.Message}}
			} else {
				req.resultCh <- Result{Data: event.Data}
			}
			return
		}
	}

	// No correlation id (or id already resolved): match the oldest pending
	// request expecting this response type.
	if event.Type != "error" {
		if req := c.takeOldestByType(event.Type); req != nil {
			req.resultCh <- Result{Data: event.Data}
			return
		}
	}

	c.broadcast(event)
}

// -----------------------------------------------------------------------------

func (c *Client) takeOldestByType(responseType string) *pendingRequest {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	var oldest *pendingRequest
	for _, req := range c.pending {
		if req.expectedType != responseType {
			continue
		}
		if oldest == nil || req.sentAt.Before(oldest.sentAt) {
			oldest = req
		}
	}
	if oldest != nil {
		delete(c.pending, oldest.id)
	}
	return oldest
}

// -----------------------------------------------------------------------------
// Reconnect Policy
// -----------------------------------------------------------------------------

// handleDisconnect runs after an unexpected close: fail everything in
// flight, then retry with linear backoff (baseDelay * attempt) up to
// maxAttempts before giving up until the next explicit Connect.
func (c *Client) handleDisconnect(stopCh chan struct{}) {
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	// Responses for in-flight requests are gone with the connection
	c.failAllPending(ErrConnectionLost)
	c.setState(StateClosedRetrying)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		delay := c.baseDelay * time.Duration(attempt)
		c.Logger.Info("Reconnecting to trading backend in %v (attempt %d/%d)", delay, attempt, c.maxAttempts)

		select {
		case <-stopCh:
			c.setState(StateClosedExhausted)
			return
		case <-time.After(delay):
		}

		c.setState(StateConnecting)
		conn, err := c.dial()
		if err != nil {
			c.Logger.Warning("Reconnect attempt %d/%d failed: %v", attempt, c.maxAttempts, err)
			c.setState(StateClosedRetrying)
			continue
		}

		c.connMu.Lock()
		c.conn = conn
		c.connMu.Unlock()

		c.setState(StateOpen)
		c.Logger.Info("Reconnected to trading backend")

		go c.readLoop(conn, stopCh)
		return
	}

	c.Logger.Error("Trading backend unreachable after %d attempts", c.maxAttempts)
	c.setState(StateClosedExhausted)
}
