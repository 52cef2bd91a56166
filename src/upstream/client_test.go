package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"trade-deck/src/logger"
	"trade-deck/src/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Test Fixtures
// -----------------------------------------------------------------------------

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newBackend spins up a websocket test server whose per-connection behavior
// is supplied by the caller.
func newBackend(t *testing.T, handle func(conn *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handle(conn)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL
}

// -----------------------------------------------------------------------------

func testClient(t *testing.T, wsURL string, timeoutSeconds int) *Client {
	t.Helper()

	cfg := &models.MConfig{}
	cfg.Upstream.WebsocketURL = wsURL
	cfg.Upstream.RequestTimeoutSeconds = timeoutSeconds
	cfg.Upstream.ReconnectBaseDelayMs = 10
	cfg.Upstream.ReconnectMaxAttempts = 3

	c := NewClient(cfg, logger.NewLogger("ERROR", "test"))
	t.Cleanup(c.Close)
	return c
}

// -----------------------------------------------------------------------------

// echoRequest reads one request off the connection and returns its fields.
func readRequest(conn *websocket.Conn) (map[string]interface{}, error) {
	var req map[string]interface{}
	if err := conn.ReadJSON(&req); err != nil {
		return nil, err
	}
	return req, nil
}

// -----------------------------------------------------------------------------
// Correlation
// -----------------------------------------------------------------------------

func TestClient_CorrelatesResponseByMessageID(t *testing.T) {
	_, wsURL := newBackend(t, func(conn *websocket.Conn) {
		defer conn.Close()
		req, err := readRequest(conn)
		if err != nil {
			return
		}
		conn.WriteJSON(map[string]interface{}{
			"type":      "positions",
			"messageId": req["messageId"],
			"data":      []map[string]interface{}{{"symbol": "BTC-USDT", "amount": 1.0}},
		})
	})

	c := testClient(t, wsURL, 5)
	require.NoError(t, c.Connect())
	assert.Equal(t, StateOpen, c.State())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := c.Do(ctx, "get_positions", nil)
	require.NoError(t, err)

	var positions []models.MPosition
	require.NoError(t, json.Unmarshal(data, &positions))
	require.Len(t, positions, 1)
	assert.Equal(t, "BTC-USDT", positions[0].Symbol)

	assert.Equal(t, 0, c.PendingCount())
}

// -----------------------------------------------------------------------------

func TestClient_ServerErrorRejectsRequest(t *testing.T) {
	_, wsURL := newBackend(t, func(conn *websocket.Conn) {
		defer conn.Close()
		req, err := readRequest(conn)
		if err != nil {
			return
		}
		conn.WriteJSON(map[string]interface{}{
			"type":      "error",
			"messageId": req["messageId"],
			"data":      map[string]string{"message": "no session"},
		})
	})

	c := testClient(t, wsURL, 5)
	require.NoError(t, c.Connect())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Do(ctx, "start_bot", map[string]interface{}{"symbol": "BTC-USDT"})
	require.Error(t, err)

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "no session", serverErr.Message)

	assert.Equal(t, 0, c.PendingCount())
}

// -----------------------------------------------------------------------------

func TestClient_MatchesUntaggedResponseByType(t *testing.T) {
	_, wsURL := newBackend(t, func(conn *websocket.Conn) {
		defer conn.Close()
		if _, err := readRequest(conn); err != nil {
			return
		}
		// Response without a correlation id, matched by expected type
		conn.WriteJSON(map[string]interface{}{
			"type": "logs",
			"data": []string{"line one", "line two"},
		})
	})

	c := testClient(t, wsURL, 5)
	require.NoError(t, c.Connect())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := c.Do(ctx, "get_logs", nil)
	require.NoError(t, err)

	var lines []string
	require.NoError(t, json.Unmarshal(data, &lines))
	assert.Equal(t, []string{"line one", "line two"}, lines)
}

// -----------------------------------------------------------------------------
// Connection Loss
// -----------------------------------------------------------------------------

func TestClient_ConnectionDropFailsAllPending(t *testing.T) {
	received := make(chan struct{})
	var connCount int32

	_, wsURL := newBackend(t, func(conn *websocket.Conn) {
		defer conn.Close()
		if atomic.AddInt32(&connCount, 1) > 1 {
			// Reconnect attempts after the deliberate drop: just idle
			for {
				if _, err := readRequest(conn); err != nil {
					return
				}
			}
		}
		// Swallow two requests, then drop the connection without replying
		readRequest(conn)
		readRequest(conn)
		close(received)
	})

	c := testClient(t, wsURL, 30)
	require.NoError(t, c.Connect())

	first := c.Send("get_positions", nil)
	second := c.Send("get_trading_history", map[string]interface{}{"limit": 10})

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("backend never received the requests")
	}

	for _, ch := range []<-chan Result{first, second} {
		select {
		case res := <-ch:
			assert.ErrorIs(t, res.Err, ErrConnectionLost)
		case <-time.After(2 * time.Second):
			t.Fatal("pending request was never rejected")
		}
	}

	assert.Equal(t, 0, c.PendingCount())
}

// -----------------------------------------------------------------------------

func TestClient_SendWhileDisconnected(t *testing.T) {
	c := testClient(t, "ws://127.0.0.1:1/ws", 5)

	res := <-c.Send("get_positions", nil)
	assert.ErrorIs(t, res.Err, ErrNotConnected)
}

// -----------------------------------------------------------------------------

func TestClient_RequestTimeout(t *testing.T) {
	_, wsURL := newBackend(t, func(conn *websocket.Conn) {
		defer conn.Close()
		// Read requests but never answer
		for {
			if _, err := readRequest(conn); err != nil {
				return
			}
		}
	})

	c := testClient(t, wsURL, 1)
	require.NoError(t, c.Connect())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.Do(ctx, "get_positions", nil)
	assert.ErrorIs(t, err, ErrRequestTimeout)
	assert.Equal(t, 0, c.PendingCount())
}

// -----------------------------------------------------------------------------

func TestClient_ContextCancellationDeregisters(t *testing.T) {
	_, wsURL := newBackend(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, err := readRequest(conn); err != nil {
				return
			}
		}
	})

	c := testClient(t, wsURL, 30)
	require.NoError(t, c.Connect())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Do(ctx, "get_positions", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, c.PendingCount())
}

// -----------------------------------------------------------------------------
// Push Events
// -----------------------------------------------------------------------------

func TestClient_UncorrelatedEventsReachListeners(t *testing.T) {
	_, wsURL := newBackend(t, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteJSON(map[string]interface{}{
			"type": "price_update",
			"data": map[string]interface{}{"symbol": "BTC-USDT", "price": 50000.0},
		})
		for {
			if _, err := readRequest(conn); err != nil {
				return
			}
		}
	})

	c := testClient(t, wsURL, 5)

	events := make(chan models.MUpstreamEvent, 1)
	id := c.AddListener(func(event models.MUpstreamEvent) {
		select {
		case events <- event:
		default:
		}
	})
	defer c.RemoveListener(id)

	require.NoError(t, c.Connect())

	select {
	case event := <-events:
		assert.Equal(t, "price_update", event.Type)

		var point models.MPricePoint
		require.NoError(t, json.Unmarshal(event.Data, &point))
		assert.Equal(t, "BTC-USDT", point.Symbol)
		assert.InDelta(t, 50000.0, point.Price, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("listener never received the push event")
	}
}

// -----------------------------------------------------------------------------
// Reconnect
// -----------------------------------------------------------------------------

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	var connCount int32

	_, wsURL := newBackend(t, func(conn *websocket.Conn) {
		n := atomic.AddInt32(&connCount, 1)
		if n == 1 {
			// First connection dies immediately
			conn.Close()
			return
		}
		// Second connection stays up and answers requests
		for {
			req, err := readRequest(conn)
			if err != nil {
				return
			}
			conn.WriteJSON(map[string]interface{}{
				"type":      "bot_stopped",
				"messageId": req["messageId"],
				"data":      map[string]interface{}{"running": false},
			})
		}
	})

	c := testClient(t, wsURL, 5)
	require.NoError(t, c.Connect())

	// Wait for the retry loop to land on the second connection
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == StateOpen && atomic.LoadInt32(&connCount) >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, StateOpen, c.State())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	status, err := c.StopBot(ctx)
	require.NoError(t, err)
	assert.False(t, status.Running)
}

// -----------------------------------------------------------------------------

func TestClient_ExhaustsRetriesWhenBackendStaysDown(t *testing.T) {
	srv, wsURL := newBackend(t, func(conn *websocket.Conn) {
		conn.Close()
	})

	c := testClient(t, wsURL, 5)
	require.NoError(t, c.Connect())

	// Take the backend away entirely so every retry fails
	srv.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == StateClosedExhausted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, StateClosedExhausted, c.State())
}
