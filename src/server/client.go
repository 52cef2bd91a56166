package server

import (
	"time"

	"trade-deck/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// WebSocket Client Connection
// -----------------------------------------------------------------------------

const (
	// Time allowed to write a message to the peer
	clientWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	clientMaxMessageSize = 512
)

// Client is a middleman between the websocket connection and the Hub
type Client struct {
	hub  *DashboardServer
	conn *websocket.Conn

	// Buffered channel of outbound state updates
	send chan *models.MDashboardState
}

// -----------------------------------------------------------------------------

// readPump pumps messages from the websocket connection to the Hub.
// One goroutine per connection; all reads happen here.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(clientMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Debug("websocket read error: %v", err)
			}
			break
		}
		c.hub.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------

// writePump pumps state updates from the Hub to the websocket connection.
// One goroutine per connection; all writes happen here.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case state, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
			if !ok {
				// The Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(state); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
