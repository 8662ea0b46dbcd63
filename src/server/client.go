package server

import (
	"sync/atomic"
	"time"

	"crypto-analytics/src/interfaces"
	"crypto-analytics/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is the WebSocket-backed subscriber handle. Its uuid is the stable
// identity the hub keys on.
type Client struct {
	id     string
	server *Server
	conn   *websocket.Conn
	send   chan models.MOutboundFrame
	done   chan struct{}
	closed atomic.Bool
}

var _ interfaces.ISubscriber = (*Client)(nil)

// -----------------------------------------------------------------------------

func (c *Client) ID() string {
	return c.id
}

// -----------------------------------------------------------------------------

// Send queues a frame without blocking. A full buffer means the client is
// too slow to keep up and counts as a delivery failure, same as a closed
// transport; the hub reacts by disconnecting it.
func (c *Client) Send(frame models.MOutboundFrame) error {
	if c.closed.Load() {
		return interfaces.ErrDelivery
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return interfaces.ErrDelivery
	}
}

// -----------------------------------------------------------------------------

// Close tears down the connection. Idempotent.
func (c *Client) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.done)
		c.conn.Close()
	}
}

// -----------------------------------------------------------------------------
// readPump - handles incoming subscribe/unsubscribe commands
// Acts as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.server.Hub.Disconnect(c)
		c.server.Logger.Info("Client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.Logger.Info("WebSocket error for %s: %v", c.id, err)
			}
			break
		}
		c.server.handleClientCommand(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends frames to the client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.server.Logger.Debug("Write error for %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
