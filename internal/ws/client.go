package ws

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ideias/internal/constants"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 15 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = 10 * time.Second

	// The board feed is server -> client only; peers never need to send more than a close frame.
	maxMessageSize = 512
)

// Client represents a single board viewer connection
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan *WSMessage
	connCloseOnce sync.Once
	sendCloseOnce sync.Once
	closed        atomic.Bool

	id     string
	userID int64

	// DroppedMessages tracks how many messages have been dropped due to full buffer
	DroppedMessages int64
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan *WSMessage, constants.WSClientSendBufferSize),
		id:     uuid.NewString(),
		userID: userID,
	}
}

func (c *Client) ID() string { return c.id }

// Close shuts the connection down; the pumps notice and unregister.
func (c *Client) Close() {
	c.closed.Store(true)
	c.connCloseOnce.Do(func() {
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// CloseSend closes the outbound channel. Only the hub calls it.
func (c *Client) CloseSend() {
	c.sendCloseOnce.Do(func() { close(c.send) })
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.removeClient(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Inbound frames carry nothing; reading keeps control frames flowing.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("board websocket error", "component", "ws", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if c.IsClosed() {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				slog.Debug("board write failed", "component", "ws", "user_id", c.userID, "error", err)
				return
			}

		case <-ticker.C:
			if c.IsClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
