package ws

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"ideias/internal/constants"
)

const (
	// maxDroppedMessagesBeforeDisconnect is the threshold for disconnecting slow clients
	maxDroppedMessagesBeforeDisconnect = 100

	// Timeout for hub registration
	registerTimeout = 5 * time.Second
)

var (
	ErrHubClosed       = errors.New("board hub is shut down")
	ErrRegisterTimeout = errors.New("timed out registering board client")
)

// registerRequest is used for synchronous registration with a callback
type registerRequest struct {
	client *Client
	done   chan struct{}
}

// Hub fans idea events out to every connected board viewer.
type Hub struct {
	clients      map[*Client]bool
	broadcast    chan *WSMessage
	registerSync chan registerRequest
	unregister   chan *Client
	shutdown     chan struct{}
	shutdownOnce sync.Once
	stopped      chan struct{}

	seqMu    sync.Mutex
	sequence int64

	// delivered is the highest sequence handed to clients. Only Run touches it.
	delivered int64

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:      make(map[*Client]bool),
		broadcast:    make(chan *WSMessage, constants.WSBroadcastBufferSize),
		registerSync: make(chan registerRequest),
		unregister:   make(chan *Client),
		shutdown:     make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.stopped)
	for {
		select {
		case <-h.shutdown:
			h.mu.Lock()
			for client := range h.clients {
				client.CloseSend()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			slog.Info("shutdown complete", "component", "hub")
			return

		case req := <-h.registerSync:
			h.mu.Lock()
			h.clients[req.client] = true
			viewers := len(h.clients)
			// Queued ahead of any dispatch so the client can tell which events it missed.
			req.client.send <- &WSMessage{
				Op: OpHello,
				Data: HelloPayload{
					ProtocolVersion: ProtocolVersion,
					ConnectionID:    req.client.id,
					UserID:          req.client.userID,
					Sequence:        h.delivered,
				},
			}
			h.mu.Unlock()
			close(req.done)

			slog.Debug("board client registered", "component", "hub", "user_id", req.client.userID, "viewers", viewers)
			h.Publish(EventViewersUpdate, ViewersPayload{Viewers: viewers})

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				client.CloseSend()
			}
			viewers := len(h.clients)
			h.mu.Unlock()

			if ok {
				slog.Debug("board client left", "component", "hub", "user_id", client.userID, "viewers", viewers)
				h.Publish(EventViewersUpdate, ViewersPayload{Viewers: viewers})
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				h.sendToClientLocked(client, message)
			}
			h.mu.RUnlock()
			if message.Seq > h.delivered {
				h.delivered = message.Seq
			}
		}
	}
}

// Caller must hold at least a read lock on h.mu.
func (h *Hub) sendToClientLocked(client *Client, msg *WSMessage) {
	select {
	case client.send <- msg:
	default:
		dropped := atomic.AddInt64(&client.DroppedMessages, 1)

		// Log warning periodically (every 10 drops)
		if dropped%10 == 1 {
			slog.Warn("dropped messages for slow client", "component", "hub", "dropped", dropped, "user_id", client.userID)
		}

		if dropped >= maxDroppedMessagesBeforeDisconnect {
			slog.Warn("disconnecting slow client", "component", "hub", "user_id", client.userID, "dropped", dropped)
			// Close will be handled by the client's pumps
			client.Close()
		}
	}
}

func (h *Hub) nextSequence() int64 {
	h.seqMu.Lock()
	defer h.seqMu.Unlock()
	h.sequence++
	return h.sequence
}

// Publish queues a DISPATCH for all viewers. It never blocks: when the
// broadcast buffer is full the event is dropped and logged.
func (h *Hub) Publish(eventType string, payload any) {
	msg := &WSMessage{
		Op:   OpDispatch,
		Type: eventType,
		Seq:  h.nextSequence(),
		Data: payload,
	}
	select {
	case h.broadcast <- msg:
	default:
		slog.Warn("board broadcast buffer full, dropping event", "component", "hub", "type", eventType, "seq", msg.Seq)
	}
}

// Register adds a client to the hub and waits until its HELLO is queued.
func (h *Hub) Register(client *Client) error {
	req := registerRequest{client: client, done: make(chan struct{})}
	timer := time.NewTimer(registerTimeout)
	defer timer.Stop()

	select {
	case h.registerSync <- req:
	case <-h.shutdown:
		return ErrHubClosed
	case <-timer.C:
		return ErrRegisterTimeout
	}
	<-req.done
	return nil
}

// Serve registers a board viewer on an upgraded connection and runs its
// pumps. It returns once the pumps are started.
func (h *Hub) Serve(conn *websocket.Conn, userID int64) error {
	client := NewClient(h, conn, userID)
	if err := h.Register(client); err != nil {
		client.Close()
		return err
	}
	go client.WritePump()
	go client.ReadPump()
	return nil
}

func (h *Hub) removeClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

// ClientCount reports the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Shutdown() {
	h.shutdownOnce.Do(func() { close(h.shutdown) })
}
