package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type rawMessage struct {
	Op   OpCode          `json:"op"`
	Type string          `json:"t"`
	Seq  int64           `json:"s"`
	Data json.RawMessage `json:"d"`
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Shutdown)
	return hub
}

func boardServer(t *testing.T, hub *Hub, userID int64) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade() error = %v", err)
			return
		}
		if err := hub.Serve(conn, userID); err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialBoard(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) rawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg rawMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

// readDispatch skips viewer count updates.
func readDispatch(t *testing.T, conn *websocket.Conn) rawMessage {
	t.Helper()
	for {
		msg := readMessage(t, conn)
		if msg.Op == OpDispatch && msg.Type == EventViewersUpdate {
			continue
		}
		return msg
	}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServeSendsHelloFirst(t *testing.T) {
	hub := startHub(t)
	srv := boardServer(t, hub, 42)
	conn := dialBoard(t, srv)

	msg := readMessage(t, conn)
	if msg.Op != OpHello {
		t.Fatalf("first op = %d, want %d", msg.Op, OpHello)
	}
	var hello HelloPayload
	if err := json.Unmarshal(msg.Data, &hello); err != nil {
		t.Fatalf("Unmarshal(hello) error = %v", err)
	}
	if hello.UserID != 42 {
		t.Fatalf("hello.UserID = %d, want 42", hello.UserID)
	}
	if hello.ProtocolVersion != ProtocolVersion {
		t.Fatalf("hello.ProtocolVersion = %d, want %d", hello.ProtocolVersion, ProtocolVersion)
	}
	if hello.ConnectionID == "" {
		t.Fatal("hello.ConnectionID is empty")
	}
}

func TestPublishReachesEveryViewerInOrder(t *testing.T) {
	hub := startHub(t)
	srv := boardServer(t, hub, 1)
	first := dialBoard(t, srv)
	second := dialBoard(t, srv)
	readMessage(t, first)
	readMessage(t, second)
	waitForClients(t, hub, 2)

	hub.Publish("IDEA_CREATED", map[string]int64{"id": 7})
	hub.Publish("IDEA_VOTED", map[string]int64{"id": 7, "votes": 1})

	for _, conn := range []*websocket.Conn{first, second} {
		created := readDispatch(t, conn)
		voted := readDispatch(t, conn)
		if created.Type != "IDEA_CREATED" || voted.Type != "IDEA_VOTED" {
			t.Fatalf("types = %q, %q; want IDEA_CREATED, IDEA_VOTED", created.Type, voted.Type)
		}
		if voted.Seq <= created.Seq {
			t.Fatalf("sequence not increasing: %d then %d", created.Seq, voted.Seq)
		}
	}
}

func TestUnregisterOnDisconnect(t *testing.T) {
	hub := startHub(t)
	srv := boardServer(t, hub, 1)
	conn := dialBoard(t, srv)
	readMessage(t, conn)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestPublishDoesNotBlockWithoutRunningHub(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish("IDEA_VOTED", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish() blocked with a full broadcast buffer")
	}
}

func TestRegisterAfterShutdown(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Shutdown()
	<-hub.stopped

	client := NewClient(hub, nil, 1)
	if err := hub.Register(client); err != ErrHubClosed {
		t.Fatalf("Register() error = %v, want %v", err, ErrHubClosed)
	}
}

func TestSlowClientDroppedAndDisconnected(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, nil, 9)
	for i := 0; i < cap(client.send); i++ {
		client.send <- &WSMessage{}
	}

	hub.mu.RLock()
	for i := 0; i < maxDroppedMessagesBeforeDisconnect; i++ {
		hub.sendToClientLocked(client, &WSMessage{Op: OpDispatch})
	}
	hub.mu.RUnlock()

	if client.DroppedMessages != maxDroppedMessagesBeforeDisconnect {
		t.Fatalf("DroppedMessages = %d, want %d", client.DroppedMessages, maxDroppedMessagesBeforeDisconnect)
	}
	if !client.IsClosed() {
		t.Fatal("slow client was not closed")
	}
}
