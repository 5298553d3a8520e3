package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ideias/internal/constants"
	"ideias/internal/ideas"
	"ideias/internal/ws"
)

type boardMessage struct {
	Op   ws.OpCode       `json:"op"`
	Type string          `json:"t"`
	Seq  int64           `json:"s"`
	Data json.RawMessage `json:"d"`
}

func dialBoardWithClient(t *testing.T, s *testServer, client *http.Client) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{Jar: client.Jar, HandshakeTimeout: 2 * time.Second}
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/v1/ws/board"
	conn, resp, err := dialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial board feed: %v (status %d)", err, status)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readBoardMessage(t *testing.T, conn *websocket.Conn) boardMessage {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg boardMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestBoardFeedRequiresSession(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, s.newClient(t), http.MethodGet, "/api/v1/ws/board", nil)
	expectError(t, status, body, http.StatusUnauthorized, constants.ErrCodeNotAuthenticated)
}

func TestBoardFeedDeliversIdeaEvents(t *testing.T) {
	s := newTestServer(t)
	client := s.newClient(t)
	userID := s.signupAndLogin(t, client, "lara@empresa.com")

	conn := dialBoardWithClient(t, s, client)

	hello := readBoardMessage(t, conn)
	if hello.Op != ws.OpHello {
		t.Fatalf("first op = %d, want HELLO", hello.Op)
	}
	var payload ws.HelloPayload
	if err := json.Unmarshal(hello.Data, &payload); err != nil {
		t.Fatalf("decoding hello: %v", err)
	}
	if payload.UserID != userID {
		t.Fatalf("hello user_id = %d, want %d", payload.UserID, userID)
	}

	status, body := s.do(t, client, http.MethodPost, "/api/v1/ideas", map[string]string{
		"title":       "Coleta seletiva",
		"description": "Instalar lixeiras de coleta seletiva em todos os andares do prédio.",
	})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body=%v", status, body)
	}

	for {
		msg := readBoardMessage(t, conn)
		if msg.Op != ws.OpDispatch || msg.Type == ws.EventViewersUpdate {
			continue
		}
		if msg.Type != ideas.EventIdeaCreated {
			t.Fatalf("event type = %q, want %q", msg.Type, ideas.EventIdeaCreated)
		}
		if msg.Seq <= payload.Sequence {
			t.Fatalf("event seq = %d, want > %d", msg.Seq, payload.Sequence)
		}
		return
	}
}

func TestBoardFeedRejectsForeignOrigin(t *testing.T) {
	h := NewBoardHandler(nil, []string{"https://ideias.example.com"})

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/ws/board", nil)
	req.Header.Set("Origin", "https://evil.com")
	if h.checkOrigin(req) {
		t.Fatal("expected foreign origin to be rejected")
	}

	req.Header.Set("Origin", "https://ideias.example.com")
	if !h.checkOrigin(req) {
		t.Fatal("expected configured origin to be accepted")
	}
}
