package api

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"ideias/internal/ws"
)

type BoardHandler struct {
	hub            *ws.Hub
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

func NewBoardHandler(hub *ws.Hub, allowedOrigins []string) *BoardHandler {
	h := &BoardHandler{
		hub:            hub,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// GET /api/v1/ws/board
func (h *BoardHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("board websocket upgrade failed", "component", "api", "user_id", userID, "error", err)
		return
	}

	if err := h.hub.Serve(conn, userID); err != nil {
		slog.Error("error registering board client", "component", "api", "user_id", userID, "error", err)
	}
}

func (h *BoardHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return originAllowed(origin, h.allowedOrigins)
}

// originAllowed accepts loopback origins and configured ones. An entry ending
// in "*" matches by prefix.
func originAllowed(origin string, allowed []string) bool {
	if isLoopbackOrigin(origin) {
		return true
	}
	for _, a := range allowed {
		if originMatchesAllowed(origin, a) {
			return true
		}
	}
	return false
}

func originMatchesAllowed(origin, allowed string) bool {
	allowed = strings.TrimSpace(allowed)
	if allowed == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(allowed, "*"); ok {
		return strings.HasPrefix(origin, prefix)
	}
	return strings.EqualFold(origin, allowed)
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
