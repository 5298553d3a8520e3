package api

import (
	"errors"
	"log/slog"
	"net/http"

	"ideias/internal/session"
)

type SessionMiddleware struct {
	sessions *session.Manager
}

func NewSessionMiddleware(sessions *session.Manager) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions}
}

// Load attaches the caller's session to the request context when the cookie
// names a live session. Anonymous requests pass through untouched.
func (m *SessionMiddleware) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.sessions.FromRequest(r)
		switch {
		case err == nil:
			r = r.WithContext(session.NewContext(r.Context(), sess))
		case errors.Is(err, session.ErrNotFound):
		default:
			slog.Error("error loading session", "component", "api", "error", err)
		}
		next.ServeHTTP(w, r)
	})
}

func (m *SessionMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := session.UserID(r.Context()); !ok {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentUserID must only be used behind RequireAuth.
func currentUserID(r *http.Request) int64 {
	id, _ := session.UserID(r.Context())
	return id
}
