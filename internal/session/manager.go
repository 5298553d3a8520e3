// Package session issues cookie-bound server-side sessions and carries the
// loaded session through the request context.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ideias/internal/auth"
	"ideias/internal/models"
)

type Options struct {
	CookieName   string
	CookieSecure bool
	TTL          time.Duration
}

type Manager struct {
	store Store
	opts  Options
	now   func() time.Time
}

func NewManager(store Store, opts Options) *Manager {
	return &Manager{
		store: store,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *Manager) CookieName() string {
	return m.opts.CookieName
}

// Start creates a session for user. The returned session carries the raw
// cookie token in Token; the store only sees its hash.
func (m *Manager) Start(ctx context.Context, user *models.User, client models.ClientInfo) (*models.Session, error) {
	token, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := m.now()
	sess := &models.Session{
		ID:        auth.HashToken(token),
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Register:  user.Register,
		UserAgent: client.UserAgent,
		IP:        client.IP,
		CreatedAt: now,
		ExpiresAt: now.Add(m.opts.TTL),
	}

	if err := m.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	return sess, nil
}

// Load resolves a cookie token. Unknown or expired tokens yield ErrNotFound.
func (m *Manager) Load(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	sess, err := m.store.Find(ctx, auth.HashToken(token))
	if err != nil {
		return nil, err
	}

	if sess.ExpiredAt(m.now()) {
		if err := m.store.Delete(ctx, sess.ID); err != nil {
			return nil, fmt.Errorf("deleting expired session: %w", err)
		}
		return nil, ErrNotFound
	}

	return sess, nil
}

func (m *Manager) Destroy(ctx context.Context, sess *models.Session) error {
	if sess == nil {
		return nil
	}
	return m.store.Delete(ctx, sess.ID)
}

func (m *Manager) DestroyAllForUser(ctx context.Context, userID int64) error {
	return m.store.DeleteAllForUser(ctx, userID)
}

// SetRegister records the user's register code on the live session.
func (m *Manager) SetRegister(ctx context.Context, sess *models.Session, register string) error {
	if err := m.store.UpdateRegister(ctx, sess.ID, register); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("updating session: %w", err)
	}
	sess.Register = register
	return nil
}

// FromRequest loads the session named by the request cookie, if any.
func (m *Manager) FromRequest(r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil {
		return nil, ErrNotFound
	}
	return m.Load(r.Context(), cookie.Value)
}

func (m *Manager) SetCookie(w http.ResponseWriter, sess *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(sess.ExpiresAt.Sub(m.now()).Seconds()),
		HttpOnly: true,
		Secure:   m.opts.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
