package models

import "time"

// Session is the server-held state identifying an authenticated caller.
// ID is the SHA-256 of the cookie token; Token carries the raw cookie value
// only on the instance returned at creation.
type Session struct {
	ID        string    `json:"-"`
	Token     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Register  string    `json:"register,omitempty"`
	UserAgent string    `json:"-"`
	IP        string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ClientInfo describes the caller a session is issued to.
type ClientInfo struct {
	UserAgent string
	IP        string
}
