package models

import "time"

// TokenKind selects which single-use token table a token lives in.
type TokenKind string

const (
	TokenEmailVerification TokenKind = "email_verification"
	TokenPasswordReset     TokenKind = "password_reset"
)

// Token is a persisted single-use token. Only the hash of the raw value is stored.
type Token struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the token is past its expiry at now.
func (t *Token) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
