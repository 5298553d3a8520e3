package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ideias/internal/models"
)

// TokenRetention is how long a user's latest token outlives its expiry, so a
// replayed or late link still reports token_usado or token_expirado.
const TokenRetention = 30 * 24 * time.Hour

// TokenRepository stores single-use tokens of one kind. Each kind has its own table.
type TokenRepository struct {
	q     querier
	kind  models.TokenKind
	table string
}

func NewTokenRepository(db *DB, kind models.TokenKind) *TokenRepository {
	return &TokenRepository{q: db, kind: kind, table: tokenTable(kind)}
}

func (r *TokenRepository) WithTx(tx *sql.Tx) *TokenRepository {
	return &TokenRepository{q: tx, kind: r.kind, table: r.table}
}

func (r *TokenRepository) Kind() models.TokenKind {
	return r.kind
}

func tokenTable(kind models.TokenKind) string {
	switch kind {
	case models.TokenEmailVerification:
		return "email_verifications"
	case models.TokenPasswordReset:
		return "password_resets"
	default:
		panic(fmt.Sprintf("unknown token kind %q", kind))
	}
}

func (r *TokenRepository) Create(ctx context.Context, userID int64, tokenHash string, expiresAt, now time.Time) (*models.Token, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO `+r.table+` (user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		userID, tokenHash, expiresAt.UTC(), now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s token: %w", r.kind, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading token id: %w", err)
	}

	return &models.Token{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
	}, nil
}

// DeleteUnusedForUser removes every unconsumed token the user still holds.
func (r *TokenRepository) DeleteUnusedForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM `+r.table+` WHERE user_id = ? AND used_at IS NULL`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting unused %s tokens: %w", r.kind, err)
	}
	return result.RowsAffected()
}

// FindLatestForUser returns the most recently issued token, consumed or not.
func (r *TokenRepository) FindLatestForUser(ctx context.Context, userID int64) (*models.Token, error) {
	var t models.Token
	var usedAt sql.NullTime

	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, used_at, created_at FROM `+r.table+` WHERE user_id = ? ORDER BY id DESC LIMIT 1`,
		userID,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &usedAt, &t.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s token: %w", r.kind, err)
	}

	t.UsedAt = nullTimeToPtr(usedAt)

	return &t, nil
}

// MarkUsedIfUnused atomically marks a token as used only if it hasn't been used yet.
func (r *TokenRepository) MarkUsedIfUnused(ctx context.Context, id int64, now time.Time) (bool, error) {
	result, err := r.q.ExecContext(ctx,
		`UPDATE `+r.table+` SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		now, id,
	)
	if err != nil {
		return false, fmt.Errorf("marking token used: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}

	return rows > 0, nil
}

// DeleteExpired purges expired tokens that a newer token has superseded. The
// latest token per user is kept until TokenRetention has passed its expiry.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM `+r.table+` WHERE expires_at < ? AND (
			expires_at < ? OR
			id < (SELECT MAX(l.id) FROM `+r.table+` AS l WHERE l.user_id = `+r.table+`.user_id)
		)`,
		now.UTC(), now.UTC().Add(-TokenRetention),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting expired %s tokens: %w", r.kind, err)
	}

	return result.RowsAffected()
}
