package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ideias/internal/models"
)

type SessionRepository struct {
	q querier
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{q: db}
}

func (r *SessionRepository) WithTx(tx *sql.Tx) *SessionRepository {
	return &SessionRepository{q: tx}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, email, name, register, user_agent, ip, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Email, s.Name, s.Register, s.UserAgent, s.IP, s.CreatedAt, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Find(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	var userAgent, ip sql.NullString

	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, email, name, register, user_agent, ip, created_at, expires_at FROM sessions WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.UserID, &s.Email, &s.Name, &s.Register, &userAgent, &ip, &s.CreatedAt, &s.ExpiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	s.UserAgent = userAgent.String
	s.IP = ip.String

	return &s, nil
}

func (r *SessionRepository) UpdateRegister(ctx context.Context, id, register string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE sessions SET register = ? WHERE id = ?`, register, id)
	if err != nil {
		return fmt.Errorf("updating session register: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting user sessions: %w", err)
	}
	return result.RowsAffected()
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	return result.RowsAffected()
}
