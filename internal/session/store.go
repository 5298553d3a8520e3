package session

import (
	"context"
	"errors"

	"ideias/internal/db"
	"ideias/internal/models"
)

var ErrNotFound = errors.New("session not found")

// Store persists sessions keyed by the hash of their cookie token.
type Store interface {
	Create(ctx context.Context, s *models.Session) error
	Find(ctx context.Context, id string) (*models.Session, error)
	UpdateRegister(ctx context.Context, id, register string) error
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID int64) error
}

// SQLiteStore keeps sessions in the application database.
type SQLiteStore struct {
	repo *db.SessionRepository
}

func NewSQLiteStore(database *db.DB) *SQLiteStore {
	return &SQLiteStore{repo: db.NewSessionRepository(database)}
}

func (s *SQLiteStore) Create(ctx context.Context, sess *models.Session) error {
	return s.repo.Create(ctx, sess)
}

func (s *SQLiteStore) Find(ctx context.Context, id string) (*models.Session, error) {
	sess, err := s.repo.Find(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	return sess, err
}

func (s *SQLiteStore) UpdateRegister(ctx context.Context, id, register string) error {
	err := s.repo.UpdateRegister(ctx, id, register)
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *SQLiteStore) DeleteAllForUser(ctx context.Context, userID int64) error {
	_, err := s.repo.DeleteAllForUser(ctx, userID)
	return err
}
