package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ideias/internal/models"
)

type UserRepository struct {
	q querier
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{q: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *UserRepository) WithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

const userColumns = `id, email, COALESCE(name, ''), password_hash, email_verified, COALESCE(register, ''), photo_path, created_at, updated_at`

// Create inserts a user. Emails are stored lowercased; a taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, email, name string, passwordHash *string, verified bool, now time.Time) (*models.User, error) {
	email = NormalizeEmail(email)

	result, err := r.q.ExecContext(ctx,
		`INSERT INTO users (email, name, password_hash, email_verified, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		email, name, passwordHash, verified, now, now,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading user id: %w", err)
	}

	return &models.User{
		ID:            id,
		Email:         email,
		Name:          name,
		PasswordHash:  passwordHash,
		EmailVerified: verified,
		CreatedAt:     now,
		UpdatedAt:     &now,
	}, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, NormalizeEmail(email))
}

func (r *UserRepository) FindByRegister(ctx context.Context, register string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE register = ? ORDER BY id LIMIT 1`, register)
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, id int64, now time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE users SET email_verified = 1, updated_at = ? WHERE id = ?`,
		now, id,
	)
	if err != nil {
		return fmt.Errorf("marking email verified: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string, now time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *UserRepository) UpdateRegister(ctx context.Context, id int64, register string, now time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE users SET register = ?, updated_at = ? WHERE id = ?`,
		register, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating register: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *UserRepository) UpdatePhotoPath(ctx context.Context, id int64, path string, now time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE users SET photo_path = ?, updated_at = ? WHERE id = ?`,
		path, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating photo: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	var passwordHash, photoPath sql.NullString
	var updatedAt sql.NullTime

	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&passwordHash,
		&u.EmailVerified,
		&u.Register,
		&photoPath,
		&u.CreatedAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.PasswordHash = nullStringToPtr(passwordHash)
	u.PhotoPath = nullStringToPtr(photoPath)
	u.UpdatedAt = nullTimeToPtr(updatedAt)

	return &u, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}
