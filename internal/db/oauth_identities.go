package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ideias/internal/models"
)

type OAuthIdentityRepository struct {
	q querier
}

func NewOAuthIdentityRepository(db *DB) *OAuthIdentityRepository {
	return &OAuthIdentityRepository{q: db}
}

func (r *OAuthIdentityRepository) WithTx(tx *sql.Tx) *OAuthIdentityRepository {
	return &OAuthIdentityRepository{q: tx}
}

func (r *OAuthIdentityRepository) Create(ctx context.Context, userID int64, provider, providerUserID string, now time.Time) (*models.OAuthIdentity, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO oauth_identities (user_id, provider, provider_user_id, created_at) VALUES (?, ?, ?, ?)`,
		userID, provider, providerUserID, now,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating oauth identity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading oauth identity id: %w", err)
	}

	return &models.OAuthIdentity{
		ID:             id,
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
		CreatedAt:      now,
	}, nil
}

func (r *OAuthIdentityRepository) Find(ctx context.Context, provider, providerUserID string) (*models.OAuthIdentity, error) {
	var oi models.OAuthIdentity

	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, provider, provider_user_id, created_at FROM oauth_identities WHERE provider = ? AND provider_user_id = ?`,
		provider, providerUserID,
	).Scan(&oi.ID, &oi.UserID, &oi.Provider, &oi.ProviderUserID, &oi.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying oauth identity: %w", err)
	}

	return &oi, nil
}
