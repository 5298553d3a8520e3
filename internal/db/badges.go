package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ideias/internal/models"
)

type BadgeRepository struct {
	q querier
}

func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{q: db}
}

func (r *BadgeRepository) WithTx(tx *sql.Tx) *BadgeRepository {
	return &BadgeRepository{q: tx}
}

// Grant awards a badge once; granting it again is a no-op.
func (r *BadgeRepository) Grant(ctx context.Context, userID int64, code string, now time.Time) (bool, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_badges (user_id, badge_code, granted_at) VALUES (?, ?, ?)`,
		userID, code, now,
	)
	if err != nil {
		return false, fmt.Errorf("granting badge: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *BadgeRepository) ListForUser(ctx context.Context, userID int64) ([]*models.Badge, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT b.code, b.label, ub.granted_at
		   FROM user_badges ub
		   JOIN badges b ON b.code = ub.badge_code
		  WHERE ub.user_id = ?
		  ORDER BY ub.granted_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying badges: %w", err)
	}
	defer rows.Close()

	badges := []*models.Badge{}
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.Code, &b.Label, &b.GrantedAt); err != nil {
			return nil, fmt.Errorf("scanning badge: %w", err)
		}
		badges = append(badges, &b)
	}

	return badges, rows.Err()
}
