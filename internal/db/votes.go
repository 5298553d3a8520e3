package db

import (
	"context"
	"fmt"
	"time"
)

type VoteRepository struct {
	q querier
}

func NewVoteRepository(db *DB) *VoteRepository {
	return &VoteRepository{q: db}
}

// Create records an up-vote. A repeated vote by the same user is absorbed by
// the unique index and reported as inserted=false.
func (r *VoteRepository) Create(ctx context.Context, ideaID, userID int64, now time.Time) (bool, error) {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO idea_votes (idea_id, user_id, type, created_at) VALUES (?, ?, 'up', ?)`,
		ideaID, userID, now,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return false, nil
		}
		if IsForeignKeyError(err) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("creating vote: %w", err)
	}
	return true, nil
}

func (r *VoteRepository) CountForIdea(ctx context.Context, ideaID int64) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM idea_votes WHERE idea_id = ?`, ideaID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting votes: %w", err)
	}
	return count, nil
}
