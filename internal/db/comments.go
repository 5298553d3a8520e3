package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ideias/internal/models"
)

type CommentRepository struct {
	q querier
}

func NewCommentRepository(db *DB) *CommentRepository {
	return &CommentRepository{q: db}
}

func (r *CommentRepository) Create(ctx context.Context, ideaID, userID int64, text string, parentID *int64, now time.Time) (*models.Comment, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO idea_comments (idea_id, user_id, text, parent_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		ideaID, userID, text, parentID, now,
	)
	if err != nil {
		if IsForeignKeyError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading comment id: %w", err)
	}

	return &models.Comment{
		ID:        id,
		IdeaID:    ideaID,
		UserID:    userID,
		Text:      text,
		ParentID:  parentID,
		CreatedAt: now,
	}, nil
}

func (r *CommentRepository) FindByID(ctx context.Context, id int64) (*models.Comment, error) {
	var c models.Comment
	var parentID sql.NullInt64

	err := r.q.QueryRowContext(ctx,
		`SELECT id, idea_id, user_id, text, parent_id, created_at FROM idea_comments WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.IdeaID, &c.UserID, &c.Text, &parentID, &c.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying comment: %w", err)
	}

	c.ParentID = nullInt64ToPtr(parentID)

	return &c, nil
}

// ListForIdea returns the flat comment list, oldest first.
func (r *CommentRepository) ListForIdea(ctx context.Context, ideaID int64) ([]*models.Comment, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT c.id, c.idea_id, c.user_id, u.name, c.text, c.parent_id, c.created_at
		   FROM idea_comments c
		   LEFT JOIN users u ON u.id = c.user_id
		  WHERE c.idea_id = ?
		  ORDER BY c.created_at ASC, c.id ASC`,
		ideaID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		var c models.Comment
		var userName sql.NullString
		var parentID sql.NullInt64

		if err := rows.Scan(&c.ID, &c.IdeaID, &c.UserID, &userName, &c.Text, &parentID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}

		c.UserName = nullStringToPtr(userName)
		c.ParentID = nullInt64ToPtr(parentID)
		comments = append(comments, &c)
	}

	return comments, rows.Err()
}
