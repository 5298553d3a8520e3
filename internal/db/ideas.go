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

type IdeaRepository struct {
	q querier
}

func NewIdeaRepository(db *DB) *IdeaRepository {
	return &IdeaRepository{q: db}
}

func (r *IdeaRepository) WithTx(tx *sql.Tx) *IdeaRepository {
	return &IdeaRepository{q: tx}
}

const ideaSelect = `SELECT i.id, i.title, i.description, i.campaign_id, c.title, i.author_id, u.name, i.status,
       i.score_ai, i.compat_ai,
       (SELECT COUNT(*) FROM idea_votes v WHERE v.idea_id = i.id) AS votes,
       i.created_at, i.updated_at
  FROM ideas i
  LEFT JOIN campaigns c ON c.id = i.campaign_id
  LEFT JOIN users u ON u.id = i.author_id`

type NewIdea struct {
	Title       string
	Description string
	CampaignID  *int64
	AuthorID    int64
	Status      models.IdeaStatus
	ScoreAI     int
	CompatAI    int
	CreatedAt   time.Time
}

func (r *IdeaRepository) Create(ctx context.Context, n NewIdea) (int64, error) {
	status := n.Status
	if status == "" {
		status = models.StatusDrafting
	}

	result, err := r.q.ExecContext(ctx,
		`INSERT INTO ideas (title, description, campaign_id, author_id, status, score_ai, compat_ai, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Title, n.Description, n.CampaignID, n.AuthorID, status, n.ScoreAI, n.CompatAI, n.CreatedAt, n.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyError(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("creating idea: %w", err)
	}

	return result.LastInsertId()
}

func (r *IdeaRepository) FindByID(ctx context.Context, id int64) (*models.Idea, error) {
	idea, err := scanIdea(r.q.QueryRowContext(ctx, ideaSelect+` WHERE i.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying idea: %w", err)
	}
	return idea, nil
}

func (r *IdeaRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx, `SELECT 1 FROM ideas WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking idea: %w", err)
	}
	return true, nil
}

// FindAll lists ideas newest first. Empty filter fields are ignored.
func (r *IdeaRepository) FindAll(ctx context.Context, f models.IdeaFilter) ([]*models.Idea, error) {
	var where []string
	var args []any

	if f.CampaignID != nil {
		where = append(where, "i.campaign_id = ?")
		args = append(args, *f.CampaignID)
	}
	if f.Status != "" {
		where = append(where, "i.status = ?")
		args = append(args, f.Status)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		where = append(where, `(i.title LIKE ? ESCAPE '\' OR i.description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	query := ideaSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.created_at DESC, i.id DESC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ideas: %w", err)
	}
	defer rows.Close()

	ideas := []*models.Idea{}
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning idea: %w", err)
		}
		ideas = append(ideas, idea)
	}

	return ideas, rows.Err()
}

func (r *IdeaRepository) UpdateStatus(ctx context.Context, id int64, status models.IdeaStatus, now time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE ideas SET status = ?, updated_at = ? WHERE id = ?`,
		status, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating idea status: %w", err)
	}
	return checkRowsAffected(result)
}

// Update changes the title and/or description. Nil fields are left untouched.
func (r *IdeaRepository) Update(ctx context.Context, id int64, title, description *string, now time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE ideas SET title = COALESCE(?, title), description = COALESCE(?, description), updated_at = ? WHERE id = ?`,
		title, description, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating idea: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *IdeaRepository) CountByAuthor(ctx context.Context, authorID int64) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM ideas WHERE author_id = ?`, authorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting ideas: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdea(row rowScanner) (*models.Idea, error) {
	var idea models.Idea
	var campaignID, authorID, scoreAI, compatAI sql.NullInt64
	var campaign, authorName sql.NullString

	err := row.Scan(
		&idea.ID,
		&idea.Title,
		&idea.Description,
		&campaignID,
		&campaign,
		&authorID,
		&authorName,
		&idea.Status,
		&scoreAI,
		&compatAI,
		&idea.Votes,
		&idea.CreatedAt,
		&idea.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	idea.CampaignID = nullInt64ToPtr(campaignID)
	idea.Campaign = nullStringToPtr(campaign)
	idea.AuthorID = nullInt64ToPtr(authorID)
	idea.AuthorName = nullStringToPtr(authorName)
	idea.ScoreAI = nullIntToPtr(scoreAI)
	idea.CompatAI = nullIntToPtr(compatAI)

	return &idea, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
