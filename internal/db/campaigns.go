package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ideias/internal/models"
)

type CampaignRepository struct {
	q querier
}

func NewCampaignRepository(db *DB) *CampaignRepository {
	return &CampaignRepository{q: db}
}

func (r *CampaignRepository) Create(ctx context.Context, title string, description, deadline *string, now time.Time) (*models.Campaign, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO campaigns (title, description, deadline, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		title, description, deadline, models.CampaignActive, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating campaign: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading campaign id: %w", err)
	}

	return &models.Campaign{
		ID:          id,
		Title:       title,
		Description: description,
		Deadline:    deadline,
		Status:      models.CampaignActive,
		CreatedAt:   now,
	}, nil
}

func (r *CampaignRepository) FindByID(ctx context.Context, id int64) (*models.Campaign, error) {
	var c models.Campaign
	var description, deadline sql.NullString

	err := r.q.QueryRowContext(ctx,
		`SELECT id, title, description, deadline, status, created_at FROM campaigns WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Title, &description, &deadline, &c.Status, &c.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying campaign: %w", err)
	}

	c.Description = nullStringToPtr(description)
	c.Deadline = nullStringToPtr(deadline)

	return &c, nil
}

// FindAll lists campaigns, newest first.
func (r *CampaignRepository) FindAll(ctx context.Context) ([]*models.Campaign, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, title, description, deadline, status, created_at FROM campaigns ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*models.Campaign{}
	for rows.Next() {
		var c models.Campaign
		var description, deadline sql.NullString

		if err := rows.Scan(&c.ID, &c.Title, &description, &deadline, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning campaign: %w", err)
		}

		c.Description = nullStringToPtr(description)
		c.Deadline = nullStringToPtr(deadline)
		campaigns = append(campaigns, &c)
	}

	return campaigns, rows.Err()
}
