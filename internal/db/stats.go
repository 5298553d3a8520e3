package db

import (
	"context"
	"fmt"
	"math"
	"time"

	"ideias/internal/models"
)

const leaderboardLimit = 10

type StatsRepository struct {
	q querier
}

func NewStatsRepository(db *DB) *StatsRepository {
	return &StatsRepository{q: db}
}

// Leaderboard ranks users by votes received on their ideas, then by ideas submitted.
func (r *StatsRepository) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT u.id, COALESCE(NULLIF(u.name, ''), u.email) AS name,
		        (SELECT COUNT(*) FROM ideas i WHERE i.author_id = u.id) AS ideas_count,
		        (SELECT COUNT(*) FROM idea_votes v JOIN ideas i2 ON i2.id = v.idea_id WHERE i2.author_id = u.id) AS votes_received
		   FROM users u
		  ORDER BY votes_received DESC, ideas_count DESC, u.id ASC
		  LIMIT ?`,
		leaderboardLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	leaders := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.IdeasCount, &e.VotesReceived); err != nil {
			return nil, fmt.Errorf("scanning leaderboard entry: %w", err)
		}
		leaders = append(leaders, e)
	}

	return leaders, rows.Err()
}

// Dashboard aggregates the KPIs and chart series. Evolution covers the days since `since`.
func (r *StatsRepository) Dashboard(ctx context.Context, since time.Time) (*models.Dashboard, error) {
	var d models.Dashboard
	var approved int

	err := r.q.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM ideas),
		        (SELECT COUNT(*) FROM idea_votes),
		        (SELECT COUNT(*) FROM ideas WHERE status = ?)`,
		models.StatusApproved,
	).Scan(&d.KPIs.TotalIdeas, &d.KPIs.TotalVotes, &approved)
	if err != nil {
		return nil, fmt.Errorf("querying dashboard totals: %w", err)
	}
	d.KPIs.ApprovalRate = approvalRate(approved, d.KPIs.TotalIdeas)

	if d.Charts.ByStatus, err = r.byStatus(ctx); err != nil {
		return nil, err
	}
	if d.Charts.ByCampaign, err = r.byCampaign(ctx); err != nil {
		return nil, err
	}
	if d.Charts.Evolution, err = r.evolution(ctx, since); err != nil {
		return nil, err
	}

	return &d, nil
}

func approvalRate(approved, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(approved) / float64(total) * 100))
}

func (r *StatsRepository) byStatus(ctx context.Context) ([]models.StatusCount, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT status, COUNT(*) FROM ideas GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("querying ideas by status: %w", err)
	}
	defer rows.Close()

	out := []models.StatusCount{}
	for rows.Next() {
		var sc models.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (r *StatsRepository) byCampaign(ctx context.Context) ([]models.CampaignCount, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT c.title, COUNT(i.id)
		   FROM campaigns c
		   LEFT JOIN ideas i ON i.campaign_id = c.id
		  GROUP BY c.id, c.title
		  ORDER BY c.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying ideas by campaign: %w", err)
	}
	defer rows.Close()

	out := []models.CampaignCount{}
	for rows.Next() {
		var cc models.CampaignCount
		if err := rows.Scan(&cc.Title, &cc.Count); err != nil {
			return nil, fmt.Errorf("scanning campaign count: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

func (r *StatsRepository) evolution(ctx context.Context, since time.Time) ([]models.DayCount, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT date(created_at) AS day, COUNT(*)
		   FROM ideas
		  WHERE date(created_at) >= ?
		  GROUP BY day
		  ORDER BY day ASC`,
		since.UTC().Format(time.DateOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("querying idea evolution: %w", err)
	}
	defer rows.Close()

	out := []models.DayCount{}
	for rows.Next() {
		var dc models.DayCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("scanning day count: %w", err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}
