// Package ideas implements the idea ledger: ideas, votes, comments,
// campaigns, badges and the aggregate views built on them.
package ideas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ideias/internal/apperr"
	"ideias/internal/db"
	"ideias/internal/models"
)

const dashboardWindowDays = 30

// Board events pushed to live Kanban clients.
const (
	EventIdeaCreated       = "IDEA_CREATED"
	EventIdeaVoted         = "IDEA_VOTED"
	EventIdeaStatusChanged = "IDEA_STATUS_CHANGED"
)

// Publisher fans board events out to subscribers. Publishing never blocks.
type Publisher interface {
	Publish(eventType string, payload any)
}

type Service struct {
	db        *db.DB
	ideas     *db.IdeaRepository
	votes     *db.VoteRepository
	comments  *db.CommentRepository
	campaigns *db.CampaignRepository
	badges    *db.BadgeRepository
	stats     *db.StatsRepository
	publisher Publisher
	now       func() time.Time
}

func NewService(database *db.DB, publisher Publisher) *Service {
	return &Service{
		db:        database,
		ideas:     db.NewIdeaRepository(database),
		votes:     db.NewVoteRepository(database),
		comments:  db.NewCommentRepository(database),
		campaigns: db.NewCampaignRepository(database),
		badges:    db.NewBadgeRepository(database),
		stats:     db.NewStatsRepository(database),
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type NewIdeaInput struct {
	Title       string
	Description string
	CampaignID  *int64
}

type CreatedIdea struct {
	ID       int64 `json:"id"`
	ScoreAI  int   `json:"score_ai"`
	CompatAI int   `json:"compat_ai"`
}

type IdeaDetail struct {
	Idea     *models.Idea      `json:"idea"`
	Comments []*models.Comment `json:"comments"`
}

type IdeaCreatedEvent struct {
	ID         int64             `json:"id"`
	Title      string            `json:"title"`
	Status     models.IdeaStatus `json:"status"`
	CampaignID *int64            `json:"campaign_id,omitempty"`
	AuthorID   int64             `json:"author_id"`
}

type IdeaVotedEvent struct {
	ID    int64 `json:"id"`
	Votes int   `json:"votes"`
}

type IdeaStatusChangedEvent struct {
	ID     int64             `json:"id"`
	Status models.IdeaStatus `json:"status"`
}

// CreateIdea stores a new idea with its heuristic rating and grants the
// first-idea badge when the author had none before.
func (s *Service) CreateIdea(ctx context.Context, authorID int64, in NewIdeaInput) (*CreatedIdea, error) {
	if authorID == 0 {
		return nil, apperr.ErrNotAuthenticated
	}

	title := cleanText(in.Title)
	description := cleanText(in.Description)
	if title == "" || description == "" {
		return nil, apperr.ErrInvalidData
	}

	var campaignTitle *string
	if in.CampaignID != nil {
		c, err := s.campaigns.FindByID(ctx, *in.CampaignID)
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.ErrNotFound.WithMessage("campaign not found")
		}
		if err != nil {
			return nil, err
		}
		campaignTitle = &c.Title
	}

	assessment := Assess(title, description, campaignTitle)
	now := s.now()

	var id int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ideas := s.ideas.WithTx(tx)

		var err error
		id, err = ideas.Create(ctx, db.NewIdea{
			Title:       title,
			Description: description,
			CampaignID:  in.CampaignID,
			AuthorID:    authorID,
			Status:      models.StatusDrafting,
			ScoreAI:     assessment.Score,
			CompatAI:    assessment.Compat,
			CreatedAt:   now,
		})
		if errors.Is(err, db.ErrNotFound) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}

		count, err := ideas.CountByAuthor(ctx, authorID)
		if err != nil {
			return err
		}
		if count == 1 {
			if _, err := s.badges.WithTx(tx).Grant(ctx, authorID, models.BadgeFirstIdea, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("idea created", "component", "ideas", "idea_id", id, "user_id", authorID)

	s.publisher.Publish(EventIdeaCreated, IdeaCreatedEvent{
		ID:         id,
		Title:      title,
		Status:     models.StatusDrafting,
		CampaignID: in.CampaignID,
		AuthorID:   authorID,
	})

	return &CreatedIdea{ID: id, ScoreAI: assessment.Score, CompatAI: assessment.Compat}, nil
}

func (s *Service) ListIdeas(ctx context.Context, filter models.IdeaFilter) ([]*models.Idea, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.ErrInvalidData.WithMessage("unknown status")
	}
	return s.ideas.FindAll(ctx, filter)
}

func (s *Service) GetIdea(ctx context.Context, id int64) (*IdeaDetail, error) {
	idea, err := s.ideas.FindByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListForIdea(ctx, id)
	if err != nil {
		return nil, err
	}

	return &IdeaDetail{Idea: idea, Comments: comments}, nil
}

// Vote records the caller's up-vote and returns the idea's vote count.
// Voting twice leaves the count unchanged.
func (s *Service) Vote(ctx context.Context, userID, ideaID int64) (int, error) {
	if userID == 0 {
		return 0, apperr.ErrNotAuthenticated
	}

	inserted, err := s.votes.Create(ctx, ideaID, userID, s.now())
	if errors.Is(err, db.ErrNotFound) {
		return 0, apperr.ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	count, err := s.votes.CountForIdea(ctx, ideaID)
	if err != nil {
		return 0, err
	}

	if inserted {
		s.publisher.Publish(EventIdeaVoted, IdeaVotedEvent{ID: ideaID, Votes: count})
	}

	return count, nil
}

func (s *Service) CountVotes(ctx context.Context, ideaID int64) (int, error) {
	if err := s.requireIdea(ctx, ideaID); err != nil {
		return 0, err
	}
	return s.votes.CountForIdea(ctx, ideaID)
}

// Comment adds a comment, optionally replying to parentID, and returns the
// refreshed idea detail.
func (s *Service) Comment(ctx context.Context, userID, ideaID int64, text string, parentID *int64) (*IdeaDetail, error) {
	if userID == 0 {
		return nil, apperr.ErrNotAuthenticated
	}

	text = cleanText(text)
	if text == "" {
		return nil, apperr.ErrInvalidData
	}

	if err := s.requireIdea(ctx, ideaID); err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := s.comments.FindByID(ctx, *parentID)
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.ErrInvalidData.WithMessage("parent comment not found")
		}
		if err != nil {
			return nil, err
		}
		if parent.IdeaID != ideaID {
			return nil, apperr.ErrInvalidData.WithMessage("parent comment belongs to another idea")
		}
	}

	if _, err := s.comments.Create(ctx, ideaID, userID, text, parentID, s.now()); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	return s.GetIdea(ctx, ideaID)
}

func (s *Service) ListComments(ctx context.Context, ideaID int64) ([]*models.Comment, error) {
	if err := s.requireIdea(ctx, ideaID); err != nil {
		return nil, err
	}
	return s.comments.ListForIdea(ctx, ideaID)
}

func (s *Service) UpdateStatus(ctx context.Context, ideaID int64, status models.IdeaStatus) error {
	if !status.Valid() {
		return apperr.ErrInvalidData.WithMessage("unknown status")
	}

	err := s.ideas.UpdateStatus(ctx, ideaID, status, s.now())
	if errors.Is(err, db.ErrNotFound) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return err
	}

	s.publisher.Publish(EventIdeaStatusChanged, IdeaStatusChangedEvent{ID: ideaID, Status: status})
	return nil
}

// UpdateIdea edits the title and/or description. At least one must be given
// and neither may be blank.
func (s *Service) UpdateIdea(ctx context.Context, ideaID int64, title, description *string) error {
	title = cleanOptional(title)
	description = cleanOptional(description)

	if title == nil && description == nil {
		return apperr.ErrInvalidData.WithMessage("no fields to update")
	}
	if (title != nil && *title == "") || (description != nil && *description == "") {
		return apperr.ErrInvalidData
	}

	err := s.ideas.Update(ctx, ideaID, title, description, s.now())
	if errors.Is(err, db.ErrNotFound) {
		return apperr.ErrNotFound
	}
	return err
}

func (s *Service) ListCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	return s.campaigns.FindAll(ctx)
}

// CreateCampaign adds an active campaign. deadline, when set, must be YYYY-MM-DD.
func (s *Service) CreateCampaign(ctx context.Context, title string, description, deadline *string) (*models.Campaign, error) {
	title = cleanText(title)
	if title == "" {
		return nil, apperr.ErrInvalidData
	}

	description = cleanOptional(description)
	if description != nil && *description == "" {
		description = nil
	}

	if deadline != nil {
		d := strings.TrimSpace(*deadline)
		if d == "" {
			deadline = nil
		} else if _, err := time.Parse(time.DateOnly, d); err != nil {
			return nil, apperr.ErrInvalidData.WithMessage("deadline must be YYYY-MM-DD")
		} else {
			deadline = &d
		}
	}

	c, err := s.campaigns.Create(ctx, title, description, deadline, s.now())
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListBadges(ctx context.Context, userID int64) ([]*models.Badge, error) {
	if userID == 0 {
		return nil, apperr.ErrNotAuthenticated
	}
	return s.badges.ListForUser(ctx, userID)
}

func (s *Service) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	return s.stats.Leaderboard(ctx)
}

func (s *Service) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	since := s.now().AddDate(0, 0, -dashboardWindowDays)
	d, err := s.stats.Dashboard(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("building dashboard: %w", err)
	}
	return d, nil
}

func (s *Service) requireIdea(ctx context.Context, ideaID int64) error {
	ok, err := s.ideas.Exists(ctx, ideaID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotFound
	}
	return nil
}
