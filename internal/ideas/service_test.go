package ideas

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ideias/internal/apperr"
	"ideias/internal/db"
	"ideias/internal/models"
)

type publishedEvent struct {
	eventType string
	payload   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{eventType: eventType, payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.eventType
	}
	return out
}

func newTestService(t *testing.T) (*Service, *db.DB, *recordingPublisher) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	pub := &recordingPublisher{}
	return NewService(database, pub), database, pub
}

func createUser(t *testing.T, database *db.DB, email string) int64 {
	t.Helper()

	u, err := db.NewUserRepository(database).Create(context.Background(), email, "User "+email, nil, true, time.Now().UTC())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return u.ID
}

func campaignByTitle(t *testing.T, svc *Service, title string) *models.Campaign {
	t.Helper()

	campaigns, err := svc.ListCampaigns(context.Background())
	if err != nil {
		t.Fatalf("ListCampaigns() error = %v", err)
	}
	for _, c := range campaigns {
		if c.Title == title {
			return c
		}
	}
	t.Fatalf("campaign %q not found", title)
	return nil
}

func TestCreateIdeaValidation(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()
	uid := createUser(t, database, "a@example.com")
	missing := int64(9999)

	tests := []struct {
		name    string
		userID  int64
		in      NewIdeaInput
		wantErr error
	}{
		{name: "anonymous", userID: 0, in: NewIdeaInput{Title: "t", Description: "d"}, wantErr: apperr.ErrNotAuthenticated},
		{name: "empty_title", userID: uid, in: NewIdeaInput{Title: "", Description: "d"}, wantErr: apperr.ErrInvalidData},
		{name: "markup_only", userID: uid, in: NewIdeaInput{Title: "<b></b>", Description: "d"}, wantErr: apperr.ErrInvalidData},
		{name: "empty_description", userID: uid, in: NewIdeaInput{Title: "t", Description: "  "}, wantErr: apperr.ErrInvalidData},
		{name: "unknown_campaign", userID: uid, in: NewIdeaInput{Title: "t", Description: "d", CampaignID: &missing}, wantErr: apperr.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateIdea(ctx, tt.userID, tt.in); !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateIdea() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateIdeaRatesGrantsBadgeAndPublishes(t *testing.T) {
	svc, database, pub := newTestService(t)
	ctx := context.Background()
	uid := createUser(t, database, "a@example.com")
	digital := campaignByTitle(t, svc, "Transformação Digital")

	created, err := svc.CreateIdea(ctx, uid, NewIdeaInput{
		Title:       "Assinatura digital",
		Description: "Eliminar papel nos contratos com assinatura eletrônica em todos os fluxos.",
		CampaignID:  &digital.ID,
	})
	if err != nil {
		t.Fatalf("CreateIdea() error = %v", err)
	}
	if created.CompatAI != 100 || created.ScoreAI != 30 {
		t.Fatalf("CreateIdea() = %+v, want compat 100, score 30", created)
	}

	if _, err := svc.CreateIdea(ctx, uid, NewIdeaInput{Title: "Outra", Description: "mais uma"}); err != nil {
		t.Fatalf("CreateIdea() second error = %v", err)
	}

	badges, err := svc.ListBadges(ctx, uid)
	if err != nil {
		t.Fatalf("ListBadges() error = %v", err)
	}
	if len(badges) != 1 || badges[0].Code != models.BadgeFirstIdea {
		t.Fatalf("ListBadges() = %+v, want only primeira_ideia", badges)
	}

	detail, err := svc.GetIdea(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetIdea() error = %v", err)
	}
	if detail.Idea.Status != models.StatusDrafting || detail.Idea.Campaign == nil || *detail.Idea.Campaign != digital.Title {
		t.Fatalf("GetIdea() = %+v", detail.Idea)
	}

	if got := pub.types(); len(got) != 2 || got[0] != EventIdeaCreated {
		t.Fatalf("published = %v, want two IDEA_CREATED", got)
	}
}

func TestVoteIsIdempotentPerUser(t *testing.T) {
	svc, database, pub := newTestService(t)
	ctx := context.Background()
	alice := createUser(t, database, "alice@example.com")
	bob := createUser(t, database, "bob@example.com")

	idea, err := svc.CreateIdea(ctx, alice, NewIdeaInput{Title: "t", Description: "d"})
	if err != nil {
		t.Fatalf("CreateIdea() error = %v", err)
	}

	steps := []struct {
		userID int64
		want   int
	}{
		{alice, 1},
		{alice, 1},
		{bob, 2},
		{bob, 2},
	}
	for i, step := range steps {
		got, err := svc.Vote(ctx, step.userID, idea.ID)
		if err != nil {
			t.Fatalf("Vote() #%d error = %v", i, err)
		}
		if got != step.want {
			t.Fatalf("Vote() #%d = %d, want %d", i, got, step.want)
		}
	}

	count, err := svc.CountVotes(ctx, idea.ID)
	if err != nil || count != 2 {
		t.Fatalf("CountVotes() = %d, %v, want 2", count, err)
	}

	voted := 0
	for _, typ := range pub.types() {
		if typ == EventIdeaVoted {
			voted++
		}
	}
	if voted != 2 {
		t.Fatalf("IDEA_VOTED events = %d, want 2", voted)
	}

	if _, err := svc.Vote(ctx, alice, 9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Vote() missing idea error = %v, want not_found", err)
	}
	if _, err := svc.Vote(ctx, 0, idea.ID); !errors.Is(err, apperr.ErrNotAuthenticated) {
		t.Fatalf("Vote() anonymous error = %v, want not_authenticated", err)
	}
	if _, err := svc.CountVotes(ctx, 9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("CountVotes() missing idea error = %v, want not_found", err)
	}
}

func TestCommentThreading(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()
	uid := createUser(t, database, "a@example.com")

	first, err := svc.CreateIdea(ctx, uid, NewIdeaInput{Title: "one", Description: "d"})
	if err != nil {
		t.Fatalf("CreateIdea() error = %v", err)
	}
	second, err := svc.CreateIdea(ctx, uid, NewIdeaInput{Title: "two", Description: "d"})
	if err != nil {
		t.Fatalf("CreateIdea() error = %v", err)
	}

	detail, err := svc.Comment(ctx, uid, first.ID, "Ótima ideia!", nil)
	if err != nil {
		t.Fatalf("Comment() error = %v", err)
	}
	if len(detail.Comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(detail.Comments))
	}
	rootID := detail.Comments[0].ID

	detail, err = svc.Comment(ctx, uid, first.ID, "concordo", &rootID)
	if err != nil {
		t.Fatalf("Comment() reply error = %v", err)
	}
	if len(detail.Comments) != 2 || detail.Comments[1].ParentID == nil || *detail.Comments[1].ParentID != rootID {
		t.Fatalf("comments = %+v", detail.Comments)
	}

	missingParent := int64(9999)
	tests := []struct {
		name     string
		ideaID   int64
		text     string
		parentID *int64
		wantErr  error
	}{
		{name: "empty_text", ideaID: first.ID, text: " ", wantErr: apperr.ErrInvalidData},
		{name: "missing_idea", ideaID: 9999, text: "x", wantErr: apperr.ErrNotFound},
		{name: "parent_other_idea", ideaID: second.ID, text: "x", parentID: &rootID, wantErr: apperr.ErrInvalidData},
		{name: "missing_parent", ideaID: first.ID, text: "x", parentID: &missingParent, wantErr: apperr.ErrInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Comment(ctx, uid, tt.ideaID, tt.text, tt.parentID); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Comment() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	list, err := svc.ListComments(ctx, first.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListComments() = %d, %v, want 2", len(list), err)
	}
}

func TestUpdateStatusAndIdea(t *testing.T) {
	svc, database, pub := newTestService(t)
	ctx := context.Background()
	uid := createUser(t, database, "a@example.com")

	idea, err := svc.CreateIdea(ctx, uid, NewIdeaInput{Title: "t", Description: "d"})
	if err != nil {
		t.Fatalf("CreateIdea() error = %v", err)
	}

	if err := svc.UpdateStatus(ctx, idea.ID, "ARQUIVADA"); !errors.Is(err, apperr.ErrInvalidData) {
		t.Fatalf("UpdateStatus() bad status error = %v, want invalid_data", err)
	}
	if err := svc.UpdateStatus(ctx, 9999, models.StatusApproved); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("UpdateStatus() missing error = %v, want not_found", err)
	}
	if err := svc.UpdateStatus(ctx, idea.ID, models.StatusApproved); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if got := pub.types(); got[len(got)-1] != EventIdeaStatusChanged {
		t.Fatalf("last event = %q, want IDEA_STATUS_CHANGED", got[len(got)-1])
	}

	if err := svc.UpdateIdea(ctx, idea.ID, nil, nil); !errors.Is(err, apperr.ErrInvalidData) {
		t.Fatalf("UpdateIdea() no fields error = %v, want invalid_data", err)
	}
	blank := " "
	if err := svc.UpdateIdea(ctx, idea.ID, &blank, nil); !errors.Is(err, apperr.ErrInvalidData) {
		t.Fatalf("UpdateIdea() blank title error = %v, want invalid_data", err)
	}
	title := "novo título"
	if err := svc.UpdateIdea(ctx, 9999, &title, nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("UpdateIdea() missing error = %v, want not_found", err)
	}
	if err := svc.UpdateIdea(ctx, idea.ID, &title, nil); err != nil {
		t.Fatalf("UpdateIdea() error = %v", err)
	}

	list, err := svc.ListIdeas(ctx, models.IdeaFilter{Status: models.StatusApproved})
	if err != nil {
		t.Fatalf("ListIdeas() error = %v", err)
	}
	if len(list) != 1 || list[0].Title != title || list[0].Description != "d" {
		t.Fatalf("ListIdeas() = %+v", list)
	}

	if _, err := svc.ListIdeas(ctx, models.IdeaFilter{Status: "NOPE"}); !errors.Is(err, apperr.ErrInvalidData) {
		t.Fatalf("ListIdeas() bad status error = %v, want invalid_data", err)
	}
}

func TestCreateCampaign(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	bad := "31/12/2026"
	if _, err := svc.CreateCampaign(ctx, "Sustentabilidade", nil, &bad); !errors.Is(err, apperr.ErrInvalidData) {
		t.Fatalf("CreateCampaign() bad deadline error = %v, want invalid_data", err)
	}
	if _, err := svc.CreateCampaign(ctx, "", nil, nil); !errors.Is(err, apperr.ErrInvalidData) {
		t.Fatalf("CreateCampaign() empty title error = %v, want invalid_data", err)
	}

	deadline := "2026-12-31"
	desc := "Reduzir impacto"
	c, err := svc.CreateCampaign(ctx, "Sustentabilidade", &desc, &deadline)
	if err != nil {
		t.Fatalf("CreateCampaign() error = %v", err)
	}
	if c.Status != models.CampaignActive || c.Deadline == nil || *c.Deadline != deadline {
		t.Fatalf("CreateCampaign() = %+v", c)
	}

	campaigns, err := svc.ListCampaigns(ctx)
	if err != nil {
		t.Fatalf("ListCampaigns() error = %v", err)
	}
	if len(campaigns) != 3 || campaigns[0].ID != c.ID {
		t.Fatalf("ListCampaigns() = %d campaigns, first %d, want 3 with newest first", len(campaigns), campaigns[0].ID)
	}
}

func TestDashboardAndLeaderboard(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()
	alice := createUser(t, database, "alice@example.com")
	bob := createUser(t, database, "bob@example.com")

	a, err := svc.CreateIdea(ctx, alice, NewIdeaInput{Title: "a", Description: "d"})
	if err != nil {
		t.Fatalf("CreateIdea() error = %v", err)
	}
	if _, err := svc.CreateIdea(ctx, bob, NewIdeaInput{Title: "b", Description: "d"}); err != nil {
		t.Fatalf("CreateIdea() error = %v", err)
	}
	if err := svc.UpdateStatus(ctx, a.ID, models.StatusApproved); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if _, err := svc.Vote(ctx, bob, a.ID); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}

	d, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if d.KPIs.TotalIdeas != 2 || d.KPIs.TotalVotes != 1 || d.KPIs.ApprovalRate != 50 {
		t.Fatalf("KPIs = %+v", d.KPIs)
	}
	if len(d.Charts.Evolution) != 1 || d.Charts.Evolution[0].Count != 2 {
		t.Fatalf("Evolution = %+v", d.Charts.Evolution)
	}

	leaders, err := svc.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	if len(leaders) != 2 || leaders[0].UserID != alice {
		t.Fatalf("Leaderboard() = %+v, want alice first", leaders)
	}
}
