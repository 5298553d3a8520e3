package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ideias/internal/apperr"
	"ideias/internal/ideas"
	"ideias/internal/models"
)

type IdeaHandler struct {
	ideas *ideas.Service
}

func NewIdeaHandler(ideaService *ideas.Service) *IdeaHandler {
	return &IdeaHandler{ideas: ideaService}
}

func ideaIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.ErrInvalidData.WithMessage("invalid idea id")
	}
	return id, nil
}

// GET /api/v1/campaigns
func (h *IdeaHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.ideas.ListCampaigns(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"campaigns": campaigns})
}

// POST /api/v1/campaigns
type CreateCampaignRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	Deadline    *string `json:"deadline" validate:"omitempty,max=10"`
}

func (h *IdeaHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeFailure(w, r, err)
		return
	}

	campaign, err := h.ideas.CreateCampaign(r.Context(), req.Title, req.Description, req.Deadline)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"campaign": campaign})
}

// GET /api/v1/ideas?campaign_id=&status=&q=
func (h *IdeaHandler) ListIdeas(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.IdeaFilter{
		Status: models.IdeaStatus(strings.TrimSpace(query.Get("status"))),
		Query:  strings.TrimSpace(query.Get("q")),
	}
	if raw := strings.TrimSpace(query.Get("campaign_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(w, "invalid campaign_id")
			return
		}
		filter.CampaignID = &id
	}

	list, err := h.ideas.ListIdeas(r.Context(), filter)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"ideas": list})
}

// POST /api/v1/ideas
type CreateIdeaRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=10000"`
	CampaignID  *int64 `json:"campaign_id"`
}

func (h *IdeaHandler) CreateIdea(w http.ResponseWriter, r *http.Request) {
	var req CreateIdeaRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeFailure(w, r, err)
		return
	}

	created, err := h.ideas.CreateIdea(r.Context(), currentUserID(r), ideas.NewIdeaInput{
		Title:       req.Title,
		Description: req.Description,
		CampaignID:  req.CampaignID,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{
		"id":        created.ID,
		"score_ai":  created.ScoreAI,
		"compat_ai": created.CompatAI,
	})
}

// GET /api/v1/ideas/{id}
func (h *IdeaHandler) GetIdea(w http.ResponseWriter, r *http.Request) {
	id, err := ideaIDParam(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	detail, err := h.ideas.GetIdea(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"idea": detail.Idea, "comments": detail.Comments})
}

// PATCH /api/v1/ideas/{id}
type UpdateIdeaRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
}

func (h *IdeaHandler) UpdateIdea(w http.ResponseWriter, r *http.Request) {
	id, err := ideaIDParam(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	var req UpdateIdeaRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeFailure(w, r, err)
		return
	}

	if err := h.ideas.UpdateIdea(r.Context(), id, req.Title, req.Description); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

// POST /api/v1/ideas/{id}/vote
func (h *IdeaHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, err := ideaIDParam(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	votes, err := h.ideas.Vote(r.Context(), currentUserID(r), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"votes": votes})
}

// GET /api/v1/ideas/{id}/votes
func (h *IdeaHandler) CountVotes(w http.ResponseWriter, r *http.Request) {
	id, err := ideaIDParam(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	votes, err := h.ideas.CountVotes(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"votes": votes})
}

// GET /api/v1/ideas/{id}/comments
func (h *IdeaHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, err := ideaIDParam(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	comments, err := h.ideas.ListComments(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"comments": comments})
}

// POST /api/v1/ideas/{id}/comments
type CommentRequest struct {
	Text     string `json:"text" validate:"required,max=4000"`
	ParentID *int64 `json:"parent_id"`
}

func (h *IdeaHandler) Comment(w http.ResponseWriter, r *http.Request) {
	id, err := ideaIDParam(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	var req CommentRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeFailure(w, r, err)
		return
	}

	detail, err := h.ideas.Comment(r.Context(), currentUserID(r), id, req.Text, req.ParentID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"idea": detail.Idea, "comments": detail.Comments})
}

// POST /api/v1/ideas/{id}/status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,max=32"`
}

func (h *IdeaHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := ideaIDParam(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	var req UpdateStatusRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeFailure(w, r, err)
		return
	}

	status := models.IdeaStatus(strings.TrimSpace(req.Status))
	if err := h.ideas.UpdateStatus(r.Context(), id, status); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"status": status})
}

// GET /api/v1/badges
func (h *IdeaHandler) ListBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.ideas.ListBadges(r.Context(), currentUserID(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"badges": badges})
}

// GET /api/v1/stats/leaderboard
func (h *IdeaHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ideas.Leaderboard(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"leaderboard": entries})
}

// GET /api/v1/stats/dashboard
func (h *IdeaHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.ideas.Dashboard(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"kpis": d.KPIs, "charts": d.Charts})
}
