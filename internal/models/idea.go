package models

import "time"

type IdeaStatus string

const (
	StatusDrafting   IdeaStatus = "EM_ELABORACAO"
	StatusTriage     IdeaStatus = "EM_TRIAGEM"
	StatusEvaluation IdeaStatus = "EM_AVALIACAO"
	StatusApproved   IdeaStatus = "APROVADA"
	StatusRejected   IdeaStatus = "REJEITADA"
)

// IdeaStatuses lists the Kanban columns in board order.
var IdeaStatuses = []IdeaStatus{StatusDrafting, StatusTriage, StatusEvaluation, StatusApproved, StatusRejected}

func (s IdeaStatus) Valid() bool {
	for _, known := range IdeaStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type Idea struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CampaignID  *int64     `json:"campaign_id,omitempty"`
	Campaign    *string    `json:"campaign,omitempty"`
	AuthorID    *int64     `json:"author_id,omitempty"`
	AuthorName  *string    `json:"author_name,omitempty"`
	Status      IdeaStatus `json:"status"`
	ScoreAI     *int       `json:"score_ai,omitempty"`
	CompatAI    *int       `json:"compat_ai,omitempty"`
	Votes       int        `json:"votes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IdeaFilter narrows idea listings. Zero values mean "no filter".
type IdeaFilter struct {
	CampaignID *int64
	Status     IdeaStatus
	Query      string
}

// Comment is stored flat; ParentID links replies and callers rebuild the tree.
type Comment struct {
	ID        int64     `json:"id"`
	IdeaID    int64     `json:"idea_id"`
	UserID    int64     `json:"user_id"`
	UserName  *string   `json:"user_name,omitempty"`
	Text      string    `json:"text"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Campaign struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Deadline    *string   `json:"deadline,omitempty"` // YYYY-MM-DD
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

const CampaignActive = "ATIVA"

type Badge struct {
	Code      string    `json:"code"`
	Label     string    `json:"label"`
	GrantedAt time.Time `json:"granted_at"`
}

const BadgeFirstIdea = "primeira_ideia"
