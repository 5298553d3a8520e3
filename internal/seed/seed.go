// Package seed fills an empty portal with demo users, ideas, votes and
// comments for local development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"ideias/internal/apperr"
	"ideias/internal/auth"
	"ideias/internal/db"
	"ideias/internal/ideas"
	"ideias/internal/models"
)

const (
	ResultAlreadySeeded = "banco_ja_populado"
	ResultSeeded        = "banco_populado_com_sucesso"

	// Seeding is skipped once the portal has more users than this.
	maxUsersBeforeSkip = 5

	demoPassword    = "123456"
	demoComment     = "Ótima ideia! Apoio totalmente."
	maxVotesPerIdea = 5
)

// Signer creates accounts through the regular signup path so demo users get
// real password hashes and verification tokens.
type Signer interface {
	Signup(ctx context.Context, email, password, name string) (*auth.SignupResult, error)
}

var demoUsers = []struct{ name, email string }{
	{"Ana Souza", "ana@empresa.com"},
	{"Carlos Lima", "carlos@empresa.com"},
	{"Beatriz Rocha", "beatriz@empresa.com"},
	{"Daniel Alves", "daniel@empresa.com"},
	{"Fernanda Torres", "fernanda@empresa.com"},
}

var demoIdeas = []struct {
	title       string
	description string
	status      models.IdeaStatus
}{
	{"Automatização de Relatórios", "Criar robô para gerar relatórios mensais automaticamente.", models.StatusDrafting},
	{"Redução de Copos Plásticos", "Distribuir canecas para todos os funcionários.", models.StatusTriage},
	{"App de Carona Corporativa", "Facilitar caronas entre colaboradores.", models.StatusEvaluation},
	{"Treinamento em IA", "Workshop mensal sobre ferramentas de IA.", models.StatusApproved},
	{"Sala de Descompressão", "Criar espaço com jogos e pufs.", models.StatusRejected},
	{"Digitalização de Arquivo Morto", "Escanear documentos antigos para liberar espaço.", models.StatusTriage},
	{"Programa de Mentoria", "Seniores mentorando juniores.", models.StatusApproved},
	{"Horta Comunitária", "Horta no terraço do prédio.", models.StatusDrafting},
}

type Seeder struct {
	signer    Signer
	users     *db.UserRepository
	campaigns *db.CampaignRepository
	ideas     *db.IdeaRepository
	votes     *db.VoteRepository
	comments  *db.CommentRepository
	rng       *rand.Rand
	now       func() time.Time
}

func NewSeeder(database *db.DB, signer Signer) *Seeder {
	return &Seeder{
		signer:    signer,
		users:     db.NewUserRepository(database),
		campaigns: db.NewCampaignRepository(database),
		ideas:     db.NewIdeaRepository(database),
		votes:     db.NewVoteRepository(database),
		comments:  db.NewCommentRepository(database),
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Seed populates the database and returns ResultSeeded, or ResultAlreadySeeded
// without touching anything when the portal already has real users.
func (s *Seeder) Seed(ctx context.Context) (string, error) {
	runID := uuid.NewString()
	logger := slog.With("component", "seed", "run_id", runID)

	count, err := s.users.Count(ctx)
	if err != nil {
		return "", err
	}
	if count > maxUsersBeforeSkip {
		logger.Info("seed skipped", "users", count)
		return ResultAlreadySeeded, nil
	}

	userIDs := make([]int64, 0, len(demoUsers))
	for _, u := range demoUsers {
		id, err := s.ensureUser(ctx, u.email, u.name)
		if err != nil {
			return "", err
		}
		userIDs = append(userIDs, id)
	}

	campaigns, err := s.ensureCampaigns(ctx)
	if err != nil {
		return "", err
	}

	now := s.now()
	for i, d := range demoIdeas {
		campaign := campaigns[i%len(campaigns)]
		assessment := ideas.Assess(d.title, d.description, &campaign.Title)
		createdAt := now.AddDate(0, 0, -(1 + s.rng.IntN(30)))

		ideaID, err := s.ideas.Create(ctx, db.NewIdea{
			Title:       d.title,
			Description: d.description,
			CampaignID:  &campaign.ID,
			AuthorID:    userIDs[i%len(userIDs)],
			Status:      d.status,
			ScoreAI:     assessment.Score,
			CompatAI:    assessment.Compat,
			CreatedAt:   createdAt,
		})
		if err != nil {
			return "", fmt.Errorf("seeding idea %q: %w", d.title, err)
		}

		for v := s.rng.IntN(maxVotesPerIdea + 1); v > 0; v-- {
			voter := userIDs[s.rng.IntN(len(userIDs))]
			// Repeat voters are absorbed by the unique constraint.
			if _, err := s.votes.Create(ctx, ideaID, voter, createdAt); err != nil {
				return "", fmt.Errorf("seeding vote: %w", err)
			}
		}

		if s.rng.IntN(2) == 1 {
			commenter := userIDs[s.rng.IntN(len(userIDs))]
			if _, err := s.comments.Create(ctx, ideaID, commenter, demoComment, nil, createdAt); err != nil {
				return "", fmt.Errorf("seeding comment: %w", err)
			}
		}
	}

	logger.Info("seed complete", "users", len(userIDs), "ideas", len(demoIdeas))
	return ResultSeeded, nil
}

func (s *Seeder) ensureUser(ctx context.Context, email, name string) (int64, error) {
	result, err := s.signer.Signup(ctx, email, demoPassword, name)
	if err == nil {
		return result.User.ID, nil
	}
	if !errors.Is(err, apperr.ErrEmailExists) {
		return 0, fmt.Errorf("seeding user %s: %w", email, err)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("looking up seeded user %s: %w", email, err)
	}
	return user.ID, nil
}

func (s *Seeder) ensureCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	campaigns, err := s.campaigns.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(campaigns) > 0 {
		return campaigns, nil
	}

	now := s.now()
	description := "Ideias para reduzir impacto ambiental"
	deadline := now.AddDate(0, 0, 120).Format(time.DateOnly)
	campaign, err := s.campaigns.Create(ctx, "Sustentabilidade", &description, &deadline, now)
	if err != nil {
		return nil, fmt.Errorf("seeding campaign: %w", err)
	}
	return []*models.Campaign{campaign}, nil
}
