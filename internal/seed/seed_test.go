package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"ideias/internal/apperr"
	"ideias/internal/auth"
	"ideias/internal/db"
	"ideias/internal/models"
)

// repoSigner stands in for auth.Service without hashing passwords.
type repoSigner struct {
	users *db.UserRepository
}

func (s *repoSigner) Signup(ctx context.Context, email, _ string, name string) (*auth.SignupResult, error) {
	hash := "hash"
	user, err := s.users.Create(ctx, email, name, &hash, false, time.Now().UTC())
	if errors.Is(err, db.ErrDuplicate) {
		return nil, apperr.ErrEmailExists
	}
	if err != nil {
		return nil, err
	}
	return &auth.SignupResult{User: user}, nil
}

func newTestSeeder(t *testing.T) (*Seeder, *db.DB) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	s := NewSeeder(database, &repoSigner{users: db.NewUserRepository(database)})
	s.rng = rand.New(rand.NewPCG(1, 2))
	return s, database
}

func TestSeedPopulatesEmptyDatabase(t *testing.T) {
	s, database := newTestSeeder(t)
	ctx := context.Background()

	result, err := s.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if result != ResultSeeded {
		t.Fatalf("Seed() = %q, want %q", result, ResultSeeded)
	}

	count, err := db.NewUserRepository(database).Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != len(demoUsers) {
		t.Fatalf("users = %d, want %d", count, len(demoUsers))
	}

	all, err := db.NewIdeaRepository(database).FindAll(ctx, models.IdeaFilter{})
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(all) != len(demoIdeas) {
		t.Fatalf("ideas = %d, want %d", len(all), len(demoIdeas))
	}

	seen := map[models.IdeaStatus]bool{}
	now := time.Now().UTC()
	for _, idea := range all {
		seen[idea.Status] = true
		if !idea.CreatedAt.Before(now) {
			t.Fatalf("idea %d created_at = %s, want a past date", idea.ID, idea.CreatedAt)
		}
		if idea.Votes > len(demoUsers) {
			t.Fatalf("idea %d votes = %d, more than the number of voters", idea.ID, idea.Votes)
		}
		if idea.ScoreAI == nil || *idea.ScoreAI < 30 || *idea.ScoreAI > 100 {
			t.Fatalf("idea %d score_ai = %v, want within [30,100]", idea.ID, idea.ScoreAI)
		}
	}
	for _, status := range models.IdeaStatuses {
		if !seen[status] {
			t.Fatalf("no seeded idea in status %s", status)
		}
	}
}

func TestSeedReusesExistingDemoUsers(t *testing.T) {
	s, database := newTestSeeder(t)
	ctx := context.Background()

	if _, err := s.Seed(ctx); err != nil {
		t.Fatalf("first Seed() error = %v", err)
	}
	result, err := s.Seed(ctx)
	if err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	if result != ResultSeeded {
		t.Fatalf("second Seed() = %q, want %q", result, ResultSeeded)
	}

	count, err := db.NewUserRepository(database).Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != len(demoUsers) {
		t.Fatalf("users = %d, want %d after reseeding", count, len(demoUsers))
	}
}

func TestSeedSkipsPopulatedDatabase(t *testing.T) {
	s, database := newTestSeeder(t)
	ctx := context.Background()
	users := db.NewUserRepository(database)

	for i := 0; i <= maxUsersBeforeSkip; i++ {
		hash := "hash"
		if _, err := users.Create(ctx, fmt.Sprintf("user%d@example.com", i), "User", &hash, true, time.Now().UTC()); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	result, err := s.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if result != ResultAlreadySeeded {
		t.Fatalf("Seed() = %q, want %q", result, ResultAlreadySeeded)
	}

	all, err := db.NewIdeaRepository(database).FindAll(ctx, models.IdeaFilter{})
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("ideas = %d, want 0", len(all))
	}
}
