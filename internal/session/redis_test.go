package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"ideias/internal/models"
)

// Runs only against a real server: IDEIAS_TEST_REDIS_URL=redis://localhost:6379/15
func TestRedisStore(t *testing.T) {
	url := os.Getenv("IDEIAS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("IDEIAS_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	store := NewRedisStore(client)
	userID := time.Now().UnixNano()
	now := time.Now().UTC()

	for _, id := range []string{"redis-a", "redis-b"} {
		err := store.Create(ctx, &models.Session{
			ID: id, UserID: userID, Email: "r@example.com", Name: "R",
			CreatedAt: now, ExpiresAt: now.Add(time.Minute),
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	if err := store.UpdateRegister(ctx, "redis-a", "R-1"); err != nil {
		t.Fatalf("UpdateRegister() error = %v", err)
	}
	got, err := store.Find(ctx, "redis-a")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.UserID != userID || got.Register != "R-1" {
		t.Fatalf("Find() = %+v", got)
	}

	if err := store.Delete(ctx, "redis-a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Find(ctx, "redis-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Find() after Delete error = %v, want ErrNotFound", err)
	}

	if err := store.DeleteAllForUser(ctx, userID); err != nil {
		t.Fatalf("DeleteAllForUser() error = %v", err)
	}
	if _, err := store.Find(ctx, "redis-b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Find() after DeleteAllForUser error = %v, want ErrNotFound", err)
	}
	if err := store.UpdateRegister(ctx, "redis-b", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateRegister() missing error = %v, want ErrNotFound", err)
	}
}
