package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"ideias/internal/models"
)

func TestTokenLatestAndSingleUse(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	uid := createTestUser(t, database, "tok@example.com")
	tokens := NewTokenRepository(database, models.TokenEmailVerification)
	now := time.Now().UTC()

	if _, err := tokens.FindLatestForUser(ctx, uid); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindLatestForUser() error = %v, want ErrNotFound", err)
	}

	if _, err := tokens.Create(ctx, uid, "first", now.Add(time.Hour), now); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := tokens.Create(ctx, uid, "second", now.Add(time.Hour), now)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	latest, err := tokens.FindLatestForUser(ctx, uid)
	if err != nil {
		t.Fatalf("FindLatestForUser() error = %v", err)
	}
	if latest.ID != second.ID || latest.TokenHash != "second" {
		t.Fatalf("FindLatestForUser() = %+v, want id %d", latest, second.ID)
	}

	ok, err := tokens.MarkUsedIfUnused(ctx, latest.ID, now)
	if err != nil || !ok {
		t.Fatalf("MarkUsedIfUnused() = %v, %v, want true, nil", ok, err)
	}
	ok, err = tokens.MarkUsedIfUnused(ctx, latest.ID, now)
	if err != nil || ok {
		t.Fatalf("MarkUsedIfUnused() second = %v, %v, want false, nil", ok, err)
	}

	latest, err = tokens.FindLatestForUser(ctx, uid)
	if err != nil {
		t.Fatalf("FindLatestForUser() error = %v", err)
	}
	if latest.UsedAt == nil {
		t.Fatal("UsedAt = nil after MarkUsedIfUnused")
	}
}

func TestTokenDeleteUnusedKeepsConsumed(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	uid := createTestUser(t, database, "tok@example.com")
	tokens := NewTokenRepository(database, models.TokenPasswordReset)
	now := time.Now().UTC()

	used, err := tokens.Create(ctx, uid, "used", now.Add(time.Hour), now)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := tokens.MarkUsedIfUnused(ctx, used.ID, now); err != nil {
		t.Fatalf("MarkUsedIfUnused() error = %v", err)
	}
	if _, err := tokens.Create(ctx, uid, "pending", now.Add(time.Hour), now); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	deleted, err := tokens.DeleteUnusedForUser(ctx, uid)
	if err != nil {
		t.Fatalf("DeleteUnusedForUser() error = %v", err)
	}
	if deleted != 1 {
		t.Fatalf("DeleteUnusedForUser() = %d, want 1", deleted)
	}

	latest, err := tokens.FindLatestForUser(ctx, uid)
	if err != nil {
		t.Fatalf("FindLatestForUser() error = %v", err)
	}
	if latest.ID != used.ID {
		t.Fatalf("latest id = %d, want %d", latest.ID, used.ID)
	}
}

func TestTokenKindsAreSeparate(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	uid := createTestUser(t, database, "tok@example.com")
	now := time.Now().UTC()

	verifications := NewTokenRepository(database, models.TokenEmailVerification)
	resets := NewTokenRepository(database, models.TokenPasswordReset)

	if _, err := verifications.Create(ctx, uid, "v", now.Add(time.Hour), now); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := resets.FindLatestForUser(ctx, uid); !errors.Is(err, ErrNotFound) {
		t.Fatalf("resets.FindLatestForUser() error = %v, want ErrNotFound", err)
	}
}
