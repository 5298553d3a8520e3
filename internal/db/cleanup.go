package db

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultCleanupInterval = 1 * time.Hour
)

// expirer is any store that can purge rows past their expiry.
type expirer interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type cleanupTarget struct {
	name  string
	store expirer
}

type CleanupService struct {
	targets  []cleanupTarget
	interval time.Duration
	now      func() time.Time
}

func NewCleanupService(
	verifications *TokenRepository,
	resets *TokenRepository,
	sessions *SessionRepository,
) *CleanupService {
	return &CleanupService{
		targets: []cleanupTarget{
			{name: "email verification tokens", store: verifications},
			{name: "password reset tokens", store: resets},
			{name: "sessions", store: sessions},
		},
		interval: DefaultCleanupInterval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used by RunOnce.
func (s *CleanupService) WithClock(now func() time.Time) *CleanupService {
	s.now = now
	return s
}

// Start runs a cleanup pass immediately and then on every tick until ctx is done.
func (s *CleanupService) Start(ctx context.Context) error {
	slog.Info("starting cleanup service", "component", "cleanup", "interval", s.interval)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping cleanup service", "component", "cleanup")
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *CleanupService) RunOnce(ctx context.Context) {
	now := s.now()
	for _, t := range s.targets {
		deleted, err := t.store.DeleteExpired(ctx, now)
		if err != nil {
			slog.Error("error deleting expired rows", "component", "cleanup", "target", t.name, "error", err)
			continue
		}
		if deleted > 0 {
			slog.Info("deleted expired rows", "component", "cleanup", "target", t.name, "count", deleted)
		}
	}
}
