package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"ideias/internal/api"
	"ideias/internal/auth"
	"ideias/internal/blob"
	"ideias/internal/config"
	"ideias/internal/db"
	"ideias/internal/email"
	"ideias/internal/ideas"
	"ideias/internal/models"
	"ideias/internal/seed"
	"ideias/internal/session"
	"ideias/internal/ws"
)

// app holds the wired services shared by the serve and seed commands.
type app struct {
	cfg      *config.Config
	db       *db.DB
	redis    *redis.Client
	sessions *session.Manager
	auth     *auth.Service
	ideas    *ideas.Service
	blobs    *blob.Service
	hub      *ws.Hub
	cleanup  *db.CleanupService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.db = database
	slog.Info("database opened", "path", cfg.Database.Path)

	store, err := a.sessionStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sessions = session.NewManager(store, session.Options{
		CookieName:   cfg.Session.CookieName,
		CookieSecure: cfg.Session.CookieSecure,
		TTL:          cfg.Session.TTL,
	})

	mailer, err := newMailer(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.blobs, err = blob.NewService(cfg.Storage.BlobRoot, cfg.Storage.UploadMaxBytes)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initializing blob storage: %w", err)
	}
	slog.Info("blob storage initialized", "root", cfg.Storage.BlobRoot, "upload_max_bytes", cfg.Storage.UploadMaxBytes)

	verifier := auth.NewGoogleVerifier(cfg.Google.TokenInfoURL, cfg.Google.ClientID, cfg.Google.Timeout)
	a.auth = auth.NewService(database, auth.NewArgon2Hasher(auth.DefaultArgon2Params), mailer, a.sessions, verifier, auth.Options{
		BaseURL:         cfg.Server.BaseURL,
		FrontendURL:     cfg.Server.FrontendURL,
		VerificationTTL: cfg.Auth.VerificationTTL,
		ResetTTL:        cfg.Auth.ResetTTL,
	})

	a.hub = ws.NewHub()
	a.ideas = ideas.NewService(database, a.hub)

	a.cleanup = db.NewCleanupService(
		db.NewTokenRepository(database, models.TokenEmailVerification),
		db.NewTokenRepository(database, models.TokenPasswordReset),
		db.NewSessionRepository(database),
	)

	return a, nil
}

func (a *app) sessionStore(ctx context.Context) (session.Store, error) {
	if a.cfg.Session.Store != config.SessionStoreRedis {
		slog.Info("sessions stored in sqlite")
		return session.NewSQLiteStore(a.db), nil
	}

	client, err := session.NewRedisClient(ctx, a.cfg.Session.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	a.redis = client
	slog.Info("sessions stored in redis")
	return session.NewRedisStore(client), nil
}

func newMailer(cfg *config.Config) (auth.Mailer, error) {
	if cfg.Email.Mode == config.EmailModeSMTP {
		slog.Info("email configured", "mode", "smtp", "host", cfg.Email.SMTP.Host, "port", cfg.Email.SMTP.Port)
		return email.NewSMTPMailer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
			cfg.Email.SMTP.From,
			cfg.Server.Name,
		), nil
	}

	mailer, err := email.NewFileMailer(cfg.Email.MailDir)
	if err != nil {
		return nil, fmt.Errorf("initializing file mailer: %w", err)
	}
	slog.Info("email configured", "mode", "file", "dir", cfg.Email.MailDir)
	return mailer, nil
}

func (a *app) deps() api.Deps {
	deps := api.Deps{
		Config:   a.cfg,
		DB:       a.db,
		Auth:     a.auth,
		Sessions: a.sessions,
		Ideas:    a.ideas,
		Blobs:    a.blobs,
		Hub:      a.hub,
	}
	if a.cfg.Admin.EnableSeed {
		deps.Seeder = seed.NewSeeder(a.db, a.auth)
		slog.Warn("admin seed endpoint enabled")
	}
	if a.redis != nil {
		client := a.redis
		deps.Redis = api.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	return deps
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Error("error closing redis client", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}
}
