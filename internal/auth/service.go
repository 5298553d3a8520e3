package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"ideias/internal/apperr"
	"ideias/internal/db"
	"ideias/internal/models"
)

// Mailer delivers the links that prove control of an email address.
type Mailer interface {
	SendVerification(ctx context.Context, user *models.User, link string) error
	SendPasswordReset(ctx context.Context, user *models.User, link string) error
}

// SessionStarter issues and revokes server-side sessions.
type SessionStarter interface {
	Start(ctx context.Context, user *models.User, client models.ClientInfo) (*models.Session, error)
	DestroyAllForUser(ctx context.Context, userID int64) error
}

type Options struct {
	BaseURL         string // public API origin, used in verification links
	FrontendURL     string // origin serving reset.html
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

type Service struct {
	db            *db.DB
	users         *db.UserRepository
	verifications *db.TokenRepository
	resets        *db.TokenRepository
	identities    *db.OAuthIdentityRepository
	hasher        PasswordHasher
	mailer        Mailer
	sessions      SessionStarter
	verifier      IdentityVerifier
	opts          Options
	now           func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewService(
	database *db.DB,
	hasher PasswordHasher,
	mailer Mailer,
	sessions SessionStarter,
	verifier IdentityVerifier,
	opts Options,
) *Service {
	return &Service{
		db:            database,
		users:         db.NewUserRepository(database),
		verifications: db.NewTokenRepository(database, models.TokenEmailVerification),
		resets:        db.NewTokenRepository(database, models.TokenPasswordReset),
		identities:    db.NewOAuthIdentityRepository(database),
		hasher:        hasher,
		mailer:        mailer,
		sessions:      sessions,
		verifier:      verifier,
		opts:          opts,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

type SignupResult struct {
	User       *models.User
	VerifyLink string
}

// AuthResult is returned by every flow that establishes a session.
type AuthResult struct {
	User    *models.User
	Session *models.Session
}

func (s *Service) Signup(ctx context.Context, email, password, name string) (*SignupResult, error) {
	email = db.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" {
		return nil, apperr.ErrInvalidData
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperr.ErrEmailExists
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now()
	var user *models.User
	var token string
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		user, err = s.users.WithTx(tx).Create(ctx, email, name, &hash, false, now)
		if errors.Is(err, db.ErrDuplicate) {
			return apperr.ErrEmailExists
		}
		if err != nil {
			return err
		}

		token, err = issueToken(ctx, s.verifications.WithTx(tx), user.ID, now, s.opts.VerificationTTL)
		return err
	})
	if err != nil {
		return nil, err
	}

	link := s.verificationLink(user.ID, token)
	if err := s.mailer.SendVerification(ctx, user, link); err != nil {
		slog.Error("error delivering verification link", "component", "auth", "user_id", user.ID, "error", err)
	}

	slog.Info("user signed up", "component", "auth", "user_id", user.ID)

	return &SignupResult{User: user, VerifyLink: link}, nil
}

func (s *Service) Login(ctx context.Context, email, password string, client models.ClientInfo) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if user == nil || !user.HasPassword() {
		// Same work as a real check so timing does not reveal which emails exist.
		_, _ = s.hasher.Verify(password, s.dummyPasswordHash())
		return nil, apperr.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, *user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, apperr.ErrInvalidCredentials
	}

	sess, err := s.sessions.Start(ctx, user, client)
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}

	return &AuthResult{User: user, Session: sess}, nil
}

func (s *Service) VerifyEmail(ctx context.Context, userID int64, token string) error {
	now := s.now()
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := consumeToken(ctx, s.verifications.WithTx(tx), userID, token, now); err != nil {
			return err
		}
		if err := s.users.WithTx(tx).MarkEmailVerified(ctx, userID, now); err != nil {
			return fmt.Errorf("verifying email: %w", err)
		}
		return nil
	})
}

// RequestPasswordReset never reports whether the email exists.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up user: %w", err)
	}

	var token string
	now := s.now()
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		token, err = issueToken(ctx, s.resets.WithTx(tx), user.ID, now, s.opts.ResetTTL)
		return err
	})
	if err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, user, s.resetLink(user.ID, token)); err != nil {
		slog.Error("error delivering reset link", "component", "auth", "user_id", user.ID, "error", err)
	}

	return nil
}

// ResetPassword replaces the stored hash and signs the user out everywhere.
func (s *Service) ResetPassword(ctx context.Context, userID int64, token, password string) error {
	if password == "" {
		return apperr.ErrInvalidData
	}

	now := s.now()
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := consumeToken(ctx, s.resets.WithTx(tx), userID, token, now); err != nil {
			return err
		}
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		if err := s.users.WithTx(tx).UpdatePasswordHash(ctx, userID, hash, now); err != nil {
			return fmt.Errorf("updating password: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.sessions.DestroyAllForUser(ctx, userID); err != nil {
		slog.Error("error revoking sessions after password reset", "component", "auth", "user_id", userID, "error", err)
	}

	return nil
}

func (s *Service) LoginWithGoogle(ctx context.Context, idToken string, client models.ClientInfo) (*AuthResult, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var user *models.User
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		user, err = s.resolveFederatedUser(ctx, tx, identity, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Start(ctx, user, client)
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}

	return &AuthResult{User: user, Session: sess}, nil
}

// resolveFederatedUser finds the user linked to identity, falling back to an
// account with the same email, and creates a verified account when neither exists.
func (s *Service) resolveFederatedUser(ctx context.Context, tx *sql.Tx, identity *FederatedIdentity, now time.Time) (*models.User, error) {
	users := s.users.WithTx(tx)
	identities := s.identities.WithTx(tx)

	link, err := identities.Find(ctx, identity.Provider, identity.Subject)
	if err == nil {
		user, err := users.FindByID(ctx, link.UserID)
		if err != nil {
			return nil, fmt.Errorf("loading linked user: %w", err)
		}
		return user, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("looking up identity: %w", err)
	}

	user, err := users.FindByEmail(ctx, identity.Email)
	if errors.Is(err, db.ErrNotFound) {
		user, err = users.Create(ctx, identity.Email, identity.Name, nil, true, now)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving federated user: %w", err)
	}

	if _, err := identities.Create(ctx, user.ID, identity.Provider, identity.Subject, now); err != nil {
		return nil, fmt.Errorf("linking identity: %w", err)
	}

	slog.Info("linked federated identity", "component", "auth", "user_id", user.ID, "provider", identity.Provider)

	return user, nil
}

func (s *Service) verificationLink(userID int64, token string) string {
	q := url.Values{}
	q.Set("uid", strconv.FormatInt(userID, 10))
	q.Set("token", token)
	return s.opts.BaseURL + "/api/v1/auth/verify?" + q.Encode()
}

func (s *Service) resetLink(userID int64, token string) string {
	q := url.Values{}
	q.Set("uid", strconv.FormatInt(userID, 10))
	q.Set("token", token)
	return s.opts.FrontendURL + "/reset.html?" + q.Encode()
}

func (s *Service) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			slog.Error("error building dummy password hash", "component", "auth", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// issueToken replaces any pending token of the repository's kind with a fresh one
// and returns the raw value.
func issueToken(ctx context.Context, tokens *db.TokenRepository, userID int64, now time.Time, ttl time.Duration) (string, error) {
	raw, err := GenerateToken()
	if err != nil {
		return "", err
	}

	if _, err := tokens.DeleteUnusedForUser(ctx, userID); err != nil {
		return "", err
	}
	if _, err := tokens.Create(ctx, userID, HashToken(raw), now.Add(ttl), now); err != nil {
		return "", err
	}

	return raw, nil
}

// consumeToken validates the user's latest token and marks it used. Checks run
// in a fixed order: existence, prior use, expiry, then the hash itself.
func consumeToken(ctx context.Context, tokens *db.TokenRepository, userID int64, raw string, now time.Time) error {
	t, err := tokens.FindLatestForUser(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return apperr.ErrTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("loading token: %w", err)
	}

	if t.UsedAt != nil {
		return apperr.ErrTokenUsed
	}
	if t.ExpiredAt(now) {
		return apperr.ErrTokenExpired
	}
	if !tokenMatches(raw, t.TokenHash) {
		return apperr.ErrTokenInvalid
	}

	ok, err := tokens.MarkUsedIfUnused(ctx, t.ID, now)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrTokenUsed
	}

	return nil
}
