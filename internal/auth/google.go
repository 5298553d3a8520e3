package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ideias/internal/apperr"
)

const ProviderGoogle = "google"

var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// maxTokenInfoBytes caps the tokeninfo response body.
const maxTokenInfoBytes = 64 << 10

// FederatedIdentity is the verified subset of a provider's ID token claims.
type FederatedIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*FederatedIdentity, error)
}

// GoogleVerifier validates Google ID tokens through the tokeninfo endpoint.
type GoogleVerifier struct {
	client       *http.Client
	tokenInfoURL string
	clientID     string
}

func NewGoogleVerifier(tokenInfoURL, clientID string, timeout time.Duration) *GoogleVerifier {
	return &GoogleVerifier{
		client:       &http.Client{Timeout: timeout},
		tokenInfoURL: tokenInfoURL,
		clientID:     clientID,
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*FederatedIdentity, error) {
	if idToken == "" {
		return nil, apperr.ErrTokenInvalid
	}

	claims, err := v.fetchClaims(ctx, idToken)
	if err != nil {
		slog.Warn("google token rejected", "component", "auth", "error", err)
		return nil, apperr.ErrTokenInvalid
	}

	aud, err := claims.GetAudience()
	if err != nil || !slices.Contains([]string(aud), v.clientID) {
		return nil, apperr.ErrAudienceInvalid
	}

	iss, err := claims.GetIssuer()
	if err != nil || !slices.Contains(googleIssuers, iss) {
		return nil, apperr.ErrIssuerInvalid
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return nil, apperr.ErrEmailMissing
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, apperr.ErrTokenInvalid
	}

	name, _ := claims["name"].(string)

	return &FederatedIdentity{
		Provider: ProviderGoogle,
		Subject:  sub,
		Email:    email,
		Name:     name,
	}, nil
}

func (v *GoogleVerifier) fetchClaims(ctx context.Context, idToken string) (jwt.MapClaims, error) {
	endpoint, err := url.Parse(v.tokenInfoURL)
	if err != nil {
		return nil, fmt.Errorf("parsing tokeninfo url: %w", err)
	}
	q := endpoint.Query()
	q.Set("id_token", idToken)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building tokeninfo request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokeninfo returned status %d", resp.StatusCode)
	}

	var claims jwt.MapClaims
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenInfoBytes)).Decode(&claims); err != nil {
		return nil, fmt.Errorf("decoding tokeninfo response: %w", err)
	}

	return claims, nil
}
