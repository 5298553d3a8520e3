package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ideias/internal/apperr"
)

func newTokenInfoServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id_token") == "" {
			http.Error(w, "missing id_token", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleVerifier(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:   "valid",
			status: http.StatusOK,
			body:   `{"aud":"client-1","iss":"https://accounts.google.com","sub":"g-1","email":"g@example.com","name":"G User","exp":"1700000000"}`,
		},
		{
			name:   "valid_short_issuer",
			status: http.StatusOK,
			body:   `{"aud":"client-1","iss":"accounts.google.com","sub":"g-1","email":"g@example.com"}`,
		},
		{name: "bad_status", status: http.StatusBadRequest, body: `{"error":"invalid_token"}`, wantErr: apperr.ErrTokenInvalid},
		{name: "bad_json", status: http.StatusOK, body: `not json`, wantErr: apperr.ErrTokenInvalid},
		{name: "wrong_audience", status: http.StatusOK, body: `{"aud":"other","iss":"accounts.google.com","sub":"g-1","email":"g@example.com"}`, wantErr: apperr.ErrAudienceInvalid},
		{name: "wrong_issuer", status: http.StatusOK, body: `{"aud":"client-1","iss":"evil.example.com","sub":"g-1","email":"g@example.com"}`, wantErr: apperr.ErrIssuerInvalid},
		{name: "missing_email", status: http.StatusOK, body: `{"aud":"client-1","iss":"accounts.google.com","sub":"g-1"}`, wantErr: apperr.ErrEmailMissing},
		{name: "missing_subject", status: http.StatusOK, body: `{"aud":"client-1","iss":"accounts.google.com","email":"g@example.com"}`, wantErr: apperr.ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenInfoServer(t, tt.status, tt.body)
			v := NewGoogleVerifier(srv.URL, "client-1", time.Second)

			identity, err := v.Verify(context.Background(), "id-token")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if identity.Provider != ProviderGoogle || identity.Subject != "g-1" || identity.Email != "g@example.com" {
				t.Fatalf("Verify() = %+v", identity)
			}
		})
	}
}

func TestGoogleVerifierTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	v := NewGoogleVerifier(url, "client-1", time.Second)
	if _, err := v.Verify(context.Background(), "id-token"); !errors.Is(err, apperr.ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestGoogleVerifierTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	v := NewGoogleVerifier(srv.URL, "client-1", 50*time.Millisecond)
	if _, err := v.Verify(context.Background(), "id-token"); !errors.Is(err, apperr.ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestGoogleVerifierRejectsEmptyToken(t *testing.T) {
	v := NewGoogleVerifier("http://127.0.0.1:0", "client-1", time.Second)
	if _, err := v.Verify(context.Background(), ""); !errors.Is(err, apperr.ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}
