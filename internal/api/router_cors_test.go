package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSMiddlewareAllowsConfiguredOrigin(t *testing.T) {
	called := false
	handler := corsMiddleware([]string{"https://ideias.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ideas", nil)
	req.Header.Set("Origin", "https://ideias.example.com")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if !called {
		t.Fatal("expected next handler to be called")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://ideias.example.com" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want %q", got, "https://ideias.example.com")
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("Access-Control-Allow-Credentials = %q, want true", got)
	}
}

func TestCORSMiddlewareAllowsLoopbackOrigin(t *testing.T) {
	handler := corsMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ideas", nil)
	req.Header.Set("Origin", "http://127.0.0.1:5173")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://127.0.0.1:5173" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want loopback origin", got)
	}
}

func TestCORSMiddlewareOmitsHeadersForDisallowedOrigin(t *testing.T) {
	handler := corsMiddleware([]string{"https://ideias.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ideas", nil)
	req.Header.Set("Origin", "https://evil.com")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want empty", got)
	}
}

func TestCORSPreflightForAllowedOrigin(t *testing.T) {
	handler := corsMiddleware([]string{"https://ideias.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("preflight should not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ideas", nil)
	req.Header.Set("Origin", "https://ideias.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://ideias.example.com" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != http.MethodPost {
		t.Fatalf("Access-Control-Allow-Methods = %q, want POST", got)
	}
}

func TestOriginMatchesAllowed(t *testing.T) {
	tests := []struct {
		origin  string
		allowed string
		want    bool
	}{
		{"https://ideias.example.com", "https://ideias.example.com", true},
		{"https://IDEIAS.example.com", "https://ideias.example.com", true},
		{"https://other.example.com", "https://ideias.example.com", false},
		{"https://anything.test", "*", true},
		{"https://ideias-pr-42.example.com", "https://ideias-pr-*", true},
		{"https://ideias.example.com", "https://ideias-pr-*", false},
		{"https://ideias.example.com", " https://ideias.example.com ", true},
	}

	for _, tt := range tests {
		if got := originMatchesAllowed(tt.origin, tt.allowed); got != tt.want {
			t.Errorf("originMatchesAllowed(%q, %q) = %v, want %v", tt.origin, tt.allowed, got, tt.want)
		}
	}
}

func TestIsLoopbackOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:3000", true},
		{"http://127.0.0.1:5173", true},
		{"http://[::1]:8080", true},
		{"https://ideias.example.com", false},
		{"not a url", false},
	}

	for _, tt := range tests {
		if got := isLoopbackOrigin(tt.origin); got != tt.want {
			t.Errorf("isLoopbackOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
