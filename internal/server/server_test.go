package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kennapartner-api/internal/api"
	"kennapartner-api/internal/auth"
	"kennapartner-api/internal/storage"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *api.Handler) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	tokens, err := auth.NewTokenManager([]byte("test-secret"), time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	handler := api.NewHandler(store, tokens, nil, nil)
	srv, err := New(handler, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, handler
}

func seedAdmin(t *testing.T, handler *api.Handler) string {
	t.Helper()
	user, err := handler.Store.CreateUser(context.Background(), storage.CreateUserParams{
		Username: "kenna_admin_123",
		Password: "secure_pass_123",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user.ID
}

func serveRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(recorder, req)
	return recorder
}

func TestAuthGateOpenRoutes(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	for _, tc := range []struct {
		method string
		target string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/api/v1/books", http.StatusOK},
		{http.MethodGet, "/api/v1/news", http.StatusOK},
		{http.MethodGet, "/api/v1/insights", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
	} {
		recorder := serveRequest(srv, httptest.NewRequest(tc.method, tc.target, nil))
		if recorder.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.target, tc.want, recorder.Code)
		}
	}
}

func TestAuthGateBlocksMutationsWithoutToken(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	recorder := serveRequest(srv, httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader(`{}`)))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if !strings.Contains(recorder.Body.String(), "Access token required") {
		t.Fatalf("unexpected body %s", recorder.Body.String())
	}
}

func TestAuthGateRejectsGarbageToken(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/news/some-id", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	recorder := serveRequest(srv, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "Invalid access token") {
		t.Fatalf("unexpected body %s", recorder.Body.String())
	}
}

func TestAuthGateAdmitsValidToken(t *testing.T) {
	srv, handler := newTestServer(t, Config{})
	userID := seedAdmin(t, handler)
	pair, err := handler.Tokens.Issue(userID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	body := `{"title":"Breaking","content":"Story"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/news", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	recorder := serveRequest(srv, req)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestLoginRouteStaysOpen(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	body := `{"username":"ghost","password":"nope"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := serveRequest(srv, req)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown account, got %d", recorder.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	recorder := serveRequest(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := recorder.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("unexpected X-Frame-Options %q", got)
	}
	if got := recorder.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("unexpected X-Content-Type-Options %q", got)
	}
	if got := recorder.Header().Get("Referrer-Policy"); got != "no-referrer" {
		t.Fatalf("unexpected Referrer-Policy %q", got)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	recorder := serveRequest(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "caller-supplied")
	recorder = serveRequest(srv, req)
	if got := recorder.Header().Get("X-Request-Id"); got != "caller-supplied" {
		t.Fatalf("expected the caller id to be echoed, got %q", got)
	}
}

func TestCORSBlocksUnknownOrigin(t *testing.T) {
	srv, _ := newTestServer(t, Config{
		CORS: CORSConfig{AllowedOrigins: []string{"https://kennapartners.com"}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books", nil)
	req.Header.Set("Origin", "https://evil.example")
	recorder := serveRequest(srv, req)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", recorder.Code)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	srv, _ := newTestServer(t, Config{
		CORS: CORSConfig{AllowedOrigins: []string{"https://kennapartners.com"}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books", nil)
	req.Header.Set("Origin", "https://kennapartners.com")
	recorder := serveRequest(srv, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://kennapartners.com" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, Config{
		CORS: CORSConfig{AllowedOrigins: []string{"https://kennapartners.com"}},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/books", nil)
	req.Header.Set("Origin", "https://kennapartners.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	recorder := serveRequest(srv, req)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("expected allow-methods on preflight")
	}
}

func TestGlobalRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Config{
		RateLimit: RateLimitConfig{GlobalRPS: 0.001, GlobalBurst: 1},
	})

	first := serveRequest(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", first.Code)
	}
	second := serveRequest(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", second.Code)
	}
}

func TestLoginThrottlePerIP(t *testing.T) {
	srv, _ := newTestServer(t, Config{
		RateLimit: RateLimitConfig{LoginLimit: 2, LoginWindow: time.Hour},
	})

	body := `{"username":"ghost","password":"nope"}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		req.RemoteAddr = "203.0.113.7:1234"
		if recorder := serveRequest(srv, req); recorder.Code == http.StatusTooManyRequests {
			t.Fatalf("attempt %d must pass the throttle", i+1)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:1234"
	recorder := serveRequest(srv, req)
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the window filled, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "Too many login attempts") {
		t.Fatalf("unexpected body %s", recorder.Body.String())
	}

	// A different client IP keeps its own budget.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = "198.51.100.9:1234"
	if recorder := serveRequest(srv, req); recorder.Code == http.StatusTooManyRequests {
		t.Fatal("another client must not share the exhausted budget")
	}
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	if got := extractClientIP(req); got != "192.0.2.1" {
		t.Fatalf("expected remote addr host, got %q", got)
	}

	req.Header.Set("X-Real-IP", "198.51.100.4")
	if got := extractClientIP(req); got != "198.51.100.4" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := extractClientIP(req); got != "203.0.113.9" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}
