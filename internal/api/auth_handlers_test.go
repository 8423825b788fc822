package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"kennapartner-api/internal/storage"
)

func seedUser(t *testing.T, handler *Handler, username, password string) string {
	t.Helper()
	user, err := handler.Store.CreateUser(context.Background(), storage.CreateUserParams{
		Username: username,
		Password: password,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user.ID
}

func TestLoginIssuesTokenPair(t *testing.T) {
	handler, _ := newTestHandler(t)
	seedUser(t, handler, "kenna_admin_123", "secure_pass_123")

	recorder := doJSON(t, handler.Login, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "kenna_admin_123",
		"password": "secure_pass_123",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var payload struct {
		Data struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"data"`
	}
	decodeBody(t, recorder, &payload)
	if payload.Data.AccessToken == "" || payload.Data.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", payload.Data)
	}
	if payload.Data.AccessToken == payload.Data.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}
}

func TestLoginUnknownAccount(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := doJSON(t, handler.Login, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "ghost",
		"password": "whatever",
	})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
	if msg := responseMessage(t, recorder); msg != "Account does not exist" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	handler, _ := newTestHandler(t)
	seedUser(t, handler, "kenna_admin_123", "secure_pass_123")

	recorder := doJSON(t, handler.Login, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "kenna_admin_123",
		"password": "wrong",
	})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if msg := responseMessage(t, recorder); msg != "Invalid credentials" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestLoginValidatesBody(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := doJSON(t, handler.Login, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "kenna_admin_123",
	})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", recorder.Code)
	}
}

func TestLoginRejectsGet(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := doJSON(t, handler.Login, http.MethodGet, "/api/v1/auth/login", nil)
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", recorder.Code)
	}
}

func bearerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/books", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthenticateRequest(t *testing.T) {
	handler, _ := newTestHandler(t)
	userID := seedUser(t, handler, "kenna_admin_123", "secure_pass_123")

	pair, err := handler.Tokens.Issue(userID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	user, err := handler.AuthenticateRequest(bearerRequest(pair.AccessToken))
	if err != nil {
		t.Fatalf("AuthenticateRequest: %v", err)
	}
	if user.ID != userID {
		t.Fatalf("expected user %s, got %s", userID, user.ID)
	}
}

func TestAuthenticateRequestErrorMapping(t *testing.T) {
	handler, _ := newTestHandler(t)

	pair, err := handler.Tokens.Issue("missing-user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cases := []struct {
		name       string
		token      string
		wantStatus int
		wantMsg    string
	}{
		{name: "missing token", token: "", wantStatus: http.StatusBadRequest, wantMsg: "Access token required"},
		{name: "garbage token", token: "not-a-jwt", wantStatus: http.StatusBadRequest, wantMsg: "Invalid access token"},
		{name: "unknown subject", token: pair.AccessToken, wantStatus: http.StatusNotFound, wantMsg: "Account associated with this token does not exist"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := handler.AuthenticateRequest(bearerRequest(tc.token))
			if err == nil {
				t.Fatal("expected an auth error")
			}
			recorder := httptest.NewRecorder()
			WriteAuthError(recorder, err)
			if recorder.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, recorder.Code)
			}
			if msg := responseMessage(t, recorder); msg != tc.wantMsg {
				t.Fatalf("unexpected message %q", msg)
			}
		})
	}
}
