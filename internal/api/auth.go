package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"kennapartner-api/internal/auth"
	"kennapartner-api/internal/models"
	"kennapartner-api/internal/storage"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

// ContextWithUser stores the authenticated user in the provided context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user from context if present.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// ExtractToken reads the bearer token from the Authorization header.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthenticateRequest validates the bearer token and resolves the subject to
// a stored user. A token whose subject no longer exists maps to
// auth.ErrUnknownSubject.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.User, error) {
	token := ExtractToken(r)
	if token == "" {
		return models.User{}, auth.ErrMissingToken
	}
	subject, _, err := h.Tokens.Verify(token)
	if err != nil {
		return models.User{}, err
	}
	user, err := h.Store.GetUser(r.Context(), subject)
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, auth.ErrUnknownSubject
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// WriteAuthError translates an auth failure into the client envelope. The
// underlying cause is logged by the caller before translation.
func WriteAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		writeMessage(w, http.StatusBadRequest, "Access token required")
	case errors.Is(err, auth.ErrExpiredToken):
		writeMessage(w, http.StatusUnauthorized, "Token has expired")
	case errors.Is(err, auth.ErrUnknownSubject):
		writeMessage(w, http.StatusNotFound, "Account associated with this token does not exist")
	case errors.Is(err, auth.ErrMalformedToken):
		writeMessage(w, http.StatusBadRequest, "Invalid access token")
	default:
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
