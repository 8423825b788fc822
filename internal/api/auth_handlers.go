package api

import (
	"errors"
	"net/http"

	"kennapartner-api/internal/observability/metrics"
	"kennapartner-api/internal/storage"
)

type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges a username/password pair for an access/refresh token pair.
// Unknown accounts read as 404, password mismatches as 401.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user, err := h.Store.AuthenticateUser(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		metrics.ObserveLogin("unknown_account")
		writeMessage(w, http.StatusNotFound, "Account does not exist")
		return
	case errors.Is(err, storage.ErrInvalidCredentials):
		h.logger().Warn("login rejected", "username", req.Username)
		metrics.ObserveLogin("rejected")
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		h.logger().Error("login failed", "username", req.Username, "error", err)
		metrics.ObserveLogin("error")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	pair, err := h.Tokens.Issue(user.ID)
	if err != nil {
		h.logger().Error("token issue failed", "user_id", user.ID, "error", err)
		metrics.ObserveLogin("error")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	metrics.ObserveLogin("success")
	writeData(w, http.StatusOK, tokenPayload{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}
