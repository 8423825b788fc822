// Package api implements the HTTP handlers for the content backend: login,
// the book/news/insight collections, and media uploads. Handlers translate
// repository and auth errors into the JSON message envelope; middleware in
// internal/server wraps them with logging, metrics, and the auth gate.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"kennapartner-api/internal/auth"
	"kennapartner-api/internal/storage"
)

type Handler struct {
	Store   storage.Repository
	Tokens  *auth.TokenManager
	Media   storage.MediaStore
	Logger  *slog.Logger
	Uploads UploadPolicy
}

func NewHandler(store storage.Repository, tokens *auth.TokenManager, media storage.MediaStore, logger *slog.Logger) *Handler {
	if media == nil {
		media, _ = storage.NewMediaStore(context.Background(), storage.MediaConfig{})
	}
	return &Handler{
		Store:   store,
		Tokens:  tokens,
		Media:   media,
		Logger:  logger,
		Uploads: DefaultUploadPolicy(),
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, payload interface{}) {
	writeJSON(w, status, map[string]interface{}{"data": payload})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// WriteMessage is the exported form used by the server middleware.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	writeMessage(w, status, message)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// decodeJSON rejects bodies that are not valid JSON for the target schema.
// Failures surface as 422, matching the input-schema rejection of the
// validation layer.
func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// storeError maps repository failures onto the client envelope. kind is the
// document name used in client-facing messages ("Book", "News", "Insight").
func (h *Handler) storeError(w http.ResponseWriter, kind string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeMessage(w, http.StatusNotFound, kind+" does not exist")
	case errors.Is(err, storage.ErrConflict):
		writeMessage(w, http.StatusConflict, kind+" already exist")
	default:
		h.logger().Error("store operation failed", "kind", kind, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// Health reports liveness on the bare root path. Unknown paths fall through
// to this handler via the mux and read as not found.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeMessage(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}
	writeMessage(w, http.StatusOK, "Backend Server is active")
}
