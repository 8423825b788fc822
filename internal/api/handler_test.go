package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"kennapartner-api/internal/auth"
	"kennapartner-api/internal/storage"
)

type stubMedia struct {
	enabled bool
	err     error
	lastKey string
}

func (m *stubMedia) Enabled() bool { return m.enabled }

func (m *stubMedia) Upload(_ context.Context, key, _ string, _ []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.lastKey = key
	return "https://media.test/content/" + key, nil
}

func newTestHandler(t *testing.T) (*Handler, *stubMedia) {
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

	media := &stubMedia{enabled: true}
	return NewHandler(store, tokens, media, nil), media
}

func doJSON(t *testing.T, handle http.HandlerFunc, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	handle(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
}

func responseMessage(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
	}
	decodeBody(t, recorder, &payload)
	return payload.Message
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buffer := &bytes.Buffer{}
	writer := multipart.NewWriter(buffer)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename)}
	if contentType != "" {
		header["Content-Type"] = []string{contentType}
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create multipart part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write multipart data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return buffer, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := doJSON(t, handler.Health, http.MethodGet, "/", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if msg := responseMessage(t, recorder); msg != "Backend Server is active" {
		t.Fatalf("unexpected health message %q", msg)
	}
}

func TestHealthUnknownPath(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := doJSON(t, handler.Health, http.MethodGet, "/nope", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestHealthMethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := doJSON(t, handler.Health, http.MethodPost, "/", nil)
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", recorder.Code)
	}
	if allow := recorder.Header().Get("Allow"); allow == "" {
		t.Fatal("expected Allow header on 405")
	}
}
