package api

import (
	"net/http"
	"testing"

	"kennapartner-api/internal/models"
)

func createNews(t *testing.T, handler *Handler, title string) models.News {
	t.Helper()
	recorder := doJSON(t, handler.News, http.MethodPost, "/api/v1/news", map[string]string{
		"title":   title,
		"content": "Chambers news content",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create news: expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload struct {
		Data struct {
			News models.News `json:"news"`
		} `json:"data"`
	}
	decodeBody(t, recorder, &payload)
	return payload.Data.News
}

func TestNewsLifecycleOverHTTP(t *testing.T) {
	handler, _ := newTestHandler(t)

	item := createNews(t, handler, "Partner Announcement")
	if item.ID == "" || item.Title != "Partner Announcement" {
		t.Fatalf("unexpected news document %+v", item)
	}

	recorder := doJSON(t, handler.NewsByID, http.MethodPut, "/api/v1/news/"+item.ID, map[string]string{
		"title":   "Updated Announcement",
		"content": "Revised content",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = doJSON(t, handler.NewsByID, http.MethodDelete, "/api/v1/news/"+item.ID, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", recorder.Code)
	}
	if msg := responseMessage(t, recorder); msg != "News deleted" {
		t.Fatalf("unexpected message %q", msg)
	}

	recorder = doJSON(t, handler.NewsByID, http.MethodGet, "/api/v1/news/"+item.ID, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", recorder.Code)
	}
	if msg := responseMessage(t, recorder); msg != "News does not exist" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestCreateNewsDuplicateTitle(t *testing.T) {
	handler, _ := newTestHandler(t)
	createNews(t, handler, "Same Title")

	recorder := doJSON(t, handler.News, http.MethodPost, "/api/v1/news", map[string]string{
		"title":   "Same Title",
		"content": "Different content",
	})
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", recorder.Code)
	}
	if msg := responseMessage(t, recorder); msg != "News already exist" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestCreateNewsRequiresContent(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := doJSON(t, handler.News, http.MethodPost, "/api/v1/news", map[string]string{
		"title": "No Content",
	})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", recorder.Code)
	}
}

func TestListNewsEnvelopeKey(t *testing.T) {
	handler, _ := newTestHandler(t)
	createNews(t, handler, "One")
	createNews(t, handler, "Two")

	recorder := doJSON(t, handler.News, http.MethodGet, "/api/v1/news", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var payload struct {
		Data struct {
			News      []models.News `json:"news"`
			TotalNews int           `json:"total_news"`
		} `json:"data"`
	}
	decodeBody(t, recorder, &payload)
	if len(payload.Data.News) != 2 || payload.Data.TotalNews != 2 {
		t.Fatalf("unexpected list payload %+v", payload.Data)
	}
}
