package api

import (
	"net/http"
	"testing"

	"kennapartner-api/internal/models"
)

func insightPayload(title string, authors ...map[string]string) map[string]interface{} {
	if authors == nil {
		authors = []map[string]string{
			{"full_name": "Ada Eze", "email": "ada@kennapartners.com"},
		}
	}
	return map[string]interface{}{
		"title":   title,
		"content": "Insight content",
		"authors": authors,
	}
}

func createInsight(t *testing.T, handler *Handler, title string, authors ...map[string]string) models.Insight {
	t.Helper()
	recorder := doJSON(t, handler.Insights, http.MethodPost, "/api/v1/insights", insightPayload(title, authors...))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create insight: expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload struct {
		Data struct {
			Insight models.Insight `json:"insight"`
		} `json:"data"`
	}
	decodeBody(t, recorder, &payload)
	return payload.Data.Insight
}

func TestCreateInsightReturnsAuthors(t *testing.T) {
	handler, _ := newTestHandler(t)

	insight := createInsight(t, handler, "Arbitration in West Africa")
	if insight.ID == "" {
		t.Fatal("expected a generated insight id")
	}
	if len(insight.Authors) != 1 {
		t.Fatalf("expected one author, got %d", len(insight.Authors))
	}
	if insight.Authors[0].Email != "ada@kennapartners.com" {
		t.Fatalf("unexpected author %+v", insight.Authors[0])
	}
	if insight.Authors[0].ID == "" {
		t.Fatal("expected the author document to carry an id")
	}
}

func TestCreateInsightRequiresAuthors(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := doJSON(t, handler.Insights, http.MethodPost, "/api/v1/insights", map[string]interface{}{
		"title":   "No Authors",
		"content": "Content",
	})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", recorder.Code)
	}
}

func TestCreateInsightRejectsBadAuthorEmail(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := doJSON(t, handler.Insights, http.MethodPost, "/api/v1/insights",
		insightPayload("Bad Email", map[string]string{"full_name": "Ada Eze", "email": "not-an-email"}))
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", recorder.Code)
	}
}

func TestUpdateInsightAuthorByRoute(t *testing.T) {
	handler, _ := newTestHandler(t)
	insight := createInsight(t, handler, "Linked Author")
	authorID := insight.Authors[0].ID

	recorder := doJSON(t, handler.InsightByID, http.MethodPut,
		"/api/v1/insights/"+insight.ID+"/authors/"+authorID, map[string]string{
			"full_name": "Ada Eze-Okafor",
			"email":     "ada@kennapartners.com",
		})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var payload struct {
		Data struct {
			Insight models.Insight `json:"insight"`
		} `json:"data"`
	}
	decodeBody(t, recorder, &payload)
	if payload.Data.Insight.Authors[0].FullName != "Ada Eze-Okafor" {
		t.Fatalf("author was not updated: %+v", payload.Data.Insight.Authors[0])
	}
}

func TestUpdateInsightAuthorRequiresLinkedAuthor(t *testing.T) {
	handler, _ := newTestHandler(t)
	first := createInsight(t, handler, "First", map[string]string{"full_name": "Ada Eze", "email": "ada@kennapartners.com"})
	second := createInsight(t, handler, "Second", map[string]string{"full_name": "Bola Ade", "email": "bola@kennapartners.com"})

	recorder := doJSON(t, handler.InsightByID, http.MethodPut,
		"/api/v1/insights/"+first.ID+"/authors/"+second.Authors[0].ID, map[string]string{
			"full_name": "Bola Ade",
			"email":     "bola@kennapartners.com",
		})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unlinked author, got %d", recorder.Code)
	}
	if msg := responseMessage(t, recorder); msg != "Author does not exist" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestDeleteInsight(t *testing.T) {
	handler, _ := newTestHandler(t)
	insight := createInsight(t, handler, "Temporary")

	recorder := doJSON(t, handler.InsightByID, http.MethodDelete, "/api/v1/insights/"+insight.ID, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if msg := responseMessage(t, recorder); msg != "Insight deleted" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestListInsightsEnvelopeKey(t *testing.T) {
	handler, _ := newTestHandler(t)
	createInsight(t, handler, "Alpha")
	createInsight(t, handler, "Beta")

	recorder := doJSON(t, handler.Insights, http.MethodGet, "/api/v1/insights?query=alpha", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var payload struct {
		Data struct {
			Insight      []models.Insight `json:"insight"`
			TotalInsight int              `json:"total_insight"`
		} `json:"data"`
	}
	decodeBody(t, recorder, &payload)
	if len(payload.Data.Insight) != 1 {
		t.Fatalf("expected a single filtered insight, got %d", len(payload.Data.Insight))
	}
	// Total reports the collection size, not the filtered subset.
	if payload.Data.TotalInsight != 2 {
		t.Fatalf("expected total_insight 2, got %d", payload.Data.TotalInsight)
	}
}
