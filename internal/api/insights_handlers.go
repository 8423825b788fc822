package api

import (
	"net/http"
	"strings"

	"kennapartner-api/internal/models"
)

type insightEnvelope struct {
	Insight models.Insight `json:"insight"`
}

type insightListEnvelope struct {
	Insight      []models.Insight `json:"insight"`
	Page         int              `json:"page"`
	Limit        int              `json:"limit"`
	TotalInsight int              `json:"total_insight"`
}

// Insights serves the collection routes: POST create, GET list.
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createInsight(w, r)
	case http.MethodGet:
		h.listInsights(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// InsightByID serves the insight document routes plus the nested author
// routes: /{id}, /{id}/upload, /{id}/authors/{aid}, /{id}/authors/{aid}/upload.
func (h *Handler) InsightByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/insights/"), "/")
	if rest == "" {
		h.Insights(w, r)
		return
	}
	segments := strings.Split(rest, "/")
	switch {
	case len(segments) == 1:
		id := segments[0]
		switch r.Method {
		case http.MethodGet:
			h.getInsight(w, r, id)
		case http.MethodPut:
			h.updateInsight(w, r, id)
		case http.MethodDelete:
			h.deleteInsight(w, r, id)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	case len(segments) == 2 && segments[1] == "upload":
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, http.MethodPatch)
			return
		}
		h.uploadInsightFile(w, r, segments[0])
	case len(segments) == 3 && segments[1] == "authors":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, http.MethodPut)
			return
		}
		h.updateInsightAuthor(w, r, segments[0], segments[2])
	case len(segments) == 4 && segments[1] == "authors" && segments[3] == "upload":
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, http.MethodPatch)
			return
		}
		h.uploadInsightAuthorFile(w, r, segments[0], segments[2])
	default:
		writeMessage(w, http.StatusNotFound, "Not found")
	}
}

func (h *Handler) createInsight(w http.ResponseWriter, r *http.Request) {
	var req insightRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	input, err := req.validate()
	if err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	insight, err := h.Store.CreateInsight(r.Context(), input)
	if err != nil {
		h.storeError(w, "Insight", err)
		return
	}
	writeData(w, http.StatusCreated, insightEnvelope{Insight: insight})
}

func (h *Handler) listInsights(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	result, err := h.Store.ListInsights(r.Context(), opts)
	if err != nil {
		h.storeError(w, "Insight", err)
		return
	}
	writeData(w, http.StatusOK, insightListEnvelope{
		Insight:      result.Items,
		Page:         result.Page,
		Limit:        result.Limit,
		TotalInsight: result.Total,
	})
}

func (h *Handler) getInsight(w http.ResponseWriter, r *http.Request, id string) {
	insight, err := h.Store.GetInsight(r.Context(), id)
	if err != nil {
		h.storeError(w, "Insight", err)
		return
	}
	writeData(w, http.StatusOK, insightEnvelope{Insight: insight})
}

func (h *Handler) updateInsight(w http.ResponseWriter, r *http.Request, id string) {
	var req insightRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	input, err := req.validate()
	if err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	insight, err := h.Store.UpdateInsight(r.Context(), id, input)
	if err != nil {
		h.storeError(w, "Insight", err)
		return
	}
	writeData(w, http.StatusOK, insightEnvelope{Insight: insight})
}

func (h *Handler) deleteInsight(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.Store.DeleteInsight(r.Context(), id); err != nil {
		h.storeError(w, "Insight", err)
		return
	}
	writeMessage(w, http.StatusOK, "Insight deleted")
}

func (h *Handler) updateInsightAuthor(w http.ResponseWriter, r *http.Request, insightID, authorID string) {
	var req authorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	input, err := req.validate()
	if err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	insight, err := h.Store.UpdateInsightAuthor(r.Context(), insightID, authorID, input)
	if err != nil {
		h.storeError(w, "Author", err)
		return
	}
	writeData(w, http.StatusOK, insightEnvelope{Insight: insight})
}

func (h *Handler) uploadInsightFile(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.Store.GetInsight(r.Context(), id); err != nil {
		h.storeError(w, "Insight", err)
		return
	}
	fileURL, ok := h.uploadMedia(w, r, "insights")
	if !ok {
		return
	}
	insight, err := h.Store.AttachInsightFile(r.Context(), id, fileURL)
	if err != nil {
		h.storeError(w, "Insight", err)
		return
	}
	writeData(w, http.StatusOK, insightEnvelope{Insight: insight})
}

func (h *Handler) uploadInsightAuthorFile(w http.ResponseWriter, r *http.Request, insightID, authorID string) {
	if _, err := h.Store.GetInsight(r.Context(), insightID); err != nil {
		h.storeError(w, "Insight", err)
		return
	}
	fileURL, ok := h.uploadMedia(w, r, "authors")
	if !ok {
		return
	}
	insight, err := h.Store.AttachInsightAuthorFile(r.Context(), insightID, authorID, fileURL)
	if err != nil {
		h.storeError(w, "Author", err)
		return
	}
	writeData(w, http.StatusOK, insightEnvelope{Insight: insight})
}
