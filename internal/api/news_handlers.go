package api

import (
	"net/http"
	"strings"

	"kennapartner-api/internal/models"
)

type newsEnvelope struct {
	News models.News `json:"news"`
}

type newsListEnvelope struct {
	News      []models.News `json:"news"`
	Page      int           `json:"page"`
	Limit     int           `json:"limit"`
	TotalNews int           `json:"total_news"`
}

// News serves the collection routes: POST create, GET list.
func (h *Handler) News(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createNews(w, r)
	case http.MethodGet:
		h.listNews(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// NewsByID serves /api/v1/news/{id} and /api/v1/news/{id}/upload.
func (h *Handler) NewsByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/news/"), "/")
	if rest == "" {
		h.News(w, r)
		return
	}
	segments := strings.Split(rest, "/")
	switch {
	case len(segments) == 1:
		id := segments[0]
		switch r.Method {
		case http.MethodGet:
			h.getNews(w, r, id)
		case http.MethodPut:
			h.updateNews(w, r, id)
		case http.MethodDelete:
			h.deleteNews(w, r, id)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	case len(segments) == 2 && segments[1] == "upload":
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, http.MethodPatch)
			return
		}
		h.uploadNewsFile(w, r, segments[0])
	default:
		writeMessage(w, http.StatusNotFound, "Not found")
	}
}

func (h *Handler) createNews(w http.ResponseWriter, r *http.Request) {
	var req newsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	input, err := req.validate()
	if err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	item, err := h.Store.CreateNews(r.Context(), input)
	if err != nil {
		h.storeError(w, "News", err)
		return
	}
	writeData(w, http.StatusCreated, newsEnvelope{News: item})
}

func (h *Handler) listNews(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	result, err := h.Store.ListNews(r.Context(), opts)
	if err != nil {
		h.storeError(w, "News", err)
		return
	}
	writeData(w, http.StatusOK, newsListEnvelope{
		News:      result.Items,
		Page:      result.Page,
		Limit:     result.Limit,
		TotalNews: result.Total,
	})
}

func (h *Handler) getNews(w http.ResponseWriter, r *http.Request, id string) {
	item, err := h.Store.GetNews(r.Context(), id)
	if err != nil {
		h.storeError(w, "News", err)
		return
	}
	writeData(w, http.StatusOK, newsEnvelope{News: item})
}

func (h *Handler) updateNews(w http.ResponseWriter, r *http.Request, id string) {
	var req newsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	input, err := req.validate()
	if err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	item, err := h.Store.UpdateNews(r.Context(), id, input)
	if err != nil {
		h.storeError(w, "News", err)
		return
	}
	writeData(w, http.StatusOK, newsEnvelope{News: item})
}

func (h *Handler) deleteNews(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.Store.DeleteNews(r.Context(), id); err != nil {
		h.storeError(w, "News", err)
		return
	}
	writeMessage(w, http.StatusOK, "News deleted")
}

func (h *Handler) uploadNewsFile(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.Store.GetNews(r.Context(), id); err != nil {
		h.storeError(w, "News", err)
		return
	}
	fileURL, ok := h.uploadMedia(w, r, "news")
	if !ok {
		return
	}
	item, err := h.Store.AttachNewsFile(r.Context(), id, fileURL)
	if err != nil {
		h.storeError(w, "News", err)
		return
	}
	writeData(w, http.StatusOK, newsEnvelope{News: item})
}
