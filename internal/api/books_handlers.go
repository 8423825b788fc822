package api

import (
	"net/http"
	"strings"

	"kennapartner-api/internal/models"
)

type bookEnvelope struct {
	Book models.Book `json:"book"`
}

type bookListEnvelope struct {
	Book       []models.Book `json:"book"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalBooks int           `json:"total_books"`
}

// Books serves the collection routes: POST create, GET list.
func (h *Handler) Books(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createBook(w, r)
	case http.MethodGet:
		h.listBooks(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// BookByID serves /api/v1/books/{id} and /api/v1/books/{id}/upload.
func (h *Handler) BookByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/books/"), "/")
	if rest == "" {
		h.Books(w, r)
		return
	}
	segments := strings.Split(rest, "/")
	switch {
	case len(segments) == 1:
		id := segments[0]
		switch r.Method {
		case http.MethodGet:
			h.getBook(w, r, id)
		case http.MethodPut:
			h.updateBook(w, r, id)
		case http.MethodDelete:
			h.deleteBook(w, r, id)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	case len(segments) == 2 && segments[1] == "upload":
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, http.MethodPatch)
			return
		}
		h.uploadBookFile(w, r, segments[0])
	default:
		writeMessage(w, http.StatusNotFound, "Not found")
	}
}

func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	input, err := req.validate()
	if err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	book, err := h.Store.CreateBook(r.Context(), input)
	if err != nil {
		h.storeError(w, "Book", err)
		return
	}
	writeData(w, http.StatusCreated, bookEnvelope{Book: book})
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	result, err := h.Store.ListBooks(r.Context(), opts)
	if err != nil {
		h.storeError(w, "Book", err)
		return
	}
	writeData(w, http.StatusOK, bookListEnvelope{
		Book:       result.Items,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalBooks: result.Total,
	})
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request, id string) {
	book, err := h.Store.GetBook(r.Context(), id)
	if err != nil {
		h.storeError(w, "Book", err)
		return
	}
	writeData(w, http.StatusOK, bookEnvelope{Book: book})
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request, id string) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	input, err := req.validate()
	if err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	book, err := h.Store.UpdateBook(r.Context(), id, input)
	if err != nil {
		h.storeError(w, "Book", err)
		return
	}
	writeData(w, http.StatusOK, bookEnvelope{Book: book})
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.Store.DeleteBook(r.Context(), id); err != nil {
		h.storeError(w, "Book", err)
		return
	}
	writeMessage(w, http.StatusOK, "Book deleted")
}

func (h *Handler) uploadBookFile(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.Store.GetBook(r.Context(), id); err != nil {
		h.storeError(w, "Book", err)
		return
	}
	fileURL, ok := h.uploadMedia(w, r, "books")
	if !ok {
		return
	}
	book, err := h.Store.AttachBookFile(r.Context(), id, fileURL)
	if err != nil {
		h.storeError(w, "Book", err)
		return
	}
	writeData(w, http.StatusOK, bookEnvelope{Book: book})
}
