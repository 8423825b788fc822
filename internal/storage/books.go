package storage

import (
	"context"
	"fmt"
	"time"

	"kennapartner-api/internal/models"
)

// CreateBook inserts a book after checking name uniqueness under the write
// lock. The calendar-year list filter for books reads the supplied Date
// field, not created_at.
func (s *Storage) CreateBook(ctx context.Context, input BookInput) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, book := range s.data.Books {
		if book.Name == input.Name {
			return models.Book{}, fmt.Errorf("book %s: %w", input.Name, ErrConflict)
		}
	}

	id, err := s.generateID()
	if err != nil {
		return models.Book{}, err
	}

	now := nowUTC()
	book := models.Book{
		ID:           id,
		Name:         input.Name,
		Introduction: input.Introduction,
		Preface:      input.Preface,
		Foreword:     input.Foreword,
		Author:       input.Author,
		Date:         input.Date.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	updated := cloneDataset(s.data)
	updated.Books[id] = book
	if err := s.persistDataset(updated); err != nil {
		return models.Book{}, err
	}
	s.data = updated

	return book, nil
}

// GetBook resolves a book by id.
func (s *Storage) GetBook(ctx context.Context, id string) (models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.data.Books[id]
	if !ok {
		return models.Book{}, ErrNotFound
	}
	return book, nil
}

// ListBooks applies the shared list protocol over the book collection.
func (s *Storage) ListBooks(ctx context.Context, opts ListOptions) (ListResult[models.Book], error) {
	filter, err := newListFilter(opts)
	if err != nil {
		return ListResult[models.Book]{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Book, 0, len(s.data.Books))
	for _, book := range s.data.Books {
		if filter.matchText(book.Name) && filter.matchDate(book.Date) {
			matched = append(matched, book)
		}
	}
	sortedByCreation(matched,
		func(b models.Book) time.Time { return b.CreatedAt },
		func(b models.Book) string { return b.ID })

	return window(matched, opts, len(s.data.Books)), nil
}

// UpdateBook merges the writable fields onto an existing book and refreshes
// updated_at. The attached file URL and creation timestamp are preserved.
func (s *Storage) UpdateBook(ctx context.Context, id string, input BookInput) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	book, ok := updated.Books[id]
	if !ok {
		return models.Book{}, ErrNotFound
	}
	for otherID, other := range updated.Books {
		if otherID != id && other.Name == input.Name {
			return models.Book{}, fmt.Errorf("book %s: %w", input.Name, ErrConflict)
		}
	}

	book.Name = input.Name
	book.Introduction = input.Introduction
	book.Preface = input.Preface
	book.Foreword = input.Foreword
	book.Author = input.Author
	book.Date = input.Date.UTC()
	book.UpdatedAt = nowUTC()

	updated.Books[id] = book
	if err := s.persistDataset(updated); err != nil {
		return models.Book{}, err
	}
	s.data = updated

	return book, nil
}

// DeleteBook removes the book outright.
func (s *Storage) DeleteBook(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	if _, ok := updated.Books[id]; !ok {
		return ErrNotFound
	}
	delete(updated.Books, id)
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

// AttachBookFile sets the uploaded media URL, leaving every other field
// untouched apart from updated_at.
func (s *Storage) AttachBookFile(ctx context.Context, id, fileURL string) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	book, ok := updated.Books[id]
	if !ok {
		return models.Book{}, ErrNotFound
	}

	book.FileURL = &fileURL
	book.UpdatedAt = nowUTC()

	updated.Books[id] = book
	if err := s.persistDataset(updated); err != nil {
		return models.Book{}, err
	}
	s.data = updated

	return book, nil
}
