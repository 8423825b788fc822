package storage

import (
	"context"
	"fmt"
	"time"

	"kennapartner-api/internal/models"
)

// CreateNews inserts a news document after checking title uniqueness.
func (s *Storage) CreateNews(ctx context.Context, input NewsInput) (models.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.data.News {
		if item.Title == input.Title {
			return models.News{}, fmt.Errorf("news %s: %w", input.Title, ErrConflict)
		}
	}

	id, err := s.generateID()
	if err != nil {
		return models.News{}, err
	}

	now := nowUTC()
	item := models.News{
		ID:        id,
		Title:     input.Title,
		Content:   input.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	updated := cloneDataset(s.data)
	updated.News[id] = item
	if err := s.persistDataset(updated); err != nil {
		return models.News{}, err
	}
	s.data = updated

	return item, nil
}

// GetNews resolves a news document by id.
func (s *Storage) GetNews(ctx context.Context, id string) (models.News, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.data.News[id]
	if !ok {
		return models.News{}, ErrNotFound
	}
	return item, nil
}

// ListNews applies the shared list protocol; the year filter reads
// created_at because news documents carry no separate date field.
func (s *Storage) ListNews(ctx context.Context, opts ListOptions) (ListResult[models.News], error) {
	filter, err := newListFilter(opts)
	if err != nil {
		return ListResult[models.News]{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.News, 0, len(s.data.News))
	for _, item := range s.data.News {
		if filter.matchText(item.Title) && filter.matchDate(item.CreatedAt) {
			matched = append(matched, item)
		}
	}
	sortedByCreation(matched,
		func(n models.News) time.Time { return n.CreatedAt },
		func(n models.News) string { return n.ID })

	return window(matched, opts, len(s.data.News)), nil
}

// UpdateNews merges the writable fields onto an existing document and
// refreshes updated_at.
func (s *Storage) UpdateNews(ctx context.Context, id string, input NewsInput) (models.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	item, ok := updated.News[id]
	if !ok {
		return models.News{}, ErrNotFound
	}
	for otherID, other := range updated.News {
		if otherID != id && other.Title == input.Title {
			return models.News{}, fmt.Errorf("news %s: %w", input.Title, ErrConflict)
		}
	}

	item.Title = input.Title
	item.Content = input.Content
	item.UpdatedAt = nowUTC()

	updated.News[id] = item
	if err := s.persistDataset(updated); err != nil {
		return models.News{}, err
	}
	s.data = updated

	return item, nil
}

// DeleteNews removes the document outright.
func (s *Storage) DeleteNews(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	if _, ok := updated.News[id]; !ok {
		return ErrNotFound
	}
	delete(updated.News, id)
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

// AttachNewsFile sets the uploaded media URL on the document.
func (s *Storage) AttachNewsFile(ctx context.Context, id, fileURL string) (models.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	item, ok := updated.News[id]
	if !ok {
		return models.News{}, ErrNotFound
	}

	item.FileURL = &fileURL
	item.UpdatedAt = nowUTC()

	updated.News[id] = item
	if err := s.persistDataset(updated); err != nil {
		return models.News{}, err
	}
	s.data = updated

	return item, nil
}
