package storage

import (
	"context"
	"fmt"
	"time"

	"kennapartner-api/internal/models"
)

// resolveAuthorsLocked maps author inputs to author ids, creating documents
// for emails that are not yet known. Duplicate emails within one input list
// collapse to a single link. Caller holds the write lock and passes the
// dataset clone being prepared for persistence.
func (s *Storage) resolveAuthorsLocked(data *dataset, inputs []AuthorInput) ([]string, error) {
	ids := make([]string, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, input := range inputs {
		if _, dup := seen[input.Email]; dup {
			continue
		}
		seen[input.Email] = struct{}{}

		var matched string
		for id, author := range data.InsightAuthors {
			if author.Email == input.Email {
				matched = id
				break
			}
		}
		if matched == "" {
			id, err := s.generateID()
			if err != nil {
				return nil, err
			}
			now := nowUTC()
			data.InsightAuthors[id] = models.InsightAuthor{
				ID:        id,
				FullName:  input.FullName,
				Email:     input.Email,
				CreatedAt: now,
				UpdatedAt: now,
			}
			matched = id
		}
		ids = append(ids, matched)
	}
	return ids, nil
}

// resolveInsight expands stored author ids into full author documents.
// Dangling references (author deleted out of band) are skipped rather than
// failing the read.
func resolveInsight(data dataset, record insightRecord) models.Insight {
	authors := make([]models.InsightAuthor, 0, len(record.AuthorIDs))
	for _, id := range record.AuthorIDs {
		if author, ok := data.InsightAuthors[id]; ok {
			authors = append(authors, author)
		}
	}
	return models.Insight{
		ID:        record.ID,
		Title:     record.Title,
		Content:   record.Content,
		FileURL:   record.FileURL,
		Authors:   authors,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

// CreateInsight resolves the author list by email, creating missing author
// documents, then inserts the insight with weak references to them. Title
// uniqueness is checked before insert.
func (s *Storage) CreateInsight(ctx context.Context, input InsightInput) (models.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.data.Insights {
		if record.Title == input.Title {
			return models.Insight{}, fmt.Errorf("insight %s: %w", input.Title, ErrConflict)
		}
	}

	updated := cloneDataset(s.data)
	authorIDs, err := s.resolveAuthorsLocked(&updated, input.Authors)
	if err != nil {
		return models.Insight{}, err
	}

	id, err := s.generateID()
	if err != nil {
		return models.Insight{}, err
	}

	now := nowUTC()
	record := insightRecord{
		ID:        id,
		Title:     input.Title,
		Content:   input.Content,
		AuthorIDs: authorIDs,
		CreatedAt: now,
		UpdatedAt: now,
	}

	updated.Insights[id] = record
	if err := s.persistDataset(updated); err != nil {
		return models.Insight{}, err
	}
	s.data = updated

	return resolveInsight(s.data, record), nil
}

// GetInsight resolves an insight with its author documents.
func (s *Storage) GetInsight(ctx context.Context, id string) (models.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.data.Insights[id]
	if !ok {
		return models.Insight{}, ErrNotFound
	}
	return resolveInsight(s.data, record), nil
}

// ListInsights applies the shared list protocol; the year filter reads
// created_at. Author references are resolved for every returned document.
func (s *Storage) ListInsights(ctx context.Context, opts ListOptions) (ListResult[models.Insight], error) {
	filter, err := newListFilter(opts)
	if err != nil {
		return ListResult[models.Insight]{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Insight, 0, len(s.data.Insights))
	for _, record := range s.data.Insights {
		if filter.matchText(record.Title) && filter.matchDate(record.CreatedAt) {
			matched = append(matched, resolveInsight(s.data, record))
		}
	}
	sortedByCreation(matched,
		func(i models.Insight) time.Time { return i.CreatedAt },
		func(i models.Insight) string { return i.ID })

	return window(matched, opts, len(s.data.Insights)), nil
}

// UpdateInsight merges title and content onto an existing insight and
// replaces its author links with the resolved input list.
func (s *Storage) UpdateInsight(ctx context.Context, id string, input InsightInput) (models.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	record, ok := updated.Insights[id]
	if !ok {
		return models.Insight{}, ErrNotFound
	}
	for otherID, other := range updated.Insights {
		if otherID != id && other.Title == input.Title {
			return models.Insight{}, fmt.Errorf("insight %s: %w", input.Title, ErrConflict)
		}
	}

	authorIDs, err := s.resolveAuthorsLocked(&updated, input.Authors)
	if err != nil {
		return models.Insight{}, err
	}

	record.Title = input.Title
	record.Content = input.Content
	record.AuthorIDs = authorIDs
	record.UpdatedAt = nowUTC()

	updated.Insights[id] = record
	if err := s.persistDataset(updated); err != nil {
		return models.Insight{}, err
	}
	s.data = updated

	return resolveInsight(s.data, record), nil
}

// DeleteInsight removes the insight document. Author documents are owned
// independently and survive the delete.
func (s *Storage) DeleteInsight(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	if _, ok := updated.Insights[id]; !ok {
		return ErrNotFound
	}
	delete(updated.Insights, id)
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

// AttachInsightFile sets the uploaded media URL on the insight itself.
func (s *Storage) AttachInsightFile(ctx context.Context, id, fileURL string) (models.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	record, ok := updated.Insights[id]
	if !ok {
		return models.Insight{}, ErrNotFound
	}

	record.FileURL = &fileURL
	record.UpdatedAt = nowUTC()

	updated.Insights[id] = record
	if err := s.persistDataset(updated); err != nil {
		return models.Insight{}, err
	}
	s.data = updated

	return resolveInsight(s.data, record), nil
}

// UpdateInsightAuthor merges the author fields for an author linked to the
// given insight and returns the refreshed insight. Both documents must exist
// and the author must be referenced by the insight.
func (s *Storage) UpdateInsightAuthor(ctx context.Context, insightID, authorID string, input AuthorInput) (models.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	record, ok := updated.Insights[insightID]
	if !ok {
		return models.Insight{}, ErrNotFound
	}
	author, ok := updated.InsightAuthors[authorID]
	if !ok {
		return models.Insight{}, ErrNotFound
	}
	linked := false
	for _, id := range record.AuthorIDs {
		if id == authorID {
			linked = true
			break
		}
	}
	if !linked {
		return models.Insight{}, ErrNotFound
	}
	for otherID, other := range updated.InsightAuthors {
		if otherID != authorID && other.Email == input.Email {
			return models.Insight{}, fmt.Errorf("author %s: %w", input.Email, ErrConflict)
		}
	}

	author.FullName = input.FullName
	author.Email = input.Email
	author.UpdatedAt = nowUTC()

	updated.InsightAuthors[authorID] = author
	if err := s.persistDataset(updated); err != nil {
		return models.Insight{}, err
	}
	s.data = updated

	return resolveInsight(s.data, record), nil
}

// AttachInsightAuthorFile sets the uploaded media URL on an author document
// and returns the owning insight envelope. The author is looked up in the
// author collection directly; linkage is not re-checked on upload.
func (s *Storage) AttachInsightAuthorFile(ctx context.Context, insightID, authorID, fileURL string) (models.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	record, ok := updated.Insights[insightID]
	if !ok {
		return models.Insight{}, ErrNotFound
	}
	author, ok := updated.InsightAuthors[authorID]
	if !ok {
		return models.Insight{}, ErrNotFound
	}

	author.FileURL = &fileURL
	author.UpdatedAt = nowUTC()

	updated.InsightAuthors[authorID] = author
	if err := s.persistDataset(updated); err != nil {
		return models.Insight{}, err
	}
	s.data = updated

	return resolveInsight(s.data, record), nil
}
