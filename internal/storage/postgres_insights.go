package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"kennapartner-api/internal/models"
)

const insightColumns = "id, title, content, file_url, created_at, updated_at"

func scanInsight(row pgx.Row) (models.Insight, error) {
	var insight models.Insight
	err := row.Scan(&insight.ID, &insight.Title, &insight.Content, &insight.FileURL,
		&insight.CreatedAt, &insight.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return models.Insight{}, ErrNotFound
		}
		return models.Insight{}, fmt.Errorf("scan insight: %w", err)
	}
	return insight, nil
}

// loadInsightAuthors resolves the linked author documents in link order.
func (r *postgresRepository) loadInsightAuthors(ctx context.Context, tx pgx.Tx, insightID string) ([]models.InsightAuthor, error) {
	rows, err := tx.Query(ctx, `
SELECT a.id, a.full_name, a.email, a.file_url, a.created_at, a.updated_at
FROM insight_authors a
JOIN insight_author_links l ON l.author_id = a.id
WHERE l.insight_id = $1
ORDER BY l.position
`, insightID)
	if err != nil {
		return nil, fmt.Errorf("load insight authors: %w", err)
	}
	defer rows.Close()

	authors := make([]models.InsightAuthor, 0, 4)
	for rows.Next() {
		var author models.InsightAuthor
		if err := rows.Scan(&author.ID, &author.FullName, &author.Email, &author.FileURL,
			&author.CreatedAt, &author.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan insight author: %w", err)
		}
		authors = append(authors, author)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load insight authors: %w", err)
	}
	return authors, nil
}

// resolveAuthorsTx maps author inputs to author ids inside the transaction,
// inserting author documents for unknown emails. Duplicate emails within one
// input list collapse to a single link.
func (r *postgresRepository) resolveAuthorsTx(ctx context.Context, tx pgx.Tx, inputs []AuthorInput) ([]string, error) {
	ids := make([]string, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, input := range inputs {
		if _, dup := seen[input.Email]; dup {
			continue
		}
		seen[input.Email] = struct{}{}

		var id string
		err := tx.QueryRow(ctx, "SELECT id FROM insight_authors WHERE email = $1", input.Email).Scan(&id)
		if isNoRows(err) {
			id, err = newDocumentID()
			if err != nil {
				return nil, err
			}
			now := nowUTC()
			_, err = tx.Exec(ctx, `
INSERT INTO insight_authors (id, full_name, email, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
`, id, input.FullName, input.Email, now)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve insight author %s: %w", input.Email, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *postgresRepository) replaceAuthorLinksTx(ctx context.Context, tx pgx.Tx, insightID string, authorIDs []string) error {
	if _, err := tx.Exec(ctx, "DELETE FROM insight_author_links WHERE insight_id = $1", insightID); err != nil {
		return fmt.Errorf("clear insight author links: %w", err)
	}
	for position, authorID := range authorIDs {
		if _, err := tx.Exec(ctx, `
INSERT INTO insight_author_links (insight_id, author_id, position)
VALUES ($1, $2, $3)
`, insightID, authorID, position); err != nil {
			return fmt.Errorf("link insight author: %w", err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success.
func (r *postgresRepository) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) CreateInsight(ctx context.Context, input InsightInput) (models.Insight, error) {
	id, err := newDocumentID()
	if err != nil {
		return models.Insight{}, err
	}

	var insight models.Insight
	err = r.withTx(ctx, func(tx pgx.Tx) error {
		now := nowUTC()
		_, err := tx.Exec(ctx, `
INSERT INTO insights (id, title, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
`, id, input.Title, input.Content, now)
		if isUniqueViolation(err) {
			return fmt.Errorf("insight %s: %w", input.Title, ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert insight: %w", err)
		}

		authorIDs, err := r.resolveAuthorsTx(ctx, tx, input.Authors)
		if err != nil {
			return err
		}
		if err := r.replaceAuthorLinksTx(ctx, tx, id, authorIDs); err != nil {
			return err
		}

		authors, err := r.loadInsightAuthors(ctx, tx, id)
		if err != nil {
			return err
		}
		insight = models.Insight{
			ID:        id,
			Title:     input.Title,
			Content:   input.Content,
			Authors:   authors,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return nil
	})
	if err != nil {
		return models.Insight{}, err
	}
	return insight, nil
}

func (r *postgresRepository) GetInsight(ctx context.Context, id string) (models.Insight, error) {
	var insight models.Insight
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		insight, err = scanInsight(tx.QueryRow(ctx, "SELECT "+insightColumns+" FROM insights WHERE id = $1", id))
		if err != nil {
			return err
		}
		insight.Authors, err = r.loadInsightAuthors(ctx, tx, id)
		return err
	})
	if err != nil {
		return models.Insight{}, err
	}
	return insight, nil
}

func (r *postgresRepository) ListInsights(ctx context.Context, opts ListOptions) (ListResult[models.Insight], error) {
	page, limit, offset := listOffset(opts)
	where, args := listClauses(opts, "title", "created_at")

	query := fmt.Sprintf("SELECT %s FROM insights%s ORDER BY created_at, id OFFSET $%d LIMIT $%d",
		insightColumns, where, len(args)+1, len(args)+2)
	args = append(args, offset, listWindowSize)

	var (
		items []models.Insight
		total int
	)
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list insights: %w", err)
		}
		items = make([]models.Insight, 0, listWindowSize)
		for rows.Next() {
			insight, err := scanInsight(rows)
			if err != nil {
				rows.Close()
				return err
			}
			items = append(items, insight)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("list insights: %w", err)
		}

		for i := range items {
			items[i].Authors, err = r.loadInsightAuthors(ctx, tx, items[i].ID)
			if err != nil {
				return err
			}
		}
		return tx.QueryRow(ctx, "SELECT COUNT(*) FROM insights").Scan(&total)
	})
	if err != nil {
		return ListResult[models.Insight]{}, err
	}
	return ListResult[models.Insight]{Items: items, Page: page, Limit: limit, Total: total}, nil
}

func (r *postgresRepository) UpdateInsight(ctx context.Context, id string, input InsightInput) (models.Insight, error) {
	var insight models.Insight
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
UPDATE insights SET title = $2, content = $3, updated_at = $4 WHERE id = $1
RETURNING `+insightColumns, id, input.Title, input.Content, nowUTC())
		var err error
		insight, err = scanInsight(row)
		if isUniqueViolation(err) {
			return fmt.Errorf("insight %s: %w", input.Title, ErrConflict)
		}
		if err != nil {
			return err
		}

		authorIDs, err := r.resolveAuthorsTx(ctx, tx, input.Authors)
		if err != nil {
			return err
		}
		if err := r.replaceAuthorLinksTx(ctx, tx, id, authorIDs); err != nil {
			return err
		}
		insight.Authors, err = r.loadInsightAuthors(ctx, tx, id)
		return err
	})
	if err != nil {
		return models.Insight{}, err
	}
	return insight, nil
}

// DeleteInsight removes the insight; the link table cascades while author
// documents survive.
func (r *postgresRepository) DeleteInsight(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM insights WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete insight: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) AttachInsightFile(ctx context.Context, id, fileURL string) (models.Insight, error) {
	var insight models.Insight
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
UPDATE insights SET file_url = $2, updated_at = $3 WHERE id = $1
RETURNING `+insightColumns, id, fileURL, nowUTC())
		var err error
		insight, err = scanInsight(row)
		if err != nil {
			return err
		}
		insight.Authors, err = r.loadInsightAuthors(ctx, tx, id)
		return err
	})
	if err != nil {
		return models.Insight{}, err
	}
	return insight, nil
}

// UpdateInsightAuthor merges author fields for an author linked to the given
// insight and returns the refreshed insight. A missing link reads as not
// found.
func (r *postgresRepository) UpdateInsightAuthor(ctx context.Context, insightID, authorID string, input AuthorInput) (models.Insight, error) {
	var insight models.Insight
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var linked bool
		err := tx.QueryRow(ctx, `
SELECT EXISTS (
  SELECT 1 FROM insight_author_links WHERE insight_id = $1 AND author_id = $2
)`, insightID, authorID).Scan(&linked)
		if err != nil {
			return fmt.Errorf("check insight author link: %w", err)
		}
		if !linked {
			return ErrNotFound
		}

		tag, err := tx.Exec(ctx, `
UPDATE insight_authors SET full_name = $2, email = $3, updated_at = $4 WHERE id = $1
`, authorID, input.FullName, input.Email, nowUTC())
		if isUniqueViolation(err) {
			return fmt.Errorf("insight author %s: %w", input.Email, ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("update insight author: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		insight, err = scanInsight(tx.QueryRow(ctx, "SELECT "+insightColumns+" FROM insights WHERE id = $1", insightID))
		if err != nil {
			return err
		}
		insight.Authors, err = r.loadInsightAuthors(ctx, tx, insightID)
		return err
	})
	if err != nil {
		return models.Insight{}, err
	}
	return insight, nil
}

// AttachInsightAuthorFile sets the uploaded media URL on an author document
// and returns the owning insight envelope. The author is addressed directly;
// linkage is not re-checked on upload.
func (r *postgresRepository) AttachInsightAuthorFile(ctx context.Context, insightID, authorID, fileURL string) (models.Insight, error) {
	var insight models.Insight
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
UPDATE insight_authors SET file_url = $2, updated_at = $3 WHERE id = $1
`, authorID, fileURL, nowUTC())
		if err != nil {
			return fmt.Errorf("attach insight author file: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		insight, err = scanInsight(tx.QueryRow(ctx, "SELECT "+insightColumns+" FROM insights WHERE id = $1", insightID))
		if err != nil {
			return err
		}
		insight.Authors, err = r.loadInsightAuthors(ctx, tx, insightID)
		return err
	})
	if err != nil {
		return models.Insight{}, err
	}
	return insight, nil
}
