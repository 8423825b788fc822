package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"kennapartner-api/internal/models"
)

// listClauses assembles the shared filter WHERE fragment: a case-insensitive
// regex on textColumn and a calendar-year window on dateColumn. Postgres
// validates the regex at query time, matching the memory driver's
// compile-on-list behaviour.
func listClauses(opts ListOptions, textColumn, dateColumn string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if opts.Query != "" {
		args = append(args, opts.Query)
		conds = append(conds, fmt.Sprintf("%s ~* $%d", textColumn, len(args)))
	}
	if start, end := yearBounds(opts); start != nil {
		args = append(args, *start, *end)
		conds = append(conds, fmt.Sprintf("%s >= $%d AND %s < $%d", dateColumn, len(args)-1, dateColumn, len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *postgresRepository) collectionTotal(ctx context.Context, table string) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

func (r *postgresRepository) CreateBook(ctx context.Context, input BookInput) (models.Book, error) {
	id, err := newDocumentID()
	if err != nil {
		return models.Book{}, err
	}

	now := nowUTC()
	_, err = r.pool.Exec(ctx, `
INSERT INTO books (id, name, introduction, preface, foreword, author, date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
`, id, input.Name, input.Introduction, input.Preface, input.Foreword, input.Author, input.Date, now)
	if isUniqueViolation(err) {
		return models.Book{}, fmt.Errorf("book %s: %w", input.Name, ErrConflict)
	}
	if err != nil {
		return models.Book{}, fmt.Errorf("insert book: %w", err)
	}

	return models.Book{
		ID:           id,
		Name:         input.Name,
		Introduction: input.Introduction,
		Preface:      input.Preface,
		Foreword:     input.Foreword,
		Author:       input.Author,
		Date:         input.Date,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func scanBook(row pgx.Row) (models.Book, error) {
	var book models.Book
	err := row.Scan(&book.ID, &book.Name, &book.Introduction, &book.Preface, &book.Foreword,
		&book.Author, &book.Date, &book.FileURL, &book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return models.Book{}, ErrNotFound
		}
		return models.Book{}, fmt.Errorf("scan book: %w", err)
	}
	return book, nil
}

const bookColumns = "id, name, introduction, preface, foreword, author, date, file_url, created_at, updated_at"

func (r *postgresRepository) GetBook(ctx context.Context, id string) (models.Book, error) {
	return scanBook(r.pool.QueryRow(ctx, "SELECT "+bookColumns+" FROM books WHERE id = $1", id))
}

func (r *postgresRepository) ListBooks(ctx context.Context, opts ListOptions) (ListResult[models.Book], error) {
	page, limit, offset := listOffset(opts)
	where, args := listClauses(opts, "name", "date")

	query := fmt.Sprintf("SELECT %s FROM books%s ORDER BY created_at, id OFFSET $%d LIMIT $%d",
		bookColumns, where, len(args)+1, len(args)+2)
	args = append(args, offset, listWindowSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return ListResult[models.Book]{}, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	items := make([]models.Book, 0, listWindowSize)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return ListResult[models.Book]{}, err
		}
		items = append(items, book)
	}
	if err := rows.Err(); err != nil {
		return ListResult[models.Book]{}, fmt.Errorf("list books: %w", err)
	}

	total, err := r.collectionTotal(ctx, "books")
	if err != nil {
		return ListResult[models.Book]{}, err
	}
	return ListResult[models.Book]{Items: items, Page: page, Limit: limit, Total: total}, nil
}

func (r *postgresRepository) UpdateBook(ctx context.Context, id string, input BookInput) (models.Book, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE books
SET name = $2, introduction = $3, preface = $4, foreword = $5, author = $6, date = $7, updated_at = $8
WHERE id = $1
RETURNING `+bookColumns, id, input.Name, input.Introduction, input.Preface, input.Foreword, input.Author, input.Date, nowUTC())
	book, err := scanBook(row)
	if isUniqueViolation(err) {
		return models.Book{}, fmt.Errorf("book %s: %w", input.Name, ErrConflict)
	}
	return book, err
}

func (r *postgresRepository) DeleteBook(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM books WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) AttachBookFile(ctx context.Context, id, fileURL string) (models.Book, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE books SET file_url = $2, updated_at = $3 WHERE id = $1
RETURNING `+bookColumns, id, fileURL, nowUTC())
	return scanBook(row)
}

func (r *postgresRepository) CreateNews(ctx context.Context, input NewsInput) (models.News, error) {
	id, err := newDocumentID()
	if err != nil {
		return models.News{}, err
	}

	now := nowUTC()
	_, err = r.pool.Exec(ctx, `
INSERT INTO news (id, title, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
`, id, input.Title, input.Content, now)
	if isUniqueViolation(err) {
		return models.News{}, fmt.Errorf("news %s: %w", input.Title, ErrConflict)
	}
	if err != nil {
		return models.News{}, fmt.Errorf("insert news: %w", err)
	}

	return models.News{ID: id, Title: input.Title, Content: input.Content, CreatedAt: now, UpdatedAt: now}, nil
}

func scanNews(row pgx.Row) (models.News, error) {
	var item models.News
	err := row.Scan(&item.ID, &item.Title, &item.Content, &item.FileURL, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return models.News{}, ErrNotFound
		}
		return models.News{}, fmt.Errorf("scan news: %w", err)
	}
	return item, nil
}

const newsColumns = "id, title, content, file_url, created_at, updated_at"

func (r *postgresRepository) GetNews(ctx context.Context, id string) (models.News, error) {
	return scanNews(r.pool.QueryRow(ctx, "SELECT "+newsColumns+" FROM news WHERE id = $1", id))
}

func (r *postgresRepository) ListNews(ctx context.Context, opts ListOptions) (ListResult[models.News], error) {
	page, limit, offset := listOffset(opts)
	where, args := listClauses(opts, "title", "created_at")

	query := fmt.Sprintf("SELECT %s FROM news%s ORDER BY created_at, id OFFSET $%d LIMIT $%d",
		newsColumns, where, len(args)+1, len(args)+2)
	args = append(args, offset, listWindowSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return ListResult[models.News]{}, fmt.Errorf("list news: %w", err)
	}
	defer rows.Close()

	items := make([]models.News, 0, listWindowSize)
	for rows.Next() {
		item, err := scanNews(rows)
		if err != nil {
			return ListResult[models.News]{}, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return ListResult[models.News]{}, fmt.Errorf("list news: %w", err)
	}

	total, err := r.collectionTotal(ctx, "news")
	if err != nil {
		return ListResult[models.News]{}, err
	}
	return ListResult[models.News]{Items: items, Page: page, Limit: limit, Total: total}, nil
}

func (r *postgresRepository) UpdateNews(ctx context.Context, id string, input NewsInput) (models.News, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE news SET title = $2, content = $3, updated_at = $4 WHERE id = $1
RETURNING `+newsColumns, id, input.Title, input.Content, nowUTC())
	item, err := scanNews(row)
	if isUniqueViolation(err) {
		return models.News{}, fmt.Errorf("news %s: %w", input.Title, ErrConflict)
	}
	return item, err
}

func (r *postgresRepository) DeleteNews(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM news WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete news: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) AttachNewsFile(ctx context.Context, id, fileURL string) (models.News, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE news SET file_url = $2, updated_at = $3 WHERE id = $1
RETURNING `+newsColumns, id, fileURL, nowUTC())
	return scanNews(row)
}
