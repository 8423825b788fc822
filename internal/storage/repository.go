// Package storage persists the document collections behind the API: user
// credentials, books, news, and insights with their author references. Two
// drivers implement the same contract: a JSON-file-backed in-memory store for
// development and tests, and a Postgres repository for deployments.
package storage

import (
	"context"
	"errors"
	"time"

	"kennapartner-api/internal/models"
)

var (
	// ErrNotFound is returned when a document id (or username) does not
	// resolve. Malformed ids are reported the same way.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a create would duplicate a natural key.
	ErrConflict = errors.New("document already exists")
	// ErrInvalidCredentials is returned on a password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CreateUserParams captures the attributes required to create a credential
// record. The password is hashed before it reaches the store.
type CreateUserParams struct {
	Username string
	Password string
}

// BookInput carries the writable fields of a book document.
type BookInput struct {
	Name         string
	Introduction string
	Preface      string
	Foreword     string
	Author       string
	Date         time.Time
}

// NewsInput carries the writable fields of a news document.
type NewsInput struct {
	Title   string
	Content string
}

// AuthorInput identifies an insight author by its natural key. Creation
// resolves each input against the author collection by email, inserting a new
// author document only when no match exists.
type AuthorInput struct {
	FullName string
	Email    string
}

// InsightInput carries the writable fields of an insight document together
// with its author list.
type InsightInput struct {
	Title   string
	Content string
	Authors []AuthorInput
}

// ListOptions is the shared list/filter/paginate protocol for all
// collections. Page is 1-based. Query applies a case-insensitive regex to the
// collection's primary text field; Year restricts to a calendar year on the
// collection's date field (books) or created_at (news, insights).
type ListOptions struct {
	Page  int
	Limit int
	Year  *int
	Query string
}

// listWindowSize caps every result window at ten documents regardless of the
// requested limit; the skip offset still derives from the requested limit.
// Existing API clients depend on this exact windowing, so both drivers
// reproduce it.
const listWindowSize = 10

// ListResult pairs a result window with its paging echo. Total always counts
// the whole collection, not the filtered subset; clients read it as the
// collection size.
type ListResult[T any] struct {
	Items []T
	Page  int
	Limit int
	Total int
}

// Repository exposes the datastore operations required by the API handlers
// and the seeding tool.
type Repository interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	FindUserByUsername(ctx context.Context, username string) (models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (models.User, error)

	CreateBook(ctx context.Context, input BookInput) (models.Book, error)
	GetBook(ctx context.Context, id string) (models.Book, error)
	ListBooks(ctx context.Context, opts ListOptions) (ListResult[models.Book], error)
	UpdateBook(ctx context.Context, id string, input BookInput) (models.Book, error)
	DeleteBook(ctx context.Context, id string) error
	AttachBookFile(ctx context.Context, id, fileURL string) (models.Book, error)

	CreateNews(ctx context.Context, input NewsInput) (models.News, error)
	GetNews(ctx context.Context, id string) (models.News, error)
	ListNews(ctx context.Context, opts ListOptions) (ListResult[models.News], error)
	UpdateNews(ctx context.Context, id string, input NewsInput) (models.News, error)
	DeleteNews(ctx context.Context, id string) error
	AttachNewsFile(ctx context.Context, id, fileURL string) (models.News, error)

	CreateInsight(ctx context.Context, input InsightInput) (models.Insight, error)
	GetInsight(ctx context.Context, id string) (models.Insight, error)
	ListInsights(ctx context.Context, opts ListOptions) (ListResult[models.Insight], error)
	UpdateInsight(ctx context.Context, id string, input InsightInput) (models.Insight, error)
	DeleteInsight(ctx context.Context, id string) error
	AttachInsightFile(ctx context.Context, id, fileURL string) (models.Insight, error)
	UpdateInsightAuthor(ctx context.Context, insightID, authorID string, input AuthorInput) (models.Insight, error)
	AttachInsightAuthorFile(ctx context.Context, insightID, authorID, fileURL string) (models.Insight, error)
}
