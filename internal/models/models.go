// Package models defines the documents persisted by the repository layer.
package models

import "time"

// User is a credential record. The password hash never leaves the process:
// it is excluded from JSON so API envelopes cannot leak it.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Book is a catalogue entry. Name acts as the natural key for uniqueness
// checks; FileURL stays nil until a media upload is attached.
type Book struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Introduction string    `json:"introduction"`
	Preface      string    `json:"preface"`
	Foreword     string    `json:"foreword"`
	Author       string    `json:"author"`
	Date         time.Time `json:"date"`
	FileURL      *string   `json:"file_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// News is a published announcement keyed by its title.
type News struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	FileURL   *string   `json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InsightAuthor is an independently stored author document. Email is the
// natural dedup key used when insights resolve their author list. Authors
// outlive the insights that reference them.
type InsightAuthor struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	FileURL   *string   `json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Insight is an article keyed by title that holds weak references to author
// documents. The repository stores author ids and resolves them to full
// documents on read; deleting an insight never deletes its authors.
type Insight struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	FileURL   *string         `json:"file_url"`
	Authors   []InsightAuthor `json:"authors"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
