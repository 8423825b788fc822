package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func bookInput(name string, year int) BookInput {
	return BookInput{
		Name:         name,
		Introduction: "intro",
		Preface:      "preface",
		Foreword:     "foreword",
		Author:       "Kenna Partners",
		Date:         time.Date(year, time.March, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestBookLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateBook(ctx, bookInput("Litigation Handbook", 2023))
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if created.FileURL != nil {
		t.Fatal("new book should have no file url")
	}

	fetched, err := store.GetBook(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if fetched.Name != "Litigation Handbook" {
		t.Fatalf("name = %s", fetched.Name)
	}

	updated, err := store.UpdateBook(ctx, created.ID, bookInput("Litigation Handbook 2nd Ed", 2024))
	if err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	if updated.Name != "Litigation Handbook 2nd Ed" {
		t.Fatalf("updated name = %s", updated.Name)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("update must preserve created_at")
	}

	withFile, err := store.AttachBookFile(ctx, created.ID, "https://media.example.com/books/cover.pdf")
	if err != nil {
		t.Fatalf("AttachBookFile: %v", err)
	}
	if withFile.FileURL == nil || *withFile.FileURL != "https://media.example.com/books/cover.pdf" {
		t.Fatalf("file url = %v", withFile.FileURL)
	}
	if withFile.Name != "Litigation Handbook 2nd Ed" {
		t.Fatal("attach must not touch other fields")
	}

	if err := store.DeleteBook(ctx, created.ID); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}
	if _, err := store.GetBook(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteBook(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestCreateBookDuplicateName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateBook(ctx, bookInput("Annual Review", 2023)); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if _, err := store.CreateBook(ctx, bookInput("Annual Review", 2024)); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate name error = %v, want ErrConflict", err)
	}
}

func TestNewsLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateNews(ctx, NewsInput{Title: "Firm expands", Content: "body"})
	if err != nil {
		t.Fatalf("CreateNews: %v", err)
	}
	if _, err := store.CreateNews(ctx, NewsInput{Title: "Firm expands", Content: "other"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate title error = %v, want ErrConflict", err)
	}

	updated, err := store.UpdateNews(ctx, created.ID, NewsInput{Title: "Firm expands again", Content: "new body"})
	if err != nil {
		t.Fatalf("UpdateNews: %v", err)
	}
	if updated.Content != "new body" {
		t.Fatalf("content = %s", updated.Content)
	}

	if _, err := store.AttachNewsFile(ctx, created.ID, "https://media.example.com/news/photo.png"); err != nil {
		t.Fatalf("AttachNewsFile: %v", err)
	}

	if err := store.DeleteNews(ctx, created.ID); err != nil {
		t.Fatalf("DeleteNews: %v", err)
	}
	if _, err := store.GetNews(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete error = %v, want ErrNotFound", err)
	}
}
