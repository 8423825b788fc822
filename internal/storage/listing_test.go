package storage

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func seedBooks(t *testing.T, store *Storage, count int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= count; i++ {
		input := bookInput(fmt.Sprintf("Book-%02d", i), 2020+i%3)
		if _, err := store.CreateBook(ctx, input); err != nil {
			t.Fatalf("CreateBook %d: %v", i, err)
		}
		// keep created_at strictly increasing for a stable list order
		time.Sleep(time.Millisecond)
	}
}

func TestListBooksWindowIsCappedAtTen(t *testing.T) {
	store := newTestStore(t)
	seedBooks(t, store, 15)

	result, err := store.ListBooks(context.Background(), ListOptions{Page: 1, Limit: 25})
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(result.Items) != 10 {
		t.Fatalf("window size = %d, want 10", len(result.Items))
	}
	if result.Items[0].Name != "Book-01" {
		t.Fatalf("first item = %s", result.Items[0].Name)
	}
	if result.Limit != 25 {
		t.Fatalf("limit echo = %d", result.Limit)
	}
}

func TestListBooksSkipDerivesFromRequestedLimit(t *testing.T) {
	store := newTestStore(t)
	seedBooks(t, store, 15)

	result, err := store.ListBooks(context.Background(), ListOptions{Page: 2, Limit: 3})
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	// skip = (2-1)*3 = 3; the window then spans the next ten documents
	if len(result.Items) != 10 {
		t.Fatalf("window size = %d, want 10", len(result.Items))
	}
	if result.Items[0].Name != "Book-04" {
		t.Fatalf("first item = %s, want Book-04", result.Items[0].Name)
	}
	if result.Items[9].Name != "Book-13" {
		t.Fatalf("last item = %s, want Book-13", result.Items[9].Name)
	}
	if result.Page != 2 {
		t.Fatalf("page echo = %d", result.Page)
	}
}

func TestListBooksTotalIgnoresFilters(t *testing.T) {
	store := newTestStore(t)
	seedBooks(t, store, 15)

	result, err := store.ListBooks(context.Background(), ListOptions{Page: 1, Limit: 10, Query: "book-1"})
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	// Book-10 through Book-15 match the case-insensitive pattern
	if len(result.Items) != 6 {
		t.Fatalf("matched = %d, want 6", len(result.Items))
	}
	if result.Total != 15 {
		t.Fatalf("total = %d, want unfiltered 15", result.Total)
	}
}

func TestListBooksYearFilterReadsDateField(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateBook(ctx, bookInput("Old Edition", 2019)); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if _, err := store.CreateBook(ctx, bookInput("New Edition", 2024)); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	year := 2024
	result, err := store.ListBooks(ctx, ListOptions{Page: 1, Limit: 10, Year: &year})
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Name != "New Edition" {
		t.Fatalf("year filter items = %+v", result.Items)
	}
	if result.Total != 2 {
		t.Fatalf("total = %d, want 2", result.Total)
	}
}

func TestListBooksInvalidQueryPattern(t *testing.T) {
	store := newTestStore(t)
	seedBooks(t, store, 2)

	if _, err := store.ListBooks(context.Background(), ListOptions{Page: 1, Limit: 10, Query: "("}); err == nil {
		t.Fatal("expected invalid pattern error")
	}
}

func TestListBooksPageBeyondEnd(t *testing.T) {
	store := newTestStore(t)
	seedBooks(t, store, 3)

	result, err := store.ListBooks(context.Background(), ListOptions{Page: 5, Limit: 10})
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(result.Items) != 0 {
		t.Fatalf("items past end = %d, want 0", len(result.Items))
	}
	if result.Total != 3 {
		t.Fatalf("total = %d, want 3", result.Total)
	}
}
