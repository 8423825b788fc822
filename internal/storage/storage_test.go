package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Storage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	return store
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, CreateUserParams{Username: "kenna_admin_123", Password: "secure_pass_123"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated user id")
	}
	if user.PasswordHash == "secure_pass_123" {
		t.Fatal("password stored in the clear")
	}

	authed, err := store.AuthenticateUser(ctx, "kenna_admin_123", "secure_pass_123")
	if err != nil {
		t.Fatalf("AuthenticateUser: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("authenticated id = %s, want %s", authed.ID, user.ID)
	}

	if _, err := store.AuthenticateUser(ctx, "kenna_admin_123", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := store.AuthenticateUser(ctx, "nobody", "secure_pass_123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user error = %v, want ErrNotFound", err)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "kenna_admin_123", Password: "one"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "kenna_admin_123", Password: "two"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate username error = %v, want ErrConflict", err)
	}
}

func TestStoreReloadKeepsUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	first, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	ctx := context.Background()
	created, err := first.CreateUser(ctx, CreateUserParams{Username: "kenna_admin_456", Password: "secure_pass_456"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	second, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage reload: %v", err)
	}
	loaded, err := second.GetUser(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetUser after reload: %v", err)
	}
	if loaded.Username != "kenna_admin_456" {
		t.Fatalf("username after reload = %s", loaded.Username)
	}
	if _, err := second.AuthenticateUser(ctx, "kenna_admin_456", "secure_pass_456"); err != nil {
		t.Fatalf("AuthenticateUser after reload: %v", err)
	}
}

func TestPersistFailureLeavesDataUntouched(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "kept", Password: "pw"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	store.persistOverride = func(dataset) error { return errors.New("disk full") }
	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "lost", Password: "pw"}); err == nil {
		t.Fatal("expected persist failure to surface")
	}
	store.persistOverride = nil

	if _, err := store.FindUserByUsername(ctx, "lost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("user from failed persist error = %v, want ErrNotFound", err)
	}
	if _, err := store.FindUserByUsername(ctx, "kept"); err != nil {
		t.Fatalf("pre-existing user lost: %v", err)
	}
}

func TestPasswordHashRoundtrip(t *testing.T) {
	hash, err := HashPassword("secure_pass_123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "secure_pass_123"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "secure_pass_124"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("mismatch error = %v, want ErrInvalidCredentials", err)
	}
}
