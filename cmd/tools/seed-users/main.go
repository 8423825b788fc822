// Command seed-users provisions the admin accounts that can mutate the
// content API. It writes through the same repository as the server, so it
// works against both the JSON datastore and Postgres.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"kennapartner-api/internal/migrate"
	"kennapartner-api/internal/storage"
)

type seedAccount struct {
	username string
	password string
}

func defaultAccounts() []seedAccount {
	return []seedAccount{
		{username: "kenna_admin_123", password: "secure_pass_123"},
		{username: "kenna_admin_456", password: "secure_pass_456"},
	}
}

func main() {
	dataPath := flag.String("data", "", "path to JSON datastore")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	username := flag.String("username", "", "seed a single account with this username instead of the defaults")
	password := flag.String("password", "", "password for the single account")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := openStore(ctx, *dataPath, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed-users: %v\n", err)
		os.Exit(1)
	}
	defer store.Close(context.Background())

	accounts := defaultAccounts()
	if strings.TrimSpace(*username) != "" {
		if strings.TrimSpace(*password) == "" {
			fmt.Fprintln(os.Stderr, "seed-users: -password is required with -username")
			os.Exit(1)
		}
		accounts = []seedAccount{{username: *username, password: *password}}
	}

	failed := false
	for _, account := range accounts {
		user, err := store.CreateUser(ctx, storage.CreateUserParams{
			Username: account.username,
			Password: account.password,
		})
		switch {
		case err == nil:
			fmt.Printf("created user %s (id %s)\n", user.Username, user.ID)
		case errors.Is(err, storage.ErrConflict):
			fmt.Printf("user %s already exists, skipping\n", account.username)
		default:
			fmt.Fprintf(os.Stderr, "seed-users: create %s: %v\n", account.username, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func openStore(ctx context.Context, dataPath, postgresDSN string) (storage.Repository, error) {
	dsn := strings.TrimSpace(firstNonEmpty(postgresDSN, os.Getenv("KENNAPARTNER_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
	if dsn != "" {
		if err := migrate.Up(ctx, dsn); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		return storage.NewPostgresRepository(ctx, storage.PostgresConfig{
			DSN:             dsn,
			ApplicationName: "kennapartner-seed-users",
		})
	}
	path := firstNonEmpty(dataPath, os.Getenv("KENNAPARTNER_DATA"), "data/store.json")
	return storage.NewStorage(path)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
