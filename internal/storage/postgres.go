package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kennapartner-api/internal/models"
)

// PostgresConfig tunes the pgx pool backing the Postgres driver.
type PostgresConfig struct {
	DSN                 string
	MaxConnections      int32
	MinConnections      int32
	MaxConnLifetime     time.Duration
	MaxConnIdleTime     time.Duration
	HealthCheckInterval time.Duration
	ConnectTimeout      time.Duration
	ApplicationName     string
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository opens the Postgres-backed repository. Migrations
// must have been applied before the pool serves requests.
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	return &postgresRepository{pool: pool}, nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *postgresRepository) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// yearBounds converts the optional calendar-year filter into half-open
// window parameters; both are nil when no year filter applies.
func yearBounds(opts ListOptions) (*time.Time, *time.Time) {
	if opts.Year == nil {
		return nil, nil
	}
	start := time.Date(*opts.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	return &start, &end
}

func listOffset(opts ListOptions) (page, limit, offset int) {
	page, limit = normalizePage(opts)
	return page, limit, (page - 1) * limit
}

func (r *postgresRepository) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	if params.Password == "" {
		return models.User{}, errors.New("password is required")
	}
	hashed, err := HashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	id, err := newDocumentID()
	if err != nil {
		return models.User{}, err
	}

	now := nowUTC()
	_, err = r.pool.Exec(ctx, `
INSERT INTO users (id, username, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
`, id, username, hashed, now)
	if isUniqueViolation(err) {
		return models.User{}, fmt.Errorf("username %s: %w", username, ErrConflict)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	return models.User{ID: id, Username: username, PasswordHash: hashed, CreatedAt: now, UpdatedAt: now}, nil
}

func (r *postgresRepository) scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if isNoRows(err) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) GetUser(ctx context.Context, id string) (models.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `
SELECT id, username, password_hash, created_at, updated_at
FROM users WHERE id = $1
`, id))
}

func (r *postgresRepository) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `
SELECT id, username, password_hash, created_at, updated_at
FROM users WHERE username = $1
`, username))
}

func (r *postgresRepository) AuthenticateUser(ctx context.Context, username, password string) (models.User, error) {
	user, err := r.FindUserByUsername(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return user, nil
}
