// Command server starts the Kenna Partners content API HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"kennapartner-api/internal/api"
	"kennapartner-api/internal/auth"
	"kennapartner-api/internal/migrate"
	"kennapartner-api/internal/observability/logging"
	"kennapartner-api/internal/observability/metrics"
	"kennapartner-api/internal/server"
	"kennapartner-api/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	dataPath := flag.String("data", "", "path to JSON datastore")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	accessTTL := flag.Duration("token-access-ttl", 0, "access token lifetime")
	refreshTTL := flag.Duration("token-refresh-ttl", 0, "refresh token lifetime")
	mediaEndpoint := flag.String("media-endpoint", "", "S3-compatible media host endpoint")
	mediaPublicEndpoint := flag.String("media-public-endpoint", "", "public base URL for uploaded media")
	mediaRegion := flag.String("media-region", "", "media host region")
	mediaBucket := flag.String("media-bucket", "", "media bucket name")
	mediaKeyPrefix := flag.String("media-key-prefix", "", "key prefix for uploaded media objects")
	uploadMaxBytes := flag.Int64("upload-max-bytes", 0, "maximum accepted upload size in bytes")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis operations")
	corsOrigins := flag.String("cors-origins", "", "comma separated origins allowed cross-domain access")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("KENNAPARTNER_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("KENNAPARTNER_LOG_FORMAT")),
	})
	auditLogger := logging.WithComponent(logger, "audit")

	ctx := context.Background()

	jwtSecret := strings.TrimSpace(os.Getenv("KENNAPARTNER_JWT_SECRET"))
	if jwtSecret == "" {
		logger.Error("KENNAPARTNER_JWT_SECRET is required")
		os.Exit(1)
	}
	tokens, err := auth.NewTokenManager([]byte(jwtSecret),
		resolveDuration(*accessTTL, "KENNAPARTNER_TOKEN_ACCESS_TTL", 0),
		resolveDuration(*refreshTTL, "KENNAPARTNER_TOKEN_REFRESH_TTL", 0))
	if err != nil {
		logger.Error("failed to initialise token manager", "error", err)
		os.Exit(1)
	}

	dsn := strings.TrimSpace(firstNonEmpty(*postgresDSN, os.Getenv("KENNAPARTNER_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
	driver, err := resolveStorageDriver(*storageDriver, os.Getenv("KENNAPARTNER_STORAGE_DRIVER"), dsn)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}

	var store storage.Repository
	switch driver {
	case "json":
		dataFile := firstNonEmpty(*dataPath, os.Getenv("KENNAPARTNER_DATA"), "data/store.json")
		jsonStore, err := storage.NewStorage(dataFile)
		if err != nil {
			logger.Error("failed to open datastore", "error", err, "path", dataFile)
			os.Exit(1)
		}
		store = jsonStore
		logger.Info("using JSON datastore", "path", dataFile)
	case "postgres":
		if dsn == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		if err := migrate.Up(ctx, dsn); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		pgStore, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
			DSN:                 dsn,
			MaxConnections:      int32(resolveInt(*postgresMaxConns, "KENNAPARTNER_POSTGRES_MAX_CONNS")),
			MinConnections:      int32(resolveInt(*postgresMinConns, "KENNAPARTNER_POSTGRES_MIN_CONNS")),
			MaxConnLifetime:     resolveDuration(*postgresMaxConnLifetime, "KENNAPARTNER_POSTGRES_MAX_CONN_LIFETIME", 0),
			MaxConnIdleTime:     resolveDuration(*postgresMaxConnIdle, "KENNAPARTNER_POSTGRES_MAX_CONN_IDLE", 0),
			HealthCheckInterval: resolveDuration(*postgresHealthInterval, "KENNAPARTNER_POSTGRES_HEALTH_INTERVAL", 0),
			ApplicationName:     "kennapartner-api",
		})
		if err != nil {
			logger.Error("failed to open postgres datastore", "error", err)
			os.Exit(1)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = pgStore.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Error("failed to reach postgres", "error", err)
			os.Exit(1)
		}
		store = pgStore
		logger.Info("using Postgres datastore")
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}

	media, err := storage.NewMediaStore(ctx, storage.MediaConfig{
		Endpoint:       firstNonEmpty(*mediaEndpoint, os.Getenv("KENNAPARTNER_MEDIA_ENDPOINT")),
		PublicEndpoint: firstNonEmpty(*mediaPublicEndpoint, os.Getenv("KENNAPARTNER_MEDIA_PUBLIC_ENDPOINT")),
		Region:         firstNonEmpty(*mediaRegion, os.Getenv("KENNAPARTNER_MEDIA_REGION")),
		Bucket:         firstNonEmpty(*mediaBucket, os.Getenv("KENNAPARTNER_MEDIA_BUCKET")),
		AccessKey:      os.Getenv("KENNAPARTNER_MEDIA_ACCESS_KEY"),
		SecretKey:      os.Getenv("KENNAPARTNER_MEDIA_SECRET_KEY"),
		KeyPrefix:      firstNonEmpty(*mediaKeyPrefix, os.Getenv("KENNAPARTNER_MEDIA_KEY_PREFIX")),
	})
	if err != nil {
		logger.Error("failed to initialise media storage", "error", err)
		os.Exit(1)
	}
	if !media.Enabled() {
		logger.Warn("media storage not configured, uploads will be rejected")
	}

	handler := api.NewHandler(store, tokens, media, logging.WithComponent(logger, "api"))
	if maxBytes := resolveInt64(*uploadMaxBytes, "KENNAPARTNER_UPLOAD_MAX_BYTES"); maxBytes > 0 {
		handler.Uploads.MaxBytes = maxBytes
	}

	recorder := metrics.Default()
	listenAddr := firstNonEmpty(*addr, os.Getenv("KENNAPARTNER_ADDR"), ":8080")

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("KENNAPARTNER_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("KENNAPARTNER_TLS_KEY")),
		},
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     resolveFloat(*globalRPS, "KENNAPARTNER_RATE_GLOBAL_RPS"),
			GlobalBurst:   resolveInt(*globalBurst, "KENNAPARTNER_RATE_GLOBAL_BURST"),
			LoginLimit:    resolveInt(*loginLimit, "KENNAPARTNER_RATE_LOGIN_LIMIT"),
			LoginWindow:   resolveDuration(*loginWindow, "KENNAPARTNER_RATE_LOGIN_WINDOW", time.Minute),
			RedisAddr:     firstNonEmpty(*redisAddr, os.Getenv("KENNAPARTNER_RATE_REDIS_ADDR")),
			RedisPassword: firstNonEmpty(*redisPassword, os.Getenv("KENNAPARTNER_RATE_REDIS_PASSWORD")),
			RedisTimeout:  resolveDuration(*redisTimeout, "KENNAPARTNER_RATE_REDIS_TIMEOUT", 2*time.Second),
		},
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("KENNAPARTNER_CORS_ORIGINS"))),
		},
		Logger:      logger,
		AuditLogger: auditLogger,
		Metrics:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("Kenna Partners API listening", "addr", listenAddr, "driver", driver)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errs:
		logger.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Warn("failed to close datastore", "error", err)
	}

	logger.Info("server stopped")
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, nil
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres", nil
	}
	return "json", nil
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

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt64(flagValue int64, envKey string) int64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseInt(strings.TrimSpace(env), 10, 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	return fallback
}
