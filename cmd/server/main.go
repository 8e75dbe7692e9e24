package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campuscloset/marketplace/internal/adapter/httpserver"
	"github.com/campuscloset/marketplace/internal/adapter/metrics"
	"github.com/campuscloset/marketplace/internal/adapter/postgres"
	"github.com/campuscloset/marketplace/internal/adapter/redis"
	"github.com/campuscloset/marketplace/internal/app"
	"github.com/campuscloset/marketplace/internal/platform/config"
	"github.com/campuscloset/marketplace/internal/platform/crypto"
	"github.com/campuscloset/marketplace/internal/platform/logging"
	"github.com/campuscloset/marketplace/internal/platform/retry"
	"github.com/campuscloset/marketplace/internal/platform/version"
	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout  = 10 * time.Second
	dbConnectTimeout = 10 * time.Second
)

func runGracefulShutdown(srv *httpserver.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, draining requests")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// slog is not configured yet
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, observer postgres.QueryObserver) *pgxpool.Pool {
	ctx := context.Background()

	policy := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Database not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}
	pool, err := retry.Do(ctx, policy, retry.Always, func(ctx context.Context) (*pgxpool.Pool, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
		defer cancel()
		return postgres.Connect(attemptCtx, cfg.DatabaseURL, observer)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := postgres.RunMigrationsWithLock(migrateCtx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

// setupSessions returns the Redis-backed store when REDIS_URL is set and the
// cookie store otherwise. The returned client is nil without Redis.
func setupSessions(cfg *config.Config, observer redis.Observer) (sessions.Store, *goredis.Client) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, keeping sessions in signed cookies")
		return httpserver.NewCookieStore(cfg), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := redis.NewClient(ctx, cfg.RedisURL, observer)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	store := redis.NewSessionStore(client, []byte(cfg.SessionSecret))
	store.Options = httpserver.SessionOptions(cfg)
	store.MaxAge(store.Options.MaxAge)
	return store, client
}

func main() {
	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String())

	registry := metrics.NewRegistry()
	dbMetrics := metrics.NewDBMetrics(registry)
	redisMetrics := metrics.NewRedisMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	marketplaceMetrics := metrics.NewMarketplaceMetrics(registry)

	pool := setupDB(cfg, dbMetrics)
	defer pool.Close()

	sessionStore, redisClient := setupSessions(cfg, redisMetrics)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	cryptoSvc, err := crypto.New(cfg.MessageEncryptionKey)
	if err != nil {
		slog.Error("Failed to create crypto service", "error", err)
		os.Exit(1)
	}

	appSvc, err := app.NewService(
		postgres.NewUserRepo(pool),
		postgres.NewListingRepo(pool),
		postgres.NewFavoriteRepo(pool),
		postgres.NewMessageRepo(pool, cryptoSvc),
		app.Policy{
			AllowedEmailDomain: cfg.AllowedEmailDomain,
			AdminEmails:        cfg.AdminEmailList(),
			BcryptCost:         cfg.BcryptCost,
		},
		clockwork.NewRealClock(),
		app.WithMetrics(marketplaceMetrics),
	)
	if err != nil {
		slog.Error("Failed to create application service", "error", err)
		os.Exit(1)
	}

	checks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
	}
	if redisClient != nil {
		checks = append(checks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	srv, err := httpserver.NewServer(cfg, appSvc, sessionStore,
		httpserver.WithHealthChecks(checks...),
		httpserver.WithMetrics(metrics.Handler(registry), httpMetrics.Middleware()),
	)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
