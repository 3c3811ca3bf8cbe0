package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agus-dev/shortlink-api/internal/adapters/httpapi"
	memredirectrepo "github.com/agus-dev/shortlink-api/internal/adapters/memory/redirectrepo"
	memtokencache "github.com/agus-dev/shortlink-api/internal/adapters/memory/tokencache"
	postgres "github.com/agus-dev/shortlink-api/internal/adapters/postgres"
	pgredirectrepo "github.com/agus-dev/shortlink-api/internal/adapters/postgres/redirectrepo"
	redistokencache "github.com/agus-dev/shortlink-api/internal/adapters/redis/tokencache"
	"github.com/agus-dev/shortlink-api/internal/app/redirects"
	"github.com/agus-dev/shortlink-api/internal/platform/auth/introspect"
	platformclock "github.com/agus-dev/shortlink-api/internal/platform/clock"
	"github.com/agus-dev/shortlink-api/internal/platform/config"
	redirectrepoport "github.com/agus-dev/shortlink-api/internal/ports/out/redirectrepo"
	tokencacheport "github.com/agus-dev/shortlink-api/internal/ports/out/tokencache"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	clk := platformclock.NewSystemClock()

	// Storage backend:
	// - Production: STORAGE_BACKEND=postgres with DATABASE_URL
	// - Local dev: in-memory (default)
	storageBackend := getenv("STORAGE_BACKEND", "memory")
	var (
		repo    redirectrepoport.Repository
		cleanup func()
	)
	switch storageBackend {
	case "postgres":
		pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			log.Fatalf("invalid postgres config: %v", err)
		}
		if err := postgres.Migrate(context.Background(), pool); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		cleanup = pool.Close
		repo = pgredirectrepo.NewRepo(pool)
	default:
		repo = memredirectrepo.NewRepo()
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Token cache: Redis when configured, in-process otherwise.
	var cache tokencacheport.Cache
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(redisOpts)
		defer func() { _ = rdb.Close() }()
		cache = redistokencache.NewCache(rdb)
	} else {
		cache = memtokencache.NewCache()
	}

	verifier := introspect.New(introspect.Config{
		Host:         cfg.SSOHost,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
	}, cache, logger)

	// Auth configuration:
	// - Production: introspect bearer tokens against the SSO
	// - Local dev: set AUTH_MODE=dev to bypass the SSO and use X-Debug-Email
	var authMW func(http.Handler) http.Handler
	switch getenv("AUTH_MODE", "sso") {
	case "dev":
		authMW = httpapi.NewDevAuthMiddleware(getenv("DEV_EMAIL", "dev@localhost"))
	default:
		authMW = httpapi.NewAuthMiddleware(verifier, logger)
	}

	svc := redirects.NewService(repo, clk)
	api := httpapi.NewServer(svc, verifier, logger)
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api listening", "port", cfg.Port, "storage", storageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// Drain any still-in-flight token cache writes before exit.
	verifier.Flush()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
