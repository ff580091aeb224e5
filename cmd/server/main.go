// Package main is the entry point of the workshop API server.
// Multi-tenant architecture: Database-per-Tenant.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"taller/internal/config"
	"taller/internal/core/tenant"
	"taller/internal/domain/auth"
	"taller/internal/infrastructure/cache"
	v1 "taller/internal/infrastructure/http/v1"
	"taller/internal/infrastructure/numerator"
	"taller/internal/infrastructure/storage"
	"taller/internal/infrastructure/storage/postgres"
	"taller/internal/infrastructure/storage/postgres/auth_repo"
	"taller/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting taller server", "version", version, "env", cfg.AppEnv)

	// --- Meta-database connection ---
	metaPool, err := pgxpool.New(ctx, cfg.MetaDatabaseURL)
	if err != nil {
		log.Fatalw("failed to connect to meta database", "error", err)
	}
	defer metaPool.Close()

	if err := metaPool.Ping(ctx); err != nil {
		log.Fatalw("failed to ping meta database", "error", err)
	}

	// --- Tenant Registry and Manager ---
	registry := tenant.NewPostgresRegistry(metaPool)
	managerCfg := cfg.TenantManager()
	tenantManager := tenant.NewManager(managerCfg, registry, log)
	defer tenantManager.Close()

	log.Infow("tenant manager initialized",
		"max_pools", managerCfg.MaxTotalPools,
		"max_conns_per_tenant", managerCfg.MaxConnsPerTenant,
		"idle_timeout", managerCfg.PoolIdleTimeout,
	)

	if cfg.TenantDB.Prewarm {
		if err := tenantManager.PrewarmPools(ctx); err != nil {
			log.Warnw("failed to prewarm some pools", "error", err)
		}
	}

	// --- Redis: settings cache and rate limit counters ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warnw("redis unavailable, settings are read from the meta database", "error", err)
	}

	settings := cache.NewSettingsCache(rdb, cache.RegistryLoader{Registry: registry}, cfg.SettingsCacheTTL)
	listener := cache.NewSettingsListener(metaPool, settings)
	listener.Start(ctx)
	defer listener.Stop()

	// --- Auth ---
	jwtService := auth.NewJWTService(cfg.JWT())
	authService := auth.NewService(
		auth_repo.NewUserRepo(),
		auth_repo.NewTokenRepo(),
		nil, // tenant TxManager comes from the request context
		jwtService,
		auth.DefaultServiceConfig(),
	)

	photos, err := storage.NewLocalPhotoStore(cfg.PhotoDir, cfg.PhotoMaxBytes)
	if err != nil {
		log.Fatalw("failed to prepare photo directory", "dir", cfg.PhotoDir, "error", err)
	}

	auditService, err := postgres.NewAuditService()
	if err != nil {
		log.Fatalw("failed to build audit service", "error", err)
	}

	// --- Router ---
	router, err := v1.NewRouter(v1.RouterConfig{
		Version:       version,
		TenantManager: tenantManager,
		MetaPool:      metaPool,
		Redis:         rdb,
		Logger:        log,
		JWTValidator:  jwtService,
		AuthService:   authService,
		Numerator:     numerator.New(),
		Settings:      settings,
		Photos:        photos,
		Audit:         auditService,
		Idempotency:   postgres.NewIdempotencyStore(cfg.IdempotencyTTL),
		AuthRate:      cfg.AuthRateLimit,
		MutationRate:  cfg.RateLimit,
	})
	if err != nil {
		log.Fatalw("failed to build router", "error", err)
	}

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  2 * cfg.WriteTimeout,
	}

	go func() {
		log.Infow("server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	log.Info("server stopped")
}
