// Package main is the background worker. It relays the outbox of every
// tenant into asynq, processes the resulting tasks and runs periodic
// maintenance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"taller/internal/config"
	"taller/internal/core/tenant"
	"taller/internal/domain/catalogs/vehicle"
	"taller/internal/infrastructure/jobs"
	"taller/internal/infrastructure/storage/postgres"
	"taller/internal/infrastructure/storage/postgres/auth_repo"
	"taller/internal/infrastructure/storage/postgres/catalog_repo"
	"taller/pkg/logger"
)

const maintenanceInterval = time.Hour

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
	ctx = logger.WithLogger(ctx, log.WithComponent("worker"))

	log.Info("starting taller multi-tenant worker")

	metaPool, err := pgxpool.New(ctx, cfg.MetaDatabaseURL)
	if err != nil {
		log.Fatalw("failed to connect to meta database", "error", err)
	}
	defer metaPool.Close()

	managerCfg := cfg.TenantManager()
	managerCfg.PoolIdleTimeout = 10 * time.Minute // shorter than the API server
	manager := tenant.NewManager(managerCfg, tenant.NewPostgresRegistry(metaPool), log)
	defer manager.Close()

	scope := postgres.TenantScope{Manager: manager}
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	client := asynq.NewClient(redisOpt)
	defer func() { _ = client.Close() }()

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{jobs.QueueDefault: 1},
	})
	mux := asynq.NewServeMux()
	jobs.NewHandlers(scope, vehicle.NewService(catalog_repo.NewVehicleRepo())).Register(mux)
	if err := srv.Start(mux); err != nil {
		log.Fatalw("failed to start task server", "error", err)
	}

	poller := jobs.NewOutboxPoller(jobs.PollerConfig{
		Interval:  cfg.OutboxInterval,
		BatchSize: cfg.OutboxBatchSize,
		Retention: jobs.DefaultPollerConfig().Retention,
	}, manager, scope, jobs.NewDispatcher(client))

	m := &maintenance{
		tenants:     manager,
		scope:       scope,
		tokens:      auth_repo.NewTokenRepo(),
		idempotency: postgres.NewIdempotencyStore(cfg.IdempotencyTTL),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return poller.Run(gctx) })
	g.Go(func() error { return m.Run(gctx) })

	<-ctx.Done()
	log.Info("shutting down worker...")

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Errorw("worker loop failed", "error", err)
	}
	srv.Shutdown()
	log.Info("worker stopped")
}

// maintenance deletes expired refresh tokens and idempotency keys of every
// active tenant.
type maintenance struct {
	tenants     jobs.TenantLister
	scope       jobs.TenantRunner
	tokens      *auth_repo.TokenRepo
	idempotency *postgres.IdempotencyStore
}

func (m *maintenance) Run(ctx context.Context) error {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()
	for {
		m.sweep(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *maintenance) sweep(ctx context.Context) {
	tenants, err := m.tenants.GetActiveTenants(ctx)
	if err != nil {
		logger.Error(ctx, "failed to list active tenants", "error", err)
		return
	}
	for _, t := range tenants {
		err := m.scope.Run(ctx, t.ID, func(ctx context.Context) error {
			tokens, err := m.tokens.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			keys, err := m.idempotency.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if tokens > 0 || keys > 0 {
				logger.Info(ctx, "maintenance done", "tenant_id", t.ID, "refresh_tokens", tokens, "idempotency_keys", keys)
			}
			return nil
		})
		if err != nil {
			logger.Warn(ctx, "maintenance failed", "tenant_id", t.ID, "error", err)
		}
	}
}
