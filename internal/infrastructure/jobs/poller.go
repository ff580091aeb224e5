package jobs

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"taller/internal/core/tenant"
	"taller/internal/infrastructure/storage/postgres"
	"taller/pkg/logger"
)

type TenantLister interface {
	GetActiveTenants(ctx context.Context) ([]*tenant.Tenant, error)
}

type PollerConfig struct {
	Interval    time.Duration
	BatchSize   int
	Parallelism int
	// Retention of published messages; zero keeps them.
	Retention time.Duration
}

func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:    2 * time.Second,
		BatchSize:   100,
		Parallelism: 4,
		Retention:   7 * 24 * time.Hour,
	}
}

// OutboxPoller drains the outbox of every active tenant on each tick.
type OutboxPoller struct {
	cfg     PollerConfig
	tenants TenantLister
	runner  TenantRunner
	handler postgres.OutboxHandler
}

func NewOutboxPoller(cfg PollerConfig, tenants TenantLister, runner TenantRunner, handler postgres.OutboxHandler) *OutboxPoller {
	def := DefaultPollerConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = def.Parallelism
	}
	return &OutboxPoller{cfg: cfg, tenants: tenants, runner: runner, handler: handler}
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := p.Tick(ctx); err != nil && ctx.Err() == nil {
			logger.Warn(ctx, "outbox poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick processes one batch per tenant. A failing tenant is logged and does
// not stop the others.
func (p *OutboxPoller) Tick(ctx context.Context) error {
	tenants, err := p.tenants.GetActiveTenants(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Parallelism)
	for _, t := range tenants {
		tenantID := t.ID
		g.Go(func() error {
			err := p.runner.Run(gctx, tenantID, func(ctx context.Context) error {
				return p.drain(ctx)
			})
			if err != nil {
				logger.Warn(gctx, "outbox relay failed", "tenant_id", tenantID, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *OutboxPoller) drain(ctx context.Context) error {
	relay := postgres.NewOutboxRelay(postgres.MustGetTxManager(ctx), p.cfg.BatchSize, p.handler)
	n, err := relay.ProcessBatch(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Debug(ctx, "outbox messages relayed", "count", n)
	}
	if p.cfg.Retention > 0 {
		if _, err := relay.PurgePublished(ctx, time.Now().Add(-p.cfg.Retention)); err != nil {
			return err
		}
	}
	return nil
}
