package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"taller/pkg/logger"
)

type ManagerConfig struct {
	DBUser     string
	DBPassword string
	SSLMode    string

	MaxConnsPerTenant int32
	MinConnsPerTenant int32
	ConnectTimeout    time.Duration

	// MaxTotalPools caps open pools; 0 means unlimited.
	MaxTotalPools int
	// PoolIdleTimeout closes pools unused for this long; 0 disables eviction.
	PoolIdleTimeout   time.Duration
	HealthCheckPeriod time.Duration
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxConnsPerTenant: 10,
		MinConnsPerTenant: 1,
		ConnectTimeout:    10 * time.Second,
		MaxTotalPools:     100,
		PoolIdleTimeout:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
	}
}

// ManagedPool is a tenant pool plus usage tracking for eviction.
type ManagedPool struct {
	pool     *pgxpool.Pool
	tenant   *Tenant
	lastUsed atomic.Int64
	refCount atomic.Int32
	// unhealthy is set by a failed ping and cleared by a good one.
	unhealthy atomic.Bool
}

func (mp *ManagedPool) Touch() { mp.lastUsed.Store(time.Now().Unix()) }

func (mp *ManagedPool) Pool() *pgxpool.Pool { return mp.pool }

func (mp *ManagedPool) Tenant() *Tenant { return mp.tenant }

// AcquireRef marks the pool as used by a running request.
func (mp *ManagedPool) AcquireRef() { mp.refCount.Add(1) }

func (mp *ManagedPool) ReleaseRef() { mp.refCount.Add(-1) }

func (mp *ManagedPool) inUse() bool { return mp.refCount.Load() > 0 }

func (mp *ManagedPool) idleSince(unix int64) bool { return mp.lastUsed.Load() < unix }

// Manager opens tenant pools lazily and closes idle or broken ones.
type Manager struct {
	config   ManagerConfig
	registry Registry

	pools     sync.Map // tenantID -> *ManagedPool
	poolCount atomic.Int32
	creating  singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *logger.Logger
}

func NewManager(cfg ManagerConfig, registry Registry, log *logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config:   cfg,
		registry: registry,
		ctx:      ctx,
		cancel:   cancel,
		log:      log.WithComponent("tenant-manager"),
	}

	if cfg.PoolIdleTimeout > 0 {
		m.wg.Add(1)
		go m.loop(cfg.PoolIdleTimeout/2, m.evictIdlePools)
	}
	if cfg.HealthCheckPeriod > 0 {
		m.wg.Add(1)
		go m.loop(cfg.HealthCheckPeriod, m.checkPoolsHealth)
	}

	m.log.Infow("tenant manager started",
		"max_pools", cfg.MaxTotalPools,
		"idle_timeout", cfg.PoolIdleTimeout,
	)
	return m
}

// GetPool returns the pool of tenantID, opening it on first use. Concurrent
// first requests for one tenant share a single connect attempt.
func (m *Manager) GetPool(ctx context.Context, tenantID string) (*ManagedPool, error) {
	if val, ok := m.pools.Load(tenantID); ok {
		mp := val.(*ManagedPool)
		mp.Touch()
		return mp, nil
	}

	v, err, _ := m.creating.Do(tenantID, func() (any, error) {
		return m.createPool(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ManagedPool), nil
}

func (m *Manager) createPool(ctx context.Context, tenantID string) (*ManagedPool, error) {
	if val, ok := m.pools.Load(tenantID); ok {
		return val.(*ManagedPool), nil
	}
	if m.config.MaxTotalPools > 0 && int(m.poolCount.Load()) >= m.config.MaxTotalPools {
		return nil, fmt.Errorf("%w (%d)", ErrMaxPoolLimit, m.config.MaxTotalPools)
	}

	t, err := m.registry.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("tenant lookup: %w", err)
	}
	if !t.IsActive() {
		return nil, fmt.Errorf("%w: status=%s", ErrTenantNotActive, t.Status)
	}

	poolCfg, err := pgxpool.ParseConfig(t.DSN(m.config.DBUser, m.config.DBPassword, m.config.SSLMode))
	if err != nil {
		return nil, fmt.Errorf("parse dsn for tenant %s: %w", tenantID, err)
	}
	poolCfg.MaxConns = m.config.MaxConnsPerTenant
	poolCfg.MinConns = m.config.MinConnsPerTenant
	poolCfg.ConnConfig.ConnectTimeout = m.config.ConnectTimeout
	// date casts in queries assume UTC
	poolCfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	if m.config.HealthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = m.config.HealthCheckPeriod
	}

	connectCtx, cancel := context.WithTimeout(ctx, m.config.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool for tenant %s: %w", tenantID, err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping tenant %s: %w", tenantID, err)
	}

	mp := &ManagedPool{pool: pool, tenant: t}
	mp.Touch()
	m.pools.Store(tenantID, mp)
	m.poolCount.Add(1)

	m.log.Infow("opened tenant pool",
		"tenant_id", tenantID,
		"db_name", t.DBName,
		"total_pools", m.poolCount.Load(),
	)
	return mp, nil
}

func (m *Manager) loop(every time.Duration, fn func()) {
	defer m.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (m *Manager) evictIdlePools() {
	threshold := time.Now().Add(-m.config.PoolIdleTimeout).Unix()
	m.pools.Range(func(key, value any) bool {
		mp := value.(*ManagedPool)
		switch {
		case mp.inUse():
		case mp.unhealthy.Load():
			m.closePool(key.(string), mp, "unhealthy")
		case mp.idleSince(threshold):
			m.closePool(key.(string), mp, "idle timeout")
		}
		return true
	})
}

// checkPoolsHealth pings every pool. Broken pools in use are only flagged and
// get closed by the eviction pass once their requests finish.
func (m *Manager) checkPoolsHealth() {
	ctx, cancel := context.WithTimeout(m.ctx, 5*time.Second)
	defer cancel()

	m.pools.Range(func(key, value any) bool {
		mp := value.(*ManagedPool)
		if err := mp.pool.Ping(ctx); err != nil {
			mp.unhealthy.Store(true)
			m.log.Warnw("tenant pool ping failed", "tenant_id", key, "error", err)
			if !mp.inUse() {
				m.closePool(key.(string), mp, "health check failed")
			}
			return true
		}
		mp.unhealthy.Store(false)
		return true
	})
}

func (m *Manager) closePool(tenantID string, mp *ManagedPool, reason string) {
	if _, loaded := m.pools.LoadAndDelete(tenantID); !loaded {
		return
	}
	mp.pool.Close()
	m.poolCount.Add(-1)
	m.log.Infow("closed tenant pool", "tenant_id", tenantID, "reason", reason)
}

// Close stops the background loops and closes every pool.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()

	closed := 0
	m.pools.Range(func(key, value any) bool {
		value.(*ManagedPool).pool.Close()
		m.pools.Delete(key)
		closed++
		return true
	})
	m.poolCount.Store(0)
	m.log.Infow("tenant manager closed", "pools_closed", closed)
}

// Stats is exposed on the health endpoint.
type Stats struct {
	TotalPools    int `json:"totalPools"`
	TotalConns    int `json:"totalConns"`
	AcquiredConns int `json:"acquiredConns"`
}

func (m *Manager) Stats() Stats {
	s := Stats{TotalPools: int(m.poolCount.Load())}
	m.pools.Range(func(_, value any) bool {
		st := value.(*ManagedPool).pool.Stat()
		s.TotalConns += int(st.TotalConns())
		s.AcquiredConns += int(st.AcquiredConns())
		return true
	})
	return s
}

func (m *Manager) GetActiveTenants(ctx context.Context) ([]*Tenant, error) {
	return m.registry.ListActive(ctx)
}

func (m *Manager) Registry() Registry {
	return m.registry
}

// PrewarmPools opens pools for all active tenants in parallel.
func (m *Manager) PrewarmPools(ctx context.Context) error {
	tenants, err := m.registry.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tenants: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, t := range tenants {
		g.Go(func() error {
			if _, err := m.GetPool(gctx, t.ID); err != nil {
				return fmt.Errorf("prewarm %s: %w", t.Slug, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.log.Warnw("prewarm incomplete", "error", err)
		return err
	}
	m.log.Infow("tenant pools prewarmed", "count", len(tenants))
	return nil
}
