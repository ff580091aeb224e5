package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"taller/internal/core/tenant"
	"taller/pkg/logger"
)

// Invalidator drops cached state for one tenant.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID string) error
}

// SettingsListener LISTENs on the meta database for settings changes and
// invalidates the cache entry of the notified tenant.
type SettingsListener struct {
	pool   *pgxpool.Pool
	target Invalidator

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func NewSettingsListener(pool *pgxpool.Pool, target Invalidator) *SettingsListener {
	return &SettingsListener{pool: pool, target: target}
}

func (l *SettingsListener) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.loop(ctx)
}

func (l *SettingsListener) Stop() {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.mu.Unlock()

	cancel()
	l.wg.Wait()
}

func (l *SettingsListener) loop(ctx context.Context) {
	defer l.wg.Done()

	for ctx.Err() == nil {
		conn, err := l.pool.Acquire(ctx)
		if err != nil {
			logger.Error(ctx, "settings listener: acquire connection", "error", err)
			sleep(ctx, time.Second)
			continue
		}
		if _, err := conn.Exec(ctx, "LISTEN "+tenant.SettingsChannel); err != nil {
			logger.Error(ctx, "settings listener: LISTEN failed", "error", err)
			conn.Release()
			sleep(ctx, time.Second)
			continue
		}
		logger.Info(ctx, "listening for settings changes", "channel", tenant.SettingsChannel)

		l.wait(ctx, conn)
		conn.Release()
	}
}

func (l *SettingsListener) wait(ctx context.Context, conn *pgxpool.Conn) {
	for {
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(waitCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil || waitCtx.Err() == nil {
				// shutdown, or a broken connection to be replaced
				return
			}
			continue
		}
		l.handle(ctx, n.Payload)
	}
}

func (l *SettingsListener) handle(ctx context.Context, payload string) {
	tenantID := strings.TrimSpace(payload)
	if tenantID == "" {
		return
	}
	if err := l.target.Invalidate(ctx, tenantID); err != nil {
		logger.Warn(ctx, "settings invalidation failed", "tenant_id", tenantID, "error", err)
		return
	}
	logger.Debug(ctx, "settings invalidated", "tenant_id", tenantID)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
