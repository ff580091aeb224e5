// Package cache keeps tenant workshop settings in Redis in front of the meta
// database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"taller/internal/core/tenant"
	"taller/pkg/logger"
)

const (
	settingsKeyPrefix  = "taller:settings:"
	DefaultSettingsTTL = 5 * time.Minute
)

// SettingsLoader reads the authoritative settings of one tenant.
type SettingsLoader interface {
	LoadSettings(ctx context.Context, tenantID string) (tenant.WorkshopSettings, error)
}

type SettingsLoaderFunc func(ctx context.Context, tenantID string) (tenant.WorkshopSettings, error)

func (f SettingsLoaderFunc) LoadSettings(ctx context.Context, tenantID string) (tenant.WorkshopSettings, error) {
	return f(ctx, tenantID)
}

// RegistryLoader loads settings from the tenants table.
type RegistryLoader struct {
	Registry tenant.Registry
}

func (l RegistryLoader) LoadSettings(ctx context.Context, tenantID string) (tenant.WorkshopSettings, error) {
	t, err := l.Registry.GetByID(ctx, tenantID)
	if err != nil {
		return tenant.WorkshopSettings{}, err
	}
	return t.Workshop(), nil
}

// SettingsCache implements tenant.SettingsProvider. Redis failures degrade to
// loading from the source; concurrent misses for a tenant share one load.
type SettingsCache struct {
	client *redis.Client
	loader SettingsLoader
	ttl    time.Duration
	group  singleflight.Group
}

var _ tenant.SettingsProvider = (*SettingsCache)(nil)

func NewSettingsCache(client *redis.Client, loader SettingsLoader, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = DefaultSettingsTTL
	}
	return &SettingsCache{client: client, loader: loader, ttl: ttl}
}

func settingsKey(tenantID string) string {
	return settingsKeyPrefix + tenantID
}

// Workshop returns the settings of the tenant in ctx, or the defaults when
// the request carries no tenant.
func (c *SettingsCache) Workshop(ctx context.Context) (tenant.WorkshopSettings, error) {
	tenantID := tenant.GetTenantID(ctx)
	if tenantID == "" {
		return tenant.DefaultWorkshopSettings(), nil
	}

	if ws, ok := c.get(ctx, tenantID); ok {
		return ws, nil
	}

	ch := c.group.DoChan(tenantID, func() (any, error) {
		// detached so one caller's cancellation does not fail the others
		loadCtx := context.WithoutCancel(ctx)
		ws, err := c.loader.LoadSettings(loadCtx, tenantID)
		if err != nil {
			return nil, err
		}
		c.set(loadCtx, tenantID, ws)
		return ws, nil
	})
	select {
	case <-ctx.Done():
		return tenant.WorkshopSettings{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return tenant.WorkshopSettings{}, fmt.Errorf("load settings of %s: %w", tenantID, res.Err)
		}
		return res.Val.(tenant.WorkshopSettings), nil
	}
}

func (c *SettingsCache) get(ctx context.Context, tenantID string) (tenant.WorkshopSettings, bool) {
	if c.client == nil {
		return tenant.WorkshopSettings{}, false
	}
	raw, err := c.client.Get(ctx, settingsKey(tenantID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn(ctx, "settings cache read failed", "tenant_id", tenantID, "error", err)
		}
		return tenant.WorkshopSettings{}, false
	}
	var ws tenant.WorkshopSettings
	if err := json.Unmarshal(raw, &ws); err != nil {
		logger.Warn(ctx, "settings cache entry corrupt", "tenant_id", tenantID, "error", err)
		return tenant.WorkshopSettings{}, false
	}
	return ws, true
}

func (c *SettingsCache) set(ctx context.Context, tenantID string, ws tenant.WorkshopSettings) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(ws)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, settingsKey(tenantID), raw, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "settings cache write failed", "tenant_id", tenantID, "error", err)
	}
}

// Invalidate drops the cached settings of tenantID.
func (c *SettingsCache) Invalidate(ctx context.Context, tenantID string) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, settingsKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("invalidate settings of %s: %w", tenantID, err)
	}
	return nil
}
