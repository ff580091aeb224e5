package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/tenant"
)

func newTestCache(t *testing.T, loader SettingsLoader) (*SettingsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSettingsCache(client, loader, time.Minute), mr
}

func tenantCtx(id string) context.Context {
	return tenant.WithTenant(context.Background(), &tenant.Tenant{ID: id})
}

func TestSettingsCacheLoadsOnceAndCaches(t *testing.T) {
	var calls atomic.Int32
	loader := SettingsLoaderFunc(func(ctx context.Context, tenantID string) (tenant.WorkshopSettings, error) {
		calls.Add(1)
		return tenant.WorkshopSettings{TaxRate: decimal.NewFromInt(5), HideRemisionTax: true, CurrencyDecimals: 2}, nil
	})
	c, mr := newTestCache(t, loader)
	ctx := tenantCtx("t1")

	ws, err := c.Workshop(ctx)
	require.NoError(t, err)
	assert.True(t, ws.TaxRate.Equal(decimal.NewFromInt(5)))
	assert.True(t, ws.HideRemisionTax)
	assert.Equal(t, int32(2), ws.CurrencyDecimals)
	assert.True(t, mr.Exists(settingsKey("t1")))

	ws, err = c.Workshop(ctx)
	require.NoError(t, err)
	assert.True(t, ws.TaxRate.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, int32(1), calls.Load())

	mr.FastForward(2 * time.Minute)
	_, err = c.Workshop(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSettingsCacheInvalidate(t *testing.T) {
	rate := decimal.NewFromInt(19)
	loader := SettingsLoaderFunc(func(ctx context.Context, tenantID string) (tenant.WorkshopSettings, error) {
		return tenant.WorkshopSettings{TaxRate: rate}, nil
	})
	c, _ := newTestCache(t, loader)
	ctx := tenantCtx("t1")

	_, err := c.Workshop(ctx)
	require.NoError(t, err)

	rate = decimal.NewFromInt(8)
	require.NoError(t, c.Invalidate(ctx, "t1"))

	ws, err := c.Workshop(ctx)
	require.NoError(t, err)
	assert.True(t, ws.TaxRate.Equal(decimal.NewFromInt(8)))
}

func TestSettingsCacheWithoutTenantUsesDefaults(t *testing.T) {
	loader := SettingsLoaderFunc(func(ctx context.Context, tenantID string) (tenant.WorkshopSettings, error) {
		t.Fatal("loader must not be called")
		return tenant.WorkshopSettings{}, nil
	})
	c, _ := newTestCache(t, loader)

	ws, err := c.Workshop(context.Background())
	require.NoError(t, err)
	assert.True(t, ws.TaxRate.Equal(tenant.DefaultWorkshopSettings().TaxRate))
}

func TestSettingsCacheConcurrentMissesShareLoad(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	loader := SettingsLoaderFunc(func(ctx context.Context, tenantID string) (tenant.WorkshopSettings, error) {
		calls.Add(1)
		<-release
		return tenant.DefaultWorkshopSettings(), nil
	})
	c, _ := newTestCache(t, loader)
	ctx := tenantCtx("t1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Workshop(ctx)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestSettingsCacheRedisDownFallsBackToLoader(t *testing.T) {
	loader := SettingsLoaderFunc(func(ctx context.Context, tenantID string) (tenant.WorkshopSettings, error) {
		return tenant.WorkshopSettings{TaxRate: decimal.NewFromInt(12)}, nil
	})
	c, mr := newTestCache(t, loader)
	mr.Close()

	ws, err := c.Workshop(tenantCtx("t1"))
	require.NoError(t, err)
	assert.True(t, ws.TaxRate.Equal(decimal.NewFromInt(12)))
}

func TestSettingsCacheLoaderError(t *testing.T) {
	loader := SettingsLoaderFunc(func(ctx context.Context, tenantID string) (tenant.WorkshopSettings, error) {
		return tenant.WorkshopSettings{}, tenant.ErrTenantNotFound
	})
	c, _ := newTestCache(t, loader)

	_, err := c.Workshop(tenantCtx("missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, tenant.ErrTenantNotFound))
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, tenantID)
	return nil
}

func TestSettingsListenerHandleTrimsPayload(t *testing.T) {
	target := &recordingInvalidator{}
	l := NewSettingsListener(nil, target)

	l.handle(context.Background(), " t1 \n")
	l.handle(context.Background(), "")

	assert.Equal(t, []string{"t1"}, target.ids)
}
