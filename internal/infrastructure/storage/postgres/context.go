package postgres

import (
	"context"
	"fmt"

	"taller/internal/core/tenant"
)

// MustGetTxManager returns the tenant *TxManager stored by the TenantDB
// middleware. Domain code uses tx.Manager instead.
func MustGetTxManager(ctx context.Context) *TxManager {
	txm := tenant.MustGetTxManager(ctx)
	pg, ok := txm.(*TxManager)
	if !ok || pg == nil {
		panic(fmt.Sprintf("tx manager in context has unexpected type %T", txm))
	}
	return pg
}

// QuerierFromContext prefers the active transaction and falls back to the
// tenant pool.
func QuerierFromContext(ctx context.Context) Querier {
	if t := txFromContext(ctx); t != nil {
		return t.Tx
	}
	return tenant.MustGetPool(ctx)
}

// WithTenantDB binds the tenant database of mp to ctx the way a request sees
// it: pool, transaction manager and tenant.
func WithTenantDB(ctx context.Context, mp *tenant.ManagedPool) (context.Context, *TxManager) {
	txm := NewTxManagerFromRawPool(mp.Pool())
	ctx = tenant.WithPool(ctx, mp.Pool())
	ctx = tenant.WithTxManager(ctx, txm)
	ctx = tenant.WithTenant(ctx, mp.Tenant())
	return ctx, txm
}

// TenantScope runs background work against one tenant database.
type TenantScope struct {
	Manager *tenant.Manager
}

// Run calls fn with ctx bound to the tenant database; MustGetTxManager works
// inside fn.
func (s TenantScope) Run(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	mp, err := s.Manager.GetPool(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("tenant %s: %w", tenantID, err)
	}
	mp.AcquireRef()
	defer mp.ReleaseRef()

	ctx, _ = WithTenantDB(ctx, mp)
	return fn(ctx)
}
