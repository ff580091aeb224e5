package tenant

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"taller/internal/core/entity"
)

// Registry reads and writes tenant rows of the meta database.
// SettingsChannel is notified with the tenant id after its settings change.
const SettingsChannel = "tenant_settings_changed"

type Registry interface {
	GetByID(ctx context.Context, tenantID string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	ListActive(ctx context.Context) ([]*Tenant, error)
	ListAll(ctx context.Context) ([]*Tenant, error)
	// Create inserts t and fills t.ID.
	Create(ctx context.Context, t *Tenant) error
	UpdateStatusByID(ctx context.Context, tenantID string, status Status) error
	// MergeSettings merges patch into tenants.settings and returns the result.
	MergeSettings(ctx context.Context, tenantID string, patch entity.Attributes) (entity.Attributes, error)
}

type PostgresRegistry struct {
	pool *pgxpool.Pool
}

func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

const tenantColumns = `id, slug, display_name, db_name, db_host, db_port,
	status, plan, created_at, updated_at, settings`

func (r *PostgresRegistry) get(ctx context.Context, where string, arg any) (*Tenant, error) {
	var t Tenant
	err := pgxscan.Get(ctx, r.pool, &t, `SELECT `+tenantColumns+` FROM tenants WHERE `+where+` = $1`, arg)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant by %s: %w", where, err)
	}
	return &t, nil
}

func (r *PostgresRegistry) GetByID(ctx context.Context, tenantID string) (*Tenant, error) {
	return r.get(ctx, "id", tenantID)
}

func (r *PostgresRegistry) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return r.get(ctx, "slug", slug)
}

func (r *PostgresRegistry) ListActive(ctx context.Context) ([]*Tenant, error) {
	var tenants []*Tenant
	err := pgxscan.Select(ctx, r.pool, &tenants,
		`SELECT `+tenantColumns+` FROM tenants WHERE status = $1 ORDER BY slug`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	return tenants, nil
}

func (r *PostgresRegistry) ListAll(ctx context.Context) ([]*Tenant, error) {
	var tenants []*Tenant
	err := pgxscan.Select(ctx, r.pool, &tenants, `SELECT `+tenantColumns+` FROM tenants ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}

func (r *PostgresRegistry) Create(ctx context.Context, t *Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant is nil")
	}
	if t.Status == "" {
		t.Status = StatusActive
	}
	if t.Plan == "" {
		t.Plan = PlanStandard
	}
	if t.Settings == nil {
		t.Settings = entity.Attributes{}
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO tenants (slug, display_name, db_name, db_host, db_port, status, plan, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, t.Slug, t.DisplayName, t.DBName, t.DBHost, t.DBPort, t.Status, t.Plan, t.Settings).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (r *PostgresRegistry) UpdateStatusByID(ctx context.Context, tenantID string, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tenants SET status = $2, updated_at = NOW() WHERE id = $1`, tenantID, status)
	if err != nil {
		return fmt.Errorf("update tenant status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (r *PostgresRegistry) MergeSettings(ctx context.Context, tenantID string, patch entity.Attributes) (entity.Attributes, error) {
	var merged entity.Attributes
	err := r.pool.QueryRow(ctx, `
		UPDATE tenants
		SET settings = COALESCE(settings, '{}'::jsonb) || $2::jsonb, updated_at = NOW()
		WHERE id = $1
		RETURNING settings
	`, tenantID, patch).Scan(&merged)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("merge tenant settings: %w", err)
	}
	if _, err := r.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, SettingsChannel, tenantID); err != nil {
		return merged, fmt.Errorf("notify settings change: %w", err)
	}
	return merged, nil
}

var _ Registry = (*PostgresRegistry)(nil)
