// Package tenant implements database-per-tenant routing: a meta database
// lists tenants and each tenant owns one PostgreSQL database.
package tenant

import (
	"fmt"
	"strings"
	"time"

	"taller/internal/core/entity"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

type Plan string

const (
	PlanStandard Plan = "standard"
	PlanPremium  Plan = "premium"
)

// Tenant is a row of the meta database.
type Tenant struct {
	ID          string            `db:"id"`
	Slug        string            `db:"slug"`
	DisplayName string            `db:"display_name"`
	DBName      string            `db:"db_name"`
	DBHost      string            `db:"db_host"`
	DBPort      int               `db:"db_port"`
	Status      Status            `db:"status"`
	Plan        Plan              `db:"plan"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
	Settings    entity.Attributes `db:"settings"`
}

func (t *Tenant) IsActive() bool {
	return t.Status == StatusActive
}

// DSN builds the connection string of the tenant database.
func (t *Tenant) DSN(user, password, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		user, password, t.DBHost, t.DBPort, t.DBName, sslMode,
	)
}

// Workshop returns the parsed workshop settings of the tenant.
func (t *Tenant) Workshop() WorkshopSettings {
	return SettingsFromAttributes(t.Settings)
}

type CreateTenantInput struct {
	Slug        string
	DisplayName string
	Plan        Plan
	DBHost      string
	DBPort      int
}

// Validate lower-cases the slug and checks the Postgres identifier limit.
func (i *CreateTenantInput) Validate() error {
	i.Slug = strings.ToLower(strings.TrimSpace(i.Slug))
	if i.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if len(i.Slug) > 60 {
		return fmt.Errorf("slug must be 60 characters or less")
	}
	if strings.ContainsAny(i.Slug, " ;'\"") {
		return fmt.Errorf("slug contains invalid characters")
	}
	if i.DisplayName == "" {
		return fmt.Errorf("display_name is required")
	}
	return nil
}

// DBName is "taller_<slug>".
func (i *CreateTenantInput) DBName() string {
	return "taller_" + strings.ReplaceAll(i.Slug, "-", "_")
}
