// Package main provides CLI for tenant management.
// Usage: tenant create --slug acme --name "Taller ACME"
//
//	tenant list
//	tenant migrate --all
//	tenant suspend <tenant-id>
//	tenant settings <tenant-id> --tax-rate 19 --hide-remision-tax
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"taller/internal/config"
	"taller/internal/core/entity"
	"taller/internal/core/tenant"
)

const defaultMigrationsDir = "db/migrations/tenant"

// env is the subset of the server configuration the CLI needs.
type env struct {
	MetaDatabaseURL  string                `envconfig:"META_DATABASE_URL" required:"true"`
	AdminDatabaseURL string                `envconfig:"POSTGRES_ADMIN_URL"`
	TenantDB         config.TenantDBConfig `envconfig:"TENANT_DB"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()
	var e env
	if err := envconfig.Process("", &e); err != nil {
		fail("config: %v", err)
	}

	ctx := context.Background()
	args := os.Args[2:]

	var err error
	switch os.Args[1] {
	case "create":
		err = createTenant(ctx, e, args)
	case "list":
		err = listTenants(ctx, e)
	case "migrate":
		err = migrateTenants(ctx, e, args)
	case "suspend":
		err = setStatus(ctx, e, args, tenant.StatusSuspended)
	case "activate":
		err = setStatus(ctx, e, args, tenant.StatusActive)
	case "settings":
		err = updateSettings(ctx, e, args)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fail("%v", err)
	}
}

func printUsage() {
	fmt.Println(`Taller Tenant Management CLI

Usage:
  tenant <command> [options]

Commands:
  create    Create a tenant database, migrate it and register it
  list      List all tenants
  migrate   Run migrations for tenant(s)
  suspend   Suspend a tenant
  activate  Activate a suspended tenant
  settings  Show or change the workshop settings of a tenant
  help      Show this help

Environment Variables:
  META_DATABASE_URL      Connection string for meta database (required)
  TENANT_DB_USER         Username for tenant databases (required)
  TENANT_DB_PASSWORD     Password for tenant databases (required)
  POSTGRES_ADMIN_URL     Admin connection for creating databases

Examples:
  tenant create --slug acme --name "Taller ACME"
  tenant list
  tenant migrate --all
  tenant migrate --id <tenant-uuid>
  tenant suspend <tenant-uuid>
  tenant settings <tenant-uuid> --tax-rate 19 --hide-remision-tax=false`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func metaRegistry(ctx context.Context, e env) (*tenant.PostgresRegistry, func(), error) {
	pool, err := pgxpool.New(ctx, e.MetaDatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to meta database: %w", err)
	}
	return tenant.NewPostgresRegistry(pool), pool.Close, nil
}

func createTenant(ctx context.Context, e env, args []string) error {
	fs := pflag.NewFlagSet("create", pflag.ExitOnError)
	slug := fs.String("slug", "", "tenant slug, used in the database name")
	name := fs.String("name", "", "display name")
	plan := fs.String("plan", string(tenant.PlanStandard), "standard|premium")
	host := fs.String("db-host", "localhost", "host of the tenant database")
	port := fs.Int("db-port", 5432, "port of the tenant database")
	dir := fs.String("dir", defaultMigrationsDir, "goose migrations directory")
	_ = fs.Parse(args)

	if *slug == "" || *name == "" {
		return errors.New("--slug and --name are required")
	}

	registry, closeMeta, err := metaRegistry(ctx, e)
	if err != nil {
		return err
	}
	defer closeMeta()

	dbName := "taller_" + strings.ToLower(strings.ReplaceAll(*slug, "-", "_"))
	fmt.Printf("Creating tenant '%s'...\n", *slug)

	adminURL := e.AdminDatabaseURL
	if adminURL == "" {
		adminURL = e.MetaDatabaseURL
	}
	if err := createDatabase(ctx, adminURL, dbName); err != nil {
		return err
	}

	t := &tenant.Tenant{
		Slug:        *slug,
		DisplayName: *name,
		DBName:      dbName,
		DBHost:      *host,
		DBPort:      *port,
		Status:      tenant.StatusActive,
		Plan:        tenant.Plan(*plan),
	}

	fmt.Println("  Running migrations...")
	if err := goose(*dir, t.DSN(e.TenantDB.User, e.TenantDB.Password, e.TenantDB.SSLMode)); err != nil {
		return fmt.Errorf("migrate %s: %w", dbName, err)
	}

	fmt.Println("  Registering tenant...")
	if err := registry.Create(ctx, t); err != nil {
		return fmt.Errorf("register tenant: %w", err)
	}

	fmt.Printf("\n✓ Tenant '%s' created successfully!\n", *slug)
	fmt.Printf("  Tenant ID: %s\n", t.ID)
	fmt.Printf("  Database: %s\n", dbName)
	fmt.Printf("  Plan: %s\n", *plan)
	return nil
}

func createDatabase(ctx context.Context, adminURL, dbName string) error {
	conn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return fmt.Errorf("connect as admin: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	fmt.Printf("  Creating database %s...\n", dbName)
	_, err = conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P04" {
		fmt.Println("  Database already exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	return nil
}

func goose(dir, dsn string) error {
	cmd := exec.Command("goose", "-dir", dir, "postgres", dsn, "up")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func listTenants(ctx context.Context, e env) error {
	registry, closeMeta, err := metaRegistry(ctx, e)
	if err != nil {
		return err
	}
	defer closeMeta()

	tenants, err := registry.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	if len(tenants) == 0 {
		fmt.Println("No tenants found")
		return nil
	}

	fmt.Printf("%-36s %-20s %-30s %-20s %-10s %-10s\n", "TENANT_ID", "SLUG", "NAME", "DATABASE", "PLAN", "STATUS")
	fmt.Println(strings.Repeat("-", 131))
	for _, t := range tenants {
		fmt.Printf("%-36s %-20s %-30s %-20s %-10s %-10s\n",
			truncate(t.ID, 36),
			truncate(t.Slug, 20),
			truncate(t.DisplayName, 30),
			truncate(t.DBName, 20),
			t.Plan,
			t.Status,
		)
	}
	return nil
}

func migrateTenants(ctx context.Context, e env, args []string) error {
	fs := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	targetID := fs.String("id", "", "tenant to migrate")
	all := fs.Bool("all", false, "migrate every active tenant")
	dir := fs.String("dir", defaultMigrationsDir, "goose migrations directory")
	_ = fs.Parse(args)

	if !*all && *targetID == "" {
		return errors.New("specify --id <tenant-uuid> or --all")
	}

	registry, closeMeta, err := metaRegistry(ctx, e)
	if err != nil {
		return err
	}
	defer closeMeta()

	var tenants []*tenant.Tenant
	if *all {
		if tenants, err = registry.ListActive(ctx); err != nil {
			return err
		}
	} else {
		t, err := registry.GetByID(ctx, *targetID)
		if err != nil {
			return fmt.Errorf("tenant '%s': %w", *targetID, err)
		}
		tenants = []*tenant.Tenant{t}
	}

	failed := 0
	for _, t := range tenants {
		fmt.Printf("Migrating %s (%s)...\n", t.Slug, t.DBName)
		if err := goose(*dir, t.DSN(e.TenantDB.User, e.TenantDB.Password, e.TenantDB.SSLMode)); err != nil {
			fmt.Printf("  ✗ Failed: %v\n", err)
			failed++
			continue
		}
		fmt.Println("  ✓ Done")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tenants failed to migrate", failed, len(tenants))
	}
	return nil
}

func setStatus(ctx context.Context, e env, args []string, status tenant.Status) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: tenant %s <tenant-uuid>", os.Args[1])
	}
	registry, closeMeta, err := metaRegistry(ctx, e)
	if err != nil {
		return err
	}
	defer closeMeta()

	if err := registry.UpdateStatusByID(ctx, args[0], status); err != nil {
		return err
	}
	fmt.Printf("✓ Tenant '%s' is now %s\n", args[0], status)
	return nil
}

// updateSettings merges only the flags given on the command line; with no
// flags it prints the current settings.
func updateSettings(ctx context.Context, e env, args []string) error {
	fs := pflag.NewFlagSet("settings", pflag.ExitOnError)
	taxRate := fs.String("tax-rate", "", "tax percentage, 19 means 19%")
	hide := fs.Bool("hide-remision-tax", false, "fold tax into remision line amounts")
	decimals := fs.Int("currency-decimals", 0, "rounding scale of money amounts (0-4)")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: tenant settings <tenant-uuid> [flags]")
	}
	tenantID := fs.Arg(0)

	patch := entity.Attributes{}
	if fs.Changed("tax-rate") {
		rate, err := decimal.NewFromString(*taxRate)
		if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("--tax-rate must be a percentage between 0 and 100, got %q", *taxRate)
		}
		patch[tenant.SettingTaxRate] = rate.String()
	}
	if fs.Changed("hide-remision-tax") {
		patch[tenant.SettingHideRemisionTax] = *hide
	}
	if fs.Changed("currency-decimals") {
		if *decimals < 0 || *decimals > 4 {
			return errors.New("--currency-decimals must be between 0 and 4")
		}
		patch[tenant.SettingCurrencyDecimals] = *decimals
	}

	registry, closeMeta, err := metaRegistry(ctx, e)
	if err != nil {
		return err
	}
	defer closeMeta()

	var current entity.Attributes
	if len(patch) == 0 {
		t, err := registry.GetByID(ctx, tenantID)
		if err != nil {
			return err
		}
		current = t.Settings
	} else if current, err = registry.MergeSettings(ctx, tenantID, patch); err != nil {
		return err
	}

	ws := tenant.SettingsFromAttributes(current)
	fmt.Printf("Tenant %s\n", tenantID)
	fmt.Printf("  tax_rate:          %s%%\n", ws.TaxRate.String())
	fmt.Printf("  hide_remision_tax: %t\n", ws.HideRemisionTax)
	fmt.Printf("  currency_decimals: %d\n", ws.CurrencyDecimals)
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
