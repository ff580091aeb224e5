// Package main seeds one tenant database from a YAML fixtures file. It goes
// through the domain services, so codes, validation and hooks behave as they
// do behind the API.
//
// Usage: seed --tenant acme --file db/seed/demo.yaml
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"

	"taller/internal/config"
	"taller/internal/core/apperror"
	"taller/internal/core/tenant"
	"taller/internal/domain/auth"
	"taller/internal/domain/catalogs/customer"
	"taller/internal/domain/catalogs/product"
	"taller/internal/domain/catalogs/technician"
	"taller/internal/domain/catalogs/vehicle"
	"taller/internal/domain/catalogs/warehouse"
	"taller/internal/infrastructure/numerator"
	"taller/internal/infrastructure/storage/postgres"
	"taller/internal/infrastructure/storage/postgres/auth_repo"
	"taller/internal/infrastructure/storage/postgres/catalog_repo"
	"taller/pkg/logger"
)

type env struct {
	MetaDatabaseURL string                `envconfig:"META_DATABASE_URL" required:"true"`
	TenantDB        config.TenantDBConfig `envconfig:"TENANT_DB"`
}

func main() {
	tenantRef := pflag.String("tenant", "", "tenant id or slug")
	file := pflag.String("file", "db/seed/demo.yaml", "fixtures file")
	pflag.Parse()

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	if *tenantRef == "" {
		log.Fatal("--tenant is required")
	}

	_ = godotenv.Load()
	var e env
	if err := envconfig.Process("", &e); err != nil {
		log.Fatalw("config", "error", err)
	}

	fixtures, err := LoadFixtures(*file)
	if err != nil {
		log.Fatalw("failed to load fixtures", "error", err)
	}

	ctx := logger.WithLogger(context.Background(), log)

	metaPool, err := pgxpool.New(ctx, e.MetaDatabaseURL)
	if err != nil {
		log.Fatalw("failed to connect to meta database", "error", err)
	}
	defer metaPool.Close()

	registry := tenant.NewPostgresRegistry(metaPool)
	t, err := registry.GetByID(ctx, *tenantRef)
	if err != nil {
		if t, err = registry.GetBySlug(ctx, *tenantRef); err != nil {
			log.Fatalw("tenant not found", "tenant", *tenantRef, "error", err)
		}
	}

	manager := tenant.NewManager((&config.Config{TenantDB: e.TenantDB}).TenantManager(), registry, log)
	defer manager.Close()

	s := newSeeder()
	err = postgres.TenantScope{Manager: manager}.Run(ctx, t.ID, func(ctx context.Context) error {
		return postgres.MustGetTxManager(ctx).RunInTransaction(ctx, func(ctx context.Context) error {
			return s.Seed(ctx, fixtures)
		})
	})
	if err != nil {
		log.Fatalw("seeding failed", "tenant", t.Slug, "error", err)
	}
	log.Infow("seeding completed successfully", "tenant", t.Slug, "created", s.created, "skipped", s.skipped)
}

type seeder struct {
	users       *auth.Service
	userRepo    *auth_repo.UserRepo
	warehouses  *warehouse.Service
	products    *product.Service
	technicians *technician.Service
	customers   *customer.Service
	vehicles    *vehicle.Service

	created int
	skipped int
}

func newSeeder() *seeder {
	gen := numerator.New()
	userRepo := auth_repo.NewUserRepo()
	return &seeder{
		users:       auth.NewService(userRepo, auth_repo.NewTokenRepo(), nil, nil, auth.DefaultServiceConfig()),
		userRepo:    userRepo,
		warehouses:  warehouse.NewService(catalog_repo.NewWarehouseRepo(), gen),
		products:    product.NewService(catalog_repo.NewProductRepo(), gen),
		technicians: technician.NewService(catalog_repo.NewTechnicianRepo(), gen),
		customers:   customer.NewService(catalog_repo.NewCustomerRepo(), gen),
		vehicles:    vehicle.NewService(catalog_repo.NewVehicleRepo()),
	}
}

func (s *seeder) Seed(ctx context.Context, f *Fixtures) error {
	for _, u := range f.Users {
		exists, err := s.userRepo.Exists(ctx, u.Email)
		if err != nil {
			return err
		}
		if exists {
			s.skipped++
			continue
		}
		if _, err := s.users.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("user %s: %w", u.Email, err)
		}
		s.created++
	}

	for _, w := range f.Warehouses {
		if err := createOnce(ctx, s, s.warehouses.GetByCode, s.warehouses.Create, w.Code, w.Build()); err != nil {
			return err
		}
	}
	for _, p := range f.Products {
		if err := createOnce(ctx, s, s.products.GetByCode, s.products.Create, p.Code, p.Build()); err != nil {
			return err
		}
	}
	for _, t := range f.Technicians {
		if err := createOnce(ctx, s, s.technicians.GetByCode, s.technicians.Create, t.Code, t.Build()); err != nil {
			return err
		}
	}
	for _, c := range f.Customers {
		if err := createOnce(ctx, s, s.customers.GetByCode, s.customers.Create, c.Code, c.Build()); err != nil {
			return err
		}
	}

	for _, vf := range f.Vehicles {
		v, err := vf.Build()
		if err != nil {
			return err
		}
		if vf.Customer != "" {
			owner, err := s.customers.GetByCode(ctx, vf.Customer)
			if err != nil {
				return fmt.Errorf("vehicle %s: customer %s: %w", vf.Plate, vf.Customer, err)
			}
			ownerID := owner.ID
			v.CustomerID = &ownerID
		}
		if err := createOnce(ctx, s, s.vehicles.GetByPlate, s.vehicles.Create, vf.Plate, v); err != nil {
			return err
		}
	}
	return nil
}

// createOnce creates e unless lookup finds key.
func createOnce[T any](
	ctx context.Context,
	s *seeder,
	lookup func(context.Context, string) (T, error),
	create func(context.Context, T) error,
	key string,
	e T,
) error {
	if key != "" {
		_, err := lookup(ctx, key)
		if err == nil {
			s.skipped++
			return nil
		}
		if !apperror.IsNotFound(err) {
			return err
		}
	}
	if err := create(ctx, e); err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	s.created++
	return nil
}
