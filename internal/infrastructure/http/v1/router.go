// Package v1 wires the version 1 HTTP API.
package v1

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"taller/internal/core/numerator"
	"taller/internal/core/tenant"
	"taller/internal/domain/audit"
	"taller/internal/domain/auth"
	"taller/internal/domain/catalogs/customer"
	"taller/internal/domain/catalogs/product"
	"taller/internal/domain/catalogs/technician"
	"taller/internal/domain/catalogs/vehicle"
	"taller/internal/domain/catalogs/warehouse"
	"taller/internal/domain/commission"
	"taller/internal/domain/documents/sale"
	"taller/internal/domain/documents/work_order"
	"taller/internal/domain/registers/stock"
	"taller/internal/domain/reports"
	"taller/internal/infrastructure/http/v1/dto"
	"taller/internal/infrastructure/http/v1/handlers"
	"taller/internal/infrastructure/http/v1/middleware"
	"taller/internal/infrastructure/storage"
	"taller/internal/infrastructure/storage/postgres"
	"taller/internal/infrastructure/storage/postgres/catalog_repo"
	"taller/internal/infrastructure/storage/postgres/document_repo"
	"taller/internal/infrastructure/storage/postgres/register_repo"
	"taller/internal/infrastructure/storage/postgres/report_repo"
	"taller/pkg/logger"
)

type RouterConfig struct {
	Version string

	TenantManager *tenant.Manager
	// MetaPool backs the readiness probe.
	MetaPool *pgxpool.Pool
	// Redis is optional: rate limit counters and the readiness probe use it.
	Redis *redis.Client

	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator
	AuthService  *auth.Service
	Numerator    numerator.Generator
	Settings     tenant.SettingsProvider

	// Photos is optional; uploads fail with INTERNAL_ERROR without it.
	Photos *storage.LocalPhotoStore
	Audit  *postgres.AuditService

	// Idempotency is optional; the X-Idempotency-Key header is ignored without it.
	Idempotency *postgres.IdempotencyStore

	// AuthRate limits /auth per client IP, MutationRate limits writes per
	// tenant. Empty disables the limit. Format "20-M".
	AuthRate     string
	MutationRate string
}

// services are built once; repositories take the tenant connection from the
// request context.
type services struct {
	vehicles    *vehicle.Service
	customers   *customer.Service
	technicians *technician.Service
	products    *product.Service
	warehouses  *warehouse.Service
	stock       *stock.Service
	sales       *sale.Service
	orders      *work_order.Service
	commissions *commission.Service
	reports     *reports.Service
}

func newServices(cfg RouterConfig) *services {
	s := &services{
		vehicles:    vehicle.NewService(catalog_repo.NewVehicleRepo()),
		customers:   customer.NewService(catalog_repo.NewCustomerRepo(), cfg.Numerator),
		technicians: technician.NewService(catalog_repo.NewTechnicianRepo(), cfg.Numerator),
		products:    product.NewService(catalog_repo.NewProductRepo(), cfg.Numerator),
		warehouses:  warehouse.NewService(catalog_repo.NewWarehouseRepo(), cfg.Numerator),
		stock:       stock.NewService(register_repo.NewStockRepo()),
		reports:     reports.NewService(report_repo.NewReportRepo(), cfg.Settings),
	}

	rec := auditRecorder(cfg.Audit)
	events := postgres.NewOutboxPublisher()

	s.sales = sale.NewService(document_repo.NewSaleRepo(), cfg.Numerator, rec, nil)

	woCfg := work_order.Config{
		Repo:       document_repo.NewWorkOrderRepo(),
		Vehicles:   s.vehicles,
		Products:   s.products,
		Warehouses: s.warehouses,
		Sales:      s.sales,
		Stock:      s.stock,
		Settings:   cfg.Settings,
		Numerator:  cfg.Numerator,
		Events:     events,
		Audit:      rec,
	}
	if cfg.Photos != nil {
		woCfg.Photos = cfg.Photos
	}
	s.orders = work_order.NewService(woCfg)

	s.commissions = commission.NewService(commission.Config{
		Repo:        document_repo.NewCommissionRepo(),
		Technicians: s.technicians,
		Settings:    cfg.Settings,
		Numerator:   cfg.Numerator,
		Events:      events,
		Audit:       rec,
	})
	return s
}

// NewRouter builds the gin engine with every v1 route.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Settings == nil {
		cfg.Settings = tenant.ContextSettings{}
	}
	if err := dto.RegisterGinValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	// Recovery sits inside ErrorHandler so the recorded panic is rendered.
	router.Use(middleware.Recovery())

	registerHealthRoutes(router, cfg)

	authLimit, err := optionalLimit(cfg.AuthRate, "auth", cfg.Redis, nil)
	if err != nil {
		return nil, err
	}
	mutationLimit, err := optionalLimit(cfg.MutationRate, "mutation", cfg.Redis, middleware.TenantKey)
	if err != nil {
		return nil, err
	}

	api := router.Group("/api/v1")
	registerAuthRoutes(api, cfg, authLimit)

	protected := api.Group("")
	protected.Use(middleware.TenantDB(cfg.TenantManager))
	protected.Use(middleware.Auth(cfg.JWTValidator))

	svc := newServices(cfg)
	registerWorkshopRoutes(protected.Group("/workshop"), cfg, svc, mutationLimit)
	registerCatalogRoutes(protected.Group("/catalog"), svc, mutationLimit)
	registerStockRoutes(protected, svc)

	return router, nil
}

// auditRecorder keeps a nil store from becoming a non-nil interface.
func auditRecorder(rec *postgres.AuditService) audit.Recorder {
	if rec == nil {
		return nil
	}
	return rec
}

func optionalLimit(rate, prefix string, rdb *redis.Client, key func(*gin.Context) string) ([]gin.HandlerFunc, error) {
	if rate == "" {
		return nil, nil
	}
	h, err := middleware.RateLimit(middleware.RateLimitConfig{
		Rate:   rate,
		Prefix: "taller:ratelimit:" + prefix,
		Redis:  rdb,
		Key:    key,
	})
	if err != nil {
		return nil, fmt.Errorf("%s rate limit: %w", prefix, err)
	}
	return []gin.HandlerFunc{h}, nil
}

func registerHealthRoutes(router *gin.Engine, cfg RouterConfig) {
	checks := map[string]handlers.CheckFunc{}
	if cfg.MetaPool != nil {
		checks["meta_database"] = cfg.MetaPool.Ping
	}
	if cfg.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return cfg.Redis.Ping(ctx).Err() }
	}
	h := handlers.NewHealthHandler(cfg.Version, cfg.TenantManager, checks)

	health := router.Group("/health")
	health.GET("/live", h.Live)
	health.GET("/ready", h.Ready)
	health.GET("/info", h.Info)
}

// registerAuthRoutes resolves the tenant before authentication, since users
// live in the tenant database.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig, limit []gin.HandlerFunc) {
	if cfg.AuthService == nil {
		return
	}
	h := handlers.NewAuthHandler(handlers.NewBaseHandler(), cfg.AuthService)

	group := rg.Group("/auth")
	group.Use(limit...)
	group.Use(middleware.TenantDB(cfg.TenantManager))
	group.POST("/login", h.Login)
	group.POST("/refresh", h.Refresh)

	protected := group.Group("")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	protected.POST("/logout", h.Logout)
	protected.GET("/me", h.Me)
	protected.POST("/users", middleware.RequireRole(auth.RoleAdmin), h.CreateUser)
}

func registerWorkshopRoutes(rg *gin.RouterGroup, cfg RouterConfig, svc *services, mutate []gin.HandlerFunc) {
	base := handlers.NewBaseHandler()
	ordersRead := middleware.RequirePermission(auth.PermOrdersRead)
	ordersWrite := middleware.RequirePermission(auth.PermOrdersWrite)

	var idem []gin.HandlerFunc
	if cfg.Idempotency != nil {
		idem = []gin.HandlerFunc{middleware.Idempotency(cfg.Idempotency)}
	}

	// --- VEHICLES ---
	{
		h := handlers.NewVehicleHandler(base, svc.vehicles, svc.orders)
		g := rg.Group("/vehicles")
		g.GET("/by-plate/:plate", ordersRead, h.GetByPlate)
		g.GET("/:id/history", ordersRead, h.History)
		RegisterCatalogRoutes(g, h, CatalogPermissions{
			Read:  []string{auth.PermOrdersRead},
			Write: auth.PermOrdersWrite,
		}, mutate...)
	}

	// --- WORK ORDERS ---
	{
		var files handlers.PhotoFiles
		if cfg.Photos != nil {
			files = cfg.Photos
		}
		h := handlers.NewWorkOrderHandler(base, svc.orders, files)
		g := rg.Group("/work-orders")
		w := func(hs ...gin.HandlerFunc) []gin.HandlerFunc {
			return chain(mutate, append([]gin.HandlerFunc{ordersWrite}, hs...)...)
		}

		g.GET("", ordersRead, h.List)
		g.GET("/:id", ordersRead, h.Get)
		g.POST("", w(h.Create)...)
		g.PUT("/:id", w(h.Update)...)
		g.PATCH("/:id/status", w(h.ChangeStatus)...)
		g.POST("/:id/items", w(h.AddItem)...)
		g.DELETE("/:id/items/:itemId", w(h.RemoveItem)...)
		g.PUT("/:id/checklist", w(h.SaveChecklist)...)
		g.POST("/:id/photos/:phase", w(h.AddPhotos)...)
		g.DELETE("/:id/photos/:phase/:index", w(h.RemovePhoto)...)
		g.GET("/:id/photos/:phase/:index", ordersRead, h.Photo)
		g.POST("/:id/generate-sale", chain(mutate, chain(idem,
			middleware.RequirePermission(auth.PermSalesGenerate), h.GenerateSale)...)...)

		if cfg.Audit != nil {
			a := handlers.NewAuditHandler(base, cfg.Audit, "work_order")
			g.GET("/:id/audit", middleware.RequireRole(auth.RoleAdmin), a.History)
		}
	}

	// --- SALES ---
	{
		h := handlers.NewSaleHandler(base, svc.sales, cfg.Settings)
		g := rg.Group("/sales")
		g.GET("", ordersRead, h.List)
		g.GET("/:id", ordersRead, h.Get)
		g.POST("/:id/payments", chain(mutate, chain(idem,
			middleware.RequirePermission(auth.PermSalesGenerate), h.RegisterPayment)...)...)
	}

	// --- COMMISSION SETTLEMENTS ---
	{
		h := handlers.NewCommissionHandler(base, svc.commissions)
		read := middleware.RequirePermission(auth.PermCommissionRead)
		g := rg.Group("/commission-settlements")
		g.GET("/technicians", read, h.Technicians)
		g.GET("/preview", read, h.Preview)
		g.GET("", read, h.List)
		g.GET("/:id", read, h.Get)
		g.POST("", chain(mutate, chain(idem,
			middleware.RequirePermission(auth.PermCommissionWrite), h.Create)...)...)
	}
}

func registerCatalogRoutes(rg *gin.RouterGroup, svc *services, mutate []gin.HandlerFunc) {
	base := handlers.NewBaseHandler()
	perms := CatalogPermissions{
		Read:  []string{auth.PermOrdersRead, auth.PermCatalogWrite},
		Write: auth.PermCatalogWrite,
	}

	RegisterCatalogRoutes(rg.Group("/customers"), handlers.NewCustomerHandler(base, svc.customers), perms, mutate...)
	RegisterCatalogRoutes(rg.Group("/technicians"), handlers.NewTechnicianHandler(base, svc.technicians), perms, mutate...)
	RegisterCatalogRoutes(rg.Group("/products"), handlers.NewProductHandler(base, svc.products), perms, mutate...)
	RegisterCatalogRoutes(rg.Group("/warehouses"), handlers.NewWarehouseHandler(base, svc.warehouses), perms, mutate...)
}

func registerStockRoutes(rg *gin.RouterGroup, svc *services) {
	base := handlers.NewBaseHandler()
	read := middleware.RequirePermission(auth.PermReportsRead)

	sh := handlers.NewStockHandler(base, svc.stock)
	st := rg.Group("/stock")
	st.GET("/warehouses/:id/balances", read, sh.WarehouseBalances)
	st.GET("/products/:id/availability", middleware.RequireAnyPermission(auth.PermReportsRead, auth.PermOrdersWrite), sh.Availability)
	st.GET("/products/:id/movements", read, sh.Movements)
	st.GET("/documents/:id/movements", read, sh.RecorderMovements)

	rh := handlers.NewReportsHandler(base, svc.reports)
	rp := rg.Group("/reports")
	rp.GET("/stock-balance", read, rh.StockBalance)
	rp.GET("/stock-turnover", read, rh.StockTurnover)
}
