package v1

import (
	"github.com/gin-gonic/gin"

	"taller/internal/infrastructure/http/v1/middleware"
)

// CatalogRouteHandler is the CRUD surface shared by catalog handlers.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// CatalogPermissions names what reading and writing a catalog requires.
// Read passes with any of the listed permissions.
type CatalogPermissions struct {
	Read  []string
	Write string
}

// RegisterCatalogRoutes wires the standard CRUD routes of a catalog. mutate
// runs before every write handler; it carries the per-tenant rate limit.
//
// Usage:
//
//	svc := customer.NewService(catalog_repo.NewCustomerRepo(), cfg.Numerator)
//	RegisterCatalogRoutes(catalogs.Group("/customers"), handlers.NewCustomerHandler(base, svc), perms, mutate...)
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler, perms CatalogPermissions, mutate ...gin.HandlerFunc) {
	read := middleware.RequireAnyPermission(perms.Read...)
	write := middleware.RequirePermission(perms.Write)

	group.GET("", read, handler.List)
	group.GET("/:id", read, handler.Get)
	group.POST("", chain(mutate, write, handler.Create)...)
	group.PUT("/:id", chain(mutate, write, handler.Update)...)
	group.DELETE("/:id", chain(mutate, write, handler.Delete)...)
}

// chain returns pre followed by hs in a fresh slice.
func chain(pre []gin.HandlerFunc, hs ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(pre)+len(hs))
	out = append(out, pre...)
	return append(out, hs...)
}
