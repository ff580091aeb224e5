package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taller/internal/core/apperror"
	"taller/internal/core/tenant"
	"taller/internal/infrastructure/storage/postgres"
	"taller/pkg/logger"
)

const TenantHeader = "X-Tenant-ID"

// TenantDB resolves X-Tenant-ID to the tenant database and binds its pool,
// transaction manager and tenant record to the request context. It must run
// before anything touches the database.
func TenantDB(manager *tenant.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		raw := c.GetHeader(TenantHeader)
		if raw == "" {
			_ = c.Error(apperror.NewValidation("tenant is required").WithDetail("header", TenantHeader))
			c.Abort()
			return
		}
		tenantUUID, err := uuid.Parse(raw)
		if err != nil {
			_ = c.Error(
				apperror.NewValidation("invalid tenant id").
					WithDetail("header", TenantHeader).
					WithDetail("value", raw),
			)
			c.Abort()
			return
		}
		tenantID := tenantUUID.String()

		mp, err := manager.GetPool(ctx, tenantID)
		if err != nil {
			logger.Warn(ctx, "tenant pool error", "tenant_id", tenantID, "error", err)
			_ = c.Error(tenantError(tenantID, err))
			c.Abort()
			return
		}

		// Keeps the pool from being evicted while the request runs.
		mp.AcquireRef()
		defer mp.ReleaseRef()

		ctx, _ = postgres.WithTenantDB(ctx, mp)
		c.Request = c.Request.WithContext(ctx)
		c.Set("tenant_id", tenantID)

		c.Next()
	}
}

func tenantError(tenantID string, err error) error {
	switch {
	case errors.Is(err, tenant.ErrTenantNotFound):
		return apperror.NewNotFound("tenant", tenantID)
	case errors.Is(err, tenant.ErrTenantNotActive):
		return apperror.NewForbidden("tenant is not active").WithDetail("tenant_id", tenantID)
	case errors.Is(err, tenant.ErrMaxPoolLimit):
		appErr := apperror.NewInternal(err)
		appErr.HTTPStatus = http.StatusServiceUnavailable
		appErr.Message = "service temporarily unavailable"
		return appErr.WithDetail("tenant_id", tenantID)
	}
	return apperror.NewInternal(err).WithDetail("tenant_id", tenantID)
}
