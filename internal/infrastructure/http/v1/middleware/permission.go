package middleware

import (
	"github.com/gin-gonic/gin"

	"taller/internal/core/apperror"
	appctx "taller/internal/core/context"
)

// RequirePermission checks a permission code from the token claims.
// Admins have every permission.
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := appctx.GetUser(c.Request.Context())
		if user == nil {
			abortUnauthorized(c, "authentication required")
			return
		}
		for _, p := range permissions {
			if user.HasPermission(p) {
				c.Next()
				return
			}
		}
		detail := any(permissions)
		if len(permissions) == 1 {
			detail = permissions[0]
		}
		_ = c.Error(
			apperror.NewForbidden("insufficient permissions").
				WithDetail("required_permission", detail),
		)
		c.Abort()
	}
}
