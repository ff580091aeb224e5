package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"taller/internal/core/tenant"
)

// CheckFunc probes one dependency for readiness.
type CheckFunc func(ctx context.Context) error

// HealthHandler serves the liveness, readiness and info probes.
type HealthHandler struct {
	version string
	checks  map[string]CheckFunc
	tenants *tenant.Manager
}

// NewHealthHandler takes the named readiness checks; tenants may be nil.
func NewHealthHandler(version string, tenants *tenant.Manager, checks map[string]CheckFunc) *HealthHandler {
	return &HealthHandler{version: version, checks: checks, tenants: tenants}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /health/ready. Any failing check answers 503.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "healthy"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "error"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}

// Info handles GET /health/info.
func (h *HealthHandler) Info(c *gin.Context) {
	body := gin.H{
		"app":     "taller",
		"version": h.version,
	}
	if h.tenants != nil {
		body["tenants"] = h.tenants.Stats()
	}
	c.JSON(http.StatusOK, body)
}
