package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"taller/internal/core/id"
	"taller/internal/infrastructure/storage/postgres"
)

type AuditHistory interface {
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// AuditHandler exposes the change log of one entity type.
type AuditHandler struct {
	*BaseHandler
	history    AuditHistory
	entityType string
}

func NewAuditHandler(base *BaseHandler, history AuditHistory, entityType string) *AuditHandler {
	return &AuditHandler{BaseHandler: base, history: history, entityType: entityType}
}

// History handles GET /.../:id/audit, newest first.
func (h *AuditHandler) History(c *gin.Context) {
	entityID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	entries, err := h.history.History(c.Request.Context(), h.entityType, entityID, h.ParseIntQuery(c, "limit", 50))
	if err != nil {
		h.Error(c, err)
		return
	}
	if entries == nil {
		entries = []postgres.AuditEntry{}
	}
	h.OK(c, gin.H{"items": entries})
}
