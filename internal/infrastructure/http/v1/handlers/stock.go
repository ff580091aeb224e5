package handlers

import (
	"github.com/gin-gonic/gin"

	"taller/internal/core/entity"
	"taller/internal/domain/registers/stock"
	"taller/internal/infrastructure/http/v1/dto"
)

// StockHandler serves read access to the stock register.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// WarehouseBalances handles GET /stock/warehouses/:id/balances.
func (h *StockHandler) WarehouseBalances(c *gin.Context) {
	warehouseID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	balances, err := h.service.WarehouseStock(c.Request.Context(), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if balances == nil {
		balances = []entity.StockBalance{}
	}
	h.OK(c, gin.H{"items": balances})
}

// Availability handles GET /stock/products/:id/availability, summed over warehouses.
func (h *StockHandler) Availability(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	qty, err := h.service.Availability(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"productId": productID.String(), "quantity": qty})
}

// Movements handles GET /stock/products/:id/movements.
func (h *StockHandler) Movements(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var q dto.StockMovementQuery
	if !h.BindQuery(c, &q) {
		return
	}
	movements, err := h.service.History(c.Request.Context(), productID, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, movementList(movements))
}

// RecorderMovements handles GET /stock/documents/:id/movements: what one
// document wrote to the register.
func (h *StockHandler) RecorderMovements(c *gin.Context) {
	recorderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	movements, err := h.service.MovementsOf(c.Request.Context(), recorderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, movementList(movements))
}

func movementList(m []entity.StockMovement) gin.H {
	if m == nil {
		m = []entity.StockMovement{}
	}
	return gin.H{"items": m, "totalCount": len(m)}
}
