package handlers

import (
	"github.com/gin-gonic/gin"

	"taller/internal/domain/reports"
	"taller/internal/infrastructure/http/v1/dto"
)

type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// StockBalance handles GET /reports/stock-balance.
func (h *ReportsHandler) StockBalance(c *gin.Context) {
	var q dto.StockBalanceQuery
	if !h.BindQuery(c, &q) {
		return
	}
	report, err := h.service.StockBalance(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// StockTurnover handles GET /reports/stock-turnover.
func (h *ReportsHandler) StockTurnover(c *gin.Context) {
	var q dto.StockTurnoverQuery
	if !h.BindQuery(c, &q) {
		return
	}
	report, err := h.service.StockTurnover(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}
