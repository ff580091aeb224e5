package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"taller/internal/core/tenant"
	"taller/internal/domain/documents/sale"
	"taller/internal/infrastructure/http/v1/dto"
	"taller/pkg/logger"
)

type SaleHandler struct {
	*BaseHandler
	service  *sale.Service
	settings tenant.SettingsProvider
}

func NewSaleHandler(base *BaseHandler, service *sale.Service, settings tenant.SettingsProvider) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service, settings: settings}
}

// hideTax reads the tenant's presentation flag; an unreadable setting shows tax.
func (h *SaleHandler) hideTax(ctx context.Context) bool {
	if h.settings == nil {
		return false
	}
	s, err := h.settings.Workshop(ctx)
	if err != nil {
		logger.Warn(ctx, "workshop settings unavailable", "error", err)
		return false
	}
	return s.HideRemisionTax
}

func (h *SaleHandler) List(c *gin.Context) {
	var q dto.SaleListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	ctx := c.Request.Context()
	result, err := h.service.List(ctx, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	hide := h.hideTax(ctx)
	h.OK(c, dto.MapList(result, func(s *sale.Sale) *dto.SaleResponse {
		return dto.FromSale(s, hide)
	}))
}

func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	s, err := h.service.GetByID(ctx, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(s, h.hideTax(ctx)))
}

// RegisterPayment handles POST /sales/:id/payments.
func (h *SaleHandler) RegisterPayment(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.RegisterPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	s, err := h.service.RegisterPayment(ctx, saleID, req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(s, h.hideTax(ctx)))
}
