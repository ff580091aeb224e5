package handlers

import (
	"github.com/gin-gonic/gin"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/domain/commission"
	"taller/internal/infrastructure/http/v1/dto"
)

type CommissionHandler struct {
	*BaseHandler
	service *commission.Service
}

func NewCommissionHandler(base *BaseHandler, service *commission.Service) *CommissionHandler {
	return &CommissionHandler{BaseHandler: base, service: service}
}

// Technicians handles GET /commission-settlements/technicians: active
// technicians with their unsettled delivered orders.
func (h *CommissionHandler) Technicians(c *gin.Context) {
	items, err := h.service.ListTechnicians(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []commission.TechnicianSummary{}
	}
	h.OK(c, gin.H{"items": items})
}

// Preview handles GET /commission-settlements/preview. Nothing is written.
func (h *CommissionHandler) Preview(c *gin.Context) {
	var q dto.CommissionPreviewQuery
	if !h.BindQuery(c, &q) {
		return
	}
	techID, err := id.Parse(q.TechnicianID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid technician_id").WithDetail("field", "technician_id"))
		return
	}
	r, err := dto.ParseRange(q.DateFrom, q.DateTo)
	if err != nil {
		h.Error(c, err)
		return
	}
	p, err := h.service.Preview(c.Request.Context(), techID, r)
	if err != nil {
		h.Error(c, err)
		return
	}
	if p.Orders == nil {
		p.Orders = []commission.Candidate{}
	}
	h.OK(c, p)
}

// Create handles POST /commission-settlements.
func (h *CommissionHandler) Create(c *gin.Context) {
	var req dto.CreateSettlementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	techID, err := id.Parse(req.TechnicianID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid technicianId").WithDetail("field", "technicianId"))
		return
	}
	r, err := dto.ParseRange(req.DateFrom, req.DateTo)
	if err != nil {
		h.Error(c, err)
		return
	}
	s, err := h.service.CreateSettlement(c.Request.Context(), commission.SettlementInput{
		TechnicianID:         techID,
		Range:                r,
		CommissionPercentage: req.CommissionPercentage,
		Notes:                req.Notes,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromSettlement(s))
}

func (h *CommissionHandler) List(c *gin.Context) {
	var q dto.SettlementListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.MapList(result, dto.FromSettlement))
}

func (h *CommissionHandler) Get(c *gin.Context) {
	settlementID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	s, err := h.service.Get(c.Request.Context(), settlementID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSettlement(s))
}
