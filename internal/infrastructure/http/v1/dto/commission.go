package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"taller/internal/core/types"
	"taller/internal/domain/commission"
)

type CommissionPreviewQuery struct {
	TechnicianID string `form:"technician_id" binding:"required,uuid"`
	DateFrom     string `form:"date_from" binding:"required,datetime=2006-01-02"`
	DateTo       string `form:"date_to" binding:"required,datetime=2006-01-02"`
}

type CreateSettlementRequest struct {
	TechnicianID         string           `json:"technicianId" binding:"required,uuid"`
	DateFrom             string           `json:"dateFrom" binding:"required,datetime=2006-01-02"`
	DateTo               string           `json:"dateTo" binding:"required,datetime=2006-01-02"`
	CommissionPercentage *decimal.Decimal `json:"commissionPercentage"`
	Notes                string           `json:"notes"`
}

type SettlementListQuery struct {
	PageQuery
	TechnicianID string `form:"technicianId" binding:"omitempty,uuid"`
	DateFrom     string `form:"dateFrom" binding:"omitempty,datetime=2006-01-02"`
	DateTo       string `form:"dateTo" binding:"omitempty,datetime=2006-01-02"`
}

func (q *SettlementListQuery) ToFilter() commission.ListFilter {
	f := commission.ListFilter{ListFilter: q.ListFilter("-date")}
	f.TechnicianID, _ = ParseOptionalID(&q.TechnicianID, "technicianId")
	f.DateFrom, _ = ParseDate(q.DateFrom, "dateFrom")
	f.DateTo, _ = ParseDate(q.DateTo, "dateTo")
	return f
}

type SettlementItemResponse struct {
	WorkOrderID string      `json:"workOrderId"`
	OrderNumber string      `json:"orderNumber"`
	LaborAmount types.Money `json:"laborAmount"`
}

type SettlementResponse struct {
	DocumentResponse
	TechnicianID         string                   `json:"technicianId"`
	DateFrom             string                   `json:"dateFrom"`
	DateTo               string                   `json:"dateTo"`
	BaseAmount           types.Money              `json:"baseAmount"`
	CommissionPercentage decimal.Decimal          `json:"commissionPercentage"`
	CommissionAmount     types.Money              `json:"commissionAmount"`
	Items                []SettlementItemResponse `json:"items"`
}

func FromSettlement(s *commission.Settlement) *SettlementResponse {
	resp := &SettlementResponse{
		DocumentResponse:     FromDocument(s.Document),
		TechnicianID:         s.TechnicianID.String(),
		DateFrom:             s.DateFrom.Format(DateLayout),
		DateTo:               s.DateTo.Format(DateLayout),
		BaseAmount:           s.BaseAmount,
		CommissionPercentage: s.CommissionPercentage,
		CommissionAmount:     s.CommissionAmount,
		Items:                make([]SettlementItemResponse, len(s.Items)),
	}
	for i, it := range s.Items {
		resp.Items[i] = SettlementItemResponse{
			WorkOrderID: it.WorkOrderID.String(),
			OrderNumber: it.OrderNumber,
			LaborAmount: it.LaborAmount,
		}
	}
	return resp
}

// ParseRange reads the two dates already checked by binding.
func ParseRange(from, to string) (commission.DateRange, error) {
	f, err := time.Parse(DateLayout, from)
	if err != nil {
		return commission.DateRange{}, err
	}
	t, err := time.Parse(DateLayout, to)
	if err != nil {
		return commission.DateRange{}, err
	}
	return commission.NewDateRange(f, t)
}
