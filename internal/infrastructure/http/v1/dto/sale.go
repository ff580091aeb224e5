package dto

import (
	"taller/internal/core/types"
	"taller/internal/domain/documents/sale"
)

type SaleResponse struct {
	DocumentResponse
	WorkOrderID    *string            `json:"workOrderId,omitempty"`
	CustomerID     *string            `json:"customerId,omitempty"`
	Subtotal       types.Money        `json:"subtotal"`
	DiscountAmount types.Money        `json:"discountAmount"`
	TaxAmount      types.Money        `json:"taxAmount"`
	TotalAmount    types.Money        `json:"totalAmount"`
	TaxHidden      bool               `json:"taxHidden"`
	PaymentStatus  sale.PaymentStatus `json:"paymentStatus"`
	PaidAmount     types.Money        `json:"paidAmount"`
	Balance        types.Money        `json:"balance"`
}

// FromSale renders the sale; with hideTax the tax is folded into the subtotal.
func FromSale(s *sale.Sale, hideTax bool) *SaleResponse {
	resp := &SaleResponse{
		DocumentResponse: FromDocument(s.Document),
		WorkOrderID:      idString(s.WorkOrderID),
		CustomerID:       idString(s.CustomerID),
		Subtotal:         s.Subtotal,
		DiscountAmount:   s.DiscountAmount,
		TaxAmount:        s.TaxAmount,
		TotalAmount:      s.TotalAmount,
		PaymentStatus:    s.PaymentStatus,
		PaidAmount:       s.PaidAmount,
		Balance:          s.Balance(),
	}
	if hideTax {
		resp.Subtotal = s.Subtotal.Add(s.TaxAmount)
		resp.TaxAmount = types.Zero()
		resp.TaxHidden = true
	}
	return resp
}

type SaleListQuery struct {
	PageQuery
	CustomerID    string `form:"customerId" binding:"omitempty,uuid"`
	PaymentStatus string `form:"paymentStatus" binding:"omitempty,oneof=pendiente parcial pagado"`
	DateFrom      string `form:"dateFrom" binding:"omitempty,datetime=2006-01-02"`
	DateTo        string `form:"dateTo" binding:"omitempty,datetime=2006-01-02"`
}

func (q *SaleListQuery) ToFilter() sale.ListFilter {
	f := sale.ListFilter{ListFilter: q.ListFilter("-date")}
	f.CustomerID, _ = ParseOptionalID(&q.CustomerID, "customerId")
	if q.PaymentStatus != "" {
		ps := sale.PaymentStatus(q.PaymentStatus)
		f.PaymentStatus = &ps
	}
	f.DateFrom, _ = ParseDate(q.DateFrom, "dateFrom")
	f.DateTo, _ = ParseDate(q.DateTo, "dateTo")
	return f
}

type RegisterPaymentRequest struct {
	Amount types.Money `json:"amount"`
}
