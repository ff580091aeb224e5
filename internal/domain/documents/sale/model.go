// Package sale is the remision generated when a work order is billed.
package sale

import (
	"context"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/core/types"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pendiente"
	PaymentPartial PaymentStatus = "parcial"
	PaymentPaid    PaymentStatus = "pagado"
)

type Sale struct {
	entity.Document

	WorkOrderID *id.ID `db:"work_order_id" json:"workOrderId,omitempty"`
	CustomerID  *id.ID `db:"customer_id" json:"customerId,omitempty"`

	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	TotalAmount    types.Money `db:"total_amount" json:"totalAmount"`

	PaymentStatus PaymentStatus `db:"payment_status" json:"paymentStatus"`
	PaidAmount    types.Money   `db:"paid_amount" json:"paidAmount"`
}

// Totals is the amount set copied from the billed document.
type Totals struct {
	Subtotal       types.Money
	DiscountAmount types.Money
	TaxAmount      types.Money
	TotalAmount    types.Money
}

// NewSale starts pending; a zero total has nothing to collect and starts paid.
func NewSale(customerID *id.ID, t Totals) *Sale {
	s := &Sale{
		Document:       entity.NewDocument(),
		CustomerID:     customerID,
		Subtotal:       t.Subtotal,
		DiscountAmount: t.DiscountAmount,
		TaxAmount:      t.TaxAmount,
		TotalAmount:    t.TotalAmount,
		PaymentStatus:  PaymentPending,
		PaidAmount:     types.Zero(),
	}
	if s.TotalAmount.IsZero() {
		s.PaymentStatus = PaymentPaid
	}
	return s
}

func (s *Sale) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}
	if !s.TotalAmount.Equal(s.Subtotal.Sub(s.DiscountAmount).Add(s.TaxAmount)) {
		return apperror.NewValidation("total does not match subtotal, discount and tax").
			WithDetail("field", "totalAmount")
	}
	if s.TotalAmount.IsNegative() {
		return apperror.NewValidation("total cannot be negative").
			WithDetail("field", "totalAmount")
	}
	if s.PaidAmount.IsNegative() {
		return apperror.NewValidation("paid amount cannot be negative").
			WithDetail("field", "paidAmount")
	}
	return nil
}

func (s *Sale) Balance() types.Money {
	return s.TotalAmount.Sub(s.PaidAmount)
}

// RegisterPayment adds amount to PaidAmount and derives the payment status.
// Overpayment is rejected.
func (s *Sale) RegisterPayment(amount types.Money) error {
	if !amount.IsPositive() {
		return apperror.NewValidation("payment amount must be positive").
			WithDetail("field", "amount")
	}
	if s.PaymentStatus == PaymentPaid {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "sale is already paid")
	}
	paid := s.PaidAmount.Add(amount)
	if paid.GreaterThan(s.TotalAmount) {
		return apperror.NewValidation("payment exceeds the outstanding balance").
			WithDetail("balance", s.Balance().String())
	}
	s.PaidAmount = paid
	switch {
	case paid.Equal(s.TotalAmount):
		s.PaymentStatus = PaymentPaid
	case paid.IsPositive():
		s.PaymentStatus = PaymentPartial
	}
	return nil
}
