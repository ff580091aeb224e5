// Package commission settles technician commissions over the labor of
// delivered work orders. An order is settled at most once.
package commission

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/core/types"
)

// DateRange is inclusive on both ends and compared by calendar date.
type DateRange struct {
	From time.Time
	To   time.Time
}

func NewDateRange(from, to time.Time) (DateRange, error) {
	r := DateRange{From: dateOnly(from), To: dateOnly(to)}
	return r, r.Validate()
}

func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return apperror.NewValidation("date_from and date_to are required").
			WithDetail("field", "dateFrom")
	}
	if r.From.After(r.To) {
		return apperror.NewValidation("date_from must not be after date_to").
			WithDetail("field", "dateFrom")
	}
	return nil
}

// Contains reports whether t falls on a UTC day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := dateOnly(t.UTC())
	return !d.Before(r.From) && !d.After(r.To)
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Candidate is a delivered, unsettled order of the technician.
type Candidate struct {
	WorkOrderID  id.ID       `db:"work_order_id" json:"workOrderId"`
	OrderNumber  string      `db:"order_number" json:"orderNumber"`
	VehiclePlate string      `db:"vehicle_plate" json:"vehiclePlate"`
	DeliveredAt  time.Time   `db:"delivered_at" json:"deliveredAt"`
	LaborAmount  types.Money `db:"labor_amount" json:"laborAmount"`
}

func BaseAmount(cands []Candidate) types.Money {
	sum := types.Zero()
	for _, c := range cands {
		sum = sum.Add(c.LaborAmount)
	}
	return sum
}

type Preview struct {
	TechnicianID         id.ID           `json:"technicianId"`
	DateFrom             time.Time       `json:"dateFrom"`
	DateTo               time.Time       `json:"dateTo"`
	Orders               []Candidate     `json:"orders"`
	BaseAmount           types.Money     `json:"baseAmount"`
	CommissionPercentage decimal.Decimal `json:"commissionPercentage"`
	CommissionAmount     types.Money     `json:"commissionAmount"`
}

type Settlement struct {
	entity.Document

	TechnicianID         id.ID           `db:"technician_id" json:"technicianId"`
	DateFrom             time.Time       `db:"date_from" json:"dateFrom"`
	DateTo               time.Time       `db:"date_to" json:"dateTo"`
	BaseAmount           types.Money     `db:"base_amount" json:"baseAmount"`
	CommissionPercentage decimal.Decimal `db:"commission_percentage" json:"commissionPercentage"`
	CommissionAmount     types.Money     `db:"commission_amount" json:"commissionAmount"`

	Items []Item `db:"-" json:"items"`
}

type Item struct {
	ID           id.ID       `db:"id" json:"id"`
	SettlementID id.ID       `db:"settlement_id" json:"settlementId"`
	WorkOrderID  id.ID       `db:"work_order_id" json:"workOrderId"`
	OrderNumber  string      `db:"order_number" json:"orderNumber"`
	LaborAmount  types.Money `db:"labor_amount" json:"laborAmount"`
}

// NewSettlement computes the commission over the candidates.
func NewSettlement(technicianID id.ID, r DateRange, pct decimal.Decimal, cands []Candidate, scale int32) *Settlement {
	s := &Settlement{
		Document:             entity.NewDocument(),
		TechnicianID:         technicianID,
		DateFrom:             r.From,
		DateTo:               r.To,
		CommissionPercentage: pct,
	}
	s.BaseAmount = BaseAmount(cands)
	s.CommissionAmount = types.Percent(s.BaseAmount, pct, scale)
	s.Items = make([]Item, 0, len(cands))
	for _, c := range cands {
		s.Items = append(s.Items, Item{
			ID:           id.New(),
			SettlementID: s.ID,
			WorkOrderID:  c.WorkOrderID,
			OrderNumber:  c.OrderNumber,
			LaborAmount:  c.LaborAmount,
		})
	}
	return s
}

func (s *Settlement) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(s.TechnicianID) {
		return apperror.NewValidation("technician is required").WithDetail("field", "technicianId")
	}
	if len(s.Items) == 0 {
		return apperror.NewNoEligibleOrders(s.TechnicianID.String())
	}
	return nil
}

func (s *Settlement) OrderIDs() []id.ID {
	out := make([]id.ID, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.WorkOrderID
	}
	return out
}

// TechnicianSummary is a technician with the labor still waiting to be settled.
type TechnicianSummary struct {
	TechnicianID         id.ID           `json:"technicianId"`
	Code                 string          `json:"code"`
	Name                 string          `json:"name"`
	CommissionPercentage decimal.Decimal `json:"commissionPercentage"`
	PendingOrders        int             `json:"pendingOrders"`
	PendingLabor         types.Money     `json:"pendingLabor"`
}

type Pending struct {
	TechnicianID id.ID       `db:"technician_id"`
	Orders       int         `db:"orders"`
	Labor        types.Money `db:"labor"`
}
