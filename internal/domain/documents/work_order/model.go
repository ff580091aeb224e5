// Package work_order implements the workshop work order (orden de trabajo):
// intake checklist, priced lines, the status machine and the bridge that
// bills a finished order as a sale.
package work_order

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/core/types"
)

type WorkOrder struct {
	entity.Document

	VehicleID    id.ID  `db:"vehicle_id" json:"vehicleId"`
	CustomerID   *id.ID `db:"customer_id" json:"customerId,omitempty"`
	TechnicianID *id.ID `db:"technician_id" json:"technicianId,omitempty"`
	WarehouseID  *id.ID `db:"warehouse_id" json:"warehouseId,omitempty"`

	Status      Status     `db:"status" json:"status"`
	ReceivedAt  time.Time  `db:"received_at" json:"receivedAt"`
	PromisedAt  *time.Time `db:"promised_at" json:"promisedAt,omitempty"`
	DeliveredAt *time.Time `db:"delivered_at" json:"deliveredAt,omitempty"`

	MileageIn  *int64 `db:"mileage_in" json:"mileageIn,omitempty"`
	MileageOut *int64 `db:"mileage_out" json:"mileageOut,omitempty"`

	ProblemDescription *string `db:"problem_description" json:"problemDescription,omitempty"`
	Diagnosis          *string `db:"diagnosis" json:"diagnosis,omitempty"`
	WorkPerformed      *string `db:"work_performed" json:"workPerformed,omitempty"`

	ChecklistIn Checklist `db:"checklist_in" json:"checklistIn"`

	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	TotalAmount    types.Money `db:"total_amount" json:"totalAmount"`

	SaleID    *id.ID     `db:"sale_id" json:"saleId,omitempty"`
	SettledAt *time.Time `db:"settled_at" json:"settledAt,omitempty"`

	PhotosIn  Photos `db:"photos_in" json:"photosIn"`
	PhotosOut Photos `db:"photos_out" json:"photosOut"`

	Items []Item `db:"-" json:"items"`
}

// NewWorkOrder opens an order in the initial state.
func NewWorkOrder(vehicleID id.ID) *WorkOrder {
	now := time.Now().UTC()
	wo := &WorkOrder{
		Document:       entity.NewDocument(),
		VehicleID:      vehicleID,
		Status:         InitialStatus,
		ReceivedAt:     now,
		Subtotal:       types.Zero(),
		DiscountAmount: types.Zero(),
		TaxAmount:      types.Zero(),
		TotalAmount:    types.Zero(),
		PhotosIn:       Photos{},
		PhotosOut:      Photos{},
		Items:          []Item{},
	}
	wo.Date = now
	return wo
}

func (w *WorkOrder) Validate(ctx context.Context) error {
	if err := w.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(w.VehicleID) {
		return apperror.NewValidation("vehicle is required").
			WithDetail("field", "vehicleId")
	}
	if !w.Status.Valid() {
		return apperror.NewValidation("invalid status").
			WithDetail("field", "status").
			WithDetail("value", string(w.Status))
	}
	if w.MileageIn != nil && *w.MileageIn < 0 {
		return apperror.NewValidation("mileage cannot be negative").
			WithDetail("field", "mileageIn")
	}
	if w.MileageOut != nil && w.MileageIn != nil && *w.MileageOut < *w.MileageIn {
		return apperror.NewValidation("delivery mileage is lower than intake mileage").
			WithDetail("field", "mileageOut")
	}
	if w.PromisedAt != nil && w.PromisedAt.Before(w.ReceivedAt.Truncate(24*time.Hour)) {
		return apperror.NewValidation("promised date is before reception").
			WithDetail("field", "promisedAt")
	}
	if err := w.CheckDiscount(); err != nil {
		return err
	}
	return w.ChecklistIn.Validate()
}

// CheckDiscount keeps the discount within [0, subtotal] so the total is
// never negative. Call it after RecalculateTotals.
func (w *WorkOrder) CheckDiscount() error {
	if w.DiscountAmount.IsNegative() {
		return apperror.NewValidation("discount cannot be negative").
			WithDetail("field", "discountAmount")
	}
	if w.DiscountAmount.GreaterThan(w.Subtotal) {
		return apperror.NewValidation("discount exceeds subtotal").
			WithDetail("field", "discountAmount").
			WithDetail("subtotal", w.Subtotal.String())
	}
	return nil
}

// IsClosed is true once billed or in a terminal state.
func (w *WorkOrder) IsClosed() bool {
	return w.SaleID != nil || w.Status.IsTerminal()
}

// EnsureEditable rejects line and header writes on closed orders.
func (w *WorkOrder) EnsureEditable() error {
	if w.SaleID != nil {
		return apperror.NewReadOnly("work order already has a sale").
			WithDetail("sale_id", w.SaleID.String())
	}
	if w.Status.IsTerminal() {
		return apperror.NewReadOnly("work order is closed").
			WithDetail("status", string(w.Status))
	}
	return nil
}

// AddItem appends a line; the caller recalculates totals afterwards.
func (w *WorkOrder) AddItem(in ItemInput, scale int32) (Item, error) {
	if err := w.EnsureEditable(); err != nil {
		return Item{}, err
	}
	if err := in.Validate(); err != nil {
		return Item{}, err
	}
	it := in.toItem(w.ID, w.nextLineNumber(), scale)
	w.Items = append(w.Items, it)
	return it, nil
}

func (w *WorkOrder) RemoveItem(itemID id.ID) (Item, error) {
	if err := w.EnsureEditable(); err != nil {
		return Item{}, err
	}
	for i, it := range w.Items {
		if it.ID == itemID {
			w.Items = append(w.Items[:i], w.Items[i+1:]...)
			return it, nil
		}
	}
	return Item{}, apperror.NewNotFound("work_order_item", itemID.String())
}

func (w *WorkOrder) nextLineNumber() int {
	n := 0
	for _, it := range w.Items {
		if it.LineNumber > n {
			n = it.LineNumber
		}
	}
	return n + 1
}

// RecalculateTotals recomputes every line and the order totals.
func (w *WorkOrder) RecalculateTotals(taxRate decimal.Decimal, scale int32) {
	for i := range w.Items {
		w.Items[i].Recalculate(scale)
	}
	t := ComputeTotals(w.Items, w.DiscountAmount, taxRate, scale)
	w.Subtotal = t.Subtotal
	w.DiscountAmount = t.DiscountAmount
	w.TaxAmount = t.TaxAmount
	w.TotalAmount = t.TotalAmount
}

func (w *WorkOrder) Totals() Totals {
	return Totals{
		Subtotal:       w.Subtotal,
		DiscountAmount: w.DiscountAmount,
		TaxAmount:      w.TaxAmount,
		TotalAmount:    w.TotalAmount,
	}
}

func (w *WorkOrder) LaborTotal() types.Money {
	return LaborTotal(w.Items)
}

// SetChecklist replaces the intake checklist while the order is still recibido.
func (w *WorkOrder) SetChecklist(c Checklist) error {
	if w.Status != StatusReceived {
		return apperror.NewReadOnly("checklist can only be edited while the order is received").
			WithDetail("status", string(w.Status))
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Items == nil {
		c.Items = map[string]Condition{}
	}
	w.ChecklistIn = c
	return nil
}

// TransitionTo moves the order to target. On an illegal target the order is
// left untouched. Reaching entregado stamps DeliveredAt when unset.
func (w *WorkOrder) TransitionTo(target Status, now time.Time) error {
	if !CanTransition(w.Status, target) {
		return apperror.NewInvalidTransition("work_order", w.Status, target).
			WithDetail("allowed", AllowedTransitions(w.Status))
	}
	w.Status = target
	if target == StatusDelivered && w.DeliveredAt == nil {
		t := now.UTC()
		w.DeliveredAt = &t
	}
	return nil
}

// Phase selects the intake or delivery photo set.
type Phase string

const (
	PhaseIn  Phase = "in"
	PhaseOut Phase = "out"
)

func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseIn, PhaseOut:
		return Phase(s), nil
	}
	return "", apperror.NewValidation("photo phase must be 'in' or 'out'").
		WithDetail("field", "phase")
}

func (w *WorkOrder) photos(p Phase) *Photos {
	if p == PhaseOut {
		return &w.PhotosOut
	}
	return &w.PhotosIn
}

func (w *WorkOrder) AppendPhotos(p Phase, paths []string) {
	ph := w.photos(p)
	*ph = append(*ph, paths...)
}

// RemovePhoto drops the photo at index and returns its stored path.
func (w *WorkOrder) RemovePhoto(p Phase, index int) (string, error) {
	ph := w.photos(p)
	if index < 0 || index >= len(*ph) {
		return "", apperror.NewNotFound("photo", index)
	}
	path := (*ph)[index]
	*ph = append((*ph)[:index], (*ph)[index+1:]...)
	return path, nil
}

// Photos is a jsonb array of stored photo paths.
type Photos []string

func (p *Photos) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = Photos{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("photos: unsupported scan type %T", src)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	if out == nil {
		out = []string{}
	}
	*p = out
	return nil
}

func (p Photos) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
