package dto

import (
	"time"

	"taller/internal/core/types"
	"taller/internal/domain/documents/work_order"
)

type WorkOrderItemRequest struct {
	ProductID   *string        `json:"productId" binding:"omitempty,uuid"`
	ProductName string         `json:"productName"`
	ItemType    string         `json:"itemType" binding:"required,item_type"`
	Quantity    types.Quantity `json:"quantity"`
	UnitPrice   *types.Money   `json:"unitPrice" binding:"required"`
}

func (r *WorkOrderItemRequest) ToInput() work_order.ItemInput {
	productID, _ := ParseOptionalID(r.ProductID, "productId")
	return work_order.ItemInput{
		ProductID:   productID,
		ProductName: r.ProductName,
		ItemType:    work_order.ItemType(r.ItemType),
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
	}
}

// CreateWorkOrderRequest takes either vehicleId or an inline vehicle, which
// is matched by plate or registered.
type CreateWorkOrderRequest struct {
	VehicleID          *string                `json:"vehicleId" binding:"omitempty,uuid"`
	Vehicle            *VehicleFields         `json:"vehicle" binding:"omitempty"`
	CustomerID         *string                `json:"customerId" binding:"omitempty,uuid"`
	TechnicianID       *string                `json:"technicianId" binding:"omitempty,uuid"`
	WarehouseID        *string                `json:"warehouseId" binding:"omitempty,uuid"`
	PromisedAt         *time.Time             `json:"promisedAt"`
	MileageIn          *int64                 `json:"mileageIn" binding:"omitempty,min=0"`
	ProblemDescription *string                `json:"problemDescription"`
	Notes              string                 `json:"notes"`
	DiscountAmount     *types.Money           `json:"discountAmount"`
	Checklist          *work_order.Checklist  `json:"checklist"`
	Items              []WorkOrderItemRequest `json:"items" binding:"omitempty,dive"`
}

func (r *CreateWorkOrderRequest) ToInput() work_order.CreateInput {
	in := work_order.CreateInput{
		PromisedAt:         r.PromisedAt,
		MileageIn:          r.MileageIn,
		ProblemDescription: r.ProblemDescription,
		Notes:              r.Notes,
		DiscountAmount:     r.DiscountAmount,
		Checklist:          r.Checklist,
	}
	in.VehicleID, _ = ParseOptionalID(r.VehicleID, "vehicleId")
	in.CustomerID, _ = ParseOptionalID(r.CustomerID, "customerId")
	in.TechnicianID, _ = ParseOptionalID(r.TechnicianID, "technicianId")
	in.WarehouseID, _ = ParseOptionalID(r.WarehouseID, "warehouseId")
	if r.Vehicle != nil {
		in.Vehicle = r.Vehicle.ToEntity()
	}
	for i := range r.Items {
		in.Items = append(in.Items, r.Items[i].ToInput())
	}
	return in
}

// UpdateWorkOrderRequest patches header fields; omitted fields stay.
type UpdateWorkOrderRequest struct {
	Version            int          `json:"version" binding:"omitempty,min=1"`
	CustomerID         *string      `json:"customerId" binding:"omitempty,uuid"`
	TechnicianID       *string      `json:"technicianId" binding:"omitempty,uuid"`
	WarehouseID        *string      `json:"warehouseId" binding:"omitempty,uuid"`
	PromisedAt         *time.Time   `json:"promisedAt"`
	MileageIn          *int64       `json:"mileageIn" binding:"omitempty,min=0"`
	MileageOut         *int64       `json:"mileageOut" binding:"omitempty,min=0"`
	ProblemDescription *string      `json:"problemDescription"`
	Diagnosis          *string      `json:"diagnosis"`
	WorkPerformed      *string      `json:"workPerformed"`
	DiscountAmount     *types.Money `json:"discountAmount"`
	Notes              *string      `json:"notes"`
}

func (r *UpdateWorkOrderRequest) ToInput() work_order.UpdateInput {
	in := work_order.UpdateInput{
		Version:            r.Version,
		PromisedAt:         r.PromisedAt,
		MileageIn:          r.MileageIn,
		MileageOut:         r.MileageOut,
		ProblemDescription: r.ProblemDescription,
		Diagnosis:          r.Diagnosis,
		WorkPerformed:      r.WorkPerformed,
		DiscountAmount:     r.DiscountAmount,
		Notes:              r.Notes,
	}
	in.CustomerID, _ = ParseOptionalID(r.CustomerID, "customerId")
	in.TechnicianID, _ = ParseOptionalID(r.TechnicianID, "technicianId")
	in.WarehouseID, _ = ParseOptionalID(r.WarehouseID, "warehouseId")
	return in
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,wo_status"`
}

type WorkOrderListQuery struct {
	PageQuery
	Status       []string `form:"status" binding:"omitempty,dive,wo_status"`
	VehicleID    string   `form:"vehicleId" binding:"omitempty,uuid"`
	TechnicianID string   `form:"technicianId" binding:"omitempty,uuid"`
	CustomerID   string   `form:"customerId" binding:"omitempty,uuid"`
	DateFrom     string   `form:"dateFrom" binding:"omitempty,datetime=2006-01-02"`
	DateTo       string   `form:"dateTo" binding:"omitempty,datetime=2006-01-02"`
	OnlyOpen     bool     `form:"onlyOpen"`
}

func (q *WorkOrderListQuery) ToFilter() work_order.ListFilter {
	f := work_order.ListFilter{ListFilter: q.ListFilter("-received_at")}
	for _, s := range q.Status {
		f.Statuses = append(f.Statuses, work_order.Status(s))
	}
	f.VehicleID, _ = ParseOptionalID(&q.VehicleID, "vehicleId")
	f.TechnicianID, _ = ParseOptionalID(&q.TechnicianID, "technicianId")
	f.CustomerID, _ = ParseOptionalID(&q.CustomerID, "customerId")
	f.DateFrom, _ = ParseDate(q.DateFrom, "dateFrom")
	f.DateTo, _ = ParseDate(q.DateTo, "dateTo")
	f.OnlyOpen = q.OnlyOpen
	return f
}

type WorkOrderItemResponse struct {
	ID          string              `json:"id"`
	LineNumber  int                 `json:"lineNumber"`
	ProductID   *string             `json:"productId,omitempty"`
	ProductName string              `json:"productName"`
	ItemType    work_order.ItemType `json:"itemType"`
	Quantity    types.Quantity      `json:"quantity"`
	UnitPrice   types.Money         `json:"unitPrice"`
	Total       types.Money         `json:"total"`
}

type WorkOrderResponse struct {
	DocumentResponse
	VehicleID          string                  `json:"vehicleId"`
	CustomerID         *string                 `json:"customerId,omitempty"`
	TechnicianID       *string                 `json:"technicianId,omitempty"`
	WarehouseID        *string                 `json:"warehouseId,omitempty"`
	Status             work_order.Status       `json:"status"`
	AllowedTransitions []work_order.Status     `json:"allowedTransitions"`
	ReceivedAt         time.Time               `json:"receivedAt"`
	PromisedAt         *time.Time              `json:"promisedAt,omitempty"`
	DeliveredAt        *time.Time              `json:"deliveredAt,omitempty"`
	MileageIn          *int64                  `json:"mileageIn,omitempty"`
	MileageOut         *int64                  `json:"mileageOut,omitempty"`
	ProblemDescription *string                 `json:"problemDescription,omitempty"`
	Diagnosis          *string                 `json:"diagnosis,omitempty"`
	WorkPerformed      *string                 `json:"workPerformed,omitempty"`
	Checklist          work_order.Checklist    `json:"checklist"`
	Totals             work_order.Presentation `json:"totals"`
	LaborTotal         types.Money             `json:"laborTotal"`
	SaleID             *string                 `json:"saleId,omitempty"`
	SettledAt          *time.Time              `json:"settledAt,omitempty"`
	PhotosIn           []string                `json:"photosIn"`
	PhotosOut          []string                `json:"photosOut"`
	Items              []WorkOrderItemResponse `json:"items"`
}

// FromWorkOrder renders the order with the totals as the tenant shows them.
func FromWorkOrder(wo *work_order.WorkOrder, totals work_order.Presentation) *WorkOrderResponse {
	resp := &WorkOrderResponse{
		DocumentResponse:   FromDocument(wo.Document),
		VehicleID:          wo.VehicleID.String(),
		CustomerID:         idString(wo.CustomerID),
		TechnicianID:       idString(wo.TechnicianID),
		WarehouseID:        idString(wo.WarehouseID),
		Status:             wo.Status,
		AllowedTransitions: work_order.AllowedTransitions(wo.Status),
		ReceivedAt:         wo.ReceivedAt,
		PromisedAt:         wo.PromisedAt,
		DeliveredAt:        wo.DeliveredAt,
		MileageIn:          wo.MileageIn,
		MileageOut:         wo.MileageOut,
		ProblemDescription: wo.ProblemDescription,
		Diagnosis:          wo.Diagnosis,
		WorkPerformed:      wo.WorkPerformed,
		Checklist:          wo.ChecklistIn,
		Totals:             totals,
		LaborTotal:         wo.LaborTotal(),
		SaleID:             idString(wo.SaleID),
		SettledAt:          wo.SettledAt,
		PhotosIn:           nonNil(wo.PhotosIn),
		PhotosOut:          nonNil(wo.PhotosOut),
		Items:              make([]WorkOrderItemResponse, len(wo.Items)),
	}
	for i, it := range wo.Items {
		resp.Items[i] = WorkOrderItemResponse{
			ID:          it.ID.String(),
			LineNumber:  it.LineNumber,
			ProductID:   idString(it.ProductID),
			ProductName: it.ProductName,
			ItemType:    it.ItemType,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		}
	}
	return resp
}

// WorkOrderSummary is the list row; lines and photos are left out.
type WorkOrderSummary struct {
	DocumentResponse
	VehicleID    string                  `json:"vehicleId"`
	CustomerID   *string                 `json:"customerId,omitempty"`
	TechnicianID *string                 `json:"technicianId,omitempty"`
	Status       work_order.Status       `json:"status"`
	ReceivedAt   time.Time               `json:"receivedAt"`
	DeliveredAt  *time.Time              `json:"deliveredAt,omitempty"`
	Totals       work_order.Presentation `json:"totals"`
	SaleID       *string                 `json:"saleId,omitempty"`
}

func FromWorkOrderSummary(wo *work_order.WorkOrder, totals work_order.Presentation) WorkOrderSummary {
	return WorkOrderSummary{
		DocumentResponse: FromDocument(wo.Document),
		VehicleID:        wo.VehicleID.String(),
		CustomerID:       idString(wo.CustomerID),
		TechnicianID:     idString(wo.TechnicianID),
		Status:           wo.Status,
		ReceivedAt:       wo.ReceivedAt,
		DeliveredAt:      wo.DeliveredAt,
		Totals:           totals,
		SaleID:           idString(wo.SaleID),
	}
}

// VehicleHistoryResponse is a vehicle with its orders, newest first.
type VehicleHistoryResponse struct {
	Vehicle *VehicleResponse               `json:"vehicle"`
	History ListResponse[WorkOrderSummary] `json:"history"`
}

type GenerateSaleResponse struct {
	WorkOrder *WorkOrderResponse `json:"workOrder"`
	Sale      *SaleResponse      `json:"sale"`
}

func nonNil(p work_order.Photos) []string {
	if p == nil {
		return []string{}
	}
	return p
}
