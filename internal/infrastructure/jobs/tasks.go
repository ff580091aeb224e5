// Package jobs turns outbox events into asynq tasks and handles them in the
// worker process.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	QueueDefault = "default"

	// TaskVehicleMileage raises the vehicle odometer from a delivered order.
	TaskVehicleMileage = "vehicle:mileage"
	// TaskSaleGenerated logs the remision generated from a work order.
	TaskSaleGenerated = "sale:generated"
)

type VehicleMileagePayload struct {
	TenantID    string `json:"tenant_id"`
	VehicleID   string `json:"vehicle_id"`
	WorkOrderID string `json:"work_order_id"`
	Mileage     int64  `json:"mileage"`
}

type SaleGeneratedPayload struct {
	TenantID    string `json:"tenant_id"`
	WorkOrderID string `json:"work_order_id"`
	OrderNumber string `json:"order_number"`
	SaleID      string `json:"sale_id"`
	SaleNumber  string `json:"sale_number"`
	TotalAmount string `json:"total_amount"`
}

func NewVehicleMileageTask(p VehicleMileagePayload) (*asynq.Task, error) {
	return newTask(TaskVehicleMileage, p)
}

func NewSaleGeneratedTask(p SaleGeneratedPayload) (*asynq.Task, error) {
	return newTask(TaskSaleGenerated, p)
}

func newTask(typ string, payload any) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return asynq.NewTask(typ, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}
