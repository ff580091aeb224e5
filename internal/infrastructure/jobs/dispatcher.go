package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"taller/internal/core/tenant"
	"taller/internal/domain"
	"taller/internal/domain/documents/work_order"
	"taller/internal/infrastructure/storage/postgres"
	"taller/pkg/logger"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher is the outbox handler of the relay. It maps events to tasks and
// ignores event types no task consumes.
type Dispatcher struct {
	client Enqueuer
}

var _ postgres.OutboxHandler = (*Dispatcher)(nil)

func NewDispatcher(client Enqueuer) *Dispatcher {
	return &Dispatcher{client: client}
}

type statusChanged struct {
	WorkOrderID string `json:"work_order_id"`
	VehicleID   string `json:"vehicle_id"`
	To          string `json:"to"`
	MileageOut  *int64 `json:"mileage_out"`
}

type saleGenerated struct {
	WorkOrderID string `json:"work_order_id"`
	OrderNumber string `json:"order_number"`
	SaleID      string `json:"sale_id"`
	SaleNumber  string `json:"sale_number"`
	TotalAmount string `json:"total_amount"`
}

func (d *Dispatcher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	task, err := d.taskFor(tenant.GetTenantID(ctx), msg)
	if err != nil || task == nil {
		return err
	}

	// the outbox id makes a redelivered message a no-op
	_, err = d.client.EnqueueContext(ctx, task, asynq.TaskID(msg.ID.String()))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	logger.Debug(ctx, "outbox event enqueued", "event", msg.EventType, "task", task.Type(), "outbox_id", msg.ID)
	return nil
}

func (d *Dispatcher) taskFor(tenantID string, msg *postgres.OutboxMessage) (*asynq.Task, error) {
	switch msg.EventType {
	case domain.EventWorkOrderStatusChanged:
		var ev statusChanged
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		if ev.To != string(work_order.StatusDelivered) || ev.MileageOut == nil || *ev.MileageOut <= 0 {
			return nil, nil
		}
		return NewVehicleMileageTask(VehicleMileagePayload{
			TenantID:    tenantID,
			VehicleID:   ev.VehicleID,
			WorkOrderID: ev.WorkOrderID,
			Mileage:     *ev.MileageOut,
		})

	case domain.EventSaleGenerated:
		var ev saleGenerated
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		return NewSaleGeneratedTask(SaleGeneratedPayload{
			TenantID:    tenantID,
			WorkOrderID: ev.WorkOrderID,
			OrderNumber: ev.OrderNumber,
			SaleID:      ev.SaleID,
			SaleNumber:  ev.SaleNumber,
			TotalAmount: ev.TotalAmount,
		})
	}
	return nil, nil
}
