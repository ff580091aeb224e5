package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"taller/internal/core/id"
	"taller/pkg/logger"
)

// TenantRunner binds ctx to a tenant database before fn runs.
type TenantRunner interface {
	Run(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error
}

// MileageRecorder is implemented by the vehicle service.
type MileageRecorder interface {
	RecordMileage(ctx context.Context, vehicleID id.ID, km int64) error
}

type Handlers struct {
	tenants  TenantRunner
	vehicles MileageRecorder
}

func NewHandlers(tenants TenantRunner, vehicles MileageRecorder) *Handlers {
	return &Handlers{tenants: tenants, vehicles: vehicles}
}

// Register adds the task handlers to mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskVehicleMileage, h.HandleVehicleMileage)
	mux.HandleFunc(TaskSaleGenerated, h.HandleSaleGenerated)
}

func (h *Handlers) HandleVehicleMileage(ctx context.Context, t *asynq.Task) error {
	var p VehicleMileagePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	vehicleID, err := id.Parse(p.VehicleID)
	if err != nil || p.TenantID == "" {
		return fmt.Errorf("invalid mileage task %q/%q: %w", p.TenantID, p.VehicleID, asynq.SkipRetry)
	}

	return h.tenants.Run(ctx, p.TenantID, func(ctx context.Context) error {
		if err := h.vehicles.RecordMileage(ctx, vehicleID, p.Mileage); err != nil {
			return fmt.Errorf("record mileage: %w", err)
		}
		logger.Info(ctx, "vehicle mileage recorded",
			"vehicle_id", p.VehicleID, "work_order_id", p.WorkOrderID, "km", p.Mileage)
		return nil
	})
}

func (h *Handlers) HandleSaleGenerated(ctx context.Context, t *asynq.Task) error {
	var p SaleGeneratedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	logger.Info(ctx, "sale generated",
		"tenant_id", p.TenantID,
		"work_order", p.OrderNumber,
		"sale", p.SaleNumber,
		"sale_id", p.SaleID,
		"total", p.TotalAmount,
	)
	return nil
}
