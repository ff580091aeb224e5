package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/id"
	"taller/internal/core/tenant"
	"taller/internal/domain"
	"taller/internal/infrastructure/storage/postgres"
)

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func outboxMessage(t *testing.T, eventType string, payload map[string]any) *postgres.OutboxMessage {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &postgres.OutboxMessage{ID: id.New(), EventType: eventType, Payload: raw}
}

func tenantCtx() context.Context {
	return tenant.WithTenant(context.Background(), &tenant.Tenant{ID: "t1"})
}

func TestDispatcherDeliveredOrderEnqueuesMileage(t *testing.T) {
	q := &fakeEnqueuer{}
	d := NewDispatcher(q)
	vehicleID := id.New().String()

	err := d.Handle(tenantCtx(), outboxMessage(t, domain.EventWorkOrderStatusChanged, map[string]any{
		"work_order_id": "wo-1",
		"vehicle_id":    vehicleID,
		"from":          "listo",
		"to":            "entregado",
		"mileage_out":   45210,
	}))
	require.NoError(t, err)
	require.Len(t, q.tasks, 1)
	assert.Equal(t, TaskVehicleMileage, q.tasks[0].Type())

	var p VehicleMileagePayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &p))
	assert.Equal(t, "t1", p.TenantID)
	assert.Equal(t, vehicleID, p.VehicleID)
	assert.Equal(t, int64(45210), p.Mileage)
}

func TestDispatcherSkipsUnconsumedEvents(t *testing.T) {
	q := &fakeEnqueuer{}
	d := NewDispatcher(q)

	tests := []*postgres.OutboxMessage{
		outboxMessage(t, domain.EventWorkOrderStatusChanged, map[string]any{"to": "en_proceso", "mileage_out": 10}),
		outboxMessage(t, domain.EventWorkOrderStatusChanged, map[string]any{"to": "entregado"}),
		outboxMessage(t, domain.EventSettlementCreated, map[string]any{"settlement_id": "s"}),
	}
	for _, msg := range tests {
		require.NoError(t, d.Handle(tenantCtx(), msg))
	}
	assert.Empty(t, q.tasks)
}

func TestDispatcherSaleGenerated(t *testing.T) {
	q := &fakeEnqueuer{}
	d := NewDispatcher(q)

	err := d.Handle(tenantCtx(), outboxMessage(t, domain.EventSaleGenerated, map[string]any{
		"work_order_id": "wo-1",
		"order_number":  "OT-2026-00001",
		"sale_id":       "s-1",
		"sale_number":   "REM-2026-00001",
		"total_amount":  "238000",
	}))
	require.NoError(t, err)
	require.Len(t, q.tasks, 1)

	var p SaleGeneratedPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &p))
	assert.Equal(t, "REM-2026-00001", p.SaleNumber)
	assert.Equal(t, "238000", p.TotalAmount)
}

func TestDispatcherEnqueueErrors(t *testing.T) {
	msg := outboxMessage(t, domain.EventSaleGenerated, map[string]any{"sale_id": "s-1"})

	dup := NewDispatcher(&fakeEnqueuer{err: asynq.ErrTaskIDConflict})
	assert.NoError(t, dup.Handle(tenantCtx(), msg))

	down := NewDispatcher(&fakeEnqueuer{err: errors.New("redis down")})
	assert.Error(t, down.Handle(tenantCtx(), msg))
}

func TestDispatcherBadPayload(t *testing.T) {
	d := NewDispatcher(&fakeEnqueuer{})
	msg := &postgres.OutboxMessage{ID: id.New(), EventType: domain.EventSaleGenerated, Payload: []byte("{")}
	assert.Error(t, d.Handle(tenantCtx(), msg))
}

type fakeRunner struct {
	tenants []string
	err     error
}

func (r *fakeRunner) Run(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	r.tenants = append(r.tenants, tenantID)
	if r.err != nil {
		return r.err
	}
	return fn(ctx)
}

type fakeMileage struct {
	vehicleID id.ID
	km        int64
}

func (f *fakeMileage) RecordMileage(ctx context.Context, vehicleID id.ID, km int64) error {
	f.vehicleID, f.km = vehicleID, km
	return nil
}

func TestHandleVehicleMileage(t *testing.T) {
	runner := &fakeRunner{}
	rec := &fakeMileage{}
	h := NewHandlers(runner, rec)

	vehicleID := id.New()
	task, err := NewVehicleMileageTask(VehicleMileagePayload{TenantID: "t1", VehicleID: vehicleID.String(), Mileage: 1200})
	require.NoError(t, err)

	require.NoError(t, h.HandleVehicleMileage(context.Background(), task))
	assert.Equal(t, []string{"t1"}, runner.tenants)
	assert.Equal(t, vehicleID, rec.vehicleID)
	assert.Equal(t, int64(1200), rec.km)
}

func TestHandleVehicleMileageInvalidPayloadSkipsRetry(t *testing.T) {
	h := NewHandlers(&fakeRunner{}, &fakeMileage{})

	err := h.HandleVehicleMileage(context.Background(), asynq.NewTask(TaskVehicleMileage, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, _ := NewVehicleMileageTask(VehicleMileagePayload{TenantID: "t1", VehicleID: "nope"})
	err = h.HandleVehicleMileage(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSaleGenerated(t *testing.T) {
	h := NewHandlers(&fakeRunner{}, &fakeMileage{})
	task, err := NewSaleGeneratedTask(SaleGeneratedPayload{TenantID: "t1", SaleNumber: "REM-2026-00001"})
	require.NoError(t, err)
	assert.NoError(t, h.HandleSaleGenerated(context.Background(), task))
}

type staticTenants []*tenant.Tenant

func (s staticTenants) GetActiveTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	return s, nil
}

func TestPollerTickIsolatesTenantFailures(t *testing.T) {
	runner := &fakeRunner{err: errors.New("pool unavailable")}
	p := NewOutboxPoller(PollerConfig{Parallelism: 1}, staticTenants{{ID: "a"}, {ID: "b"}}, runner, NewDispatcher(&fakeEnqueuer{}))

	require.NoError(t, p.Tick(context.Background()))
	assert.ElementsMatch(t, []string{"a", "b"}, runner.tenants)
}
