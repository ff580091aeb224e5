package commission

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/numerator"
	"taller/internal/core/tenant"
	"taller/internal/core/tx"
	"taller/internal/core/types"
	"taller/internal/domain"
	"taller/internal/domain/audit"
	"taller/internal/domain/catalogs/technician"
)

type order struct {
	id          id.ID
	number      string
	technician  id.ID
	delivered   bool
	deliveredAt time.Time
	labor       types.Money
	settledAt   *time.Time
}

type memRepo struct {
	mu          sync.Mutex
	orders      []*order
	settlements map[id.ID]*Settlement
	items       []Item
}

func newMemRepo() *memRepo {
	return &memRepo{settlements: map[id.ID]*Settlement{}}
}

func (r *memRepo) add(o *order) { r.orders = append(r.orders, o) }

func (r *memRepo) Candidates(ctx context.Context, technicianID id.ID, dr DateRange, lock bool) ([]Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Candidate
	for _, o := range r.orders {
		if o.technician != technicianID || !o.delivered || o.settledAt != nil || !dr.Contains(o.deliveredAt) {
			continue
		}
		out = append(out, Candidate{WorkOrderID: o.id, OrderNumber: o.number, DeliveredAt: o.deliveredAt, LaborAmount: o.labor})
	}
	return out, nil
}

func (r *memRepo) Create(ctx context.Context, s *Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range s.Items {
		for _, existing := range r.items {
			if existing.WorkOrderID == it.WorkOrderID {
				return apperror.NewConflict("work order already settled")
			}
		}
	}
	r.settlements[s.ID] = s
	r.items = append(r.items, s.Items...)
	return nil
}

func (r *memRepo) MarkSettled(ctx context.Context, orderIDs []id.ID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, oid := range orderIDs {
		for _, o := range r.orders {
			if o.id == oid && o.settledAt == nil {
				t := at
				o.settledAt = &t
				n++
			}
		}
	}
	return n, nil
}

func (r *memRepo) GetByID(ctx context.Context, settlementID id.ID) (*Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settlements[settlementID]
	if !ok {
		return nil, apperror.NewNotFound(entityName, settlementID.String())
	}
	c := *s
	c.Items = nil
	return &c, nil
}

func (r *memRepo) GetItems(ctx context.Context, settlementID id.ID) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Item
	for _, it := range r.items {
		if it.SettlementID == settlementID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memRepo) List(ctx context.Context, f ListFilter) (domain.ListResult[*Settlement], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Settlement
	for _, s := range r.settlements {
		if f.TechnicianID != nil && s.TechnicianID != *f.TechnicianID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return domain.ListResult[*Settlement]{Items: out, TotalCount: int64(len(out))}, nil
}

func (r *memRepo) PendingByTechnician(ctx context.Context) (map[id.ID]Pending, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[id.ID]Pending{}
	for _, o := range r.orders {
		if !o.delivered || o.settledAt != nil {
			continue
		}
		p := out[o.technician]
		p.TechnicianID = o.technician
		p.Orders++
		p.Labor = p.Labor.Add(o.labor)
		out[o.technician] = p
	}
	return out, nil
}

type techDir struct {
	techs map[id.ID]*technician.Technician
}

func (d techDir) GetByID(ctx context.Context, technicianID id.ID) (*technician.Technician, error) {
	t, ok := d.techs[technicianID]
	if !ok {
		return nil, apperror.NewNotFound("technician", technicianID.String())
	}
	return t, nil
}

func (d techDir) ListActive(ctx context.Context) ([]*technician.Technician, error) {
	var out []*technician.Technician
	for _, t := range d.techs {
		if t.IsActive {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fixture struct {
	svc    *Service
	repo   *memRepo
	tech   *technician.Technician
	events *domain.EventRecorder
	audit  *audit.Memory
	ctx    context.Context
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 15, 30, 0, 0, time.UTC)
}

func newFixture() *fixture {
	tech := technician.NewTechnician("TEC-1", "Carlos Mecanico", decimal.NewFromInt(10))
	f := &fixture{
		repo:   newMemRepo(),
		tech:   tech,
		events: &domain.EventRecorder{},
		audit:  &audit.Memory{},
		ctx:    tenant.WithTxManager(context.Background(), tx.Passthrough{}),
	}
	f.svc = NewService(Config{
		Repo:        f.repo,
		Technicians: techDir{techs: map[id.ID]*technician.Technician{tech.ID: tech}},
		Settings:    tenant.NewStaticSettings(tenant.DefaultWorkshopSettings()),
		Numerator:   &numerator.MockGenerator{},
		Events:      f.events,
		Audit:       f.audit,
		Clock:       func() time.Time { return day(31) },
	})
	return f
}

func (f *fixture) delivered(number string, at time.Time, labor int64) *order {
	o := &order{id: id.New(), number: number, technician: f.tech.ID, delivered: true, deliveredAt: at, labor: types.NewMoney(labor)}
	f.repo.add(o)
	return o
}

func march(from, to int) DateRange {
	r, _ := NewDateRange(day(from), day(to))
	return r
}

func TestSettlementScenario(t *testing.T) {
	f := newFixture()
	a := f.delivered("OT-1", day(5), 80000)
	b := f.delivered("OT-2", day(20), 120000)

	preview, err := f.svc.Preview(f.ctx, f.tech.ID, march(1, 31))
	require.NoError(t, err)
	assert.Len(t, preview.Orders, 2)
	assert.True(t, types.NewMoney(200000).Equal(preview.BaseAmount))
	assert.Nil(t, a.settledAt, "preview must not write")

	st, err := f.svc.CreateSettlement(f.ctx, SettlementInput{TechnicianID: f.tech.ID, Range: march(1, 31)})
	require.NoError(t, err)
	assert.True(t, types.NewMoney(200000).Equal(st.BaseAmount))
	assert.True(t, types.NewMoney(20000).Equal(st.CommissionAmount), st.CommissionAmount.String())
	assert.Len(t, st.Items, 2)
	assert.NotNil(t, a.settledAt)
	assert.NotNil(t, b.settledAt)
	assert.Contains(t, f.events.Types(), domain.EventSettlementCreated)
	require.Len(t, f.audit.Records, 1)
	assert.Equal(t, audit.ActionSettle, f.audit.Records[0].Action)

	again, err := f.svc.Preview(f.ctx, f.tech.ID, march(15, 31))
	require.NoError(t, err)
	assert.Empty(t, again.Orders)
	assert.True(t, again.BaseAmount.IsZero())

	_, err = f.svc.CreateSettlement(f.ctx, SettlementInput{TechnicianID: f.tech.ID, Range: march(1, 31)})
	assert.True(t, apperror.HasCode(err, apperror.CodeNoEligibleOrders))

	got, err := f.svc.Get(f.ctx, st.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestSettlementRangeIsInclusiveByDate(t *testing.T) {
	f := newFixture()
	f.delivered("OT-1", time.Date(2026, time.March, 10, 23, 59, 0, 0, time.UTC), 1000)
	f.delivered("OT-2", time.Date(2026, time.March, 11, 0, 0, 1, 0, time.UTC), 2000)
	f.delivered("OT-3", day(9), 4000)

	p, err := f.svc.Preview(f.ctx, f.tech.ID, march(10, 10))
	require.NoError(t, err)
	require.Len(t, p.Orders, 1)
	assert.Equal(t, "OT-1", p.Orders[0].OrderNumber)
}

func TestDateRangeUsesUTCDays(t *testing.T) {
	bogota := time.FixedZone("COT", -5*3600)
	rng, err := NewDateRange(time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC), time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// 2026-03-11T02:00Z is still March 10 in Bogota
	assert.True(t, rng.Contains(time.Date(2026, time.March, 10, 21, 0, 0, 0, bogota)))
	assert.False(t, rng.Contains(time.Date(2026, time.March, 11, 20, 0, 0, 0, bogota)))
}

func TestSettlementExcludesOtherOrders(t *testing.T) {
	f := newFixture()
	f.delivered("OT-1", day(5), 50000)
	f.repo.add(&order{id: id.New(), number: "OT-2", technician: f.tech.ID, delivered: false, labor: types.NewMoney(70000)})
	f.repo.add(&order{id: id.New(), number: "OT-3", technician: id.New(), delivered: true, deliveredAt: day(5), labor: types.NewMoney(90000)})

	st, err := f.svc.CreateSettlement(f.ctx, SettlementInput{TechnicianID: f.tech.ID, Range: march(1, 31)})
	require.NoError(t, err)
	require.Len(t, st.Items, 1)
	assert.Equal(t, "OT-1", st.Items[0].OrderNumber)
}

func TestZeroLaborOrdersAreListed(t *testing.T) {
	f := newFixture()
	f.delivered("OT-1", day(5), 0)

	p, err := f.svc.Preview(f.ctx, f.tech.ID, march(1, 31))
	require.NoError(t, err)
	assert.Len(t, p.Orders, 1)
	assert.True(t, p.BaseAmount.IsZero())
}

func TestCommissionArithmetic(t *testing.T) {
	tests := []struct {
		base int64
		pct  string
		want int64
	}{
		{200000, "10", 20000},
		{33333, "15", 5000},
		{10001, "12.5", 1250},
		{99999, "0", 0},
		{99999, "100", 99999},
	}
	for _, tt := range tests {
		t.Run(tt.pct, func(t *testing.T) {
			f := newFixture()
			f.delivered("OT-1", day(2), tt.base)
			pct := decimal.RequireFromString(tt.pct)
			st, err := f.svc.CreateSettlement(f.ctx, SettlementInput{TechnicianID: f.tech.ID, Range: march(1, 31), CommissionPercentage: &pct})
			require.NoError(t, err)
			assert.True(t, types.NewMoney(tt.want).Equal(st.CommissionAmount), st.CommissionAmount.String())
			assert.True(t, st.CommissionPercentage.Equal(pct))
		})
	}
}

func TestCreateSettlementValidatesInput(t *testing.T) {
	f := newFixture()
	f.delivered("OT-1", day(2), 1000)

	bad := decimal.NewFromInt(101)
	_, err := f.svc.CreateSettlement(f.ctx, SettlementInput{TechnicianID: f.tech.ID, Range: march(1, 31), CommissionPercentage: &bad})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.CreateSettlement(f.ctx, SettlementInput{TechnicianID: f.tech.ID, Range: DateRange{From: day(20), To: day(1)}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.CreateSettlement(f.ctx, SettlementInput{TechnicianID: id.New(), Range: march(1, 31)})
	assert.True(t, apperror.IsNotFound(err))
}

func TestConcurrentSettlementsPayOnce(t *testing.T) {
	f := newFixture()
	for i := 1; i <= 5; i++ {
		f.delivered("OT", day(i), 10000)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	created, rejected := 0, 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateSettlement(f.ctx, SettlementInput{TechnicianID: f.tech.ID, Range: march(1, 31)})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, created, 1)
	assert.Equal(t, 4, created+rejected)
	seen := map[id.ID]int{}
	for _, it := range f.repo.items {
		seen[it.WorkOrderID]++
	}
	assert.Len(t, seen, 5)
	for oid, n := range seen {
		assert.Equal(t, 1, n, oid.String())
	}
}

func TestListTechnicians(t *testing.T) {
	f := newFixture()
	f.delivered("OT-1", day(2), 30000)
	f.delivered("OT-2", day(3), 20000)

	list, err := f.svc.ListTechnicians(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].PendingOrders)
	assert.True(t, types.NewMoney(50000).Equal(list[0].PendingLabor))
}
