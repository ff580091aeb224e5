package sale

import (
	"context"
	"strings"
	"sync"
	"testing"

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
)

type memRepo struct {
	mu    sync.Mutex
	sales map[id.ID]Sale
}

func newMemRepo() *memRepo {
	return &memRepo{sales: map[id.ID]Sale{}}
}

func (r *memRepo) Create(ctx context.Context, s *Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sales {
		if existing.WorkOrderID != nil && s.WorkOrderID != nil && *existing.WorkOrderID == *s.WorkOrderID {
			return apperror.NewSaleAlreadyGenerated(s.WorkOrderID.String(), existing.ID.String())
		}
	}
	s.Version = 1
	r.sales[s.ID] = *s
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	return &s, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *memRepo) GetByWorkOrder(ctx context.Context, workOrderID id.ID) (*Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sales {
		if s.WorkOrderID != nil && *s.WorkOrderID == workOrderID {
			return &s, nil
		}
	}
	return nil, apperror.NewNotFound("sale", workOrderID.String())
}

func (r *memRepo) Update(ctx context.Context, s *Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.sales[s.ID]
	if !ok {
		return apperror.NewNotFound("sale", s.ID.String())
	}
	if cur.Version != s.Version {
		return apperror.NewConcurrentModification("sale", s.ID.String())
	}
	s.Version++
	r.sales[s.ID] = *s
	return nil
}

func (r *memRepo) List(ctx context.Context, f ListFilter) (domain.ListResult[*Sale], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Sale
	for _, s := range r.sales {
		if f.PaymentStatus != nil && s.PaymentStatus != *f.PaymentStatus {
			continue
		}
		s := s
		out = append(out, &s)
	}
	return domain.ListResult[*Sale]{Items: out, TotalCount: int64(len(out))}, nil
}

func totals(sub, disc, tax int64) Totals {
	return Totals{
		Subtotal:       types.NewMoney(sub),
		DiscountAmount: types.NewMoney(disc),
		TaxAmount:      types.NewMoney(tax),
		TotalAmount:    types.NewMoney(sub - disc + tax),
	}
}

func newTestService() (*Service, *memRepo, *audit.Memory) {
	repo := newMemRepo()
	rec := &audit.Memory{}
	return NewService(repo, &numerator.MockGenerator{}, rec, tx.Passthrough{}), repo, rec
}

func TestValidateTotalIdentity(t *testing.T) {
	s := NewSale(nil, totals(150000, 0, 28500))
	require.NoError(t, s.Validate(context.Background()))

	s.TotalAmount = types.NewMoney(178000)
	err := s.Validate(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRegisterPaymentStatuses(t *testing.T) {
	s := NewSale(nil, totals(100000, 0, 19000))
	assert.Equal(t, PaymentPending, s.PaymentStatus)

	require.NoError(t, s.RegisterPayment(types.NewMoney(50000)))
	assert.Equal(t, PaymentPartial, s.PaymentStatus)
	assert.True(t, types.NewMoney(69000).Equal(s.Balance()))

	err := s.RegisterPayment(types.NewMoney(70000))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Equal(t, PaymentPartial, s.PaymentStatus)

	require.NoError(t, s.RegisterPayment(types.NewMoney(69000)))
	assert.Equal(t, PaymentPaid, s.PaymentStatus)
	assert.True(t, s.Balance().IsZero())

	assert.Error(t, s.RegisterPayment(types.NewMoney(1)))
	assert.Error(t, NewSale(nil, totals(1, 0, 0)).RegisterPayment(types.Zero()))
}

func TestZeroTotalSaleStartsPaid(t *testing.T) {
	s := NewSale(nil, totals(100000, 100000, 0))
	require.NoError(t, s.Validate(context.Background()))
	assert.Equal(t, PaymentPaid, s.PaymentStatus)
	assert.True(t, s.Balance().IsZero())

	err := s.RegisterPayment(types.NewMoney(1))
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))

	neg := NewSale(nil, totals(100000, 300000, 0))
	err = neg.Validate(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCreateForWorkOrder(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := tenant.WithTxManager(context.Background(), tx.Passthrough{})
	woID := id.New()

	s := NewSale(nil, totals(150000, 0, 28500))
	require.NoError(t, svc.CreateForWorkOrder(ctx, woID, s))
	assert.True(t, strings.HasPrefix(s.Number, numerator.PrefixSale+"-"), s.Number)
	require.NotNil(t, s.WorkOrderID)
	assert.Equal(t, woID, *s.WorkOrderID)

	got, err := svc.GetByWorkOrder(ctx, woID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	err = svc.CreateForWorkOrder(ctx, woID, NewSale(nil, totals(1, 0, 0)))
	assert.True(t, apperror.HasCode(err, apperror.CodeSaleExists))
	assert.Len(t, repo.sales, 1)
}

func TestServiceRegisterPayment(t *testing.T) {
	svc, _, rec := newTestService()
	ctx := context.Background()

	s := NewSale(nil, totals(50000, 0, 0))
	require.NoError(t, svc.CreateForWorkOrder(ctx, id.New(), s))

	out, err := svc.RegisterPayment(ctx, s.ID, types.NewMoney(50000))
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, out.PaymentStatus)
	assert.Equal(t, 2, out.Version)
	require.Len(t, rec.Records, 1)
	assert.Equal(t, audit.ActionUpdate, rec.Records[0].Action)

	paid := PaymentPaid
	list, err := svc.List(ctx, ListFilter{PaymentStatus: &paid})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)

	_, err = svc.RegisterPayment(ctx, id.New(), types.NewMoney(1))
	assert.True(t, apperror.IsNotFound(err))
}
