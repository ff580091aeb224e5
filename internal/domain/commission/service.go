package commission

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/numerator"
	"taller/internal/core/tenant"
	"taller/internal/core/tx"
	"taller/internal/core/types"
	"taller/internal/domain"
	"taller/internal/domain/audit"
	"taller/internal/domain/catalogs/technician"
	"taller/pkg/logger"
)

const entityName = "commission_settlement"

type TechnicianDirectory interface {
	GetByID(ctx context.Context, technicianID id.ID) (*technician.Technician, error)
	ListActive(ctx context.Context) ([]*technician.Technician, error)
}

type Config struct {
	Repo        Repository
	Technicians TechnicianDirectory
	Settings    tenant.SettingsProvider
	Numerator   numerator.Generator
	Events      domain.EventPublisher
	Audit       audit.Recorder
	TxManager   tx.Manager
	Clock       func() time.Time
}

type Service struct {
	repo        Repository
	technicians TechnicianDirectory
	settings    tenant.SettingsProvider
	numerator   numerator.Generator
	events      domain.EventPublisher
	audit       audit.Recorder
	txManager   tx.Manager
	now         func() time.Time
}

func NewService(cfg Config) *Service {
	s := &Service{
		repo:        cfg.Repo,
		technicians: cfg.Technicians,
		settings:    cfg.Settings,
		numerator:   cfg.Numerator,
		events:      cfg.Events,
		audit:       cfg.Audit,
		txManager:   cfg.TxManager,
		now:         cfg.Clock,
	}
	if s.settings == nil {
		s.settings = tenant.ContextSettings{}
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	txm, err := tenant.GetTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	return txm, nil
}

func (s *Service) scale(ctx context.Context) int32 {
	ws, err := s.settings.Workshop(ctx)
	if err != nil {
		logger.Warn(ctx, "workshop settings unavailable, using defaults", "error", err)
		return tenant.DefaultWorkshopSettings().CurrencyDecimals
	}
	return ws.CurrencyDecimals
}

// Preview computes the settlement a technician would receive for the range
// without writing anything. The estimate uses the technician's default
// percentage.
func (s *Service) Preview(ctx context.Context, technicianID id.ID, r DateRange) (*Preview, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	tech, err := s.technicians.GetByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	var cands []Candidate
	read := func(ctx context.Context) error {
		var err error
		cands, err = s.repo.Candidates(ctx, technicianID, r, false)
		return err
	}
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, err
	}
	if ro, ok := txm.(tx.ReadOnlyManager); ok {
		err = ro.ReadOnly(ctx, read)
	} else {
		err = read(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	base := BaseAmount(cands)
	if cands == nil {
		cands = []Candidate{}
	}
	return &Preview{
		TechnicianID:         technicianID,
		DateFrom:             r.From,
		DateTo:               r.To,
		Orders:               cands,
		BaseAmount:           base,
		CommissionPercentage: tech.CommissionPercentage,
		CommissionAmount:     types.Percent(base, tech.CommissionPercentage, s.scale(ctx)),
	}, nil
}

// SettlementInput creates a settlement. A nil percentage takes the
// technician's configured one.
type SettlementInput struct {
	TechnicianID         id.ID
	Range                DateRange
	CommissionPercentage *decimal.Decimal
	Notes                string
}

// CreateSettlement settles every eligible order in one transaction. The
// candidate rows are locked, so a concurrent run waits and then finds them
// settled.
func (s *Service) CreateSettlement(ctx context.Context, in SettlementInput) (*Settlement, error) {
	if err := in.Range.Validate(); err != nil {
		return nil, err
	}
	tech, err := s.technicians.GetByID(ctx, in.TechnicianID)
	if err != nil {
		return nil, err
	}
	pct := tech.CommissionPercentage
	if in.CommissionPercentage != nil {
		pct = *in.CommissionPercentage
	}
	if err := technician.ValidatePercentage(pct); err != nil {
		return nil, err
	}
	scale := s.scale(ctx)

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, err
	}

	var st *Settlement
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		cands, err := s.repo.Candidates(ctx, in.TechnicianID, in.Range, true)
		if err != nil {
			return fmt.Errorf("lock candidates: %w", err)
		}
		if len(cands) == 0 {
			return apperror.NewNoEligibleOrders(in.TechnicianID.String())
		}

		st = NewSettlement(in.TechnicianID, in.Range, pct, cands, scale)
		st.Date = s.now().UTC()
		st.Notes = in.Notes
		audit.StampCreated(ctx, &st.BaseDocument)
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(numerator.PrefixSettlement), nil, st.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		st.Number = number
		if err := st.Validate(ctx); err != nil {
			return err
		}

		if err := s.repo.Create(ctx, st); err != nil {
			return fmt.Errorf("create settlement: %w", err)
		}
		marked, err := s.repo.MarkSettled(ctx, st.OrderIDs(), st.Date)
		if err != nil {
			return fmt.Errorf("mark orders settled: %w", err)
		}
		if marked != int64(len(st.Items)) {
			return apperror.NewConflict("some work orders were settled concurrently").
				WithDetail("expected", len(st.Items)).
				WithDetail("marked", marked)
		}

		if err := s.audit.LogChange(ctx, entityName, st.ID, audit.ActionSettle, map[string]any{
			"technician_id":     in.TechnicianID.String(),
			"orders":            len(st.Items),
			"base_amount":       st.BaseAmount.String(),
			"commission_amount": st.CommissionAmount.String(),
		}); err != nil {
			return fmt.Errorf("audit settlement: %w", err)
		}
		if s.events == nil {
			return nil
		}
		return s.events.Publish(ctx, domain.Event{
			AggregateType: entityName,
			AggregateID:   st.ID,
			EventType:     domain.EventSettlementCreated,
			Payload: map[string]any{
				"settlement_id":     st.ID.String(),
				"number":            st.Number,
				"technician_id":     in.TechnicianID.String(),
				"commission_amount": st.CommissionAmount.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "commission settlement created",
		"id", st.ID,
		"number", st.Number,
		"technician_id", in.TechnicianID,
		"orders", len(st.Items),
		"commission", st.CommissionAmount.String(),
	)
	return st, nil
}

// ListTechnicians returns active technicians with their pending labor.
func (s *Service) ListTechnicians(ctx context.Context) ([]TechnicianSummary, error) {
	techs, err := s.technicians.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.PendingByTechnician(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending labor: %w", err)
	}
	out := make([]TechnicianSummary, 0, len(techs))
	for _, t := range techs {
		p := pending[t.ID]
		out = append(out, TechnicianSummary{
			TechnicianID:         t.ID,
			Code:                 t.Code,
			Name:                 t.Name,
			CommissionPercentage: t.CommissionPercentage,
			PendingOrders:        p.Orders,
			PendingLabor:         p.Labor,
		})
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Settlement], error) {
	return s.repo.List(ctx, filter)
}

// Get loads a settlement with its items.
func (s *Service) Get(ctx context.Context, settlementID id.ID) (*Settlement, error) {
	st, err := s.repo.GetByID(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, settlementID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	st.Items = items
	return st, nil
}
