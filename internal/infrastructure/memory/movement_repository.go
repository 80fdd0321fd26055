package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.MovementRepository = (*movementRepo)(nil)

type movementRepo struct{ s *Store }

func (r *movementRepo) Create(_ context.Context, m *entity.Movement) error {
	if _, ok := r.s.st.movements[m.ID]; ok {
		return fmt.Errorf("movement %s: %w", m.ID, domain.ErrConflict)
	}
	r.s.st.movements[m.ID] = copyMovement(*m)
	return nil
}

func (r *movementRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Movement, error) {
	m, ok := r.s.st.movements[id]
	if !ok || m.TenantID != tenantID {
		return nil, nil
	}
	out := copyMovement(m)
	return &out, nil
}

func (r *movementRepo) MarkPosted(_ context.Context, m *entity.Movement) error {
	cur, ok := r.s.st.movements[m.ID]
	if !ok || cur.TenantID != m.TenantID {
		return fmt.Errorf("movement %s: %w", m.ID, domain.ErrNotFound)
	}
	if cur.Status != entity.MovementStatusDraft {
		return fmt.Errorf("movement %s: %w", m.ID, domain.ErrMovementNotDraft)
	}
	r.s.st.movements[m.ID] = copyMovement(*m)
	return nil
}

func (r *movementRepo) MarkVoided(_ context.Context, tenantID, id string, at time.Time) error {
	cur, ok := r.s.st.movements[id]
	if !ok || cur.TenantID != tenantID {
		return fmt.Errorf("movement %s: %w", id, domain.ErrNotFound)
	}
	if cur.Status != entity.MovementStatusPosted {
		return fmt.Errorf("movement %s: %w", id, domain.ErrMovementNotPosted)
	}
	cur.Status = entity.MovementStatusVoided
	cur.VoidedAt = &at
	r.s.st.movements[id] = cur
	return nil
}

func (r *movementRepo) DeleteDraft(_ context.Context, tenantID, id string) error {
	cur, ok := r.s.st.movements[id]
	if !ok || cur.TenantID != tenantID {
		return fmt.Errorf("movement %s: %w", id, domain.ErrNotFound)
	}
	if cur.Status != entity.MovementStatusDraft {
		return fmt.Errorf("movement %s: %w", id, domain.ErrMovementNotDraft)
	}
	delete(r.s.st.movements, id)
	return nil
}

func (r *movementRepo) LedgerTotals(_ context.Context, tenantID string) ([]repository.LedgerTotal, error) {
	sums := map[entity.BalanceKey]decimal.Decimal{}
	for _, m := range r.s.st.movements {
		if m.TenantID != tenantID || m.Status == entity.MovementStatusDraft {
			continue
		}
		for i := range m.Lines {
			k := m.Lines[i].Key(tenantID)
			sums[k] = sums[k].Add(m.Lines[i].QuantityDelta)
		}
	}
	out := make([]repository.LedgerTotal, 0, len(sums))
	for k, q := range sums {
		out = append(out, repository.LedgerTotal{Key: k, Quantity: q})
	}
	return out, nil
}
