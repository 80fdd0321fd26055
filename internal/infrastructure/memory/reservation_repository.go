package memory

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.ReservationRepository = (*reservationRepo)(nil)

type reservationRepo struct{ s *Store }

func (r *reservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	r.s.st.reservations[res.ID] = *res
	return nil
}

func (r *reservationRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Reservation, error) {
	res, ok := r.s.st.reservations[id]
	if !ok || res.TenantID != tenantID {
		return nil, nil
	}
	return &res, nil
}

func (r *reservationRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Reservation, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *reservationRepo) Update(_ context.Context, res *entity.Reservation) error {
	cur, ok := r.s.st.reservations[res.ID]
	if !ok || cur.TenantID != res.TenantID {
		return fmt.Errorf("reservation %s: %w", res.ID, domain.ErrNotFound)
	}
	r.s.st.reservations[res.ID] = *res
	return nil
}

func (r *reservationRepo) CreateBackorder(_ context.Context, b *entity.Backorder) error {
	r.s.st.backorders[b.ID] = *b
	return nil
}

func (r *reservationRepo) GetBackorder(_ context.Context, tenantID, id string) (*entity.Backorder, error) {
	b, ok := r.s.st.backorders[id]
	if !ok || b.TenantID != tenantID {
		return nil, nil
	}
	return &b, nil
}

func (r *reservationRepo) OpenTotals(_ context.Context, tenantID string) ([]repository.OpenCommitment, error) {
	sums := map[entity.BalanceKey]*repository.OpenCommitment{}
	for _, res := range r.s.st.reservations {
		if res.TenantID != tenantID || res.IsTerminal() {
			continue
		}
		k := res.Key()
		c, ok := sums[k]
		if !ok {
			c = &repository.OpenCommitment{Key: k, Reserved: decimal.Zero, Allocated: decimal.Zero}
			sums[k] = c
		}
		if res.Status == entity.ReservationStatusReserved {
			c.Reserved = c.Reserved.Add(res.Open())
		} else {
			c.Allocated = c.Allocated.Add(res.Open())
		}
	}
	out := make([]repository.OpenCommitment, 0, len(sums))
	for _, c := range sums {
		out = append(out, *c)
	}
	return out, nil
}
