package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

var _ repository.BalanceRepository = (*balanceRepo)(nil)

type balanceRepo struct{ s *Store }

// LockForUpdate el mutex del almacén ya da exclusión; solo materializa filas faltantes.
func (r *balanceRepo) LockForUpdate(_ context.Context, keys []entity.BalanceKey) (map[entity.BalanceKey]*entity.Balance, error) {
	out := make(map[entity.BalanceKey]*entity.Balance, len(keys))
	for _, k := range keys {
		b, ok := r.s.st.balances[k]
		if !ok {
			out[k] = entity.NewBalance(k)
			continue
		}
		out[k] = &b
	}
	return out, nil
}

func (r *balanceRepo) Save(_ context.Context, b *entity.Balance) error {
	r.s.st.balances[b.Key()] = *b
	return nil
}

func (r *balanceRepo) Get(_ context.Context, key entity.BalanceKey) (*entity.Balance, error) {
	b, ok := r.s.st.balances[key]
	if !ok {
		return entity.NewBalance(key), nil
	}
	return &b, nil
}

func (r *balanceRepo) ListByLocations(_ context.Context, tenantID, itemID, uom string, locationIDs []string) ([]*entity.Balance, error) {
	var out []*entity.Balance
	for _, id := range locationIDs {
		k := entity.BalanceKey{TenantID: tenantID, ItemID: itemID, LocationID: id, UOM: uom}
		if b, ok := r.s.st.balances[k]; ok {
			v := b
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, nil
}

func (r *balanceRepo) ListByTenant(_ context.Context, tenantID string) ([]*entity.Balance, error) {
	var out []*entity.Balance
	for _, b := range r.s.st.balances {
		if b.TenantID == tenantID {
			v := b
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out, nil
}

func (r *balanceRepo) ListTenants(_ context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	for k := range r.s.st.balances {
		seen[k.TenantID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}
