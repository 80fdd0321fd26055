package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

var (
	_ repository.ItemRepository      = (*itemRepo)(nil)
	_ repository.WarehouseRepository = (*warehouseRepo)(nil)
)

type itemRepo struct{ s *Store }

func (r *itemRepo) Create(_ context.Context, item *entity.Item) error {
	for _, it := range r.s.st.items {
		if it.TenantID == item.TenantID && it.SKU == item.SKU {
			return domain.ErrConflict
		}
	}
	r.s.st.items[item.ID] = *item
	return nil
}

func (r *itemRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Item, error) {
	it, ok := r.s.st.items[id]
	if !ok || it.TenantID != tenantID {
		return nil, nil
	}
	return &it, nil
}

func (r *itemRepo) SaveConversion(_ context.Context, conv *entity.UOMConversion) error {
	r.s.st.conversions[convKey{conv.TenantID, conv.ItemID, conv.UOM}] = *conv
	return nil
}

func (r *itemRepo) GetConversion(_ context.Context, tenantID, itemID, uom string) (*entity.UOMConversion, error) {
	c, ok := r.s.st.conversions[convKey{tenantID, itemID, uom}]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *itemRepo) CreateLot(_ context.Context, lot *entity.Lot) error {
	for _, l := range r.s.st.lots {
		if l.TenantID == lot.TenantID && l.ItemID == lot.ItemID && l.Code == lot.Code {
			return domain.ErrConflict
		}
	}
	v := *lot
	v.ExpiresAt = copyTime(lot.ExpiresAt)
	r.s.st.lots[lot.ID] = v
	return nil
}

func (r *itemRepo) GetLot(_ context.Context, tenantID, id string) (*entity.Lot, error) {
	l, ok := r.s.st.lots[id]
	if !ok || l.TenantID != tenantID {
		return nil, nil
	}
	l.ExpiresAt = copyTime(l.ExpiresAt)
	return &l, nil
}

type warehouseRepo struct{ s *Store }

func (r *warehouseRepo) Create(_ context.Context, wh *entity.Warehouse) error {
	r.s.st.warehouses[wh.ID] = *wh
	return nil
}

func (r *warehouseRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Warehouse, error) {
	wh, ok := r.s.st.warehouses[id]
	if !ok || wh.TenantID != tenantID {
		return nil, nil
	}
	return &wh, nil
}

func (r *warehouseRepo) CreateLocation(_ context.Context, loc *entity.Location) error {
	for _, l := range r.s.st.locations {
		if l.TenantID == loc.TenantID && l.WarehouseID == loc.WarehouseID && l.Code == loc.Code {
			return domain.ErrConflict
		}
	}
	r.s.st.locations[loc.ID] = *loc
	return nil
}

func (r *warehouseRepo) GetLocation(_ context.Context, tenantID, id string) (*entity.Location, error) {
	l, ok := r.s.st.locations[id]
	if !ok || l.TenantID != tenantID {
		return nil, nil
	}
	return &l, nil
}

func (r *warehouseRepo) ListLocations(_ context.Context, tenantID, warehouseID string) ([]*entity.Location, error) {
	var out []*entity.Location
	for _, l := range r.s.st.locations {
		if l.TenantID == tenantID && l.WarehouseID == warehouseID {
			v := l
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
