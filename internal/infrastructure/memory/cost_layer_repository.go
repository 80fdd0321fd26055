package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.CostLayerRepository = (*costLayerRepo)(nil)

type costLayerRepo struct{ s *Store }

func (r *costLayerRepo) Insert(_ context.Context, layer *entity.CostLayer) (*entity.CostLayer, bool, error) {
	rec := layer.Record()
	for _, l := range r.s.st.layers {
		if l.TenantID == rec.TenantID && l.SourceType == rec.SourceType && l.SourceID == rec.SourceID && l.VoidedAt == nil {
			return entity.RestoreCostLayer(l), false, nil
		}
	}
	r.s.st.layerSeq++
	rec.Sequence = r.s.st.layerSeq
	r.s.st.layers[rec.ID] = rec
	return entity.RestoreCostLayer(rec), true, nil
}

func (r *costLayerRepo) GetByID(_ context.Context, tenantID, id string) (*entity.CostLayer, error) {
	rec, ok := r.s.st.layers[id]
	if !ok || rec.TenantID != tenantID {
		return nil, nil
	}
	return entity.RestoreCostLayer(rec), nil
}

func (r *costLayerRepo) sorted(match func(entity.CostLayerRecord) bool) []*entity.CostLayer {
	var recs []entity.CostLayerRecord
	for _, l := range r.s.st.layers {
		if match(l) {
			recs = append(recs, l)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Sequence < recs[j].Sequence })
	out := make([]*entity.CostLayer, 0, len(recs))
	for _, rec := range recs {
		out = append(out, entity.RestoreCostLayer(rec))
	}
	return out
}

func (r *costLayerRepo) ListOpenForUpdate(_ context.Context, key entity.BalanceKey) ([]*entity.CostLayer, error) {
	return r.sorted(func(l entity.CostLayerRecord) bool {
		return l.TenantID == key.TenantID && l.ItemID == key.ItemID && l.LocationID == key.LocationID &&
			l.UOM == key.UOM && l.VoidedAt == nil && l.RemainingQuantity.IsPositive()
	}), nil
}

func (r *costLayerRepo) ListByMovementForUpdate(_ context.Context, tenantID, movementID string) ([]*entity.CostLayer, error) {
	return r.sorted(func(l entity.CostLayerRecord) bool {
		return l.TenantID == tenantID && l.MovementID == movementID
	}), nil
}

// ApplyConsumption decremento condicional: falla con ErrSerialization si el remanente
// almacenado ya no cubre el consumo (otra transacción consumió la capa).
func (r *costLayerRepo) ApplyConsumption(_ context.Context, layer *entity.CostLayer, c entity.CostLayerConsumption) error {
	cur, ok := r.s.st.layers[layer.ID()]
	if !ok || cur.TenantID != layer.TenantID() {
		return fmt.Errorf("layer %s: %w", layer.ID(), domain.ErrNotFound)
	}
	if cur.VoidedAt != nil {
		return fmt.Errorf("layer %s: %w", layer.ID(), domain.ErrLayerVoided)
	}
	if cur.RemainingQuantity.LessThan(c.Quantity) {
		return fmt.Errorf("layer %s: %w", layer.ID(), domain.ErrSerialization)
	}
	cur.RemainingQuantity = cur.RemainingQuantity.Sub(c.Quantity)
	cur.ExtendedCost = cur.ExtendedCost.Sub(c.ExtendedCost)
	r.s.st.layers[cur.ID] = cur
	r.s.st.consumptions = append(r.s.st.consumptions, c)
	return nil
}

// Void anula la capa solo si sigue intacta.
func (r *costLayerRepo) Void(_ context.Context, layer *entity.CostLayer) error {
	cur, ok := r.s.st.layers[layer.ID()]
	if !ok || cur.TenantID != layer.TenantID() {
		return fmt.Errorf("layer %s: %w", layer.ID(), domain.ErrNotFound)
	}
	if cur.VoidedAt != nil {
		return fmt.Errorf("layer %s: %w", layer.ID(), domain.ErrLayerVoided)
	}
	if !cur.RemainingQuantity.Equal(cur.OriginalQuantity) {
		return fmt.Errorf("layer %s: %w", layer.ID(), domain.ErrLayerConsumed)
	}
	cur.RemainingQuantity = decimal.Zero
	cur.ExtendedCost = decimal.Zero
	cur.VoidedAt = copyTime(layer.VoidedAt())
	r.s.st.layers[cur.ID] = cur
	return nil
}

func (r *costLayerRepo) ListConsumptionsByMovement(_ context.Context, tenantID, movementID string) ([]entity.CostLayerConsumption, error) {
	var out []entity.CostLayerConsumption
	for _, c := range r.s.st.consumptions {
		if c.TenantID == tenantID && c.MovementID == movementID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *costLayerRepo) InsertTransferLink(_ context.Context, link entity.CostLayerTransferLink) error {
	r.s.st.links = append(r.s.st.links, link)
	return nil
}

func (r *costLayerRepo) ListTransferLinksByMovement(_ context.Context, tenantID, movementID string) ([]entity.CostLayerTransferLink, error) {
	var out []entity.CostLayerTransferLink
	for _, l := range r.s.st.links {
		if l.TenantID == tenantID && l.MovementID == movementID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *costLayerRepo) Valuation(_ context.Context, key entity.BalanceKey) (decimal.Decimal, decimal.Decimal, error) {
	qty, value := decimal.Zero, decimal.Zero
	for _, l := range r.s.st.layers {
		if l.TenantID != key.TenantID || l.ItemID != key.ItemID || l.LocationID != key.LocationID || l.UOM != key.UOM || l.VoidedAt != nil {
			continue
		}
		qty = qty.Add(l.RemainingQuantity)
		value = value.Add(l.RemainingQuantity.Mul(l.UnitCost))
	}
	return qty, value, nil
}

func (r *costLayerRepo) ExpiredQuantity(_ context.Context, key entity.BalanceKey, asOf time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, l := range r.s.st.layers {
		if l.TenantID != key.TenantID || l.ItemID != key.ItemID || l.LocationID != key.LocationID || l.UOM != key.UOM ||
			l.VoidedAt != nil || l.LotID == "" {
			continue
		}
		lot, ok := r.s.st.lots[l.LotID]
		if !ok || !lot.IsExpired(asOf) {
			continue
		}
		total = total.Add(l.RemainingQuantity)
	}
	return total, nil
}

func (r *costLayerRepo) NextLotExpiry(_ context.Context, key entity.BalanceKey, asOf time.Time) (*time.Time, error) {
	var next *time.Time
	for _, l := range r.s.st.layers {
		if l.TenantID != key.TenantID || l.ItemID != key.ItemID || l.LocationID != key.LocationID || l.UOM != key.UOM ||
			l.VoidedAt != nil || l.LotID == "" || !l.RemainingQuantity.IsPositive() {
			continue
		}
		lot, ok := r.s.st.lots[l.LotID]
		if !ok || lot.ExpiresAt == nil || !lot.ExpiresAt.After(asOf) {
			continue
		}
		if next == nil || lot.ExpiresAt.Before(*next) {
			next = copyTime(lot.ExpiresAt)
		}
	}
	return next, nil
}
