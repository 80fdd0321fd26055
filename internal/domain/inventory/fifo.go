package inventory

import (
	"sort"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// FIFOSlice porción de una capa que cubre parte de una salida.
type FIFOSlice struct {
	Layer    *entity.CostLayer
	Quantity decimal.Decimal
}

// Cost valor de la porción (cantidad × costo unitario de la capa).
func (s FIFOSlice) Cost() decimal.Decimal {
	return s.Quantity.Mul(s.Layer.UnitCost())
}

// LayerFilter restringe las capas candidatas de una salida.
type LayerFilter struct {
	LotID       string          // solo capas de este lote; vacío = cualquier lote
	ExcludeLots map[string]bool // lotes que no se consumen (vencidos en despachos)
}

// Apply capas que cumplen el filtro, en el mismo orden.
func (f LayerFilter) Apply(layers []*entity.CostLayer) []*entity.CostLayer {
	if f.LotID == "" && len(f.ExcludeLots) == 0 {
		return layers
	}
	out := make([]*entity.CostLayer, 0, len(layers))
	for _, l := range layers {
		if f.LotID != "" && l.LotID() != f.LotID {
			continue
		}
		if f.ExcludeLots[l.LotID()] {
			continue
		}
		out = append(out, l)
	}
	return out
}

// PlanFIFO selecciona capas de la más antigua a la más nueva hasta cubrir qty.
// Cada porción se calcula sobre el remanente propio de la capa, nunca redondeando el total.
// Las capas anuladas o agotadas se ignoran. Si el remanente total no alcanza devuelve
// InsufficientStockError sin tocar ninguna capa.
func PlanFIFO(key entity.BalanceKey, layers []*entity.CostLayer, qty decimal.Decimal) ([]FIFOSlice, error) {
	if !qty.IsPositive() {
		return nil, domain.Invalid("quantity", "debe ser mayor que cero")
	}
	ordered := make([]*entity.CostLayer, 0, len(layers))
	for _, l := range layers {
		if l.IsVoided() || !l.RemainingQuantity().IsPositive() {
			continue
		}
		ordered = append(ordered, l)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Sequence() != ordered[j].Sequence() {
			return ordered[i].Sequence() < ordered[j].Sequence()
		}
		return ordered[i].CreatedAt().Before(ordered[j].CreatedAt())
	})

	outstanding := qty
	slices := make([]FIFOSlice, 0, len(ordered))
	for _, l := range ordered {
		if outstanding.IsZero() {
			break
		}
		take := decimal.Min(outstanding, l.RemainingQuantity())
		slices = append(slices, FIFOSlice{Layer: l, Quantity: take})
		outstanding = outstanding.Sub(take)
	}
	if outstanding.IsPositive() {
		return nil, &domain.InsufficientStockError{
			ItemID:     key.ItemID,
			LocationID: key.LocationID,
			UOM:        key.UOM,
			Requested:  qty,
			Available:  qty.Sub(outstanding),
		}
	}
	return slices, nil
}

// TotalCost suma del valor de las porciones.
func TotalCost(slices []FIFOSlice) decimal.Decimal {
	total := decimal.Zero
	for _, s := range slices {
		total = total.Add(s.Cost())
	}
	return total
}
