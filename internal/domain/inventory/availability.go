package inventory

import (
	"sort"
	"time"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ComputeAvailability deriva la vista ATP de un saldo excluyendo existencias en lotes vencidos.
// Una combinación con solo stock vencido reporta on-hand vendible cero aunque el ledger sea positivo.
func ComputeAvailability(b *entity.Balance, expired decimal.Decimal, warehouseID string, asOf time.Time) entity.Availability {
	onHand := b.OnHand.Sub(decimal.Max(expired, decimal.Zero))
	if onHand.IsNegative() {
		onHand = decimal.Zero
	}
	available := onHand.Sub(b.Committed())
	if available.IsNegative() {
		available = decimal.Zero
	}
	return entity.Availability{
		TenantID:    b.TenantID,
		WarehouseID: warehouseID,
		LocationID:  b.LocationID,
		ItemID:      b.ItemID,
		UOM:         b.UOM,
		OnHand:      onHand,
		Reserved:    b.Reserved,
		Allocated:   b.Allocated,
		Available:   available,
		AsOf:        asOf,
	}
}

// SortBalanceKeys ordena y deduplica llaves para adquirir bloqueos en orden determinístico.
func SortBalanceKeys(keys []entity.BalanceKey) []entity.BalanceKey {
	seen := make(map[entity.BalanceKey]struct{}, len(keys))
	out := make([]entity.BalanceKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
