package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CycleCountLineInput cantidad contada.
type CycleCountLineInput struct {
	ItemID          string           `json:"item_id"`
	LocationID      string           `json:"location_id"`
	UOM             string           `json:"uom"`
	LotID           string           `json:"lot_id,omitempty"`
	CountedQuantity decimal.Decimal  `json:"counted_quantity"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
}

// CycleCountInput documento de conteo (frontera con el núcleo).
type CycleCountInput struct {
	TenantID    string                `json:"-"`
	WarehouseID string                `json:"warehouse_id"`
	Lines       []CycleCountLineInput `json:"lines"`
}

// CycleCountUseCase conteos cíclicos: la contabilización registra la diferencia contra el on-hand.
type CycleCountUseCase struct {
	exec *Executor
}

// NewCycleCountUseCase construye el caso de uso.
func NewCycleCountUseCase(exec *Executor) *CycleCountUseCase {
	return &CycleCountUseCase{exec: exec}
}

// CreateCount registra el conteo en borrador. Cada ubicación debe pertenecer a la bodega.
func (uc *CycleCountUseCase) CreateCount(ctx context.Context, in CycleCountInput) (*entity.CycleCount, error) {
	if in.WarehouseID == "" {
		return nil, domain.Invalid("warehouse_id", "requerido")
	}
	if len(in.Lines) == 0 {
		return nil, domain.Invalid("lines", "se requiere al menos una línea")
	}
	seen := map[entity.BalanceKey]struct{}{}
	for _, l := range in.Lines {
		if l.CountedQuantity.IsNegative() {
			return nil, domain.Invalid("lines.counted_quantity", "no puede ser negativa")
		}
		if l.UnitCost != nil && l.UnitCost.IsNegative() {
			return nil, domain.Invalid("lines.unit_cost", "no puede ser negativo")
		}
		k := entity.BalanceKey{ItemID: l.ItemID, LocationID: l.LocationID, UOM: l.UOM}
		if _, dup := seen[k]; dup {
			return nil, domain.Invalid("lines", "ítem-ubicación-unidad duplicado")
		}
		seen[k] = struct{}{}
	}
	var count *entity.CycleCount
	err := uc.exec.InTx(ctx, in.TenantID, func(ctx context.Context, tx *Tx) error {
		if err := requireWarehouse(ctx, tx, in.WarehouseID); err != nil {
			return err
		}
		c := &entity.CycleCount{
			ID:          uuid.NewString(),
			TenantID:    tx.TenantID,
			WarehouseID: in.WarehouseID,
			Status:      entity.DocumentStatusDraft,
			CreatedAt:   tx.Now,
		}
		for i, l := range in.Lines {
			if _, err := locationInWarehouse(ctx, tx, l.LocationID, in.WarehouseID); err != nil {
				return err
			}
			c.Lines = append(c.Lines, entity.CycleCountLine{
				LineNumber:      i + 1,
				ItemID:          l.ItemID,
				LocationID:      l.LocationID,
				UOM:             l.UOM,
				LotID:           l.LotID,
				CountedQuantity: l.CountedQuantity,
				UnitCost:        l.UnitCost,
			})
		}
		if err := tx.Counts.Create(ctx, c); err != nil {
			return fmt.Errorf("create count: %w", err)
		}
		count = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return count, nil
}

// PostCycleCount contabiliza el conteo bajo la familia count-post. La varianza de cada línea es
// contado − on-hand; sobrantes crean capas (al costo dado o al promedio de las capas abiertas) y
// faltantes consumen FIFO. Un conteo sin diferencias se contabiliza sin movimiento.
func (uc *CycleCountUseCase) PostCycleCount(ctx context.Context, tenantID, countID, key string) (*entity.CycleCount, error) {
	payload := map[string]string{"count_id": countID}
	var count *entity.CycleCount
	res, err := uc.exec.Execute(ctx, tenantID, entity.FamilyCountPost, key, payload, func(ctx context.Context, tx *Tx) ([]string, error) {
		c, err := tx.Counts.GetForUpdate(ctx, tenantID, countID)
		if err != nil {
			return nil, fmt.Errorf("get count: %w", err)
		}
		if c == nil {
			return nil, fmt.Errorf("count %s: %w", countID, domain.ErrNotFound)
		}
		if c.Status != entity.DocumentStatusDraft {
			return nil, &domain.InvalidStateError{Entity: "cycle_count", ID: c.ID, State: c.Status, Action: "post"}
		}
		keys := make([]entity.BalanceKey, 0, len(c.Lines))
		for _, l := range c.Lines {
			keys = append(keys, entity.BalanceKey{TenantID: tenantID, ItemID: l.ItemID, LocationID: l.LocationID, UOM: l.UOM})
		}
		balances, err := lockBalances(ctx, tx, keys)
		if err != nil {
			return nil, err
		}
		m := &entity.Movement{
			Type:           entity.MovementTypeCount,
			IdempotencyKey: key,
			SourceType:     "cycle_count",
			SourceID:       c.ID,
		}
		for _, l := range c.Lines {
			k := entity.BalanceKey{TenantID: tenantID, ItemID: l.ItemID, LocationID: l.LocationID, UOM: l.UOM}
			variance := l.CountedQuantity.Sub(balances[k].OnHand)
			if variance.IsZero() {
				continue
			}
			line := entity.MovementLine{
				LineNumber:    l.LineNumber,
				ItemID:        l.ItemID,
				LocationID:    l.LocationID,
				UOM:           l.UOM,
				LotID:         l.LotID,
				QuantityDelta: variance,
				ReasonCode:    "COUNT_VARIANCE",
			}
			if variance.IsPositive() && l.UnitCost != nil {
				cost := *l.UnitCost
				line.UnitCost = &cost
			}
			m.Lines = append(m.Lines, line)
		}
		if len(m.Lines) > 0 {
			if _, err := postMovement(ctx, tx, m, PostOptions{}); err != nil {
				return nil, err
			}
			c.MovementID = m.ID
		}
		now := tx.Now
		c.Status = entity.DocumentStatusPosted
		c.PostedAt = &now
		if err := tx.Counts.Update(ctx, c); err != nil {
			return nil, fmt.Errorf("update count: %w", err)
		}
		count = c
		return []string{c.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return uc.Get(ctx, tenantID, res.IDs[0])
	}
	return count, nil
}

// Get devuelve el conteo del tenant.
func (uc *CycleCountUseCase) Get(ctx context.Context, tenantID, countID string) (*entity.CycleCount, error) {
	var c *entity.CycleCount
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		var err error
		if c, err = tx.Counts.GetByID(ctx, tenantID, countID); err != nil {
			return fmt.Errorf("get count: %w", err)
		}
		if c == nil {
			return fmt.Errorf("count %s: %w", countID, domain.ErrNotFound)
		}
		return nil
	})
	return c, err
}

func requireWarehouse(ctx context.Context, tx *Tx, warehouseID string) error {
	wh, err := tx.Warehouses.GetByID(ctx, tx.TenantID, warehouseID)
	if err != nil {
		return fmt.Errorf("get warehouse: %w", err)
	}
	if wh == nil {
		return fmt.Errorf("warehouse %s: %w", warehouseID, domain.ErrNotFound)
	}
	return nil
}

// locationInWarehouse exige que la ubicación exista en el tenant y pertenezca a la bodega.
func locationInWarehouse(ctx context.Context, tx *Tx, locationID, warehouseID string) (*entity.Location, error) {
	loc, err := tx.Warehouses.GetLocation(ctx, tx.TenantID, locationID)
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	if loc == nil {
		return nil, fmt.Errorf("location %s: %w", locationID, domain.ErrNotFound)
	}
	if loc.WarehouseID != warehouseID {
		return nil, &domain.ScopeMismatchError{Scope: "warehouse", Expected: warehouseID, Actual: loc.WarehouseID}
	}
	return loc, nil
}
