package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// WorkOrderInput orden de trabajo (frontera con el núcleo).
type WorkOrderInput struct {
	TenantID        string          `json:"-"`
	WarehouseID     string          `json:"warehouse_id"`
	OutputItemID    string          `json:"output_item_id"`
	QuantityPlanned decimal.Decimal `json:"quantity_planned"`
}

// BatchConsumeLine componente consumido por el lote.
type BatchConsumeLine struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	UOM        string          `json:"uom"`
	LotID      string          `json:"lot_id,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// BatchProduceLine salida del lote; Scrap marca desperdicio valorado explícitamente.
type BatchProduceLine struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	UOM        string          `json:"uom"`
	LotID      string          `json:"lot_id,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	Scrap      bool            `json:"scrap,omitempty"`
}

// WorkOrderBatchInput entrada de postWorkOrderBatch.
type WorkOrderBatchInput struct {
	TenantID       string             `json:"-"`
	Actor          string             `json:"-"`
	IdempotencyKey string             `json:"-"`
	WorkOrderID    string             `json:"work_order_id"`
	Consume        []BatchConsumeLine `json:"consume"`
	Produce        []BatchProduceLine `json:"produce"`
}

// WorkOrderUseCase ejecución de lotes de producción con conservación de valor.
type WorkOrderUseCase struct {
	exec *Executor
}

// NewWorkOrderUseCase construye el caso de uso.
func NewWorkOrderUseCase(exec *Executor) *WorkOrderUseCase {
	return &WorkOrderUseCase{exec: exec}
}

// CreateWorkOrder registra una orden abierta.
func (uc *WorkOrderUseCase) CreateWorkOrder(ctx context.Context, in WorkOrderInput) (*entity.WorkOrder, error) {
	if in.WarehouseID == "" || in.OutputItemID == "" {
		return nil, domain.Invalid("work_order", "bodega e ítem de salida son requeridos")
	}
	if !in.QuantityPlanned.IsPositive() {
		return nil, domain.Invalid("quantity_planned", "debe ser mayor que cero")
	}
	var wo *entity.WorkOrder
	err := uc.exec.InTx(ctx, in.TenantID, func(ctx context.Context, tx *Tx) error {
		if err := requireWarehouse(ctx, tx, in.WarehouseID); err != nil {
			return err
		}
		item, err := tx.Items.GetByID(ctx, tx.TenantID, in.OutputItemID)
		if err != nil {
			return fmt.Errorf("get item: %w", err)
		}
		if item == nil {
			return fmt.Errorf("item %s: %w", in.OutputItemID, domain.ErrNotFound)
		}
		wo = &entity.WorkOrder{
			ID:                uuid.NewString(),
			TenantID:          tx.TenantID,
			WarehouseID:       in.WarehouseID,
			OutputItemID:      in.OutputItemID,
			Status:            entity.WorkOrderStatusOpen,
			QuantityPlanned:   in.QuantityPlanned,
			QuantityCompleted: decimal.Zero,
			CreatedAt:         tx.Now,
			UpdatedAt:         tx.Now,
		}
		if err := tx.WorkOrders.Create(ctx, wo); err != nil {
			return fmt.Errorf("create work order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wo, nil
}

func (in WorkOrderBatchInput) validate() error {
	if in.WorkOrderID == "" {
		return domain.Invalid("work_order_id", "requerido")
	}
	if len(in.Consume) == 0 {
		return domain.Invalid("consume", "se requiere al menos un componente")
	}
	if len(in.Produce) == 0 {
		return domain.Invalid("produce", "se requiere al menos una salida")
	}
	for _, l := range in.Consume {
		if !l.Quantity.IsPositive() {
			return domain.Invalid("consume.quantity", "debe ser mayor que cero")
		}
	}
	for _, l := range in.Produce {
		if !l.Quantity.IsPositive() {
			return domain.Invalid("produce.quantity", "debe ser mayor que cero")
		}
	}
	return nil
}

// PostWorkOrderBatch contabiliza un lote bajo la familia work-order-batch: consume componentes
// FIFO y reparte su costo total entre producto terminado y desperdicio por cantidad canónica.
// Los lotes de producción no admiten reversión.
func (uc *WorkOrderUseCase) PostWorkOrderBatch(ctx context.Context, in WorkOrderBatchInput) (*entity.WorkOrderExecution, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var execution *entity.WorkOrderExecution
	res, err := uc.exec.Execute(ctx, in.TenantID, entity.FamilyWorkOrderBatch, in.IdempotencyKey, in, func(ctx context.Context, tx *Tx) ([]string, error) {
		wo, err := tx.WorkOrders.GetForUpdate(ctx, tx.TenantID, in.WorkOrderID)
		if err != nil {
			return nil, fmt.Errorf("get work order: %w", err)
		}
		if wo == nil {
			return nil, fmt.Errorf("work order %s: %w", in.WorkOrderID, domain.ErrNotFound)
		}
		if wo.Status != entity.WorkOrderStatusOpen {
			return nil, &domain.InvalidStateError{Entity: "work_order", ID: wo.ID, State: wo.Status, Action: "post batch"}
		}
		for _, l := range in.Consume {
			if _, err := locationInWarehouse(ctx, tx, l.LocationID, wo.WarehouseID); err != nil {
				return nil, err
			}
		}
		for _, l := range in.Produce {
			if _, err := locationInWarehouse(ctx, tx, l.LocationID, wo.WarehouseID); err != nil {
				return nil, err
			}
		}

		ex := &entity.WorkOrderExecution{
			ID:          uuid.NewString(),
			TenantID:    tx.TenantID,
			WorkOrderID: wo.ID,
			CreatedAt:   tx.Now,
		}
		m := &entity.Movement{
			Type:           entity.MovementTypeProduction,
			IdempotencyKey: in.IdempotencyKey,
			SourceType:     "work_order",
			SourceID:       ex.ID,
			Actor:          in.Actor,
		}
		n := 0
		for _, l := range in.Consume {
			n++
			m.Lines = append(m.Lines, entity.MovementLine{
				LineNumber: n, ItemID: l.ItemID, LocationID: l.LocationID, UOM: l.UOM, LotID: l.LotID,
				QuantityDelta: l.Quantity.Neg(), ReasonCode: "CONSUME",
			})
		}
		scrapByLine := map[int]bool{}
		for _, l := range in.Produce {
			n++
			reason := "PRODUCE"
			if l.Scrap {
				reason = "SCRAP"
			}
			scrapByLine[n] = l.Scrap
			m.Lines = append(m.Lines, entity.MovementLine{
				LineNumber: n, ItemID: l.ItemID, LocationID: l.LocationID, UOM: l.UOM, LotID: l.LotID,
				QuantityDelta: l.Quantity, ReasonCode: reason,
			})
		}

		var allocs map[int]inventory.ProductionAllocation
		pr, err := postMovement(ctx, tx, m, PostOptions{
			Inbound: func(l *entity.MovementLine, consumed decimal.Decimal) (*LayerSpec, error) {
				if allocs == nil {
					a, finished, scrap, err := allocateOutputs(m, scrapByLine, consumed)
					if err != nil {
						return nil, err
					}
					allocs = a
					ex.ComponentCost, ex.FinishedCost, ex.ScrapCost = consumed, finished, scrap
				}
				a := allocs[l.LineNumber]
				src := entity.LayerSourceProduction
				if scrapByLine[l.LineNumber] {
					src = entity.LayerSourceProductionScrap
				}
				cost := a.Cost
				return &LayerSpec{
					SourceType:   src,
					SourceID:     lineSourceID(m, l),
					UnitCost:     a.UnitCost,
					ExtendedCost: &cost,
				}, nil
			},
		})
		if err != nil {
			return nil, err
		}
		if err := inventory.CheckConservation(pr.ConsumedValue, ex.FinishedCost.Add(ex.ScrapCost)); err != nil {
			return nil, err
		}

		ex.MovementID = m.ID
		if err := tx.WorkOrders.CreateExecution(ctx, ex); err != nil {
			return nil, fmt.Errorf("create execution: %w", err)
		}
		for _, l := range m.Lines {
			if l.IsInbound() && !scrapByLine[l.LineNumber] && l.ItemID == wo.OutputItemID {
				wo.QuantityCompleted = wo.QuantityCompleted.Add(l.CanonicalDelta)
			}
		}
		wo.UpdatedAt = tx.Now
		if err := tx.WorkOrders.Update(ctx, wo); err != nil {
			return nil, fmt.Errorf("update work order: %w", err)
		}
		execution = ex
		return []string{ex.ID, m.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return uc.GetExecution(ctx, in.TenantID, res.IDs[0])
	}
	return execution, nil
}

// allocateOutputs reparte el costo consumido entre las líneas de salida en orden de línea.
func allocateOutputs(m *entity.Movement, scrapByLine map[int]bool, consumed decimal.Decimal) (map[int]inventory.ProductionAllocation, decimal.Decimal, decimal.Decimal, error) {
	var outputs []inventory.ProductionOutput
	var lines []int
	for _, l := range m.Lines {
		if !l.IsInbound() {
			continue
		}
		outputs = append(outputs, inventory.ProductionOutput{Quantity: l.CanonicalDelta, Scrap: scrapByLine[l.LineNumber]})
		lines = append(lines, l.LineNumber)
	}
	allocs, finished, scrap, err := inventory.AllocateProductionCost(consumed, outputs)
	if err != nil {
		return nil, decimal.Zero, decimal.Zero, err
	}
	out := make(map[int]inventory.ProductionAllocation, len(allocs))
	for i, a := range allocs {
		out[lines[i]] = a
	}
	return out, finished, scrap, nil
}

// GetExecution devuelve la ejecución de un lote.
func (uc *WorkOrderUseCase) GetExecution(ctx context.Context, tenantID, executionID string) (*entity.WorkOrderExecution, error) {
	var ex *entity.WorkOrderExecution
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		var err error
		if ex, err = tx.WorkOrders.GetExecution(ctx, tenantID, executionID); err != nil {
			return fmt.Errorf("get execution: %w", err)
		}
		if ex == nil {
			return fmt.Errorf("execution %s: %w", executionID, domain.ErrNotFound)
		}
		return nil
	})
	return ex, err
}

// ReverseBatch la reversión de un lote de producción no está soportada.
func (uc *WorkOrderUseCase) ReverseBatch(ctx context.Context, tenantID, executionID string) error {
	ex, err := uc.GetExecution(ctx, tenantID, executionID)
	if err != nil {
		return err
	}
	return fmt.Errorf("execution %s: %w", ex.ID, domain.ErrReversalUnsupported)
}
