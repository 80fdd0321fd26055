package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// TransferInput entrada de transfer. Las bodegas se derivan de las ubicaciones.
type TransferInput struct {
	TenantID         string          `json:"-"`
	Actor            string          `json:"-"`
	IdempotencyKey   string          `json:"-"`
	SourceLocationID string          `json:"source_location_id"`
	DestLocationID   string          `json:"dest_location_id"`
	ItemID           string          `json:"item_id"`
	UOM              string          `json:"uom"`
	LotID            string          `json:"lot_id,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
}

// TransferResult traslado contabilizado con sus vínculos de capas.
type TransferResult struct {
	MovementID string
	Value      decimal.Decimal
	Links      []entity.CostLayerTransferLink
	Replayed   bool
}

// TransferUseCase traslados entre ubicaciones con partición de capas al mismo costo.
type TransferUseCase struct {
	exec *Executor
}

// NewTransferUseCase construye el caso de uso.
func NewTransferUseCase(exec *Executor) *TransferUseCase {
	return &TransferUseCase{exec: exec}
}

// Transfer contabiliza el traslado bajo la familia transfer-post.
func (uc *TransferUseCase) Transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if in.SourceLocationID == "" || in.DestLocationID == "" {
		return nil, domain.Invalid("location_id", "origen y destino son requeridos")
	}
	if in.SourceLocationID == in.DestLocationID {
		return nil, domain.Invalid("dest_location_id", "debe ser distinta del origen")
	}
	if !in.Quantity.IsPositive() {
		return nil, domain.Invalid("quantity", "debe ser mayor que cero")
	}
	out := &TransferResult{}
	res, err := uc.exec.Execute(ctx, in.TenantID, entity.FamilyTransferPost, in.IdempotencyKey, in, func(ctx context.Context, tx *Tx) ([]string, error) {
		m := &entity.Movement{
			Type:           entity.MovementTypeTransfer,
			IdempotencyKey: in.IdempotencyKey,
			SourceType:     "transfer",
			Actor:          in.Actor,
			Lines: []entity.MovementLine{
				{LineNumber: 1, ItemID: in.ItemID, LocationID: in.SourceLocationID, UOM: in.UOM, LotID: in.LotID, QuantityDelta: in.Quantity.Neg()},
				{LineNumber: 2, ItemID: in.ItemID, LocationID: in.DestLocationID, UOM: in.UOM, LotID: in.LotID, QuantityDelta: in.Quantity},
			},
		}
		pr, err := postMovement(ctx, tx, m, PostOptions{
			Inbound: func(l *entity.MovementLine, consumed decimal.Decimal) (*LayerSpec, error) {
				unit := consumed.DivRound(l.QuantityDelta, unitCostPlaces)
				ext := consumed
				l.UnitCost, l.ExtendedCost = &unit, &ext
				return nil, nil
			},
		})
		if err != nil {
			return nil, err
		}
		src, dst := &m.Lines[0], &m.Lines[1]
		links, err := splitTransfer(ctx, tx, m.ID, dst, pr.Consumed[src.ID])
		if err != nil {
			return nil, err
		}
		out.MovementID = m.ID
		out.Value = pr.ConsumedValue
		out.Links = links
		return []string{m.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return uc.Get(ctx, in.TenantID, res.IDs[0], true)
	}
	return out, nil
}

// Get reconstruye el resultado de un traslado contabilizado.
func (uc *TransferUseCase) Get(ctx context.Context, tenantID, movementID string, replayed bool) (*TransferResult, error) {
	out := &TransferResult{MovementID: movementID, Replayed: replayed}
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		m, err := tx.Movements.GetByID(ctx, tenantID, movementID)
		if err != nil {
			return fmt.Errorf("get movement: %w", err)
		}
		if m == nil || m.Type != entity.MovementTypeTransfer {
			return fmt.Errorf("transfer %s: %w", movementID, domain.ErrNotFound)
		}
		links, err := tx.Layers.ListTransferLinksByMovement(ctx, tenantID, movementID)
		if err != nil {
			return fmt.Errorf("list transfer links: %w", err)
		}
		out.Links = links
		out.Value = decimal.Zero
		for _, l := range links {
			out.Value = out.Value.Add(l.Quantity.Mul(l.UnitCost))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VoidTransfer anula el traslado: recrea las capas de origen al costo original y anula las de
// destino. Falla con ErrLayerConsumed si alguna capa de destino ya fue consumida. Con key, un
// reintento devuelve la misma reversión.
func (uc *TransferUseCase) VoidTransfer(ctx context.Context, tenantID, movementID, reason, actor, key string) (*entity.Movement, error) {
	var rev *entity.Movement
	payload := voidPayload{ID: movementID, Reason: reason}
	res, err := uc.exec.ExecuteOptional(ctx, tenantID, entity.FamilyTransferVoid, key, payload, func(ctx context.Context, tx *Tx) ([]string, error) {
		m, err := tx.Movements.GetByID(ctx, tenantID, movementID)
		if err != nil {
			return nil, fmt.Errorf("get movement: %w", err)
		}
		if m == nil || m.Type != entity.MovementTypeTransfer {
			return nil, fmt.Errorf("transfer %s: %w", movementID, domain.ErrNotFound)
		}
		if rev, err = voidMovement(ctx, tx, movementID, reason, actor); err != nil {
			return nil, err
		}
		return []string{rev.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return getMovement(ctx, uc.exec, tenantID, res.IDs[0])
	}
	return rev, nil
}
