package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ReceiptLineInput línea recibida.
type ReceiptLineInput struct {
	LineNumber int             `json:"line_number"`
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	UOM        string          `json:"uom"`
	LotID      string          `json:"lot_id,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
}

// ReceiptInput entrada de postReceipt.
type ReceiptInput struct {
	TenantID        string             `json:"-"`
	Actor           string             `json:"-"`
	IdempotencyKey  string             `json:"-"`
	PurchaseOrderID string             `json:"purchase_order_id"`
	Lines           []ReceiptLineInput `json:"lines"`
}

// ReceiptUseCase recepciones de compra: crean movimiento RECEIVE y una capa por línea.
type ReceiptUseCase struct {
	exec *Executor
}

// NewReceiptUseCase construye el caso de uso.
func NewReceiptUseCase(exec *Executor) *ReceiptUseCase {
	return &ReceiptUseCase{exec: exec}
}

func (in ReceiptInput) validate() error {
	if in.PurchaseOrderID == "" {
		return domain.Invalid("purchase_order_id", "requerido")
	}
	if len(in.Lines) == 0 {
		return domain.Invalid("lines", "se requiere al menos una línea")
	}
	for _, l := range in.Lines {
		if !l.Quantity.IsPositive() {
			return domain.Invalid("lines.quantity", "debe ser mayor que cero")
		}
		if l.UnitCost.IsNegative() {
			return domain.Invalid("lines.unit_cost", "no puede ser negativo")
		}
	}
	return nil
}

// PostReceipt contabiliza la recepción bajo la familia receipt-post.
func (uc *ReceiptUseCase) PostReceipt(ctx context.Context, in ReceiptInput) (*entity.Receipt, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var receipt *entity.Receipt
	res, err := uc.exec.Execute(ctx, in.TenantID, entity.FamilyReceiptPost, in.IdempotencyKey, in, func(ctx context.Context, tx *Tx) ([]string, error) {
		r := &entity.Receipt{
			ID:              uuid.NewString(),
			TenantID:        tx.TenantID,
			PurchaseOrderID: in.PurchaseOrderID,
			Status:          entity.DocumentStatusPosted,
			CreatedAt:       tx.Now,
		}
		m := &entity.Movement{
			Type:           entity.MovementTypeReceive,
			IdempotencyKey: in.IdempotencyKey,
			SourceType:     "receipt",
			SourceID:       r.ID,
			Actor:          in.Actor,
		}
		for i, l := range in.Lines {
			cost := l.UnitCost
			ln := l.LineNumber
			if ln == 0 {
				ln = i + 1
			}
			m.Lines = append(m.Lines, entity.MovementLine{
				LineNumber:    ln,
				ItemID:        l.ItemID,
				LocationID:    l.LocationID,
				UOM:           l.UOM,
				LotID:         l.LotID,
				QuantityDelta: l.Quantity,
				UnitCost:      &cost,
			})
			r.Lines = append(r.Lines, entity.ReceiptLine{
				LineNumber: ln,
				ItemID:     l.ItemID,
				LocationID: l.LocationID,
				UOM:        l.UOM,
				LotID:      l.LotID,
				Quantity:   l.Quantity,
				UnitCost:   l.UnitCost,
			})
		}
		if _, err := postMovement(ctx, tx, m, PostOptions{}); err != nil {
			return nil, err
		}
		r.MovementID = m.ID
		if err := tx.Receipts.Create(ctx, r); err != nil {
			return nil, fmt.Errorf("create receipt: %w", err)
		}
		receipt = r
		return []string{r.ID, m.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return uc.Get(ctx, in.TenantID, res.IDs[0])
	}
	return receipt, nil
}

// VoidReceipt anula la recepción: reversión exacta del movimiento y anulación de sus capas.
// Falla con ErrLayerConsumed si alguna capa ya fue consumida. Con key, un reintento devuelve
// la recepción ya anulada.
func (uc *ReceiptUseCase) VoidReceipt(ctx context.Context, tenantID, receiptID, reason, actor, key string) (*entity.Receipt, error) {
	var receipt *entity.Receipt
	payload := voidPayload{ID: receiptID, Reason: reason}
	res, err := uc.exec.ExecuteOptional(ctx, tenantID, entity.FamilyReceiptVoid, key, payload, func(ctx context.Context, tx *Tx) ([]string, error) {
		r, err := tx.Receipts.GetForUpdate(ctx, tenantID, receiptID)
		if err != nil {
			return nil, fmt.Errorf("get receipt: %w", err)
		}
		if r == nil {
			return nil, fmt.Errorf("receipt %s: %w", receiptID, domain.ErrNotFound)
		}
		if r.Status != entity.DocumentStatusPosted {
			return nil, &domain.InvalidStateError{Entity: "receipt", ID: r.ID, State: r.Status, Action: "void"}
		}
		rev, err := voidMovement(ctx, tx, r.MovementID, reason, actor)
		if err != nil {
			return nil, err
		}
		r.Status = entity.DocumentStatusVoided
		r.ReversalID = rev.ID
		r.VoidReason = reason
		if err := tx.Receipts.Update(ctx, r); err != nil {
			return nil, fmt.Errorf("update receipt: %w", err)
		}
		receipt = r
		return []string{r.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return uc.Get(ctx, tenantID, res.IDs[0])
	}
	return receipt, nil
}

// Get devuelve la recepción del tenant.
func (uc *ReceiptUseCase) Get(ctx context.Context, tenantID, receiptID string) (*entity.Receipt, error) {
	var r *entity.Receipt
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		var err error
		if r, err = tx.Receipts.GetByID(ctx, tenantID, receiptID); err != nil {
			return fmt.Errorf("get receipt: %w", err)
		}
		if r == nil {
			return fmt.Errorf("receipt %s: %w", receiptID, domain.ErrNotFound)
		}
		return nil
	})
	return r, err
}
