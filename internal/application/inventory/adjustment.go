package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// AdjustmentLine línea de ajuste; Quantity con signo (positiva entra, negativa sale).
// UnitCost aplica a entradas; si falta se usa el promedio ponderado de las capas abiertas.
type AdjustmentLine struct {
	LineNumber int              `json:"line_number"`
	ItemID     string           `json:"item_id"`
	LocationID string           `json:"location_id"`
	UOM        string           `json:"uom"`
	LotID      string           `json:"lot_id,omitempty"`
	Quantity   decimal.Decimal  `json:"quantity"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
	ReasonCode string           `json:"reason_code,omitempty"`
}

// AdjustmentInput entrada de postAdjustment / SaveDraft.
type AdjustmentInput struct {
	TenantID       string           `json:"-"`
	Actor          string           `json:"-"`
	IdempotencyKey string           `json:"-"`
	Reason         string           `json:"reason"`
	Lines          []AdjustmentLine `json:"lines"`
}

// AdjustmentUseCase ajustes de inventario directos y en borrador.
type AdjustmentUseCase struct {
	exec *Executor
}

// NewAdjustmentUseCase construye el caso de uso.
func NewAdjustmentUseCase(exec *Executor) *AdjustmentUseCase {
	return &AdjustmentUseCase{exec: exec}
}

func (in AdjustmentInput) movement(status string) *entity.Movement {
	m := &entity.Movement{
		Type:           entity.MovementTypeAdjustment,
		Status:         status,
		IdempotencyKey: in.IdempotencyKey,
		SourceType:     "adjustment",
		Reason:         in.Reason,
		Actor:          in.Actor,
		Lines:          make([]entity.MovementLine, 0, len(in.Lines)),
	}
	for _, l := range in.Lines {
		m.Lines = append(m.Lines, entity.MovementLine{
			LineNumber:    l.LineNumber,
			ItemID:        l.ItemID,
			LocationID:    l.LocationID,
			UOM:           l.UOM,
			LotID:         l.LotID,
			QuantityDelta: l.Quantity,
			UnitCost:      l.UnitCost,
			ReasonCode:    l.ReasonCode,
		})
	}
	return m
}

func validateAdjustmentCosts(lines []AdjustmentLine) error {
	for _, l := range lines {
		if l.UnitCost != nil && l.UnitCost.IsNegative() {
			return domain.Invalid("lines.unit_cost", "no puede ser negativo")
		}
	}
	return nil
}

// PostAdjustment contabiliza un ajuste directo bajo la familia adjustment-post.
func (uc *AdjustmentUseCase) PostAdjustment(ctx context.Context, in AdjustmentInput) (*entity.Movement, error) {
	if err := validateAdjustmentCosts(in.Lines); err != nil {
		return nil, err
	}
	var posted *entity.Movement
	res, err := uc.exec.Execute(ctx, in.TenantID, entity.FamilyAdjustmentPost, in.IdempotencyKey, in, func(ctx context.Context, tx *Tx) ([]string, error) {
		m := in.movement(entity.MovementStatusDraft)
		if _, err := postMovement(ctx, tx, m, PostOptions{}); err != nil {
			return nil, err
		}
		posted = m
		return []string{m.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return uc.Get(ctx, in.TenantID, res.IDs[0])
	}
	return posted, nil
}

// SaveDraft guarda un ajuste en borrador: valida las líneas pero no afecta saldos ni capas.
func (uc *AdjustmentUseCase) SaveDraft(ctx context.Context, in AdjustmentInput) (*entity.Movement, error) {
	if err := validateAdjustmentCosts(in.Lines); err != nil {
		return nil, err
	}
	m := in.movement(entity.MovementStatusDraft)
	err := uc.exec.InTx(ctx, in.TenantID, func(ctx context.Context, tx *Tx) error {
		m.ID = ""
		prepareMovement(tx, m)
		if _, err := resolveLines(ctx, tx, m); err != nil {
			return err
		}
		if err := tx.Movements.Create(ctx, m); err != nil {
			return fmt.Errorf("create draft: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// PostDraft contabiliza un borrador existente bajo la familia adjustment-draft-post.
func (uc *AdjustmentUseCase) PostDraft(ctx context.Context, tenantID, movementID, key string) (*entity.Movement, error) {
	payload := map[string]string{"movement_id": movementID}
	res, err := uc.exec.Execute(ctx, tenantID, entity.FamilyAdjustmentDraft, key, payload, func(ctx context.Context, tx *Tx) ([]string, error) {
		m, err := loadDraft(ctx, tx, movementID)
		if err != nil {
			return nil, err
		}
		m.IdempotencyKey = key
		if _, err := postMovement(ctx, tx, m, PostOptions{FromDraft: true}); err != nil {
			return nil, err
		}
		return []string{m.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	return uc.Get(ctx, tenantID, res.IDs[0])
}

// Cancel elimina un borrador y sus líneas. Un ajuste contabilizado se corrige con Void.
func (uc *AdjustmentUseCase) Cancel(ctx context.Context, tenantID, movementID string) error {
	return uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		if _, err := loadDraft(ctx, tx, movementID); err != nil {
			return err
		}
		if err := tx.Movements.DeleteDraft(ctx, tenantID, movementID); err != nil {
			return fmt.Errorf("delete draft: %w", err)
		}
		return nil
	})
}

// Void anula un ajuste contabilizado con una reversión exacta. Con key, un reintento devuelve
// la misma reversión.
func (uc *AdjustmentUseCase) Void(ctx context.Context, tenantID, movementID, reason, actor, key string) (*entity.Movement, error) {
	var rev *entity.Movement
	payload := voidPayload{ID: movementID, Reason: reason}
	res, err := uc.exec.ExecuteOptional(ctx, tenantID, entity.FamilyAdjustmentVoid, key, payload, func(ctx context.Context, tx *Tx) ([]string, error) {
		m, err := tx.Movements.GetByID(ctx, tenantID, movementID)
		if err != nil {
			return nil, fmt.Errorf("get movement: %w", err)
		}
		if m == nil {
			return nil, fmt.Errorf("movement %s: %w", movementID, domain.ErrNotFound)
		}
		if m.Type != entity.MovementTypeAdjustment {
			return nil, &domain.InvalidStateError{Entity: "movement", ID: m.ID, State: m.Type, Action: "void adjustment"}
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

// Get devuelve un movimiento del tenant.
func (uc *AdjustmentUseCase) Get(ctx context.Context, tenantID, movementID string) (*entity.Movement, error) {
	return getMovement(ctx, uc.exec, tenantID, movementID)
}

// voidPayload identidad de una anulación para el hash de idempotencia.
type voidPayload struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func getMovement(ctx context.Context, exec *Executor, tenantID, movementID string) (*entity.Movement, error) {
	var m *entity.Movement
	err := exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		var err error
		if m, err = tx.Movements.GetByID(ctx, tenantID, movementID); err != nil {
			return fmt.Errorf("get movement: %w", err)
		}
		if m == nil {
			return fmt.Errorf("movement %s: %w", movementID, domain.ErrNotFound)
		}
		return nil
	})
	return m, err
}

func loadDraft(ctx context.Context, tx *Tx, movementID string) (*entity.Movement, error) {
	m, err := tx.Movements.GetByID(ctx, tx.TenantID, movementID)
	if err != nil {
		return nil, fmt.Errorf("get movement: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("movement %s: %w", movementID, domain.ErrNotFound)
	}
	if m.Status != entity.MovementStatusDraft {
		return nil, fmt.Errorf("movement %s (%s): %w", m.ID, m.Status, domain.ErrMovementNotDraft)
	}
	return m, nil
}
