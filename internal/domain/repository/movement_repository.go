package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// LedgerTotal suma de líneas del ledger para una llave de saldo.
type LedgerTotal struct {
	Key      entity.BalanceKey
	Quantity decimal.Decimal
}

// MovementRepository define el puerto de persistencia del ledger de movimientos (append-only).
type MovementRepository interface {
	// Create persiste el movimiento con sus líneas; asigna IDs faltantes.
	Create(ctx context.Context, movement *entity.Movement) error
	// GetByID devuelve el movimiento con sus líneas o nil si no existe en el tenant.
	GetByID(ctx context.Context, tenantID, id string) (*entity.Movement, error)
	// MarkPosted DRAFT → POSTED; persiste PostedAt y los costos calculados de las líneas.
	MarkPosted(ctx context.Context, movement *entity.Movement) error
	// MarkVoided POSTED → VOIDED; falla con ErrMovementNotPosted si no estaba contabilizado.
	MarkVoided(ctx context.Context, tenantID, id string, at time.Time) error
	// DeleteDraft elimina un borrador y sus líneas en cascada.
	DeleteDraft(ctx context.Context, tenantID, id string) error
	// LedgerTotals suma de quantity_delta de movimientos no borrador por ítem-ubicación-unidad.
	LedgerTotals(ctx context.Context, tenantID string) ([]LedgerTotal, error)
}
