package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CostLayerRepository define el puerto de persistencia de capas FIFO, consumos y vínculos de traslado.
type CostLayerRepository interface {
	// Insert crea la capa; si ya existe una capa activa para (tenant, source_type, source_id)
	// devuelve la existente con created=false.
	Insert(ctx context.Context, layer *entity.CostLayer) (stored *entity.CostLayer, created bool, err error)
	GetByID(ctx context.Context, tenantID, id string) (*entity.CostLayer, error)
	// ListOpenForUpdate capas con remanente, no anuladas, por secuencia ascendente (FIFO), bloqueadas.
	ListOpenForUpdate(ctx context.Context, key entity.BalanceKey) ([]*entity.CostLayer, error)
	// ListByMovementForUpdate capas creadas por un movimiento, bloqueadas.
	ListByMovementForUpdate(ctx context.Context, tenantID, movementID string) ([]*entity.CostLayer, error)
	// ApplyConsumption decrementa el remanente (compare-and-decrement) y registra el consumo.
	ApplyConsumption(ctx context.Context, layer *entity.CostLayer, consumption entity.CostLayerConsumption) error
	// Void anula la capa solo si sigue intacta; si ya fue consumida devuelve ErrLayerConsumed.
	Void(ctx context.Context, layer *entity.CostLayer) error
	ListConsumptionsByMovement(ctx context.Context, tenantID, movementID string) ([]entity.CostLayerConsumption, error)
	InsertTransferLink(ctx context.Context, link entity.CostLayerTransferLink) error
	ListTransferLinksByMovement(ctx context.Context, tenantID, movementID string) ([]entity.CostLayerTransferLink, error)
	// Valuation cantidad remanente y valor Σ remaining × unit_cost de las capas activas.
	Valuation(ctx context.Context, key entity.BalanceKey) (quantity, value decimal.Decimal, err error)
	// ExpiredQuantity remanente de las capas activas de la llave cuyo lote está vencido a asOf.
	ExpiredQuantity(ctx context.Context, key entity.BalanceKey, asOf time.Time) (decimal.Decimal, error)
	// NextLotExpiry vencimiento más próximo posterior a asOf entre los lotes con remanente activo; nil si no hay.
	NextLotExpiry(ctx context.Context, key entity.BalanceKey, asOf time.Time) (*time.Time, error)
}
