package inventory

import (
	"context"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Movements    repository.MovementRepository
	Layers       repository.CostLayerRepository
	Balances     repository.BalanceRepository
	Items        repository.ItemRepository
	Warehouses   repository.WarehouseRepository
	Reservations repository.ReservationRepository
	Executions   repository.ExecutionRepository
	Receipts     repository.ReceiptRepository
	Counts       repository.CycleCountRepository
	WorkOrders   repository.WorkOrderRepository
}

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error no queda ningún efecto (Rollback). Un conflicto de serialización del
// almacén se reporta como domain.ErrSerialization para que el llamador reintente.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos Repos) error) error
}

// AvailabilityCache caché de lectura de vistas ATP. Las entradas se agrupan por (tenant, ítem)
// para invalidarlas juntas después de cada commit que toque ese ítem.
type AvailabilityCache interface {
	Get(ctx context.Context, tenantID, itemID, field string) (*entity.AvailabilityView, bool, error)
	// Version generación vigente del (tenant, ítem); Invalidate la avanza.
	Version(ctx context.Context, tenantID, itemID string) (int64, error)
	// Set guarda una vista calculada bajo version. Si la generación avanzó mientras se calculaba,
	// la vista no queda visible para Get.
	Set(ctx context.Context, tenantID, itemID, field string, version int64, view *entity.AvailabilityView) error
	Invalidate(ctx context.Context, tenantID, itemID string) error
}
