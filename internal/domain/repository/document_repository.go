package repository

import (
	"context"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

// ReceiptRepository puerto de recepciones de compra.
type ReceiptRepository interface {
	Create(ctx context.Context, r *entity.Receipt) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Receipt, error)
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Receipt, error)
	Update(ctx context.Context, r *entity.Receipt) error
}

// CycleCountRepository puerto de conteos cíclicos.
type CycleCountRepository interface {
	Create(ctx context.Context, c *entity.CycleCount) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.CycleCount, error)
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.CycleCount, error)
	Update(ctx context.Context, c *entity.CycleCount) error
}

// WorkOrderRepository puerto de órdenes de trabajo y sus ejecuciones.
type WorkOrderRepository interface {
	Create(ctx context.Context, wo *entity.WorkOrder) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.WorkOrder, error)
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.WorkOrder, error)
	Update(ctx context.Context, wo *entity.WorkOrder) error
	CreateExecution(ctx context.Context, ex *entity.WorkOrderExecution) error
	GetExecution(ctx context.Context, tenantID, id string) (*entity.WorkOrderExecution, error)
	GetExecutionByMovement(ctx context.Context, tenantID, movementID string) (*entity.WorkOrderExecution, error)
}
