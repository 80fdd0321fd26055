package repository

import (
	"context"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

// WarehouseRepository define el puerto de persistencia para bodegas y sus ubicaciones (DIP).
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *entity.Warehouse) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Warehouse, error)
	CreateLocation(ctx context.Context, location *entity.Location) error
	GetLocation(ctx context.Context, tenantID, id string) (*entity.Location, error)
	ListLocations(ctx context.Context, tenantID, warehouseID string) ([]*entity.Location, error)
}
