package repository

import (
	"context"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

// ItemRepository define el puerto de persistencia para ítems, conversiones de unidad y lotes.
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Item, error)
	SaveConversion(ctx context.Context, conv *entity.UOMConversion) error
	GetConversion(ctx context.Context, tenantID, itemID, uom string) (*entity.UOMConversion, error)
	CreateLot(ctx context.Context, lot *entity.Lot) error
	GetLot(ctx context.Context, tenantID, id string) (*entity.Lot, error)
}
