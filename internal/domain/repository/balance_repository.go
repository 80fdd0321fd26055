package repository

import (
	"context"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

// BalanceRepository define el puerto para el saldo materializado por ítem-ubicación-unidad.
// Usado dentro de transacciones para garantizar consistencia con el ledger y las reservas.
type BalanceRepository interface {
	// LockForUpdate crea las filas faltantes y las bloquea en orden determinístico (SELECT FOR UPDATE).
	LockForUpdate(ctx context.Context, keys []entity.BalanceKey) (map[entity.BalanceKey]*entity.Balance, error)
	Save(ctx context.Context, balance *entity.Balance) error
	// Get devuelve el saldo (en cero si no existe fila).
	Get(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error)
	ListByLocations(ctx context.Context, tenantID, itemID, uom string, locationIDs []string) ([]*entity.Balance, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*entity.Balance, error)
	ListTenants(ctx context.Context) ([]string, error)
}
