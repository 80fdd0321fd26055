package repository

import (
	"context"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// OpenCommitment suma de cantidades abiertas por estado para una llave de saldo.
type OpenCommitment struct {
	Key       entity.BalanceKey
	Reserved  decimal.Decimal
	Allocated decimal.Decimal
}

// ReservationRepository define el puerto de persistencia de reservas y backorders.
type ReservationRepository interface {
	Create(ctx context.Context, r *entity.Reservation) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Reservation, error)
	// GetForUpdate bloquea la fila de la reserva.
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Reservation, error)
	Update(ctx context.Context, r *entity.Reservation) error
	CreateBackorder(ctx context.Context, b *entity.Backorder) error
	GetBackorder(ctx context.Context, tenantID, id string) (*entity.Backorder, error)
	// OpenTotals cantidades abiertas de reservas RESERVED y ALLOCATED por llave.
	OpenTotals(ctx context.Context, tenantID string) ([]OpenCommitment, error)
}
