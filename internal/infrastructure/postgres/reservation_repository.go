package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo reservas y backorders sobre PostgreSQL.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

const reservationColumns = `id, tenant_id, warehouse_id, item_id, location_id, uom, demand_type, demand_id,
	quantity_reserved, quantity_fulfilled, status, cancel_reason, created_at, updated_at`

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var res entity.Reservation
	if err := row.Scan(&res.ID, &res.TenantID, &res.WarehouseID, &res.ItemID, &res.LocationID, &res.UOM,
		&res.DemandType, &res.DemandID, &res.QuantityReserved, &res.QuantityFulfilled,
		&res.Status, &res.CancelReason, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, err
	}
	return &res, nil
}

// Create persiste una reserva.
func (r *ReservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		res.ID, res.TenantID, res.WarehouseID, res.ItemID, res.LocationID, res.UOM, res.DemandType, res.DemandID,
		res.QuantityReserved, res.QuantityFulfilled, res.Status, res.CancelReason, res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return mapError("create reservation", err)
	}
	return nil
}

func (r *ReservationRepo) get(ctx context.Context, query, tenantID, id string) (*entity.Reservation, error) {
	res, err := scanReservation(r.q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get reservation", err)
	}
	return res, nil
}

// GetByID obtiene una reserva del tenant o nil.
func (r *ReservationRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 AND tenant_id = $2`, tenantID, id)
}

// GetForUpdate obtiene y bloquea la fila de la reserva.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, tenantID, id)
}

// Update persiste estado y cantidades de la reserva.
func (r *ReservationRepo) Update(ctx context.Context, res *entity.Reservation) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE reservations SET quantity_fulfilled = $3, status = $4, cancel_reason = $5, updated_at = $6
		WHERE id = $1 AND tenant_id = $2`,
		res.ID, res.TenantID, res.QuantityFulfilled, res.Status, res.CancelReason, res.UpdatedAt)
	if err != nil {
		return mapError("update reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s: %w", res.ID, domain.ErrNotFound)
	}
	return nil
}

// CreateBackorder registra el faltante de una reserva parcial.
func (r *ReservationRepo) CreateBackorder(ctx context.Context, b *entity.Backorder) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO backorders (id, tenant_id, warehouse_id, item_id, location_id, uom, demand_type, demand_id,
			quantity, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.TenantID, b.WarehouseID, b.ItemID, b.LocationID, b.UOM, b.DemandType, b.DemandID,
		b.Quantity, b.Status, b.CreatedAt)
	if err != nil {
		return mapError("create backorder", err)
	}
	return nil
}

// GetBackorder obtiene un backorder del tenant o nil.
func (r *ReservationRepo) GetBackorder(ctx context.Context, tenantID, id string) (*entity.Backorder, error) {
	var b entity.Backorder
	err := r.q.QueryRow(ctx, `
		SELECT id, tenant_id, warehouse_id, item_id, location_id, uom, demand_type, demand_id, quantity, status, created_at
		FROM backorders WHERE id = $1 AND tenant_id = $2`, id, tenantID).Scan(
		&b.ID, &b.TenantID, &b.WarehouseID, &b.ItemID, &b.LocationID, &b.UOM, &b.DemandType, &b.DemandID,
		&b.Quantity, &b.Status, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get backorder", err)
	}
	return &b, nil
}

// OpenTotals cantidades abiertas (reservada − cumplida) por llave, separadas por estado.
func (r *ReservationRepo) OpenTotals(ctx context.Context, tenantID string) ([]repository.OpenCommitment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT item_id, location_id, uom,
			COALESCE(SUM(quantity_reserved - quantity_fulfilled) FILTER (WHERE status = 'RESERVED'), 0),
			COALESCE(SUM(quantity_reserved - quantity_fulfilled) FILTER (WHERE status = 'ALLOCATED'), 0)
		FROM reservations
		WHERE tenant_id = $1 AND status IN ('RESERVED', 'ALLOCATED')
		GROUP BY item_id, location_id, uom
		ORDER BY item_id, location_id, uom`, tenantID)
	if err != nil {
		return nil, mapError("open reservation totals", err)
	}
	defer rows.Close()
	var out []repository.OpenCommitment
	for rows.Next() {
		c := repository.OpenCommitment{Key: entity.BalanceKey{TenantID: tenantID}}
		if err := rows.Scan(&c.Key.ItemID, &c.Key.LocationID, &c.Key.UOM, &c.Reserved, &c.Allocated); err != nil {
			return nil, fmt.Errorf("scan open totals: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
