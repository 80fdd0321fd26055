package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.CostLayerRepository = (*CostLayerRepo)(nil)

// CostLayerRepo capas FIFO, consumos y vínculos de traslado sobre PostgreSQL.
type CostLayerRepo struct {
	q Querier
}

// NewCostLayerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCostLayerRepository(q Querier) *CostLayerRepo {
	return &CostLayerRepo{q: q}
}

const layerColumns = `id, tenant_id, item_id, location_id, uom, lot_id, sequence, created_at,
	original_quantity, remaining_quantity, unit_cost, extended_cost,
	source_type, source_id, movement_id, movement_line_id, notes, voided_at`

func scanLayer(row pgx.Row) (*entity.CostLayer, error) {
	var rec entity.CostLayerRecord
	var lotID, movementID, lineID *string
	if err := row.Scan(&rec.ID, &rec.TenantID, &rec.ItemID, &rec.LocationID, &rec.UOM, &lotID, &rec.Sequence, &rec.CreatedAt,
		&rec.OriginalQuantity, &rec.RemainingQuantity, &rec.UnitCost, &rec.ExtendedCost,
		&rec.SourceType, &rec.SourceID, &movementID, &lineID, &rec.Notes, &rec.VoidedAt); err != nil {
		return nil, err
	}
	rec.LotID = derefString(lotID)
	rec.MovementID = derefString(movementID)
	rec.MovementLineID = derefString(lineID)
	return entity.RestoreCostLayer(rec), nil
}

func (r *CostLayerRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.CostLayer, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	var out []*entity.CostLayer
	for rows.Next() {
		l, err := scanLayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cost layer: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return out, nil
}

// Insert crea la capa; el índice único parcial sobre el origen activo resuelve duplicados.
func (r *CostLayerRepo) Insert(ctx context.Context, layer *entity.CostLayer) (*entity.CostLayer, bool, error) {
	rec := layer.Record()
	var seq int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO cost_layers (id, tenant_id, item_id, location_id, uom, lot_id, created_at,
			original_quantity, remaining_quantity, unit_cost, extended_cost,
			source_type, source_id, movement_id, movement_line_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (tenant_id, source_type, source_id) WHERE voided_at IS NULL DO NOTHING
		RETURNING sequence`,
		rec.ID, rec.TenantID, rec.ItemID, rec.LocationID, rec.UOM, nullString(rec.LotID), rec.CreatedAt,
		rec.OriginalQuantity, rec.RemainingQuantity, rec.UnitCost, rec.ExtendedCost,
		rec.SourceType, rec.SourceID, nullString(rec.MovementID), nullString(rec.MovementLineID), rec.Notes,
	).Scan(&seq)
	if err == nil {
		rec.Sequence = seq
		return entity.RestoreCostLayer(rec), true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, mapError("insert cost layer", err)
	}
	existing, err := scanLayer(r.q.QueryRow(ctx, `SELECT `+layerColumns+` FROM cost_layers
		WHERE tenant_id = $1 AND source_type = $2 AND source_id = $3 AND voided_at IS NULL`,
		rec.TenantID, rec.SourceType, rec.SourceID))
	if err != nil {
		return nil, false, mapError("get cost layer by source", err)
	}
	return existing, false, nil
}

// GetByID obtiene una capa del tenant o nil.
func (r *CostLayerRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.CostLayer, error) {
	l, err := scanLayer(r.q.QueryRow(ctx, `SELECT `+layerColumns+` FROM cost_layers WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get cost layer", err)
	}
	return l, nil
}

// ListOpenForUpdate cola FIFO de la llave, bloqueada.
func (r *CostLayerRepo) ListOpenForUpdate(ctx context.Context, key entity.BalanceKey) ([]*entity.CostLayer, error) {
	return r.list(ctx, "list open cost layers", `SELECT `+layerColumns+` FROM cost_layers
		WHERE tenant_id = $1 AND item_id = $2 AND location_id = $3 AND uom = $4
			AND voided_at IS NULL AND remaining_quantity > 0
		ORDER BY sequence
		FOR UPDATE`, key.TenantID, key.ItemID, key.LocationID, key.UOM)
}

// ListByMovementForUpdate capas creadas por un movimiento, bloqueadas.
func (r *CostLayerRepo) ListByMovementForUpdate(ctx context.Context, tenantID, movementID string) ([]*entity.CostLayer, error) {
	return r.list(ctx, "list cost layers by movement", `SELECT `+layerColumns+` FROM cost_layers
		WHERE tenant_id = $1 AND movement_id = $2
		ORDER BY sequence
		FOR UPDATE`, tenantID, movementID)
}

// layerState estado almacenado para explicar un UPDATE condicional sin filas afectadas.
func (r *CostLayerRepo) layerState(ctx context.Context, layer *entity.CostLayer) (voided, exists bool, err error) {
	err = r.q.QueryRow(ctx, `SELECT voided_at IS NOT NULL FROM cost_layers WHERE id = $1 AND tenant_id = $2`,
		layer.ID(), layer.TenantID()).Scan(&voided)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, mapError("cost layer state", err)
	}
	return voided, true, nil
}

// ApplyConsumption decremento condicional del remanente; si otra transacción lo consumió
// antes devuelve ErrSerialization.
func (r *CostLayerRepo) ApplyConsumption(ctx context.Context, layer *entity.CostLayer, c entity.CostLayerConsumption) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE cost_layers
		SET remaining_quantity = remaining_quantity - $3, extended_cost = extended_cost - $4
		WHERE id = $1 AND tenant_id = $2 AND voided_at IS NULL AND remaining_quantity >= $3`,
		layer.ID(), layer.TenantID(), c.Quantity, c.ExtendedCost,
	)
	if err != nil {
		return mapError("consume cost layer", err)
	}
	if tag.RowsAffected() == 0 {
		voided, exists, err := r.layerState(ctx, layer)
		if err != nil {
			return err
		}
		switch {
		case !exists:
			return fmt.Errorf("layer %s: %w", layer.ID(), domain.ErrNotFound)
		case voided:
			return fmt.Errorf("layer %s: %w", layer.ID(), domain.ErrLayerVoided)
		default:
			return fmt.Errorf("layer %s: %w", layer.ID(), domain.ErrSerialization)
		}
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO cost_layer_consumptions (id, tenant_id, layer_id, movement_id, movement_line_id,
			quantity, unit_cost, extended_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.TenantID, c.LayerID, c.MovementID, nullString(c.MovementLineID),
		c.Quantity, c.UnitCost, c.ExtendedCost, c.CreatedAt,
	)
	if err != nil {
		return mapError("insert consumption", err)
	}
	return nil
}

// Void anula la capa solo si sigue intacta.
func (r *CostLayerRepo) Void(ctx context.Context, layer *entity.CostLayer) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE cost_layers SET remaining_quantity = 0, extended_cost = 0, voided_at = $3
		WHERE id = $1 AND tenant_id = $2 AND voided_at IS NULL AND remaining_quantity = original_quantity`,
		layer.ID(), layer.TenantID(), layer.VoidedAt(),
	)
	if err != nil {
		return mapError("void cost layer", err)
	}
	if tag.RowsAffected() == 0 {
		voided, exists, err := r.layerState(ctx, layer)
		if err != nil {
			return err
		}
		switch {
		case !exists:
			return fmt.Errorf("layer %s: %w", layer.ID(), domain.ErrNotFound)
		case voided:
			return fmt.Errorf("layer %s: %w", layer.ID(), domain.ErrLayerVoided)
		default:
			return fmt.Errorf("layer %s: %w", layer.ID(), domain.ErrLayerConsumed)
		}
	}
	return nil
}

// ListConsumptionsByMovement consumos de un movimiento en orden de registro.
func (r *CostLayerRepo) ListConsumptionsByMovement(ctx context.Context, tenantID, movementID string) ([]entity.CostLayerConsumption, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, tenant_id, layer_id, movement_id, movement_line_id, quantity, unit_cost, extended_cost, created_at
		FROM cost_layer_consumptions WHERE tenant_id = $1 AND movement_id = $2 ORDER BY seq`, tenantID, movementID)
	if err != nil {
		return nil, mapError("list consumptions", err)
	}
	defer rows.Close()
	var out []entity.CostLayerConsumption
	for rows.Next() {
		var c entity.CostLayerConsumption
		var lineID *string
		if err := rows.Scan(&c.ID, &c.TenantID, &c.LayerID, &c.MovementID, &lineID,
			&c.Quantity, &c.UnitCost, &c.ExtendedCost, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan consumption: %w", err)
		}
		c.MovementLineID = derefString(lineID)
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertTransferLink registra el vínculo capa origen → capa destino.
func (r *CostLayerRepo) InsertTransferLink(ctx context.Context, link entity.CostLayerTransferLink) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO cost_layer_transfer_links (id, tenant_id, movement_id, source_layer_id, dest_layer_id,
			quantity, unit_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		link.ID, link.TenantID, link.MovementID, link.SourceLayerID, link.DestLayerID,
		link.Quantity, link.UnitCost, link.CreatedAt,
	)
	if err != nil {
		return mapError("insert transfer link", err)
	}
	return nil
}

// ListTransferLinksByMovement vínculos de un traslado en orden de registro.
func (r *CostLayerRepo) ListTransferLinksByMovement(ctx context.Context, tenantID, movementID string) ([]entity.CostLayerTransferLink, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, tenant_id, movement_id, source_layer_id, dest_layer_id, quantity, unit_cost, created_at
		FROM cost_layer_transfer_links WHERE tenant_id = $1 AND movement_id = $2 ORDER BY seq`, tenantID, movementID)
	if err != nil {
		return nil, mapError("list transfer links", err)
	}
	defer rows.Close()
	var out []entity.CostLayerTransferLink
	for rows.Next() {
		var l entity.CostLayerTransferLink
		if err := rows.Scan(&l.ID, &l.TenantID, &l.MovementID, &l.SourceLayerID, &l.DestLayerID,
			&l.Quantity, &l.UnitCost, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Valuation cantidad y valor (remaining × unit_cost) de las capas activas de la llave.
func (r *CostLayerRepo) Valuation(ctx context.Context, key entity.BalanceKey) (decimal.Decimal, decimal.Decimal, error) {
	var qty, value decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(remaining_quantity), 0), COALESCE(SUM(remaining_quantity * unit_cost), 0)
		FROM cost_layers
		WHERE tenant_id = $1 AND item_id = $2 AND location_id = $3 AND uom = $4 AND voided_at IS NULL`,
		key.TenantID, key.ItemID, key.LocationID, key.UOM,
	).Scan(&qty, &value)
	if err != nil {
		return decimal.Zero, decimal.Zero, mapError("valuation", err)
	}
	return qty, value, nil
}

// ExpiredQuantity remanente activo en lotes vencidos a asOf.
func (r *CostLayerRepo) ExpiredQuantity(ctx context.Context, key entity.BalanceKey, asOf time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(c.remaining_quantity), 0)
		FROM cost_layers c
		JOIN lots lt ON lt.id = c.lot_id
		WHERE c.tenant_id = $1 AND c.item_id = $2 AND c.location_id = $3 AND c.uom = $4
			AND c.voided_at IS NULL AND c.remaining_quantity > 0
			AND lt.expires_at IS NOT NULL AND lt.expires_at <= $5`,
		key.TenantID, key.ItemID, key.LocationID, key.UOM, asOf,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, mapError("expired quantity", err)
	}
	return total, nil
}

// NextLotExpiry vencimiento más próximo de un lote con remanente activo.
func (r *CostLayerRepo) NextLotExpiry(ctx context.Context, key entity.BalanceKey, asOf time.Time) (*time.Time, error) {
	var next *time.Time
	err := r.q.QueryRow(ctx, `
		SELECT MIN(lt.expires_at)
		FROM cost_layers c
		JOIN lots lt ON lt.id = c.lot_id
		WHERE c.tenant_id = $1 AND c.item_id = $2 AND c.location_id = $3 AND c.uom = $4
			AND c.voided_at IS NULL AND c.remaining_quantity > 0
			AND lt.expires_at > $5`,
		key.TenantID, key.ItemID, key.LocationID, key.UOM, asOf,
	).Scan(&next)
	if err != nil {
		return nil, mapError("next lot expiry", err)
	}
	return next, nil
}
