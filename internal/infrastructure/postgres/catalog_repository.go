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

var (
	_ repository.ItemRepository      = (*ItemRepo)(nil)
	_ repository.WarehouseRepository = (*WarehouseRepo)(nil)
)

// ItemRepo ítems, conversiones de unidad y lotes sobre PostgreSQL.
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

// Create persiste un ítem; un SKU repetido en el tenant es ErrConflict.
func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO items (id, tenant_id, sku, name, base_uom, lot_tracked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.TenantID, item.SKU, item.Name, item.BaseUOM, item.LotTracked, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("item sku %s: %w", item.SKU, domain.ErrConflict)
		}
		return mapError("create item", err)
	}
	return nil
}

// GetByID obtiene un ítem del tenant o nil.
func (r *ItemRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Item, error) {
	var it entity.Item
	err := r.q.QueryRow(ctx, `
		SELECT id, tenant_id, sku, name, base_uom, lot_tracked, created_at, updated_at
		FROM items WHERE id = $1 AND tenant_id = $2`, id, tenantID).Scan(
		&it.ID, &it.TenantID, &it.SKU, &it.Name, &it.BaseUOM, &it.LotTracked, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get item", err)
	}
	return &it, nil
}

// SaveConversion crea o reemplaza el factor de una unidad alterna.
func (r *ItemRepo) SaveConversion(ctx context.Context, conv *entity.UOMConversion) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO uom_conversions (tenant_id, item_id, uom, factor)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, item_id, uom) DO UPDATE SET factor = EXCLUDED.factor`,
		conv.TenantID, conv.ItemID, conv.UOM, conv.Factor)
	if err != nil {
		return mapError("save conversion", err)
	}
	return nil
}

// GetConversion factor de la unidad o nil.
func (r *ItemRepo) GetConversion(ctx context.Context, tenantID, itemID, uom string) (*entity.UOMConversion, error) {
	c := entity.UOMConversion{TenantID: tenantID, ItemID: itemID, UOM: uom}
	err := r.q.QueryRow(ctx, `
		SELECT factor FROM uom_conversions WHERE tenant_id = $1 AND item_id = $2 AND uom = $3`,
		tenantID, itemID, uom).Scan(&c.Factor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get conversion", err)
	}
	return &c, nil
}

// CreateLot persiste un lote; código repetido para el ítem es ErrConflict.
func (r *ItemRepo) CreateLot(ctx context.Context, lot *entity.Lot) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO lots (id, tenant_id, item_id, code, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		lot.ID, lot.TenantID, lot.ItemID, lot.Code, lot.ExpiresAt, lot.CreatedAt)
	if err != nil {
		return mapError("create lot", err)
	}
	return nil
}

// GetLot obtiene un lote del tenant o nil.
func (r *ItemRepo) GetLot(ctx context.Context, tenantID, id string) (*entity.Lot, error) {
	var l entity.Lot
	err := r.q.QueryRow(ctx, `
		SELECT id, tenant_id, item_id, code, expires_at, created_at
		FROM lots WHERE id = $1 AND tenant_id = $2`, id, tenantID).Scan(
		&l.ID, &l.TenantID, &l.ItemID, &l.Code, &l.ExpiresAt, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get lot", err)
	}
	return &l, nil
}

// WarehouseRepo bodegas y ubicaciones sobre PostgreSQL.
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador. Pasar pool o tx (Querier).
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

// Create persiste una bodega.
func (r *WarehouseRepo) Create(ctx context.Context, wh *entity.Warehouse) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO warehouses (id, tenant_id, name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		wh.ID, wh.TenantID, wh.Name, wh.Address, wh.CreatedAt, wh.UpdatedAt)
	if err != nil {
		return mapError("create warehouse", err)
	}
	return nil
}

// GetByID obtiene una bodega del tenant o nil.
func (r *WarehouseRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Warehouse, error) {
	var w entity.Warehouse
	err := r.q.QueryRow(ctx, `
		SELECT id, tenant_id, name, address, created_at, updated_at
		FROM warehouses WHERE id = $1 AND tenant_id = $2`, id, tenantID).Scan(
		&w.ID, &w.TenantID, &w.Name, &w.Address, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get warehouse", err)
	}
	return &w, nil
}

// CreateLocation persiste una ubicación; código repetido en la bodega es ErrConflict.
func (r *WarehouseRepo) CreateLocation(ctx context.Context, loc *entity.Location) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO locations (id, tenant_id, warehouse_id, code, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		loc.ID, loc.TenantID, loc.WarehouseID, loc.Code, loc.Role, loc.CreatedAt)
	if err != nil {
		return mapError("create location", err)
	}
	return nil
}

// GetLocation obtiene una ubicación del tenant o nil.
func (r *WarehouseRepo) GetLocation(ctx context.Context, tenantID, id string) (*entity.Location, error) {
	var l entity.Location
	err := r.q.QueryRow(ctx, `
		SELECT id, tenant_id, warehouse_id, code, role, created_at
		FROM locations WHERE id = $1 AND tenant_id = $2`, id, tenantID).Scan(
		&l.ID, &l.TenantID, &l.WarehouseID, &l.Code, &l.Role, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get location", err)
	}
	return &l, nil
}

// ListLocations ubicaciones de una bodega por código.
func (r *WarehouseRepo) ListLocations(ctx context.Context, tenantID, warehouseID string) ([]*entity.Location, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, tenant_id, warehouse_id, code, role, created_at
		FROM locations WHERE tenant_id = $1 AND warehouse_id = $2 ORDER BY code`, tenantID, warehouseID)
	if err != nil {
		return nil, mapError("list locations", err)
	}
	defer rows.Close()
	var out []*entity.Location
	for rows.Next() {
		var l entity.Location
		if err := rows.Scan(&l.ID, &l.TenantID, &l.WarehouseID, &l.Code, &l.Role, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
