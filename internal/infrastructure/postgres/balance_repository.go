package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo saldos materializados sobre PostgreSQL.
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

const balanceColumns = `tenant_id, item_id, location_id, uom, on_hand, reserved, allocated, updated_at`

func scanBalance(row pgx.Row) (*entity.Balance, error) {
	var b entity.Balance
	if err := row.Scan(&b.TenantID, &b.ItemID, &b.LocationID, &b.UOM, &b.OnHand, &b.Reserved, &b.Allocated, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// LockForUpdate crea las filas faltantes y las bloquea en orden (ítem, ubicación, unidad)
// para que transacciones concurrentes no se crucen.
func (r *BalanceRepo) LockForUpdate(ctx context.Context, keys []entity.BalanceKey) (map[entity.BalanceKey]*entity.Balance, error) {
	sorted := append([]entity.BalanceKey(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	out := make(map[entity.BalanceKey]*entity.Balance, len(sorted))
	for _, k := range sorted {
		if _, ok := out[k]; ok {
			continue
		}
		_, err := r.q.Exec(ctx, `
			INSERT INTO balances (tenant_id, item_id, location_id, uom)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (tenant_id, item_id, location_id, uom) DO NOTHING`,
			k.TenantID, k.ItemID, k.LocationID, k.UOM)
		if err != nil {
			return nil, mapError("ensure balance", err)
		}
		b, err := scanBalance(r.q.QueryRow(ctx, `SELECT `+balanceColumns+` FROM balances
			WHERE tenant_id = $1 AND item_id = $2 AND location_id = $3 AND uom = $4
			FOR UPDATE`, k.TenantID, k.ItemID, k.LocationID, k.UOM))
		if err != nil {
			return nil, mapError("lock balance", err)
		}
		out[k] = b
	}
	return out, nil
}

// Save persiste las cantidades del saldo.
func (r *BalanceRepo) Save(ctx context.Context, b *entity.Balance) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO balances (tenant_id, item_id, location_id, uom, on_hand, reserved, allocated, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tenant_id, item_id, location_id, uom)
		DO UPDATE SET on_hand = EXCLUDED.on_hand, reserved = EXCLUDED.reserved,
			allocated = EXCLUDED.allocated, updated_at = EXCLUDED.updated_at`,
		b.TenantID, b.ItemID, b.LocationID, b.UOM, b.OnHand, b.Reserved, b.Allocated, b.UpdatedAt)
	if err != nil {
		return mapError("save balance", err)
	}
	return nil
}

// Get devuelve el saldo o uno en cero si la fila no existe.
func (r *BalanceRepo) Get(ctx context.Context, k entity.BalanceKey) (*entity.Balance, error) {
	b, err := scanBalance(r.q.QueryRow(ctx, `SELECT `+balanceColumns+` FROM balances
		WHERE tenant_id = $1 AND item_id = $2 AND location_id = $3 AND uom = $4`,
		k.TenantID, k.ItemID, k.LocationID, k.UOM))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.NewBalance(k), nil
		}
		return nil, mapError("get balance", err)
	}
	return b, nil
}

func (r *BalanceRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Balance, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	var out []*entity.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return out, nil
}

// ListByLocations saldos existentes del ítem/unidad en las ubicaciones dadas.
func (r *BalanceRepo) ListByLocations(ctx context.Context, tenantID, itemID, uom string, locationIDs []string) ([]*entity.Balance, error) {
	if len(locationIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, "list balances by locations", `SELECT `+balanceColumns+` FROM balances
		WHERE tenant_id = $1 AND item_id = $2 AND uom = $3 AND location_id = ANY($4::uuid[])
		ORDER BY location_id`, tenantID, itemID, uom, locationIDs)
}

// ListByTenant todos los saldos del tenant en orden de llave.
func (r *BalanceRepo) ListByTenant(ctx context.Context, tenantID string) ([]*entity.Balance, error) {
	return r.list(ctx, "list balances by tenant", `SELECT `+balanceColumns+` FROM balances
		WHERE tenant_id = $1 ORDER BY item_id, location_id, uom`, tenantID)
}

// ListTenants tenants con saldos materializados.
func (r *BalanceRepo) ListTenants(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT tenant_id FROM balances ORDER BY tenant_id`)
	if err != nil {
		return nil, mapError("list tenants", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
