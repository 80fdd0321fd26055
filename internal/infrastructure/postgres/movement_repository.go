package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo ledger de movimientos sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste el movimiento y sus líneas.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	query := `
		INSERT INTO movements (id, tenant_id, type, status, occurred_at, reversal_of_id, idempotency_key,
			source_type, source_id, reason, actor, posted_at, voided_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.TenantID, m.Type, m.Status, m.OccurredAt, nullString(m.ReversalOfID), m.IdempotencyKey,
		m.SourceType, m.SourceID, m.Reason, m.Actor, m.PostedAt, m.VoidedAt, m.CreatedAt,
	)
	if err != nil {
		return mapError("create movement", err)
	}
	for i := range m.Lines {
		l := &m.Lines[i]
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		l.MovementID = m.ID
		_, err := r.q.Exec(ctx, `
			INSERT INTO movement_lines (id, movement_id, line_number, item_id, location_id, uom, lot_id,
				quantity_delta, canonical_delta, unit_cost, extended_cost, reason_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			l.ID, m.ID, l.LineNumber, l.ItemID, l.LocationID, l.UOM, nullString(l.LotID),
			l.QuantityDelta, l.CanonicalDelta, l.UnitCost, l.ExtendedCost, l.ReasonCode,
		)
		if err != nil {
			return mapError("create movement line", err)
		}
	}
	return nil
}

// GetByID devuelve el movimiento con sus líneas ordenadas o nil si no existe en el tenant.
func (r *MovementRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Movement, error) {
	query := `
		SELECT id, tenant_id, type, status, occurred_at, reversal_of_id, idempotency_key,
			source_type, source_id, reason, actor, posted_at, voided_at, created_at
		FROM movements WHERE id = $1 AND tenant_id = $2`
	var m entity.Movement
	var reversalOf *string
	err := r.q.QueryRow(ctx, query, id, tenantID).Scan(
		&m.ID, &m.TenantID, &m.Type, &m.Status, &m.OccurredAt, &reversalOf, &m.IdempotencyKey,
		&m.SourceType, &m.SourceID, &m.Reason, &m.Actor, &m.PostedAt, &m.VoidedAt, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get movement", err)
	}
	m.ReversalOfID = derefString(reversalOf)

	rows, err := r.q.Query(ctx, `
		SELECT id, movement_id, line_number, item_id, location_id, uom, lot_id,
			quantity_delta, canonical_delta, unit_cost, extended_cost, reason_code
		FROM movement_lines WHERE movement_id = $1 ORDER BY line_number`, m.ID)
	if err != nil {
		return nil, mapError("list movement lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.MovementLine
		var lotID *string
		if err := rows.Scan(&l.ID, &l.MovementID, &l.LineNumber, &l.ItemID, &l.LocationID, &l.UOM, &lotID,
			&l.QuantityDelta, &l.CanonicalDelta, &l.UnitCost, &l.ExtendedCost, &l.ReasonCode); err != nil {
			return nil, fmt.Errorf("scan movement line: %w", err)
		}
		l.LotID = derefString(lotID)
		m.Lines = append(m.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list movement lines", err)
	}
	return &m, nil
}

// statusOf estado actual de un movimiento ("" si no existe).
func (r *MovementRepo) statusOf(ctx context.Context, tenantID, id string) (string, error) {
	var status string
	err := r.q.QueryRow(ctx, `SELECT status FROM movements WHERE id = $1 AND tenant_id = $2`, id, tenantID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", mapError("movement status", err)
	}
	return status, nil
}

// MarkPosted DRAFT → POSTED con los costos y cantidades canónicas calculados.
func (r *MovementRepo) MarkPosted(ctx context.Context, m *entity.Movement) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE movements SET status = $3, posted_at = $4, occurred_at = $5, reason = $6, actor = $7
		WHERE id = $1 AND tenant_id = $2 AND status = 'DRAFT'`,
		m.ID, m.TenantID, entity.MovementStatusPosted, m.PostedAt, m.OccurredAt, m.Reason, m.Actor,
	)
	if err != nil {
		return mapError("mark movement posted", err)
	}
	if tag.RowsAffected() == 0 {
		status, err := r.statusOf(ctx, m.TenantID, m.ID)
		if err != nil {
			return err
		}
		if status == "" {
			return fmt.Errorf("movement %s: %w", m.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("movement %s: %w", m.ID, domain.ErrMovementNotDraft)
	}
	for _, l := range m.Lines {
		_, err := r.q.Exec(ctx, `
			UPDATE movement_lines SET canonical_delta = $2, unit_cost = $3, extended_cost = $4
			WHERE id = $1`, l.ID, l.CanonicalDelta, l.UnitCost, l.ExtendedCost)
		if err != nil {
			return mapError("update movement line", err)
		}
	}
	return nil
}

// MarkVoided POSTED → VOIDED.
func (r *MovementRepo) MarkVoided(ctx context.Context, tenantID, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE movements SET status = $3, voided_at = $4
		WHERE id = $1 AND tenant_id = $2 AND status = 'POSTED'`,
		id, tenantID, entity.MovementStatusVoided, at,
	)
	if err != nil {
		return mapError("mark movement voided", err)
	}
	if tag.RowsAffected() == 0 {
		status, err := r.statusOf(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if status == "" {
			return fmt.Errorf("movement %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("movement %s: %w", id, domain.ErrMovementNotPosted)
	}
	return nil
}

// DeleteDraft elimina un borrador; las líneas caen en cascada.
func (r *MovementRepo) DeleteDraft(ctx context.Context, tenantID, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM movements WHERE id = $1 AND tenant_id = $2 AND status = 'DRAFT'`, id, tenantID)
	if err != nil {
		return mapError("delete draft", err)
	}
	if tag.RowsAffected() == 0 {
		status, err := r.statusOf(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if status == "" {
			return fmt.Errorf("movement %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("movement %s: %w", id, domain.ErrMovementNotDraft)
	}
	return nil
}

// LedgerTotals suma de quantity_delta por llave de saldo (movimientos contabilizados o anulados).
func (r *MovementRepo) LedgerTotals(ctx context.Context, tenantID string) ([]repository.LedgerTotal, error) {
	rows, err := r.q.Query(ctx, `
		SELECT l.item_id, l.location_id, l.uom, SUM(l.quantity_delta)
		FROM movement_lines l
		JOIN movements m ON m.id = l.movement_id
		WHERE m.tenant_id = $1 AND m.status <> 'DRAFT'
		GROUP BY l.item_id, l.location_id, l.uom
		ORDER BY l.item_id, l.location_id, l.uom`, tenantID)
	if err != nil {
		return nil, mapError("ledger totals", err)
	}
	defer rows.Close()
	var out []repository.LedgerTotal
	for rows.Next() {
		t := repository.LedgerTotal{Key: entity.BalanceKey{TenantID: tenantID}}
		if err := rows.Scan(&t.Key.ItemID, &t.Key.LocationID, &t.Key.UOM, &t.Quantity); err != nil {
			return nil, fmt.Errorf("scan ledger total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
