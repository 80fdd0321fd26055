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
	_ repository.ReceiptRepository    = (*ReceiptRepo)(nil)
	_ repository.CycleCountRepository = (*CycleCountRepo)(nil)
	_ repository.WorkOrderRepository  = (*WorkOrderRepo)(nil)
)

// ReceiptRepo recepciones de compra; las líneas se guardan como JSONB.
type ReceiptRepo struct {
	q Querier
}

// NewReceiptRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReceiptRepository(q Querier) *ReceiptRepo {
	return &ReceiptRepo{q: q}
}

func (r *ReceiptRepo) Create(ctx context.Context, rc *entity.Receipt) error {
	lines := rc.Lines
	if lines == nil {
		lines = []entity.ReceiptLine{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO receipts (id, tenant_id, purchase_order_id, movement_id, reversal_id, status, void_reason, lines, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rc.ID, rc.TenantID, rc.PurchaseOrderID, nullString(rc.MovementID), nullString(rc.ReversalID),
		rc.Status, rc.VoidReason, lines, rc.CreatedAt)
	if err != nil {
		return mapError("create receipt", err)
	}
	return nil
}

func (r *ReceiptRepo) get(ctx context.Context, lock bool, tenantID, id string) (*entity.Receipt, error) {
	query := `
		SELECT id, tenant_id, purchase_order_id, movement_id, reversal_id, status, void_reason, lines, created_at
		FROM receipts WHERE id = $1 AND tenant_id = $2`
	if lock {
		query += ` FOR UPDATE`
	}
	var rc entity.Receipt
	var movementID, reversalID *string
	err := r.q.QueryRow(ctx, query, id, tenantID).Scan(
		&rc.ID, &rc.TenantID, &rc.PurchaseOrderID, &movementID, &reversalID, &rc.Status, &rc.VoidReason, &rc.Lines, &rc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get receipt", err)
	}
	rc.MovementID = derefString(movementID)
	rc.ReversalID = derefString(reversalID)
	return &rc, nil
}

func (r *ReceiptRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Receipt, error) {
	return r.get(ctx, false, tenantID, id)
}

func (r *ReceiptRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Receipt, error) {
	return r.get(ctx, true, tenantID, id)
}

func (r *ReceiptRepo) Update(ctx context.Context, rc *entity.Receipt) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE receipts SET movement_id = $3, reversal_id = $4, status = $5, void_reason = $6
		WHERE id = $1 AND tenant_id = $2`,
		rc.ID, rc.TenantID, nullString(rc.MovementID), nullString(rc.ReversalID), rc.Status, rc.VoidReason)
	if err != nil {
		return mapError("update receipt", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("receipt %s: %w", rc.ID, domain.ErrNotFound)
	}
	return nil
}

// CycleCountRepo conteos cíclicos; las líneas se guardan como JSONB.
type CycleCountRepo struct {
	q Querier
}

// NewCycleCountRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCycleCountRepository(q Querier) *CycleCountRepo {
	return &CycleCountRepo{q: q}
}

func (r *CycleCountRepo) Create(ctx context.Context, c *entity.CycleCount) error {
	lines := c.Lines
	if lines == nil {
		lines = []entity.CycleCountLine{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO cycle_counts (id, tenant_id, warehouse_id, status, movement_id, lines, created_at, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.TenantID, c.WarehouseID, c.Status, nullString(c.MovementID), lines, c.CreatedAt, c.PostedAt)
	if err != nil {
		return mapError("create cycle count", err)
	}
	return nil
}

func (r *CycleCountRepo) get(ctx context.Context, lock bool, tenantID, id string) (*entity.CycleCount, error) {
	query := `
		SELECT id, tenant_id, warehouse_id, status, movement_id, lines, created_at, posted_at
		FROM cycle_counts WHERE id = $1 AND tenant_id = $2`
	if lock {
		query += ` FOR UPDATE`
	}
	var c entity.CycleCount
	var movementID *string
	err := r.q.QueryRow(ctx, query, id, tenantID).Scan(
		&c.ID, &c.TenantID, &c.WarehouseID, &c.Status, &movementID, &c.Lines, &c.CreatedAt, &c.PostedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get cycle count", err)
	}
	c.MovementID = derefString(movementID)
	return &c, nil
}

func (r *CycleCountRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.CycleCount, error) {
	return r.get(ctx, false, tenantID, id)
}

func (r *CycleCountRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.CycleCount, error) {
	return r.get(ctx, true, tenantID, id)
}

func (r *CycleCountRepo) Update(ctx context.Context, c *entity.CycleCount) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE cycle_counts SET status = $3, movement_id = $4, posted_at = $5
		WHERE id = $1 AND tenant_id = $2`,
		c.ID, c.TenantID, c.Status, nullString(c.MovementID), c.PostedAt)
	if err != nil {
		return mapError("update cycle count", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cycle count %s: %w", c.ID, domain.ErrNotFound)
	}
	return nil
}

// WorkOrderRepo órdenes de trabajo y lotes contabilizados.
type WorkOrderRepo struct {
	q Querier
}

// NewWorkOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewWorkOrderRepository(q Querier) *WorkOrderRepo {
	return &WorkOrderRepo{q: q}
}

const workOrderColumns = `id, tenant_id, warehouse_id, output_item_id, status, quantity_planned, quantity_completed, created_at, updated_at`

func (r *WorkOrderRepo) Create(ctx context.Context, wo *entity.WorkOrder) error {
	_, err := r.q.Exec(ctx, `INSERT INTO work_orders (`+workOrderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		wo.ID, wo.TenantID, wo.WarehouseID, wo.OutputItemID, wo.Status,
		wo.QuantityPlanned, wo.QuantityCompleted, wo.CreatedAt, wo.UpdatedAt)
	if err != nil {
		return mapError("create work order", err)
	}
	return nil
}

func (r *WorkOrderRepo) get(ctx context.Context, lock bool, tenantID, id string) (*entity.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE id = $1 AND tenant_id = $2`
	if lock {
		query += ` FOR UPDATE`
	}
	var wo entity.WorkOrder
	err := r.q.QueryRow(ctx, query, id, tenantID).Scan(
		&wo.ID, &wo.TenantID, &wo.WarehouseID, &wo.OutputItemID, &wo.Status,
		&wo.QuantityPlanned, &wo.QuantityCompleted, &wo.CreatedAt, &wo.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get work order", err)
	}
	return &wo, nil
}

func (r *WorkOrderRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.WorkOrder, error) {
	return r.get(ctx, false, tenantID, id)
}

func (r *WorkOrderRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.WorkOrder, error) {
	return r.get(ctx, true, tenantID, id)
}

func (r *WorkOrderRepo) Update(ctx context.Context, wo *entity.WorkOrder) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE work_orders SET status = $3, quantity_completed = $4, updated_at = $5
		WHERE id = $1 AND tenant_id = $2`,
		wo.ID, wo.TenantID, wo.Status, wo.QuantityCompleted, wo.UpdatedAt)
	if err != nil {
		return mapError("update work order", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("work order %s: %w", wo.ID, domain.ErrNotFound)
	}
	return nil
}

const woExecutionColumns = `id, tenant_id, work_order_id, movement_id, component_cost, finished_cost, scrap_cost, created_at`

func (r *WorkOrderRepo) CreateExecution(ctx context.Context, ex *entity.WorkOrderExecution) error {
	_, err := r.q.Exec(ctx, `INSERT INTO work_order_executions (`+woExecutionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ex.ID, ex.TenantID, ex.WorkOrderID, ex.MovementID, ex.ComponentCost, ex.FinishedCost, ex.ScrapCost, ex.CreatedAt)
	if err != nil {
		return mapError("create work order execution", err)
	}
	return nil
}

func (r *WorkOrderRepo) getExecution(ctx context.Context, where string, args ...any) (*entity.WorkOrderExecution, error) {
	var ex entity.WorkOrderExecution
	err := r.q.QueryRow(ctx, `SELECT `+woExecutionColumns+` FROM work_order_executions WHERE `+where, args...).Scan(
		&ex.ID, &ex.TenantID, &ex.WorkOrderID, &ex.MovementID, &ex.ComponentCost, &ex.FinishedCost, &ex.ScrapCost, &ex.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get work order execution", err)
	}
	return &ex, nil
}

func (r *WorkOrderRepo) GetExecution(ctx context.Context, tenantID, id string) (*entity.WorkOrderExecution, error) {
	return r.getExecution(ctx, `id = $1 AND tenant_id = $2`, id, tenantID)
}

func (r *WorkOrderRepo) GetExecutionByMovement(ctx context.Context, tenantID, movementID string) (*entity.WorkOrderExecution, error) {
	return r.getExecution(ctx, `movement_id = $1 AND tenant_id = $2`, movementID, tenantID)
}
