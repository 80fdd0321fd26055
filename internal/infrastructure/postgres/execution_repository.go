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
)

var _ repository.ExecutionRepository = (*ExecutionRepo)(nil)

// ExecutionRepo ledger de idempotencia sobre PostgreSQL.
type ExecutionRepo struct {
	q Querier
}

// NewExecutionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewExecutionRepository(q Querier) *ExecutionRepo {
	return &ExecutionRepo{q: q}
}

// Claim inserta el registro; si la key ya existe devuelve el registro vigente (bloqueado).
func (r *ExecutionRepo) Claim(ctx context.Context, rec *entity.ExecutionRecord) (*entity.ExecutionRecord, error) {
	resultIDs := rec.ResultIDs
	if resultIDs == nil {
		resultIDs = []string{}
	}
	tag, err := r.q.Exec(ctx, `
		INSERT INTO execution_records (tenant_id, family, key, request_hash, status, result_ids, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tenant_id, family, key) DO NOTHING`,
		rec.TenantID, rec.Family, rec.Key, rec.RequestHash, rec.Status, resultIDs, rec.CreatedAt, rec.CompletedAt)
	if err != nil {
		return nil, mapError("claim execution", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}
	existing, err := r.get(ctx, true, rec.TenantID, rec.Family, rec.Key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// La fila en conflicto pertenece a una transacción que no llegó a confirmar.
		return nil, fmt.Errorf("claim execution %s/%s: %w", rec.Family, rec.Key, domain.ErrSerialization)
	}
	return existing, nil
}

// Complete marca la ejecución como terminada con sus ids resultantes.
func (r *ExecutionRepo) Complete(ctx context.Context, tenantID, family, key string, resultIDs []string, at time.Time) error {
	if resultIDs == nil {
		resultIDs = []string{}
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE execution_records SET status = $4, result_ids = $5, completed_at = $6
		WHERE tenant_id = $1 AND family = $2 AND key = $3`,
		tenantID, family, key, entity.ExecutionStatusComplete, resultIDs, at)
	if err != nil {
		return mapError("complete execution", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("execution %s/%s: %w", family, key, domain.ErrNotFound)
	}
	return nil
}

// Get obtiene el registro o nil.
func (r *ExecutionRepo) Get(ctx context.Context, tenantID, family, key string) (*entity.ExecutionRecord, error) {
	return r.get(ctx, false, tenantID, family, key)
}

func (r *ExecutionRepo) get(ctx context.Context, lock bool, tenantID, family, key string) (*entity.ExecutionRecord, error) {
	query := `
		SELECT tenant_id, family, key, request_hash, status, result_ids, created_at, completed_at
		FROM execution_records WHERE tenant_id = $1 AND family = $2 AND key = $3`
	if lock {
		query += ` FOR UPDATE`
	}
	var e entity.ExecutionRecord
	err := r.q.QueryRow(ctx, query, tenantID, family, key).Scan(
		&e.TenantID, &e.Family, &e.Key, &e.RequestHash, &e.Status, &e.ResultIDs, &e.CreatedAt, &e.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get execution", err)
	}
	if len(e.ResultIDs) == 0 {
		e.ResultIDs = nil
	}
	return &e, nil
}
