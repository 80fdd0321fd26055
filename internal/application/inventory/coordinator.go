package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/pkg/logger"
)

// Coordinator protocolo de ejecución idempotente por (tenant, familia, key).
// Reclama la key como IN_PROGRESS, ejecuta el efecto y la marca COMPLETE en la misma transacción.
type Coordinator struct {
	log *logger.Logger
}

// NewCoordinator construye el coordinador.
func NewCoordinator(log *logger.Logger) *Coordinator {
	return &Coordinator{log: log}
}

// Execute reclama la key y ejecuta fn. Devuelve replayed=true con los ids originales cuando la
// key ya está COMPLETE con el mismo hash.
func (c *Coordinator) Execute(
	ctx context.Context,
	tx *Tx,
	family, key, hash string,
	fn func() ([]string, error),
) (ids []string, replayed bool, err error) {
	rec := &entity.ExecutionRecord{
		TenantID:    tx.TenantID,
		Family:      family,
		Key:         key,
		RequestHash: hash,
		Status:      entity.ExecutionStatusInProgress,
		CreatedAt:   tx.Now,
	}
	existing, err := tx.Executions.Claim(ctx, rec)
	if err != nil {
		return nil, false, fmt.Errorf("claim execution: %w", err)
	}
	if existing != nil {
		ev := c.log.With().Str("tenant_id", tx.TenantID).Str("family", family).Str("idempotency_key", key).Logger()
		switch {
		case existing.RequestHash != hash:
			ev.Warn().Msg("idempotency key reutilizada con otro payload")
			return nil, false, &domain.IdempotencyError{Family: family, Key: key, Err: domain.ErrIdempotencyConflict}
		case !existing.HasResult():
			ev.Error().Str("status", existing.Status).Msg("ejecución previa incompleta")
			return nil, false, &domain.IdempotencyError{Family: family, Key: key, Err: domain.ErrIncompleteExecution}
		default:
			ev.Info().Strs("result_ids", existing.ResultIDs).Msg("replay idempotente")
			return existing.ResultIDs, true, nil
		}
	}

	ids, err = fn()
	if err != nil {
		return nil, false, err
	}
	if len(ids) == 0 {
		return nil, false, fmt.Errorf("execution %s/%s: sin ids resultantes", family, key)
	}
	if err := tx.Executions.Complete(ctx, tx.TenantID, family, key, ids, tx.Now); err != nil {
		return nil, false, fmt.Errorf("complete execution: %w", err)
	}
	return ids, false, nil
}
