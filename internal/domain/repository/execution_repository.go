package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

// ExecutionRepository ledger de idempotencia por (tenant, familia, key).
type ExecutionRepository interface {
	// Claim inserta el registro IN_PROGRESS; si la key ya existe devuelve el registro existente.
	Claim(ctx context.Context, rec *entity.ExecutionRecord) (existing *entity.ExecutionRecord, err error)
	Complete(ctx context.Context, tenantID, family, key string, resultIDs []string, at time.Time) error
	Get(ctx context.Context, tenantID, family, key string) (*entity.ExecutionRecord, error)
}
