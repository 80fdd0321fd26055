package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

var _ repository.ExecutionRepository = (*executionRepo)(nil)

type executionRepo struct{ s *Store }

func (r *executionRepo) Claim(_ context.Context, rec *entity.ExecutionRecord) (*entity.ExecutionRecord, error) {
	k := execKey{rec.TenantID, rec.Family, rec.Key}
	if cur, ok := r.s.st.executions[k]; ok {
		out := copyExecution(cur)
		return &out, nil
	}
	r.s.st.executions[k] = copyExecution(*rec)
	return nil, nil
}

func (r *executionRepo) Complete(_ context.Context, tenantID, family, key string, resultIDs []string, at time.Time) error {
	k := execKey{tenantID, family, key}
	cur, ok := r.s.st.executions[k]
	if !ok {
		return fmt.Errorf("execution %s/%s: %w", family, key, domain.ErrNotFound)
	}
	cur.Status = entity.ExecutionStatusComplete
	cur.ResultIDs = append([]string(nil), resultIDs...)
	cur.CompletedAt = &at
	r.s.st.executions[k] = cur
	return nil
}

func (r *executionRepo) Get(_ context.Context, tenantID, family, key string) (*entity.ExecutionRecord, error) {
	cur, ok := r.s.st.executions[execKey{tenantID, family, key}]
	if !ok {
		return nil, nil
	}
	out := copyExecution(cur)
	return &out, nil
}

// Seed inserta un registro de ejecución tal cual (recuperación operativa y pruebas de ejecuciones
// interrumpidas).
func (s *Store) Seed(rec entity.ExecutionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.executions[execKey{rec.TenantID, rec.Family, rec.Key}] = copyExecution(rec)
}
