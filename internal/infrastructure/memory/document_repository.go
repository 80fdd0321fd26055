package memory

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

var (
	_ repository.ReceiptRepository    = (*receiptRepo)(nil)
	_ repository.CycleCountRepository = (*countRepo)(nil)
	_ repository.WorkOrderRepository  = (*workOrderRepo)(nil)
)

type receiptRepo struct{ s *Store }

func (r *receiptRepo) Create(_ context.Context, rc *entity.Receipt) error {
	r.s.st.receipts[rc.ID] = copyReceipt(*rc)
	return nil
}

func (r *receiptRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Receipt, error) {
	rc, ok := r.s.st.receipts[id]
	if !ok || rc.TenantID != tenantID {
		return nil, nil
	}
	out := copyReceipt(rc)
	return &out, nil
}

func (r *receiptRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Receipt, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *receiptRepo) Update(_ context.Context, rc *entity.Receipt) error {
	if cur, ok := r.s.st.receipts[rc.ID]; !ok || cur.TenantID != rc.TenantID {
		return fmt.Errorf("receipt %s: %w", rc.ID, domain.ErrNotFound)
	}
	r.s.st.receipts[rc.ID] = copyReceipt(*rc)
	return nil
}

type countRepo struct{ s *Store }

func (r *countRepo) Create(_ context.Context, c *entity.CycleCount) error {
	r.s.st.counts[c.ID] = copyCount(*c)
	return nil
}

func (r *countRepo) GetByID(_ context.Context, tenantID, id string) (*entity.CycleCount, error) {
	c, ok := r.s.st.counts[id]
	if !ok || c.TenantID != tenantID {
		return nil, nil
	}
	out := copyCount(c)
	return &out, nil
}

func (r *countRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.CycleCount, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *countRepo) Update(_ context.Context, c *entity.CycleCount) error {
	if cur, ok := r.s.st.counts[c.ID]; !ok || cur.TenantID != c.TenantID {
		return fmt.Errorf("cycle count %s: %w", c.ID, domain.ErrNotFound)
	}
	r.s.st.counts[c.ID] = copyCount(*c)
	return nil
}

type workOrderRepo struct{ s *Store }

func (r *workOrderRepo) Create(_ context.Context, wo *entity.WorkOrder) error {
	r.s.st.workOrders[wo.ID] = *wo
	return nil
}

func (r *workOrderRepo) GetByID(_ context.Context, tenantID, id string) (*entity.WorkOrder, error) {
	wo, ok := r.s.st.workOrders[id]
	if !ok || wo.TenantID != tenantID {
		return nil, nil
	}
	return &wo, nil
}

func (r *workOrderRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.WorkOrder, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *workOrderRepo) Update(_ context.Context, wo *entity.WorkOrder) error {
	if cur, ok := r.s.st.workOrders[wo.ID]; !ok || cur.TenantID != wo.TenantID {
		return fmt.Errorf("work order %s: %w", wo.ID, domain.ErrNotFound)
	}
	r.s.st.workOrders[wo.ID] = *wo
	return nil
}

func (r *workOrderRepo) CreateExecution(_ context.Context, ex *entity.WorkOrderExecution) error {
	r.s.st.woExecutions[ex.ID] = *ex
	return nil
}

func (r *workOrderRepo) GetExecution(_ context.Context, tenantID, id string) (*entity.WorkOrderExecution, error) {
	ex, ok := r.s.st.woExecutions[id]
	if !ok || ex.TenantID != tenantID {
		return nil, nil
	}
	return &ex, nil
}

func (r *workOrderRepo) GetExecutionByMovement(_ context.Context, tenantID, movementID string) (*entity.WorkOrderExecution, error) {
	for _, ex := range r.s.st.woExecutions {
		if ex.TenantID == tenantID && ex.MovementID == movementID {
			v := ex
			return &v, nil
		}
	}
	return nil, nil
}
