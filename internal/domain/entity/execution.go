package entity

import "time"

// Familias de operación para el ledger de idempotencia.
const (
	FamilyAdjustmentPost     = "adjustment-post"
	FamilyAdjustmentDraft    = "adjustment-draft-post"
	FamilyReceiptPost        = "receipt-post"
	FamilyTransferPost       = "transfer-post"
	FamilyCountPost          = "count-post"
	FamilyWorkOrderBatch     = "work-order-batch"
	FamilyReservationCreate  = "reservation-create"
	FamilyReservationAlloc   = "reservation-allocate"
	FamilyReservationFulfill = "reservation-fulfill"
	FamilyReservationCancel  = "reservation-cancel"
	FamilyReceiptVoid        = "receipt-void"
	FamilyAdjustmentVoid     = "adjustment-void"
	FamilyTransferVoid       = "transfer-void"
)

// Estados de ejecución.
const (
	ExecutionStatusInProgress = "IN_PROGRESS"
	ExecutionStatusComplete   = "COMPLETE"
)

// ExecutionRecord registro de idempotencia por (tenant, familia, key).
type ExecutionRecord struct {
	TenantID    string
	Family      string
	Key         string
	RequestHash string
	Status      string
	ResultIDs   []string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// HasResult indica si la ejecución registró ids resultantes.
func (e *ExecutionRecord) HasResult() bool {
	return e.Status == ExecutionStatusComplete && len(e.ResultIDs) > 0
}
