package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Documentos externos que invocan al núcleo. Aquí solo vive lo necesario en su frontera.

// Estados de documentos.
const (
	DocumentStatusDraft   = "DRAFT"
	DocumentStatusPosted  = "POSTED"
	DocumentStatusVoided  = "VOIDED"
	WorkOrderStatusOpen   = "OPEN"
	WorkOrderStatusClosed = "CLOSED"
)

// Receipt recepción de una orden de compra.
type Receipt struct {
	ID              string
	TenantID        string
	PurchaseOrderID string
	MovementID      string
	ReversalID      string
	Status          string
	VoidReason      string
	Lines           []ReceiptLine
	CreatedAt       time.Time
}

// ReceiptLine línea recibida con costo unitario.
type ReceiptLine struct {
	LineNumber int
	ItemID     string
	LocationID string
	UOM        string
	LotID      string
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
}

// CycleCount conteo cíclico de una bodega.
type CycleCount struct {
	ID          string
	TenantID    string
	WarehouseID string
	Status      string
	MovementID  string
	Lines       []CycleCountLine
	CreatedAt   time.Time
	PostedAt    *time.Time
}

// CycleCountLine cantidad contada de un ítem en una ubicación.
type CycleCountLine struct {
	LineNumber      int
	ItemID          string
	LocationID      string
	UOM             string
	LotID           string
	CountedQuantity decimal.Decimal
	UnitCost        *decimal.Decimal // costo para sobrantes; si falta se usa el promedio de capas
}

// WorkOrder orden de trabajo de producción.
type WorkOrder struct {
	ID                string
	TenantID          string
	WarehouseID       string
	OutputItemID      string
	Status            string
	QuantityPlanned   decimal.Decimal
	QuantityCompleted decimal.Decimal
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// WorkOrderExecution lote contabilizado de una orden de trabajo.
type WorkOrderExecution struct {
	ID            string
	TenantID      string
	WorkOrderID   string
	MovementID    string
	ComponentCost decimal.Decimal
	FinishedCost  decimal.Decimal
	ScrapCost     decimal.Decimal
	CreatedAt     time.Time
}
