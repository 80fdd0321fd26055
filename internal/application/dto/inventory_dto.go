package dto

import (
	"time"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MovementLineResponse línea de un movimiento del ledger.
type MovementLineResponse struct {
	ID             string           `json:"id"`
	LineNumber     int              `json:"line_number"`
	ItemID         string           `json:"item_id"`
	LocationID     string           `json:"location_id"`
	UOM            string           `json:"uom"`
	LotID          string           `json:"lot_id,omitempty"`
	QuantityDelta  decimal.Decimal  `json:"quantity_delta"`
	CanonicalDelta decimal.Decimal  `json:"canonical_delta"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty"`
	ExtendedCost   *decimal.Decimal `json:"extended_cost,omitempty"`
	ReasonCode     string           `json:"reason_code,omitempty"`
}

// MovementResponse movimiento con sus líneas.
type MovementResponse struct {
	ID             string                 `json:"id"`
	Type           string                 `json:"type"`
	Status         string                 `json:"status"`
	ReversalOfID   string                 `json:"reversal_of_id,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
	SourceType     string                 `json:"source_type,omitempty"`
	SourceID       string                 `json:"source_id,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
	Actor          string                 `json:"actor,omitempty"`
	OccurredAt     time.Time              `json:"occurred_at"`
	PostedAt       *time.Time             `json:"posted_at,omitempty"`
	VoidedAt       *time.Time             `json:"voided_at,omitempty"`
	Lines          []MovementLineResponse `json:"lines"`
}

func FromMovement(m *entity.Movement) MovementResponse {
	out := MovementResponse{
		ID: m.ID, Type: m.Type, Status: m.Status, ReversalOfID: m.ReversalOfID,
		IdempotencyKey: m.IdempotencyKey, SourceType: m.SourceType, SourceID: m.SourceID,
		Reason: m.Reason, Actor: m.Actor, OccurredAt: m.OccurredAt,
		PostedAt: m.PostedAt, VoidedAt: m.VoidedAt,
		Lines: make([]MovementLineResponse, 0, len(m.Lines)),
	}
	for _, l := range m.Lines {
		out.Lines = append(out.Lines, MovementLineResponse{
			ID: l.ID, LineNumber: l.LineNumber, ItemID: l.ItemID, LocationID: l.LocationID,
			UOM: l.UOM, LotID: l.LotID, QuantityDelta: l.QuantityDelta, CanonicalDelta: l.CanonicalDelta,
			UnitCost: l.UnitCost, ExtendedCost: l.ExtendedCost, ReasonCode: l.ReasonCode,
		})
	}
	return out
}

// PostDraftRequest contabiliza un borrador existente.
type PostDraftRequest struct {
	MovementID string `json:"movement_id"`
}

// ReceiptResponse recepción contabilizada.
type ReceiptResponse struct {
	ID              string               `json:"id"`
	PurchaseOrderID string               `json:"purchase_order_id,omitempty"`
	MovementID      string               `json:"movement_id"`
	ReversalID      string               `json:"reversal_id,omitempty"`
	Status          string               `json:"status"`
	VoidReason      string               `json:"void_reason,omitempty"`
	Lines           []entity.ReceiptLine `json:"lines"`
	CreatedAt       time.Time            `json:"created_at"`
}

func FromReceipt(r *entity.Receipt) ReceiptResponse {
	return ReceiptResponse{
		ID: r.ID, PurchaseOrderID: r.PurchaseOrderID, MovementID: r.MovementID, ReversalID: r.ReversalID,
		Status: r.Status, VoidReason: r.VoidReason, Lines: r.Lines, CreatedAt: r.CreatedAt,
	}
}

// TransferLinkResponse partición de una capa origen hacia la capa destino.
type TransferLinkResponse struct {
	SourceLayerID string          `json:"source_layer_id"`
	DestLayerID   string          `json:"dest_layer_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
}

// TransferResponse traslado contabilizado.
type TransferResponse struct {
	MovementID string                 `json:"movement_id"`
	Value      decimal.Decimal        `json:"value"`
	Links      []TransferLinkResponse `json:"links"`
	Replayed   bool                   `json:"replayed"`
}

func FromTransferLinks(links []entity.CostLayerTransferLink) []TransferLinkResponse {
	out := make([]TransferLinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, TransferLinkResponse{
			SourceLayerID: l.SourceLayerID, DestLayerID: l.DestLayerID, Quantity: l.Quantity, UnitCost: l.UnitCost,
		})
	}
	return out
}

// CycleCountResponse documento de conteo.
type CycleCountResponse struct {
	ID          string                  `json:"id"`
	WarehouseID string                  `json:"warehouse_id"`
	Status      string                  `json:"status"`
	MovementID  string                  `json:"movement_id,omitempty"`
	Lines       []entity.CycleCountLine `json:"lines"`
	CreatedAt   time.Time               `json:"created_at"`
	PostedAt    *time.Time              `json:"posted_at,omitempty"`
}

func FromCycleCount(c *entity.CycleCount) CycleCountResponse {
	return CycleCountResponse{
		ID: c.ID, WarehouseID: c.WarehouseID, Status: c.Status, MovementID: c.MovementID,
		Lines: c.Lines, CreatedAt: c.CreatedAt, PostedAt: c.PostedAt,
	}
}

// WorkOrderResponse orden de trabajo.
type WorkOrderResponse struct {
	ID                string          `json:"id"`
	WarehouseID       string          `json:"warehouse_id"`
	OutputItemID      string          `json:"output_item_id"`
	Status            string          `json:"status"`
	QuantityPlanned   decimal.Decimal `json:"quantity_planned"`
	QuantityCompleted decimal.Decimal `json:"quantity_completed"`
	CreatedAt         time.Time       `json:"created_at"`
}

func FromWorkOrder(w *entity.WorkOrder) WorkOrderResponse {
	return WorkOrderResponse{
		ID: w.ID, WarehouseID: w.WarehouseID, OutputItemID: w.OutputItemID, Status: w.Status,
		QuantityPlanned: w.QuantityPlanned, QuantityCompleted: w.QuantityCompleted, CreatedAt: w.CreatedAt,
	}
}

// WorkOrderExecutionResponse lote de producción contabilizado.
type WorkOrderExecutionResponse struct {
	ID            string          `json:"id"`
	WorkOrderID   string          `json:"work_order_id"`
	MovementID    string          `json:"movement_id"`
	ComponentCost decimal.Decimal `json:"component_cost"`
	FinishedCost  decimal.Decimal `json:"finished_cost"`
	ScrapCost     decimal.Decimal `json:"scrap_cost"`
	CreatedAt     time.Time       `json:"created_at"`
}

func FromWorkOrderExecution(e *entity.WorkOrderExecution) WorkOrderExecutionResponse {
	return WorkOrderExecutionResponse{
		ID: e.ID, WorkOrderID: e.WorkOrderID, MovementID: e.MovementID,
		ComponentCost: e.ComponentCost, FinishedCost: e.FinishedCost, ScrapCost: e.ScrapCost, CreatedAt: e.CreatedAt,
	}
}

// ReservationResponse reserva y su estado.
type ReservationResponse struct {
	ID                string          `json:"id"`
	WarehouseID       string          `json:"warehouse_id"`
	ItemID            string          `json:"item_id"`
	LocationID        string          `json:"location_id"`
	UOM               string          `json:"uom"`
	DemandType        string          `json:"demand_type"`
	DemandID          string          `json:"demand_id"`
	QuantityReserved  decimal.Decimal `json:"quantity_reserved"`
	QuantityFulfilled decimal.Decimal `json:"quantity_fulfilled"`
	Status            string          `json:"status"`
	CancelReason      string          `json:"cancel_reason,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func FromReservation(r *entity.Reservation) ReservationResponse {
	return ReservationResponse{
		ID: r.ID, WarehouseID: r.WarehouseID, ItemID: r.ItemID, LocationID: r.LocationID, UOM: r.UOM,
		DemandType: r.DemandType, DemandID: r.DemandID,
		QuantityReserved: r.QuantityReserved, QuantityFulfilled: r.QuantityFulfilled,
		Status: r.Status, CancelReason: r.CancelReason, UpdatedAt: r.UpdatedAt,
	}
}

// BackorderResponse faltante registrado.
type BackorderResponse struct {
	ID         string          `json:"id"`
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	UOM        string          `json:"uom"`
	DemandType string          `json:"demand_type"`
	DemandID   string          `json:"demand_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Status     string          `json:"status"`
}

// CreateReservationResponse reservas creadas y backorder opcional.
type CreateReservationResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
	Backorder    *BackorderResponse    `json:"backorder,omitempty"`
	Replayed     bool                  `json:"replayed"`
}

func FromReservations(rs []*entity.Reservation, bo *entity.Backorder, replayed bool) CreateReservationResponse {
	out := CreateReservationResponse{Reservations: make([]ReservationResponse, 0, len(rs)), Replayed: replayed}
	for _, r := range rs {
		out.Reservations = append(out.Reservations, FromReservation(r))
	}
	if bo != nil {
		out.Backorder = &BackorderResponse{
			ID: bo.ID, ItemID: bo.ItemID, LocationID: bo.LocationID, UOM: bo.UOM,
			DemandType: bo.DemandType, DemandID: bo.DemandID, Quantity: bo.Quantity, Status: bo.Status,
		}
	}
	return out
}

// FulfillRequest cantidad despachada contra una reserva asignada.
type FulfillRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// FulfillResponse reserva actualizada y movimiento de despacho.
type FulfillResponse struct {
	Reservation ReservationResponse `json:"reservation"`
	MovementID  string              `json:"movement_id"`
}

// CancelReservationRequest motivo de cancelación.
type CancelReservationRequest struct {
	Reason string `json:"reason"`
}

// AvailabilityLine vista ATP de una ubicación (o total).
type AvailabilityLine struct {
	LocationID string          `json:"location_id,omitempty"`
	OnHand     decimal.Decimal `json:"on_hand"`
	Reserved   decimal.Decimal `json:"reserved"`
	Allocated  decimal.Decimal `json:"allocated"`
	Available  decimal.Decimal `json:"available"`
}

// AvailabilityResponse resultado de getAvailability.
type AvailabilityResponse struct {
	Scope        string             `json:"scope"`
	ScopeID      string             `json:"scope_id"`
	ItemID       string             `json:"item_id"`
	UOM          string             `json:"uom"`
	SellableOnly bool               `json:"sellable_only"`
	Total        AvailabilityLine   `json:"total"`
	Locations    []AvailabilityLine `json:"locations"`
	AsOf         time.Time          `json:"as_of"`
}

func availabilityLine(a entity.Availability) AvailabilityLine {
	return AvailabilityLine{
		LocationID: a.LocationID, OnHand: a.OnHand, Reserved: a.Reserved, Allocated: a.Allocated, Available: a.Available,
	}
}

func FromAvailability(v *entity.AvailabilityView) AvailabilityResponse {
	out := AvailabilityResponse{
		Scope: v.Scope, ScopeID: v.ScopeID, ItemID: v.Total.ItemID, UOM: v.Total.UOM,
		SellableOnly: v.SellableOnly, Total: availabilityLine(v.Total), AsOf: v.Total.AsOf,
		Locations: make([]AvailabilityLine, 0, len(v.Locations)),
	}
	for _, l := range v.Locations {
		out.Locations = append(out.Locations, availabilityLine(l))
	}
	return out
}

// ValuationResponse valor de inventario de una llave.
type ValuationResponse struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	UOM        string          `json:"uom"`
	Quantity   decimal.Decimal `json:"quantity"`
	Value      decimal.Decimal `json:"value"`
}

// DivergenceResponse diferencia detectada por la reconciliación.
type DivergenceResponse struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	UOM        string          `json:"uom"`
	Field      string          `json:"field"`
	Expected   decimal.Decimal `json:"expected"`
	Actual     decimal.Decimal `json:"actual"`
}

// ReconcileResponse resultado de una reconciliación bajo demanda.
type ReconcileResponse struct {
	Clean       bool                 `json:"clean"`
	Divergences []DivergenceResponse `json:"divergences"`
}
