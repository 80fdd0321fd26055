package entity

import (
	"time"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/shopspring/decimal"
)

// Estados de reserva. FULFILLED y CANCELLED son terminales.
const (
	ReservationStatusReserved  = "RESERVED"
	ReservationStatusAllocated = "ALLOCATED"
	ReservationStatusFulfilled = "FULFILLED"
	ReservationStatusCancelled = "CANCELLED"
)

// Reservation compromiso de demanda contra disponibilidad calculada.
// Invariante: 0 ≤ QuantityFulfilled ≤ QuantityReserved; FULFILLED exige igualdad.
type Reservation struct {
	ID                string
	TenantID          string
	WarehouseID       string
	ItemID            string
	LocationID        string
	UOM               string
	DemandType        string
	DemandID          string
	QuantityReserved  decimal.Decimal
	QuantityFulfilled decimal.Decimal
	Status            string
	CancelReason      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Key llave de saldo de la reserva.
func (r *Reservation) Key() BalanceKey {
	return BalanceKey{TenantID: r.TenantID, ItemID: r.ItemID, LocationID: r.LocationID, UOM: r.UOM}
}

// Open cantidad abierta (reservada − cumplida).
func (r *Reservation) Open() decimal.Decimal {
	return r.QuantityReserved.Sub(r.QuantityFulfilled)
}

// IsTerminal indica si la reserva ya no admite transiciones.
func (r *Reservation) IsTerminal() bool {
	return r.Status == ReservationStatusFulfilled || r.Status == ReservationStatusCancelled
}

func (r *Reservation) invalid(action string) error {
	return &domain.InvalidStateError{Entity: "reservation", ID: r.ID, State: r.Status, Action: action}
}

// Allocate RESERVED → ALLOCATED. Devuelve la cantidad que pasa de reservada a asignada.
func (r *Reservation) Allocate(now time.Time) (decimal.Decimal, error) {
	if r.Status != ReservationStatusReserved {
		return decimal.Zero, r.invalid("allocate")
	}
	r.Status = ReservationStatusAllocated
	r.UpdatedAt = now
	return r.Open(), nil
}

// Fulfill incrementa la cantidad cumplida; pasa a FULFILLED al igualar lo reservado.
func (r *Reservation) Fulfill(qty decimal.Decimal, now time.Time) error {
	if r.Status != ReservationStatusAllocated {
		return r.invalid("fulfill")
	}
	if !qty.IsPositive() {
		return domain.Invalid("quantity", "debe ser mayor que cero")
	}
	if qty.GreaterThan(r.Open()) {
		return domain.Invalid("quantity", "excede la cantidad abierta de la reserva")
	}
	r.QuantityFulfilled = r.QuantityFulfilled.Add(qty)
	if r.QuantityFulfilled.Equal(r.QuantityReserved) {
		r.Status = ReservationStatusFulfilled
	}
	r.UpdatedAt = now
	return nil
}

// Cancel RESERVED|ALLOCATED → CANCELLED. Devuelve el estado previo y la cantidad liberada;
// lo ya cumplido no se toca.
func (r *Reservation) Cancel(reason string, now time.Time) (string, decimal.Decimal, error) {
	if r.Status != ReservationStatusReserved && r.Status != ReservationStatusAllocated {
		return "", decimal.Zero, r.invalid("cancel")
	}
	prev := r.Status
	released := r.Open()
	r.Status = ReservationStatusCancelled
	r.CancelReason = reason
	r.UpdatedAt = now
	return prev, released, nil
}

// Backorder faltante registrado contra la misma referencia de demanda.
type Backorder struct {
	ID          string
	TenantID    string
	WarehouseID string
	ItemID      string
	LocationID  string
	UOM         string
	DemandType  string
	DemandID    string
	Quantity    decimal.Decimal
	Status      string // OPEN
	CreatedAt   time.Time
}

// BackorderStatusOpen backorder pendiente.
const BackorderStatusOpen = "OPEN"
