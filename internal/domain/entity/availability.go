package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Availability vista ATP de un ítem/unidad para una ubicación o una bodega.
// Derivada de los saldos; nunca se persiste como fuente de verdad.
type Availability struct {
	TenantID    string
	WarehouseID string
	LocationID  string // vacío cuando la vista es por bodega
	ItemID      string
	UOM         string
	OnHand      decimal.Decimal
	Reserved    decimal.Decimal
	Allocated   decimal.Decimal
	Available   decimal.Decimal
	AsOf        time.Time
}

// Add acumula otra vista (agregación por bodega).
func (a *Availability) Add(o Availability) {
	a.OnHand = a.OnHand.Add(o.OnHand)
	a.Reserved = a.Reserved.Add(o.Reserved)
	a.Allocated = a.Allocated.Add(o.Allocated)
	a.Available = a.Available.Add(o.Available)
}

// Alcances de una consulta de disponibilidad.
const (
	AvailabilityScopeWarehouse = "warehouse"
	AvailabilityScopeLocation  = "location"
)

// AvailabilityView resultado de una consulta ATP: el total del alcance y el detalle por ubicación.
type AvailabilityView struct {
	Scope        string
	ScopeID      string
	SellableOnly bool
	Total        Availability
	Locations    []Availability
	// ValidUntil próximo vencimiento de un lote con remanente en la vista vendible; la vista
	// no debe servirse desde caché después de ese instante.
	ValidUntil   *time.Time
}

// Lifetime vigencia de la vista en caché: ttl, acotada por ValidUntil. Cero = no cachear.
func (v *AvailabilityView) Lifetime(ttl time.Duration, now time.Time) time.Duration {
	if v.ValidUntil == nil {
		return ttl
	}
	if left := v.ValidUntil.Sub(now); left < ttl {
		return max(left, 0)
	}
	return ttl
}
