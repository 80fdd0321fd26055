package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementTypeReceive    = "RECEIVE"    // recepción de compra
	MovementTypeIssue      = "ISSUE"      // salida genérica
	MovementTypeAdjustment = "ADJUSTMENT" // ajuste (+/-)
	MovementTypeTransfer   = "TRANSFER"   // traslado entre ubicaciones
	MovementTypeCount      = "COUNT"      // diferencia de conteo cíclico
	MovementTypeShipment   = "SHIPMENT"   // despacho que cumple una reserva
	MovementTypeProduction = "PRODUCTION" // consumo + producción de una orden de trabajo
	MovementTypeReversal   = "REVERSAL"   // negación exacta de un movimiento contabilizado
)

// Estados de movimiento: DRAFT → POSTED → VOIDED.
const (
	MovementStatusDraft  = "DRAFT"
	MovementStatusPosted = "POSTED"
	MovementStatusVoided = "VOIDED"
)

// Movement unidad inmutable (una vez contabilizada) de cambio de inventario.
// El ledger de movimientos es la única fuente de verdad del on-hand.
type Movement struct {
	ID             string
	TenantID       string
	Type           string
	Status         string
	OccurredAt     time.Time
	ReversalOfID   string // solo en REVERSAL
	IdempotencyKey string
	SourceType     string // documento origen: receipt, transfer, cycle_count, work_order, reservation, adjustment
	SourceID       string
	Reason         string
	Actor          string
	Lines          []MovementLine
	PostedAt       *time.Time
	VoidedAt       *time.Time
	CreatedAt      time.Time
}

// MovementLine línea de un movimiento. QuantityDelta con signo (positivo entra, negativo sale).
type MovementLine struct {
	ID             string
	MovementID     string
	LineNumber     int
	ItemID         string
	LocationID     string
	UOM            string
	LotID          string
	QuantityDelta  decimal.Decimal
	CanonicalDelta decimal.Decimal // en la unidad base del ítem
	UnitCost       *decimal.Decimal
	ExtendedCost   *decimal.Decimal
	ReasonCode     string
}

// IsInbound indica si la línea agrega existencias.
func (l *MovementLine) IsInbound() bool {
	return l.QuantityDelta.IsPositive()
}

// Key llave de saldo de la línea.
func (l *MovementLine) Key(tenantID string) BalanceKey {
	return BalanceKey{TenantID: tenantID, ItemID: l.ItemID, LocationID: l.LocationID, UOM: l.UOM}
}

// IsPosted indica si el movimiento está contabilizado (no anulado).
func (m *Movement) IsPosted() bool {
	return m.Status == MovementStatusPosted
}

// Negate devuelve las líneas de reversión: negación exacta de cantidad, cantidad canónica y costo extendido.
func (m *Movement) Negate() []MovementLine {
	out := make([]MovementLine, 0, len(m.Lines))
	for _, l := range m.Lines {
		rev := MovementLine{
			LineNumber:     l.LineNumber,
			ItemID:         l.ItemID,
			LocationID:     l.LocationID,
			UOM:            l.UOM,
			LotID:          l.LotID,
			QuantityDelta:  l.QuantityDelta.Neg(),
			CanonicalDelta: l.CanonicalDelta.Neg(),
			ReasonCode:     l.ReasonCode,
		}
		if l.UnitCost != nil {
			uc := *l.UnitCost
			rev.UnitCost = &uc
		}
		if l.ExtendedCost != nil {
			ec := l.ExtendedCost.Neg()
			rev.ExtendedCost = &ec
		}
		out = append(out, rev)
	}
	return out
}
