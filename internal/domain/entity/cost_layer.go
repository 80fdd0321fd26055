package entity

import (
	"fmt"
	"time"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/shopspring/decimal"
)

// Tipos de origen de una capa de costo.
const (
	LayerSourceReceipt         = "receipt"
	LayerSourceAdjustment      = "adjustment"
	LayerSourceTransferIn      = "transfer_in"
	LayerSourceCount           = "cycle_count"
	LayerSourceProduction      = "production"
	LayerSourceProductionScrap = "production_scrap"
	LayerSourceReversal        = "reversal"
)

// CostLayer lote FIFO de valor. Item, ubicación, unidad, costo unitario e identidad de origen
// son inmutables después de creada; solo RemainingQuantity, Notes y la marca de anulación cambian,
// y únicamente a través de Consume, Void y SetNotes.
type CostLayer struct {
	id               string
	tenantID         string
	itemID           string
	locationID       string
	uom              string
	lotID            string
	sequence         int64
	createdAt        time.Time
	originalQuantity decimal.Decimal
	unitCost         decimal.Decimal
	sourceType       string
	sourceID         string
	movementID       string
	movementLineID   string

	remainingQuantity decimal.Decimal
	extendedCost      decimal.Decimal // caché; puede desviarse de remaining × unit_cost
	notes             string
	voidedAt          *time.Time
}

// CostLayerRecord forma plana de una capa para persistencia y reconstrucción.
type CostLayerRecord struct {
	ID                string
	TenantID          string
	ItemID            string
	LocationID        string
	UOM               string
	LotID             string
	Sequence          int64
	CreatedAt         time.Time
	OriginalQuantity  decimal.Decimal
	RemainingQuantity decimal.Decimal
	UnitCost          decimal.Decimal
	ExtendedCost      decimal.Decimal
	SourceType        string
	SourceID          string
	MovementID        string
	MovementLineID    string
	Notes             string
	VoidedAt          *time.Time
}

// NewCostLayerParams datos para crear una capa nueva.
type NewCostLayerParams struct {
	ID             string
	TenantID       string
	ItemID         string
	LocationID     string
	UOM            string
	LotID          string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	ExtendedCost   *decimal.Decimal // opcional: costo asignado exacto (producción)
	SourceType     string
	SourceID       string
	MovementID     string
	MovementLineID string
	CreatedAt      time.Time
}

// NewCostLayer valida y construye una capa con remaining = original.
func NewCostLayer(p NewCostLayerParams) (*CostLayer, error) {
	if p.ItemID == "" || p.LocationID == "" || p.UOM == "" {
		return nil, domain.Invalid("cost_layer", "item, ubicación y unidad son requeridos")
	}
	if !p.Quantity.IsPositive() {
		return nil, domain.Invalid("cost_layer.quantity", "debe ser positiva")
	}
	if p.UnitCost.IsNegative() {
		return nil, domain.Invalid("cost_layer.unit_cost", "no puede ser negativo")
	}
	if p.SourceType == "" || p.SourceID == "" {
		return nil, domain.Invalid("cost_layer.source", "origen requerido")
	}
	ext := p.Quantity.Mul(p.UnitCost)
	if p.ExtendedCost != nil {
		ext = *p.ExtendedCost
	}
	return &CostLayer{
		id:                p.ID,
		tenantID:          p.TenantID,
		itemID:            p.ItemID,
		locationID:        p.LocationID,
		uom:               p.UOM,
		lotID:             p.LotID,
		createdAt:         p.CreatedAt,
		originalQuantity:  p.Quantity,
		unitCost:          p.UnitCost,
		sourceType:        p.SourceType,
		sourceID:          p.SourceID,
		movementID:        p.MovementID,
		movementLineID:    p.MovementLineID,
		remainingQuantity: p.Quantity,
		extendedCost:      ext,
	}, nil
}

// RestoreCostLayer reconstruye una capa desde almacenamiento.
func RestoreCostLayer(r CostLayerRecord) *CostLayer {
	return &CostLayer{
		id:                r.ID,
		tenantID:          r.TenantID,
		itemID:            r.ItemID,
		locationID:        r.LocationID,
		uom:               r.UOM,
		lotID:             r.LotID,
		sequence:          r.Sequence,
		createdAt:         r.CreatedAt,
		originalQuantity:  r.OriginalQuantity,
		unitCost:          r.UnitCost,
		sourceType:        r.SourceType,
		sourceID:          r.SourceID,
		movementID:        r.MovementID,
		movementLineID:    r.MovementLineID,
		remainingQuantity: r.RemainingQuantity,
		extendedCost:      r.ExtendedCost,
		notes:             r.Notes,
		voidedAt:          r.VoidedAt,
	}
}

// Record forma plana de la capa.
func (l *CostLayer) Record() CostLayerRecord {
	return CostLayerRecord{
		ID:                l.id,
		TenantID:          l.tenantID,
		ItemID:            l.itemID,
		LocationID:        l.locationID,
		UOM:               l.uom,
		LotID:             l.lotID,
		Sequence:          l.sequence,
		CreatedAt:         l.createdAt,
		OriginalQuantity:  l.originalQuantity,
		RemainingQuantity: l.remainingQuantity,
		UnitCost:          l.unitCost,
		ExtendedCost:      l.extendedCost,
		SourceType:        l.sourceType,
		SourceID:          l.sourceID,
		MovementID:        l.movementID,
		MovementLineID:    l.movementLineID,
		Notes:             l.notes,
		VoidedAt:          l.voidedAt,
	}
}

func (l *CostLayer) ID() string                          { return l.id }
func (l *CostLayer) TenantID() string                    { return l.tenantID }
func (l *CostLayer) ItemID() string                      { return l.itemID }
func (l *CostLayer) LocationID() string                  { return l.locationID }
func (l *CostLayer) UOM() string                         { return l.uom }
func (l *CostLayer) LotID() string                       { return l.lotID }
func (l *CostLayer) Sequence() int64                     { return l.sequence }
func (l *CostLayer) CreatedAt() time.Time                { return l.createdAt }
func (l *CostLayer) OriginalQuantity() decimal.Decimal   { return l.originalQuantity }
func (l *CostLayer) RemainingQuantity() decimal.Decimal  { return l.remainingQuantity }
func (l *CostLayer) UnitCost() decimal.Decimal           { return l.unitCost }
func (l *CostLayer) ExtendedCost() decimal.Decimal       { return l.extendedCost }
func (l *CostLayer) SourceType() string                  { return l.sourceType }
func (l *CostLayer) SourceID() string                    { return l.sourceID }
func (l *CostLayer) MovementID() string                  { return l.movementID }
func (l *CostLayer) MovementLineID() string              { return l.movementLineID }
func (l *CostLayer) Notes() string                       { return l.notes }
func (l *CostLayer) VoidedAt() *time.Time                { return l.voidedAt }
func (l *CostLayer) IsVoided() bool                      { return l.voidedAt != nil }
func (l *CostLayer) ConsumedQuantity() decimal.Decimal   { return l.originalQuantity.Sub(l.remainingQuantity) }
func (l *CostLayer) IsUntouched() bool                   { return l.remainingQuantity.Equal(l.originalQuantity) }

// Value valoración autoritativa: remaining × unit_cost (nunca el caché extendido).
func (l *CostLayer) Value() decimal.Decimal {
	return l.remainingQuantity.Mul(l.unitCost)
}

// Consume descuenta qty del remanente. Nunca deja remanente negativo.
func (l *CostLayer) Consume(qty decimal.Decimal) error {
	if l.IsVoided() {
		return fmt.Errorf("layer %s: %w", l.id, domain.ErrLayerVoided)
	}
	if !qty.IsPositive() {
		return domain.Invalid("consumption.quantity", "debe ser positiva")
	}
	if qty.GreaterThan(l.remainingQuantity) {
		return &domain.InsufficientStockError{
			ItemID: l.itemID, LocationID: l.locationID, UOM: l.uom,
			Requested: qty, Available: l.remainingQuantity,
		}
	}
	l.remainingQuantity = l.remainingQuantity.Sub(qty)
	l.extendedCost = l.extendedCost.Sub(qty.Mul(l.unitCost))
	return nil
}

// Void anula la capa (remanente a cero). Una capa anulada no puede reactivarse.
func (l *CostLayer) Void(at time.Time) error {
	if l.IsVoided() {
		return fmt.Errorf("layer %s: %w", l.id, domain.ErrLayerVoided)
	}
	l.remainingQuantity = decimal.Zero
	l.extendedCost = decimal.Zero
	l.voidedAt = &at
	return nil
}

// SetNotes actualiza las notas (campo mutable).
func (l *CostLayer) SetNotes(notes string) {
	l.notes = notes
}

// CostLayerConsumption registra que un movimiento consumió cantidad de una capa a su costo unitario.
type CostLayerConsumption struct {
	ID             string
	TenantID       string
	LayerID        string
	MovementID     string
	MovementLineID string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	ExtendedCost   decimal.Decimal // = Quantity × UnitCost
	CreatedAt      time.Time
}

// NewConsumption construye el consumo con costo extendido exacto.
func NewConsumption(id string, layer *CostLayer, movementID, lineID string, qty decimal.Decimal, at time.Time) CostLayerConsumption {
	return CostLayerConsumption{
		ID:             id,
		TenantID:       layer.TenantID(),
		LayerID:        layer.ID(),
		MovementID:     movementID,
		MovementLineID: lineID,
		Quantity:       qty,
		UnitCost:       layer.UnitCost(),
		ExtendedCost:   qty.Mul(layer.UnitCost()),
		CreatedAt:      at,
	}
}

// CostLayerTransferLink vincula una capa origen con la capa destino creada por un traslado.
type CostLayerTransferLink struct {
	ID            string
	TenantID      string
	MovementID    string
	SourceLayerID string
	DestLayerID   string
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	CreatedAt     time.Time
}

// NewTransferLink valida paridad de dimensiones (ítem, unidad) y de costo entre capas vinculadas.
func NewTransferLink(id string, src, dst *CostLayer, movementID string, consumption CostLayerConsumption, at time.Time) (CostLayerTransferLink, error) {
	if src.ItemID() != dst.ItemID() || src.UOM() != dst.UOM() {
		return CostLayerTransferLink{}, domain.Invalid("transfer_link", "ítem y unidad deben coincidir entre capas")
	}
	if !consumption.Quantity.Equal(dst.OriginalQuantity()) || !consumption.UnitCost.Equal(dst.UnitCost()) {
		return CostLayerTransferLink{}, domain.Invalid("transfer_link", "cantidad y costo deben coincidir con el consumo")
	}
	return CostLayerTransferLink{
		ID:            id,
		TenantID:      src.TenantID(),
		MovementID:    movementID,
		SourceLayerID: src.ID(),
		DestLayerID:   dst.ID(),
		Quantity:      consumption.Quantity,
		UnitCost:      consumption.UnitCost,
		CreatedAt:     at,
	}, nil
}
