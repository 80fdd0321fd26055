package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item representa un producto/SKU inventariable del tenant.
// BaseUOM es la unidad canónica usada para agregar cantidades entre unidades distintas.
type Item struct {
	ID         string
	TenantID   string
	SKU        string // código único por tenant
	Name       string
	BaseUOM    string
	LotTracked bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UOMConversion factor de una unidad alterna hacia la unidad base del ítem.
type UOMConversion struct {
	TenantID string
	ItemID   string
	UOM      string
	Factor   decimal.Decimal // cantidad_base = cantidad * Factor
}

// Lot lote de un ítem con vencimiento opcional.
type Lot struct {
	ID        string
	TenantID  string
	ItemID    string
	Code      string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// IsExpired indica si el lote está vencido en asOf.
func (l *Lot) IsExpired(asOf time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(asOf)
}
