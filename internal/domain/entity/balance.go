package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceKey identifica un saldo por ítem-ubicación-unidad dentro de un tenant.
type BalanceKey struct {
	TenantID   string
	ItemID     string
	LocationID string
	UOM        string
}

// Less orden determinístico de bloqueo (ítem, ubicación, unidad).
func (k BalanceKey) Less(o BalanceKey) bool {
	if k.ItemID != o.ItemID {
		return k.ItemID < o.ItemID
	}
	if k.LocationID != o.LocationID {
		return k.LocationID < o.LocationID
	}
	return k.UOM < o.UOM
}

// Balance saldo materializado (proyección del ledger y de las reservas abiertas).
// OnHand debe igualar la suma de líneas del ledger; Reserved/Allocated la suma de reservas abiertas.
type Balance struct {
	TenantID   string
	ItemID     string
	LocationID string
	UOM        string
	OnHand     decimal.Decimal
	Reserved   decimal.Decimal
	Allocated  decimal.Decimal
	UpdatedAt  time.Time
}

// NewBalance saldo en cero para la llave.
func NewBalance(k BalanceKey) *Balance {
	return &Balance{
		TenantID:   k.TenantID,
		ItemID:     k.ItemID,
		LocationID: k.LocationID,
		UOM:        k.UOM,
		OnHand:     decimal.Zero,
		Reserved:   decimal.Zero,
		Allocated:  decimal.Zero,
	}
}

// Key llave del saldo.
func (b *Balance) Key() BalanceKey {
	return BalanceKey{TenantID: b.TenantID, ItemID: b.ItemID, LocationID: b.LocationID, UOM: b.UOM}
}

// Committed cantidad comprometida (reservada + asignada).
func (b *Balance) Committed() decimal.Decimal {
	return b.Reserved.Add(b.Allocated)
}

// Available on_hand − reserved − allocated.
func (b *Balance) Available() decimal.Decimal {
	return b.OnHand.Sub(b.Committed())
}
