package entity

import "time"

// Warehouse representa una bodega donde se almacena inventario (multi-bodega, multi-tenant).
type Warehouse struct {
	ID        string
	TenantID  string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Roles de ubicación. Solo SELLABLE satisface reservas y ATP vendible.
const (
	LocationRoleSellable   = "SELLABLE"
	LocationRoleQA         = "QA"
	LocationRoleHold       = "HOLD"
	LocationRoleReject     = "REJECT"
	LocationRoleScrap      = "SCRAP"
	LocationRoleUnassigned = ""
)

// Location ubicación física dentro de exactamente una bodega.
type Location struct {
	ID          string
	TenantID    string
	WarehouseID string
	Code        string
	Role        string
	CreatedAt   time.Time
}

// IsSellable indica si la ubicación puede comprometerse con demanda de clientes.
func (l *Location) IsSellable() bool {
	return l.Role == LocationRoleSellable
}

// ValidLocationRole verifica que el rol sea uno de los soportados.
func ValidLocationRole(role string) bool {
	switch role {
	case LocationRoleSellable, LocationRoleQA, LocationRoleHold, LocationRoleReject, LocationRoleScrap, LocationRoleUnassigned:
		return true
	}
	return false
}
