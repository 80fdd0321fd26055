package dto

import (
	"time"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

// CreateWarehouseRequest entrada para crear una bodega.
type CreateWarehouseRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Address string `json:"address"`
}

// WarehouseResponse salida de una bodega.
type WarehouseResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateLocationRequest entrada para crear una ubicación dentro de una bodega.
type CreateLocationRequest struct {
	Code string `json:"code" validate:"required"`
	Role string `json:"role"` // SELLABLE, QA, HOLD, REJECT, SCRAP o vacío
}

// LocationResponse salida de una ubicación.
type LocationResponse struct {
	ID          string    `json:"id"`
	WarehouseID string    `json:"warehouse_id"`
	Code        string    `json:"code"`
	Role        string    `json:"role"`
	Sellable    bool      `json:"sellable"`
	CreatedAt   time.Time `json:"created_at"`
}

// LocationListResponse ubicaciones de una bodega.
type LocationListResponse struct {
	Items []LocationResponse `json:"items"`
}

func FromWarehouse(w *entity.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID: w.ID, TenantID: w.TenantID, Name: w.Name, Address: w.Address,
		CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt,
	}
}

func FromLocation(l *entity.Location) LocationResponse {
	return LocationResponse{
		ID: l.ID, WarehouseID: l.WarehouseID, Code: l.Code, Role: l.Role,
		Sellable: l.IsSellable(), CreatedAt: l.CreatedAt,
	}
}
