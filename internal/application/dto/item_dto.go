package dto

import (
	"time"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CreateItemRequest entrada para crear un ítem.
type CreateItemRequest struct {
	SKU        string `json:"sku" validate:"required,min=1,max=100"`
	Name       string `json:"name" validate:"required,min=1,max=200"`
	BaseUOM    string `json:"base_uom" validate:"required"`
	LotTracked bool   `json:"lot_tracked"`
}

// ItemResponse salida de un ítem.
type ItemResponse struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	BaseUOM    string    `json:"base_uom"`
	LotTracked bool      `json:"lot_tracked"`
	CreatedAt  time.Time `json:"created_at"`
}

// SaveConversionRequest factor de una unidad alterna hacia la unidad base.
type SaveConversionRequest struct {
	UOM    string          `json:"uom" validate:"required"`
	Factor decimal.Decimal `json:"factor"`
}

// ConversionResponse conversión guardada.
type ConversionResponse struct {
	ItemID string          `json:"item_id"`
	UOM    string          `json:"uom"`
	Factor decimal.Decimal `json:"factor"`
}

// CreateLotRequest alta de lote con vencimiento opcional.
type CreateLotRequest struct {
	Code      string     `json:"code" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// LotResponse salida de un lote.
type LotResponse struct {
	ID        string     `json:"id"`
	ItemID    string     `json:"item_id"`
	Code      string     `json:"code"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func FromItem(it *entity.Item) ItemResponse {
	return ItemResponse{
		ID: it.ID, TenantID: it.TenantID, SKU: it.SKU, Name: it.Name,
		BaseUOM: it.BaseUOM, LotTracked: it.LotTracked, CreatedAt: it.CreatedAt,
	}
}

func FromConversion(c *entity.UOMConversion) ConversionResponse {
	return ConversionResponse{ItemID: c.ItemID, UOM: c.UOM, Factor: c.Factor}
}

func FromLot(l *entity.Lot) LotResponse {
	return LotResponse{ID: l.ID, ItemID: l.ItemID, Code: l.Code, ExpiresAt: l.ExpiresAt, CreatedAt: l.CreatedAt}
}
