package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-core/internal/application/dto"
	"github.com/jhoicas/inventario-core/internal/application/inventory"
)

// AvailabilityHandler consultas ATP, valoración y reconciliación (protegido).
type AvailabilityHandler struct {
	availability *inventory.AvailabilityUseCase
	reconcile    *inventory.ReconcileUseCase
}

// NewAvailabilityHandler construye el handler.
func NewAvailabilityHandler(availability *inventory.AvailabilityUseCase, reconcile *inventory.ReconcileUseCase) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, reconcile: reconcile}
}

// GetAvailability godoc
// @Summary      Disponibilidad (ATP)
// @Description  Alcance por bodega (warehouse_id) o por ubicación (location_id). Si llegan ambos,
//
//	la ubicación debe pertenecer a la bodega.
//
// @Tags         availability
// @Security     Bearer
// @Produce      json
// @Param        item_id        query  string  true   "ID del ítem"
// @Param        uom            query  string  true   "Unidad"
// @Param        warehouse_id   query  string  false  "Bodega"
// @Param        location_id    query  string  false  "Ubicación"
// @Param        sellable_only  query  bool    false  "Solo ubicaciones vendibles y lotes vigentes"
// @Success      200  {object}  dto.AvailabilityResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/inventory/availability [get]
func (h *AvailabilityHandler) GetAvailability(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	view, err := h.availability.GetAvailability(c.Context(), inventory.AvailabilityQuery{
		TenantID:     tenantID,
		WarehouseID:  c.Query("warehouse_id"),
		LocationID:   c.Query("location_id"),
		ItemID:       c.Query("item_id"),
		UOM:          c.Query("uom"),
		SellableOnly: c.QueryBool("sellable_only", false),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromAvailability(view))
}

// GetValuation godoc
// @Summary      Valoración FIFO de un ítem en una ubicación
// @Tags         availability
// @Security     Bearer
// @Produce      json
// @Param        item_id      query  string  true  "ID del ítem"
// @Param        location_id  query  string  true  "Ubicación"
// @Param        uom          query  string  true  "Unidad"
// @Success      200  {object}  dto.ValuationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/valuation [get]
func (h *AvailabilityHandler) GetValuation(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	v, err := h.availability.Valuation(c.Context(), tenantID, c.Query("item_id"), c.Query("location_id"), c.Query("uom"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ValuationResponse{
		ItemID: v.ItemID, LocationID: v.LocationID, UOM: v.UOM, Quantity: v.Quantity, Value: v.Value,
	})
}

// Reconcile godoc
// @Summary      Reconciliar saldos contra el ledger y las reservas abiertas
// @Tags         availability
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ReconcileResponse
// @Router       /api/inventory/reconcile [post]
func (h *AvailabilityHandler) Reconcile(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	divs, err := h.reconcile.Reconcile(c.Context(), tenantID)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.ReconcileResponse{Clean: len(divs) == 0, Divergences: make([]dto.DivergenceResponse, 0, len(divs))}
	for _, d := range divs {
		out.Divergences = append(out.Divergences, dto.DivergenceResponse{
			ItemID: d.Key.ItemID, LocationID: d.Key.LocationID, UOM: d.Key.UOM,
			Field: d.Field, Expected: d.Expected, Actual: d.Actual,
		})
	}
	return c.JSON(out)
}
