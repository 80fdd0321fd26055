package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-core/internal/application/dto"
	"github.com/jhoicas/inventario-core/internal/application/inventory"
)

// ItemHandler maneja ítems, conversiones de unidad y lotes (protegido).
type ItemHandler struct {
	uc *inventory.CatalogUseCase
}

// NewItemHandler construye el handler.
func NewItemHandler(uc *inventory.CatalogUseCase) *ItemHandler {
	return &ItemHandler{uc: uc}
}

// Create godoc
// @Summary      Crear ítem
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateItemRequest  true  "SKU, nombre y unidad base"
// @Success      201   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/items [post]
func (h *ItemHandler) Create(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.CreateItemRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	item, err := h.uc.CreateItem(c.Context(), inventory.ItemInput{
		TenantID: tenantID, SKU: in.SKU, Name: in.Name, BaseUOM: in.BaseUOM, LotTracked: in.LotTracked,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromItem(item))
}

// GetByID godoc
// @Summary      Obtener ítem por ID
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del ítem"
// @Success      200  {object}  dto.ItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id} [get]
func (h *ItemHandler) GetByID(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	item, err := h.uc.GetItem(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromItem(item))
}

// SaveConversion godoc
// @Summary      Registrar conversión de unidad
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del ítem"
// @Param        body  body  dto.SaveConversionRequest  true  "Unidad y factor hacia la unidad base"
// @Success      200   {object}  dto.ConversionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/items/{id}/conversions [put]
func (h *ItemHandler) SaveConversion(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.SaveConversionRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	conv, err := h.uc.SaveConversion(c.Context(), tenantID, c.Params("id"), in.UOM, in.Factor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromConversion(conv))
}

// CreateLot godoc
// @Summary      Crear lote
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del ítem"
// @Param        body  body  dto.CreateLotRequest  true  "Código y vencimiento"
// @Success      201   {object}  dto.LotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/items/{id}/lots [post]
func (h *ItemHandler) CreateLot(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.CreateLotRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	lot, err := h.uc.CreateLot(c.Context(), tenantID, c.Params("id"), in.Code, in.ExpiresAt)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromLot(lot))
}
