package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-core/internal/application/dto"
	"github.com/jhoicas/inventario-core/internal/application/inventory"
)

// InventoryHandler maneja los documentos que contabilizan movimientos: ajustes, recepciones,
// traslados y conteos cíclicos (protegido).
type InventoryHandler struct {
	adjustments *inventory.AdjustmentUseCase
	receipts    *inventory.ReceiptUseCase
	transfers   *inventory.TransferUseCase
	counts      *inventory.CycleCountUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	adjustments *inventory.AdjustmentUseCase,
	receipts *inventory.ReceiptUseCase,
	transfers *inventory.TransferUseCase,
	counts *inventory.CycleCountUseCase,
) *InventoryHandler {
	return &InventoryHandler{adjustments: adjustments, receipts: receipts, transfers: transfers, counts: counts}
}

// PostAdjustment godoc
// @Summary      Contabilizar ajuste
// @Tags         adjustments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                     true  "Llave de idempotencia"
// @Param        body             body    inventory.AdjustmentInput  true  "Motivo y líneas con cantidad con signo"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) PostAdjustment(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in inventory.AdjustmentInput
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	in.TenantID, in.Actor, in.IdempotencyKey = tenantID, GetUserID(c), c.Get(IdempotencyKeyHeader)
	m, err := h.adjustments.PostAdjustment(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromMovement(m))
}

// SaveDraft godoc
// @Summary      Guardar ajuste en borrador
// @Tags         adjustments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  inventory.AdjustmentInput  true  "Motivo y líneas"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments/drafts [post]
func (h *InventoryHandler) SaveDraft(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in inventory.AdjustmentInput
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	in.TenantID, in.Actor = tenantID, GetUserID(c)
	m, err := h.adjustments.SaveDraft(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromMovement(m))
}

// PostDraft godoc
// @Summary      Contabilizar borrador
// @Tags         adjustments
// @Security     Bearer
// @Produce      json
// @Param        Idempotency-Key  header  string  true  "Llave de idempotencia"
// @Param        id               path    string  true  "ID del movimiento en borrador"
// @Success      200   {object}  dto.MovementResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments/{id}/post [post]
func (h *InventoryHandler) PostDraft(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	m, err := h.adjustments.PostDraft(c.Context(), tenantID, c.Params("id"), c.Get(IdempotencyKeyHeader))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromMovement(m))
}

// CancelDraft godoc
// @Summary      Descartar borrador
// @Tags         adjustments
// @Security     Bearer
// @Param        id   path  string  true  "ID del movimiento en borrador"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments/{id} [delete]
func (h *InventoryHandler) CancelDraft(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	if err := h.adjustments.Cancel(c.Context(), tenantID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// VoidAdjustment godoc
// @Summary      Anular ajuste contabilizado
// @Tags         adjustments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id               path    string           true   "ID del movimiento"
// @Param        Idempotency-Key  header  string           false  "Llave de idempotencia"
// @Param        body             body    dto.VoidRequest  true   "Motivo"
// @Success      200   {object}  dto.MovementResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments/{id}/void [post]
func (h *InventoryHandler) VoidAdjustment(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.VoidRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	rev, err := h.adjustments.Void(c.Context(), tenantID, c.Params("id"), in.Reason, GetUserID(c), c.Get(IdempotencyKeyHeader))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromMovement(rev))
}

// GetMovement godoc
// @Summary      Obtener movimiento del ledger
// @Tags         adjustments
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id} [get]
func (h *InventoryHandler) GetMovement(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	m, err := h.adjustments.Get(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromMovement(m))
}

// PostReceipt godoc
// @Summary      Contabilizar recepción de compra
// @Tags         receipts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                  true  "Llave de idempotencia"
// @Param        body             body    inventory.ReceiptInput  true  "Orden de compra y líneas con costo"
// @Success      201   {object}  dto.ReceiptResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/receipts [post]
func (h *InventoryHandler) PostReceipt(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in inventory.ReceiptInput
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	in.TenantID, in.Actor, in.IdempotencyKey = tenantID, GetUserID(c), c.Get(IdempotencyKeyHeader)
	r, err := h.receipts.PostReceipt(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromReceipt(r))
}

// GetReceipt godoc
// @Summary      Obtener recepción
// @Tags         receipts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la recepción"
// @Success      200  {object}  dto.ReceiptResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/receipts/{id} [get]
func (h *InventoryHandler) GetReceipt(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	r, err := h.receipts.Get(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromReceipt(r))
}

// VoidReceipt godoc
// @Summary      Anular recepción
// @Description  Solo si ninguna de sus capas fue consumida.
// @Tags         receipts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id               path    string           true   "ID de la recepción"
// @Param        Idempotency-Key  header  string           false  "Llave de idempotencia"
// @Param        body             body    dto.VoidRequest  true   "Motivo"
// @Success      200   {object}  dto.ReceiptResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/receipts/{id}/void [post]
func (h *InventoryHandler) VoidReceipt(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.VoidRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	r, err := h.receipts.VoidReceipt(c.Context(), tenantID, c.Params("id"), in.Reason, GetUserID(c), c.Get(IdempotencyKeyHeader))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromReceipt(r))
}

// PostTransfer godoc
// @Summary      Trasladar existencias entre ubicaciones
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                   true  "Llave de idempotencia"
// @Param        body             body    inventory.TransferInput  true  "Origen, destino, ítem y cantidad"
// @Success      201   {object}  dto.TransferResponse
// @Success      200   {object}  dto.TransferResponse  "repetición de una llave ya ejecutada"
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) PostTransfer(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in inventory.TransferInput
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	in.TenantID, in.Actor, in.IdempotencyKey = tenantID, GetUserID(c), c.Get(IdempotencyKeyHeader)
	res, err := h.transfers.Transfer(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusCreated
	if res.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.TransferResponse{
		MovementID: res.MovementID, Value: res.Value, Links: dto.FromTransferLinks(res.Links), Replayed: res.Replayed,
	})
}

// VoidTransfer godoc
// @Summary      Anular traslado
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id               path    string           true   "ID del movimiento de traslado"
// @Param        Idempotency-Key  header  string           false  "Llave de idempotencia"
// @Param        body             body    dto.VoidRequest  true   "Motivo"
// @Success      200   {object}  dto.MovementResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{id}/void [post]
func (h *InventoryHandler) VoidTransfer(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.VoidRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	rev, err := h.transfers.VoidTransfer(c.Context(), tenantID, c.Params("id"), in.Reason, GetUserID(c), c.Get(IdempotencyKeyHeader))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromMovement(rev))
}

// CreateCount godoc
// @Summary      Crear conteo cíclico
// @Tags         cycle-counts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  inventory.CycleCountInput  true  "Bodega y cantidades contadas"
// @Success      201   {object}  dto.CycleCountResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/counts [post]
func (h *InventoryHandler) CreateCount(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in inventory.CycleCountInput
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	in.TenantID = tenantID
	cc, err := h.counts.CreateCount(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromCycleCount(cc))
}

// PostCount godoc
// @Summary      Contabilizar conteo cíclico
// @Tags         cycle-counts
// @Security     Bearer
// @Produce      json
// @Param        Idempotency-Key  header  string  true  "Llave de idempotencia"
// @Param        id               path    string  true  "ID del conteo"
// @Success      200   {object}  dto.CycleCountResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/counts/{id}/post [post]
func (h *InventoryHandler) PostCount(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	cc, err := h.counts.PostCycleCount(c.Context(), tenantID, c.Params("id"), c.Get(IdempotencyKeyHeader))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromCycleCount(cc))
}

// GetCount godoc
// @Summary      Obtener conteo cíclico
// @Tags         cycle-counts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del conteo"
// @Success      200  {object}  dto.CycleCountResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/counts/{id} [get]
func (h *InventoryHandler) GetCount(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	cc, err := h.counts.Get(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromCycleCount(cc))
}
