package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-core/internal/application/dto"
	"github.com/jhoicas/inventario-core/internal/application/inventory"
)

// WorkOrderHandler órdenes de trabajo y sus lotes de producción (protegido).
type WorkOrderHandler struct {
	uc *inventory.WorkOrderUseCase
}

// NewWorkOrderHandler construye el handler.
func NewWorkOrderHandler(uc *inventory.WorkOrderUseCase) *WorkOrderHandler {
	return &WorkOrderHandler{uc: uc}
}

// Create godoc
// @Summary      Crear orden de trabajo
// @Tags         work-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  inventory.WorkOrderInput  true  "Bodega, ítem de salida y cantidad planeada"
// @Success      201   {object}  dto.WorkOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/work-orders [post]
func (h *WorkOrderHandler) Create(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in inventory.WorkOrderInput
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	in.TenantID = tenantID
	wo, err := h.uc.CreateWorkOrder(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromWorkOrder(wo))
}

// PostBatch godoc
// @Summary      Contabilizar lote de producción
// @Description  Consume componentes por FIFO y asigna su costo a las salidas; el valor se conserva.
// @Tags         work-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                         true  "Llave de idempotencia"
// @Param        id               path    string                         true  "ID de la orden de trabajo"
// @Param        body             body    inventory.WorkOrderBatchInput  true  "Componentes consumidos y salidas"
// @Success      201   {object}  dto.WorkOrderExecutionResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/work-orders/{id}/batches [post]
func (h *WorkOrderHandler) PostBatch(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in inventory.WorkOrderBatchInput
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	in.TenantID, in.Actor, in.IdempotencyKey = tenantID, GetUserID(c), c.Get(IdempotencyKeyHeader)
	in.WorkOrderID = c.Params("id")
	exec, err := h.uc.PostWorkOrderBatch(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromWorkOrderExecution(exec))
}

// GetExecution godoc
// @Summary      Obtener lote de producción
// @Tags         work-orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la ejecución"
// @Success      200  {object}  dto.WorkOrderExecutionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/work-orders/executions/{id} [get]
func (h *WorkOrderHandler) GetExecution(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	exec, err := h.uc.GetExecution(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromWorkOrderExecution(exec))
}

// ReverseBatch godoc
// @Summary      Reversar lote de producción
// @Description  No soportado: responde 409 STATE_CONFLICT para una ejecución existente.
// @Tags         work-orders
// @Security     Bearer
// @Param        id   path  string  true  "ID de la ejecución"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/work-orders/executions/{id}/reverse [post]
func (h *WorkOrderHandler) ReverseBatch(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	if err := h.uc.ReverseBatch(c.Context(), tenantID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
