package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-core/internal/application/dto"
	"github.com/jhoicas/inventario-core/internal/application/inventory"
)

// ReservationHandler ciclo de vida de reservas (protegido).
type ReservationHandler struct {
	uc *inventory.ReservationUseCase
}

// NewReservationHandler construye el handler.
func NewReservationHandler(uc *inventory.ReservationUseCase) *ReservationHandler {
	return &ReservationHandler{uc: uc}
}

// Create godoc
// @Summary      Reservar disponibilidad
// @Description  Con allow_backorder el faltante queda como backorder; sin él, falla si no alcanza.
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                            false  "Llave de idempotencia"
// @Param        body             body    inventory.CreateReservationInput  true   "Demanda, ítem, ubicación y cantidad"
// @Success      201   {object}  dto.CreateReservationResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/reservations [post]
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in inventory.CreateReservationInput
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	in.TenantID, in.IdempotencyKey = tenantID, c.Get(IdempotencyKeyHeader)
	res, err := h.uc.CreateReservation(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusCreated
	if res.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.FromReservations(res.Reservations, res.Backorder, res.Replayed))
}

// GetByID godoc
// @Summary      Obtener reserva
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id} [get]
func (h *ReservationHandler) GetByID(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	r, err := h.uc.Get(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromReservation(r))
}

// Allocate godoc
// @Summary      Asignar reserva
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        Idempotency-Key  header  string  true  "Llave de idempotencia"
// @Param        id               path    string  true  "ID de la reserva"
// @Success      200   {object}  dto.ReservationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/allocate [post]
func (h *ReservationHandler) Allocate(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	r, err := h.uc.Allocate(c.Context(), tenantID, c.Params("id"), c.Get(IdempotencyKeyHeader))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromReservation(r))
}

// Fulfill godoc
// @Summary      Despachar contra una reserva asignada
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string              true  "Llave de idempotencia"
// @Param        id               path    string              true  "ID de la reserva"
// @Param        body             body    dto.FulfillRequest  true  "Cantidad despachada"
// @Success      200   {object}  dto.FulfillResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/fulfill [post]
func (h *ReservationHandler) Fulfill(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.FulfillRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	res, err := h.uc.Fulfill(c.Context(), tenantID, c.Params("id"), in.Quantity, c.Get(IdempotencyKeyHeader))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FulfillResponse{Reservation: dto.FromReservation(res.Reservation), MovementID: res.MovementID})
}

// Cancel godoc
// @Summary      Cancelar reserva
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                        true  "Llave de idempotencia"
// @Param        id               path    string                        true  "ID de la reserva"
// @Param        body             body    dto.CancelReservationRequest  true  "Motivo"
// @Success      200   {object}  dto.ReservationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.CancelReservationRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	r, err := h.uc.Cancel(c.Context(), tenantID, c.Params("id"), in.Reason, c.Get(IdempotencyKeyHeader))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromReservation(r))
}
