package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-core/internal/application/dto"
	"github.com/jhoicas/inventario-core/internal/domain"
)

// IdempotencyKeyHeader header con la llave de idempotencia de las operaciones que contabilizan.
const IdempotencyKeyHeader = "Idempotency-Key"

var errBadBody = errors.New("cuerpo inválido")

// statusOf traduce la clase de error de dominio a un código HTTP.
func statusOf(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindAvailability, domain.KindIdempotencyConflict:
		return fiber.StatusUnprocessableEntity
	case domain.KindStateConflict, domain.KindIncompleteExecution:
		return fiber.StatusConflict
	case domain.KindScopeMismatch:
		return fiber.StatusForbidden
	case domain.KindConcurrencyExhausted:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError responde con el código de la clase de error y su mensaje.
func writeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errBadBody) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: err.Error()})
	}
	kind := domain.KindOf(err)
	if kind == domain.KindConcurrencyExhausted {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	return c.Status(statusOf(kind)).JSON(dto.ErrorResponse{Code: string(kind), Message: err.Error()})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "tenant_id requerido"})
}

// parseBody decodifica el cuerpo JSON; los errores de formato se reportan como INVALID_BODY.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return errBadBody
	}
	return nil
}
