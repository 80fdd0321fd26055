package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// Disponibilidad para reservas/envíos (on_hand − reserved − allocated).
	ErrInsufficientAvailability = errors.New("disponibilidad insuficiente")

	// Conflictos de estado.
	ErrInvalidState         = errors.New("transición de estado inválida")
	ErrLayerConsumed        = errors.New("la capa de costo ya fue consumida")
	ErrLayerVoided          = errors.New("la capa de costo está anulada")
	ErrReversalUnsupported  = errors.New("reversión no soportada")
	ErrMovementNotPosted    = errors.New("el movimiento no está contabilizado")
	ErrMovementNotDraft     = errors.New("el movimiento no está en borrador")
	ErrConservationViolated = errors.New("el valor consumido no coincide con el valor asignado")

	// Protocolo de idempotencia.
	ErrIdempotencyKeyRequired = errors.New("idempotency key requerida")
	ErrIdempotencyConflict    = errors.New("idempotency key reutilizada con otro payload")
	ErrIncompleteExecution    = errors.New("ejecución previa incompleta, requiere revisión")

	// Concurrencia: ErrSerialization es transitorio y se reintenta internamente;
	// ErrConcurrencyExhausted se expone cuando se agota el presupuesto.
	ErrSerialization        = errors.New("conflicto de serialización")
	ErrConcurrencyExhausted = errors.New("reintentos de concurrencia agotados")

	// Alcance (tenant / bodega).
	ErrScopeMismatch = errors.New("alcance de tenant o bodega inválido")
)

// Kind clasifica un error para que la capa externa decida si reintentar, compensar o escalar.
type Kind string

const (
	KindValidation           Kind = "VALIDATION"
	KindNotFound             Kind = "NOT_FOUND"
	KindAvailability         Kind = "AVAILABILITY"
	KindStateConflict        Kind = "STATE_CONFLICT"
	KindIdempotencyConflict  Kind = "IDEMPOTENCY_CONFLICT"
	KindIncompleteExecution  Kind = "INCOMPLETE_EXECUTION"
	KindConcurrencyExhausted Kind = "CONCURRENCY_EXHAUSTED"
	KindScopeMismatch        Kind = "SCOPE_MISMATCH"
	KindInternal             Kind = "INTERNAL"
)

// KindOf devuelve la clase de un error de dominio (KindInternal si no es reconocido).
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrIdempotencyKeyRequired):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInsufficientAvailability):
		return KindAvailability
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrLayerConsumed),
		errors.Is(err, ErrLayerVoided), errors.Is(err, ErrReversalUnsupported),
		errors.Is(err, ErrMovementNotPosted), errors.Is(err, ErrMovementNotDraft),
		errors.Is(err, ErrConflict), errors.Is(err, ErrConservationViolated):
		return KindStateConflict
	case errors.Is(err, ErrIdempotencyConflict):
		return KindIdempotencyConflict
	case errors.Is(err, ErrIncompleteExecution):
		return KindIncompleteExecution
	case errors.Is(err, ErrConcurrencyExhausted), errors.Is(err, ErrSerialization):
		return KindConcurrencyExhausted
	case errors.Is(err, ErrScopeMismatch), errors.Is(err, ErrForbidden):
		return KindScopeMismatch
	default:
		return KindInternal
	}
}

// IsRetryable indica si el error es transitorio (mismo idempotency key, mismo payload).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSerialization) || errors.Is(err, ErrConcurrencyExhausted)
}

// ValidationError detalla el campo rechazado antes de cualquier efecto.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrInvalidInput.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid construye un ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError lleva el contexto del faltante para que el llamador decida.
type InsufficientStockError struct {
	ItemID     string
	LocationID string
	UOM        string
	Requested  decimal.Decimal
	Available  decimal.Decimal
	// Reservation distingue disponibilidad (reservas/envíos) de existencias físicas/capas.
	Reservation bool
}

// Shortfall cantidad que falta para cubrir lo solicitado.
func (e *InsufficientStockError) Shortfall() decimal.Decimal {
	s := e.Requested.Sub(e.Available)
	if s.IsNegative() {
		return decimal.Zero
	}
	return s
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: item %s en %s (%s) solicitado %s, disponible %s, faltante %s",
		e.Unwrap().Error(), e.ItemID, e.LocationID, e.UOM,
		e.Requested.String(), e.Available.String(), e.Shortfall().String())
}

func (e *InsufficientStockError) Unwrap() error {
	if e.Reservation {
		return ErrInsufficientAvailability
	}
	return ErrInsufficientStock
}

// InvalidStateError transición no definida para el estado actual.
type InvalidStateError struct {
	Entity string
	ID     string
	State  string
	Action string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %s %s en estado %s no admite %s",
		ErrInvalidState.Error(), e.Entity, e.ID, e.State, e.Action)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// ScopeMismatchError tenant o bodega no coinciden con el recurso.
type ScopeMismatchError struct {
	Scope    string // "tenant" | "warehouse" | "location_role"
	Expected string
	Actual   string
}

func (e *ScopeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s esperado %q, recibido %q", ErrScopeMismatch.Error(), e.Scope, e.Expected, e.Actual)
}

func (e *ScopeMismatchError) Unwrap() error { return ErrScopeMismatch }

// IdempotencyError identifica la ejecución en conflicto o incompleta.
type IdempotencyError struct {
	Family string
	Key    string
	Err    error // ErrIdempotencyConflict | ErrIncompleteExecution
}

func (e *IdempotencyError) Error() string {
	return fmt.Sprintf("%s: %s/%s", e.Err.Error(), e.Family, e.Key)
}

func (e *IdempotencyError) Unwrap() error { return e.Err }
