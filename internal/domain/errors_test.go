package domain_test

import (
	"fmt"
	"testing"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestKindOf_Clasificacion(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domain.Kind
	}{
		{"validación", domain.Invalid("f", "r"), domain.KindValidation},
		{"key requerida", domain.ErrIdempotencyKeyRequired, domain.KindValidation},
		{"no encontrado envuelto", fmt.Errorf("get: %w", domain.ErrNotFound), domain.KindNotFound},
		{"stock", &domain.InsufficientStockError{Requested: decimal.NewFromInt(2)}, domain.KindAvailability},
		{"capa consumida", domain.ErrLayerConsumed, domain.KindStateConflict},
		{"estado", &domain.InvalidStateError{Entity: "reservation"}, domain.KindStateConflict},
		{"conflicto idempotencia", &domain.IdempotencyError{Err: domain.ErrIdempotencyConflict}, domain.KindIdempotencyConflict},
		{"incompleta", &domain.IdempotencyError{Err: domain.ErrIncompleteExecution}, domain.KindIncompleteExecution},
		{"concurrencia", domain.ErrConcurrencyExhausted, domain.KindConcurrencyExhausted},
		{"alcance", &domain.ScopeMismatchError{Scope: "warehouse"}, domain.KindScopeMismatch},
		{"desconocido", fmt.Errorf("otro"), domain.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.KindOf(tc.err))
		})
	}
	assert.Equal(t, domain.Kind(""), domain.KindOf(nil))
}

func TestInsufficientStockError_Disponibilidad(t *testing.T) {
	err := &domain.InsufficientStockError{Requested: decimal.NewFromInt(5), Available: decimal.NewFromInt(7), Reservation: true}
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailability)
	assert.True(t, err.Shortfall().IsZero())
}
