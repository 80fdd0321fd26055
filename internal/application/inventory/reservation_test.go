package inventory_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func reserveInput(f *fixture, qty, demandID string) inventory.CreateReservationInput {
	return inventory.CreateReservationInput{
		TenantID:    testTenant,
		WarehouseID: f.warehouse.ID,
		ItemID:      f.item.ID,
		LocationID:  f.locA.ID,
		UOM:         "EA",
		Quantity:    dec(qty),
		DemandType:  "SALES_ORDER",
		DemandID:    demandID,
	}
}

func (f *fixture) reserve(t *testing.T, qty, demandID string) *entity.Reservation {
	t.Helper()
	res, err := f.reservations.CreateReservation(f.ctx, reserveInput(f, qty, demandID))
	require.NoError(t, err)
	require.Len(t, res.Reservations, 1)
	return res.Reservations[0]
}

func (f *fixture) sellable(t *testing.T) entity.Availability {
	t.Helper()
	view, err := f.availability.GetAvailability(f.ctx, inventory.AvailabilityQuery{
		TenantID: testTenant, LocationID: f.locA.ID, ItemID: f.item.ID, UOM: "EA", SellableOnly: true,
	})
	require.NoError(t, err)
	return view.Total
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario completo: recibir 10, reservar 3 y 2, asignar y despachar la de 2,
// cancelar la de 3. La disponibilidad termina igual al on-hand restante.
// ──────────────────────────────────────────────────────────────────────────────

func TestReservation_EscenarioCompleto(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "10", "2")

	r1 := f.reserve(t, "3", "SO-1")
	r2 := f.reserve(t, "2", "SO-2")
	requireDec(t, "5", f.sellable(t).Available)

	allocated, err := f.reservations.Allocate(f.ctx, testTenant, r2.ID, "alloc-r2")
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusAllocated, allocated.Status)

	ful, err := f.reservations.Fulfill(f.ctx, testTenant, r2.ID, dec("2"), "ship-r2")
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusFulfilled, ful.Reservation.Status)
	require.NotEmpty(t, ful.MovementID)

	b := f.balance(t, f.item.ID, f.locA.ID, "EA")
	requireDec(t, "8", b.OnHand)
	requireDec(t, "3", b.Reserved)
	requireDec(t, "0", b.Allocated)
	requireDec(t, "5", f.sellable(t).Available)
	requireDec(t, "16", f.value(t, f.item.ID, f.locA.ID), "el despacho consume FIFO")

	cancelled, err := f.reservations.Cancel(f.ctx, testTenant, r1.ID, "cliente desiste", "cancel-r1")
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusCancelled, cancelled.Status)

	a := f.sellable(t)
	requireDec(t, "8", a.Available)
	requireDec(t, "8", a.OnHand)
	f.requireReconciled(t)
}

func TestReservation_CumplimientoParcial(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "10", "1")
	r := f.reserve(t, "5", "SO-1")
	_, err := f.reservations.Allocate(f.ctx, testTenant, r.ID, "alloc")
	require.NoError(t, err)

	ful, err := f.reservations.Fulfill(f.ctx, testTenant, r.ID, dec("2"), "ship-1")
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusAllocated, ful.Reservation.Status)
	requireDec(t, "2", ful.Reservation.QuantityFulfilled)
	b := f.balance(t, f.item.ID, f.locA.ID, "EA")
	requireDec(t, "8", b.OnHand)
	requireDec(t, "3", b.Allocated)

	_, err = f.reservations.Fulfill(f.ctx, testTenant, r.ID, dec("4"), "ship-2")
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "no se cumple más de lo abierto")

	_, err = f.reservations.Cancel(f.ctx, testTenant, r.ID, "cierre", "cancel")
	require.NoError(t, err)
	b = f.balance(t, f.item.ID, f.locA.ID, "EA")
	requireDec(t, "0", b.Allocated)
	requireDec(t, "8", b.OnHand, "lo cumplido no se revierte")
	f.requireReconciled(t)
}

func TestReservation_TransicionesInvalidas(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "5", "1")
	r := f.reserve(t, "2", "SO-1")

	_, err := f.reservations.Fulfill(f.ctx, testTenant, r.ID, dec("1"), "ship")
	assert.ErrorIs(t, err, domain.ErrInvalidState, "RESERVED no se despacha sin asignar")

	_, err = f.reservations.Cancel(f.ctx, testTenant, r.ID, "x", "cancel")
	require.NoError(t, err)
	_, err = f.reservations.Allocate(f.ctx, testTenant, r.ID, "alloc")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = f.reservations.Cancel(f.ctx, testTenant, r.ID, "x", "cancel-2")
	assert.ErrorIs(t, err, domain.ErrInvalidState, "CANCELLED es terminal")

	_, err = f.reservations.Allocate(f.ctx, testTenant, "no-existe", "alloc-x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReservation_BackorderYFaltante(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "10", "1")

	_, err := f.reservations.CreateReservation(f.ctx, reserveInput(f, "15", "SO-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailability)
	var stock *domain.InsufficientStockError
	require.True(t, errors.As(err, &stock))
	requireDec(t, "5", stock.Shortfall())

	in := reserveInput(f, "15", "SO-1")
	in.AllowBackorder = true
	res, err := f.reservations.CreateReservation(f.ctx, in)
	require.NoError(t, err)
	require.Len(t, res.Reservations, 1)
	requireDec(t, "10", res.Reservations[0].QuantityReserved)
	require.NotNil(t, res.Backorder)
	requireDec(t, "5", res.Backorder.Quantity)
	assert.Equal(t, "SO-1", res.Backorder.DemandID)
	requireDec(t, "0", f.sellable(t).Available)
}

func TestReservation_UbicacionNoVendible(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locQA.ID, "10", "1")

	in := reserveInput(f, "1", "SO-1")
	in.LocationID = f.locQA.ID
	_, err := f.reservations.CreateReservation(f.ctx, in)
	assert.ErrorIs(t, err, domain.ErrScopeMismatch)
	assert.Equal(t, domain.KindScopeMismatch, domain.KindOf(err))
}

func TestReservation_IdempotenciaOpcional(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "10", "1")

	in := reserveInput(f, "4", "SO-1")
	in.IdempotencyKey = "res-1"
	first, err := f.reservations.CreateReservation(f.ctx, in)
	require.NoError(t, err)
	again, err := f.reservations.CreateReservation(f.ctx, in)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	require.Len(t, again.Reservations, 1)
	assert.Equal(t, first.Reservations[0].ID, again.Reservations[0].ID)
	requireDec(t, "4", f.balance(t, f.item.ID, f.locA.ID, "EA").Reserved)

	in.Quantity = dec("5")
	_, err = f.reservations.CreateReservation(f.ctx, in)
	assert.ErrorIs(t, err, domain.ErrIdempotencyConflict)
}

// ──────────────────────────────────────────────────────────────────────────────
// Sin sobreventa: N reservas concurrentes de 1 contra on-hand 10 dejan
// exactamente 10 reservas y el resto falla por disponibilidad.
// ──────────────────────────────────────────────────────────────────────────────

func TestReservation_ConcurrenciaSinSobreventa(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "10", "1")

	const attempts = 25
	var ok, short atomic.Int32
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			in := reserveInput(f, "1", "SO-C")
			_, err := f.reservations.CreateReservation(ctx, in)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientAvailability):
				short.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 10, ok.Load())
	assert.EqualValues(t, attempts-10, short.Load())

	b := f.balance(t, f.item.ID, f.locA.ID, "EA")
	requireDec(t, "10", b.Reserved)
	assert.False(t, b.Available().IsNegative())
	f.requireReconciled(t)
}

// ──────────────────────────────────────────────────────────────────────────────
// Lotes vencidos: cuentan en el on-hand del ledger pero no en la vista vendible.
// ──────────────────────────────────────────────────────────────────────────────

func TestReservation_LotesVencidosNoSonVendibles(t *testing.T) {
	f := newFixture(t)
	lotted := f.newItem(t, "LOT-001", true)
	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(30 * 24 * time.Hour)
	expired, err := f.catalog.CreateLot(f.ctx, testTenant, lotted.ID, "L-VENCIDO", &past)
	require.NoError(t, err)
	fresh, err := f.catalog.CreateLot(f.ctx, testTenant, lotted.ID, "L-VIGENTE", &future)
	require.NoError(t, err)

	for _, lot := range []struct{ id, qty string }{{expired.ID, "5"}, {fresh.ID, "3"}} {
		_, err := f.receipts.PostReceipt(f.ctx, inventory.ReceiptInput{
			TenantID:        testTenant,
			IdempotencyKey:  "rcv-" + lot.id,
			PurchaseOrderID: "PO-L",
			Lines: []inventory.ReceiptLineInput{{
				ItemID: lotted.ID, LocationID: f.locA.ID, UOM: "EA", LotID: lot.id, Quantity: dec(lot.qty), UnitCost: dec("1"),
			}},
		})
		require.NoError(t, err)
	}
	requireDec(t, "8", f.balance(t, lotted.ID, f.locA.ID, "EA").OnHand)

	view, err := f.availability.GetAvailability(f.ctx, inventory.AvailabilityQuery{
		TenantID: testTenant, WarehouseID: f.warehouse.ID, ItemID: lotted.ID, UOM: "EA", SellableOnly: true,
	})
	require.NoError(t, err)
	requireDec(t, "3", view.Total.OnHand)
	requireDec(t, "3", view.Total.Available)

	in := reserveInput(f, "4", "SO-L")
	in.ItemID = lotted.ID
	_, err = f.reservations.CreateReservation(f.ctx, in)
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailability)
	in.Quantity = dec("3")
	_, err = f.reservations.CreateReservation(f.ctx, in)
	require.NoError(t, err)
}
