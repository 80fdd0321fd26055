package inventory_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// Lotes y FIFO: las salidas con lote consumen solo capas de su lote, los
// despachos no consumen lotes vencidos y el stock vencido se mide sobre el
// remanente de las capas.
// ──────────────────────────────────────────────────────────────────────────────

func (f *fixture) lot(t *testing.T, itemID, code string, expiresAt time.Time) *entity.Lot {
	t.Helper()
	lot, err := f.catalog.CreateLot(f.ctx, testTenant, itemID, code, &expiresAt)
	require.NoError(t, err)
	return lot
}

func (f *fixture) receiveLot(t *testing.T, itemID, lotID, qty, cost string) {
	t.Helper()
	_, err := f.receipts.PostReceipt(f.ctx, inventory.ReceiptInput{
		TenantID:        testTenant,
		IdempotencyKey:  uuid.NewString(),
		PurchaseOrderID: "PO-LOT",
		Lines: []inventory.ReceiptLineInput{{
			ItemID: itemID, LocationID: f.locA.ID, UOM: "EA", LotID: lotID, Quantity: dec(qty), UnitCost: dec(cost),
		}},
	})
	require.NoError(t, err)
}

func (f *fixture) ship(t *testing.T, itemID, qty, demandID string) *entity.Movement {
	t.Helper()
	in := reserveInput(f, qty, demandID)
	in.ItemID = itemID
	res, err := f.reservations.CreateReservation(f.ctx, in)
	require.NoError(t, err)
	require.Len(t, res.Reservations, 1)
	r := res.Reservations[0]
	_, err = f.reservations.Allocate(f.ctx, testTenant, r.ID, "alloc-"+demandID)
	require.NoError(t, err)
	ful, err := f.reservations.Fulfill(f.ctx, testTenant, r.ID, dec(qty), "ship-"+demandID)
	require.NoError(t, err)
	m, err := f.adjustments.Get(f.ctx, testTenant, ful.MovementID)
	require.NoError(t, err)
	require.Len(t, m.Lines, 1)
	return m
}

func TestShipment_NoConsumeLotesVencidos(t *testing.T) {
	f := newFixture(t)
	lotted := f.newItem(t, "LOT-101", true)
	expired := f.lot(t, lotted.ID, "L-VENCIDO", time.Now().Add(-24*time.Hour))
	fresh := f.lot(t, lotted.ID, "L-VIGENTE", time.Now().Add(30*24*time.Hour))
	f.receiveLot(t, lotted.ID, expired.ID, "5", "1")
	f.receiveLot(t, lotted.ID, fresh.ID, "3", "9")

	m := f.ship(t, lotted.ID, "3", "SO-EXP")

	require.NotNil(t, m.Lines[0].ExtendedCost)
	requireDec(t, "-27", *m.Lines[0].ExtendedCost, "el despacho se costea con el lote vigente")
	requireDec(t, "5", f.value(t, lotted.ID, f.locA.ID), "queda solo el lote vencido")
	f.requireReconciled(t)
}

func TestPostAdjustment_LineaConLoteConsumeSuLote(t *testing.T) {
	f := newFixture(t)
	lotted := f.newItem(t, "LOT-102", true)
	lotA := f.lot(t, lotted.ID, "L-A", time.Now().Add(30*24*time.Hour))
	lotB := f.lot(t, lotted.ID, "L-B", time.Now().Add(60*24*time.Hour))
	f.receiveLot(t, lotted.ID, lotA.ID, "5", "1")
	f.receiveLot(t, lotted.ID, lotB.ID, "5", "9")

	writeOff := func(lotID, qty string) (*entity.Movement, error) {
		return f.adjustments.PostAdjustment(f.ctx, inventory.AdjustmentInput{
			TenantID:       testTenant,
			IdempotencyKey: uuid.NewString(),
			Reason:         "baja de lote",
			Lines: []inventory.AdjustmentLine{{
				ItemID: lotted.ID, LocationID: f.locA.ID, UOM: "EA", LotID: lotID, Quantity: dec(qty),
			}},
		})
	}

	m, err := writeOff(lotB.ID, "-2")
	require.NoError(t, err)
	require.NotNil(t, m.Lines[0].ExtendedCost)
	requireDec(t, "-18", *m.Lines[0].ExtendedCost, "la baja del lote B se costea con sus capas")
	requireDec(t, "32", f.value(t, lotted.ID, f.locA.ID))

	_, err = writeOff(lotA.ID, "-6")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "el remanente del lote B no cubre una baja del lote A")
	requireDec(t, "8", f.balance(t, lotted.ID, f.locA.ID, "EA").OnHand, "el fallo no deja efectos")
	f.requireReconciled(t)
}

func TestAvailability_LoteDespachadoNoCuentaComoVencido(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	f := newFixture(t, inventory.WithClock(func() time.Time { return now }))
	lotted := f.newItem(t, "LOT-103", true)
	lotA := f.lot(t, lotted.ID, "L-A", base.Add(time.Hour))
	lotB := f.lot(t, lotted.ID, "L-B", base.Add(30*24*time.Hour))
	f.receiveLot(t, lotted.ID, lotA.ID, "5", "1")
	f.receiveLot(t, lotted.ID, lotB.ID, "5", "2")

	m := f.ship(t, lotted.ID, "5", "SO-A")
	requireDec(t, "-5", *m.Lines[0].ExtendedCost, "FIFO despacha todo el lote A")

	now = base.Add(2 * time.Hour)
	requireDec(t, "5", f.balance(t, lotted.ID, f.locA.ID, "EA").OnHand)
	view, err := f.availability.GetAvailability(f.ctx, inventory.AvailabilityQuery{
		TenantID: testTenant, LocationID: f.locA.ID, ItemID: lotted.ID, UOM: "EA", SellableOnly: true,
	})
	require.NoError(t, err)
	requireDec(t, "5", view.Total.OnHand, "el lote A vencido ya no tiene remanente")
	requireDec(t, "5", view.Total.Available)

	in := reserveInput(f, "5", "SO-B")
	in.ItemID = lotted.ID
	_, err = f.reservations.CreateReservation(f.ctx, in)
	require.NoError(t, err)
	f.requireReconciled(t)
}
