package inventory_test

import (
	"testing"

	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) count(t *testing.T, locationID, counted string, cost *decimal.Decimal) *entity.CycleCount {
	t.Helper()
	c, err := f.counts.CreateCount(f.ctx, inventory.CycleCountInput{
		TenantID:    testTenant,
		WarehouseID: f.warehouse.ID,
		Lines: []inventory.CycleCountLineInput{{
			ItemID: f.item.ID, LocationID: locationID, UOM: "EA", CountedQuantity: dec(counted), UnitCost: cost,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusDraft, c.Status)
	return c
}

func TestPostCycleCount_FaltanteConsumeFIFO(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "4", "2")
	f.receive(t, f.item.ID, f.locA.ID, "6", "3")
	c := f.count(t, f.locA.ID, "7", nil)

	posted, err := f.counts.PostCycleCount(f.ctx, testTenant, c.ID, "count-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusPosted, posted.Status)
	require.NotEmpty(t, posted.MovementID)

	m, err := f.adjustments.Get(f.ctx, testTenant, posted.MovementID)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeCount, m.Type)
	requireDec(t, "-3", m.Lines[0].QuantityDelta)
	requireDec(t, "-6", *m.Lines[0].ExtendedCost, "3 unidades de la capa más antigua @ 2")
	requireDec(t, "7", f.balance(t, f.item.ID, f.locA.ID, "EA").OnHand)
	f.requireReconciled(t)

	replay, err := f.counts.PostCycleCount(f.ctx, testTenant, c.ID, "count-1")
	require.NoError(t, err)
	assert.Equal(t, posted.MovementID, replay.MovementID)
	_, err = f.counts.PostCycleCount(f.ctx, testTenant, c.ID, "count-2")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestPostCycleCount_SobranteConCosto(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "2", "2")
	cost := dec("5")
	c := f.count(t, f.locA.ID, "5", &cost)

	_, err := f.counts.PostCycleCount(f.ctx, testTenant, c.ID, "count-1")
	require.NoError(t, err)
	requireDec(t, "5", f.balance(t, f.item.ID, f.locA.ID, "EA").OnHand)
	requireDec(t, "19", f.value(t, f.item.ID, f.locA.ID), "2 @ 2 + 3 @ 5")
}

func TestPostCycleCount_SinDiferencia(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "2", "2")
	c := f.count(t, f.locA.ID, "2", nil)

	posted, err := f.counts.PostCycleCount(f.ctx, testTenant, c.ID, "count-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusPosted, posted.Status)
	assert.Empty(t, posted.MovementID)
}

func TestPostCycleCount_FaltanteNoRompeReservas(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "10", "1")
	f.reserve(t, "8", "SO-1")
	c := f.count(t, f.locA.ID, "5", nil)

	_, err := f.counts.PostCycleCount(f.ctx, testTenant, c.ID, "count-1")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	requireDec(t, "10", f.balance(t, f.item.ID, f.locA.ID, "EA").OnHand)
}

func TestCreateCount_UbicacionDeOtraBodega(t *testing.T) {
	f := newFixture(t)
	other, err := f.catalog.CreateWarehouse(f.ctx, testTenant, "Bodega Norte", "")
	require.NoError(t, err)
	far := f.location(t, other.ID, "N-01", entity.LocationRoleSellable)

	_, err = f.counts.CreateCount(f.ctx, inventory.CycleCountInput{
		TenantID:    testTenant,
		WarehouseID: f.warehouse.ID,
		Lines:       []inventory.CycleCountLineInput{{ItemID: f.item.ID, LocationID: far.ID, UOM: "EA", CountedQuantity: dec("1")}},
	})
	assert.ErrorIs(t, err, domain.ErrScopeMismatch)
}
