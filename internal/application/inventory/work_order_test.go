package inventory_test

import (
	"testing"

	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// Producción: el costo de componentes (10 @ 3 = 30) se reparte por cantidad
// entre producto terminado (8) y desperdicio (2). Σ asignado == Σ consumido.
// ──────────────────────────────────────────────────────────────────────────────

func TestPostWorkOrderBatch_ConservaValorConDesperdicio(t *testing.T) {
	f := newFixture(t)
	finished := f.newItem(t, "PT-001", false)
	f.receive(t, f.item.ID, f.locA.ID, "10", "3")

	wo, err := f.workOrders.CreateWorkOrder(f.ctx, inventory.WorkOrderInput{
		TenantID: testTenant, WarehouseID: f.warehouse.ID, OutputItemID: finished.ID, QuantityPlanned: dec("10"),
	})
	require.NoError(t, err)

	in := inventory.WorkOrderBatchInput{
		TenantID:       testTenant,
		IdempotencyKey: "lote-1",
		WorkOrderID:    wo.ID,
		Consume:        []inventory.BatchConsumeLine{{ItemID: f.item.ID, LocationID: f.locA.ID, UOM: "EA", Quantity: dec("10")}},
		Produce: []inventory.BatchProduceLine{
			{ItemID: finished.ID, LocationID: f.locB.ID, UOM: "EA", Quantity: dec("8")},
			{ItemID: finished.ID, LocationID: f.locScrap.ID, UOM: "EA", Quantity: dec("2"), Scrap: true},
		},
	}
	ex, err := f.workOrders.PostWorkOrderBatch(f.ctx, in)
	require.NoError(t, err)
	requireDec(t, "30", ex.ComponentCost)
	requireDec(t, "24", ex.FinishedCost)
	requireDec(t, "6", ex.ScrapCost)
	assert.True(t, ex.ComponentCost.Equal(ex.FinishedCost.Add(ex.ScrapCost)))

	requireDec(t, "0", f.value(t, f.item.ID, f.locA.ID))
	requireDec(t, "24", f.value(t, finished.ID, f.locB.ID))
	requireDec(t, "6", f.value(t, finished.ID, f.locScrap.ID))
	f.requireReconciled(t)

	var updated *entity.WorkOrder
	require.NoError(t, f.store.Run(f.ctx, func(repos inventory.Repos) error {
		var err error
		updated, err = repos.WorkOrders.GetByID(f.ctx, testTenant, wo.ID)
		return err
	}))
	requireDec(t, "8", updated.QuantityCompleted, "el desperdicio no cuenta como completado")

	replay, err := f.workOrders.PostWorkOrderBatch(f.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, ex.ID, replay.ID)

	err = f.workOrders.ReverseBatch(f.ctx, testTenant, ex.ID)
	assert.ErrorIs(t, err, domain.ErrReversalUnsupported)
}

func TestPostWorkOrderBatch_ResiduoEnUltimaSalida(t *testing.T) {
	f := newFixture(t)
	finished := f.newItem(t, "PT-002", false)
	f.receive(t, f.item.ID, f.locA.ID, "1", "10")
	wo, err := f.workOrders.CreateWorkOrder(f.ctx, inventory.WorkOrderInput{
		TenantID: testTenant, WarehouseID: f.warehouse.ID, OutputItemID: finished.ID, QuantityPlanned: dec("3"),
	})
	require.NoError(t, err)

	ex, err := f.workOrders.PostWorkOrderBatch(f.ctx, inventory.WorkOrderBatchInput{
		TenantID:       testTenant,
		IdempotencyKey: "lote-3",
		WorkOrderID:    wo.ID,
		Consume:        []inventory.BatchConsumeLine{{ItemID: f.item.ID, LocationID: f.locA.ID, UOM: "EA", Quantity: dec("1")}},
		Produce:        []inventory.BatchProduceLine{{ItemID: finished.ID, LocationID: f.locB.ID, UOM: "EA", Quantity: dec("3")}},
	})
	require.NoError(t, err)
	requireDec(t, "10", ex.FinishedCost, "un tercio no se pierde en el redondeo")
	requireDec(t, "0", ex.ScrapCost)
}

func TestPostWorkOrderBatch_UbicacionFueraDeLaBodega(t *testing.T) {
	f := newFixture(t)
	other, err := f.catalog.CreateWarehouse(f.ctx, testTenant, "Bodega Norte", "")
	require.NoError(t, err)
	far := f.location(t, other.ID, "N-01", entity.LocationRoleSellable)
	f.receive(t, f.item.ID, far.ID, "5", "1")
	wo, err := f.workOrders.CreateWorkOrder(f.ctx, inventory.WorkOrderInput{
		TenantID: testTenant, WarehouseID: f.warehouse.ID, OutputItemID: f.item.ID, QuantityPlanned: dec("1"),
	})
	require.NoError(t, err)

	_, err = f.workOrders.PostWorkOrderBatch(f.ctx, inventory.WorkOrderBatchInput{
		TenantID:       testTenant,
		IdempotencyKey: "lote-x",
		WorkOrderID:    wo.ID,
		Consume:        []inventory.BatchConsumeLine{{ItemID: f.item.ID, LocationID: far.ID, UOM: "EA", Quantity: dec("1")}},
		Produce:        []inventory.BatchProduceLine{{ItemID: f.item.ID, LocationID: f.locA.ID, UOM: "EA", Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, domain.ErrScopeMismatch)
}
