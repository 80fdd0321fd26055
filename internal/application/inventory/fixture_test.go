package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-core/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// fixture arma el núcleo completo sobre el almacén en memoria con un catálogo
// mínimo: una bodega con dos ubicaciones vendibles, una de calidad y una de
// desperdicio, más un ítem en unidad base EA con conversión CAJA = 12 EA.
// ──────────────────────────────────────────────────────────────────────────────

const testTenant = "tenant-a"

type fixture struct {
	ctx   context.Context
	store *memory.Store
	exec  *inventory.Executor

	catalog      *inventory.CatalogUseCase
	adjustments  *inventory.AdjustmentUseCase
	receipts     *inventory.ReceiptUseCase
	transfers    *inventory.TransferUseCase
	counts       *inventory.CycleCountUseCase
	workOrders   *inventory.WorkOrderUseCase
	reservations *inventory.ReservationUseCase
	availability *inventory.AvailabilityUseCase
	reconcile    *inventory.ReconcileUseCase

	warehouse *entity.Warehouse
	locA      *entity.Location
	locB      *entity.Location
	locQA     *entity.Location
	locScrap  *entity.Location
	item      *entity.Item
}

func newFixture(t *testing.T, opts ...inventory.ExecutorOption) *fixture {
	t.Helper()
	store := memory.NewStore()
	return newFixtureWithRunner(t, store, store, opts...)
}

func newFixtureWithRunner(t *testing.T, store *memory.Store, runner inventory.TxRunner, opts ...inventory.ExecutorOption) *fixture {
	t.Helper()
	log := logger.Nop()
	exec := inventory.NewExecutor(runner, log, opts...)
	f := &fixture{
		ctx:          context.Background(),
		store:        store,
		exec:         exec,
		catalog:      inventory.NewCatalogUseCase(exec),
		adjustments:  inventory.NewAdjustmentUseCase(exec),
		receipts:     inventory.NewReceiptUseCase(exec),
		transfers:    inventory.NewTransferUseCase(exec),
		counts:       inventory.NewCycleCountUseCase(exec),
		workOrders:   inventory.NewWorkOrderUseCase(exec),
		reservations: inventory.NewReservationUseCase(exec),
		availability: inventory.NewAvailabilityUseCase(exec, log),
		reconcile:    inventory.NewReconcileUseCase(exec, log, decimal.Zero),
	}

	var err error
	f.warehouse, err = f.catalog.CreateWarehouse(f.ctx, testTenant, "Bodega Central", "Calle 1")
	require.NoError(t, err)
	f.locA = f.location(t, f.warehouse.ID, "A-01", entity.LocationRoleSellable)
	f.locB = f.location(t, f.warehouse.ID, "A-02", entity.LocationRoleSellable)
	f.locQA = f.location(t, f.warehouse.ID, "QA-01", entity.LocationRoleQA)
	f.locScrap = f.location(t, f.warehouse.ID, "SC-01", entity.LocationRoleScrap)
	f.item = f.newItem(t, "SKU-001", false)
	_, err = f.catalog.SaveConversion(f.ctx, testTenant, f.item.ID, "CAJA", dec("12"))
	require.NoError(t, err)
	return f
}

func (f *fixture) location(t *testing.T, warehouseID, code, role string) *entity.Location {
	t.Helper()
	loc, err := f.catalog.CreateLocation(f.ctx, testTenant, warehouseID, code, role)
	require.NoError(t, err)
	return loc
}

func (f *fixture) newItem(t *testing.T, sku string, lotTracked bool) *entity.Item {
	t.Helper()
	item, err := f.catalog.CreateItem(f.ctx, inventory.ItemInput{
		TenantID: testTenant, SKU: sku, Name: "Ítem " + sku, BaseUOM: "EA", LotTracked: lotTracked,
	})
	require.NoError(t, err)
	return item
}

// receive contabiliza una recepción de una línea con una key nueva.
func (f *fixture) receive(t *testing.T, itemID, locationID, qty, cost string) *entity.Receipt {
	t.Helper()
	r, err := f.receipts.PostReceipt(f.ctx, inventory.ReceiptInput{
		TenantID:        testTenant,
		IdempotencyKey:  uuid.NewString(),
		PurchaseOrderID: "PO-" + uuid.NewString()[:8],
		Lines: []inventory.ReceiptLineInput{{
			ItemID: itemID, LocationID: locationID, UOM: "EA", Quantity: dec(qty), UnitCost: dec(cost),
		}},
	})
	require.NoError(t, err)
	return r
}

// adjust contabiliza un ajuste de una línea en EA.
func (f *fixture) adjust(t *testing.T, itemID, locationID, qty string) (*entity.Movement, error) {
	t.Helper()
	return f.adjustments.PostAdjustment(f.ctx, inventory.AdjustmentInput{
		TenantID:       testTenant,
		IdempotencyKey: uuid.NewString(),
		Reason:         "prueba",
		Lines: []inventory.AdjustmentLine{{
			ItemID: itemID, LocationID: locationID, UOM: "EA", Quantity: dec(qty),
		}},
	})
}

func (f *fixture) balance(t *testing.T, itemID, locationID, uom string) *entity.Balance {
	t.Helper()
	var b *entity.Balance
	err := f.store.Run(f.ctx, func(repos inventory.Repos) error {
		var err error
		b, err = repos.Balances.Get(f.ctx, entity.BalanceKey{TenantID: testTenant, ItemID: itemID, LocationID: locationID, UOM: uom})
		return err
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) value(t *testing.T, itemID, locationID string) decimal.Decimal {
	t.Helper()
	v, err := f.availability.Valuation(f.ctx, testTenant, itemID, locationID, "EA")
	require.NoError(t, err)
	return v.Value
}

func (f *fixture) requireReconciled(t *testing.T) {
	t.Helper()
	divs, err := f.reconcile.Reconcile(f.ctx, testTenant)
	require.NoError(t, err)
	require.Empty(t, divs, "los saldos deben coincidir con el ledger y las reservas abiertas")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "esperado %s, obtenido %s %v", want, got.String(), msgAndArgs)
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
