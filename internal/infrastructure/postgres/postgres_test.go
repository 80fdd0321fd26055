package postgres_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-core/pkg/config"
	"github.com/jhoicas/inventario-core/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"
)

// ──────────────────────────────────────────────────────────────────────────────
// Pruebas de integración contra PostgreSQL real (testcontainers). Se omiten con
// -short o cuando no hay Docker disponible.
// ──────────────────────────────────────────────────────────────────────────────

const tenant = "tenant-pg"

func newTestPool(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("integración con PostgreSQL omitida en modo -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("inventario_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := postgres.NewMigrator(dsn, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	assert.False(t, dirty)
	require.NoError(t, m.Close())

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 16}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool, dsn
}

type pgFixture struct {
	ctx          context.Context
	pool         *pgxpool.Pool
	catalog      *inventory.CatalogUseCase
	receipts     *inventory.ReceiptUseCase
	adjustments  *inventory.AdjustmentUseCase
	transfers    *inventory.TransferUseCase
	reservations *inventory.ReservationUseCase
	availability *inventory.AvailabilityUseCase
	reconcile    *inventory.ReconcileUseCase

	warehouse *entity.Warehouse
	locA      *entity.Location
	locB      *entity.Location
	item      *entity.Item
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	pool, _ := newTestPool(t)
	log := logger.Nop()
	exec := inventory.NewExecutor(postgres.NewTxRunner(pool), log, inventory.WithMaxRetries(50))
	f := &pgFixture{
		ctx:          context.Background(),
		pool:         pool,
		catalog:      inventory.NewCatalogUseCase(exec),
		receipts:     inventory.NewReceiptUseCase(exec),
		adjustments:  inventory.NewAdjustmentUseCase(exec),
		transfers:    inventory.NewTransferUseCase(exec),
		reservations: inventory.NewReservationUseCase(exec),
		availability: inventory.NewAvailabilityUseCase(exec, log),
		reconcile:    inventory.NewReconcileUseCase(exec, log, decimal.Zero),
	}
	var err error
	f.warehouse, err = f.catalog.CreateWarehouse(f.ctx, tenant, "Bodega PG", "Calle 2")
	require.NoError(t, err)
	f.locA, err = f.catalog.CreateLocation(f.ctx, tenant, f.warehouse.ID, "A-01", entity.LocationRoleSellable)
	require.NoError(t, err)
	f.locB, err = f.catalog.CreateLocation(f.ctx, tenant, f.warehouse.ID, "A-02", entity.LocationRoleSellable)
	require.NoError(t, err)
	f.item, err = f.catalog.CreateItem(f.ctx, inventory.ItemInput{TenantID: tenant, SKU: "PG-001", Name: "Ítem PG", BaseUOM: "EA"})
	require.NoError(t, err)
	return f
}

func (f *pgFixture) receive(t *testing.T, key, qty, cost string) *entity.Receipt {
	t.Helper()
	r, err := f.receipts.PostReceipt(f.ctx, inventory.ReceiptInput{
		TenantID:        tenant,
		IdempotencyKey:  key,
		PurchaseOrderID: "PO-" + key,
		Lines: []inventory.ReceiptLineInput{{
			ItemID: f.item.ID, LocationID: f.locA.ID, UOM: "EA",
			Quantity: decimal.RequireFromString(qty), UnitCost: decimal.RequireFromString(cost),
		}},
	})
	require.NoError(t, err)
	return r
}

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "esperado %s, obtenido %s", want, got.String())
}

func TestPostgres_FIFOConsumoYReplay(t *testing.T) {
	f := newPGFixture(t)
	first := f.receive(t, "rcv-1", "5", "5")
	f.receive(t, "rcv-2", "10", "6")

	replay := f.receive(t, "rcv-1", "5", "5")
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, first.MovementID, replay.MovementID)

	m, err := f.adjustments.PostAdjustment(f.ctx, inventory.AdjustmentInput{
		TenantID: tenant, IdempotencyKey: "adj-1", Reason: "merma",
		Lines: []inventory.AdjustmentLine{{ItemID: f.item.ID, LocationID: f.locA.ID, UOM: "EA", Quantity: decimal.NewFromInt(-7)}},
	})
	require.NoError(t, err)
	require.Len(t, m.Lines, 1)
	require.NotNil(t, m.Lines[0].ExtendedCost)
	requireDec(t, "-37", *m.Lines[0].ExtendedCost)

	v, err := f.availability.Valuation(f.ctx, tenant, f.item.ID, f.locA.ID, "EA")
	require.NoError(t, err)
	requireDec(t, "8", v.Quantity)
	requireDec(t, "48", v.Value)

	divs, err := f.reconcile.Reconcile(f.ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, divs)
}

func TestPostgres_PayloadDistintoEsConflicto(t *testing.T) {
	f := newPGFixture(t)
	f.receive(t, "rcv-x", "5", "5")
	_, err := f.receipts.PostReceipt(f.ctx, inventory.ReceiptInput{
		TenantID: tenant, IdempotencyKey: "rcv-x", PurchaseOrderID: "PO-rcv-x",
		Lines: []inventory.ReceiptLineInput{{
			ItemID: f.item.ID, LocationID: f.locA.ID, UOM: "EA",
			Quantity: decimal.NewFromInt(6), UnitCost: decimal.NewFromInt(5),
		}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIdempotencyConflict)
}

func TestPostgres_TrasladoConservaValor(t *testing.T) {
	f := newPGFixture(t)
	f.receive(t, "rcv-t1", "5", "5")
	f.receive(t, "rcv-t2", "5", "6")

	_, err := f.transfers.Transfer(f.ctx, inventory.TransferInput{
		TenantID: tenant, IdempotencyKey: "trf-1",
		ItemID: f.item.ID, SourceLocationID: f.locA.ID, DestLocationID: f.locB.ID, UOM: "EA",
		Quantity: decimal.NewFromInt(7),
	})
	require.NoError(t, err)

	src, err := f.availability.Valuation(f.ctx, tenant, f.item.ID, f.locA.ID, "EA")
	require.NoError(t, err)
	dst, err := f.availability.Valuation(f.ctx, tenant, f.item.ID, f.locB.ID, "EA")
	require.NoError(t, err)
	requireDec(t, "18", src.Value)
	requireDec(t, "37", dst.Value)
	requireDec(t, "55", src.Value.Add(dst.Value))
}

func TestPostgres_ReservasConcurrentesSinSobreventa(t *testing.T) {
	f := newPGFixture(t)
	f.receive(t, "rcv-c", "10", "1")

	const attempts = 14
	var ok, short atomic.Int32
	g, ctx := errgroup.WithContext(f.ctx)
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := f.reservations.CreateReservation(ctx, inventory.CreateReservationInput{
				TenantID: tenant, WarehouseID: f.warehouse.ID, ItemID: f.item.ID, LocationID: f.locA.ID,
				UOM: "EA", Quantity: decimal.NewFromInt(1), DemandType: "SALES_ORDER", DemandID: uuid.NewString(),
			})
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

	view, err := f.availability.GetAvailability(f.ctx, inventory.AvailabilityQuery{
		TenantID: tenant, LocationID: f.locA.ID, ItemID: f.item.ID, UOM: "EA",
	})
	require.NoError(t, err)
	requireDec(t, "0", view.Total.Available)
	requireDec(t, "10", view.Total.Reserved)
}

// ──────────────────────────────────────────────────────────────────────────────
// Repositorios: garantías que el esquema aporta por sí mismo.
// ──────────────────────────────────────────────────────────────────────────────

func TestPostgres_ClaimDevuelveRegistroExistente(t *testing.T) {
	pool, _ := newTestPool(t)
	ctx := context.Background()
	repos := postgres.NewRepos(pool)

	rec := &entity.ExecutionRecord{
		TenantID: tenant, Family: entity.FamilyReceiptPost, Key: "k-1", RequestHash: "h1",
		Status: entity.ExecutionStatusInProgress, CreatedAt: time.Now().UTC(),
	}
	existing, err := repos.Executions.Claim(ctx, rec)
	require.NoError(t, err)
	assert.Nil(t, existing)

	require.NoError(t, repos.Executions.Complete(ctx, tenant, rec.Family, rec.Key, []string{"id-1"}, time.Now().UTC()))

	again, err := repos.Executions.Claim(ctx, &entity.ExecutionRecord{
		TenantID: tenant, Family: rec.Family, Key: rec.Key, RequestHash: "h2",
		Status: entity.ExecutionStatusInProgress, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, "h1", again.RequestHash)
	assert.Equal(t, []string{"id-1"}, again.ResultIDs)
	assert.True(t, again.HasResult())
}

func TestPostgres_OrigenDeCapaActivaEsUnico(t *testing.T) {
	pool, _ := newTestPool(t)
	ctx := context.Background()
	repos := postgres.NewRepos(pool)

	newLayer := func() *entity.CostLayer {
		l, err := entity.NewCostLayer(entity.NewCostLayerParams{
			ID: uuid.NewString(), TenantID: tenant, ItemID: uuid.NewString(), LocationID: uuid.NewString(), UOM: "EA",
			Quantity: decimal.NewFromInt(4), UnitCost: decimal.NewFromInt(3),
			SourceType: entity.LayerSourceReceipt, SourceID: "line-1", CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
		return l
	}

	first, created, err := repos.Layers.Insert(ctx, newLayer())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Positive(t, first.Sequence())

	dup, created, err := repos.Layers.Insert(ctx, newLayer())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID(), dup.ID())

	c := entity.NewConsumption(uuid.NewString(), first, uuid.NewString(), "", decimal.NewFromInt(5), time.Now().UTC())
	err = repos.Layers.ApplyConsumption(ctx, first, c)
	assert.ErrorIs(t, err, domain.ErrSerialization)

	c = entity.NewConsumption(uuid.NewString(), first, uuid.NewString(), "", decimal.NewFromInt(1), time.Now().UTC())
	require.NoError(t, repos.Layers.ApplyConsumption(ctx, first, c))

	require.NoError(t, first.Void(time.Now().UTC()))
	assert.ErrorIs(t, repos.Layers.Void(ctx, first), domain.ErrLayerConsumed)
}

func TestPostgres_AjustesCruzadosBloqueanEnOrden(t *testing.T) {
	f := newPGFixture(t)
	f.receive(t, "rcv-o1", "10", "1")
	_, err := f.receipts.PostReceipt(f.ctx, inventory.ReceiptInput{
		TenantID: tenant, IdempotencyKey: "rcv-o2", PurchaseOrderID: "PO-rcv-o2",
		Lines: []inventory.ReceiptLineInput{{
			ItemID: f.item.ID, LocationID: f.locB.ID, UOM: "EA",
			Quantity: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(2),
		}},
	})
	require.NoError(t, err)

	// Mitad de los ajustes lista A antes que B y la otra mitad al revés; los saldos se bloquean
	// en el mismo orden sin importar el orden de las líneas.
	const workers = 8
	g, ctx := errgroup.WithContext(f.ctx)
	for i := 0; i < workers; i++ {
		first, second := f.locA.ID, f.locB.ID
		if i%2 == 1 {
			first, second = second, first
		}
		g.Go(func() error {
			_, err := f.adjustments.PostAdjustment(ctx, inventory.AdjustmentInput{
				TenantID: tenant, IdempotencyKey: uuid.NewString(), Reason: "merma cruzada",
				Lines: []inventory.AdjustmentLine{
					{LineNumber: 1, ItemID: f.item.ID, LocationID: first, UOM: "EA", Quantity: decimal.NewFromInt(-1)},
					{LineNumber: 2, ItemID: f.item.ID, LocationID: second, UOM: "EA", Quantity: decimal.NewFromInt(-1)},
				},
			})
			return err
		})
	}
	require.NoError(t, g.Wait(), "todos los ajustes se confirman, con o sin reintento")

	for _, loc := range []*entity.Location{f.locA, f.locB} {
		view, err := f.availability.GetAvailability(f.ctx, inventory.AvailabilityQuery{
			TenantID: tenant, LocationID: loc.ID, ItemID: f.item.ID, UOM: "EA",
		})
		require.NoError(t, err)
		requireDec(t, "2", view.Total.OnHand)
	}
	v, err := f.availability.Valuation(f.ctx, tenant, f.item.ID, f.locB.ID, "EA")
	require.NoError(t, err)
	requireDec(t, "4", v.Value)

	divs, err := f.reconcile.Reconcile(f.ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, divs)
}

func TestPostgres_DespachoOmiteLotesVencidos(t *testing.T) {
	f := newPGFixture(t)
	lotted, err := f.catalog.CreateItem(f.ctx, inventory.ItemInput{TenantID: tenant, SKU: "PG-LOT", Name: "Ítem con lote", BaseUOM: "EA", LotTracked: true})
	require.NoError(t, err)
	past := time.Now().UTC().Add(-24 * time.Hour)
	future := time.Now().UTC().Add(72 * time.Hour)
	expired, err := f.catalog.CreateLot(f.ctx, tenant, lotted.ID, "PG-VENCIDO", &past)
	require.NoError(t, err)
	fresh, err := f.catalog.CreateLot(f.ctx, tenant, lotted.ID, "PG-VIGENTE", &future)
	require.NoError(t, err)
	for _, in := range []struct{ lotID, qty, cost string }{{expired.ID, "5", "1"}, {fresh.ID, "3", "9"}} {
		_, err := f.receipts.PostReceipt(f.ctx, inventory.ReceiptInput{
			TenantID: tenant, IdempotencyKey: "rcv-" + in.lotID, PurchaseOrderID: "PO-LOT",
			Lines: []inventory.ReceiptLineInput{{
				ItemID: lotted.ID, LocationID: f.locA.ID, UOM: "EA", LotID: in.lotID,
				Quantity: decimal.RequireFromString(in.qty), UnitCost: decimal.RequireFromString(in.cost),
			}},
		})
		require.NoError(t, err)
	}

	q := inventory.AvailabilityQuery{TenantID: tenant, LocationID: f.locA.ID, ItemID: lotted.ID, UOM: "EA", SellableOnly: true}
	view, err := f.availability.GetAvailability(f.ctx, q)
	require.NoError(t, err)
	requireDec(t, "3", view.Total.Available)
	require.NotNil(t, view.ValidUntil)
	assert.WithinDuration(t, future, *view.ValidUntil, time.Millisecond)

	res, err := f.reservations.CreateReservation(f.ctx, inventory.CreateReservationInput{
		TenantID: tenant, WarehouseID: f.warehouse.ID, ItemID: lotted.ID, LocationID: f.locA.ID,
		UOM: "EA", Quantity: decimal.NewFromInt(3), DemandType: "SALES_ORDER", DemandID: "SO-PG-LOT",
	})
	require.NoError(t, err)
	require.Len(t, res.Reservations, 1)
	r := res.Reservations[0]
	_, err = f.reservations.Allocate(f.ctx, tenant, r.ID, "alloc-pg-lot")
	require.NoError(t, err)
	ful, err := f.reservations.Fulfill(f.ctx, tenant, r.ID, decimal.NewFromInt(3), "ship-pg-lot")
	require.NoError(t, err)

	m, err := f.adjustments.Get(f.ctx, tenant, ful.MovementID)
	require.NoError(t, err)
	require.Len(t, m.Lines, 1)
	require.NotNil(t, m.Lines[0].ExtendedCost)
	requireDec(t, "-27", *m.Lines[0].ExtendedCost)

	v, err := f.availability.Valuation(f.ctx, tenant, lotted.ID, f.locA.ID, "EA")
	require.NoError(t, err)
	requireDec(t, "5", v.Value)
}
