package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCache caché en mapa que cuenta aciertos e invalidaciones. beforeSet, si existe, corre
// una sola vez antes de guardar la primera vista.
type recordingCache struct {
	mu            sync.Mutex
	entries       map[string]*entity.AvailabilityView
	gens          map[string]int64
	hits          int
	invalidations map[string]int
	beforeSet     func()
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		entries:       map[string]*entity.AvailabilityView{},
		gens:          map[string]int64{},
		invalidations: map[string]int{},
	}
}

func (c *recordingCache) Get(_ context.Context, tenantID, itemID, field string) (*entity.AvailabilityView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[tenantID+"|"+itemID+"|"+field]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *recordingCache) Version(_ context.Context, tenantID, itemID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[tenantID+"|"+itemID], nil
}

func (c *recordingCache) Set(_ context.Context, tenantID, itemID, field string, version int64, view *entity.AvailabilityView) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[tenantID+"|"+itemID] != version {
		return nil
	}
	c.entries[tenantID+"|"+itemID+"|"+field] = view
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, tenantID, itemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := tenantID + "|" + itemID + "|"
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
	c.gens[tenantID+"|"+itemID]++
	c.invalidations[itemID]++
	return nil
}

func TestGetAvailability_AlcanceUbicacionYBodega(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "10", "1")
	f.receive(t, f.item.ID, f.locB.ID, "4", "1")
	f.receive(t, f.item.ID, f.locQA.ID, "6", "1")
	f.reserve(t, "3", "SO-1")

	loc, err := f.availability.GetAvailability(f.ctx, inventory.AvailabilityQuery{
		TenantID: testTenant, LocationID: f.locA.ID, ItemID: f.item.ID, UOM: "EA",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.AvailabilityScopeLocation, loc.Scope)
	requireDec(t, "10", loc.Total.OnHand)
	requireDec(t, "3", loc.Total.Reserved)
	requireDec(t, "7", loc.Total.Available)
	assert.Equal(t, f.warehouse.ID, loc.Total.WarehouseID)

	all, err := f.availability.GetAvailability(f.ctx, inventory.AvailabilityQuery{
		TenantID: testTenant, WarehouseID: f.warehouse.ID, ItemID: f.item.ID, UOM: "EA",
	})
	require.NoError(t, err)
	requireDec(t, "20", all.Total.OnHand, "incluye la ubicación de calidad")
	requireDec(t, "17", all.Total.Available)
	assert.Len(t, all.Locations, 3)

	sellable, err := f.availability.GetAvailability(f.ctx, inventory.AvailabilityQuery{
		TenantID: testTenant, WarehouseID: f.warehouse.ID, ItemID: f.item.ID, UOM: "EA", SellableOnly: true,
	})
	require.NoError(t, err)
	requireDec(t, "14", sellable.Total.OnHand, "solo ubicaciones SELLABLE")
	requireDec(t, "11", sellable.Total.Available)
}

func TestGetAvailability_ValidacionesDeAlcance(t *testing.T) {
	f := newFixture(t)
	other, err := f.catalog.CreateWarehouse(f.ctx, testTenant, "Bodega Norte", "")
	require.NoError(t, err)

	_, err = f.availability.GetAvailability(f.ctx, inventory.AvailabilityQuery{
		TenantID: testTenant, WarehouseID: other.ID, LocationID: f.locA.ID, ItemID: f.item.ID, UOM: "EA",
	})
	assert.ErrorIs(t, err, domain.ErrScopeMismatch)

	_, err = f.availability.GetAvailability(f.ctx, inventory.AvailabilityQuery{
		TenantID: testTenant, ItemID: f.item.ID, UOM: "EA",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.availability.GetAvailability(f.ctx, inventory.AvailabilityQuery{
		TenantID: testTenant, WarehouseID: "no-existe", ItemID: f.item.ID, UOM: "EA",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	empty, err := f.availability.GetAvailability(f.ctx, inventory.AvailabilityQuery{
		TenantID: testTenant, LocationID: f.locB.ID, ItemID: f.item.ID, UOM: "EA",
	})
	require.NoError(t, err)
	requireDec(t, "0", empty.Total.Available, "sin saldo la vista es cero")
}

func TestGetAvailability_CacheSeInvalidaTrasElCommit(t *testing.T) {
	cache := newRecordingCache()
	f := newFixture(t, inventory.WithCache(cache))
	f.receive(t, f.item.ID, f.locA.ID, "10", "1")
	q := inventory.AvailabilityQuery{TenantID: testTenant, LocationID: f.locA.ID, ItemID: f.item.ID, UOM: "EA"}

	first, err := f.availability.GetAvailability(f.ctx, q)
	require.NoError(t, err)
	requireDec(t, "10", first.Total.Available)
	_, err = f.availability.GetAvailability(f.ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	_, err = f.adjust(t, f.item.ID, f.locA.ID, "-4")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cache.invalidations[f.item.ID], 2)

	after, err := f.availability.GetAvailability(f.ctx, q)
	require.NoError(t, err)
	requireDec(t, "6", after.Total.Available, "no se sirve una vista obsoleta")
}

func TestGetAvailability_VistaCalculadaAntesDelCommitNoSeCachea(t *testing.T) {
	cache := newRecordingCache()
	f := newFixture(t, inventory.WithCache(cache))
	f.receive(t, f.item.ID, f.locA.ID, "10", "1")
	q := inventory.AvailabilityQuery{TenantID: testTenant, LocationID: f.locA.ID, ItemID: f.item.ID, UOM: "EA"}

	// Un ajuste se confirma entre el cálculo de la vista y su escritura en caché.
	cache.beforeSet = func() {
		_, err := f.adjust(t, f.item.ID, f.locA.ID, "-4")
		require.NoError(t, err)
	}
	stale, err := f.availability.GetAvailability(f.ctx, q)
	require.NoError(t, err)
	requireDec(t, "10", stale.Total.Available)

	fresh, err := f.availability.GetAvailability(f.ctx, q)
	require.NoError(t, err)
	requireDec(t, "6", fresh.Total.Available, "la vista previa al commit no queda en caché")
	assert.Zero(t, cache.hits)
}

func TestGetAvailability_VistaVendibleVenceConElLote(t *testing.T) {
	f := newFixture(t)
	lotted := f.newItem(t, "LOT-201", true)
	soon := time.Now().Add(time.Hour)
	lot := f.lot(t, lotted.ID, "L-PRONTO", soon)
	f.receiveLot(t, lotted.ID, lot.ID, "4", "1")

	view, err := f.availability.GetAvailability(f.ctx, inventory.AvailabilityQuery{
		TenantID: testTenant, LocationID: f.locA.ID, ItemID: lotted.ID, UOM: "EA", SellableOnly: true,
	})
	require.NoError(t, err)
	requireDec(t, "4", view.Total.Available)
	require.NotNil(t, view.ValidUntil)
	assert.True(t, view.ValidUntil.Equal(soon))
	assert.Equal(t, 30*time.Minute, view.Lifetime(30*time.Minute, time.Now()))
	assert.Zero(t, view.Lifetime(30*time.Minute, soon.Add(time.Second)))
}

func TestValuation_DesdeCamposAutoritativos(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "3", "1.5")
	f.receive(t, f.item.ID, f.locA.ID, "2", "4")

	v, err := f.availability.Valuation(f.ctx, testTenant, f.item.ID, f.locA.ID, "EA")
	require.NoError(t, err)
	requireDec(t, "5", v.Quantity)
	requireDec(t, "12.5", v.Value)

	_, err = f.availability.Valuation(f.ctx, testTenant, f.item.ID, "", "EA")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
