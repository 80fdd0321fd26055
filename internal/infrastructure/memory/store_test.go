package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestRun_RollbackAnteError(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	item := &entity.Item{ID: "it-1", TenantID: "t1", SKU: "SKU", Name: "x", BaseUOM: "EA"}

	err := s.Run(ctx, func(repos inventory.Repos) error {
		require.NoError(t, repos.Items.Create(ctx, item))
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	require.NoError(t, s.Run(ctx, func(repos inventory.Repos) error {
		got, err := repos.Items.GetByID(ctx, "t1", "it-1")
		assert.Nil(t, got, "el ítem no debe sobrevivir al rollback")
		return err
	}))
}

func TestRun_RollbackAntePanico(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	assert.Panics(t, func() {
		_ = s.Run(ctx, func(repos inventory.Repos) error {
			_ = repos.Items.Create(ctx, &entity.Item{ID: "it-1", TenantID: "t1", SKU: "SKU"})
			panic("fallo")
		})
	})
	require.NoError(t, s.Run(ctx, func(repos inventory.Repos) error {
		got, err := repos.Items.GetByID(ctx, "t1", "it-1")
		assert.Nil(t, got)
		return err
	}))
}

func TestItems_SKUDuplicado(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	err := s.Run(ctx, func(repos inventory.Repos) error {
		require.NoError(t, repos.Items.Create(ctx, &entity.Item{ID: "a", TenantID: "t1", SKU: "SKU"}))
		require.NoError(t, repos.Items.Create(ctx, &entity.Item{ID: "b", TenantID: "t2", SKU: "SKU"}), "otro tenant")
		return repos.Items.Create(ctx, &entity.Item{ID: "c", TenantID: "t1", SKU: "SKU"})
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestExecutions_ClaimDevuelveElExistente(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	now := time.Now()
	rec := &entity.ExecutionRecord{TenantID: "t1", Family: "f", Key: "k", RequestHash: "h", Status: entity.ExecutionStatusInProgress}

	require.NoError(t, s.Run(ctx, func(repos inventory.Repos) error {
		existing, err := repos.Executions.Claim(ctx, rec)
		require.NoError(t, err)
		assert.Nil(t, existing, "el primer claim inserta")
		return repos.Executions.Complete(ctx, "t1", "f", "k", []string{"id-1"}, now)
	}))
	require.NoError(t, s.Run(ctx, func(repos inventory.Repos) error {
		existing, err := repos.Executions.Claim(ctx, rec)
		require.NoError(t, err)
		require.NotNil(t, existing)
		assert.Equal(t, entity.ExecutionStatusComplete, existing.Status)
		assert.Equal(t, []string{"id-1"}, existing.ResultIDs)
		assert.True(t, existing.HasResult())
		return nil
	}))
}

func TestCostLayers_OrigenActivoUnicoYConsumo(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	newLayer := func(id string) *entity.CostLayer {
		l, err := entity.NewCostLayer(entity.NewCostLayerParams{
			ID: id, TenantID: "t1", ItemID: "it", LocationID: "loc", UOM: "EA",
			Quantity: decimal.NewFromInt(5), UnitCost: decimal.NewFromInt(2),
			SourceType: entity.LayerSourceReceipt, SourceID: "rc-1:1", MovementID: "m1", CreatedAt: time.Now(),
		})
		require.NoError(t, err)
		return l
	}

	require.NoError(t, s.Run(ctx, func(repos inventory.Repos) error {
		stored, created, err := repos.Layers.Insert(ctx, newLayer("l1"))
		require.NoError(t, err)
		assert.True(t, created)
		assert.EqualValues(t, 1, stored.Sequence())

		dup, created, err := repos.Layers.Insert(ctx, newLayer("l2"))
		require.NoError(t, err)
		assert.False(t, created, "un origen solo tiene una capa activa")
		assert.Equal(t, "l1", dup.ID())

		c := entity.NewConsumption("c1", stored, "m2", "ln", decimal.NewFromInt(3), time.Now())
		require.NoError(t, repos.Layers.ApplyConsumption(ctx, stored, c))

		c2 := entity.NewConsumption("c2", stored, "m3", "ln", decimal.NewFromInt(3), time.Now())
		assert.ErrorIs(t, repos.Layers.ApplyConsumption(ctx, stored, c2), domain.ErrSerialization,
			"el remanente almacenado ya no cubre el consumo")

		assert.ErrorIs(t, repos.Layers.Void(ctx, stored), domain.ErrLayerConsumed)

		qty, value, err := repos.Layers.Valuation(ctx, entity.BalanceKey{TenantID: "t1", ItemID: "it", LocationID: "loc", UOM: "EA"})
		require.NoError(t, err)
		assert.True(t, qty.Equal(decimal.NewFromInt(2)))
		assert.True(t, value.Equal(decimal.NewFromInt(4)))
		return nil
	}))
}

func TestBalances_LockCreaFilasFaltantes(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	k := entity.BalanceKey{TenantID: "t1", ItemID: "it", LocationID: "loc", UOM: "EA"}

	require.NoError(t, s.Run(ctx, func(repos inventory.Repos) error {
		got, err := repos.Balances.LockForUpdate(ctx, []entity.BalanceKey{k})
		require.NoError(t, err)
		require.NotNil(t, got[k])
		assert.True(t, got[k].OnHand.IsZero())
		got[k].OnHand = decimal.NewFromInt(3)
		return repos.Balances.Save(ctx, got[k])
	}))
	require.NoError(t, s.Run(ctx, func(repos inventory.Repos) error {
		b, err := repos.Balances.Get(ctx, k)
		require.NoError(t, err)
		assert.True(t, b.OnHand.Equal(decimal.NewFromInt(3)))
		tenants, err := repos.Balances.ListTenants(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"t1"}, tenants)
		return nil
	}))
}
