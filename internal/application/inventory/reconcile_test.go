package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_DetectaDivergencias(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "10", "1")
	f.reserve(t, "2", "SO-1")
	f.requireReconciled(t)

	key := entity.BalanceKey{TenantID: testTenant, ItemID: f.item.ID, LocationID: f.locA.ID, UOM: "EA"}
	require.NoError(t, f.store.Run(f.ctx, func(repos inventory.Repos) error {
		b, err := repos.Balances.Get(f.ctx, key)
		if err != nil {
			return err
		}
		b.OnHand = b.OnHand.Add(dec("1"))
		b.Reserved = dec("0")
		return repos.Balances.Save(f.ctx, b)
	}))

	divs, err := f.reconcile.Reconcile(f.ctx, testTenant)
	require.NoError(t, err)
	require.Len(t, divs, 2)
	assert.Equal(t, inventory.FieldOnHand, divs[0].Field)
	requireDec(t, "10", divs[0].Expected)
	requireDec(t, "11", divs[0].Actual)
	assert.Equal(t, inventory.FieldReserved, divs[1].Field)
	requireDec(t, "2", divs[1].Expected)
	requireDec(t, "0", divs[1].Actual)
}

func TestReconcile_RunSeDetieneConElContexto(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.item.ID, f.locA.ID, "1", "1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.reconcile.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run no terminó tras cancelar el contexto")
	}
}
