package entity_test

import (
	"testing"
	"time"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLayer(t *testing.T, qty, cost int64) *entity.CostLayer {
	t.Helper()
	l, err := entity.NewCostLayer(entity.NewCostLayerParams{
		ID: "l1", TenantID: "t1", ItemID: "it", LocationID: "loc", UOM: "EA",
		Quantity: decimal.NewFromInt(qty), UnitCost: decimal.NewFromInt(cost),
		SourceType: entity.LayerSourceReceipt, SourceID: "rc:1", CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	return l
}

func TestCostLayer_ConsumeNuncaNegativo(t *testing.T) {
	l := newLayer(t, 5, 2)
	require.NoError(t, l.Consume(decimal.NewFromInt(3)))
	assert.True(t, l.RemainingQuantity().Equal(decimal.NewFromInt(2)))
	assert.True(t, l.Value().Equal(decimal.NewFromInt(4)))
	assert.False(t, l.IsUntouched())

	err := l.Consume(decimal.NewFromInt(3))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, l.RemainingQuantity().Equal(decimal.NewFromInt(2)))
}

func TestCostLayer_AnuladaNoSeConsume(t *testing.T) {
	l := newLayer(t, 5, 2)
	require.NoError(t, l.Void(time.Now()))
	assert.True(t, l.RemainingQuantity().IsZero())
	assert.ErrorIs(t, l.Consume(decimal.NewFromInt(1)), domain.ErrLayerVoided)
	assert.ErrorIs(t, l.Void(time.Now()), domain.ErrLayerVoided)
}

func TestNewCostLayer_Validaciones(t *testing.T) {
	_, err := entity.NewCostLayer(entity.NewCostLayerParams{ItemID: "it", LocationID: "loc", UOM: "EA", Quantity: decimal.Zero, SourceType: "x", SourceID: "y"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = entity.NewCostLayer(entity.NewCostLayerParams{ItemID: "it", LocationID: "loc", UOM: "EA", Quantity: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(-1), SourceType: "x", SourceID: "y"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = entity.NewCostLayer(entity.NewCostLayerParams{ItemID: "it", LocationID: "loc", UOM: "EA", Quantity: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewTransferLink_ParidadDeCosto(t *testing.T) {
	src := newLayer(t, 5, 2)
	c := entity.NewConsumption("c1", src, "m1", "ln", decimal.NewFromInt(3), time.Now())
	dst, err := entity.NewCostLayer(entity.NewCostLayerParams{
		ID: "l2", TenantID: "t1", ItemID: "it", LocationID: "loc-2", UOM: "EA",
		Quantity: decimal.NewFromInt(3), UnitCost: decimal.NewFromInt(2),
		SourceType: entity.LayerSourceTransferIn, SourceID: "ln:l1",
	})
	require.NoError(t, err)

	link, err := entity.NewTransferLink("k1", src, dst, "m1", c, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "l1", link.SourceLayerID)
	assert.Equal(t, "l2", link.DestLayerID)

	other, err := entity.NewCostLayer(entity.NewCostLayerParams{
		ID: "l3", TenantID: "t1", ItemID: "it", LocationID: "loc-2", UOM: "EA",
		Quantity: decimal.NewFromInt(3), UnitCost: decimal.NewFromInt(5),
		SourceType: entity.LayerSourceTransferIn, SourceID: "ln:l1",
	})
	require.NoError(t, err)
	_, err = entity.NewTransferLink("k2", src, other, "m1", c, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMovement_NegateExacto(t *testing.T) {
	uc := decimal.RequireFromString("5.2857142857")
	ext := decimal.NewFromInt(-37)
	m := &entity.Movement{Lines: []entity.MovementLine{{
		LineNumber: 1, ItemID: "it", LocationID: "loc", UOM: "EA",
		QuantityDelta: decimal.NewFromInt(-7), CanonicalDelta: decimal.NewFromInt(-7),
		UnitCost: &uc, ExtendedCost: &ext,
	}}}
	rev := m.Negate()
	require.Len(t, rev, 1)
	assert.True(t, rev[0].QuantityDelta.Equal(decimal.NewFromInt(7)))
	assert.True(t, rev[0].ExtendedCost.Equal(decimal.NewFromInt(37)))
	assert.True(t, rev[0].UnitCost.Equal(uc))
	assert.NotSame(t, m.Lines[0].UnitCost, rev[0].UnitCost)
}
