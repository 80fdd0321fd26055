package inventory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// unitCostPlaces precisión del costo unitario promedio registrado en líneas de salida.
const unitCostPlaces = 10

// layerCache capas abiertas y bloqueadas por llave durante una contabilización, para que
// varias líneas sobre la misma llave vean los remanentes ya descontados.
type layerCache map[entity.BalanceKey][]*entity.CostLayer

func (c layerCache) open(ctx context.Context, tx *Tx, k entity.BalanceKey) ([]*entity.CostLayer, error) {
	if layers, ok := c[k]; ok {
		return layers, nil
	}
	layers, err := tx.Layers.ListOpenForUpdate(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("list open layers: %w", err)
	}
	c[k] = layers
	return layers, nil
}

// consumeFIFO planifica y descuenta en memoria el consumo FIFO de una línea de salida.
// Una línea con lote solo consume capas de ese lote; un despacho no consume lotes vencidos.
// Fija el costo unitario promedio y el costo extendido (negativo) de la línea.
func consumeFIFO(ctx context.Context, tx *Tx, cache layerCache, movementID string, l *entity.MovementLine, shipment bool) ([]ConsumedSlice, decimal.Decimal, error) {
	k := l.Key(tx.TenantID)
	layers, err := cache.open(ctx, tx, k)
	if err != nil {
		return nil, decimal.Zero, err
	}
	filter := inventory.LayerFilter{LotID: l.LotID}
	if shipment {
		if filter.ExcludeLots, err = expiredLots(ctx, tx, layers); err != nil {
			return nil, decimal.Zero, err
		}
	}
	qty := l.QuantityDelta.Neg()
	plan, err := inventory.PlanFIFO(k, filter.Apply(layers), qty)
	if err != nil {
		return nil, decimal.Zero, err
	}
	out := make([]ConsumedSlice, 0, len(plan))
	total := decimal.Zero
	for _, s := range plan {
		if err := s.Layer.Consume(s.Quantity); err != nil {
			return nil, decimal.Zero, err
		}
		c := entity.NewConsumption(uuid.NewString(), s.Layer, movementID, l.ID, s.Quantity, tx.Now)
		out = append(out, ConsumedSlice{Layer: s.Layer, Consumption: c})
		total = total.Add(c.ExtendedCost)
	}
	unit := total.DivRound(qty, unitCostPlaces)
	ext := total.Neg()
	l.UnitCost, l.ExtendedCost = &unit, &ext
	return out, total, nil
}

// expiredLots lotes de las capas que están vencidos a tx.Now.
func expiredLots(ctx context.Context, tx *Tx, layers []*entity.CostLayer) (map[string]bool, error) {
	out := map[string]bool{}
	seen := map[string]bool{}
	for _, layer := range layers {
		id := layer.LotID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		lot, err := tx.Items.GetLot(ctx, tx.TenantID, id)
		if err != nil {
			return nil, fmt.Errorf("get lot: %w", err)
		}
		if lot != nil && lot.IsExpired(tx.Now) {
			out[id] = true
		}
	}
	return out, nil
}

// inboundSpec capa de una línea de entrada. Sin hook, usa el costo de la línea o, si falta,
// el promedio ponderado de las capas abiertas de la llave.
func inboundSpec(
	ctx context.Context,
	tx *Tx,
	cache layerCache,
	m *entity.Movement,
	l *entity.MovementLine,
	consumed decimal.Decimal,
	hook func(*entity.MovementLine, decimal.Decimal) (*LayerSpec, error),
) (*LayerSpec, error) {
	if hook != nil {
		return hook(l, consumed)
	}
	unit := decimal.Zero
	if l.UnitCost != nil {
		unit = *l.UnitCost
	} else {
		layers, err := cache.open(ctx, tx, l.Key(tx.TenantID))
		if err != nil {
			return nil, err
		}
		unit = inventory.AverageUnitCost(layers)
	}
	return &LayerSpec{
		SourceType: layerSourceFor(m.Type),
		SourceID:   lineSourceID(m, l),
		UnitCost:   unit,
	}, nil
}

func layerSourceFor(movementType string) string {
	switch movementType {
	case entity.MovementTypeReceive:
		return entity.LayerSourceReceipt
	case entity.MovementTypeCount:
		return entity.LayerSourceCount
	case entity.MovementTypeTransfer:
		return entity.LayerSourceTransferIn
	case entity.MovementTypeProduction:
		return entity.LayerSourceProduction
	default:
		return entity.LayerSourceAdjustment
	}
}

// lineSourceID identidad de origen de la capa: documento origen (o movimiento) y número de línea.
func lineSourceID(m *entity.Movement, l *entity.MovementLine) string {
	doc := m.SourceID
	if doc == "" {
		doc = m.ID
	}
	return doc + ":" + strconv.Itoa(l.LineNumber)
}

// insertLayer persiste una capa nueva; una capa activa existente para el mismo origen es un conflicto.
func insertLayer(ctx context.Context, tx *Tx, layer *entity.CostLayer) error {
	stored, created, err := tx.Layers.Insert(ctx, layer)
	if err != nil {
		return fmt.Errorf("insert cost layer: %w", err)
	}
	if !created {
		return fmt.Errorf("capa activa %s ya existe para %s/%s: %w",
			stored.ID(), layer.SourceType(), layer.SourceID(), domain.ErrConflict)
	}
	return nil
}

// restoreConsumptions recrea, al costo unitario original, el valor que el movimiento anulado
// consumió: una capa nueva por consumo, atada a la línea de reversión correspondiente.
func restoreConsumptions(ctx context.Context, tx *Tx, rev *entity.Movement, revLineByOrig map[string]string, consumptions []entity.CostLayerConsumption) error {
	for _, c := range consumptions {
		src, err := tx.Layers.GetByID(ctx, tx.TenantID, c.LayerID)
		if err != nil {
			return fmt.Errorf("get consumed layer: %w", err)
		}
		if src == nil {
			return fmt.Errorf("layer %s: %w", c.LayerID, domain.ErrNotFound)
		}
		ext := c.ExtendedCost
		layer, err := entity.NewCostLayer(entity.NewCostLayerParams{
			ID:             uuid.NewString(),
			TenantID:       tx.TenantID,
			ItemID:         src.ItemID(),
			LocationID:     src.LocationID(),
			UOM:            src.UOM(),
			LotID:          src.LotID(),
			Quantity:       c.Quantity,
			UnitCost:       c.UnitCost,
			ExtendedCost:   &ext,
			SourceType:     entity.LayerSourceReversal,
			SourceID:       rev.ID + ":" + c.ID,
			MovementID:     rev.ID,
			MovementLineID: revLineByOrig[c.MovementLineID],
			CreatedAt:      tx.Now,
		})
		if err != nil {
			return err
		}
		if err := insertLayer(ctx, tx, layer); err != nil {
			return err
		}
	}
	return nil
}

// splitTransfer crea en destino una capa por cada consumo de origen, al mismo costo unitario,
// vinculadas con CostLayerTransferLink. Verifica que el valor transferido cuadre con lo consumido.
func splitTransfer(ctx context.Context, tx *Tx, movementID string, dest *entity.MovementLine, consumed []ConsumedSlice) ([]entity.CostLayerTransferLink, error) {
	links := make([]entity.CostLayerTransferLink, 0, len(consumed))
	consumedValue, assigned := decimal.Zero, decimal.Zero
	for _, s := range consumed {
		lotID := dest.LotID
		if lotID == "" {
			lotID = s.Layer.LotID()
		}
		layer, err := entity.NewCostLayer(entity.NewCostLayerParams{
			ID:             uuid.NewString(),
			TenantID:       tx.TenantID,
			ItemID:         dest.ItemID,
			LocationID:     dest.LocationID,
			UOM:            dest.UOM,
			LotID:          lotID,
			Quantity:       s.Consumption.Quantity,
			UnitCost:       s.Consumption.UnitCost,
			SourceType:     entity.LayerSourceTransferIn,
			SourceID:       dest.ID + ":" + s.Layer.ID(),
			MovementID:     movementID,
			MovementLineID: dest.ID,
			CreatedAt:      tx.Now,
		})
		if err != nil {
			return nil, err
		}
		if err := insertLayer(ctx, tx, layer); err != nil {
			return nil, err
		}
		link, err := entity.NewTransferLink(uuid.NewString(), s.Layer, layer, movementID, s.Consumption, tx.Now)
		if err != nil {
			return nil, err
		}
		if err := tx.Layers.InsertTransferLink(ctx, link); err != nil {
			return nil, fmt.Errorf("insert transfer link: %w", err)
		}
		links = append(links, link)
		consumedValue = consumedValue.Add(s.Consumption.ExtendedCost)
		assigned = assigned.Add(layer.Value())
	}
	if err := inventory.CheckConservation(consumedValue, assigned); err != nil {
		return nil, err
	}
	return links, nil
}
