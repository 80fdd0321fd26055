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

// LayerSpec capa a crear para una línea de entrada.
type LayerSpec struct {
	SourceType   string
	SourceID     string
	UnitCost     decimal.Decimal
	ExtendedCost *decimal.Decimal // costo asignado exacto; nil = cantidad × costo unitario
}

// PostOptions variantes de contabilización.
type PostOptions struct {
	// Shipment despacho de una reserva: exige ubicación vendible y excluye lotes vencidos.
	Shipment bool
	// ReleaseAllocated cantidad asignada que el movimiento libera por llave (despachos).
	ReleaseAllocated map[entity.BalanceKey]decimal.Decimal
	// FromDraft contabiliza un borrador ya persistido en lugar de insertar el movimiento.
	FromDraft bool
	// Inbound decide la capa de cada línea de entrada; recibe el valor total consumido por las
	// salidas del mismo movimiento. Devolver nil omite la capa (el llamador la crea después).
	Inbound func(line *entity.MovementLine, consumed decimal.Decimal) (*LayerSpec, error)
}

// ConsumedSlice consumo FIFO aplicado a una capa.
type ConsumedSlice struct {
	Layer       *entity.CostLayer
	Consumption entity.CostLayerConsumption
}

// PostResult efectos de costo de una contabilización.
type PostResult struct {
	Movement      *entity.Movement
	Consumed      map[string][]ConsumedSlice // por id de línea
	Layers        map[string]*entity.CostLayer
	ConsumedValue decimal.Decimal
}

// postMovement contabiliza el movimiento en la transacción: valida y resuelve las líneas,
// bloquea los saldos en orden determinístico, aplica deltas con sus guardas de disponibilidad,
// consume capas FIFO para las salidas y crea capas para las entradas.
func postMovement(ctx context.Context, tx *Tx, m *entity.Movement, opts PostOptions) (*PostResult, error) {
	prepareMovement(tx, m)
	locs, err := resolveLines(ctx, tx, m)
	if err != nil {
		return nil, err
	}

	keys := make([]entity.BalanceKey, 0, len(m.Lines)+len(opts.ReleaseAllocated))
	for i := range m.Lines {
		keys = append(keys, m.Lines[i].Key(tx.TenantID))
	}
	for k := range opts.ReleaseAllocated {
		keys = append(keys, k)
	}
	balances, err := lockBalances(ctx, tx, keys)
	if err != nil {
		return nil, err
	}

	for k, q := range opts.ReleaseAllocated {
		b := balances[k]
		if q.GreaterThan(b.Allocated) {
			return nil, domain.Invalid("allocated", "la liberación excede lo asignado")
		}
		b.Allocated = b.Allocated.Sub(q)
	}
	outbound := map[entity.BalanceKey]decimal.Decimal{}
	for i := range m.Lines {
		l := &m.Lines[i]
		k := l.Key(tx.TenantID)
		balances[k].OnHand = balances[k].OnHand.Add(l.QuantityDelta)
		if !l.IsInbound() {
			outbound[k] = outbound[k].Add(l.QuantityDelta.Neg())
			if opts.Shipment && !locs[l.LocationID].IsSellable() {
				return nil, &domain.ScopeMismatchError{Scope: "location_role", Expected: entity.LocationRoleSellable, Actual: locs[l.LocationID].Role}
			}
		}
	}
	if err := guardAvailability(ctx, tx, balances, outbound, opts.Shipment); err != nil {
		return nil, err
	}

	res := &PostResult{
		Movement: m,
		Consumed: map[string][]ConsumedSlice{},
		Layers:   map[string]*entity.CostLayer{},
	}
	open := layerCache{}
	for i := range m.Lines {
		l := &m.Lines[i]
		if l.IsInbound() {
			continue
		}
		slices, value, err := consumeFIFO(ctx, tx, open, m.ID, l, opts.Shipment)
		if err != nil {
			return nil, err
		}
		res.Consumed[l.ID] = slices
		res.ConsumedValue = res.ConsumedValue.Add(value)
	}

	for i := range m.Lines {
		l := &m.Lines[i]
		if !l.IsInbound() {
			continue
		}
		spec, err := inboundSpec(ctx, tx, open, m, l, res.ConsumedValue, opts.Inbound)
		if err != nil {
			return nil, err
		}
		if spec == nil {
			continue
		}
		layer, err := entity.NewCostLayer(entity.NewCostLayerParams{
			ID:             uuid.NewString(),
			TenantID:       tx.TenantID,
			ItemID:         l.ItemID,
			LocationID:     l.LocationID,
			UOM:            l.UOM,
			LotID:          l.LotID,
			Quantity:       l.QuantityDelta,
			UnitCost:       spec.UnitCost,
			ExtendedCost:   spec.ExtendedCost,
			SourceType:     spec.SourceType,
			SourceID:       spec.SourceID,
			MovementID:     m.ID,
			MovementLineID: l.ID,
			CreatedAt:      tx.Now,
		})
		if err != nil {
			return nil, err
		}
		uc := spec.UnitCost
		ext := layer.ExtendedCost()
		l.UnitCost, l.ExtendedCost = &uc, &ext
		res.Layers[l.ID] = layer
	}

	now := tx.Now
	m.Status = entity.MovementStatusPosted
	m.PostedAt = &now
	if opts.FromDraft {
		if err := tx.Movements.MarkPosted(ctx, m); err != nil {
			return nil, fmt.Errorf("post draft movement: %w", err)
		}
	} else if err := tx.Movements.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create movement: %w", err)
	}

	for _, l := range m.Lines {
		for _, s := range res.Consumed[l.ID] {
			if err := tx.Layers.ApplyConsumption(ctx, s.Layer, s.Consumption); err != nil {
				return nil, fmt.Errorf("apply consumption: %w", err)
			}
		}
	}
	for _, l := range m.Lines {
		layer, ok := res.Layers[l.ID]
		if !ok {
			continue
		}
		if err := insertLayer(ctx, tx, layer); err != nil {
			return nil, err
		}
	}
	if err := saveBalances(ctx, tx, balances); err != nil {
		return nil, err
	}
	return res, nil
}

// voidMovement anula un movimiento contabilizado insertando su reversión exacta.
// Falla con ErrLayerConsumed si alguna capa creada por el original ya fue consumida.
func voidMovement(ctx context.Context, tx *Tx, movementID, reason, actor string) (*entity.Movement, error) {
	m, err := tx.Movements.GetByID(ctx, tx.TenantID, movementID)
	if err != nil {
		return nil, fmt.Errorf("get movement: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("movement %s: %w", movementID, domain.ErrNotFound)
	}
	switch m.Status {
	case entity.MovementStatusDraft:
		return nil, fmt.Errorf("movement %s: %w", m.ID, domain.ErrMovementNotPosted)
	case entity.MovementStatusVoided:
		return nil, &domain.InvalidStateError{Entity: "movement", ID: m.ID, State: m.Status, Action: "void"}
	}
	switch m.Type {
	case entity.MovementTypeProduction, entity.MovementTypeShipment, entity.MovementTypeReversal:
		return nil, fmt.Errorf("movement %s (%s): %w", m.ID, m.Type, domain.ErrReversalUnsupported)
	}

	created, err := tx.Layers.ListByMovementForUpdate(ctx, tx.TenantID, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list movement layers: %w", err)
	}
	for _, layer := range created {
		if layer.IsVoided() {
			continue
		}
		if !layer.IsUntouched() {
			return nil, fmt.Errorf("layer %s consumió %s: %w", layer.ID(), layer.ConsumedQuantity().String(), domain.ErrLayerConsumed)
		}
	}
	consumptions, err := tx.Layers.ListConsumptionsByMovement(ctx, tx.TenantID, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list consumptions: %w", err)
	}

	postedAt := tx.Now
	rev := &entity.Movement{
		ID:           uuid.NewString(),
		TenantID:     tx.TenantID,
		Type:         entity.MovementTypeReversal,
		Status:       entity.MovementStatusPosted,
		OccurredAt:   tx.Now,
		ReversalOfID: m.ID,
		SourceType:   m.SourceType,
		SourceID:     m.SourceID,
		Reason:       reason,
		Actor:        actor,
		Lines:        m.Negate(),
		PostedAt:     &postedAt,
		CreatedAt:    tx.Now,
	}
	revLineByOrig := map[string]string{}
	for i := range rev.Lines {
		rev.Lines[i].ID = uuid.NewString()
		rev.Lines[i].MovementID = rev.ID
		revLineByOrig[m.Lines[i].ID] = rev.Lines[i].ID
	}

	keys := make([]entity.BalanceKey, 0, len(rev.Lines))
	for i := range rev.Lines {
		keys = append(keys, rev.Lines[i].Key(tx.TenantID))
	}
	balances, err := lockBalances(ctx, tx, keys)
	if err != nil {
		return nil, err
	}
	outbound := map[entity.BalanceKey]decimal.Decimal{}
	for _, l := range rev.Lines {
		k := l.Key(tx.TenantID)
		balances[k].OnHand = balances[k].OnHand.Add(l.QuantityDelta)
		if !l.IsInbound() {
			outbound[k] = outbound[k].Add(l.QuantityDelta.Neg())
		}
	}
	if err := guardAvailability(ctx, tx, balances, outbound, false); err != nil {
		return nil, err
	}

	if err := tx.Movements.Create(ctx, rev); err != nil {
		return nil, fmt.Errorf("create reversal: %w", err)
	}
	for _, layer := range created {
		if layer.IsVoided() {
			continue
		}
		if err := layer.Void(tx.Now); err != nil {
			return nil, err
		}
		if err := tx.Layers.Void(ctx, layer); err != nil {
			return nil, fmt.Errorf("void layer: %w", err)
		}
	}
	if err := restoreConsumptions(ctx, tx, rev, revLineByOrig, consumptions); err != nil {
		return nil, err
	}
	if err := tx.Movements.MarkVoided(ctx, tx.TenantID, m.ID, tx.Now); err != nil {
		return nil, fmt.Errorf("mark voided: %w", err)
	}
	if err := saveBalances(ctx, tx, balances); err != nil {
		return nil, err
	}
	return rev, nil
}

func prepareMovement(tx *Tx, m *entity.Movement) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.TenantID = tx.TenantID
	if m.OccurredAt.IsZero() {
		m.OccurredAt = tx.Now
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = tx.Now
	}
	for i := range m.Lines {
		if m.Lines[i].ID == "" {
			m.Lines[i].ID = uuid.NewString()
		}
		m.Lines[i].MovementID = m.ID
		if m.Lines[i].LineNumber == 0 {
			m.Lines[i].LineNumber = i + 1
		}
	}
}

// resolveLines valida las líneas antes de cualquier efecto y calcula la cantidad canónica.
// Devuelve las ubicaciones referenciadas.
func resolveLines(ctx context.Context, tx *Tx, m *entity.Movement) (map[string]*entity.Location, error) {
	if len(m.Lines) == 0 {
		return nil, domain.Invalid("lines", "se requiere al menos una línea")
	}
	seen := map[int]struct{}{}
	items := map[string]*entity.Item{}
	locs := map[string]*entity.Location{}
	perItem := map[string]decimal.Decimal{}
	var hasIn, hasOut bool
	for i := range m.Lines {
		l := &m.Lines[i]
		if _, dup := seen[l.LineNumber]; dup {
			return nil, domain.Invalid("lines.line_number", "duplicado: "+strconv.Itoa(l.LineNumber))
		}
		seen[l.LineNumber] = struct{}{}
		if l.QuantityDelta.IsZero() {
			return nil, domain.Invalid("lines.quantity", "no puede ser cero")
		}
		if l.ItemID == "" || l.LocationID == "" || l.UOM == "" {
			return nil, domain.Invalid("lines", "ítem, ubicación y unidad son requeridos")
		}
		item, ok := items[l.ItemID]
		if !ok {
			var err error
			if item, err = tx.Items.GetByID(ctx, tx.TenantID, l.ItemID); err != nil {
				return nil, fmt.Errorf("get item: %w", err)
			}
			if item == nil {
				return nil, fmt.Errorf("item %s: %w", l.ItemID, domain.ErrNotFound)
			}
			items[l.ItemID] = item
		}
		if _, ok := locs[l.LocationID]; !ok {
			loc, err := tx.Warehouses.GetLocation(ctx, tx.TenantID, l.LocationID)
			if err != nil {
				return nil, fmt.Errorf("get location: %w", err)
			}
			if loc == nil {
				return nil, fmt.Errorf("location %s: %w", l.LocationID, domain.ErrNotFound)
			}
			locs[l.LocationID] = loc
		}
		factor, err := conversionFactor(ctx, tx, item, l.UOM)
		if err != nil {
			return nil, err
		}
		l.CanonicalDelta = l.QuantityDelta.Mul(factor)
		if err := checkLot(ctx, tx, item, l); err != nil {
			return nil, err
		}
		perItem[l.ItemID] = perItem[l.ItemID].Add(l.CanonicalDelta)
		if l.IsInbound() {
			hasIn = true
		} else {
			hasOut = true
		}
	}
	if m.Type == entity.MovementTypeTransfer {
		if !hasIn || !hasOut {
			return nil, domain.Invalid("lines", "un traslado requiere líneas de salida y de entrada")
		}
		for itemID, net := range perItem {
			if !net.IsZero() {
				return nil, domain.Invalid("lines", "el traslado no cuadra para el ítem "+itemID)
			}
		}
	}
	return locs, nil
}

// conversionFactor factor de la unidad a la unidad base del ítem.
func conversionFactor(ctx context.Context, tx *Tx, item *entity.Item, uom string) (decimal.Decimal, error) {
	if uom == item.BaseUOM {
		return decimal.NewFromInt(1), nil
	}
	conv, err := tx.Items.GetConversion(ctx, tx.TenantID, item.ID, uom)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get conversion: %w", err)
	}
	if conv == nil {
		return decimal.Zero, domain.Invalid("uom", "sin conversión a "+item.BaseUOM+" para "+uom)
	}
	return conv.Factor, nil
}

func checkLot(ctx context.Context, tx *Tx, item *entity.Item, l *entity.MovementLine) error {
	if l.LotID == "" {
		if item.LotTracked && l.IsInbound() {
			return domain.Invalid("lines.lot_id", "requerido para ítems con control de lote")
		}
		return nil
	}
	lot, err := tx.Items.GetLot(ctx, tx.TenantID, l.LotID)
	if err != nil {
		return fmt.Errorf("get lot: %w", err)
	}
	if lot == nil {
		return fmt.Errorf("lot %s: %w", l.LotID, domain.ErrNotFound)
	}
	if lot.ItemID != item.ID {
		return domain.Invalid("lines.lot_id", "el lote no pertenece al ítem")
	}
	return nil
}

// lockBalances bloquea los saldos en orden determinístico y marca los ítems tocados.
func lockBalances(ctx context.Context, tx *Tx, keys []entity.BalanceKey) (map[entity.BalanceKey]*entity.Balance, error) {
	sorted := inventory.SortBalanceKeys(keys)
	balances, err := tx.Balances.LockForUpdate(ctx, sorted)
	if err != nil {
		return nil, fmt.Errorf("lock balances: %w", err)
	}
	for _, k := range sorted {
		if balances[k] == nil {
			balances[k] = entity.NewBalance(k)
		}
		tx.Touch(k.ItemID)
	}
	return balances, nil
}

func saveBalances(ctx context.Context, tx *Tx, balances map[entity.BalanceKey]*entity.Balance) error {
	keys := make([]entity.BalanceKey, 0, len(balances))
	for k := range balances {
		keys = append(keys, k)
	}
	for _, k := range inventory.SortBalanceKeys(keys) {
		b := balances[k]
		b.UpdatedAt = tx.Now
		if err := tx.Balances.Save(ctx, b); err != nil {
			return fmt.Errorf("save balance: %w", err)
		}
	}
	return nil
}

// guardAvailability exige disponible ≥ 0 después de aplicar las salidas. En despachos el
// on-hand de lotes vencidos no cuenta.
func guardAvailability(ctx context.Context, tx *Tx, balances map[entity.BalanceKey]*entity.Balance, outbound map[entity.BalanceKey]decimal.Decimal, shipment bool) error {
	keys := make([]entity.BalanceKey, 0, len(outbound))
	for k := range outbound {
		keys = append(keys, k)
	}
	for _, k := range inventory.SortBalanceKeys(keys) {
		b := balances[k]
		available := b.Available()
		if shipment {
			expired, err := tx.Layers.ExpiredQuantity(ctx, k, tx.Now)
			if err != nil {
				return fmt.Errorf("expired quantity: %w", err)
			}
			available = available.Sub(decimal.Max(expired, decimal.Zero))
		}
		if available.IsNegative() {
			requested := outbound[k]
			return &domain.InsufficientStockError{
				ItemID:      k.ItemID,
				LocationID:  k.LocationID,
				UOM:         k.UOM,
				Requested:   requested,
				Available:   decimal.Max(requested.Add(available), decimal.Zero),
				Reservation: shipment,
			}
		}
	}
	return nil
}
