// Package memory almacén transaccional en memoria del proceso. Las transacciones se serializan
// sobre un único mutex y un error restaura la instantánea tomada al inicio (Rollback).
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

type convKey struct{ tenantID, itemID, uom string }

type execKey struct{ tenantID, family, key string }

type state struct {
	warehouses   map[string]entity.Warehouse
	locations    map[string]entity.Location
	items        map[string]entity.Item
	conversions  map[convKey]entity.UOMConversion
	lots         map[string]entity.Lot
	movements    map[string]entity.Movement
	layers       map[string]entity.CostLayerRecord
	layerSeq     int64
	consumptions []entity.CostLayerConsumption
	links        []entity.CostLayerTransferLink
	balances     map[entity.BalanceKey]entity.Balance
	reservations map[string]entity.Reservation
	backorders   map[string]entity.Backorder
	executions   map[execKey]entity.ExecutionRecord
	receipts     map[string]entity.Receipt
	counts       map[string]entity.CycleCount
	workOrders   map[string]entity.WorkOrder
	woExecutions map[string]entity.WorkOrderExecution
}

func newState() *state {
	return &state{
		warehouses:   map[string]entity.Warehouse{},
		locations:    map[string]entity.Location{},
		items:        map[string]entity.Item{},
		conversions:  map[convKey]entity.UOMConversion{},
		lots:         map[string]entity.Lot{},
		movements:    map[string]entity.Movement{},
		layers:       map[string]entity.CostLayerRecord{},
		balances:     map[entity.BalanceKey]entity.Balance{},
		reservations: map[string]entity.Reservation{},
		backorders:   map[string]entity.Backorder{},
		executions:   map[execKey]entity.ExecutionRecord{},
		receipts:     map[string]entity.Receipt{},
		counts:       map[string]entity.CycleCount{},
		workOrders:   map[string]entity.WorkOrder{},
		woExecutions: map[string]entity.WorkOrderExecution{},
	}
}

func cloneMap[K comparable, V any](m map[K]V, cp func(V) V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		if cp != nil {
			v = cp(v)
		}
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		warehouses:   cloneMap(s.warehouses, nil),
		locations:    cloneMap(s.locations, nil),
		items:        cloneMap(s.items, nil),
		conversions:  cloneMap(s.conversions, nil),
		lots:         cloneMap(s.lots, nil),
		movements:    cloneMap(s.movements, copyMovement),
		layers:       cloneMap(s.layers, nil),
		layerSeq:     s.layerSeq,
		consumptions: append([]entity.CostLayerConsumption(nil), s.consumptions...),
		links:        append([]entity.CostLayerTransferLink(nil), s.links...),
		balances:     cloneMap(s.balances, nil),
		reservations: cloneMap(s.reservations, nil),
		backorders:   cloneMap(s.backorders, nil),
		executions:   cloneMap(s.executions, copyExecution),
		receipts:     cloneMap(s.receipts, copyReceipt),
		counts:       cloneMap(s.counts, copyCount),
		workOrders:   cloneMap(s.workOrders, nil),
		woExecutions: cloneMap(s.woExecutions, nil),
	}
}

// Store almacén en memoria; implementa inventory.TxRunner.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Run ejecuta fn con exclusión total; si fn falla (o entra en pánico) se restaura el estado previo.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.Repos) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if r := recover(); r != nil {
			s.st = snapshot
			panic(r)
		}
		if err != nil {
			s.st = snapshot
		}
	}()
	return fn(s.repos())
}

func (s *Store) repos() inventory.Repos {
	return inventory.Repos{
		Movements:    &movementRepo{s: s},
		Layers:       &costLayerRepo{s: s},
		Balances:     &balanceRepo{s: s},
		Items:        &itemRepo{s: s},
		Warehouses:   &warehouseRepo{s: s},
		Reservations: &reservationRepo{s: s},
		Executions:   &executionRepo{s: s},
		Receipts:     &receiptRepo{s: s},
		Counts:       &countRepo{s: s},
		WorkOrders:   &workOrderRepo{s: s},
	}
}

func copyMovement(m entity.Movement) entity.Movement {
	m.Lines = append([]entity.MovementLine(nil), m.Lines...)
	for i := range m.Lines {
		m.Lines[i].UnitCost = copyDec(m.Lines[i].UnitCost)
		m.Lines[i].ExtendedCost = copyDec(m.Lines[i].ExtendedCost)
	}
	m.PostedAt = copyTime(m.PostedAt)
	m.VoidedAt = copyTime(m.VoidedAt)
	return m
}

func copyExecution(e entity.ExecutionRecord) entity.ExecutionRecord {
	e.ResultIDs = append([]string(nil), e.ResultIDs...)
	e.CompletedAt = copyTime(e.CompletedAt)
	return e
}

func copyReceipt(r entity.Receipt) entity.Receipt {
	r.Lines = append([]entity.ReceiptLine(nil), r.Lines...)
	return r
}

func copyCount(c entity.CycleCount) entity.CycleCount {
	c.Lines = append([]entity.CycleCountLine(nil), c.Lines...)
	for i := range c.Lines {
		c.Lines[i].UnitCost = copyDec(c.Lines[i].UnitCost)
	}
	c.PostedAt = copyTime(c.PostedAt)
	return c
}
