package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Prefijos de los ids resultantes de createReservation en el ledger de idempotencia.
const (
	resultReservation = "reservation:"
	resultBackorder   = "backorder:"
)

// CreateReservationInput entrada de createReservation.
type CreateReservationInput struct {
	TenantID       string          `json:"-"`
	IdempotencyKey string          `json:"-"`
	WarehouseID    string          `json:"warehouse_id"`
	ItemID         string          `json:"item_id"`
	LocationID     string          `json:"location_id"`
	UOM            string          `json:"uom"`
	Quantity       decimal.Decimal `json:"quantity"`
	DemandType     string          `json:"demand_type"`
	DemandID       string          `json:"demand_id"`
	AllowBackorder bool            `json:"allow_backorder"`
}

// ReservationResult reservas creadas y, si hubo faltante permitido, el backorder.
type ReservationResult struct {
	Reservations []*entity.Reservation
	Backorder    *entity.Backorder
	Replayed     bool
}

// FulfillResult reserva actualizada y el movimiento de despacho contabilizado.
type FulfillResult struct {
	Reservation *entity.Reservation
	MovementID  string
}

// ReservationUseCase máquina de estados de reservas contra la disponibilidad calculada.
type ReservationUseCase struct {
	exec *Executor
}

// NewReservationUseCase construye el caso de uso.
func NewReservationUseCase(exec *Executor) *ReservationUseCase {
	return &ReservationUseCase{exec: exec}
}

func (in CreateReservationInput) validate() error {
	switch {
	case in.WarehouseID == "":
		return domain.Invalid("warehouse_id", "requerido")
	case in.ItemID == "" || in.LocationID == "" || in.UOM == "":
		return domain.Invalid("reservation", "ítem, ubicación y unidad son requeridos")
	case in.DemandType == "" || in.DemandID == "":
		return domain.Invalid("demand", "referencia de demanda requerida")
	case !in.Quantity.IsPositive():
		return domain.Invalid("quantity", "debe ser mayor que cero")
	}
	return nil
}

// CreateReservation reserva contra la disponibilidad vendible (on_hand sin lotes vencidos −
// reservado − asignado). Si no alcanza y se permite backorder, reserva lo disponible y registra
// el faltante; si no se permite, falla con InsufficientStockError. La idempotency key es opcional.
func (uc *ReservationUseCase) CreateReservation(ctx context.Context, in CreateReservationInput) (*ReservationResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	out := &ReservationResult{}
	work := func(ctx context.Context, tx *Tx) ([]string, error) {
		out.Reservations, out.Backorder = nil, nil
		loc, err := locationInWarehouse(ctx, tx, in.LocationID, in.WarehouseID)
		if err != nil {
			return nil, err
		}
		if !loc.IsSellable() {
			return nil, &domain.ScopeMismatchError{Scope: "location_role", Expected: entity.LocationRoleSellable, Actual: loc.Role}
		}
		item, err := tx.Items.GetByID(ctx, tx.TenantID, in.ItemID)
		if err != nil {
			return nil, fmt.Errorf("get item: %w", err)
		}
		if item == nil {
			return nil, fmt.Errorf("item %s: %w", in.ItemID, domain.ErrNotFound)
		}
		if _, err := conversionFactor(ctx, tx, item, in.UOM); err != nil {
			return nil, err
		}

		k := entity.BalanceKey{TenantID: tx.TenantID, ItemID: in.ItemID, LocationID: in.LocationID, UOM: in.UOM}
		balances, err := lockBalances(ctx, tx, []entity.BalanceKey{k})
		if err != nil {
			return nil, err
		}
		b := balances[k]
		available, err := sellableAvailable(ctx, tx, b)
		if err != nil {
			return nil, err
		}

		reserveQty := in.Quantity
		shortfall := decimal.Zero
		if available.LessThan(in.Quantity) {
			if !in.AllowBackorder {
				return nil, &domain.InsufficientStockError{
					ItemID: in.ItemID, LocationID: in.LocationID, UOM: in.UOM,
					Requested: in.Quantity, Available: decimal.Max(available, decimal.Zero), Reservation: true,
				}
			}
			reserveQty = decimal.Max(available, decimal.Zero)
			shortfall = in.Quantity.Sub(reserveQty)
		}

		var ids []string
		if reserveQty.IsPositive() {
			r := &entity.Reservation{
				ID:                uuid.NewString(),
				TenantID:          tx.TenantID,
				WarehouseID:       in.WarehouseID,
				ItemID:            in.ItemID,
				LocationID:        in.LocationID,
				UOM:               in.UOM,
				DemandType:        in.DemandType,
				DemandID:          in.DemandID,
				QuantityReserved:  reserveQty,
				QuantityFulfilled: decimal.Zero,
				Status:            entity.ReservationStatusReserved,
				CreatedAt:         tx.Now,
				UpdatedAt:         tx.Now,
			}
			if err := tx.Reservations.Create(ctx, r); err != nil {
				return nil, fmt.Errorf("create reservation: %w", err)
			}
			b.Reserved = b.Reserved.Add(reserveQty)
			out.Reservations = append(out.Reservations, r)
			ids = append(ids, resultReservation+r.ID)
		}
		if shortfall.IsPositive() {
			bo := &entity.Backorder{
				ID:          uuid.NewString(),
				TenantID:    tx.TenantID,
				WarehouseID: in.WarehouseID,
				ItemID:      in.ItemID,
				LocationID:  in.LocationID,
				UOM:         in.UOM,
				DemandType:  in.DemandType,
				DemandID:    in.DemandID,
				Quantity:    shortfall,
				Status:      entity.BackorderStatusOpen,
				CreatedAt:   tx.Now,
			}
			if err := tx.Reservations.CreateBackorder(ctx, bo); err != nil {
				return nil, fmt.Errorf("create backorder: %w", err)
			}
			out.Backorder = bo
			ids = append(ids, resultBackorder+bo.ID)
		}
		if err := saveBalances(ctx, tx, balances); err != nil {
			return nil, err
		}
		return ids, nil
	}

	res, err := uc.exec.ExecuteOptional(ctx, in.TenantID, entity.FamilyReservationCreate, in.IdempotencyKey, in, work)
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return uc.loadResult(ctx, in.TenantID, res.IDs)
	}
	return out, nil
}

func (uc *ReservationUseCase) loadResult(ctx context.Context, tenantID string, ids []string) (*ReservationResult, error) {
	out := &ReservationResult{Replayed: true}
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		out.Reservations, out.Backorder = nil, nil
		for _, id := range ids {
			switch {
			case strings.HasPrefix(id, resultReservation):
				r, err := tx.Reservations.GetByID(ctx, tenantID, strings.TrimPrefix(id, resultReservation))
				if err != nil {
					return fmt.Errorf("get reservation: %w", err)
				}
				if r != nil {
					out.Reservations = append(out.Reservations, r)
				}
			case strings.HasPrefix(id, resultBackorder):
				bo, err := tx.Reservations.GetBackorder(ctx, tenantID, strings.TrimPrefix(id, resultBackorder))
				if err != nil {
					return fmt.Errorf("get backorder: %w", err)
				}
				out.Backorder = bo
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Allocate RESERVED → ALLOCATED bajo la familia reservation-allocate. Mueve la cantidad abierta
// de reservado a asignado y re-verifica que lo comprometido no exceda el on-hand vendible.
func (uc *ReservationUseCase) Allocate(ctx context.Context, tenantID, reservationID, key string) (*entity.Reservation, error) {
	payload := map[string]string{"reservation_id": reservationID}
	_, err := uc.exec.Execute(ctx, tenantID, entity.FamilyReservationAlloc, key, payload, func(ctx context.Context, tx *Tx) ([]string, error) {
		r, err := lockReservation(ctx, tx, reservationID)
		if err != nil {
			return nil, err
		}
		open, err := r.Allocate(tx.Now)
		if err != nil {
			return nil, err
		}
		balances, err := lockBalances(ctx, tx, []entity.BalanceKey{r.Key()})
		if err != nil {
			return nil, err
		}
		b := balances[r.Key()]
		b.Reserved = b.Reserved.Sub(open)
		b.Allocated = b.Allocated.Add(open)
		available, err := sellableAvailable(ctx, tx, b)
		if err != nil {
			return nil, err
		}
		if available.IsNegative() {
			return nil, &domain.InsufficientStockError{
				ItemID: r.ItemID, LocationID: r.LocationID, UOM: r.UOM,
				Requested: open, Available: decimal.Max(open.Add(available), decimal.Zero), Reservation: true,
			}
		}
		if err := tx.Reservations.Update(ctx, r); err != nil {
			return nil, fmt.Errorf("update reservation: %w", err)
		}
		if err := saveBalances(ctx, tx, balances); err != nil {
			return nil, err
		}
		return []string{r.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	return uc.Get(ctx, tenantID, reservationID)
}

// Fulfill cumple qty de una reserva ALLOCATED bajo la familia reservation-fulfill. En la misma
// transacción contabiliza el despacho (SHIPMENT) que consume capas FIFO y libera lo asignado.
func (uc *ReservationUseCase) Fulfill(ctx context.Context, tenantID, reservationID string, qty decimal.Decimal, key string) (*FulfillResult, error) {
	payload := map[string]string{"reservation_id": reservationID, "quantity": qty.String()}
	res, err := uc.exec.Execute(ctx, tenantID, entity.FamilyReservationFulfill, key, payload, func(ctx context.Context, tx *Tx) ([]string, error) {
		r, err := lockReservation(ctx, tx, reservationID)
		if err != nil {
			return nil, err
		}
		if err := r.Fulfill(qty, tx.Now); err != nil {
			return nil, err
		}
		m := &entity.Movement{
			Type:           entity.MovementTypeShipment,
			IdempotencyKey: key,
			SourceType:     "reservation",
			SourceID:       r.ID,
			Lines: []entity.MovementLine{{
				LineNumber:    1,
				ItemID:        r.ItemID,
				LocationID:    r.LocationID,
				UOM:           r.UOM,
				QuantityDelta: qty.Neg(),
				ReasonCode:    r.DemandType + ":" + r.DemandID,
			}},
		}
		if _, err := postMovement(ctx, tx, m, PostOptions{
			Shipment:         true,
			ReleaseAllocated: map[entity.BalanceKey]decimal.Decimal{r.Key(): qty},
		}); err != nil {
			return nil, err
		}
		if err := tx.Reservations.Update(ctx, r); err != nil {
			return nil, fmt.Errorf("update reservation: %w", err)
		}
		return []string{r.ID, m.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	r, err := uc.Get(ctx, tenantID, reservationID)
	if err != nil {
		return nil, err
	}
	return &FulfillResult{Reservation: r, MovementID: res.IDs[1]}, nil
}

// Cancel RESERVED|ALLOCATED → CANCELLED bajo la familia reservation-cancel. Libera la cantidad
// abierta del bucket correspondiente; lo ya cumplido no se toca.
func (uc *ReservationUseCase) Cancel(ctx context.Context, tenantID, reservationID, reason, key string) (*entity.Reservation, error) {
	payload := map[string]string{"reservation_id": reservationID, "reason": reason}
	_, err := uc.exec.Execute(ctx, tenantID, entity.FamilyReservationCancel, key, payload, func(ctx context.Context, tx *Tx) ([]string, error) {
		r, err := lockReservation(ctx, tx, reservationID)
		if err != nil {
			return nil, err
		}
		prev, released, err := r.Cancel(reason, tx.Now)
		if err != nil {
			return nil, err
		}
		balances, err := lockBalances(ctx, tx, []entity.BalanceKey{r.Key()})
		if err != nil {
			return nil, err
		}
		b := balances[r.Key()]
		if prev == entity.ReservationStatusReserved {
			b.Reserved = b.Reserved.Sub(released)
		} else {
			b.Allocated = b.Allocated.Sub(released)
		}
		if b.Reserved.IsNegative() || b.Allocated.IsNegative() {
			return nil, fmt.Errorf("balance %s/%s: compromiso negativo: %w", r.ItemID, r.LocationID, domain.ErrConflict)
		}
		if err := tx.Reservations.Update(ctx, r); err != nil {
			return nil, fmt.Errorf("update reservation: %w", err)
		}
		if err := saveBalances(ctx, tx, balances); err != nil {
			return nil, err
		}
		return []string{r.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	return uc.Get(ctx, tenantID, reservationID)
}

// Get devuelve la reserva del tenant.
func (uc *ReservationUseCase) Get(ctx context.Context, tenantID, reservationID string) (*entity.Reservation, error) {
	var r *entity.Reservation
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		var err error
		if r, err = tx.Reservations.GetByID(ctx, tenantID, reservationID); err != nil {
			return fmt.Errorf("get reservation: %w", err)
		}
		if r == nil {
			return fmt.Errorf("reservation %s: %w", reservationID, domain.ErrNotFound)
		}
		return nil
	})
	return r, err
}

func lockReservation(ctx context.Context, tx *Tx, id string) (*entity.Reservation, error) {
	r, err := tx.Reservations.GetForUpdate(ctx, tx.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("lock reservation: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("reservation %s: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

// sellableAvailable on_hand − lotes vencidos − reservado − asignado.
func sellableAvailable(ctx context.Context, tx *Tx, b *entity.Balance) (decimal.Decimal, error) {
	expired, err := tx.Layers.ExpiredQuantity(ctx, b.Key(), tx.Now)
	if err != nil {
		return decimal.Zero, fmt.Errorf("expired quantity: %w", err)
	}
	return b.Available().Sub(decimal.Max(expired, decimal.Zero)), nil
}
