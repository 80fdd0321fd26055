package inventory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/inventory"
	"github.com/jhoicas/inventario-core/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// AvailabilityQuery consulta ATP: exactamente una de WarehouseID o LocationID define el alcance;
// si llegan ambas, la ubicación debe pertenecer a la bodega.
type AvailabilityQuery struct {
	TenantID     string
	WarehouseID  string
	LocationID   string
	ItemID       string
	UOM          string
	SellableOnly bool
}

// Valuation valor de inventario de una llave: Σ remaining × unit_cost de las capas activas.
type Valuation struct {
	TenantID   string
	ItemID     string
	LocationID string
	UOM        string
	Quantity   decimal.Decimal
	Value      decimal.Decimal
}

// AvailabilityUseCase agregador ATP derivado de los saldos, con caché de lectura opcional.
type AvailabilityUseCase struct {
	exec  *Executor
	log   *logger.Logger
	group singleflight.Group
}

// NewAvailabilityUseCase construye el caso de uso. La caché se toma del Executor.
func NewAvailabilityUseCase(exec *Executor, log *logger.Logger) *AvailabilityUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &AvailabilityUseCase{exec: exec, log: log}
}

func (q AvailabilityQuery) field() string {
	scope, id := q.scope()
	return scope + ":" + id + ":" + q.UOM + ":" + strconv.FormatBool(q.SellableOnly)
}

func (q AvailabilityQuery) scope() (string, string) {
	if q.LocationID != "" {
		return entity.AvailabilityScopeLocation, q.LocationID
	}
	return entity.AvailabilityScopeWarehouse, q.WarehouseID
}

// GetAvailability devuelve on_hand, reservado, asignado y disponible para el alcance.
// En la vista vendible solo cuentan ubicaciones SELLABLE y se excluyen lotes vencidos.
func (uc *AvailabilityUseCase) GetAvailability(ctx context.Context, q AvailabilityQuery) (*entity.AvailabilityView, error) {
	if q.TenantID == "" {
		return nil, domain.Invalid("tenant_id", "requerido")
	}
	if q.WarehouseID == "" && q.LocationID == "" {
		return nil, domain.Invalid("scope", "se requiere warehouse_id o location_id")
	}
	if q.ItemID == "" || q.UOM == "" {
		return nil, domain.Invalid("item", "ítem y unidad son requeridos")
	}
	cache := uc.exec.Cache()
	field := q.field()
	if cache != nil {
		view, ok, err := cache.Get(ctx, q.TenantID, q.ItemID, field)
		if err != nil {
			uc.log.Tenant(q.TenantID).Warn().Err(err).Str("item_id", q.ItemID).Msg("lectura de caché de disponibilidad falló")
		} else if ok {
			return view, nil
		}
	}
	v, err, _ := uc.group.Do(q.TenantID+"|"+q.ItemID+"|"+field, func() (any, error) {
		store := cache
		var version int64
		if store != nil {
			var err error
			if version, err = store.Version(ctx, q.TenantID, q.ItemID); err != nil {
				uc.log.Tenant(q.TenantID).Warn().Err(err).Str("item_id", q.ItemID).Msg("lectura de versión de caché falló")
				store = nil
			}
		}
		view, err := uc.compute(ctx, q)
		if err != nil {
			return nil, err
		}
		if store != nil {
			if err := store.Set(ctx, q.TenantID, q.ItemID, field, version, view); err != nil {
				uc.log.Tenant(q.TenantID).Warn().Err(err).Str("item_id", q.ItemID).Msg("escritura de caché de disponibilidad falló")
			}
		}
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entity.AvailabilityView), nil
}

func (uc *AvailabilityUseCase) compute(ctx context.Context, q AvailabilityQuery) (*entity.AvailabilityView, error) {
	scope, scopeID := q.scope()
	view := &entity.AvailabilityView{Scope: scope, ScopeID: scopeID, SellableOnly: q.SellableOnly}
	err := uc.exec.InTx(ctx, q.TenantID, func(ctx context.Context, tx *Tx) error {
		var locs []*entity.Location
		if q.LocationID != "" {
			loc, err := tx.Warehouses.GetLocation(ctx, tx.TenantID, q.LocationID)
			if err != nil {
				return fmt.Errorf("get location: %w", err)
			}
			if loc == nil {
				return fmt.Errorf("location %s: %w", q.LocationID, domain.ErrNotFound)
			}
			if q.WarehouseID != "" && loc.WarehouseID != q.WarehouseID {
				return &domain.ScopeMismatchError{Scope: "warehouse", Expected: q.WarehouseID, Actual: loc.WarehouseID}
			}
			locs = []*entity.Location{loc}
		} else {
			if err := requireWarehouse(ctx, tx, q.WarehouseID); err != nil {
				return err
			}
			var err error
			if locs, err = tx.Warehouses.ListLocations(ctx, tx.TenantID, q.WarehouseID); err != nil {
				return fmt.Errorf("list locations: %w", err)
			}
		}

		warehouseOf := map[string]string{}
		ids := make([]string, 0, len(locs))
		for _, l := range locs {
			if q.SellableOnly && !l.IsSellable() {
				continue
			}
			ids = append(ids, l.ID)
			warehouseOf[l.ID] = l.WarehouseID
		}
		view.Total = entity.Availability{
			TenantID: tx.TenantID, WarehouseID: q.WarehouseID, LocationID: q.LocationID,
			ItemID: q.ItemID, UOM: q.UOM, AsOf: tx.Now,
		}
		if len(ids) == 0 {
			return nil
		}
		balances, err := tx.Balances.ListByLocations(ctx, tx.TenantID, q.ItemID, q.UOM, ids)
		if err != nil {
			return fmt.Errorf("list balances: %w", err)
		}
		for _, b := range balances {
			expired := decimal.Zero
			if q.SellableOnly {
				if expired, err = tx.Layers.ExpiredQuantity(ctx, b.Key(), tx.Now); err != nil {
					return fmt.Errorf("expired quantity: %w", err)
				}
				next, err := tx.Layers.NextLotExpiry(ctx, b.Key(), tx.Now)
				if err != nil {
					return fmt.Errorf("next lot expiry: %w", err)
				}
				if next != nil && (view.ValidUntil == nil || next.Before(*view.ValidUntil)) {
					view.ValidUntil = next
				}
			}
			a := inventory.ComputeAvailability(b, expired, warehouseOf[b.LocationID], tx.Now)
			view.Locations = append(view.Locations, a)
			view.Total.Add(a)
		}
		if view.Total.WarehouseID == "" && len(view.Locations) == 1 {
			view.Total.WarehouseID = view.Locations[0].WarehouseID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Valuation valor del inventario de una llave calculado desde los campos autoritativos de las
// capas; nunca desde el costo extendido en caché.
func (uc *AvailabilityUseCase) Valuation(ctx context.Context, tenantID, itemID, locationID, uom string) (*Valuation, error) {
	if itemID == "" || locationID == "" || uom == "" {
		return nil, domain.Invalid("valuation", "ítem, ubicación y unidad son requeridos")
	}
	out := &Valuation{TenantID: tenantID, ItemID: itemID, LocationID: locationID, UOM: uom}
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		k := entity.BalanceKey{TenantID: tenantID, ItemID: itemID, LocationID: locationID, UOM: uom}
		qty, value, err := tx.Layers.Valuation(ctx, k)
		if err != nil {
			return fmt.Errorf("valuation: %w", err)
		}
		out.Quantity, out.Value = qty, value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
