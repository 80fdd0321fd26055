package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CatalogUseCase datos maestros que el núcleo referencia: bodegas, ubicaciones, ítems,
// conversiones de unidad y lotes.
type CatalogUseCase struct {
	exec *Executor
}

// NewCatalogUseCase construye el caso de uso.
func NewCatalogUseCase(exec *Executor) *CatalogUseCase {
	return &CatalogUseCase{exec: exec}
}

// CreateWarehouse crea una bodega del tenant.
func (uc *CatalogUseCase) CreateWarehouse(ctx context.Context, tenantID, name, address string) (*entity.Warehouse, error) {
	if name == "" {
		return nil, domain.Invalid("name", "requerido")
	}
	var wh *entity.Warehouse
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		wh = &entity.Warehouse{
			ID: uuid.NewString(), TenantID: tx.TenantID, Name: name, Address: address,
			CreatedAt: tx.Now, UpdatedAt: tx.Now,
		}
		if err := tx.Warehouses.Create(ctx, wh); err != nil {
			return fmt.Errorf("create warehouse: %w", err)
		}
		return nil
	})
	return wh, err
}

// CreateLocation crea una ubicación dentro de una bodega del tenant.
func (uc *CatalogUseCase) CreateLocation(ctx context.Context, tenantID, warehouseID, code, role string) (*entity.Location, error) {
	if code == "" {
		return nil, domain.Invalid("code", "requerido")
	}
	if !entity.ValidLocationRole(role) {
		return nil, domain.Invalid("role", "rol de ubicación desconocido: "+role)
	}
	var loc *entity.Location
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		if err := requireWarehouse(ctx, tx, warehouseID); err != nil {
			return err
		}
		loc = &entity.Location{
			ID: uuid.NewString(), TenantID: tx.TenantID, WarehouseID: warehouseID,
			Code: code, Role: role, CreatedAt: tx.Now,
		}
		if err := tx.Warehouses.CreateLocation(ctx, loc); err != nil {
			return fmt.Errorf("create location: %w", err)
		}
		return nil
	})
	return loc, err
}

// ItemInput alta de ítem.
type ItemInput struct {
	TenantID   string
	SKU        string
	Name       string
	BaseUOM    string
	LotTracked bool
}

// CreateItem crea un ítem con su unidad base.
func (uc *CatalogUseCase) CreateItem(ctx context.Context, in ItemInput) (*entity.Item, error) {
	if in.SKU == "" || in.Name == "" || in.BaseUOM == "" {
		return nil, domain.Invalid("item", "sku, nombre y unidad base son requeridos")
	}
	var item *entity.Item
	err := uc.exec.InTx(ctx, in.TenantID, func(ctx context.Context, tx *Tx) error {
		item = &entity.Item{
			ID: uuid.NewString(), TenantID: tx.TenantID, SKU: in.SKU, Name: in.Name,
			BaseUOM: in.BaseUOM, LotTracked: in.LotTracked, CreatedAt: tx.Now, UpdatedAt: tx.Now,
		}
		if err := tx.Items.Create(ctx, item); err != nil {
			return fmt.Errorf("create item: %w", err)
		}
		return nil
	})
	return item, err
}

// SaveConversion registra el factor de una unidad hacia la unidad base del ítem.
func (uc *CatalogUseCase) SaveConversion(ctx context.Context, tenantID, itemID, uom string, factor decimal.Decimal) (*entity.UOMConversion, error) {
	if uom == "" || !factor.IsPositive() {
		return nil, domain.Invalid("conversion", "unidad y factor positivo son requeridos")
	}
	var conv *entity.UOMConversion
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		item, err := uc.item(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.BaseUOM == uom {
			return domain.Invalid("uom", "la unidad base no requiere conversión")
		}
		conv = &entity.UOMConversion{TenantID: tx.TenantID, ItemID: itemID, UOM: uom, Factor: factor}
		if err := tx.Items.SaveConversion(ctx, conv); err != nil {
			return fmt.Errorf("save conversion: %w", err)
		}
		return nil
	})
	return conv, err
}

// CreateLot crea un lote de un ítem con control de lote.
func (uc *CatalogUseCase) CreateLot(ctx context.Context, tenantID, itemID, code string, expiresAt *time.Time) (*entity.Lot, error) {
	if code == "" {
		return nil, domain.Invalid("code", "requerido")
	}
	var lot *entity.Lot
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		item, err := uc.item(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if !item.LotTracked {
			return domain.Invalid("item_id", "el ítem no tiene control de lote")
		}
		lot = &entity.Lot{ID: uuid.NewString(), TenantID: tx.TenantID, ItemID: itemID, Code: code, ExpiresAt: expiresAt, CreatedAt: tx.Now}
		if err := tx.Items.CreateLot(ctx, lot); err != nil {
			return fmt.Errorf("create lot: %w", err)
		}
		return nil
	})
	return lot, err
}

// GetItem devuelve un ítem del tenant.
func (uc *CatalogUseCase) GetItem(ctx context.Context, tenantID, itemID string) (*entity.Item, error) {
	var item *entity.Item
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		var err error
		item, err = uc.item(ctx, tx, itemID)
		return err
	})
	return item, err
}

// ListLocations ubicaciones de una bodega del tenant.
func (uc *CatalogUseCase) ListLocations(ctx context.Context, tenantID, warehouseID string) ([]*entity.Location, error) {
	var out []*entity.Location
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		if err := requireWarehouse(ctx, tx, warehouseID); err != nil {
			return err
		}
		var err error
		if out, err = tx.Warehouses.ListLocations(ctx, tenantID, warehouseID); err != nil {
			return fmt.Errorf("list locations: %w", err)
		}
		return nil
	})
	return out, err
}

func (uc *CatalogUseCase) item(ctx context.Context, tx *Tx, itemID string) (*entity.Item, error) {
	item, err := tx.Items.GetByID(ctx, tx.TenantID, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}
	return item, nil
}
