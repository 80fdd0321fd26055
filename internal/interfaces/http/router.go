package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Catalog      *inventory.CatalogUseCase
	Adjustments  *inventory.AdjustmentUseCase
	Receipts     *inventory.ReceiptUseCase
	Transfers    *inventory.TransferUseCase
	Counts       *inventory.CycleCountUseCase
	WorkOrders   *inventory.WorkOrderUseCase
	Reservations *inventory.ReservationUseCase
	Availability *inventory.AvailabilityUseCase
	Reconcile    *inventory.ReconcileUseCase
	JWTSecret    string
}

// Router registra las rutas de la API. Todas requieren Bearer Token; el tenant sale del token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleVendedor)
	warehouseOps := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	sales := RequireRole(jwt.RoleAdmin, jwt.RoleVendedor)
	adminOnly := RequireRole(jwt.RoleAdmin)

	// Catálogo
	warehouseHandler := NewWarehouseHandler(deps.Catalog)
	warehouses := api.Group("/warehouses")
	warehouses.Post("/", adminOnly, warehouseHandler.Create)
	warehouses.Post("/:id/locations", adminOnly, warehouseHandler.CreateLocation)
	warehouses.Get("/:id/locations", anyRole, warehouseHandler.ListLocations)

	itemHandler := NewItemHandler(deps.Catalog)
	items := api.Group("/items")
	items.Post("/", adminOnly, itemHandler.Create)
	items.Get("/:id", anyRole, itemHandler.GetByID)
	items.Put("/:id/conversions", adminOnly, itemHandler.SaveConversion)
	items.Post("/:id/lots", warehouseOps, itemHandler.CreateLot)

	// Documentos que contabilizan en el ledger
	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Adjustments, deps.Receipts, deps.Transfers, deps.Counts)
	inv.Get("/movements/:id", anyRole, inventoryHandler.GetMovement)
	inv.Post("/adjustments", warehouseOps, inventoryHandler.PostAdjustment)
	inv.Post("/adjustments/drafts", warehouseOps, inventoryHandler.SaveDraft)
	inv.Post("/adjustments/:id/post", warehouseOps, inventoryHandler.PostDraft)
	inv.Delete("/adjustments/:id", warehouseOps, inventoryHandler.CancelDraft)
	inv.Post("/adjustments/:id/void", adminOnly, inventoryHandler.VoidAdjustment)
	inv.Post("/receipts", warehouseOps, inventoryHandler.PostReceipt)
	inv.Get("/receipts/:id", anyRole, inventoryHandler.GetReceipt)
	inv.Post("/receipts/:id/void", adminOnly, inventoryHandler.VoidReceipt)
	inv.Post("/transfers", warehouseOps, inventoryHandler.PostTransfer)
	inv.Post("/transfers/:id/void", adminOnly, inventoryHandler.VoidTransfer)
	inv.Post("/counts", warehouseOps, inventoryHandler.CreateCount)
	inv.Get("/counts/:id", anyRole, inventoryHandler.GetCount)
	inv.Post("/counts/:id/post", warehouseOps, inventoryHandler.PostCount)

	// Consultas
	availabilityHandler := NewAvailabilityHandler(deps.Availability, deps.Reconcile)
	inv.Get("/availability", anyRole, availabilityHandler.GetAvailability)
	inv.Get("/valuation", warehouseOps, availabilityHandler.GetValuation)
	inv.Post("/reconcile", adminOnly, availabilityHandler.Reconcile)

	// Producción
	workOrderHandler := NewWorkOrderHandler(deps.WorkOrders)
	wo := api.Group("/work-orders")
	wo.Post("/", warehouseOps, workOrderHandler.Create)
	wo.Post("/:id/batches", warehouseOps, workOrderHandler.PostBatch)
	wo.Get("/executions/:id", anyRole, workOrderHandler.GetExecution)
	wo.Post("/executions/:id/reverse", adminOnly, workOrderHandler.ReverseBatch)

	// Reservas
	reservationHandler := NewReservationHandler(deps.Reservations)
	res := api.Group("/reservations")
	res.Post("/", sales, reservationHandler.Create)
	res.Get("/:id", anyRole, reservationHandler.GetByID)
	res.Post("/:id/allocate", anyRole, reservationHandler.Allocate)
	res.Post("/:id/fulfill", warehouseOps, reservationHandler.Fulfill)
	res.Post("/:id/cancel", sales, reservationHandler.Cancel)
}
