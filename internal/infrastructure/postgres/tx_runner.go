package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain"
)

// Ensure TxRunner implements inventory.TxRunner.
var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL SERIALIZABLE.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los fallos de serialización (en cualquier sentencia o en el commit) se devuelven como
// domain.ErrSerialization para que el ejecutor reintente.
func (r *TxRunner) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepos(tx)); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%v: %w", err, domain.ErrSerialization)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("commit transaction: %w", domain.ErrSerialization)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewRepos repositorios atados a q (pool o tx).
func NewRepos(q Querier) inventory.Repos {
	return inventory.Repos{
		Movements:    NewMovementRepository(q),
		Layers:       NewCostLayerRepository(q),
		Balances:     NewBalanceRepository(q),
		Items:        NewItemRepository(q),
		Warehouses:   NewWarehouseRepository(q),
		Reservations: NewReservationRepository(q),
		Executions:   NewExecutionRepository(q),
		Receipts:     NewReceiptRepository(q),
		Counts:       NewCycleCountRepository(q),
		WorkOrders:   NewWorkOrderRepository(q),
	}
}
