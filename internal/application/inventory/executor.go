package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/inventory"
	"github.com/jhoicas/inventario-core/pkg/logger"
)

// DefaultMaxTxRetries presupuesto de reintentos cuando no se configura otro.
const DefaultMaxTxRetries = 3

// Tx unidad de trabajo de un intento: repositorios de la transacción, reloj fijo del intento
// y los ítems tocados (para invalidar la caché ATP después del commit).
type Tx struct {
	Repos
	TenantID string
	Now      time.Time
	touched  map[string]struct{}
}

// Touch marca un ítem cuya disponibilidad cambió en esta transacción.
func (tx *Tx) Touch(itemID string) {
	tx.touched[itemID] = struct{}{}
}

// ExecResult ids resultantes de una operación idempotente.
type ExecResult struct {
	IDs      []string
	Replayed bool
}

// Executor corre operaciones dentro de transacciones con reintento acotado ante conflictos de
// serialización, aplica el protocolo de idempotencia y, tras el commit, invalida la caché ATP.
type Executor struct {
	runner     TxRunner
	coord      *Coordinator
	cache      AvailabilityCache
	log        *logger.Logger
	maxRetries int
	now        func() time.Time
}

// ExecutorOption configura el Executor.
type ExecutorOption func(*Executor)

// WithMaxRetries fija el presupuesto de intentos por operación.
func WithMaxRetries(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithCache habilita la invalidación de la caché ATP.
func WithCache(c AvailabilityCache) ExecutorOption {
	return func(e *Executor) { e.cache = c }
}

// WithClock reemplaza el reloj (pruebas).
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

// NewExecutor construye el ejecutor.
func NewExecutor(runner TxRunner, log *logger.Logger, opts ...ExecutorOption) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	e := &Executor{
		runner:     runner,
		log:        log,
		maxRetries: DefaultMaxTxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(e)
	}
	e.coord = NewCoordinator(log)
	return e
}

// Cache caché configurada (puede ser nil).
func (e *Executor) Cache() AvailabilityCache {
	return e.cache
}

// InTx ejecuta fn en una transacción, reintentando ante domain.ErrSerialization.
// Agotado el presupuesto devuelve domain.ErrConcurrencyExhausted.
func (e *Executor) InTx(ctx context.Context, tenantID string, fn func(ctx context.Context, tx *Tx) error) error {
	if tenantID == "" {
		return domain.Invalid("tenant_id", "requerido")
	}
	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &Tx{TenantID: tenantID, Now: e.now(), touched: map[string]struct{}{}}
		err := e.runner.Run(ctx, func(repos Repos) error {
			tx.Repos = repos
			return fn(ctx, tx)
		})
		if err == nil {
			e.invalidate(ctx, tenantID, tx.touched)
			return nil
		}
		if !errors.Is(err, domain.ErrSerialization) {
			return err
		}
		lastErr = err
		e.log.Tenant(tenantID).Warn().Err(err).Int("attempt", attempt).Msg("conflicto de serialización, reintentando")
	}
	e.log.Tenant(tenantID).Error().Err(lastErr).Int("attempts", e.maxRetries).Msg("reintentos de concurrencia agotados")
	return fmt.Errorf("%w: %v", domain.ErrConcurrencyExhausted, lastErr)
}

// Execute corre una operación de contabilización bajo el protocolo de idempotencia.
// fn devuelve los ids resultantes; en un replay idéntico fn no se ejecuta y se devuelven
// los ids registrados en la primera ejecución.
func (e *Executor) Execute(
	ctx context.Context,
	tenantID, family, key string,
	payload any,
	fn func(ctx context.Context, tx *Tx) ([]string, error),
) (ExecResult, error) {
	if key == "" {
		return ExecResult{}, domain.ErrIdempotencyKeyRequired
	}
	hash, err := inventory.PayloadHash(payload)
	if err != nil {
		return ExecResult{}, err
	}
	var res ExecResult
	err = e.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		ids, replayed, err := e.coord.Execute(ctx, tx, family, key, hash, func() ([]string, error) {
			return fn(ctx, tx)
		})
		if err != nil {
			return err
		}
		res = ExecResult{IDs: ids, Replayed: replayed}
		return nil
	})
	if err != nil {
		return ExecResult{}, err
	}
	return res, nil
}

// ExecuteOptional igual que Execute cuando llega una key; sin key ejecuta fn en una transacción
// sin registro de idempotencia.
func (e *Executor) ExecuteOptional(
	ctx context.Context,
	tenantID, family, key string,
	payload any,
	fn func(ctx context.Context, tx *Tx) ([]string, error),
) (ExecResult, error) {
	if key != "" {
		return e.Execute(ctx, tenantID, family, key, payload, fn)
	}
	var res ExecResult
	err := e.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		ids, err := fn(ctx, tx)
		res.IDs = ids
		return err
	})
	if err != nil {
		return ExecResult{}, err
	}
	return res, nil
}

func (e *Executor) invalidate(ctx context.Context, tenantID string, touched map[string]struct{}) {
	if e.cache == nil || len(touched) == 0 {
		return
	}
	items := make([]string, 0, len(touched))
	for id := range touched {
		items = append(items, id)
	}
	sort.Strings(items)
	for _, itemID := range items {
		if err := e.cache.Invalidate(ctx, tenantID, itemID); err != nil {
			e.log.Tenant(tenantID).Warn().Err(err).Str("item_id", itemID).Msg("no se pudo invalidar caché de disponibilidad")
		}
	}
}
