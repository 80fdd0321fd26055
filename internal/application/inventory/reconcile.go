package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/inventory"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
	"github.com/jhoicas/inventario-core/pkg/logger"
	"github.com/shopspring/decimal"
)

// DefaultReconcileEpsilon tolerancia por defecto (redondeo de conversiones de unidad).
var DefaultReconcileEpsilon = decimal.New(1, -6)

// Campos reconciliados.
const (
	FieldOnHand    = "on_hand"
	FieldReserved  = "reserved"
	FieldAllocated = "allocated"
)

// Divergence diferencia entre el saldo materializado y su fuente canónica.
type Divergence struct {
	Key      entity.BalanceKey
	Field    string
	Expected decimal.Decimal // valor canónico (ledger o reservas abiertas)
	Actual   decimal.Decimal // valor del saldo
}

// ReconcileUseCase verificación continua: on_hand == Σ ledger y reserved/allocated == Σ reservas abiertas.
type ReconcileUseCase struct {
	exec    *Executor
	log     *logger.Logger
	epsilon decimal.Decimal
}

// NewReconcileUseCase construye el reconciliador.
func NewReconcileUseCase(exec *Executor, log *logger.Logger, epsilon decimal.Decimal) *ReconcileUseCase {
	if log == nil {
		log = logger.Nop()
	}
	if !epsilon.IsPositive() {
		epsilon = DefaultReconcileEpsilon
	}
	return &ReconcileUseCase{exec: exec, log: log, epsilon: epsilon}
}

// Reconcile compara, para todas las llaves del tenant, los saldos contra el ledger y las
// reservas abiertas. Cada divergencia se reporta con nivel error.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, tenantID string) ([]Divergence, error) {
	var out []Divergence
	err := uc.exec.InTx(ctx, tenantID, func(ctx context.Context, tx *Tx) error {
		out = nil
		balances, err := tx.Balances.ListByTenant(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("list balances: %w", err)
		}
		totals, err := tx.Movements.LedgerTotals(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("ledger totals: %w", err)
		}
		commitments, err := tx.Reservations.OpenTotals(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("open totals: %w", err)
		}
		out = compare(balances, totals, commitments, uc.epsilon)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, d := range out {
		uc.log.Tenant(tenantID).Error().
			Str("item_id", d.Key.ItemID).
			Str("location_id", d.Key.LocationID).
			Str("uom", d.Key.UOM).
			Str("field", d.Field).
			Str("expected", d.Expected.String()).
			Str("actual", d.Actual.String()).
			Msg("divergencia de saldo")
	}
	return out, nil
}

func compare(balances []*entity.Balance, totals []repository.LedgerTotal, commitments []repository.OpenCommitment, eps decimal.Decimal) []Divergence {
	type row struct {
		onHand, reserved, allocated     decimal.Decimal
		ledger, openReserved, openAlloc decimal.Decimal
	}
	rows := map[entity.BalanceKey]*row{}
	get := func(k entity.BalanceKey) *row {
		r, ok := rows[k]
		if !ok {
			r = &row{}
			rows[k] = r
		}
		return r
	}
	for _, b := range balances {
		r := get(b.Key())
		r.onHand, r.reserved, r.allocated = b.OnHand, b.Reserved, b.Allocated
	}
	for _, t := range totals {
		get(t.Key).ledger = t.Quantity
	}
	for _, c := range commitments {
		r := get(c.Key)
		r.openReserved, r.openAlloc = c.Reserved, c.Allocated
	}

	var out []Divergence
	keys := make([]entity.BalanceKey, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	for _, k := range inventory.SortBalanceKeys(keys) {
		r := rows[k]
		check := func(field string, expected, actual decimal.Decimal) {
			if expected.Sub(actual).Abs().GreaterThan(eps) {
				out = append(out, Divergence{Key: k, Field: field, Expected: expected, Actual: actual})
			}
		}
		check(FieldOnHand, r.ledger, r.onHand)
		check(FieldReserved, r.openReserved, r.reserved)
		check(FieldAllocated, r.openAlloc, r.allocated)
	}
	return out
}

// Run ejecuta Reconcile para todos los tenants cada interval hasta que ctx se cancele.
func (uc *ReconcileUseCase) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			uc.runOnce(ctx)
		}
	}
}

func (uc *ReconcileUseCase) runOnce(ctx context.Context) {
	var tenants []string
	err := uc.exec.runner.Run(ctx, func(repos Repos) error {
		var err error
		tenants, err = repos.Balances.ListTenants(ctx)
		return err
	})
	if err != nil {
		uc.log.Error().Err(err).Msg("reconciliación: no se pudieron listar tenants")
		return
	}
	total := 0
	for _, t := range tenants {
		divs, err := uc.Reconcile(ctx, t)
		if err != nil {
			uc.log.Tenant(t).Error().Err(err).Msg("reconciliación falló")
			continue
		}
		total += len(divs)
	}
	uc.log.Info().Int("tenants", len(tenants)).Int("divergences", total).Msg("reconciliación completada")
}
