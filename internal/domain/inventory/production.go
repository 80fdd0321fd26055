package inventory

import (
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/shopspring/decimal"
)

// ConservationTolerance tolerancia para la conservación de valor en producción y traslados.
var ConservationTolerance = decimal.New(1, -6)

// unitCostPlaces precisión del costo unitario derivado de producción.
const unitCostPlaces = 10

// ProductionOutput salida de un lote de producción (producto terminado o desperdicio).
type ProductionOutput struct {
	Quantity decimal.Decimal // cantidad canónica usada como peso
	Scrap    bool
}

// ProductionAllocation costo asignado a cada salida.
type ProductionAllocation struct {
	Cost     decimal.Decimal
	UnitCost decimal.Decimal
}

// AllocateProductionCost reparte el costo total de componentes entre las salidas por cantidad.
// La última salida absorbe el residuo decimal para que Σ asignado == total exactamente.
// El desperdicio se valora explícitamente con su parte; nunca se absorbe en silencio.
func AllocateProductionCost(total decimal.Decimal, outputs []ProductionOutput) ([]ProductionAllocation, decimal.Decimal, decimal.Decimal, error) {
	if len(outputs) == 0 {
		return nil, decimal.Zero, decimal.Zero, domain.Invalid("produce_lines", "se requiere al menos una salida")
	}
	totalQty := decimal.Zero
	for _, o := range outputs {
		if !o.Quantity.IsPositive() {
			return nil, decimal.Zero, decimal.Zero, domain.Invalid("produce_lines.quantity", "debe ser mayor que cero")
		}
		totalQty = totalQty.Add(o.Quantity)
	}

	allocs := make([]ProductionAllocation, len(outputs))
	assigned := decimal.Zero
	finished, scrap := decimal.Zero, decimal.Zero
	for i, o := range outputs {
		var cost decimal.Decimal
		if i == len(outputs)-1 {
			cost = total.Sub(assigned)
		} else {
			cost = total.Mul(o.Quantity).DivRound(totalQty, 16)
		}
		assigned = assigned.Add(cost)
		allocs[i] = ProductionAllocation{
			Cost:     cost,
			UnitCost: cost.DivRound(o.Quantity, unitCostPlaces),
		}
		if o.Scrap {
			scrap = scrap.Add(cost)
		} else {
			finished = finished.Add(cost)
		}
	}
	if err := CheckConservation(total, finished.Add(scrap)); err != nil {
		return nil, decimal.Zero, decimal.Zero, err
	}
	return allocs, finished, scrap, nil
}

// CheckConservation verifica |consumido − asignado| ≤ ConservationTolerance.
func CheckConservation(consumed, assigned decimal.Decimal) error {
	if consumed.Sub(assigned).Abs().GreaterThan(ConservationTolerance) {
		return domain.ErrConservationViolated
	}
	return nil
}
