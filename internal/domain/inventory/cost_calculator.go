package inventory

import (
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum)
}

// AverageUnitCost promedio ponderado de las capas activas (remaining × unit_cost), acumulado
// capa por capa con CostCalculator. Se usa para costear sobrantes de conteo sin costo explícito.
func AverageUnitCost(layers []*entity.CostLayer) decimal.Decimal {
	qty, cost := decimal.Zero, decimal.Zero
	for _, l := range layers {
		if l.IsVoided() || !l.RemainingQuantity().IsPositive() {
			continue
		}
		cost = CostCalculator(qty, cost, l.RemainingQuantity(), l.UnitCost())
		qty = qty.Add(l.RemainingQuantity())
	}
	return cost
}
