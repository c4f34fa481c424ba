package workflow

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Estimate is the output of the cost estimator.
type Estimate struct {
	FuelNeededLiters decimal.Decimal
	TotalCost        decimal.Decimal
}

// EstimateCost computes fuel need and total cost for a trip:
// fuelNeeded = distance / efficiency, totalCost = fuelNeeded * price.
// Pure and idempotent — callers may recalculate freely before the
// request advances, overwriting prior cost fields.
func EstimateCost(distanceKm, fuelPricePerLiter, fuelEfficiencyKmPerLiter decimal.Decimal) (Estimate, error) {
	if distanceKm.LessThanOrEqual(decimal.Zero) {
		return Estimate{}, fmt.Errorf("%w: distance must be positive, got %s", ErrInvalidEstimationInput, distanceKm)
	}
	if fuelPricePerLiter.LessThanOrEqual(decimal.Zero) {
		return Estimate{}, fmt.Errorf("%w: fuel price must be positive, got %s", ErrInvalidEstimationInput, fuelPricePerLiter)
	}
	if fuelEfficiencyKmPerLiter.LessThanOrEqual(decimal.Zero) {
		return Estimate{}, fmt.Errorf("%w: fuel efficiency must be positive, got %s", ErrInvalidEstimationInput, fuelEfficiencyKmPerLiter)
	}

	fuelNeeded := distanceKm.Div(fuelEfficiencyKmPerLiter)
	return Estimate{
		FuelNeededLiters: fuelNeeded,
		TotalCost:        fuelNeeded.Mul(fuelPricePerLiter),
	}, nil
}
