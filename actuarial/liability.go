/*
liability.go - Discounted cash-flow liability projector

PURPOSE:
  Projects the cost of serving the waiting list of pilgrims year by year and
  discounts each year back to today. The sum of discounted years is the
  present-value liability of the fund.

FORMULA:
  For t = 1..ProjectionYears:

    C_t  = C_0 × (1 + inflation)^t × (1 + depreciation)^t
    J_t  = TotalPilgrims / ProjectionYears
    PV_t = (C_t × J_t) / (1 + discount)^t

    L_total = Σ PV_t

  Saudi-side price inflation and rupiah depreciation compound independently:
  the rupiah cost of a riyal-denominated service rises with both.

  Pilgrims are spread uniformly across the horizon (J_t is not rounded).

VALIDATION:
  Non-positive ProjectionYears, TotalPilgrims, BaseCostPerPilgrim or
  DiscountRate fail before any computation. Negative inflation or
  depreciation is allowed and reported in Projection.Cautions.

  Inputs inside those bounds can still overflow float64 (e.g. an extreme
  inflation rate over a long horizon). A non-finite present value or total
  fails with an InvalidParameterError on field "projection".

  USDExchangeRate is carried for reporting only and does not enter the formula.

SEE ALSO:
  - sensitivity.go: Re-runs Project across parameter sweeps
  - types.go: LiabilityParameters, YearProjection
*/
package actuarial

import (
	"fmt"
	"math"
)

// Project computes the year-by-year discounted schedule for p.
func Project(p LiabilityParameters) (Projection, error) {
	if err := Validate(p); err != nil {
		return Projection{}, err
	}

	var (
		inflation    = 1 + p.SaudiInflationRate/100
		depreciation = 1 + p.RupiahDepreciationRate/100
		discount     = 1 + p.DiscountRate/100
		perYear      = float64(p.TotalPilgrims) / float64(p.ProjectionYears)
	)

	proj := Projection{
		Years:    make([]YearProjection, 0, p.ProjectionYears),
		Cautions: cautions(p),
	}

	for t := 1; t <= p.ProjectionYears; t++ {
		ft := float64(t)
		cost := p.BaseCostPerPilgrim * math.Pow(inflation, ft) * math.Pow(depreciation, ft)
		total := cost * perYear
		pv := total / math.Pow(discount, ft)
		if !finite(pv) {
			return Projection{}, invalid("projection", pv, fmt.Sprintf("present value for %d overflows", BaseYear+t))
		}

		proj.TotalLiability += pv
		proj.Years = append(proj.Years, YearProjection{
			Year:                  BaseYear + t,
			CostPerPilgrimNominal: cost,
			PilgrimsThisYear:      perYear,
			TotalCostNominal:      total,
			PresentValue:          pv,
		})
	}

	if !finite(proj.TotalLiability) {
		return Projection{}, invalid("projection", proj.TotalLiability, "total liability overflows")
	}

	return proj, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks the hard constraints on p without computing anything.
func Validate(p LiabilityParameters) error {
	switch {
	case p.ProjectionYears <= 0:
		return invalid("projection_years", float64(p.ProjectionYears), "must be positive")
	case p.ProjectionYears > MaxProjectionYears:
		return invalid("projection_years", float64(p.ProjectionYears),
			fmt.Sprintf("must not exceed %d", MaxProjectionYears))
	case p.TotalPilgrims <= 0:
		return invalid("total_pilgrims", float64(p.TotalPilgrims), "must be positive")
	case !(p.BaseCostPerPilgrim > 0):
		return invalid("base_cost_per_pilgrim", p.BaseCostPerPilgrim, "must be positive")
	case !(p.DiscountRate > 0):
		return invalid("discount_rate", p.DiscountRate, "must be positive")
	case math.IsNaN(p.SaudiInflationRate) || math.IsInf(p.SaudiInflationRate, 0):
		return invalid("saudi_inflation_rate", p.SaudiInflationRate, "must be finite")
	case math.IsNaN(p.RupiahDepreciationRate) || math.IsInf(p.RupiahDepreciationRate, 0):
		return invalid("rupiah_depreciation_rate", p.RupiahDepreciationRate, "must be finite")
	}
	return nil
}

func cautions(p LiabilityParameters) []string {
	var out []string
	if p.SaudiInflationRate < 0 {
		out = append(out, fmt.Sprintf("saudi_inflation_rate is negative (%.2f%%)", p.SaudiInflationRate))
	}
	if p.RupiahDepreciationRate < 0 {
		out = append(out, fmt.Sprintf("rupiah_depreciation_rate is negative (%.2f%%)", p.RupiahDepreciationRate))
	}
	return out
}
