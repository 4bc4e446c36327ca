/*
sensitivity.go - One-factor-at-a-time sensitivity analysis

PURPOSE:
  Measures how the present-value liability responds to each assumption by
  overriding one field of a base parameter set at a time.

PROCESS:
  1. Project the unmodified base once (the baseline)
  2. For each parameter in sweep order, for each candidate value in order:
     clone base, override that single field, Project
  3. percent_change = (liability - baseline) / baseline × 100

  The result count is the total number of candidate values in the sweep.
  No interactions between parameters are explored (not a full factorial).

EXAMPLE:
  results, err := actuarial.Analyze(actuarial.DefaultParameters(), actuarial.Sweep{
      {Name: actuarial.ParamSaudiInflation, Values: []float64{2, 5, 8}},
      {Name: actuarial.ParamDiscountRate, Values: []float64{4.5, 8.5}},
  })
  // len(results) == 5

SEE ALSO:
  - liability.go: Project
*/
package actuarial

import "fmt"

// Sweepable parameter names (JSON field names of LiabilityParameters).
const (
	ParamTotalPilgrims          = "total_pilgrims"
	ParamSaudiInflation         = "saudi_inflation_rate"
	ParamUSDExchangeRate        = "usd_exchange_rate"
	ParamBaseCost               = "base_cost_per_pilgrim"
	ParamDiscountRate           = "discount_rate"
	ParamProjectionYears        = "projection_years"
	ParamRupiahDepreciationRate = "rupiah_depreciation_rate"
)

// SweepParameter is one parameter and its ordered candidate values.
type SweepParameter struct {
	Name   string    `json:"name" yaml:"name"`
	Values []float64 `json:"values" yaml:"values"`
}

// Sweep is an ordered list of parameters to vary. Order is preserved in the
// output, which a Go map could not guarantee.
type Sweep []SweepParameter

// Count returns the number of results Analyze produces for s.
func (s Sweep) Count() int {
	n := 0
	for _, p := range s {
		n += len(p.Values)
	}
	return n
}

// DefaultSweep returns the reference sweep used by the dashboard.
func DefaultSweep() Sweep {
	return Sweep{
		{Name: ParamSaudiInflation, Values: []float64{2.0, 3.5, 5.0, 6.5, 8.0}},
		{Name: ParamUSDExchangeRate, Values: []float64{14000, 15500, 17000, 18500, 20000}},
		{Name: ParamDiscountRate, Values: []float64{4.5, 6.5, 8.5, 10.5, 12.5}},
	}
}

// Analyze runs a one-factor-at-a-time sweep around base.
func Analyze(base LiabilityParameters, sweep Sweep) ([]SensitivityResult, error) {
	baseline, err := Project(base)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	return AnalyzeFrom(baseline, base, sweep)
}

// AnalyzeFrom is Analyze with the baseline projection of base already
// computed, for callers that also report the baseline.
func AnalyzeFrom(baseline Projection, base LiabilityParameters, sweep Sweep) ([]SensitivityResult, error) {
	if !finite(baseline.TotalLiability) {
		return nil, invalid("projection", baseline.TotalLiability, "baseline liability is not finite")
	}
	if baseline.TotalLiability == 0 {
		return nil, ErrDegenerateBaseline
	}

	results := make([]SensitivityResult, 0, sweep.Count())
	for _, sp := range sweep {
		for _, v := range sp.Values {
			params, err := Override(base, sp.Name, v)
			if err != nil {
				return nil, err
			}
			proj, err := Project(params)
			if err != nil {
				return nil, fmt.Errorf("%s=%v: %w", sp.Name, v, err)
			}
			results = append(results, SensitivityResult{
				Parameter:     sp.Name,
				TestedValue:   v,
				Liability:     proj.TotalLiability,
				PercentChange: (proj.TotalLiability - baseline.TotalLiability) / baseline.TotalLiability * 100,
			})
		}
	}
	return results, nil
}

// Override returns a copy of p with the named field set to v. Integer fields
// must receive whole numbers.
func Override(p LiabilityParameters, name string, v float64) (LiabilityParameters, error) {
	switch name {
	case ParamTotalPilgrims:
		n, err := whole(name, v)
		if err != nil {
			return p, err
		}
		p.TotalPilgrims = n
	case ParamSaudiInflation:
		p.SaudiInflationRate = v
	case ParamUSDExchangeRate:
		p.USDExchangeRate = v
	case ParamBaseCost:
		p.BaseCostPerPilgrim = v
	case ParamDiscountRate:
		p.DiscountRate = v
	case ParamProjectionYears:
		n, err := whole(name, v)
		if err != nil {
			return p, err
		}
		p.ProjectionYears = n
	case ParamRupiahDepreciationRate:
		p.RupiahDepreciationRate = v
	default:
		return p, invalid(name, v, "unknown sensitivity parameter")
	}
	return p, nil
}

func whole(name string, v float64) (int, error) {
	n := int(v)
	if float64(n) != v {
		return 0, invalid(name, v, "must be a whole number")
	}
	return n, nil
}
