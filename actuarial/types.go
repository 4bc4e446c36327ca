/*
Package actuarial provides the liability and solvency calculation engine.

PURPOSE:
  Pure functions that turn actuarial assumptions into a discounted cash-flow
  schedule of the hajj subsidy obligation, and stress the fund's assets
  against that obligation. Everything above this package (HTTP, agents,
  persistence, reports) calls in and renders what comes out.

KEY CONCEPTS IN THIS FILE (types.go):
  - LiabilityParameters: Scalar assumptions driving one projection
  - YearProjection: One row of the discounted cash-flow schedule
  - Projection: The schedule plus its present-value total
  - SensitivityResult, StressResult, MonteCarloResult: Analysis outputs

DESIGN PRINCIPLES:
  1. Values only: Inputs and outputs are plain structs, copied on call
  2. No ambient state: Defaults and seeds are passed in, never read from env
  3. No I/O: No logging, no clock, no globals - safe for concurrent callers
  4. Fail fast: Invalid inputs return errors, never silently clamped

USAGE:
  params := actuarial.DefaultParameters()
  params.DiscountRate = 7.0

  proj, err := actuarial.Project(params)
  if err != nil {
      return err
  }
  fmt.Println(actuarial.FormatRupiah(proj.TotalLiability))

SEE ALSO:
  - liability.go: Discounted cash-flow projector
  - sensitivity.go: One-factor-at-a-time sweeps
  - stress.go: Scenario catalog and solvency classification
  - montecarlo.go: Seeded solvency simulation
*/
package actuarial

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// BaseYear anchors the projection; year t of the schedule is BaseYear + t.
	BaseYear = 2025

	// DefaultProjectionYears is used when ProjectionYears is omitted.
	DefaultProjectionYears = 20

	// DefaultRupiahDepreciationRate is used when RupiahDepreciationRate is omitted.
	DefaultRupiahDepreciationRate = 3.0

	// MaxProjectionYears bounds the schedule length.
	MaxProjectionYears = 100
)

// =============================================================================
// LIABILITY PARAMETERS
// =============================================================================

// LiabilityParameters are the scalar assumptions of a liability projection.
// Rates are expressed in percent (3.5 means 3.5%).
type LiabilityParameters struct {
	TotalPilgrims          int     `json:"total_pilgrims" yaml:"total_pilgrims"`
	SaudiInflationRate     float64 `json:"saudi_inflation_rate" yaml:"saudi_inflation_rate"`
	USDExchangeRate        float64 `json:"usd_exchange_rate" yaml:"usd_exchange_rate"`
	BaseCostPerPilgrim     float64 `json:"base_cost_per_pilgrim" yaml:"base_cost_per_pilgrim"`
	DiscountRate           float64 `json:"discount_rate" yaml:"discount_rate"`
	ProjectionYears        int     `json:"projection_years" yaml:"projection_years"`
	RupiahDepreciationRate float64 `json:"rupiah_depreciation_rate" yaml:"rupiah_depreciation_rate"`
}

// DefaultParameters returns the reference assumption set: 2.5 million waiting
// pilgrims, 3.5% Saudi inflation, 15,500 IDR/USD, Rp 94,482,028 per pilgrim,
// 6.5% discount rate over 20 years with 3% rupiah depreciation.
func DefaultParameters() LiabilityParameters {
	return LiabilityParameters{
		TotalPilgrims:          2_500_000,
		SaudiInflationRate:     3.5,
		USDExchangeRate:        15_500,
		BaseCostPerPilgrim:     94_482_028,
		DiscountRate:           6.5,
		ProjectionYears:        DefaultProjectionYears,
		RupiahDepreciationRate: DefaultRupiahDepreciationRate,
	}
}

// WithDefaults fills the two optional fields (ProjectionYears and
// RupiahDepreciationRate) when they are zero. Use it only where zero means
// "not given", such as a partially written config file; request input keeps
// explicit zeros so they fail validation. Every other field is left untouched.
func (p LiabilityParameters) WithDefaults() LiabilityParameters {
	if p.ProjectionYears == 0 {
		p.ProjectionYears = DefaultProjectionYears
	}
	if p.RupiahDepreciationRate == 0 {
		p.RupiahDepreciationRate = DefaultRupiahDepreciationRate
	}
	return p
}

// =============================================================================
// PROJECTION OUTPUT
// =============================================================================

// YearProjection is one year of the discounted cash-flow schedule.
type YearProjection struct {
	Year                  int     `json:"year"`
	CostPerPilgrimNominal float64 `json:"cost_per_pilgrim_nominal"`
	PilgrimsThisYear      float64 `json:"pilgrims_this_year"`
	TotalCostNominal      float64 `json:"total_cost_nominal"`
	PresentValue          float64 `json:"present_value"`
}

// Projection is the full schedule. TotalLiability is the sum of PresentValue
// over Years.
type Projection struct {
	TotalLiability float64          `json:"total_liability"`
	Years          []YearProjection `json:"projections"`

	// Cautions lists non-fatal warnings (e.g. negative rates).
	Cautions []string `json:"cautions,omitempty"`
}

// =============================================================================
// ANALYSIS OUTPUT
// =============================================================================

// SensitivityResult is the liability obtained by overriding a single parameter.
type SensitivityResult struct {
	Parameter     string  `json:"parameter"`
	TestedValue   float64 `json:"tested_value"`
	Liability     float64 `json:"liability"`
	PercentChange float64 `json:"percent_change"`
}

// Status classifies a solvency ratio.
type Status string

const (
	StatusSafe     Status = "Safe"
	StatusCaution  Status = "Caution"
	StatusHighRisk Status = "High Risk"
)

// StressScenario is a named multiplicative shock.
type StressScenario struct {
	Name                string  `json:"name"`
	LiabilityMultiplier float64 `json:"liability_multiplier"`
	AssetMultiplier     float64 `json:"asset_multiplier"`
	Description         string  `json:"description"`
}

// StressResult is a scenario applied to aggregate assets and liability.
type StressResult struct {
	Scenario         string  `json:"scenario"`
	Description      string  `json:"description"`
	ShockedAssets    float64 `json:"shocked_assets"`
	ShockedLiability float64 `json:"shocked_liability"`
	SolvencyRatio    float64 `json:"solvency_ratio"`
	Status           Status  `json:"status"`
}

// MonteCarloResult summarizes the simulated distribution of solvency ratios.
type MonteCarloResult struct {
	Samples                []float64 `json:"solvency_ratio_samples"`
	Mean                   float64   `json:"mean"`
	StdDev                 float64   `json:"std_dev"`
	ProbabilitySafePercent float64   `json:"probability_safe_percent"`
	WorstCase              float64   `json:"worst_case"`
	BestCase               float64   `json:"best_case"`
}
