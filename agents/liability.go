package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/astha/treasury-engine/actuarial"
)

// Liability analysis kinds.
const (
	LiabilityBasic       = "basic"
	LiabilitySensitivity = "sensitivity"
	LiabilityScenarios   = "scenarios"
	LiabilityFull        = "full"
)

// scenarioProjectionYears is how many projection rows each scenario keeps.
const scenarioProjectionYears = 5

// liabilityScenario overrides inflation and exchange rate on top of the base
// assumptions. A zero inflation keeps the base value.
type liabilityScenario struct {
	name        string
	description string
	inflation   float64
	usdRate     float64
}

var liabilityScenarios = []liabilityScenario{
	{name: "Base Case", description: "Base assumptions"},
	{name: "Optimistic", description: "Low Saudi inflation and a stronger rupiah", inflation: 2.0, usdRate: 14_000},
	{name: "Pessimistic", description: "High Saudi inflation and a weaker rupiah", inflation: 6.0, usdRate: 18_000},
	{name: "Stress Test", description: "Extreme inflation and exchange rate", inflation: 8.0, usdRate: 20_000},
}

// ScenarioOutcome is one liability scenario of the scenario set.
type ScenarioOutcome struct {
	Name               string                     `json:"name"`
	Description        string                     `json:"description"`
	SaudiInflationRate float64                    `json:"saudi_inflation_rate"`
	USDExchangeRate    float64                    `json:"usd_exchange_rate"`
	TotalLiability     float64                    `json:"total_liability"`
	LiabilityTrillions float64                    `json:"liability_trillions"`
	Projections        []actuarial.YearProjection `json:"projections"`
}

// LiabilityAnalysis is the result of a liability_analyst execution. Sections
// not requested by the kind are left empty.
type LiabilityAnalysis struct {
	Kind           string                        `json:"kind"`
	Params         actuarial.LiabilityParameters `json:"params"`
	TotalLiability float64                       `json:"total_liability,omitempty"`
	Projection     *actuarial.Projection         `json:"projection,omitempty"`
	Sensitivity    []actuarial.SensitivityResult `json:"sensitivity_analysis,omitempty"`
	Scenarios      []ScenarioOutcome             `json:"scenarios,omitempty"`
}

// LiabilityAnalyst projects, stresses and sweeps the fund's liability.
type LiabilityAnalyst struct {
	base

	defaults actuarial.LiabilityParameters
	sweep    actuarial.Sweep
}

// NewLiabilityAnalyst creates the analyst. defaults fills any field a request
// leaves out; sweep drives the sensitivity kind.
func NewLiabilityAnalyst(defaults actuarial.LiabilityParameters, sweep actuarial.Sweep, recorder Recorder, logger *zap.Logger) *LiabilityAnalyst {
	if len(sweep) == 0 {
		sweep = actuarial.DefaultSweep()
	}
	return &LiabilityAnalyst{
		base:     newBase("liability_analyst", "Analyzes and projects the hajj fund liability", recorder, logger),
		defaults: defaults,
		sweep:    sweep,
	}
}

// Execute runs the requested kind (default full).
func (a *LiabilityAnalyst) Execute(ctx context.Context, req Request) (any, error) {
	if req.Kind == "" {
		req.Kind = LiabilityFull
	}
	return a.run(ctx, req, func() (any, error) {
		return a.Analyze(req.Kind, a.resolve(req.Params))
	})
}

// Analyze computes the sections of kind for p without touching agent status.
func (a *LiabilityAnalyst) Analyze(kind string, p actuarial.LiabilityParameters) (*LiabilityAnalysis, error) {
	out := &LiabilityAnalysis{Kind: kind, Params: p}

	switch kind {
	case LiabilityBasic, LiabilitySensitivity, LiabilityScenarios, LiabilityFull:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if kind == LiabilityBasic || kind == LiabilityFull {
		proj, err := actuarial.Project(p)
		if err != nil {
			return nil, err
		}
		out.TotalLiability = proj.TotalLiability
		out.Projection = &proj
	}

	if kind == LiabilitySensitivity || kind == LiabilityFull {
		results, err := actuarial.Analyze(p, a.sweep)
		if err != nil {
			return nil, err
		}
		out.Sensitivity = results
	}

	if kind == LiabilityScenarios || kind == LiabilityFull {
		scenarios, err := runScenarios(p)
		if err != nil {
			return nil, err
		}
		out.Scenarios = scenarios
	}

	return out, nil
}

// resolve applies the present fields of o over the analyst defaults. The
// defaults come from configuration, where an omitted optional field is zero.
func (a *LiabilityAnalyst) resolve(o *ParamOverrides) actuarial.LiabilityParameters {
	return o.Apply(a.defaults.WithDefaults())
}

func runScenarios(p actuarial.LiabilityParameters) ([]ScenarioOutcome, error) {
	out := make([]ScenarioOutcome, 0, len(liabilityScenarios))
	for _, s := range liabilityScenarios {
		sp := p
		if s.inflation != 0 {
			sp.SaudiInflationRate = s.inflation
		}
		if s.usdRate != 0 {
			sp.USDExchangeRate = s.usdRate
		}

		proj, err := actuarial.Project(sp)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.name, err)
		}

		rows := proj.Years
		if len(rows) > scenarioProjectionYears {
			rows = rows[:scenarioProjectionYears]
		}

		out = append(out, ScenarioOutcome{
			Name:               s.name,
			Description:        s.description,
			SaudiInflationRate: sp.SaudiInflationRate,
			USDExchangeRate:    sp.USDExchangeRate,
			TotalLiability:     proj.TotalLiability,
			LiabilityTrillions: proj.TotalLiability / 1e12,
			Projections:        rows,
		})
	}
	return out, nil
}
