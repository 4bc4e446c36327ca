/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's result types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry go-playground/validator tags for shape checks
  (required fields, bounds). Domain rules stay in the actuarial package,
  so a structurally valid request can still be rejected with 422.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/astha/treasury-engine/actuarial"
	"github.com/astha/treasury-engine/agents"
	"github.com/astha/treasury-engine/store/sqlite"
)

// =============================================================================
// LIABILITY
// =============================================================================

// LiabilityParamsRequest is the body of the liability endpoints. Projection
// years and rupiah depreciation are optional.
type LiabilityParamsRequest struct {
	TotalPilgrims          int      `json:"total_pilgrims" validate:"required"`
	SaudiInflationRate     float64  `json:"saudi_inflation_rate"`
	USDExchangeRate        float64  `json:"usd_exchange_rate" validate:"gte=0"`
	BaseCostPerPilgrim     float64  `json:"base_cost_per_pilgrim" validate:"required"`
	DiscountRate           float64  `json:"discount_rate" validate:"required"`
	ProjectionYears        *int     `json:"projection_years,omitempty"`
	RupiahDepreciationRate *float64 `json:"rupiah_depreciation_rate,omitempty"`
}

// toParams converts the request to engine parameters. Only absent optional
// fields take defaults; an explicit zero reaches validation.
func (r LiabilityParamsRequest) toParams() actuarial.LiabilityParameters {
	p := actuarial.LiabilityParameters{
		TotalPilgrims:      r.TotalPilgrims,
		SaudiInflationRate: r.SaudiInflationRate,
		USDExchangeRate:    r.USDExchangeRate,
		BaseCostPerPilgrim: r.BaseCostPerPilgrim,
		DiscountRate:       r.DiscountRate,
		ProjectionYears:    actuarial.DefaultProjectionYears,
	}
	if r.ProjectionYears != nil {
		p.ProjectionYears = *r.ProjectionYears
	}
	if r.RupiahDepreciationRate != nil {
		p.RupiahDepreciationRate = *r.RupiahDepreciationRate
	} else {
		p.RupiahDepreciationRate = actuarial.DefaultRupiahDepreciationRate
	}
	return p
}

// ProjectionDTO is a computed projection.
type ProjectionDTO struct {
	ID                      string                        `json:"id,omitempty"`
	Params                  actuarial.LiabilityParameters `json:"params"`
	TotalLiability          float64                       `json:"total_liability"`
	TotalLiabilityFormatted string                        `json:"total_liability_formatted"`
	Projections             []actuarial.YearProjection    `json:"projections"`
	Cautions                []string                      `json:"cautions,omitempty"`
}

func toProjectionDTO(id string, p actuarial.LiabilityParameters, proj actuarial.Projection) ProjectionDTO {
	return ProjectionDTO{
		ID:                      id,
		Params:                  p,
		TotalLiability:          proj.TotalLiability,
		TotalLiabilityFormatted: actuarial.FormatRupiah(proj.TotalLiability),
		Projections:             proj.Years,
		Cautions:                proj.Cautions,
	}
}

// SweepParameterRequest is one swept parameter.
type SweepParameterRequest struct {
	Name   string    `json:"name" validate:"required,oneof=total_pilgrims saudi_inflation_rate usd_exchange_rate base_cost_per_pilgrim discount_rate projection_years rupiah_depreciation_rate"`
	Values []float64 `json:"values" validate:"required,min=1"`
}

// SensitivityRequest runs a one-factor sweep. An empty sweep uses the
// configured one.
type SensitivityRequest struct {
	Params LiabilityParamsRequest  `json:"params"`
	Sweep  []SweepParameterRequest `json:"sweep,omitempty" validate:"omitempty,dive"`
}

// SensitivityResponse is the sweep outcome.
type SensitivityResponse struct {
	ID       string                        `json:"id,omitempty"`
	Baseline float64                       `json:"baseline_liability"`
	Results  []actuarial.SensitivityResult `json:"results"`
}

// CalculationDTO is an audited calculation.
type CalculationDTO struct {
	ID             string                        `json:"id"`
	CalculatedAt   time.Time                     `json:"calculated_at"`
	Params         actuarial.LiabilityParameters `json:"params"`
	TotalLiability decimal.Decimal               `json:"total_liability"`
	CreatedBy      string                        `json:"created_by"`
}

func toCalculationDTO(c sqlite.CalculationRecord) CalculationDTO {
	return CalculationDTO{
		ID:             c.ID,
		CalculatedAt:   c.CalculatedAt,
		Params:         c.Params,
		TotalLiability: c.TotalLiability,
		CreatedBy:      c.CreatedBy,
	}
}

// ReportRequest renders a PDF. Stress and Monte Carlo sections use the
// configured fund assets unless Assets is given.
type ReportRequest struct {
	Params            LiabilityParamsRequest `json:"params"`
	Title             string                 `json:"title,omitempty" validate:"max=120"`
	Assets            *float64               `json:"assets,omitempty" validate:"omitempty,gt=0"`
	IncludeStress     bool                   `json:"include_stress"`
	IncludeMonteCarlo bool                   `json:"include_monte_carlo"`
	Simulations       int                    `json:"simulations,omitempty" validate:"omitempty,gte=1,lte=100000"`
	Seed              *int64                 `json:"seed,omitempty"`
}

// =============================================================================
// STRESS
// =============================================================================

// StressRequest shocks a fund position. Missing values use the configured
// fund.
type StressRequest struct {
	Assets    *float64 `json:"assets,omitempty" validate:"omitempty,gte=0"`
	Liability *float64 `json:"liability,omitempty" validate:"omitempty,gte=0"`
}

// StressResponse is the catalog outcome.
type StressResponse struct {
	ID        string                   `json:"id,omitempty"`
	Assets    float64                  `json:"assets"`
	Liability float64                  `json:"liability"`
	Results   []actuarial.StressResult `json:"results"`
}

// MonteCarloRequest runs the solvency simulation.
type MonteCarloRequest struct {
	Assets      *float64 `json:"assets,omitempty" validate:"omitempty,gte=0"`
	Liability   *float64 `json:"liability,omitempty" validate:"omitempty,gte=0"`
	Simulations int      `json:"simulations,omitempty" validate:"omitempty,gte=1,lte=1000000"`
	Seed        *int64   `json:"seed,omitempty"`
}

// MonteCarloResponse is the simulation outcome.
type MonteCarloResponse struct {
	ID        string  `json:"id,omitempty"`
	Seed      int64   `json:"seed"`
	Assets    float64 `json:"assets"`
	Liability float64 `json:"liability"`
	actuarial.MonteCarloResult
}

// SimulationDTO is a stored simulation with its raw JSON payloads.
type SimulationDTO struct {
	ID           string    `json:"id"`
	Type         string    `json:"simulation_type"`
	ScenarioName string    `json:"scenario_name"`
	Parameters   rawJSON   `json:"parameters"`
	Results      rawJSON   `json:"results"`
	CreatedAt    time.Time `json:"created_at"`
}

// rawJSON embeds stored JSON verbatim.
type rawJSON string

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if r == "" {
		return []byte("null"), nil
	}
	return []byte(r), nil
}

// =============================================================================
// AGENTS
// =============================================================================

// AgentPerformanceDTO aggregates executions of one agent.
type AgentPerformanceDTO struct {
	AgentName            string    `json:"agent_name"`
	TotalExecutions      int       `json:"total_executions"`
	SuccessfulExecutions int       `json:"successful_executions"`
	SuccessRate          float64   `json:"success_rate"`
	AvgDurationSeconds   float64   `json:"avg_duration_seconds"`
	LastExecution        time.Time `json:"last_execution"`
}

func toAgentPerformanceDTO(p sqlite.AgentPerformance) AgentPerformanceDTO {
	dto := AgentPerformanceDTO{
		AgentName:            p.AgentName,
		TotalExecutions:      p.TotalExecutions,
		SuccessfulExecutions: p.SuccessfulExecutions,
		AvgDurationSeconds:   p.AvgDurationSeconds,
		LastExecution:        p.LastExecution,
	}
	if p.TotalExecutions > 0 {
		dto.SuccessRate = float64(p.SuccessfulExecutions) / float64(p.TotalExecutions) * 100
	}
	return dto
}

// AgentsResponse lists agents and the scheduler state.
type AgentsResponse struct {
	Agents    []agents.Info   `json:"agents"`
	Scheduler *SchedulerState `json:"scheduler,omitempty"`
}

// SchedulerState describes the daily scheduler.
type SchedulerState struct {
	Enabled  bool       `json:"enabled"`
	Interval string     `json:"interval"`
	LastRun  *time.Time `json:"last_run,omitempty"`
}

// =============================================================================
// MISC
// =============================================================================

// HajjCostDTO is one year of the cost table.
type HajjCostDTO struct {
	Year         int             `json:"year"`
	BPIH         decimal.Decimal `json:"bpih"`
	Bipih        decimal.Decimal `json:"bipih"`
	BenefitValue decimal.Decimal `json:"benefit_value"`
	USDRate      float64         `json:"usd_rate,omitempty"`
	SARRate      float64         `json:"sar_rate,omitempty"`
}

func toHajjCostDTO(c sqlite.HajjCost) HajjCostDTO {
	return HajjCostDTO{
		Year:         c.Year,
		BPIH:         c.BPIH,
		Bipih:        c.Bipih,
		BenefitValue: c.BenefitValue,
		USDRate:      c.USDRate,
		SARRate:      c.SARRate,
	}
}

// AskRequest is a question for the assistant.
type AskRequest struct {
	Prompt string `json:"prompt" validate:"required,max=2000"`
}

// DefaultsResponse is what the dashboard pre-fills its forms with.
type DefaultsResponse struct {
	AppName    string                        `json:"app_name"`
	AppVersion string                        `json:"app_version"`
	Params     actuarial.LiabilityParameters `json:"params"`
	Sweep      actuarial.Sweep               `json:"sweep"`
	Assets     float64                       `json:"assets"`
	Liability  float64                       `json:"liability"`
	Projection ProjectionDTO                 `json:"projection"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
