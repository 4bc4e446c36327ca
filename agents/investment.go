package agents

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/astha/treasury-engine/actuarial"
)

// Investment simulation kinds.
const (
	InvestmentOptimization = "portfolio_optimization"
	InvestmentStress       = "stress_test"
	InvestmentMonteCarlo   = "monte_carlo"
)

// Portfolio defaults.
const (
	DefaultPortfolioValue = 180.5e12
	DefaultHorizonYears   = 5

	// RiskFreeRate is the Sharpe ratio hurdle, in percent.
	RiskFreeRate = 6.0

	portfolioExpectedReturn = 0.078
	portfolioVolatility     = 0.12
	maxHorizonYears         = 50
)

// AssetClass is one shariah-compliant asset class with its historical
// annual return and volatility, in percent.
type AssetClass struct {
	Name       string  `json:"name"`
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
	Shariah    bool    `json:"shariah"`
}

var assetClasses = []AssetClass{
	{Name: "Sukuk Negara", Return: 6.5, Volatility: 2.1, Shariah: true},
	{Name: "Sukuk Korporasi", Return: 7.2, Volatility: 3.5, Shariah: true},
	{Name: "Saham Syariah", Return: 12.8, Volatility: 18.2, Shariah: true},
	{Name: "Deposito Syariah", Return: 5.8, Volatility: 0.5, Shariah: true},
	{Name: "Emas", Return: 8.5, Volatility: 15.8, Shariah: true},
	{Name: "Real Estate", Return: 9.2, Volatility: 12.5, Shariah: true},
}

// Allocations in percent, indexed like assetClasses.
var (
	currentAllocation = []float64{45, 20, 15, 10, 5, 5}
	optimalAllocation = []float64{40, 25, 20, 5, 5, 5}
)

// Allocation is a named weight in percent.
type Allocation struct {
	Asset   string  `json:"asset"`
	Percent float64 `json:"percent"`
}

// PortfolioOptimization compares the current allocation with the target.
// Returns and risks are in percent.
type PortfolioOptimization struct {
	Assets                []AssetClass `json:"assets"`
	CurrentAllocation     []Allocation `json:"current_allocation"`
	OptimalAllocation     []Allocation `json:"optimal_allocation"`
	CurrentExpectedReturn float64      `json:"current_expected_return"`
	OptimalExpectedReturn float64      `json:"optimal_expected_return"`
	CurrentRisk           float64      `json:"current_risk"`
	OptimalRisk           float64      `json:"optimal_risk"`
	SharpeImprovement     float64      `json:"sharpe_improvement"`
}

// MarketShock is the percent move of each asset bucket in a scenario.
type MarketShock struct {
	Name       string  `json:"name"`
	Equity     float64 `json:"equity_shock"`
	Bond       float64 `json:"bond_shock"`
	Commodity  float64 `json:"commodity_shock"`
	RealEstate float64 `json:"real_estate_shock"`
}

var marketShocks = []MarketShock{
	{Name: "Global Recession", Equity: -30, Bond: -5, Commodity: -20, RealEstate: -15},
	{Name: "Interest Rate Spike", Equity: -15, Bond: -12, Commodity: 5, RealEstate: -8},
	{Name: "Currency Crisis", Equity: -25, Bond: 10, Commodity: 15, RealEstate: -10},
	{Name: "Geopolitical Shock", Equity: -20, Bond: -3, Commodity: 25, RealEstate: -5},
}

// BucketAllocation is the fund's split over the shocked buckets (fractions).
type BucketAllocation struct {
	Equity      float64 `json:"equity"`
	Bonds       float64 `json:"bonds"`
	Commodities float64 `json:"commodities"`
	RealEstate  float64 `json:"real_estate"`
}

var stressAllocation = BucketAllocation{Equity: 0.20, Bonds: 0.65, Commodities: 0.05, RealEstate: 0.10}

// ShockOutcome is the portfolio after one market shock.
type ShockOutcome struct {
	Scenario            string  `json:"scenario"`
	TotalShockPercent   float64 `json:"total_shock_percent"`
	PortfolioValueAfter float64 `json:"portfolio_value_after"`
	LossAmount          float64 `json:"loss_amount"`
	LossTrillions       float64 `json:"loss_trillions"`
}

// InvestmentStressResult is the outcome of every market shock.
type InvestmentStressResult struct {
	BasePortfolioValue float64          `json:"base_portfolio_value"`
	Scenarios          []ShockOutcome   `json:"stress_scenarios"`
	WorstCaseLoss      float64          `json:"worst_case_loss"`
	Allocation         BucketAllocation `json:"allocation"`
}

// Percentile is one point of the final value distribution.
type Percentile struct {
	Percentile float64 `json:"percentile"`
	Value      float64 `json:"value"`
}

// PortfolioMonteCarlo is the distribution of portfolio values after the
// horizon under normal annual returns.
type PortfolioMonteCarlo struct {
	Simulations          int          `json:"n_simulations"`
	HorizonYears         int          `json:"time_horizon"`
	InitialValue         float64      `json:"initial_value"`
	FinalValues          []float64    `json:"final_values"`
	MeanFinalValue       float64      `json:"mean_final_value"`
	StdDevFinalValue     float64      `json:"std_final_value"`
	Percentiles          []Percentile `json:"percentiles"`
	ProbabilityOfLoss    float64      `json:"probability_of_loss"`
	ExpectedReturnAnnual float64      `json:"expected_return_annual"`
}

var reportedPercentiles = []float64{5, 10, 25, 50, 75, 90, 95}

// InvestmentSimulation optimizes and stresses the fund's portfolio.
type InvestmentSimulation struct {
	base

	portfolioValue float64
	seed           int64
}

// NewInvestmentSimulation creates the agent. portfolioValue and seed are the
// defaults for requests that leave them unset.
func NewInvestmentSimulation(portfolioValue float64, seed int64, recorder Recorder, logger *zap.Logger) *InvestmentSimulation {
	if portfolioValue <= 0 {
		portfolioValue = DefaultPortfolioValue
	}
	return &InvestmentSimulation{
		base:           newBase("investment_simulation", "Simulates and optimizes the investment portfolio", recorder, logger),
		portfolioValue: portfolioValue,
		seed:           seed,
	}
}

// Execute runs the requested kind (default portfolio_optimization).
func (a *InvestmentSimulation) Execute(ctx context.Context, req Request) (any, error) {
	if req.Kind == "" {
		req.Kind = InvestmentOptimization
	}
	return a.run(ctx, req, func() (any, error) {
		switch req.Kind {
		case InvestmentOptimization:
			return OptimizePortfolio(), nil
		case InvestmentStress:
			return StressPortfolio(a.value(req.PortfolioValue))
		case InvestmentMonteCarlo:
			seed := a.seed
			if req.Seed != nil {
				seed = *req.Seed
			}
			return SimulatePortfolio(a.value(req.PortfolioValue), req.HorizonYears, req.Simulations, seed)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
		}
	})
}

func (a *InvestmentSimulation) value(v float64) float64 {
	if v == 0 {
		return a.portfolioValue
	}
	return v
}

// =============================================================================
// PORTFOLIO OPTIMIZATION
// =============================================================================

// OptimizePortfolio compares the current and optimal allocations. Risk is
// sqrt(Σ (w·σ)²), ignoring correlations.
func OptimizePortfolio() *PortfolioOptimization {
	currentReturn, currentRisk := portfolioMetrics(currentAllocation)
	optimalReturn, optimalRisk := portfolioMetrics(optimalAllocation)

	assets := make([]AssetClass, len(assetClasses))
	copy(assets, assetClasses)

	return &PortfolioOptimization{
		Assets:                assets,
		CurrentAllocation:     allocations(currentAllocation),
		OptimalAllocation:     allocations(optimalAllocation),
		CurrentExpectedReturn: currentReturn,
		OptimalExpectedReturn: optimalReturn,
		CurrentRisk:           currentRisk,
		OptimalRisk:           optimalRisk,
		SharpeImprovement: (optimalReturn-RiskFreeRate)/optimalRisk -
			(currentReturn-RiskFreeRate)/currentRisk,
	}
}

func portfolioMetrics(weights []float64) (ret, risk float64) {
	var variance float64
	for i, w := range weights {
		f := w / 100
		ret += f * assetClasses[i].Return
		variance += math.Pow(f*assetClasses[i].Volatility, 2)
	}
	return ret, math.Sqrt(variance)
}

func allocations(weights []float64) []Allocation {
	out := make([]Allocation, len(weights))
	for i, w := range weights {
		out[i] = Allocation{Asset: assetClasses[i].Name, Percent: w}
	}
	return out
}

// =============================================================================
// INVESTMENT STRESS TEST
// =============================================================================

// StressPortfolio applies every market shock to value.
func StressPortfolio(value float64) (*InvestmentStressResult, error) {
	if !(value > 0) {
		return nil, fmt.Errorf("%w: portfolio_value must be > 0", actuarial.ErrInvalidParameter)
	}

	al := stressAllocation
	out := &InvestmentStressResult{
		BasePortfolioValue: value,
		Scenarios:          make([]ShockOutcome, 0, len(marketShocks)),
		Allocation:         al,
	}

	for _, s := range marketShocks {
		shock := al.Equity*s.Equity + al.Bonds*s.Bond + al.Commodities*s.Commodity + al.RealEstate*s.RealEstate
		after := value * (1 + shock/100)
		loss := value - after

		out.Scenarios = append(out.Scenarios, ShockOutcome{
			Scenario:            s.Name,
			TotalShockPercent:   shock,
			PortfolioValueAfter: after,
			LossAmount:          loss,
			LossTrillions:       loss / 1e12,
		})
		if len(out.Scenarios) == 1 || loss > out.WorstCaseLoss {
			out.WorstCaseLoss = loss
		}
	}
	return out, nil
}

// =============================================================================
// PORTFOLIO MONTE CARLO
// =============================================================================

// SimulatePortfolio compounds n paths of normal annual returns over horizon
// years. Draws are taken path by path from a generator seeded with seed.
func SimulatePortfolio(initial float64, horizon, n int, seed int64) (*PortfolioMonteCarlo, error) {
	if horizon == 0 {
		horizon = DefaultHorizonYears
	}
	if n == 0 {
		n = actuarial.DefaultSimulations
	}
	switch {
	case !(initial > 0):
		return nil, fmt.Errorf("%w: initial_value must be > 0", actuarial.ErrInvalidParameter)
	case horizon < 0 || horizon > maxHorizonYears:
		return nil, fmt.Errorf("%w: horizon_years must be between 1 and %d", actuarial.ErrInvalidParameter, maxHorizonYears)
	case n < 0 || n > actuarial.MaxSimulations:
		return nil, fmt.Errorf("%w: simulations must be between 1 and %d", actuarial.ErrInvalidParameter, actuarial.MaxSimulations)
	}

	rng := rand.New(rand.NewSource(seed))
	finals := make([]float64, n)
	var sum float64
	losses := 0
	for i := range finals {
		v := initial
		for t := 0; t < horizon; t++ {
			v *= 1 + portfolioExpectedReturn + rng.NormFloat64()*portfolioVolatility
		}
		finals[i] = v
		sum += v
		if v < initial {
			losses++
		}
	}

	mean := sum / float64(n)
	var sq float64
	for _, v := range finals {
		sq += (v - mean) * (v - mean)
	}

	sorted := make([]float64, n)
	copy(sorted, finals)
	sort.Float64s(sorted)

	pcts := make([]Percentile, len(reportedPercentiles))
	for i, p := range reportedPercentiles {
		pcts[i] = Percentile{Percentile: p, Value: percentile(sorted, p)}
	}

	return &PortfolioMonteCarlo{
		Simulations:          n,
		HorizonYears:         horizon,
		InitialValue:         initial,
		FinalValues:          finals,
		MeanFinalValue:       mean,
		StdDevFinalValue:     math.Sqrt(sq / float64(n)),
		Percentiles:          pcts,
		ProbabilityOfLoss:    float64(losses) / float64(n) * 100,
		ExpectedReturnAnnual: (math.Pow(mean/initial, 1/float64(horizon)) - 1) * 100,
	}, nil
}

// percentile interpolates linearly between closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
