package agents_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astha/treasury-engine/actuarial"
	"github.com/astha/treasury-engine/agents"
	"github.com/astha/treasury-engine/cache"
)

func ptr[T any](v T) *T { return &v }

type memRecorder struct {
	mu   sync.Mutex
	runs []agents.Execution
	err  error
}

func (r *memRecorder) RecordExecution(_ context.Context, e agents.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, e)
	return r.err
}

func (r *memRecorder) byAgent(name string) []agents.Execution {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []agents.Execution
	for _, e := range r.runs {
		if e.Agent == name {
			out = append(out, e)
		}
	}
	return out
}

func newOrchestrator(rec agents.Recorder) *agents.Orchestrator {
	return agents.NewOrchestrator(
		agents.NewDataCollector(cache.NewMemory(), time.Hour, rec, nil),
		agents.NewLiabilityAnalyst(actuarial.DefaultParameters(), nil, rec, nil),
		agents.NewInvestmentSimulation(0, actuarial.DefaultSeed, rec, nil),
		nil,
	)
}

// =============================================================================
// LIABILITY ANALYST
// =============================================================================

func TestLiabilityAnalyst_FullAnalysis(t *testing.T) {
	// GIVEN: An analyst with the reference assumptions
	rec := &memRecorder{}
	a := agents.NewLiabilityAnalyst(actuarial.DefaultParameters(), nil, rec, nil)

	// WHEN: A full analysis runs with no overrides
	res, err := a.Execute(context.Background(), agents.Request{})
	require.NoError(t, err)
	out := res.(*agents.LiabilityAnalysis)

	// THEN: Every section is present
	assert.Equal(t, agents.LiabilityFull, out.Kind)
	assert.InDelta(t, 238.6656e12, out.TotalLiability, 0.001e12)
	require.NotNil(t, out.Projection)
	assert.Len(t, out.Projection.Years, 20)
	assert.Len(t, out.Sensitivity, actuarial.DefaultSweep().Count())
	require.Len(t, out.Scenarios, 4)

	// AND: Scenarios keep five years and base case equals the projection
	assert.Equal(t, "Base Case", out.Scenarios[0].Name)
	assert.InDelta(t, out.TotalLiability, out.Scenarios[0].TotalLiability, 1)
	for _, s := range out.Scenarios {
		assert.Len(t, s.Projections, 5, s.Name)
	}
	assert.Equal(t, 8.0, out.Scenarios[3].SaudiInflationRate)
	assert.Equal(t, 20_000.0, out.Scenarios[3].USDExchangeRate)
	assert.Greater(t, out.Scenarios[3].TotalLiability, out.Scenarios[2].TotalLiability)
	assert.Greater(t, out.Scenarios[2].TotalLiability, out.Scenarios[0].TotalLiability)
	assert.Less(t, out.Scenarios[1].TotalLiability, out.Scenarios[0].TotalLiability)

	// AND: Status and audit trail are updated
	info := a.Info()
	assert.Equal(t, agents.StatusCompleted, info.Status)
	assert.Equal(t, 1, info.ExecutionCount)
	require.NotNil(t, info.LastExecution)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, agents.ExecutionSuccess, rec.runs[0].Status)
}

func TestLiabilityAnalyst_OverridesMergeWithDefaults(t *testing.T) {
	a := agents.NewLiabilityAnalyst(actuarial.DefaultParameters(), nil, nil, nil)

	res, err := a.Execute(context.Background(), agents.Request{
		Kind:   agents.LiabilityBasic,
		Params: &agents.ParamOverrides{SaudiInflationRate: ptr(3.2), DiscountRate: ptr(6.0)},
	})
	require.NoError(t, err)
	out := res.(*agents.LiabilityAnalysis)

	assert.Equal(t, 2_500_000, out.Params.TotalPilgrims)
	assert.Equal(t, 20, out.Params.ProjectionYears)
	assert.InDelta(t, 243.2548e12, out.TotalLiability, 0.001e12)
	assert.Empty(t, out.Sensitivity)
	assert.Empty(t, out.Scenarios)
}

func TestLiabilityAnalyst_ExplicitZeroIsKept(t *testing.T) {
	// GIVEN: An override setting Saudi inflation to exactly zero
	a := agents.NewLiabilityAnalyst(actuarial.DefaultParameters(), nil, nil, nil)

	// WHEN: A basic analysis runs
	res, err := a.Execute(context.Background(), agents.Request{
		Kind:   agents.LiabilityBasic,
		Params: &agents.ParamOverrides{SaudiInflationRate: ptr(0.0)},
	})

	// THEN: Zero inflation is used rather than the 3.5% default
	require.NoError(t, err)
	out := res.(*agents.LiabilityAnalysis)
	assert.Equal(t, 0.0, out.Params.SaudiInflationRate)

	want, err := actuarial.Project(out.Params)
	require.NoError(t, err)
	assert.Equal(t, want.TotalLiability, out.TotalLiability)

	base, err := actuarial.Project(actuarial.DefaultParameters())
	require.NoError(t, err)
	assert.Less(t, out.TotalLiability, base.TotalLiability)
}

func TestLiabilityAnalyst_ExplicitZeroRequiredFieldRejected(t *testing.T) {
	a := agents.NewLiabilityAnalyst(actuarial.DefaultParameters(), nil, nil, nil)

	tests := []struct {
		name      string
		overrides agents.ParamOverrides
		field     string
	}{
		{"discount rate", agents.ParamOverrides{DiscountRate: ptr(0.0)}, "discount_rate"},
		{"projection years", agents.ParamOverrides{ProjectionYears: ptr(0)}, "projection_years"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.overrides
			_, err := a.Execute(context.Background(), agents.Request{Kind: agents.LiabilityBasic, Params: &o})

			var ipe *actuarial.InvalidParameterError
			require.ErrorAs(t, err, &ipe)
			assert.Equal(t, tt.field, ipe.Field)
		})
	}
}

func TestLiabilityAnalyst_UnknownKindFails(t *testing.T) {
	// GIVEN: A recorder
	rec := &memRecorder{}
	a := agents.NewLiabilityAnalyst(actuarial.DefaultParameters(), nil, rec, nil)

	// WHEN: An unsupported kind is requested
	_, err := a.Execute(context.Background(), agents.Request{Kind: "forecast"})

	// THEN: The agent fails and the failure is recorded
	assert.ErrorIs(t, err, agents.ErrUnknownKind)
	assert.Equal(t, agents.StatusFailed, a.Info().Status)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, agents.ExecutionFailed, rec.runs[0].Status)
	assert.NotEmpty(t, rec.runs[0].Error)
	assert.Nil(t, rec.runs[0].Results)
}

func TestLiabilityAnalyst_InvalidParamsSurfaceEngineError(t *testing.T) {
	a := agents.NewLiabilityAnalyst(actuarial.DefaultParameters(), nil, nil, nil)

	_, err := a.Execute(context.Background(), agents.Request{
		Kind:   agents.LiabilityBasic,
		Params: &agents.ParamOverrides{TotalPilgrims: ptr(-5)},
	})

	var ipe *actuarial.InvalidParameterError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "total_pilgrims", ipe.Field)
}

func TestLiabilityAnalyst_RecorderFailureDoesNotFailExecution(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	a := agents.NewLiabilityAnalyst(actuarial.DefaultParameters(), nil, rec, nil)

	_, err := a.Execute(context.Background(), agents.Request{Kind: agents.LiabilityBasic})
	assert.NoError(t, err)
	assert.Equal(t, agents.StatusCompleted, a.Info().Status)
}

// =============================================================================
// INVESTMENT SIMULATION
// =============================================================================

func TestOptimizePortfolio(t *testing.T) {
	out := agents.OptimizePortfolio()

	assert.InDelta(t, 7.75, out.CurrentExpectedReturn, 1e-9)
	assert.InDelta(t, 8.135, out.OptimalExpectedReturn, 1e-9)
	assert.InDelta(t, 3.13897, out.CurrentRisk, 1e-4)
	assert.InDelta(t, 3.96688, out.OptimalRisk, 1e-4)
	assert.InDelta(t, 0.53821-0.55751, out.SharpeImprovement, 1e-4)

	var total float64
	for _, a := range out.OptimalAllocation {
		total += a.Percent
	}
	assert.Equal(t, 100.0, total)
}

func TestStressPortfolio(t *testing.T) {
	out, err := agents.StressPortfolio(agents.DefaultPortfolioValue)
	require.NoError(t, err)
	require.Len(t, out.Scenarios, 4)

	assert.Equal(t, "Global Recession", out.Scenarios[0].Scenario)
	assert.InDelta(t, -11.75, out.Scenarios[0].TotalShockPercent, 1e-9)
	assert.InDelta(t, 1.25, out.Scenarios[2].TotalShockPercent, 1e-9)
	assert.Less(t, out.Scenarios[2].LossAmount, 0.0, "currency crisis is a gain")
	assert.InDelta(t, 21.20875e12, out.WorstCaseLoss, 1e3)

	_, err = agents.StressPortfolio(0)
	assert.ErrorIs(t, err, actuarial.ErrInvalidParameter)
}

func TestSimulatePortfolio_ReproducibleAndOrdered(t *testing.T) {
	// GIVEN: Two runs with the same seed
	a, err := agents.SimulatePortfolio(180.5e12, 5, 500, 42)
	require.NoError(t, err)
	b, err := agents.SimulatePortfolio(180.5e12, 5, 500, 42)
	require.NoError(t, err)

	// THEN: Identical samples, ordered percentiles
	assert.Equal(t, a.FinalValues, b.FinalValues)
	require.Len(t, a.Percentiles, 7)
	for i := 1; i < len(a.Percentiles); i++ {
		assert.LessOrEqual(t, a.Percentiles[i-1].Value, a.Percentiles[i].Value)
	}
	assert.GreaterOrEqual(t, a.ProbabilityOfLoss, 0.0)
	assert.LessOrEqual(t, a.ProbabilityOfLoss, 100.0)

	// AND: The annualized return is near the 7.8% drift
	assert.InDelta(t, 7.8, a.ExpectedReturnAnnual, 1.5)
}

func TestSimulatePortfolio_Defaults(t *testing.T) {
	out, err := agents.SimulatePortfolio(1e12, 0, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, agents.DefaultHorizonYears, out.HorizonYears)
	assert.Equal(t, actuarial.DefaultSimulations, out.Simulations)
	assert.Len(t, out.FinalValues, actuarial.DefaultSimulations)
}

func TestSimulatePortfolio_InvalidInputs(t *testing.T) {
	_, err := agents.SimulatePortfolio(0, 5, 10, 1)
	assert.ErrorIs(t, err, actuarial.ErrInvalidParameter)
	_, err = agents.SimulatePortfolio(1, -1, 10, 1)
	assert.ErrorIs(t, err, actuarial.ErrInvalidParameter)
	_, err = agents.SimulatePortfolio(1, 5, -10, 1)
	assert.ErrorIs(t, err, actuarial.ErrInvalidParameter)
}

func TestInvestmentSimulation_ExecuteKinds(t *testing.T) {
	a := agents.NewInvestmentSimulation(0, actuarial.DefaultSeed, nil, nil)
	ctx := context.Background()

	res, err := a.Execute(ctx, agents.Request{})
	require.NoError(t, err)
	assert.IsType(t, &agents.PortfolioOptimization{}, res)

	res, err = a.Execute(ctx, agents.Request{Kind: agents.InvestmentStress})
	require.NoError(t, err)
	assert.Equal(t, agents.DefaultPortfolioValue, res.(*agents.InvestmentStressResult).BasePortfolioValue)

	seed := int64(7)
	res, err = a.Execute(ctx, agents.Request{Kind: agents.InvestmentMonteCarlo, Simulations: 50, Seed: &seed})
	require.NoError(t, err)
	direct, _ := agents.SimulatePortfolio(agents.DefaultPortfolioValue, 5, 50, 7)
	assert.Equal(t, direct.FinalValues, res.(*agents.PortfolioMonteCarlo).FinalValues)

	assert.Equal(t, 3, a.Info().ExecutionCount)
}

// =============================================================================
// DATA COLLECTOR
// =============================================================================

func TestDataCollector_CollectsAllSources(t *testing.T) {
	c := cache.NewMemory()
	a := agents.NewDataCollector(c, time.Hour, nil, nil)

	res, err := a.Execute(context.Background(), agents.Request{})
	require.NoError(t, err)
	out := res.(*agents.CollectedData)

	assert.Equal(t, 4, out.SourcesCount)
	assert.Equal(t, 15_500.0, out.ExchangeRates.USD)
	assert.Equal(t, 4_133.0, out.ExchangeRates.SAR)
	assert.Equal(t, 3.2, out.EconomicIndicators.SaudiInflation)
	assert.Equal(t, 6.0, out.BIData.BIRate)
	assert.Equal(t, 6.85, out.MarketData.SukukYield10Y)
	assert.Equal(t, 4, c.Len())
}

func TestDataCollector_ServesCachedValues(t *testing.T) {
	// GIVEN: A cached exchange rate that differs from the reference value
	ctx := context.Background()
	c := cache.NewMemory()
	require.NoError(t, c.Set(ctx, "market:rates", `{"USD":16200,"SAR":4320,"source":"feed"}`, 0))
	a := agents.NewDataCollector(c, time.Hour, nil, nil)

	// WHEN: Only exchange rates are collected
	out, err := a.Collect(ctx, []string{agents.SourceExchangeRates})
	require.NoError(t, err)

	// THEN: The cached value wins
	assert.Equal(t, 1, out.SourcesCount)
	assert.Equal(t, 16_200.0, out.ExchangeRates.USD)
	assert.Nil(t, out.EconomicIndicators)
}

type failingWriteCache struct{ *cache.Memory }

func (failingWriteCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("redis: connection refused")
}

func TestDataCollector_CacheWriteFailureIsNotFatal(t *testing.T) {
	a := agents.NewDataCollector(failingWriteCache{cache.NewMemory()}, time.Hour, nil, nil)

	data, err := a.Collect(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, data.SourcesCount)
	assert.Equal(t, 15_500.0, data.ExchangeRates.USD)
}

func TestDataCollector_UnknownSource(t *testing.T) {
	a := agents.NewDataCollector(nil, time.Hour, nil, nil)
	_, err := a.Execute(context.Background(), agents.Request{Sources: []string{"weather"}})
	assert.ErrorIs(t, err, agents.ErrUnknownKind)
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

func TestOrchestrator_RunDailyAnalysis(t *testing.T) {
	// GIVEN: An orchestrator with a recorder
	rec := &memRecorder{}
	o := newOrchestrator(rec)

	// WHEN: The daily workflow runs
	report, err := o.RunDailyAnalysis(context.Background())
	require.NoError(t, err)

	// THEN: The liability used the collected inflation, BI rate and USD rate
	assert.Equal(t, agents.ExecutionSuccess, report.Status)
	require.NotNil(t, report.Liability)
	assert.Equal(t, 3.2, report.Liability.Params.SaudiInflationRate)
	assert.Equal(t, 6.0, report.Liability.Params.DiscountRate)
	assert.Equal(t, 15_500.0, report.Liability.Params.USDExchangeRate)
	assert.InDelta(t, 243.2548e12, report.Liability.TotalLiability, 0.001e12)

	// AND: The summary flags the liability above Rp 200T only
	require.NotNil(t, report.Summary)
	assert.Equal(t, "high", report.Summary.KeyMetrics.LiabilityStatus)
	assert.Equal(t, "good", report.Summary.KeyMetrics.ReturnStatus)
	require.Len(t, report.Summary.Alerts, 1)
	assert.Equal(t, agents.AlertWarning, report.Summary.Alerts[0].Level)
	assert.True(t, report.Summary.Alerts[0].ActionRequired)
	assert.Len(t, report.Summary.Recommendations, 3)

	// AND: Each agent recorded exactly one execution
	for _, name := range []string{"data_collector", "liability_analyst", "investment_simulation"} {
		assert.Len(t, rec.byAgent(name), 1, name)
	}
}

func TestOrchestrator_ExecuteUnknownAgent(t *testing.T) {
	o := newOrchestrator(nil)
	_, err := o.Execute(context.Background(), "forecaster", agents.Request{})
	assert.ErrorIs(t, err, agents.ErrUnknownAgent)
}

func TestOrchestrator_AgentsListedInOrder(t *testing.T) {
	o := newOrchestrator(nil)
	infos := o.Agents()
	require.Len(t, infos, 3)
	assert.Equal(t, "data_collector", infos[0].Name)
	assert.Equal(t, "liability_analyst", infos[1].Name)
	assert.Equal(t, "investment_simulation", infos[2].Name)
	for _, i := range infos {
		assert.Equal(t, agents.StatusIdle, i.Status)
		assert.Nil(t, i.LastExecution)
	}
}

func TestSummarize_Thresholds(t *testing.T) {
	low := &agents.LiabilityAnalysis{TotalLiability: 150e12}
	weak := &agents.PortfolioOptimization{OptimalExpectedReturn: 7.0}

	s := agents.Summarize(low, weak)
	assert.Equal(t, "normal", s.KeyMetrics.LiabilityStatus)
	assert.Equal(t, "low", s.KeyMetrics.ReturnStatus)
	require.Len(t, s.Alerts, 1)
	assert.Equal(t, agents.AlertInfo, s.Alerts[0].Level)
	assert.False(t, s.Alerts[0].ActionRequired)

	edge := agents.Summarize(&agents.LiabilityAnalysis{TotalLiability: 200e12}, nil)
	assert.Equal(t, "high", edge.KeyMetrics.LiabilityStatus)
	assert.Empty(t, edge.KeyMetrics.ReturnStatus)
}

func TestOrchestrator_ConcurrentExecutions(t *testing.T) {
	o := newOrchestrator(&memRecorder{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Execute(ctx, "liability_analyst", agents.Request{Kind: agents.LiabilityBasic})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, o.Agents()[1].ExecutionCount)
}
