/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Liability projection, sensitivity, history and PDF report
- Stress catalog and Monte Carlo reproducibility
- Agents, daily analysis and performance aggregation
- Validation (400) vs engine rejection (422) error mapping
*/
package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astha/treasury-engine/actuarial"
	"github.com/astha/treasury-engine/agents"
	"github.com/astha/treasury-engine/cache"
	"github.com/astha/treasury-engine/config"
	"github.com/astha/treasury-engine/store/sqlite"
)

type testServer struct {
	handler *Handler
	router  http.Handler
	store   *sqlite.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.MonteCarlo.Simulations = 200
	c := cache.NewMemory()

	orch := agents.NewOrchestrator(
		agents.NewDataCollector(c, cfg.CacheTTL, store, nil),
		agents.NewLiabilityAnalyst(cfg.Defaults, cfg.Sweep, store, nil),
		agents.NewInvestmentSimulation(cfg.Fund.Assets, cfg.MonteCarlo.Seed, store, nil),
		nil,
	)
	h := NewHandler(cfg, store, c, orch, nil)
	h.Scheduler = NewDailyScheduler(orch, nil)

	return &testServer{handler: h, router: NewRouter(h), store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func referenceRequest() LiabilityParamsRequest {
	p := actuarial.DefaultParameters()
	return LiabilityParamsRequest{
		TotalPilgrims:      p.TotalPilgrims,
		SaudiInflationRate: p.SaudiInflationRate,
		USDExchangeRate:    p.USDExchangeRate,
		BaseCostPerPilgrim: p.BaseCostPerPilgrim,
		DiscountRate:       p.DiscountRate,
	}
}

// =============================================================================
// LIABILITY
// =============================================================================

func TestProjectLiability_ReferenceAndAudit(t *testing.T) {
	// GIVEN: The reference parameters without optional fields
	s := newTestServer(t)

	// WHEN: The projection is requested
	rec := s.do(t, http.MethodPost, "/api/liability/project", referenceRequest())

	// THEN: The reference liability is returned with 20 years
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[ProjectionDTO](t, rec)
	assert.InDelta(t, 238.6656e12, resp.TotalLiability, 0.001e12)
	assert.Len(t, resp.Projections, 20)
	assert.Equal(t, 2026, resp.Projections[0].Year)
	assert.NotEmpty(t, resp.TotalLiabilityFormatted)
	require.NotEmpty(t, resp.ID)

	// AND: The calculation is in the history
	rec = s.do(t, http.MethodGet, "/api/liability/history/"+resp.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	calc := decodeBody[CalculationDTO](t, rec)
	assert.Equal(t, "api", calc.CreatedBy)
	assert.Equal(t, 20, calc.Params.ProjectionYears)

	rec = s.do(t, http.MethodGet, "/api/liability/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]CalculationDTO](t, rec), 1)
}

func TestProjectLiability_ValidationVsEngineErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"empty body", nil, http.StatusBadRequest},
		{"malformed json", `{"total_pilgrims":`, http.StatusBadRequest},
		{"missing discount rate", map[string]any{"total_pilgrims": 10, "base_cost_per_pilgrim": 1e6}, http.StatusBadRequest},
		{"negative pilgrims", func() any { r := referenceRequest(); r.TotalPilgrims = -1; return r }(), http.StatusUnprocessableEntity},
		{"too many years", func() any { r := referenceRequest(); y := 101; r.ProjectionYears = &y; return r }(), http.StatusUnprocessableEntity},
		{"explicit zero years", func() any { r := referenceRequest(); y := 0; r.ProjectionYears = &y; return r }(), http.StatusUnprocessableEntity},
		{"overflowing inflation", func() any { r := referenceRequest(); y := 100; r.ProjectionYears = &y; r.SaudiInflationRate = 1e6; return r }(), http.StatusUnprocessableEntity},
		{"negative discount", func() any { r := referenceRequest(); r.DiscountRate = -2; return r }(), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/liability/project", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decodeBody[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestGetCalculation_NotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/liability/history/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeSensitivity_CustomSweep(t *testing.T) {
	// GIVEN: A sweep over discount rate only
	s := newTestServer(t)
	body := SensitivityRequest{
		Params: referenceRequest(),
		Sweep:  []SweepParameterRequest{{Name: actuarial.ParamDiscountRate, Values: []float64{6.5, 8.5}}},
	}

	// WHEN: The sweep runs
	rec := s.do(t, http.MethodPost, "/api/liability/sensitivity", body)

	// THEN: The tested value equal to the baseline has zero change
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[SensitivityResponse](t, rec)
	require.Len(t, resp.Results, 2)
	assert.InDelta(t, 0, resp.Results[0].PercentChange, 1e-9)
	assert.Less(t, resp.Results[1].PercentChange, 0.0)
	assert.NotEmpty(t, resp.ID)
}

func TestAnalyzeSensitivity_UnknownParameterRejected(t *testing.T) {
	s := newTestServer(t)
	body := SensitivityRequest{
		Params: referenceRequest(),
		Sweep:  []SweepParameterRequest{{Name: "moon_phase", Values: []float64{1}}},
	}
	rec := s.do(t, http.MethodPost, "/api/liability/sensitivity", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeSensitivity_DegenerateBaseline(t *testing.T) {
	s := newTestServer(t)
	req := referenceRequest()
	dep := -100.0
	req.RupiahDepreciationRate = &dep

	rec := s.do(t, http.MethodPost, "/api/liability/sensitivity", SensitivityRequest{Params: req})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func TestLiabilityReport_ReturnsPDF(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/liability/report", ReportRequest{
		Params:            referenceRequest(),
		IncludeStress:     true,
		IncludeMonteCarlo: true,
		Simulations:       100,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

// =============================================================================
// STRESS
// =============================================================================

func TestStressScenarios_DefaultFund(t *testing.T) {
	// GIVEN: No body, so the configured fund position is used
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/stress/scenarios", nil)

	// THEN: The base scenario is Safe at 1.2431
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[StressResponse](t, rec)
	require.Len(t, resp.Results, 5)
	assert.Equal(t, actuarial.StatusSafe, resp.Results[0].Status)
	assert.InDelta(t, 1.2431, resp.Results[0].SolvencyRatio, 1e-4)
	assert.Equal(t, actuarial.StatusHighRisk, resp.Results[4].Status)

	// AND: The run is stored
	rec = s.do(t, http.MethodGet, "/api/simulations?type=stress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sims := decodeBody[[]map[string]any](t, rec)
	require.Len(t, sims, 1)
	assert.Equal(t, "catalog", sims[0]["scenario_name"])
}

func TestStressScenarios_ZeroLiability(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/stress/scenarios", `{"assets": 100, "liability": 0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMonteCarlo_SeedReproducible(t *testing.T) {
	s := newTestServer(t)
	body := `{"simulations": 300, "seed": 7}`

	first := decodeBody[MonteCarloResponse](t, s.do(t, http.MethodPost, "/api/stress/montecarlo", body))
	second := decodeBody[MonteCarloResponse](t, s.do(t, http.MethodPost, "/api/stress/montecarlo", body))

	assert.Equal(t, int64(7), first.Seed)
	assert.Len(t, first.Samples, 300)
	assert.Equal(t, first.Samples, second.Samples)
	assert.Equal(t, first.Mean, second.Mean)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestMonteCarlo_InvalidSimulations(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/stress/montecarlo", `{"simulations": 2000000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStressCatalog(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/stress/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	catalog := decodeBody[[]actuarial.StressScenario](t, rec)
	assert.Len(t, catalog, 5)
	assert.Equal(t, "Base", catalog[0].Name)
}

// =============================================================================
// AGENTS
// =============================================================================

func TestAgents_ExecuteAndPerformance(t *testing.T) {
	// GIVEN: A fresh server
	s := newTestServer(t)

	// WHEN: The liability analyst runs a basic analysis
	rec := s.do(t, http.MethodPost, "/api/agents/liability_analyst/execute", agents.Request{Kind: agents.LiabilityBasic})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody[agents.LiabilityAnalysis](t, rec)
	assert.InDelta(t, 238.6656e12, out.TotalLiability, 0.001e12)

	// THEN: The agent shows completed and the run is aggregated
	rec = s.do(t, http.MethodGet, "/api/agents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[AgentsResponse](t, rec)
	require.Len(t, list.Agents, 3)
	assert.Equal(t, agents.StatusCompleted, list.Agents[1].Status)
	require.NotNil(t, list.Scheduler)
	assert.Equal(t, "24h0m0s", list.Scheduler.Interval)

	rec = s.do(t, http.MethodGet, "/api/agents/performance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	perf := decodeBody[[]AgentPerformanceDTO](t, rec)
	require.Len(t, perf, 1)
	assert.Equal(t, "liability_analyst", perf[0].AgentName)
	assert.Equal(t, 100.0, perf[0].SuccessRate)
}

func TestAgents_ErrorMapping(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/agents/oracle/execute", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/agents/investment_simulation/execute", `{"kind":"crystal_ball"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/agents/liability_analyst/execute", `{"kind":"basic","params":{"total_pilgrims":-3}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDailyAnalysis_Endpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/agents/daily", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rep := decodeBody[agents.DailyReport](t, rec)
	assert.Equal(t, agents.ExecutionSuccess, rep.Status)
	require.NotNil(t, rep.Summary)
	assert.Len(t, rep.Summary.Alerts, 1)
	assert.NotNil(t, s.handler.Scheduler.LastReport())
}

func TestDailyScheduler_StartStop(t *testing.T) {
	// GIVEN: A scheduler with a short interval
	s := newTestServer(t)
	sched := s.handler.Scheduler
	sched.Interval = 20 * time.Millisecond

	// WHEN: It runs for a while
	sched.Start()
	require.Eventually(t, func() bool { return sched.LastReport() != nil }, 2*time.Second, 10*time.Millisecond)
	sched.Stop()
	sched.Stop()

	// THEN: Executions were recorded for every agent
	perf, err := s.store.GetAgentPerformance(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, perf, 3)
}

func TestDailyScheduler_Disabled(t *testing.T) {
	s := newTestServer(t)
	sched := s.handler.Scheduler
	sched.Interval = 0

	sched.Start()
	sched.Stop()

	assert.Nil(t, sched.LastReport())
	assert.False(t, sched.State().Enabled)
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func TestMarketAndCosts(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/market/rates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rates := decodeBody[agents.ExchangeRates](t, rec)
	assert.Equal(t, 15_500.0, rates.USD)

	rec = s.do(t, http.MethodGet, "/api/market/indicators", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ind := decodeBody[agents.EconomicIndicators](t, rec)
	assert.Equal(t, 6.0, ind.BIRate)

	rec = s.do(t, http.MethodGet, "/api/costs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	costs := decodeBody[[]HajjCostDTO](t, rec)
	require.Len(t, costs, 4)
	assert.Equal(t, "94482028", costs[2].BPIH.String())
}

func TestDefaults_CachesProjection(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/defaults", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[DefaultsResponse](t, rec)
	assert.Equal(t, 2_500_000, resp.Params.TotalPilgrims)
	assert.InDelta(t, 238.6656e12, resp.Projection.TotalLiability, 0.001e12)
	assert.Equal(t, 180.5e12, resp.Assets)

	_, ok, err := s.handler.Cache.Get(context.Background(), "projection:defaults")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAsk(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/assistant/ask", AskRequest{Prompt: "Berapa rasio solvabilitas?"})
	require.Equal(t, http.StatusOK, rec.Code)
	reply := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "solvency", reply["topic"])
	assert.Equal(t, true, reply["matched"])

	rec = s.do(t, http.MethodPost, "/api/assistant/ask", AskRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndReset(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.do(t, http.MethodPost, "/api/liability/project", referenceRequest())
	rec = s.do(t, http.MethodPost, "/api/admin/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/liability/history", nil)
	assert.Empty(t, decodeBody[[]CalculationDTO](t, rec))
}
