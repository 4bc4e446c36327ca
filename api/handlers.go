/*
handlers.go - HTTP API handlers for the treasury analytics engine

PURPOSE:
  Exposes the actuarial engine, the agents and the audit store via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  engine.

ENDPOINTS:
  Liability:
    POST   /api/liability/project        Project the liability
    POST   /api/liability/sensitivity    One-factor sensitivity sweep
    GET    /api/liability/history        Recent audited calculations
    GET    /api/liability/history/{id}   One audited calculation
    POST   /api/liability/report         PDF report

  Stress:
    POST   /api/stress/scenarios         Deterministic stress catalog
    POST   /api/stress/montecarlo        Monte Carlo solvency simulation
    GET    /api/stress/catalog           Scenario definitions
    GET    /api/simulations              Stored simulation runs

  Agents:
    GET    /api/agents                   Agent status
    POST   /api/agents/{name}/execute    Run one agent
    POST   /api/agents/daily             Run the daily workflow now
    GET    /api/agents/performance       Execution statistics

  Reference data:
    GET    /api/market/rates             Exchange rates
    GET    /api/market/indicators        Economic indicators
    GET    /api/costs                    Historical hajj costs
    GET    /api/defaults                 Default assumptions + projection
    POST   /api/assistant/ask            Keyword assistant

  Admin:
    POST   /api/admin/reset              Clear audit tables (dev only)

REQUEST FLOW:
  1. Decode JSON body
  2. Validate shape (validator tags)
  3. Call the engine
  4. Record an audit row (best-effort)
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed JSON, validation errors, unknown kinds
  - 404: Resource not found
  - 422: Engine rejected the parameters
  - 500: Internal errors

  An audit write failure is logged; the computed result is still returned.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Daily analysis scheduler
*/
package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/astha/treasury-engine/actuarial"
	"github.com/astha/treasury-engine/agents"
	"github.com/astha/treasury-engine/assistant"
	"github.com/astha/treasury-engine/cache"
	"github.com/astha/treasury-engine/config"
	"github.com/astha/treasury-engine/report"
	"github.com/astha/treasury-engine/store/sqlite"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        *sqlite.Store
	Cache        cache.Cache
	Orchestrator *agents.Orchestrator
	Scheduler    *DailyScheduler
	Config       config.Config

	logger   *zap.Logger
	validate *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(cfg config.Config, store *sqlite.Store, c cache.Cache, orch *agents.Orchestrator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:        store,
		Cache:        c,
		Orchestrator: orch,
		Config:       cfg,
		logger:       logger,
		validate:     validator.New(),
	}
}

// =============================================================================
// LIABILITY HANDLERS
// =============================================================================

// ProjectLiability computes and audits a projection.
func (h *Handler) ProjectLiability(w http.ResponseWriter, r *http.Request) {
	var req LiabilityParamsRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	params := req.toParams()
	proj, err := actuarial.Project(params)
	if err != nil {
		h.writeEngineError(w, "Invalid liability parameters", err)
		return
	}

	id, err := h.Store.SaveCalculation(r.Context(), sqlite.CalculationRecord{
		Params:         params,
		TotalLiability: decimal.NewFromFloat(proj.TotalLiability),
		CreatedBy:      "api",
	})
	if err != nil {
		h.logger.Warn("failed to audit calculation", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, toProjectionDTO(id, params, proj))
}

// AnalyzeSensitivity runs a sweep around the given parameters.
func (h *Handler) AnalyzeSensitivity(w http.ResponseWriter, r *http.Request) {
	var req SensitivityRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	params := req.Params.toParams()
	sweep := h.Config.Sweep
	if len(req.Sweep) > 0 {
		sweep = make(actuarial.Sweep, len(req.Sweep))
		for i, sp := range req.Sweep {
			sweep[i] = actuarial.SweepParameter{Name: sp.Name, Values: sp.Values}
		}
	}

	baseline, err := actuarial.Project(params)
	if err != nil {
		h.writeEngineError(w, "Sensitivity analysis failed", err)
		return
	}
	results, err := actuarial.AnalyzeFrom(baseline, params, sweep)
	if err != nil {
		h.writeEngineError(w, "Sensitivity analysis failed", err)
		return
	}

	id := h.audit(r, sqlite.SimulationSensitivity, "sweep", map[string]any{"params": params, "sweep": sweep}, results)
	writeJSON(w, http.StatusOK, SensitivityResponse{ID: id, Baseline: baseline.TotalLiability, Results: results})
}

// ListCalculations returns recent audited calculations.
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListCalculations(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calculations", err)
		return
	}

	dtos := make([]CalculationDTO, len(records))
	for i, c := range records {
		dtos[i] = toCalculationDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCalculation returns one audited calculation.
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.Store.GetCalculation(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get calculation", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Calculation not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(*c))
}

// LiabilityReport renders the projection (and optional stress sections) as
// a PDF.
func (h *Handler) LiabilityReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	params := req.Params.toParams()
	proj, err := actuarial.Project(params)
	if err != nil {
		h.writeEngineError(w, "Invalid liability parameters", err)
		return
	}

	in := report.Input{
		Title:      req.Title,
		Params:     params,
		Projection: proj,
		Assets:     h.Config.Fund.Assets,
	}
	if req.Assets != nil {
		in.Assets = *req.Assets
	}

	if req.IncludeStress {
		in.Stress, err = actuarial.RunStress(in.Assets, proj.TotalLiability)
		if err != nil {
			h.writeEngineError(w, "Stress test failed", err)
			return
		}
	}
	if req.IncludeMonteCarlo {
		n, seed := h.monteCarloSettings(req.Simulations, req.Seed)
		mc, err := actuarial.Simulate(in.Assets, proj.TotalLiability, n, seed)
		if err != nil {
			h.writeEngineError(w, "Monte Carlo simulation failed", err)
			return
		}
		in.MonteCarlo = &mc
	}

	var buf bytes.Buffer
	if err := report.WriteLiabilityPDF(&buf, in); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render report", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="liability-report.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// STRESS HANDLERS
// =============================================================================

// RunStressScenarios applies the stress catalog to a fund position.
func (h *Handler) RunStressScenarios(w http.ResponseWriter, r *http.Request) {
	var req StressRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	assets, liability := h.fundPosition(req.Assets, req.Liability)
	results, err := actuarial.RunStress(assets, liability)
	if err != nil {
		h.writeEngineError(w, "Stress test failed", err)
		return
	}

	id := h.audit(r, sqlite.SimulationStress, "catalog", map[string]float64{"assets": assets, "liability": liability}, results)
	writeJSON(w, http.StatusOK, StressResponse{ID: id, Assets: assets, Liability: liability, Results: results})
}

// RunMonteCarlo runs the solvency simulation.
func (h *Handler) RunMonteCarlo(w http.ResponseWriter, r *http.Request) {
	var req MonteCarloRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	assets, liability := h.fundPosition(req.Assets, req.Liability)
	n, seed := h.monteCarloSettings(req.Simulations, req.Seed)

	result, err := actuarial.Simulate(assets, liability, n, seed)
	if err != nil {
		h.writeEngineError(w, "Monte Carlo simulation failed", err)
		return
	}

	params := map[string]any{"assets": assets, "liability": liability, "simulations": n, "seed": seed}
	summary := map[string]float64{
		"mean":                     result.Mean,
		"std_dev":                  result.StdDev,
		"probability_safe_percent": result.ProbabilitySafePercent,
		"worst_case":               result.WorstCase,
		"best_case":                result.BestCase,
	}
	id := h.audit(r, sqlite.SimulationMonteCarlo, "solvency", params, summary)

	writeJSON(w, http.StatusOK, MonteCarloResponse{
		ID:               id,
		Seed:             seed,
		Assets:           assets,
		Liability:        liability,
		MonteCarloResult: result,
	})
}

// StressCatalog returns the scenario definitions.
func (h *Handler) StressCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actuarial.StressCatalog())
}

// ListSimulations returns stored simulation runs.
func (h *Handler) ListSimulations(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListSimulations(r.Context(), r.URL.Query().Get("type"), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list simulations", err)
		return
	}

	dtos := make([]SimulationDTO, len(records))
	for i, s := range records {
		dtos[i] = SimulationDTO{
			ID:           s.ID,
			Type:         s.Type,
			ScenarioName: s.ScenarioName,
			Parameters:   rawJSON(s.ParametersJSON),
			Results:      rawJSON(s.ResultsJSON),
			CreatedAt:    s.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// AGENT HANDLERS
// =============================================================================

// ListAgents returns every agent's status.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	resp := AgentsResponse{Agents: h.Orchestrator.Agents()}
	if h.Scheduler != nil {
		resp.Scheduler = h.Scheduler.State()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExecuteAgent runs one agent with an optional request body.
func (h *Handler) ExecuteAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req agents.Request
	if !h.decode(w, r, &req, true) {
		return
	}

	result, err := h.Orchestrator.Execute(r.Context(), name, req)
	if err != nil {
		h.writeEngineError(w, "Agent execution failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RunDailyAnalysis runs the daily workflow synchronously.
func (h *Handler) RunDailyAnalysis(w http.ResponseWriter, r *http.Request) {
	var (
		rep *agents.DailyReport
		err error
	)
	if h.Scheduler != nil {
		rep, err = h.Scheduler.RunNow(r.Context())
	} else {
		rep, err = h.Orchestrator.RunDailyAnalysis(r.Context())
	}
	if err != nil {
		h.logger.Error("daily analysis failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, rep)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// AgentPerformance aggregates executions over the last `days` days (default 7).
func (h *Handler) AgentPerformance(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	since := time.Now().AddDate(0, 0, -days)

	perf, err := h.Store.GetAgentPerformance(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load agent performance", err)
		return
	}

	dtos := make([]AgentPerformanceDTO, len(perf))
	for i, p := range perf {
		dtos[i] = toAgentPerformanceDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

// ExchangeRates returns the cached exchange rates.
func (h *Handler) ExchangeRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.Orchestrator.Collector().ExchangeRates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load exchange rates", err)
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

// EconomicIndicators returns the cached macro indicators.
func (h *Handler) EconomicIndicators(w http.ResponseWriter, r *http.Request) {
	ind, err := h.Orchestrator.Collector().EconomicIndicators(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load indicators", err)
		return
	}
	writeJSON(w, http.StatusOK, ind)
}

// ListHajjCosts returns the historical cost table.
func (h *Handler) ListHajjCosts(w http.ResponseWriter, r *http.Request) {
	costs, err := h.Store.ListHajjCosts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list costs", err)
		return
	}

	dtos := make([]HajjCostDTO, len(costs))
	for i, c := range costs {
		dtos[i] = toHajjCostDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Defaults returns the configured assumptions and their projection. The
// projection is cached.
func (h *Handler) Defaults(w http.ResponseWriter, r *http.Request) {
	params := h.Config.Defaults.WithDefaults()

	proj, err := cache.GetOrLoad(r.Context(), h.Cache, "projection:defaults", h.Config.CacheTTL, func() (ProjectionDTO, error) {
		p, err := actuarial.Project(params)
		if err != nil {
			return ProjectionDTO{}, err
		}
		return toProjectionDTO("", params, p), nil
	})
	if errors.Is(err, cache.ErrWrite) {
		h.logger.Warn("failed to cache default projection", zap.Error(err))
		err = nil
	}
	if err != nil {
		h.writeEngineError(w, "Invalid default parameters", err)
		return
	}

	writeJSON(w, http.StatusOK, DefaultsResponse{
		AppName:    h.Config.AppName,
		AppVersion: h.Config.AppVersion,
		Params:     params,
		Sweep:      h.Config.Sweep,
		Assets:     h.Config.Fund.Assets,
		Liability:  h.Config.Fund.Liability,
		Projection: proj,
	})
}

// Ask answers a dashboard question.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	writeJSON(w, http.StatusOK, assistant.Answer(req.Prompt))
}

// ResetDatabase clears the audit tables and the cached projection.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := h.Cache.Delete(r.Context(), "projection:defaults"); err != nil {
		h.logger.Warn("failed to clear cached projection", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health reports whether the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.Config.AppVersion})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into dst and validates it. When optional is set an
// empty body is accepted. On failure the error response is written and false
// is returned.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return false
	}

	if len(bytes.TrimSpace(body)) == 0 {
		if !optional {
			writeError(w, http.StatusBadRequest, "Request body is required", nil)
			return false
		}
	} else if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "Validation failed", verrs)
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// writeEngineError maps engine and agent errors to HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case actuarial.IsClientError(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case errors.Is(err, agents.ErrUnknownAgent):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, agents.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// audit stores a simulation run and returns its ID, or "" on failure.
func (h *Handler) audit(r *http.Request, simType, scenario string, params, results any) string {
	id, err := h.Store.SaveSimulation(r.Context(), simType, scenario, params, results)
	if err != nil {
		h.logger.Warn("failed to audit simulation", zap.String("type", simType), zap.Error(err))
		return ""
	}
	return id
}

func (h *Handler) fundPosition(assets, liability *float64) (float64, float64) {
	a, l := h.Config.Fund.Assets, h.Config.Fund.Liability
	if assets != nil {
		a = *assets
	}
	if liability != nil {
		l = *liability
	}
	return a, l
}

func (h *Handler) monteCarloSettings(n int, seed *int64) (int, int64) {
	if n == 0 {
		n = h.Config.MonteCarlo.Simulations
	}
	s := h.Config.MonteCarlo.Seed
	if seed != nil {
		s = *seed
	}
	return n, s
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
