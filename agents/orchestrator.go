package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Summary thresholds.
const (
	// LiabilityAlertThreshold raises a warning when the total liability
	// reaches it (IDR).
	LiabilityAlertThreshold = 200e12

	// ReturnTarget raises an info alert when the optimal expected return
	// does not exceed it (percent).
	ReturnTarget = 7.0
)

// Alert levels.
const (
	AlertWarning = "warning"
	AlertInfo    = "info"
)

var dailyRecommendations = []string{
	"Review the portfolio allocation to optimize returns",
	"Monitor Saudi inflation regularly",
	"Consider currency hedging to mitigate exchange rate risk",
}

// Alert is one finding of the daily summary.
type Alert struct {
	Level          string `json:"level"`
	Message        string `json:"message"`
	ActionRequired bool   `json:"action_required"`
}

// KeyMetrics are the headline numbers of the daily summary.
type KeyMetrics struct {
	TotalLiabilityTrillions float64 `json:"total_liability_trillions"`
	LiabilityStatus         string  `json:"liability_status"`
	ExpectedReturn          float64 `json:"expected_return"`
	ReturnStatus            string  `json:"return_status"`
}

// Summary is the executive summary of a daily analysis.
type Summary struct {
	KeyMetrics      KeyMetrics `json:"key_metrics"`
	Alerts          []Alert    `json:"alerts"`
	Recommendations []string   `json:"recommendations"`
}

// DailyReport is the outcome of RunDailyAnalysis. On failure the sections
// completed before the failing step are kept.
type DailyReport struct {
	Status      string                 `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at"`
	Data        *CollectedData         `json:"data_collection,omitempty"`
	Liability   *LiabilityAnalysis     `json:"liability_analysis,omitempty"`
	Investment  *PortfolioOptimization `json:"investment_simulation,omitempty"`
	Summary     *Summary               `json:"summary,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// Orchestrator owns the agents and runs the daily workflow.
type Orchestrator struct {
	collector  *DataCollector
	analyst    *LiabilityAnalyst
	investment *InvestmentSimulation

	agents map[string]Agent
	order  []string
	logger *zap.Logger
	now    func() time.Time
}

// NewOrchestrator registers the three agents.
func NewOrchestrator(collector *DataCollector, analyst *LiabilityAnalyst, investment *InvestmentSimulation, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		collector:  collector,
		analyst:    analyst,
		investment: investment,
		agents:     make(map[string]Agent),
		logger:     logger.Named("orchestrator"),
		now:        time.Now,
	}
	for _, a := range []Agent{collector, analyst, investment} {
		o.agents[a.Name()] = a
		o.order = append(o.order, a.Name())
	}
	return o
}

// Agents returns the status of every agent in registration order.
func (o *Orchestrator) Agents() []Info {
	out := make([]Info, 0, len(o.order))
	for _, name := range o.order {
		out = append(out, o.agents[name].Info())
	}
	return out
}

// Collector returns the data collector.
func (o *Orchestrator) Collector() *DataCollector { return o.collector }

// Execute runs one agent by name.
func (o *Orchestrator) Execute(ctx context.Context, name string, req Request) (any, error) {
	a, ok := o.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, name)
	}
	o.logger.Info("executing agent", zap.String("agent", name), zap.String("kind", req.Kind))
	return a.Execute(ctx, req)
}

// RunDailyAnalysis collects data, analyzes the liability with the collected
// rates, optimizes the portfolio and summarizes the results.
func (o *Orchestrator) RunDailyAnalysis(ctx context.Context) (*DailyReport, error) {
	report := &DailyReport{StartedAt: o.now().UTC()}
	fail := func(step string, err error) (*DailyReport, error) {
		err = fmt.Errorf("daily analysis %s: %w", step, err)
		report.Status = ExecutionFailed
		report.Error = err.Error()
		report.CompletedAt = o.now().UTC()
		o.logger.Error("daily analysis failed", zap.String("step", step), zap.Error(err))
		return report, err
	}

	o.logger.Info("daily analysis started")

	// Step 1: collect
	res, err := o.collector.Execute(ctx, Request{})
	if err != nil {
		return fail("data collection", err)
	}
	data := res.(*CollectedData)
	report.Data = data
	if data.ExchangeRates == nil || data.EconomicIndicators == nil {
		return fail("data collection", errors.New("missing exchange rates or indicators"))
	}

	// Step 2: liability with the collected rates
	inflation := data.EconomicIndicators.SaudiInflation
	usd := data.ExchangeRates.USD
	discount := data.EconomicIndicators.BIRate
	params := &ParamOverrides{
		SaudiInflationRate: &inflation,
		USDExchangeRate:    &usd,
		DiscountRate:       &discount,
	}
	res, err = o.analyst.Execute(ctx, Request{Kind: LiabilityFull, Params: params})
	if err != nil {
		return fail("liability analysis", err)
	}
	report.Liability = res.(*LiabilityAnalysis)

	// Step 3: portfolio
	res, err = o.investment.Execute(ctx, Request{Kind: InvestmentOptimization})
	if err != nil {
		return fail("investment simulation", err)
	}
	report.Investment = res.(*PortfolioOptimization)

	// Step 4: summary
	report.Summary = Summarize(report.Liability, report.Investment)
	report.Status = ExecutionSuccess
	report.CompletedAt = o.now().UTC()

	o.logger.Info("daily analysis completed",
		zap.Float64("total_liability", report.Liability.TotalLiability),
		zap.Int("alerts", len(report.Summary.Alerts)),
	)
	return report, nil
}

// Summarize builds the executive summary. Either input may be nil.
func Summarize(liability *LiabilityAnalysis, investment *PortfolioOptimization) *Summary {
	s := &Summary{
		Alerts:          []Alert{},
		Recommendations: append([]string(nil), dailyRecommendations...),
	}

	if liability != nil {
		s.KeyMetrics.TotalLiabilityTrillions = liability.TotalLiability / 1e12
		s.KeyMetrics.LiabilityStatus = "normal"
		if liability.TotalLiability >= LiabilityAlertThreshold {
			s.KeyMetrics.LiabilityStatus = "high"
			s.Alerts = append(s.Alerts, Alert{
				Level:          AlertWarning,
				Message:        "Total liability exceeds Rp 200 trillion",
				ActionRequired: true,
			})
		}
	}

	if investment != nil {
		s.KeyMetrics.ExpectedReturn = investment.OptimalExpectedReturn
		s.KeyMetrics.ReturnStatus = "good"
		if investment.OptimalExpectedReturn <= ReturnTarget {
			s.KeyMetrics.ReturnStatus = "low"
			s.Alerts = append(s.Alerts, Alert{
				Level:   AlertInfo,
				Message: "Expected return is below the 7% target",
			})
		}
	}

	return s
}
