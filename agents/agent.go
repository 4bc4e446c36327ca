/*
Package agents wraps the actuarial engine in named analysis agents.

PURPOSE:
  An agent is a long-lived worker with a name, a status and an execution
  history. The dashboard lists agents, triggers them one by one, or runs the
  daily workflow through the Orchestrator.

AGENTS:
  data_collector:        Exchange rates, economic indicators, market and BI data
  liability_analyst:     Liability projection, sensitivity and scenario sets
  investment_simulation: Portfolio optimization, investment stress, portfolio Monte Carlo

LIFECYCLE:
  idle ──Execute──► active ──► completed
                          └──► failed

  Every execution (successful or not) is handed to a Recorder so the run can
  be audited. A recorder failure is logged and never fails the execution.

CONCURRENCY:
  Status fields are mutex-guarded; agents can be executed from the HTTP
  handlers and the daily scheduler at the same time.

SEE ALSO:
  - orchestrator.go: Daily analysis workflow
  - store/sqlite: Recorder implementation
  - api/scheduler.go: DailyScheduler
*/
package agents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/astha/treasury-engine/actuarial"
)

// Status is the lifecycle state of an agent.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Execution outcomes as stored by a Recorder.
const (
	ExecutionSuccess = "success"
	ExecutionFailed  = "failed"
)

var (
	// ErrUnknownAgent is returned when the orchestrator has no agent by that name.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrUnknownKind is returned when an agent does not support the requested kind.
	ErrUnknownKind = errors.New("unknown request kind")
)

// Request is the input of an agent execution. Each agent reads the fields it
// needs and ignores the rest.
type Request struct {
	// Kind selects the analysis. Empty means the agent's default.
	Kind string `json:"kind,omitempty"`

	// Params overrides the liability assumptions (liability_analyst). Absent
	// fields fall back to the analyst's defaults.
	Params *ParamOverrides `json:"params,omitempty"`

	// Sources limits data collection (data_collector). Empty means all.
	Sources []string `json:"sources,omitempty"`

	// PortfolioValue, HorizonYears, Simulations and Seed tune the
	// investment simulations. Zero values use the defaults.
	PortfolioValue float64 `json:"portfolio_value,omitempty"`
	HorizonYears   int     `json:"horizon_years,omitempty"`
	Simulations    int     `json:"simulations,omitempty"`
	Seed           *int64  `json:"seed,omitempty"`
}

// ParamOverrides is a partial set of liability assumptions. A nil field is
// absent; an explicit zero is kept and validated like any other value.
type ParamOverrides struct {
	TotalPilgrims          *int     `json:"total_pilgrims,omitempty"`
	SaudiInflationRate     *float64 `json:"saudi_inflation_rate,omitempty"`
	USDExchangeRate        *float64 `json:"usd_exchange_rate,omitempty"`
	BaseCostPerPilgrim     *float64 `json:"base_cost_per_pilgrim,omitempty"`
	DiscountRate           *float64 `json:"discount_rate,omitempty"`
	ProjectionYears        *int     `json:"projection_years,omitempty"`
	RupiahDepreciationRate *float64 `json:"rupiah_depreciation_rate,omitempty"`
}

// Apply returns base with every present field of o replaced.
func (o *ParamOverrides) Apply(base actuarial.LiabilityParameters) actuarial.LiabilityParameters {
	if o == nil {
		return base
	}
	if o.TotalPilgrims != nil {
		base.TotalPilgrims = *o.TotalPilgrims
	}
	if o.SaudiInflationRate != nil {
		base.SaudiInflationRate = *o.SaudiInflationRate
	}
	if o.USDExchangeRate != nil {
		base.USDExchangeRate = *o.USDExchangeRate
	}
	if o.BaseCostPerPilgrim != nil {
		base.BaseCostPerPilgrim = *o.BaseCostPerPilgrim
	}
	if o.DiscountRate != nil {
		base.DiscountRate = *o.DiscountRate
	}
	if o.ProjectionYears != nil {
		base.ProjectionYears = *o.ProjectionYears
	}
	if o.RupiahDepreciationRate != nil {
		base.RupiahDepreciationRate = *o.RupiahDepreciationRate
	}
	return base
}

// Agent is a named analysis worker.
type Agent interface {
	Name() string
	Info() Info
	Execute(ctx context.Context, req Request) (any, error)
}

// Info is a snapshot of an agent's status.
type Info struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Status         Status     `json:"status"`
	LastExecution  *time.Time `json:"last_execution,omitempty"`
	ExecutionCount int        `json:"execution_count"`
}

// Execution is one recorded agent run.
type Execution struct {
	ID         string
	Agent      string
	StartedAt  time.Time
	Duration   time.Duration
	Status     string
	Parameters any
	Results    any
	Error      string
}

// Recorder persists agent executions.
type Recorder interface {
	RecordExecution(ctx context.Context, e Execution) error
}

// =============================================================================
// SHARED AGENT STATE
// =============================================================================

// base carries the status bookkeeping shared by every agent.
type base struct {
	name        string
	description string
	recorder    Recorder
	logger      *zap.Logger
	now         func() time.Time

	mu            sync.Mutex
	status        Status
	lastExecution time.Time
	executions    int
}

func newBase(name, description string, recorder Recorder, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{
		name:        name,
		description: description,
		recorder:    recorder,
		logger:      logger.Named(name),
		now:         time.Now,
		status:      StatusIdle,
	}
}

func (b *base) Name() string { return b.name }

func (b *base) Info() Info {
	b.mu.Lock()
	defer b.mu.Unlock()

	info := Info{
		Name:           b.name,
		Description:    b.description,
		Status:         b.status,
		ExecutionCount: b.executions,
	}
	if !b.lastExecution.IsZero() {
		last := b.lastExecution
		info.LastExecution = &last
	}
	return info
}

// run wraps fn with status transitions, logging and recording.
func (b *base) run(ctx context.Context, req Request, fn func() (any, error)) (any, error) {
	started := b.now()

	b.mu.Lock()
	b.status = StatusActive
	b.lastExecution = started
	b.mu.Unlock()

	b.logger.Info("agent started", zap.String("kind", req.Kind))

	result, err := fn()
	elapsed := b.now().Sub(started)

	exec := Execution{
		Agent:      b.name,
		StartedAt:  started,
		Duration:   elapsed,
		Status:     ExecutionSuccess,
		Parameters: req,
		Results:    result,
	}

	b.mu.Lock()
	b.executions++
	if err != nil {
		b.status = StatusFailed
		exec.Status = ExecutionFailed
		exec.Results = nil
		exec.Error = err.Error()
	} else {
		b.status = StatusCompleted
	}
	b.mu.Unlock()

	if err != nil {
		b.logger.Error("agent failed", zap.Error(err), zap.Duration("duration", elapsed))
	} else {
		b.logger.Info("agent completed", zap.Duration("duration", elapsed))
	}

	if b.recorder != nil {
		if rerr := b.recorder.RecordExecution(ctx, exec); rerr != nil {
			b.logger.Warn("failed to record execution", zap.Error(rerr))
		}
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	return result, nil
}
