/*
Package sqlite provides the SQLite-backed audit store.

PURPOSE:
  Keeps an audit trail of everything the engine computed: liability
  calculations, stress and Monte Carlo runs, and agent executions. Also holds
  the historical hajj cost table the dashboard charts. The engine is correct
  without this store; it exists so results can be reviewed later.

INTERFACES IMPLEMENTED:
  agents.Recorder: Agent execution log

KEY TABLES:
  liability_calculations: One row per projection (parameters + total)
  simulation_results:     Stress, Monte Carlo, sensitivity and portfolio runs (JSON)
  agent_executions:       Agent runs with status, duration and payloads
  hajj_costs:             Historical BPIH / Bipih / benefit value per year

MONEY:
  Liability totals and costs are written as exact decimal text
  (shopspring/decimal) so re-reading never changes a digit.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In-memory databases are pinned to one
  connection so every query sees the same schema.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/astha.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  id, err := store.SaveCalculation(ctx, sqlite.CalculationRecord{...})

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - agents/agent.go: Recorder interface
  - api/handlers.go: Writes audit records after each calculation
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/astha/treasury-engine/actuarial"
	"github.com/astha/treasury-engine/agents"
)

// timeLayout sorts lexicographically in UTC, which range queries rely on.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store implements the audit store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	now func() time.Time
}

var _ agents.Recorder = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	memory := strings.HasPrefix(dbPath, ":memory:")
	if memory {
		dsn = dbPath + "?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema and seeds reference data.
func (s *Store) migrate() error {
	schema := `
	-- Liability calculations (one per projection)
	CREATE TABLE IF NOT EXISTS liability_calculations (
		id TEXT PRIMARY KEY,
		calculated_at TEXT NOT NULL,
		total_pilgrims INTEGER NOT NULL,
		saudi_inflation_rate REAL NOT NULL,
		usd_exchange_rate REAL NOT NULL,
		base_cost_per_pilgrim TEXT NOT NULL,
		discount_rate REAL NOT NULL,
		projection_years INTEGER NOT NULL,
		rupiah_depreciation_rate REAL NOT NULL,
		total_liability TEXT NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_calculated_at
		ON liability_calculations(calculated_at DESC);

	-- Simulation results (stress, monte carlo, sensitivity, portfolio)
	CREATE TABLE IF NOT EXISTS simulation_results (
		id TEXT PRIMARY KEY,
		simulation_type TEXT NOT NULL,
		scenario_name TEXT NOT NULL,
		parameters_json TEXT NOT NULL,
		results_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_simulations_type_created
		ON simulation_results(simulation_type, created_at DESC);

	-- Agent executions
	CREATE TABLE IF NOT EXISTS agent_executions (
		id TEXT PRIMARY KEY,
		agent_name TEXT NOT NULL,
		execution_time TEXT NOT NULL,
		status TEXT NOT NULL,
		parameters_json TEXT,
		results_json TEXT,
		error_message TEXT,
		duration_seconds REAL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_agent_executions_agent_time
		ON agent_executions(agent_name, execution_time);

	-- Historical hajj costs
	CREATE TABLE IF NOT EXISTS hajj_costs (
		year INTEGER PRIMARY KEY,
		bpih TEXT NOT NULL,
		bipih TEXT NOT NULL,
		benefit_value TEXT NOT NULL,
		usd_rate REAL,
		sar_rate REAL,
		created_at TEXT NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	now := s.now().UTC().Format(timeLayout)
	for _, c := range referenceHajjCosts {
		_, err := s.db.Exec(`
			INSERT OR IGNORE INTO hajj_costs (year, bpih, bipih, benefit_value, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			c.Year, c.BPIH.String(), c.Bipih.String(), c.BenefitValue.String(), now,
		)
		if err != nil {
			return fmt.Errorf("seed hajj costs: %w", err)
		}
	}
	return nil
}

// =============================================================================
// LIABILITY CALCULATIONS
// =============================================================================

// CalculationRecord is one audited liability projection.
type CalculationRecord struct {
	ID             string
	CalculatedAt   time.Time
	Params         actuarial.LiabilityParameters
	TotalLiability decimal.Decimal
	CreatedBy      string
	CreatedAt      time.Time
}

// SaveCalculation stores a calculation and returns its ID. Empty ID and zero
// CalculatedAt are filled in.
func (s *Store) SaveCalculation(ctx context.Context, c CalculationRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if c.CalculatedAt.IsZero() {
		c.CalculatedAt = now
	}
	if c.CreatedBy == "" {
		c.CreatedBy = "system"
	}

	query := `
		INSERT INTO liability_calculations
		(id, calculated_at, total_pilgrims, saudi_inflation_rate, usd_exchange_rate,
		 base_cost_per_pilgrim, discount_rate, projection_years, rupiah_depreciation_rate,
		 total_liability, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	p := c.Params
	_, err := s.db.ExecContext(ctx, query,
		c.ID,
		c.CalculatedAt.UTC().Format(timeLayout),
		p.TotalPilgrims,
		p.SaudiInflationRate,
		p.USDExchangeRate,
		decimal.NewFromFloat(p.BaseCostPerPilgrim).String(),
		p.DiscountRate,
		p.ProjectionYears,
		p.RupiahDepreciationRate,
		c.TotalLiability.String(),
		c.CreatedBy,
		now.Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save calculation: %w", err)
	}
	return c.ID, nil
}

// GetCalculation retrieves a calculation by ID. Returns nil if not found.
func (s *Store) GetCalculation(ctx context.Context, id string) (*CalculationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectCalculations+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	c, err := scanCalculation(rows)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCalculations returns the most recent calculations, newest first.
func (s *Store) ListCalculations(ctx context.Context, limit int) ([]CalculationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		selectCalculations+" ORDER BY calculated_at DESC, rowid DESC LIMIT ?", clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query calculations: %w", err)
	}
	defer rows.Close()

	var out []CalculationRecord
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const selectCalculations = `
	SELECT id, calculated_at, total_pilgrims, saudi_inflation_rate, usd_exchange_rate,
	       base_cost_per_pilgrim, discount_rate, projection_years, rupiah_depreciation_rate,
	       total_liability, created_by, created_at
	FROM liability_calculations`

func scanCalculation(rows *sql.Rows) (CalculationRecord, error) {
	var (
		c                       CalculationRecord
		calculatedAt, createdAt string
		baseCost, total         string
		createdBy               sql.NullString
	)

	err := rows.Scan(
		&c.ID, &calculatedAt, &c.Params.TotalPilgrims, &c.Params.SaudiInflationRate,
		&c.Params.USDExchangeRate, &baseCost, &c.Params.DiscountRate,
		&c.Params.ProjectionYears, &c.Params.RupiahDepreciationRate,
		&total, &createdBy, &createdAt,
	)
	if err != nil {
		return c, fmt.Errorf("failed to scan calculation: %w", err)
	}

	c.CalculatedAt, _ = time.Parse(timeLayout, calculatedAt)
	c.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	cost, err := parseDecimal("base_cost_per_pilgrim", baseCost)
	if err != nil {
		return c, err
	}
	c.Params.BaseCostPerPilgrim = cost.InexactFloat64()
	if c.TotalLiability, err = parseDecimal("total_liability", total); err != nil {
		return c, err
	}
	c.CreatedBy = createdBy.String
	return c, nil
}

// =============================================================================
// SIMULATION RESULTS
// =============================================================================

// Simulation types.
const (
	SimulationStress      = "stress"
	SimulationMonteCarlo  = "monte_carlo"
	SimulationSensitivity = "sensitivity"
	SimulationPortfolio   = "portfolio"
)

// SimulationRecord is one stored analysis run. Parameters and Results hold
// raw JSON.
type SimulationRecord struct {
	ID             string
	Type           string
	ScenarioName   string
	ParametersJSON string
	ResultsJSON    string
	CreatedAt      time.Time
}

// SaveSimulation encodes params and results as JSON and stores them.
func (s *Store) SaveSimulation(ctx context.Context, simType, scenario string, params, results any) (string, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode simulation parameters: %w", err)
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("encode simulation results: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO simulation_results (id, simulation_type, scenario_name, parameters_json, results_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, simType, scenario, string(paramsJSON), string(resultsJSON), s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save simulation: %w", err)
	}
	return id, nil
}

// ListSimulations returns recent simulations, newest first. An empty simType
// returns all types.
func (s *Store) ListSimulations(ctx context.Context, simType string, limit int) ([]SimulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, simulation_type, scenario_name, parameters_json, results_json, created_at
		FROM simulation_results`
	var args []any
	if simType != "" {
		query += " WHERE simulation_type = ?"
		args = append(args, simType)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, clampLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query simulations: %w", err)
	}
	defer rows.Close()

	var out []SimulationRecord
	for rows.Next() {
		var r SimulationRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Type, &r.ScenarioName, &r.ParametersJSON, &r.ResultsJSON, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// AGENT EXECUTIONS (agents.Recorder)
// =============================================================================

// RecordExecution stores one agent run.
func (s *Store) RecordExecution(ctx context.Context, e agents.Execution) error {
	var paramsJSON, resultsJSON sql.NullString
	if e.Parameters != nil {
		b, err := json.Marshal(e.Parameters)
		if err != nil {
			return fmt.Errorf("encode execution parameters: %w", err)
		}
		paramsJSON = nullString(string(b))
	}
	if e.Results != nil {
		b, err := json.Marshal(e.Results)
		if err != nil {
			return fmt.Errorf("encode execution results: %w", err)
		}
		resultsJSON = nullString(string(b))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	startedAt := e.StartedAt
	if startedAt.IsZero() {
		startedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_executions
		(id, agent_name, execution_time, status, parameters_json, results_json, error_message, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.Agent, startedAt.UTC().Format(timeLayout), e.Status,
		paramsJSON, resultsJSON, nullString(e.Error), e.Duration.Seconds(),
		s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// AgentPerformance aggregates executions per agent.
type AgentPerformance struct {
	AgentName            string
	TotalExecutions      int
	SuccessfulExecutions int
	AvgDurationSeconds   float64
	LastExecution        time.Time
}

// GetAgentPerformance aggregates executions started at or after since.
func (s *Store) GetAgentPerformance(ctx context.Context, since time.Time) ([]AgentPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_name,
		       COUNT(*),
		       SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
		       COALESCE(AVG(duration_seconds), 0),
		       MAX(execution_time)
		FROM agent_executions
		WHERE execution_time >= ?
		GROUP BY agent_name
		ORDER BY agent_name`,
		agents.ExecutionSuccess, since.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent performance: %w", err)
	}
	defer rows.Close()

	var out []AgentPerformance
	for rows.Next() {
		var p AgentPerformance
		var last string
		if err := rows.Scan(&p.AgentName, &p.TotalExecutions, &p.SuccessfulExecutions, &p.AvgDurationSeconds, &last); err != nil {
			return nil, err
		}
		p.LastExecution, _ = time.Parse(timeLayout, last)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListExecutions returns recent executions of one agent (or all when agent is
// empty), newest first.
func (s *Store) ListExecutions(ctx context.Context, agent string, limit int) ([]agents.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, agent_name, execution_time, status, error_message, duration_seconds
		FROM agent_executions`
	var args []any
	if agent != "" {
		query += " WHERE agent_name = ?"
		args = append(args, agent)
	}
	query += " ORDER BY execution_time DESC, rowid DESC LIMIT ?"
	args = append(args, clampLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var out []agents.Execution
	for rows.Next() {
		var (
			e        agents.Execution
			at       string
			errMsg   sql.NullString
			duration sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.Agent, &at, &e.Status, &errMsg, &duration); err != nil {
			return nil, err
		}
		e.StartedAt, _ = time.Parse(timeLayout, at)
		e.Error = errMsg.String
		e.Duration = time.Duration(duration.Float64 * float64(time.Second))
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// HISTORICAL HAJJ COSTS
// =============================================================================

// HajjCost is one year of the official cost table.
type HajjCost struct {
	Year         int
	BPIH         decimal.Decimal // total cost per pilgrim
	Bipih        decimal.Decimal // portion paid by the pilgrim
	BenefitValue decimal.Decimal // portion covered by fund returns
	USDRate      float64
	SARRate      float64
}

var referenceHajjCosts = []HajjCost{
	{Year: 2022, BPIH: decimal.NewFromInt(85452883), Bipih: decimal.NewFromInt(39886009), BenefitValue: decimal.NewFromInt(45566874)},
	{Year: 2023, BPIH: decimal.NewFromInt(89629474), Bipih: decimal.NewFromInt(49812700), BenefitValue: decimal.NewFromInt(39816774)},
	{Year: 2024, BPIH: decimal.NewFromInt(94482028), Bipih: decimal.NewFromInt(56046172), BenefitValue: decimal.NewFromInt(38435856)},
	{Year: 2025, BPIH: decimal.NewFromInt(91493896), Bipih: decimal.NewFromInt(60559399), BenefitValue: decimal.NewFromInt(30934497)},
}

// SaveHajjCost inserts or replaces the row for c.Year.
func (s *Store) SaveHajjCost(ctx context.Context, c HajjCost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hajj_costs (year, bpih, bipih, benefit_value, usd_rate, sar_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(year) DO UPDATE SET
			bpih = excluded.bpih,
			bipih = excluded.bipih,
			benefit_value = excluded.benefit_value,
			usd_rate = excluded.usd_rate,
			sar_rate = excluded.sar_rate`,
		c.Year, c.BPIH.String(), c.Bipih.String(), c.BenefitValue.String(),
		c.USDRate, c.SARRate, s.now().UTC().Format(timeLayout),
	)
	return err
}

// ListHajjCosts returns the cost table ordered by year.
func (s *Store) ListHajjCosts(ctx context.Context) ([]HajjCost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT year, bpih, bipih, benefit_value, usd_rate, sar_rate FROM hajj_costs ORDER BY year")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HajjCost
	for rows.Next() {
		var (
			c                    HajjCost
			bpih, bipih, benefit string
			usd, sar             sql.NullFloat64
		)
		if err := rows.Scan(&c.Year, &bpih, &bipih, &benefit, &usd, &sar); err != nil {
			return nil, err
		}
		if c.BPIH, err = parseDecimal("bpih", bpih); err != nil {
			return nil, err
		}
		if c.Bipih, err = parseDecimal("bipih", bipih); err != nil {
			return nil, err
		}
		if c.BenefitValue, err = parseDecimal("benefit_value", benefit); err != nil {
			return nil, err
		}
		c.USDRate = usd.Float64
		c.SARRate = sar.Float64
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears the audit tables (for testing/demo). The cost table is kept.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"liability_calculations", "simulation_results", "agent_executions"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseDecimal reads a monetary TEXT column. A corrupt value is an error,
// never a silent zero.
func parseDecimal(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt %s %q: %w", column, s, err)
	}
	return d, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}
