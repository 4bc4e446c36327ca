/*
scheduler.go - Automated daily analysis scheduler

PURPOSE:
  Periodically runs the orchestrator's daily analysis (data collection,
  liability analysis, portfolio optimization, summary) and keeps the last
  report for the dashboard.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Runs once immediately on start when RunOnStart is set
  - Only one analysis runs at a time; manual runs share the same lock
  - Agent executions are recorded by the agents themselves

CONFIGURATION:
  - Interval:   How often to run (default: 24 hours)
  - Enabled:    Whether scheduler is active (default: true)
  - RunOnStart: Run immediately when started (default: true)

USAGE:
  scheduler := NewDailyScheduler(orchestrator, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunDailyAnalysis endpoint (manual run)
  - agents/orchestrator.go: RunDailyAnalysis
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/astha/treasury-engine/agents"
)

// DailyScheduler runs the daily analysis on a ticker.
type DailyScheduler struct {
	Orchestrator *agents.Orchestrator
	Interval     time.Duration
	Enabled      bool
	RunOnStart   bool

	logger *zap.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	runMu      sync.Mutex
	stateMu    sync.RWMutex
	lastRun    time.Time
	lastReport *agents.DailyReport
}

// NewDailyScheduler creates a new scheduler.
func NewDailyScheduler(orch *agents.Orchestrator, logger *zap.Logger) *DailyScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyScheduler{
		Orchestrator: orch,
		Interval:     24 * time.Hour,
		Enabled:      true,
		RunOnStart:   true,
		logger:       logger.Named("scheduler"),
	}
}

// Start begins the scheduler.
func (s *DailyScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.Interval <= 0 {
		s.logger.Info("scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.logger.Info("scheduler started", zap.Duration("interval", s.Interval))
}

// Stop stops the scheduler and waits for a running analysis to finish.
func (s *DailyScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.logger.Info("scheduler stopped")
	}
}

func (s *DailyScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	if s.RunOnStart {
		s.RunNow(ctx)
	}

	for {
		select {
		case <-ticker.C:
			s.RunNow(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow runs the daily analysis synchronously and stores its report.
func (s *DailyScheduler) RunNow(ctx context.Context) (*agents.DailyReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	report, err := s.Orchestrator.RunDailyAnalysis(ctx)
	if err != nil {
		s.logger.Error("daily analysis failed", zap.Error(err))
	}

	s.stateMu.Lock()
	s.lastRun = time.Now()
	s.lastReport = report
	s.stateMu.Unlock()

	return report, err
}

// LastReport returns the report of the most recent run, or nil.
func (s *DailyScheduler) LastReport() *agents.DailyReport {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.lastReport
}

// State describes the scheduler for the agents endpoint.
func (s *DailyScheduler) State() *SchedulerState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	st := &SchedulerState{
		Enabled:  s.Enabled && s.Interval > 0,
		Interval: s.Interval.String(),
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		st.LastRun = &last
	}
	return st
}
