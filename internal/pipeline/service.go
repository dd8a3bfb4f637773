// Package pipeline runs the batch: load the raw tables, process them with
// core and hand the result to every configured sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/bankquality/internal/core"
	"github.com/JonMunkholm/bankquality/internal/logging"
)

// ErrNoRun is returned by Latest before any run has completed.
var ErrNoRun = errors.New("pipeline: no completed run")

// DefaultRunTimeout bounds a run when Options.RunTimeout is zero.
const DefaultRunTimeout = 10 * time.Minute

// Source loads the raw input tables.
type Source interface {
	Load(ctx context.Context) (core.RawDataset, error)
}

// Sink receives the result of a run.
type Sink interface {
	Name() string
	Write(ctx context.Context, runID string, res core.Result) error
}

// Options configure a Service. Zero thresholds and timeout take the
// defaults.
type Options struct {
	HighRiskThreshold decimal.Decimal
	OutlierThreshold  decimal.Decimal
	RunTimeout        time.Duration
	MaxWait           time.Duration // zero fails at once when a run is active

	// Now supplies the processing time; time.Now when nil.
	Now func() time.Time
}

// Run is a completed pipeline run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Result     core.Result
}

// Summary returns the serialisable report of the run.
func (r Run) Summary() core.RunSummary {
	return r.Result.Summary(r.ID)
}

// Service runs the pipeline one run at a time and remembers the latest
// result.
type Service struct {
	source  Source
	sinks   []Sink
	opts    Options
	limiter *Limiter

	mu     sync.RWMutex
	latest *Run
}

// NewService creates a Service reading from source and writing to sinks in
// order.
func NewService(source Source, sinks []Sink, opts Options) *Service {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HighRiskThreshold.IsZero() {
		opts.HighRiskThreshold = core.DefaultHighRiskThreshold
	}
	if opts.OutlierThreshold.IsZero() {
		opts.OutlierThreshold = core.DefaultOutlierThreshold
	}
	return &Service{
		source:  source,
		sinks:   sinks,
		opts:    opts,
		limiter: NewLimiter(1, opts.MaxWait),
	}
}

// Run executes one pipeline run. It fails with ErrRunInProgress when another
// run holds the slot past the configured wait. The first sink error aborts
// the run; sinks already written are not rolled back.
func (s *Service) Run(ctx context.Context) (Run, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return Run{}, err
	}
	defer s.limiter.Release()

	run := Run{ID: uuid.New().String(), StartedAt: s.opts.Now()}

	ctx = core.ContextWithRunID(ctx, run.ID)
	ctx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	log := logging.FromContext(ctx)
	log.Info("pipeline run started", "sinks", len(s.sinks))

	raw, err := s.source.Load(ctx)
	if err != nil {
		log.Error("pipeline load failed", "error", err)
		return Run{}, fmt.Errorf("load input: %w", err)
	}
	log.Info("input loaded",
		"customers", len(raw.Customers),
		"accounts", len(raw.Accounts),
		"transactions", len(raw.Transactions),
	)

	opts := core.Options{
		HighRiskThreshold: s.opts.HighRiskThreshold,
		OutlierThreshold:  s.opts.OutlierThreshold,
		Now:               run.StartedAt,
		Observer: func(stage string, rowsIn, rowsOut int) {
			log.Info("stage complete", "stage", stage, "rows_in", rowsIn, "rows_out", rowsOut)
		},
	}
	run.Result = core.Process(raw, opts)

	r := run.Result.Report
	log.Info("quality report",
		"duplicate_customers", r.DuplicateCustomers,
		"duplicate_accounts", r.DuplicateAccounts,
		"duplicate_transactions", r.DuplicateTransactions,
		"invalid_account_links", r.InvalidAccountLinks,
		"invalid_transaction_links", r.InvalidTransactionLinks,
		"future_transactions", r.FutureTransactions,
		"sign_inconsistencies", r.SignInconsistencies,
	)

	for _, sink := range s.sinks {
		// A cancelled run must not start another sink
		if err := ctx.Err(); err != nil {
			return Run{}, fmt.Errorf("write %s: %w", sink.Name(), err)
		}

		sinkLog := logging.WithFields(ctx, "sink", sink.Name())
		start := time.Now()
		if err := sink.Write(ctx, run.ID, run.Result); err != nil {
			sinkLog.Error("sink failed", "error", err)
			return Run{}, fmt.Errorf("write %s: %w", sink.Name(), err)
		}
		sinkLog.Info("sink written", "duration", time.Since(start))
	}

	run.FinishedAt = s.opts.Now()
	log.Info("pipeline run finished", "duration", run.FinishedAt.Sub(run.StartedAt))

	s.mu.Lock()
	s.latest = &run
	s.mu.Unlock()

	return run, nil
}

// Latest returns the most recent successful run.
func (s *Service) Latest() (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Run{}, ErrNoRun
	}
	return *s.latest, nil
}

// Status reports the run slot state.
func (s *Service) Status() LimiterStatus {
	return s.limiter.Status()
}

// WaitForDrain blocks until the active run finishes or ctx is done.
func (s *Service) WaitForDrain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
