// Package batch lifts many functions concurrently.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/regionlift/region"
)

// DefaultTimeout bounds a whole batch when the executor has none configured.
const DefaultTimeout = 5 * time.Minute

// Job is one function to lift.
type Job struct {
	Graph *region.Graph
	Name  string
	Entry region.ID
}

// Result is the outcome of one job. Results keep the order of their jobs.
type Result struct {
	Tree     *region.Tree
	Err      error
	Name     string
	Duration time.Duration
}

// JobError represents a single job failure.
type JobError struct {
	Err  error
	Name string
}

// Error implements the error interface
func (e JobError) Error() string {
	return fmt.Sprintf("[%s] %v", e.Name, e.Err)
}

// Unwrap returns the underlying error
func (e JobError) Unwrap() error {
	return e.Err
}

// AggregatedError collects all job failures.
type AggregatedError struct {
	Errors []JobError
}

// Error implements the error interface
func (e *AggregatedError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d functions failed:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap returns the first error for errors.Is/As compatibility
func (e *AggregatedError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0].Err
}

// Errors aggregates the failed results, or returns nil when all succeeded.
func Errors(results []Result) error {
	var errs []JobError
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, JobError{Name: r.Name, Err: r.Err})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &AggregatedError{Errors: errs}
}

// Executor runs lift jobs on a bounded number of goroutines.
type Executor struct {
	logger  *zap.Logger
	onDone  func(Result)
	workers int
	timeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers sets the concurrency limit; values <= 0 keep runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithTimeout bounds the whole batch.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the executor logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// OnDone registers a callback invoked after each job. Calls may come from
// several goroutines at once.
func OnDone(fn func(Result)) Option {
	return func(e *Executor) { e.onDone = fn }
}

// NewExecutor creates an executor with defaults: runtime.NumCPU() workers and
// a five minute timeout.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		logger:  zap.NewNop(),
		workers: runtime.NumCPU(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run lifts every job with cfg. A job failure is reported in its Result and
// does not stop the others; the returned error is only set when the batch
// itself was cancelled or timed out. Jobs not started by then carry the
// context error.
func (e *Executor) Run(ctx context.Context, jobs []Job, cfg region.Config) ([]Result, error) {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results, nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(timeoutCtx)
	g.SetLimit(e.workers)

	if cfg.Logger == nil {
		cfg.Logger = e.logger
	}

	for i, job := range jobs {
		i, job := i, job
		results[i].Name = job.Name
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				results[i].Err = gCtx.Err()
				return nil
			default:
			}

			jobCfg := cfg
			jobCfg.Logger = cfg.Logger.With(zap.String("func", job.Name))

			start := time.Now()
			tree, err := region.Lift(job.Graph, job.Entry, jobCfg)
			results[i].Tree = tree
			results[i].Err = err
			results[i].Duration = time.Since(start)

			if err != nil {
				e.logger.Debug("lift failed", zap.String("func", job.Name), zap.Error(err))
			}
			if e.onDone != nil {
				e.onDone(results[i])
			}
			return nil
		})
	}

	// Jobs return nil so every function is attempted; failures live in results.
	_ = g.Wait()

	if err := timeoutCtx.Err(); err != nil {
		return results, err
	}
	return results, nil
}
