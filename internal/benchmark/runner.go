// internal/benchmark/runner.go

// Package benchmark compares two generator strategies by timing the same request
// against each, first strategy A and then strategy B, either one call at a time or
// fanned out over a bounded worker pool.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mwiater/emailwriter/internal/generator"
	"github.com/mwiater/emailwriter/internal/logging"
	"github.com/mwiater/emailwriter/internal/metrics"
)

// Runner runs benchmark comparisons. The zero value is ready to use.
type Runner struct {
	// PoolSize bounds the workers of a concurrent phase. Zero means one worker per request.
	PoolSize int
	// PhaseTimeout, when positive, is the deadline for each phase to reach its join barrier.
	PhaseTimeout time.Duration
	// OnPhase, when set, is called synchronously as phases start and end.
	OnPhase func(PhaseEvent)
	// Tracker, when set, records every successful generator call.
	Tracker *metrics.Tracker
}

// RunSequential runs a sequential comparison with a zero-value Runner.
func RunSequential(ctx context.Context, req generator.EmailRequest, iterations int, a, b generator.Generator) (Result, error) {
	var r Runner
	return r.RunSequential(ctx, req, iterations, a, b)
}

// RunConcurrent runs a concurrent comparison with a zero-value Runner.
func RunConcurrent(ctx context.Context, req generator.EmailRequest, concurrentRequests int, a, b generator.Generator) (Result, error) {
	var r Runner
	return r.RunConcurrent(ctx, req, concurrentRequests, a, b)
}

// RunSequential calls a exactly iterations times, one after another, then b the same way.
// The first failed call aborts the benchmark.
func (r *Runner) RunSequential(ctx context.Context, req generator.EmailRequest, iterations int, a, b generator.Generator) (Result, error) {
	if iterations <= 0 {
		return Result{}, r.invalid(ModeSequential, fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidParameter, iterations))
	}
	if err := checkStrategies(a, b); err != nil {
		return Result{}, r.invalid(ModeSequential, err)
	}

	logging.LogEvent("Running sequential benchmark: %s vs %s, %d iterations", a.Name(), b.Name(), iterations)
	startedAt := time.Now()

	body := func(g generator.Generator) phaseBody {
		return func(ctx context.Context) ([]time.Duration, error) {
			return r.sequentialCalls(ctx, g, req, iterations)
		}
	}

	elapsedA, latA, err := r.runPhase(ctx, ModeSequential, PhaseA, a, iterations, body(a))
	if err != nil {
		return Result{}, r.failed(ModeSequential, err)
	}
	elapsedB, latB, err := r.runPhase(ctx, ModeSequential, PhaseB, b, iterations, body(b))
	if err != nil {
		return Result{}, r.failed(ModeSequential, err)
	}

	res := newResult(ModeSequential, iterations, a.Name(), b.Name(), elapsedA, elapsedB, latA, latB)
	res.StartedAt = startedAt
	r.succeeded(res)
	return res, nil
}

// RunConcurrent submits concurrentRequests calls of a to a worker pool and waits for all
// of them, then does the same for b. A failed call does not cancel its siblings: the
// phase drains every task before the first failure is returned.
func (r *Runner) RunConcurrent(ctx context.Context, req generator.EmailRequest, concurrentRequests int, a, b generator.Generator) (Result, error) {
	if concurrentRequests <= 0 {
		return Result{}, r.invalid(ModeConcurrent, fmt.Errorf("%w: concurrentRequests must be positive, got %d", ErrInvalidParameter, concurrentRequests))
	}
	if r.PoolSize < 0 {
		return Result{}, r.invalid(ModeConcurrent, fmt.Errorf("%w: pool size must not be negative, got %d", ErrInvalidParameter, r.PoolSize))
	}
	if err := checkStrategies(a, b); err != nil {
		return Result{}, r.invalid(ModeConcurrent, err)
	}

	pool := r.poolSize(concurrentRequests)
	logging.LogEvent("Running concurrent benchmark: %s vs %s, %d requests, pool size %d", a.Name(), b.Name(), concurrentRequests, pool)
	startedAt := time.Now()

	body := func(g generator.Generator) phaseBody {
		return func(ctx context.Context) ([]time.Duration, error) {
			return r.concurrentCalls(ctx, g, req, concurrentRequests, pool)
		}
	}

	elapsedA, latA, err := r.runPhase(ctx, ModeConcurrent, PhaseA, a, concurrentRequests, body(a))
	if err != nil {
		return Result{}, r.failed(ModeConcurrent, err)
	}
	elapsedB, latB, err := r.runPhase(ctx, ModeConcurrent, PhaseB, b, concurrentRequests, body(b))
	if err != nil {
		return Result{}, r.failed(ModeConcurrent, err)
	}

	res := newResult(ModeConcurrent, concurrentRequests, a.Name(), b.Name(), elapsedA, elapsedB, latA, latB)
	res.PoolSize = pool
	res.StartedAt = startedAt
	r.succeeded(res)
	return res, nil
}

type phaseBody func(ctx context.Context) ([]time.Duration, error)

// runPhase times body from its first call to its return and applies the phase deadline.
func (r *Runner) runPhase(ctx context.Context, mode Mode, phase Phase, g generator.Generator, n int, body phaseBody) (time.Duration, []time.Duration, error) {
	phaseCtx := ctx
	if r.PhaseTimeout > 0 {
		var cancel context.CancelFunc
		phaseCtx, cancel = context.WithTimeout(ctx, r.PhaseTimeout)
		defer cancel()
	}

	r.emit(PhaseEvent{Mode: mode, Phase: phase, Strategy: g.Name(), State: PhaseStarted, Requests: n})

	start := time.Now()
	latencies, err := body(phaseCtx)
	elapsed := time.Since(start)

	if r.PhaseTimeout > 0 && ctx.Err() == nil && elapsed >= r.PhaseTimeout {
		err = fmt.Errorf("%w: join barrier not reached within %s", ErrTimeout, r.PhaseTimeout)
	}
	if err != nil {
		err = &PhaseError{Mode: mode, Phase: phase, Strategy: g.Name(), Err: err}
		logging.LogEvent("%s phase %s (%s) failed after %d ms: %v", mode, phase, g.Name(), elapsed.Milliseconds(), err)
		r.emit(PhaseEvent{Mode: mode, Phase: phase, Strategy: g.Name(), State: PhaseFailed, Requests: n, Elapsed: elapsed, Err: err})
		return elapsed, latencies, err
	}

	metrics.BenchmarkPhaseDuration.WithLabelValues(string(mode), g.Name()).Observe(elapsed.Seconds())
	logging.LogEvent("%s phase %s (%s): %d requests in %d ms", mode, phase, g.Name(), n, elapsed.Milliseconds())
	r.emit(PhaseEvent{Mode: mode, Phase: phase, Strategy: g.Name(), State: PhaseFinished, Requests: n, Elapsed: elapsed})
	return elapsed, latencies, nil
}

func (r *Runner) sequentialCalls(ctx context.Context, g generator.Generator, req generator.EmailRequest, n int) ([]time.Duration, error) {
	latencies := make([]time.Duration, 0, n)
	for range n {
		if err := ctx.Err(); err != nil {
			return latencies, err
		}
		d, err := r.call(ctx, g, req)
		latencies = append(latencies, d)
		if err != nil {
			return latencies, err
		}
	}
	return latencies, nil
}

// concurrentCalls fans n calls out over at most pool goroutines. errgroup.Group without
// a derived context keeps siblings running after a failure; Wait returns once all tasks
// have finished and yields the first error.
func (r *Runner) concurrentCalls(ctx context.Context, g generator.Generator, req generator.EmailRequest, n, pool int) ([]time.Duration, error) {
	latencies := make([]time.Duration, n)

	var eg errgroup.Group
	eg.SetLimit(pool)
	for i := range n {
		eg.Go(func() error {
			d, err := r.call(ctx, g, req)
			latencies[i] = d
			return err
		})
	}
	return latencies, eg.Wait()
}

func (r *Runner) call(ctx context.Context, g generator.Generator, req generator.EmailRequest) (time.Duration, error) {
	start := time.Now()
	_, err := g.Generate(ctx, req)
	d := time.Since(start)
	if err != nil {
		return d, err
	}
	metrics.GenerateDuration.WithLabelValues(g.Name()).Observe(d.Seconds())
	if r.Tracker != nil {
		r.Tracker.Record(g.Name(), d)
	}
	return d, nil
}

func (r *Runner) poolSize(n int) int {
	if r.PoolSize <= 0 || r.PoolSize > n {
		return n
	}
	return r.PoolSize
}

func (r *Runner) emit(ev PhaseEvent) {
	if r.OnPhase != nil {
		r.OnPhase(ev)
	}
}

func (r *Runner) invalid(mode Mode, err error) error {
	metrics.BenchmarkRuns.WithLabelValues(string(mode), "invalid").Inc()
	return err
}

func (r *Runner) failed(mode Mode, err error) error {
	outcome := "error"
	if errors.Is(err, ErrTimeout) {
		outcome = "timeout"
	}
	metrics.BenchmarkRuns.WithLabelValues(string(mode), outcome).Inc()
	return err
}

func (r *Runner) succeeded(res Result) {
	metrics.BenchmarkRuns.WithLabelValues(string(res.Mode), "success").Inc()
	logging.LogEvent("%s benchmark done: %s %d ms (avg %d), %s %d ms (avg %d), improvement %.2f%%",
		res.Mode, res.StrategyA, res.TotalTimeMsA, res.AvgTimeMsA, res.StrategyB, res.TotalTimeMsB, res.AvgTimeMsB, res.ImprovementPercent)
}

func checkStrategies(a, b generator.Generator) error {
	if a == nil || b == nil {
		return fmt.Errorf("%w: both strategies are required", ErrInvalidParameter)
	}
	return nil
}
