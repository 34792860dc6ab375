package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, path, and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emailwriter_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "path", "status"})

	// GenerateDuration tracks remote generation latency per generator strategy.
	GenerateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "emailwriter_generate_duration_seconds",
		Help:    "Time spent generating an email reply.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"generator"})

	// BenchmarkPhaseDuration tracks the wall time of each benchmark phase.
	BenchmarkPhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "emailwriter_benchmark_phase_seconds",
		Help:    "Wall time of a benchmark phase.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"mode", "strategy"})

	// BenchmarkRuns counts benchmark runs by mode and outcome.
	BenchmarkRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emailwriter_benchmark_runs_total",
		Help: "Benchmark runs by mode and outcome.",
	}, []string{"mode", "outcome"})
)
