// internal/benchmark/types.go
package benchmark

import "time"

// Mode names how a benchmark issued its calls.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeConcurrent Mode = "concurrent"
)

// Result compares two generator strategies. Strategy A is the baseline, B the candidate.
// ImprovementPercent is positive when B was faster than A.
type Result struct {
	TotalTimeMsA       int64   `json:"totalTimeMsA" yaml:"totalTimeMsA"`
	AvgTimeMsA         int64   `json:"avgTimeMsA" yaml:"avgTimeMsA"`
	TotalTimeMsB       int64   `json:"totalTimeMsB" yaml:"totalTimeMsB"`
	AvgTimeMsB         int64   `json:"avgTimeMsB" yaml:"avgTimeMsB"`
	ImprovementPercent float64 `json:"improvementPercent" yaml:"improvementPercent"`
	RequestCount       int     `json:"requestCount" yaml:"requestCount"`

	Mode      Mode         `json:"mode" yaml:"mode"`
	StrategyA string       `json:"strategyA" yaml:"strategyA"`
	StrategyB string       `json:"strategyB" yaml:"strategyB"`
	PoolSize  int          `json:"poolSize,omitempty" yaml:"poolSize,omitempty"`
	StartedAt time.Time    `json:"startedAt" yaml:"startedAt"`
	LatencyA  LatencyStats `json:"latencyA" yaml:"latencyA"`
	LatencyB  LatencyStats `json:"latencyB" yaml:"latencyB"`
}

// LatencyStats summarises the per-call latencies of one phase, in milliseconds.
type LatencyStats struct {
	MinMs float64 `json:"minMs" yaml:"minMs"`
	MaxMs float64 `json:"maxMs" yaml:"maxMs"`
	AvgMs float64 `json:"avgMs" yaml:"avgMs"`
	P50Ms float64 `json:"p50Ms" yaml:"p50Ms"`
	P90Ms float64 `json:"p90Ms" yaml:"p90Ms"`
	P95Ms float64 `json:"p95Ms" yaml:"p95Ms"`
	P99Ms float64 `json:"p99Ms" yaml:"p99Ms"`
}

// Phase identifies which strategy of the pair is running.
type Phase string

const (
	PhaseA Phase = "A"
	PhaseB Phase = "B"
)

// PhaseState is the lifecycle step reported by a PhaseEvent.
type PhaseState string

const (
	PhaseStarted  PhaseState = "started"
	PhaseFinished PhaseState = "finished"
	PhaseFailed   PhaseState = "failed"
)

// PhaseEvent is delivered to Runner.OnPhase when a phase starts and when it ends.
type PhaseEvent struct {
	Mode     Mode
	Phase    Phase
	Strategy string
	State    PhaseState
	Requests int
	Elapsed  time.Duration
	Err      error
}
