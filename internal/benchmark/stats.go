package benchmark

import (
	"math"
	"sort"
	"time"
)

// ImprovementPercent returns how much faster total B was than total A, as a percentage of A.
// A zero baseline yields 0.
func ImprovementPercent(totalMsA, totalMsB int64) float64 {
	if totalMsA == 0 {
		return 0
	}
	return float64(totalMsA-totalMsB) / float64(totalMsA) * 100
}

func newResult(mode Mode, n int, strategyA, strategyB string, elapsedA, elapsedB time.Duration, latA, latB []time.Duration) Result {
	totalA := elapsedA.Milliseconds()
	totalB := elapsedB.Milliseconds()
	return Result{
		TotalTimeMsA:       totalA,
		AvgTimeMsA:         totalA / int64(n),
		TotalTimeMsB:       totalB,
		AvgTimeMsB:         totalB / int64(n),
		ImprovementPercent: ImprovementPercent(totalA, totalB),
		RequestCount:       n,
		Mode:               mode,
		StrategyA:          strategyA,
		StrategyB:          strategyB,
		LatencyA:           computeLatency(latA),
		LatencyB:           computeLatency(latB),
	}
}

func computeLatency(latencies []time.Duration) LatencyStats {
	if len(latencies) == 0 {
		return LatencyStats{}
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return LatencyStats{
		MinMs: ms(sorted[0]),
		MaxMs: ms(sorted[len(sorted)-1]),
		AvgMs: ms(sum / time.Duration(len(sorted))),
		P50Ms: ms(pct(sorted, 50)),
		P90Ms: ms(pct(sorted, 90)),
		P95Ms: ms(pct(sorted, 95)),
		P99Ms: ms(pct(sorted, 99)),
	}
}

// pct returns the nearest-rank percentile of an ascending slice.
func pct(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
