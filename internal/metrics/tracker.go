// internal/metrics/tracker.go
package metrics

import (
	"sort"
	"sync"
	"time"
)

// RunningStat holds the values needed for online calculation of mean and variance.
type RunningStat struct {
	Count int64   `json:"-"`
	Mean  float64 `json:"mean"`
	M2    float64 `json:"-"` // Sum of squares of differences from the current mean
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Tracker accumulates processing times per generator. The zero value is not usable;
// construct one with NewTracker and share it between the callers that record into it.
type Tracker struct {
	mu    sync.Mutex
	stats map[string]*generatorStats
}

type generatorStats struct {
	duration RunningStat
	totalMs  int64
}

// GeneratorSnapshot is the reported view of one generator's accumulated timings.
type GeneratorSnapshot struct {
	Generator               string  `json:"generator"`
	TotalRequestsProcessed  int64   `json:"totalRequestsProcessed"`
	AverageProcessingTimeMs float64 `json:"averageProcessingTimeMs"`
	TotalProcessingTimeMs   int64   `json:"totalProcessingTimeMs"`
	MinMs                   float64 `json:"minMs"`
	MaxMs                   float64 `json:"maxMs"`
}

// Snapshot is a point-in-time copy of every generator's stats.
type Snapshot struct {
	TotalRequestsProcessed  int64               `json:"totalRequestsProcessed"`
	AverageProcessingTimeMs float64             `json:"averageProcessingTimeMs"`
	Generators              []GeneratorSnapshot `json:"generators"`
}

func NewTracker() *Tracker {
	return &Tracker{stats: make(map[string]*generatorStats)}
}

// Record adds one completed generation for generator.
func (t *Tracker) Record(generator string, d time.Duration) {
	ms := d.Milliseconds()

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stats[generator]
	if !ok {
		s = &generatorStats{}
		t.stats[generator] = s
	}
	s.totalMs += ms
	updateRunningStat(&s.duration, float64(ms))
}

// Snapshot returns the stats accumulated so far, generators sorted by name.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	var snap Snapshot
	var totalMs int64
	for name, s := range t.stats {
		snap.Generators = append(snap.Generators, GeneratorSnapshot{
			Generator:               name,
			TotalRequestsProcessed:  s.duration.Count,
			AverageProcessingTimeMs: s.duration.Mean,
			TotalProcessingTimeMs:   s.totalMs,
			MinMs:                   s.duration.Min,
			MaxMs:                   s.duration.Max,
		})
		snap.TotalRequestsProcessed += s.duration.Count
		totalMs += s.totalMs
	}
	if snap.TotalRequestsProcessed > 0 {
		snap.AverageProcessingTimeMs = float64(totalMs) / float64(snap.TotalRequestsProcessed)
	}
	sort.Slice(snap.Generators, func(i, j int) bool {
		return snap.Generators[i].Generator < snap.Generators[j].Generator
	})
	return snap
}

// Reset discards everything recorded so far.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = make(map[string]*generatorStats)
}

// updateRunningStat updates a single running statistic using Welford's online algorithm.
func updateRunningStat(rs *RunningStat, value float64) {
	rs.Count++
	if rs.Count == 1 {
		rs.Min = value
		rs.Max = value
	} else {
		if value < rs.Min {
			rs.Min = value
		}
		if value > rs.Max {
			rs.Max = value
		}
	}

	delta := value - rs.Mean
	rs.Mean += delta / float64(rs.Count)
	delta2 := value - rs.Mean
	rs.M2 += delta * delta2
}
