package index

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at        time.Time
	latencyMs int64
	sections  int
	succeeded int
}

// StatsSnapshot is a point-in-time aggregate of batch uploads.
type StatsSnapshot struct {
	Batches   int     `json:"batches"`
	Sections  int     `json:"sections"`
	Succeeded int     `json:"succeeded"`
	MinMs     int64   `json:"min_ms"`
	MaxMs     int64   `json:"max_ms"`
	AvgMs     float64 `json:"avg_ms"`
	P50Ms     float64 `json:"p50_ms"`
	P95Ms     float64 `json:"p95_ms"`
}

// UploadStats tracks recent batch uploads within a rolling window.
// It is safe for concurrent use by workers.
type UploadStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewUploadStats(maxAge time.Duration) *UploadStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &UploadStats{
		samples: make([]sample, 0, 64),
		maxAge:  maxAge,
	}
}

// Record adds one batch upload.
func (s *UploadStats) Record(latency time.Duration, sections, succeeded int) {
	ms := max(latency.Milliseconds(), 0)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		at:        now,
		latencyMs: ms,
		sections:  sections,
		succeeded: succeeded,
	})
}

func (s *UploadStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	snap := StatsSnapshot{Batches: len(s.samples)}
	latencies := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		latencies = append(latencies, sm.latencyMs)
		sum += sm.latencyMs
		snap.Sections += sm.sections
		snap.Succeeded += sm.succeeded
	}
	slices.Sort(latencies)

	snap.MinMs = latencies[0]
	snap.MaxMs = latencies[len(latencies)-1]
	snap.AvgMs = float64(sum) / float64(len(latencies))
	snap.P50Ms = percentile(latencies, 50)
	snap.P95Ms = percentile(latencies, 95)
	return snap
}

func (s *UploadStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	rank := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo := float64(sorted[lower])
	hi := float64(sorted[lower+1])
	return lo + (hi-lo)*(rank-float64(lower))
}
