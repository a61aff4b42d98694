// Package recorder provides concurrent-safe HDR histogram accumulators
// with the interval/cumulative snapshot semantics the worker's stats API
// depends on: an interval recorder's snapshot atomically swaps in a fresh
// live histogram and hands back the one just retired, while a cumulative
// recorder's snapshot copies the live histogram without disturbing it.
package recorder

import (
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Recorder wraps a live *hdrhistogram.Histogram behind a mutex so RecordValue
// can be called from many producer-group goroutines at once while a
// snapshot is taken from a different goroutine (the stats-polling path).
type Recorder struct {
	maxValue int64
	sigFigs  int

	mu   sync.Mutex
	live *hdrhistogram.Histogram
}

// New creates a Recorder tracking values in [1, maxValue] at the given
// number of significant decimal digits.
func New(maxValue int64, sigFigs int) *Recorder {
	return &Recorder{
		maxValue: maxValue,
		sigFigs:  sigFigs,
		live:     hdrhistogram.New(1, maxValue, sigFigs),
	}
}

// RecordValue records v, clamping to the trackable range [1, maxValue]
// instead of failing: a non-positive value is recorded as 1 and an
// over-range value as maxValue. An over-range latency is still informative
// as "at least the max", and dropping the sample entirely would understate
// tail latency more than clamping does.
func (r *Recorder) RecordValue(v int64) {
	if v < 1 {
		v = 1
	}
	if v > r.maxValue {
		v = r.maxValue
	}
	r.mu.Lock()
	_ = r.live.RecordValue(v)
	r.mu.Unlock()
}

// SnapshotAndReset swaps the live histogram out for a fresh empty one and
// returns the histogram that was live up to this call — the values
// recorded strictly between the previous snapshot and this one, with no
// gap or overlap against the next snapshot's contents.
func (r *Recorder) SnapshotAndReset() *hdrhistogram.Histogram {
	fresh := hdrhistogram.New(1, r.maxValue, r.sigFigs)
	r.mu.Lock()
	prev := r.live
	r.live = fresh
	r.mu.Unlock()
	return prev
}

// Snapshot returns an immutable copy of the live histogram without
// clearing it, for cumulative (whole-run) reporting.
func (r *Recorder) Snapshot() *hdrhistogram.Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := hdrhistogram.New(1, r.maxValue, r.sigFigs)
	copy.Merge(r.live)
	return copy
}

// Reset clears the live histogram in place, discarding all recorded
// values without returning them.
func (r *Recorder) Reset() {
	fresh := hdrhistogram.New(1, r.maxValue, r.sigFigs)
	r.mu.Lock()
	r.live = fresh
	r.mu.Unlock()
}
