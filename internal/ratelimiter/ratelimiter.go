// Package ratelimiter implements a coordinated-omission-aware open-loop
// pacer: Acquire never blocks, it only hands back the nanosecond timestamp
// at which the caller's send should have begun. Callers that reached
// Acquire late still get a timestamp in the past, so the gap between that
// timestamp and when the send actually starts is recorded as real delay
// instead of silently vanishing.
package ratelimiter

import (
	"sync/atomic"

	"github.com/torosent/benchworker/internal/clock"
)

// minRate is the floor enforced on any configured rate; values below this
// are clamped rather than rejected, matching the legacy worker's behavior
// of substituting 1.0 for non-positive or sub-1 rates.
const minRate = 1.0

// RateLimiter hands out evenly spaced "intended send time" timestamps.
// It is safe for concurrent use: Acquire is a single atomic add.
//
// This is deliberately not a token-bucket wrapper around
// golang.org/x/time/rate, even though that is the teacher's own
// rate-limiting dependency (see DESIGN.md): a token bucket's Reserve()
// call cannot express "how far behind schedule is this caller" across an
// idle gap. Tokens accumulate up to the bucket's burst while nothing
// calls Reserve, so the next call after any gap of at least one interval
// always gets a zero delay — the bucket has no way to report a call as
// "overdue" once it's been granted a token, which is exactly the
// information this package exists to preserve. A monotonically
// advancing counter never forgets how many intervals have elapsed since
// construction, so a caller that was blocked elsewhere for 500ms still
// gets back an intended timestamp 500ms in the past instead of "now".
type RateLimiter struct {
	intervalNanos  int64
	nextIntendedNs atomic.Int64
}

// New constructs a RateLimiter for the given messages/sec rate. Rates below
// 1.0 are clamped up to 1.0.
func New(rate float64) *RateLimiter {
	rate = clampRate(rate)
	rl := &RateLimiter{
		intervalNanos: int64(float64(1e9) / rate),
	}
	rl.nextIntendedNs.Store(clock.NowNanos())
	return rl
}

func clampRate(rate float64) float64 {
	if rate < minRate {
		return minRate
	}
	return rate
}

// Acquire returns the nanosecond timestamp at which this call's send was
// intended to begin, and advances the internal cursor by one interval.
// It never blocks; the caller is responsible for sleeping until the
// returned timestamp via clock.SleepUntil.
func (r *RateLimiter) Acquire() int64 {
	interval := r.intervalNanos
	next := r.nextIntendedNs.Add(interval)
	return next - interval
}

// Rate reports the configured rate in messages/sec.
func (r *RateLimiter) Rate() float64 {
	if r.intervalNanos <= 0 {
		return 0
	}
	return float64(1e9) / float64(r.intervalNanos)
}
