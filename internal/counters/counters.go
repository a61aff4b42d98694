// Package counters implements the lock-free additive counters the worker
// uses for message/byte/error accounting. Every field is a sync/atomic
// Int64 rather than a mutex-guarded accumulator — with hundreds of
// thousands of increments per second arriving from many producer-group
// goroutines, a shared mutex would serialize the hot path exactly where
// the spec demands it stay contention-free.
package counters

import "sync/atomic"

// Counter is a 64-bit additive accumulator supporting many concurrent
// incrementers, a destructive read-and-clear (used by the per-interval
// stats poll) and a non-destructive read (used for running totals).
type Counter struct {
	value atomic.Int64
}

// Add increments the counter by delta (delta may be negative, though the
// worker never does so).
func (c *Counter) Add(delta int64) {
	c.value.Add(delta)
}

// Inc increments the counter by one.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Sum returns the current value without resetting it.
func (c *Counter) Sum() int64 {
	return c.value.Load()
}

// SumThenReset atomically reads the current value and zeroes it,
// returning the value that was read.
func (c *Counter) SumThenReset() int64 {
	return c.value.Swap(0)
}

// Set holds the nine counters the worker maintains: six are reset every
// time PeriodStats is polled, three ("total*") persist across polls and
// are cleared only on a full reset (StopAll).
type Set struct {
	MessagesSent     Counter
	BytesSent        Counter
	Errors           Counter
	PollErrors       Counter
	MessagesReceived Counter
	BytesReceived    Counter

	TotalMessagesSent     Counter
	TotalErrors           Counter
	TotalMessagesReceived Counter
}

// ResetSession zeroes the six per-interval counters, leaving the totals
// untouched. Used by StopAll, which per spec also clears totals — callers
// that want totals cleared too must do so explicitly via ResetTotals.
func (s *Set) ResetSession() {
	s.MessagesSent.SumThenReset()
	s.BytesSent.SumThenReset()
	s.Errors.SumThenReset()
	s.PollErrors.SumThenReset()
	s.MessagesReceived.SumThenReset()
	s.BytesReceived.SumThenReset()
}

// ResetTotals zeroes the three running-total counters.
func (s *Set) ResetTotals() {
	s.TotalMessagesSent.SumThenReset()
	s.TotalErrors.SumThenReset()
	s.TotalMessagesReceived.SumThenReset()
}
