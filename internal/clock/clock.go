// Package clock provides the monotonic nanosecond clock shared by the rate
// limiter and the producer load engine. Every "now" and "intended send
// time" in the hot path is expressed in this clock's units so that
// subtractions between them are never skewed by wall-clock adjustments.
package clock

import (
	"context"
	"runtime"
	"time"
)

// epoch anchors the monotonic clock. time.Since retains the monotonic
// reading embedded in epoch, so NowNanos is immune to wall-clock changes.
var epoch = time.Now()

// NowNanos returns nanoseconds elapsed since process start, monotonic.
func NowNanos() int64 {
	return time.Since(epoch).Nanoseconds()
}

// spinThreshold is the remaining duration below which SleepUntil stops
// issuing coarse time.Sleep calls and busy-spins with Gosched for
// sub-millisecond precision.
const spinThreshold = 2 * time.Millisecond

// pollInterval bounds how long a single coarse sleep can run before
// SleepUntil rechecks ctx — this keeps a low-rate shutdown from hanging
// inside a single long sleep, per the deadline being driven by a
// cooperative cancellation flag rather than a signal.
const pollInterval = 5 * time.Millisecond

// SleepUntil blocks until NowNanos() >= targetNs or ctx is cancelled,
// whichever comes first. It never returns early for any reason other than
// ctx cancellation: ordinary goroutine preemption and GC pauses do not
// count as "interrupts" the way Java's InterruptedException does, so this
// is the only re-check point callers need.
func SleepUntil(ctx context.Context, targetNs int64) error {
	for {
		remaining := targetNs - NowNanos()
		if remaining <= 0 {
			return nil
		}
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		switch {
		case remaining > int64(pollInterval):
			time.Sleep(pollInterval)
		case time.Duration(remaining) > spinThreshold:
			time.Sleep(time.Duration(remaining) - spinThreshold)
		default:
			runtime.Gosched()
		}
	}
}
