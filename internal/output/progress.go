// Package output prints a running worker's stats to a plain writer for
// non-interactive use (no terminal required, unlike the dashboard package).
package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/benchworker/internal/worker"
)

// ProgressReporter prints one line of period stats per tick, overwriting
// the previous line with a carriage return.
type ProgressReporter struct {
	w        *worker.Worker
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32

	totalSent int64
}

// NewProgressReporter creates a progress reporter that polls w's period
// stats at the given interval and writes a summary line to writer.
func NewProgressReporter(w *worker.Worker, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		w:        w,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
	}
}

// Start begins printing progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			p.printOnce()
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) printOnce() {
	stats := p.w.GetPeriodStats()
	atomic.AddInt64(&p.totalSent, stats.MessagesSent)

	line := fmt.Sprintf("\rsent: %d  errors: %d  received: %d  poll_errors: %d  total_sent: %d",
		stats.MessagesSent, stats.Errors, stats.MessagesReceived, stats.PollErrors, stats.TotalMessagesSent)
	if stats.PublishDelay != nil && stats.PublishDelay.TotalCount() > 0 {
		line += fmt.Sprintf("  publish_delay_p99: %dus", stats.PublishDelay.ValueAtQuantile(99))
	}
	fmt.Fprint(p.writer, line)
}
