// Package worker implements the central lifecycle state machine and
// stats aggregation surface a coordinator drives: initialize the driver,
// create topics/producers/consumers, run a load, and tear everything
// down. It owns the recorder and counter sets shared between the
// producer load engine and the consumer ingest path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/torosent/benchworker/internal/counters"
	"github.com/torosent/benchworker/internal/driver"
	"github.com/torosent/benchworker/internal/loadengine"
	"github.com/torosent/benchworker/internal/metricsink"
	"github.com/torosent/benchworker/internal/recorder"
)

// stopDrainDelay is how long StopAll waits after raising test_completed
// before closing producers, consumers and the driver, giving in-flight
// sends a chance to land rather than racing a Close call.
const stopDrainDelay = 100 * time.Millisecond

// Worker is the singleton coordinating a single benchmark run. The zero
// value is not usable; construct with New.
type Worker struct {
	mu    sync.Mutex
	state State

	drv         driver.Driver
	driverClass string
	producers   []driver.Producer
	consumers   []driver.Consumer

	engine *loadengine.Engine
	cancel context.CancelFunc

	paused atomic.Bool

	recorders *recorder.Set
	counters  *counters.Set
	sink      metricsink.Sink
	tracer    oteltrace.Tracer
}

// New constructs an uninitialized Worker reporting through sink. A nil
// sink is replaced with metricsink.NoopSink.
func New(sink metricsink.Sink) *Worker {
	if sink == nil {
		sink = metricsink.NoopSink{}
	}
	return &Worker{
		state:     Uninitialized,
		recorders: recorder.NewSet(),
		counters:  &counters.Set{},
		sink:      sink,
	}
}

// SetTracer attaches a tracer that wraps every send the load engine makes
// in a span. Call before StartLoad; a nil tracer leaves sends untraced.
func (w *Worker) SetTracer(tracer oteltrace.Tracer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tracer = tracer
}

// State returns the worker's current lifecycle stage.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// InitializeDriver resolves driverClass against the driver registry and
// constructs it from rawConfig. It fails if a driver is already
// initialized; the worker must pass through StopAll before it can be
// reinitialized.
func (w *Worker) InitializeDriver(driverClass string, rawConfig []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Uninitialized {
		return fmt.Errorf("worker: initialize_driver rejected: driver already initialized (state=%s)", w.state)
	}
	d, err := driver.New(driverClass, rawConfig, w.sink)
	if err != nil {
		return fmt.Errorf("worker: initialize_driver: %w", err)
	}
	w.drv = d
	w.driverClass = driverClass
	w.state = Ready
	return nil
}

// CreateProducers creates one producer per topic, in the supplied order.
func (w *Worker) CreateProducers(ctx context.Context, topics []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.drv == nil {
		return errors.New("worker: create_producers requires an initialized driver")
	}
	if w.state != Ready && w.state != Loaded {
		return fmt.Errorf("worker: create_producers invalid in state %s", w.state)
	}

	producers := make([]driver.Producer, 0, len(topics))
	for _, topic := range topics {
		p, err := w.drv.CreateProducer(ctx, topic)
		if err != nil {
			return fmt.Errorf("worker: create producer for topic %q: %w", topic, err)
		}
		producers = append(producers, p)
	}
	w.producers = producers
	w.state = Loaded
	return nil
}

// CreateConsumers creates one consumer per (topic, subscription) pair,
// each delivering into this worker's consumer ingest path.
func (w *Worker) CreateConsumers(ctx context.Context, assignment ConsumerAssignment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.drv == nil {
		return errors.New("worker: create_consumers requires an initialized driver")
	}
	if w.state != Ready && w.state != Loaded {
		return fmt.Errorf("worker: create_consumers invalid in state %s", w.state)
	}

	cb := &callback{w: w}
	consumers := make([]driver.Consumer, 0, len(assignment))
	for _, entry := range assignment {
		c, err := w.drv.CreateConsumer(ctx, entry.Topic, entry.Subscription, cb)
		if err != nil {
			return fmt.Errorf("worker: create consumer for topic %q: %w", entry.Topic, err)
		}
		consumers = append(consumers, c)
	}
	w.consumers = consumers
	w.state = Loaded
	return nil
}

// ProbeProducers sends one fixed 24-byte payload with key "key" through
// every producer to warm up connections and verify reachability. Only
// total_messages_sent is incremented, and only on success.
func (w *Worker) ProbeProducers(ctx context.Context) error {
	w.mu.Lock()
	producers := w.producers
	w.mu.Unlock()

	if len(producers) == 0 {
		return errors.New("worker: probe_producers requires producers to be created first")
	}

	key := "key"
	payload := make([]byte, 24)
	for _, p := range producers {
		resultCh := p.SendAsync(ctx, &key, payload)
		select {
		case err := <-resultCh:
			if err != nil {
				return fmt.Errorf("worker: probe_producers: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
		w.counters.TotalMessagesSent.Inc()
	}
	return nil
}

// StartLoad constructs the producer load engine from assignment and
// starts it driving this worker's producers.
func (w *Worker) StartLoad(ctx context.Context, assignment loadengine.Assignment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Loaded {
		return fmt.Errorf("worker: start_load invalid in state %s", w.state)
	}

	engine, err := loadengine.New(assignment, w.recorders, w.counters, w.sink)
	if err != nil {
		return fmt.Errorf("worker: start_load: %w", err)
	}

	if w.tracer != nil {
		engine.SetTracer(w.tracer, w.driverClass)
	}

	engineCtx, cancel := context.WithCancel(ctx)
	engine.Start(engineCtx, w.producers)

	w.engine = engine
	w.cancel = cancel
	w.state = Running
	return nil
}

// AdjustPublishRate atomically swaps the running engine's rate limiter
// reference. Rates below 1.0 msg/s are clamped to 1.0 by the rate
// limiter itself.
func (w *Worker) AdjustPublishRate(rate float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Running || w.engine == nil {
		return fmt.Errorf("worker: adjust_publish_rate invalid in state %s", w.state)
	}
	w.engine.AdjustRate(rate)
	return nil
}

// PauseConsumers raises the pause gate observed by the consumer ingest
// path; delivery continues to apply back-pressure against the driver
// until ResumeConsumers is called.
func (w *Worker) PauseConsumers() error {
	w.mu.Lock()
	state := w.state
	w.mu.Unlock()
	if state != Running {
		return fmt.Errorf("worker: pause_consumers invalid in state %s", state)
	}
	w.paused.Store(true)
	return nil
}

// ResumeConsumers clears the pause gate.
func (w *Worker) ResumeConsumers() error {
	w.mu.Lock()
	state := w.state
	w.mu.Unlock()
	if state != Running {
		return fmt.Errorf("worker: resume_consumers invalid in state %s", state)
	}
	w.paused.Store(false)
	return nil
}

// ResetStats clears every recorder (interval and cumulative) and the six
// session counters. The three total_* counters are deliberately left
// untouched — see DESIGN.md's note on this asymmetry with StopAll.
func (w *Worker) ResetStats() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recorders.Reset()
	w.counters.ResetSession()
}

// StopAll raises test_completed, clears the pause gate, resets every
// recorder and counter (including totals), waits briefly for in-flight
// sends to drain, then closes producers, consumers and the driver in
// that order. It is idempotent: calling it again on an already-stopped
// worker is a no-op.
func (w *Worker) StopAll() error {
	w.mu.Lock()
	if w.state == Uninitialized {
		w.mu.Unlock()
		return nil
	}
	w.state = Stopping
	engine := w.engine
	cancel := w.cancel
	producers := w.producers
	consumers := w.consumers
	drv := w.drv
	w.mu.Unlock()

	w.paused.Store(false)

	if engine != nil {
		engine.Stop()
	}
	if cancel != nil {
		cancel()
	}

	w.recorders.Reset()
	w.counters.ResetSession()
	w.counters.ResetTotals()

	time.Sleep(stopDrainDelay)

	var firstErr error
	for _, p := range producers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("worker: close producer: %w", err)
		}
	}
	for _, c := range consumers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("worker: close consumer: %w", err)
		}
	}
	if drv != nil {
		if err := drv.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("worker: close driver: %w", err)
		}
	}

	w.mu.Lock()
	w.drv = nil
	w.driverClass = ""
	w.producers = nil
	w.consumers = nil
	w.engine = nil
	w.cancel = nil
	w.state = Uninitialized
	w.mu.Unlock()

	return firstErr
}

// Close tears the worker down if it hasn't already been stopped. It is
// the shutdown hook a CLI registers against process exit.
func (w *Worker) Close() error {
	return w.StopAll()
}
