// Package loadengine implements the producer-driving hot loop: it fans
// producers out across CPU cores, paces each group's sends against a
// shared, atomically swappable rate limiter, and records the three
// send-side latency components into the recorder and counter sets.
package loadengine

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/torosent/benchworker/internal/clock"
	"github.com/torosent/benchworker/internal/counters"
	"github.com/torosent/benchworker/internal/driver"
	"github.com/torosent/benchworker/internal/keydist"
	"github.com/torosent/benchworker/internal/metricsink"
	"github.com/torosent/benchworker/internal/ratelimiter"
	"github.com/torosent/benchworker/internal/recorder"
	"github.com/torosent/benchworker/internal/tracing"
)

// Assignment describes one start_load call's worth of producer work: the
// target aggregate publish rate, the key-generation policy, and the pool
// of payloads to send (selected uniformly at random per message).
type Assignment struct {
	PublishRate        float64
	KeyDistributorType keydist.Type
	PayloadData        [][]byte
}

// Engine drives a fixed set of producers at the configured rate until
// Stop is called. A single Engine corresponds to one start_load..stop_all
// cycle; it is not reused across cycles.
type Engine struct {
	payloads [][]byte
	keyDist  keydist.Distributor

	limiter atomic.Pointer[ratelimiter.RateLimiter]

	recorders *recorder.Set
	counters  *counters.Set
	sink      metricsink.Sink

	tracer      oteltrace.Tracer
	driverClass string

	testCompleted atomic.Bool
	wg            sync.WaitGroup
}

// New validates assignment and builds an Engine ready to drive producers
// against it. payload_data = [] is rejected here rather than deferring to
// the legacy behavior of indexing a zero-length slice at send time.
func New(assignment Assignment, recorders *recorder.Set, counterSet *counters.Set, sink metricsink.Sink) (*Engine, error) {
	if len(assignment.PayloadData) == 0 {
		return nil, fmt.Errorf("loadengine: payload_data must contain at least one payload")
	}
	if sink == nil {
		sink = metricsink.NoopSink{}
	}

	e := &Engine{
		payloads:  assignment.PayloadData,
		keyDist:   keydist.New(assignment.KeyDistributorType),
		recorders: recorders,
		counters:  counterSet,
		sink:      sink,
	}
	e.limiter.Store(ratelimiter.New(assignment.PublishRate))
	return e, nil
}

// SetTracer attaches a tracer that wraps every send in a span named after
// driverClass. Called once before Start; a nil tracer leaves sends
// untraced.
func (e *Engine) SetTracer(tracer oteltrace.Tracer, driverClass string) {
	e.tracer = tracer
	e.driverClass = driverClass
}

// AdjustRate atomically swaps the limiter reference; producer tasks pick
// up the new rate at their next Acquire call, and any sleep already in
// flight against the old limiter's timestamp runs to completion.
func (e *Engine) AdjustRate(rate float64) {
	e.limiter.Store(ratelimiter.New(rate))
}

// Start partitions producers round-robin into min(NumCPU, len(producers))
// groups and launches one task per group. Start must be called at most
// once per Engine.
func (e *Engine) Start(ctx context.Context, producers []driver.Producer) {
	groups := partition(producers, min(runtime.NumCPU(), len(producers)))
	e.wg.Add(len(groups))
	for _, group := range groups {
		group := group
		go e.runGroup(ctx, group)
	}
}

// Stop raises the cooperative cancellation flag and waits for every
// producer-group task to observe it and exit.
func (e *Engine) Stop() {
	e.testCompleted.Store(true)
	e.wg.Wait()
}

func partition(producers []driver.Producer, groups int) [][]driver.Producer {
	if groups <= 0 {
		return nil
	}
	out := make([][]driver.Producer, groups)
	for i, p := range producers {
		out[i%groups] = append(out[i%groups], p)
	}
	result := out[:0]
	for _, g := range out {
		if len(g) > 0 {
			result = append(result, g)
		}
	}
	return result
}

func (e *Engine) runGroup(ctx context.Context, group []driver.Producer) {
	defer e.wg.Done()

	taskID := ulid.Make().String()
	defer func() {
		if r := recover(); r != nil {
			warnf(taskID, "producer-group task panicked, terminating this task only: %v", r)
		}
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for !e.testCompleted.Load() {
		for _, p := range group {
			if e.testCompleted.Load() {
				return
			}
			e.sendOne(ctx, p, rng, taskID)
		}
	}
}

func (e *Engine) sendOne(ctx context.Context, p driver.Producer, rng *rand.Rand, taskID string) {
	payload := e.payloads[rng.Intn(len(e.payloads))]

	limiter := e.limiter.Load()
	intendedNs := limiter.Acquire()
	if err := clock.SleepUntil(ctx, intendedNs); err != nil {
		return
	}

	var span oteltrace.Span
	if e.tracer != nil {
		ctx, span = tracing.StartSendSpan(ctx, e.tracer, e.driverClass, "")
	}

	sendNs := clock.NowNanos()
	key := e.keyDist.Next()
	resultCh := p.SendAsync(ctx, key, payload)

	scheduleLatencyUs := (clock.NowNanos() - sendNs) / 1000
	e.recorders.Schedule.RecordValue(scheduleLatencyUs)
	e.sink.OpStats("schedule_latency").RegisterSuccessfulEvent(scheduleLatencyUs, time.Microsecond)

	payloadLen := int64(len(payload))
	go e.awaitCompletion(resultCh, sendNs, intendedNs, payloadLen, taskID, span)
}

func (e *Engine) awaitCompletion(resultCh <-chan error, sendNs, intendedNs, payloadLen int64, taskID string, span oteltrace.Span) {
	err := <-resultCh
	if span != nil {
		tracing.EndSpan(span, err)
	}
	if err != nil {
		e.counters.Errors.Inc()
		e.counters.TotalErrors.Inc()
		e.sink.Counter("send_errors").Inc()
		warnf(taskID, "send failed: %v", err)
		return
	}

	completionNs := clock.NowNanos()
	e.counters.MessagesSent.Inc()
	e.counters.BytesSent.Add(payloadLen)
	e.counters.TotalMessagesSent.Inc()
	e.sink.Counter("messages_sent").Inc()

	publishLatencyUs := (completionNs - sendNs) / 1000
	publishDelayUs := (sendNs - intendedNs) / 1000
	e.recorders.Publish.RecordValue(publishLatencyUs)
	e.recorders.PublishDelay.RecordValue(publishDelayUs)
	e.sink.OpStats("publish_latency").RegisterSuccessfulEvent(publishLatencyUs, time.Microsecond)
	e.sink.OpStats("publish_delay").RegisterSuccessfulEvent(publishDelayUs, time.Microsecond)
}

func warnf(taskID, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[loadengine task=%s] "+format+"\n", append([]any{taskID}, args...)...)
}
