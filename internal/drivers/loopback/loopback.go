// Package loopback is an in-process driver with no network dependency:
// producers hand payloads directly to any subscribed consumers on the
// same topic. It exists to exercise the worker's load engine and
// consumer ingest path in tests and local benchmarking without a real
// broker, and supports injectable per-send delay and failure hooks so
// the scenarios in the stats-accuracy test suite (coordinated-omission
// detection, error accounting) can be reproduced deterministically. A
// hook-injected delay blocks SendAsync itself rather than deferring
// delivery to a goroutine, simulating a broker whose backpressure stalls
// the dispatch call — the condition the load engine's publish_delay
// measurement exists to surface.
package loopback

import (
	"context"
	"sync"
	"time"

	"github.com/torosent/benchworker/internal/driver"
	"github.com/torosent/benchworker/internal/metricsink"
)

const DriverName = "loopback"

func init() {
	driver.Register(DriverName, func(rawConfig []byte, sink metricsink.Sink) (driver.Driver, error) {
		return NewWithSink(sink), nil
	})
}

// Hook lets a test inject an artificial send delay and/or failure, keyed
// by the send sequence number (0-indexed, per-producer). A non-zero
// delay blocks the SendAsync call that triggered it for that long before
// the send is accepted or the injected error is returned.
type Hook func(seq int64) (delay time.Duration, err error)

// Driver is the in-process loopback implementation of driver.Driver.
type Driver struct {
	mu     sync.Mutex
	topics map[string][]*subscriber
	hook   Hook
	sink   metricsink.SinkCounter
}

type subscriber struct {
	cb driver.ConsumerCallback
}

// New returns a loopback driver with no delay/failure injection and no
// metrics sink.
func New() *Driver {
	return NewWithSink(metricsink.NoopSink{})
}

// NewWithSink returns a loopback driver that reports injected-failure
// counts through sink, scoped under "loopback".
func NewWithSink(sink metricsink.Sink) *Driver {
	if sink == nil {
		sink = metricsink.NoopSink{}
	}
	return &Driver{
		topics: map[string][]*subscriber{},
		sink:   sink.Scope(DriverName).Counter("synthetic_failures"),
	}
}

// SetHook installs a per-send hook used to inject delay or failure into
// every producer created after this call. It is not safe to call
// concurrently with sends in flight.
func (d *Driver) SetHook(hook Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hook = hook
}

func (d *Driver) TopicNamePrefix() string { return "loopback" }

func (d *Driver) CreateTopic(ctx context.Context, name string, partitions int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.topics[name]; !ok {
		d.topics[name] = nil
	}
	return nil
}

func (d *Driver) ValidateTopicExists(ctx context.Context, name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.topics[name]
	return ok, nil
}

func (d *Driver) CreateProducer(ctx context.Context, topic string) (driver.Producer, error) {
	d.mu.Lock()
	if _, ok := d.topics[topic]; !ok {
		d.topics[topic] = nil
	}
	hook := d.hook
	d.mu.Unlock()
	return &producer{driver: d, topic: topic, hook: hook}, nil
}

func (d *Driver) CreateConsumer(ctx context.Context, topic, subscription string, cb driver.ConsumerCallback) (driver.Consumer, error) {
	sub := &subscriber{cb: cb}
	d.mu.Lock()
	d.topics[topic] = append(d.topics[topic], sub)
	d.mu.Unlock()
	return &consumer{driver: d, topic: topic, sub: sub}, nil
}

func (d *Driver) Close() error { return nil }

func (d *Driver) subscribersFor(topic string) []*subscriber {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs := d.topics[topic]
	out := make([]*subscriber, len(subs))
	copy(out, subs)
	return out
}

type producer struct {
	driver *Driver
	topic  string
	hook   Hook
	seq    int64
	mu     sync.Mutex
}

func (p *producer) SendAsync(ctx context.Context, key *string, payload []byte) <-chan error {
	p.mu.Lock()
	seq := p.seq
	p.seq++
	p.mu.Unlock()

	var delay time.Duration
	var injectedErr error
	if p.hook != nil {
		delay, injectedErr = p.hook(seq)
	}

	ch := make(chan error, 1)
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			ch <- ctx.Err()
			return ch
		}
	}

	if injectedErr != nil {
		p.driver.sink.Inc()
		ch <- injectedErr
		return ch
	}
	publishTimestampMs := time.Now().UnixNano() / int64(time.Millisecond)
	for _, sub := range p.driver.subscribersFor(p.topic) {
		sub.cb.MessageReceived(payload, publishTimestampMs)
	}
	ch <- nil
	return ch
}

func (p *producer) Close() error { return nil }

type consumer struct {
	driver *Driver
	topic  string
	sub    *subscriber
}

func (c *consumer) Close() error {
	c.driver.mu.Lock()
	defer c.driver.mu.Unlock()
	subs := c.driver.topics[c.topic]
	for i, s := range subs {
		if s == c.sub {
			c.driver.topics[c.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	return nil
}
