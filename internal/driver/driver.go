// Package driver defines the messaging-system plugin contract the worker
// drives load through, and a string-keyed registry for resolving a driver
// implementation by name at runtime — the same shape as database/sql's
// driver registration, used in place of the legacy worker's dynamic class
// loading from a classpath.
package driver

import (
	"context"

	"github.com/torosent/benchworker/internal/metricsink"
)

// ConsumerCallback receives messages off a Consumer. The three
// MessageReceived* forms mirror the asymmetric call sites the legacy
// worker uses: callers that already have a decoded publish timestamp use
// MessageReceived or MessageReceivedView, callers that have already
// computed an end-to-end latency in nanoseconds use
// MessageReceivedLatency directly. A non-positive latency passed to
// MessageReceivedLatency is treated as a poll error and must call Error
// instead of recording a sample; the other two forms instead drop the
// latency sample silently and still count the message as received.
type ConsumerCallback interface {
	MessageReceived(payload []byte, publishTimestampMs int64)
	MessageReceivedView(payload []byte, publishTimestampMs int64)
	MessageReceivedLatency(payloadSize int, e2eLatencyNs int64)
	Error()
}

// Producer sends messages to a single topic. SendAsync must never block on
// completion of the network write — it hands back a channel the load
// engine waits on later, the same non-blocking contract the legacy
// worker's CompletableFuture provides.
type Producer interface {
	SendAsync(ctx context.Context, key *string, payload []byte) <-chan error
	Close() error
}

// Consumer subscribes to a topic and delivers messages to a
// ConsumerCallback supplied at creation time. It exposes no further
// surface; delivery is purely push-based.
type Consumer interface {
	Close() error
}

// Driver is the plugin contract a messaging system implements to be
// driven by the worker: topic management plus producer/consumer
// construction.
type Driver interface {
	// TopicNamePrefix returns the prefix the worker should use when
	// generating topic names for this driver.
	TopicNamePrefix() string
	CreateTopic(ctx context.Context, name string, partitions int) error
	ValidateTopicExists(ctx context.Context, name string) (bool, error)
	CreateProducer(ctx context.Context, topic string) (Producer, error)
	CreateConsumer(ctx context.Context, topic, subscription string, cb ConsumerCallback) (Consumer, error)
	Close() error
}

// Factory constructs a Driver from the raw bytes of the driver config
// file (the whole file, driverClass included, unmodified) plus the
// worker's metrics sink, so the driver can
// report connection- and protocol-level events through the same scope
// hierarchy the worker reports everything else through.
type Factory func(rawConfig []byte, sink metricsink.Sink) (Driver, error)
