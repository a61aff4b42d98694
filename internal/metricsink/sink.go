// Package metricsink defines the hierarchical metrics-sink contract the
// worker reports scope/counter/op_stats metrics through, plus a no-op
// default and an OpenTelemetry-backed implementation. The shape mirrors
// the legacy worker's StatsLogger hierarchy: a Sink can be narrowed to a
// named child scope, and within a scope a caller asks for a named
// Counter or OpStats handle. Callers may resolve the same name again on
// every event (the load engine does); OtelSink caches one instrument per
// name so that stays cheap.
package metricsink

import "time"

// SinkCounter is a monotonically increasing named counter within a scope.
type SinkCounter interface {
	Inc()
	Add(n int64)
}

// SinkOpStats records timed-event samples (message sends, end-to-end
// deliveries) within a scope.
type SinkOpStats interface {
	RegisterSuccessfulEvent(value int64, unit time.Duration)
}

// Sink is a named metrics namespace. Scope returns a child namespace
// nested under this one (e.g. "producer/group-0"); Counter and OpStats
// resolve named instruments within the current namespace.
type Sink interface {
	Scope(name string) Sink
	Counter(name string) SinkCounter
	OpStats(name string) SinkOpStats
}
