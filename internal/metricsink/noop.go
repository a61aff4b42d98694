package metricsink

import "time"

// NoopSink discards everything. It is the default Sink when the worker is
// started without an OTLP endpoint configured.
type NoopSink struct{}

func (NoopSink) Scope(name string) Sink          { return NoopSink{} }
func (NoopSink) Counter(name string) SinkCounter { return noopCounter{} }
func (NoopSink) OpStats(name string) SinkOpStats { return noopOpStats{} }

type noopCounter struct{}

func (noopCounter) Inc()        {}
func (noopCounter) Add(n int64) {}

type noopOpStats struct{}

func (noopOpStats) RegisterSuccessfulEvent(value int64, unit time.Duration) {}
