package metricsink

import (
	"context"
	"sync"
	"time"

	otelmetric "go.opentelemetry.io/otel/metric"
)

// OtelSink reports through an OpenTelemetry Meter, caching one instrument
// per scoped name so repeated Counter/OpStats calls on a hot path don't
// re-create instruments on every event.
type OtelSink struct {
	meter otelmetric.Meter
	name  string

	mu         *sync.Mutex
	counters   map[string]otelmetric.Int64Counter
	histograms map[string]otelmetric.Float64Histogram
}

// NewOtelSink returns the root Sink for meter. name is the root scope
// prefix applied to every instrument name registered under it.
func NewOtelSink(meter otelmetric.Meter, name string) *OtelSink {
	return &OtelSink{
		meter:      meter,
		name:       name,
		mu:         &sync.Mutex{},
		counters:   map[string]otelmetric.Int64Counter{},
		histograms: map[string]otelmetric.Float64Histogram{},
	}
}

func (s *OtelSink) Scope(name string) Sink {
	return &OtelSink{
		meter:      s.meter,
		name:       s.name + "." + name,
		mu:         s.mu,
		counters:   s.counters,
		histograms: s.histograms,
	}
}

func (s *OtelSink) Counter(name string) SinkCounter {
	full := s.name + "." + name
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[full]
	if !ok {
		var err error
		c, err = s.meter.Int64Counter(full)
		if err != nil {
			return noopCounter{}
		}
		s.counters[full] = c
	}
	return otelCounter{ctx: context.Background(), counter: c}
}

func (s *OtelSink) OpStats(name string) SinkOpStats {
	full := s.name + "." + name
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histograms[full]
	if !ok {
		var err error
		h, err = s.meter.Float64Histogram(full)
		if err != nil {
			return noopOpStats{}
		}
		s.histograms[full] = h
	}
	return otelOpStats{ctx: context.Background(), histogram: h}
}

type otelCounter struct {
	ctx     context.Context
	counter otelmetric.Int64Counter
}

func (c otelCounter) Inc()        { c.counter.Add(c.ctx, 1) }
func (c otelCounter) Add(n int64) { c.counter.Add(c.ctx, n) }

type otelOpStats struct {
	ctx       context.Context
	histogram otelmetric.Float64Histogram
}

// RegisterSuccessfulEvent records value (converted to unit, following the
// legacy worker's StatsLogger.registerSuccessfulEvent contract of a value
// plus its TimeUnit) as a float64 in seconds, OpenTelemetry's conventional
// unit for duration histograms.
func (o otelOpStats) RegisterSuccessfulEvent(value int64, unit time.Duration) {
	seconds := time.Duration(value) * unit
	o.histogram.Record(o.ctx, seconds.Seconds())
}
