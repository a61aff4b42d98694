// Package threshold evaluates pass/fail performance assertions against a
// worker's cumulative run stats, for a CLI's --assert flag.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "publish_delay", "end_to_end_latency", "errors"
	Aggregate string  // e.g., "p50", "p99", "avg", "max", "rate", "count"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Snapshot is the subset of a worker's cumulative state a threshold can be
// evaluated against: the four whole-run latency histograms (values in
// microseconds, per the recorder package's unit) plus the running totals.
type Snapshot struct {
	Publish      *hdrhistogram.Histogram
	Schedule     *hdrhistogram.Histogram
	PublishDelay *hdrhistogram.Histogram
	EndToEnd     *hdrhistogram.Histogram

	MessagesSent     int64
	Errors           int64
	MessagesReceived int64
	ElapsedSeconds   float64
}

// Evaluator evaluates thresholds against a run's final snapshot.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the provided snapshot.
func (e *Evaluator) Evaluate(snap Snapshot) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		result := e.evaluateOne(t, snap)
		results = append(results, result)
	}
	return results
}

func (e *Evaluator) evaluateOne(t Threshold, snap Snapshot) Result {
	actual, err := extractMetricValue(t, snap)
	if err != nil {
		return Result{
			Threshold: t,
			Actual:    0,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "PASS"
	if !pass {
		status = "FAIL"
	}

	message := fmt.Sprintf("[%s] %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "publish_delay:p99 < 500000"            (microseconds)
// - "end_to_end_latency:p95 < 2000000"       (microseconds)
// - "publish_latency:avg < 50000"            (microseconds)
// - "errors:rate < 0.01"                     (failure rate as decimal)
// - "errors:count < 10"
// - "messages_sent:rate > 10000"             (messages per second)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	pattern := regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)
	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'publish_delay:p99 < 500000')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	if !isValidMetric(metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: publish_latency, schedule_latency, publish_delay, end_to_end_latency, errors, messages_sent, messages_received)", metric)
	}

	if !isValidAggregate(metric, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for metric %q", aggregate, metric)
	}

	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}

	return result, nil
}

var latencyMetrics = map[string]bool{
	"publish_latency":    true,
	"schedule_latency":   true,
	"publish_delay":      true,
	"end_to_end_latency": true,
}

var counterMetrics = map[string]bool{
	"errors":            true,
	"messages_sent":     true,
	"messages_received": true,
}

func isValidMetric(metric string) bool {
	return latencyMetrics[metric] || counterMetrics[metric]
}

func isValidAggregate(metric, aggregate string) bool {
	if latencyMetrics[metric] {
		switch aggregate {
		case "p50", "p90", "p95", "p99", "p999", "avg", "min", "max":
			return true
		}
		return false
	}
	switch aggregate {
	case "count", "rate":
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, snap Snapshot) (float64, error) {
	if latencyMetrics[t.Metric] {
		return extractLatencyAggregate(t.Aggregate, histogramFor(t.Metric, snap))
	}
	return extractCounterAggregate(t.Metric, t.Aggregate, snap)
}

func histogramFor(metric string, snap Snapshot) *hdrhistogram.Histogram {
	switch metric {
	case "publish_latency":
		return snap.Publish
	case "schedule_latency":
		return snap.Schedule
	case "publish_delay":
		return snap.PublishDelay
	case "end_to_end_latency":
		return snap.EndToEnd
	default:
		return nil
	}
}

func extractLatencyAggregate(aggregate string, h *hdrhistogram.Histogram) (float64, error) {
	switch aggregate {
	case "p50":
		return float64(h.ValueAtQuantile(50)), nil
	case "p90":
		return float64(h.ValueAtQuantile(90)), nil
	case "p95":
		return float64(h.ValueAtQuantile(95)), nil
	case "p99":
		return float64(h.ValueAtQuantile(99)), nil
	case "p999":
		return float64(h.ValueAtQuantile(99.9)), nil
	case "avg", "mean":
		return h.Mean(), nil
	case "min":
		return float64(h.Min()), nil
	case "max":
		return float64(h.Max()), nil
	default:
		return 0, fmt.Errorf("unsupported latency aggregate %q", aggregate)
	}
}

func extractCounterAggregate(metric, aggregate string, snap Snapshot) (float64, error) {
	var count int64
	switch metric {
	case "errors":
		count = snap.Errors
	case "messages_sent":
		count = snap.MessagesSent
	case "messages_received":
		count = snap.MessagesReceived
	default:
		return 0, fmt.Errorf("unknown metric: %s", metric)
	}

	switch aggregate {
	case "count":
		return float64(count), nil
	case "rate":
		if metric == "errors" {
			if snap.MessagesSent == 0 {
				return 0, nil
			}
			return float64(count) / float64(snap.MessagesSent), nil
		}
		if snap.ElapsedSeconds <= 0 {
			return 0, nil
		}
		return float64(count) / snap.ElapsedSeconds, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for %s", aggregate, metric)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
