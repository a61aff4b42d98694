package threshold

import (
	"testing"

	"github.com/HdrHistogram/hdrhistogram-go"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError bool
	}{
		{
			name:  "valid p99 publish delay threshold",
			input: "publish_delay:p99 < 500000",
			want: Threshold{
				Metric:    "publish_delay",
				Aggregate: "p99",
				Operator:  "<",
				Value:     500000,
				Raw:       "publish_delay:p99 < 500000",
			},
		},
		{
			name:  "valid error rate threshold",
			input: "errors:rate < 0.01",
			want: Threshold{
				Metric:    "errors",
				Aggregate: "rate",
				Operator:  "<",
				Value:     0.01,
				Raw:       "errors:rate < 0.01",
			},
		},
		{
			name:  "valid p999 end to end latency with <=",
			input: "end_to_end_latency:p999 <= 2000000",
			want: Threshold{
				Metric:    "end_to_end_latency",
				Aggregate: "p999",
				Operator:  "<=",
				Value:     2000000,
				Raw:       "end_to_end_latency:p999 <= 2000000",
			},
		},
		{
			name:  "valid messages sent rate with >",
			input: "messages_sent:rate > 10000",
			want: Threshold{
				Metric:    "messages_sent",
				Aggregate: "rate",
				Operator:  ">",
				Value:     10000,
				Raw:       "messages_sent:rate > 10000",
			},
		},
		{name: "empty string", input: "", wantError: true},
		{name: "invalid format - missing operator", input: "publish_delay:p99 500000", wantError: true},
		{name: "invalid metric", input: "invalid_metric:p99 < 500", wantError: true},
		{name: "invalid aggregate for latency metric", input: "publish_delay:rate < 500", wantError: true},
		{name: "invalid aggregate for counter metric", input: "errors:p99 < 500", wantError: true},
		{name: "invalid operator", input: "publish_delay:p99 << 500", wantError: true},
		{name: "invalid value - not a number", input: "publish_delay:p99 < abc", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("Parse() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if !tt.wantError && got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseMultiple(t *testing.T) {
	tests := []struct {
		name      string
		input     []string
		wantCount int
		wantError bool
	}{
		{
			name: "multiple valid thresholds",
			input: []string{
				"publish_delay:p99 < 500000",
				"errors:rate < 0.01",
				"messages_sent:rate > 10000",
			},
			wantCount: 3,
		},
		{name: "empty slice", input: []string{}, wantCount: 0},
		{
			name:      "one valid, one invalid",
			input:     []string{"publish_delay:p99 < 500000", "invalid threshold"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMultiple(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("ParseMultiple() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if !tt.wantError && len(got) != tt.wantCount {
				t.Errorf("ParseMultiple() returned %d thresholds, want %d", len(got), tt.wantCount)
			}
		})
	}
}

func sampleSnapshot() Snapshot {
	publishDelay := hdrhistogram.New(1, 3600000000, 3)
	for _, v := range []int64{100, 200, 300, 400, 500000} {
		publishDelay.RecordValue(v)
	}

	endToEnd := hdrhistogram.New(1, 3600000000, 3)
	for _, v := range []int64{1000, 2000, 3000} {
		endToEnd.RecordValue(v)
	}

	return Snapshot{
		Publish:          hdrhistogram.New(1, 3600000000, 3),
		Schedule:         hdrhistogram.New(1, 3600000000, 3),
		PublishDelay:     publishDelay,
		EndToEnd:         endToEnd,
		MessagesSent:     1000,
		Errors:           20,
		MessagesReceived: 950,
		ElapsedSeconds:   10,
	}
}

func TestEvaluator(t *testing.T) {
	snap := sampleSnapshot()

	tests := []struct {
		name       string
		thresholds []string
		wantPass   []bool
	}{
		{
			name: "all thresholds pass",
			thresholds: []string{
				"publish_delay:max < 600000",
				"errors:rate < 0.05",
				"messages_sent:rate > 50",
			},
			wantPass: []bool{true, true, true},
		},
		{
			name: "some thresholds fail",
			thresholds: []string{
				"publish_delay:max < 100",
				"errors:rate < 0.01",
				"messages_sent:rate > 50",
			},
			wantPass: []bool{false, false, true},
		},
		{
			name: "error and message counts",
			thresholds: []string{
				"errors:count < 50",
				"messages_received:count > 900",
			},
			wantPass: []bool{true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thresholds, err := ParseMultiple(tt.thresholds)
			if err != nil {
				t.Fatalf("ParseMultiple() error = %v", err)
			}

			evaluator := NewEvaluator(thresholds)
			results := evaluator.Evaluate(snap)

			if len(results) != len(tt.wantPass) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.wantPass))
			}
			for i, result := range results {
				if result.Pass != tt.wantPass[i] {
					t.Errorf("threshold[%d] %q: got pass=%v, want %v (actual=%.2f)",
						i, result.Threshold.Raw, result.Pass, tt.wantPass[i], result.Actual)
				}
			}
		})
	}
}

func TestEvaluateEmptyHistogramReadsAsZero(t *testing.T) {
	snap := sampleSnapshot()
	thresholds, err := ParseMultiple([]string{"schedule_latency:max > 0"})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}

	results := NewEvaluator(thresholds).Evaluate(snap)
	if len(results) != 1 || results[0].Pass {
		t.Fatalf("expected a failing result for an empty histogram, got %+v", results)
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name     string
		actual   float64
		operator string
		expected float64
		want     bool
	}{
		{"less than true", 50, "<", 100, true},
		{"less than false", 100, "<", 50, false},
		{"less than or equal true", 50, "<=", 100, true},
		{"less than or equal equal", 100, "<=", 100, true},
		{"greater than true", 150, ">", 100, true},
		{"greater than or equal equal", 100, ">=", 100, true},
		{"equal true", 100, "==", 100, true},
		{"equal false", 100, "==", 101, false},
		{"equal with floating point precision", 100.0000000001, "==", 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compareValues(tt.actual, tt.operator, tt.expected)
			if got != tt.want {
				t.Errorf("compareValues(%.2f, %s, %.2f) = %v, want %v",
					tt.actual, tt.operator, tt.expected, got, tt.want)
			}
		})
	}
}
