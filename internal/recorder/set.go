package recorder

import "time"

// Microsecond value-range ceilings for the two histogram families the
// worker tracks, matching the legacy worker's Recorder constructions
// exactly: 60s for anything measured around a single send, 12h for
// end-to-end latency which can span a slow, paused consumer.
const (
	sendMaxMicros = int64(60 * time.Second / time.Microsecond)
	e2eMaxMicros  = int64(12 * time.Hour / time.Microsecond)
	sigFigs       = 5
)

// Pair bundles an interval recorder (cleared on every PeriodStats poll)
// with a cumulative recorder (cleared only by an explicit Reset) for a
// single latency metric. RecordValue feeds both from the same call site,
// mirroring the legacy worker recording into both histograms side by
// side wherever a latency is observed.
type Pair struct {
	Interval   *Recorder
	Cumulative *Recorder
}

func newPair(maxValue int64) Pair {
	return Pair{
		Interval:   New(maxValue, sigFigs),
		Cumulative: New(maxValue, sigFigs),
	}
}

// RecordValue records v into both the interval and cumulative recorders.
func (p Pair) RecordValue(v int64) {
	p.Interval.RecordValue(v)
	p.Cumulative.RecordValue(v)
}

// Reset clears both recorders.
func (p Pair) Reset() {
	p.Interval.Reset()
	p.Cumulative.Reset()
}

// Set holds the four latency metric pairs the worker tracks: publish,
// schedule, publish-delay (all bounded at 60s) and end-to-end (bounded at
// 12h to tolerate a paused or slow consumer).
type Set struct {
	Publish      Pair
	Schedule     Pair
	PublishDelay Pair
	EndToEnd     Pair
}

// NewSet constructs a fresh Set with empty recorders.
func NewSet() *Set {
	return &Set{
		Publish:      newPair(sendMaxMicros),
		Schedule:     newPair(sendMaxMicros),
		PublishDelay: newPair(sendMaxMicros),
		EndToEnd:     newPair(e2eMaxMicros),
	}
}

// Reset clears every recorder in the set — both interval and cumulative.
// Both Worker.ResetStats and Worker.StopAll call this, and both also reset
// the session counters; they differ only in whether they also reset the
// three total counters (StopAll does, ResetStats does not).
func (s *Set) Reset() {
	s.Publish.Reset()
	s.Schedule.Reset()
	s.PublishDelay.Reset()
	s.EndToEnd.Reset()
}
