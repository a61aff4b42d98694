package worker

import "github.com/HdrHistogram/hdrhistogram-go"

// PeriodStats is a read-and-reset snapshot of the six session counters,
// a read-only view of the three running totals, and the four interval
// latency histograms since the previous call to GetPeriodStats.
type PeriodStats struct {
	MessagesSent     int64
	BytesSent        int64
	Errors           int64
	PollErrors       int64
	MessagesReceived int64
	BytesReceived    int64

	TotalMessagesSent     int64
	TotalErrors           int64
	TotalMessagesReceived int64

	Publish      *hdrhistogram.Histogram
	Schedule     *hdrhistogram.Histogram
	PublishDelay *hdrhistogram.Histogram
	EndToEnd     *hdrhistogram.Histogram
}

// CumulativeLatencies is a non-destructive snapshot of the four
// whole-run latency histograms.
type CumulativeLatencies struct {
	Publish      *hdrhistogram.Histogram
	Schedule     *hdrhistogram.Histogram
	PublishDelay *hdrhistogram.Histogram
	EndToEnd     *hdrhistogram.Histogram
}

// CountersStats is the coordinator's running-total view, independent of
// the per-interval polling cadence.
type CountersStats struct {
	MessagesSent     int64
	MessagesReceived int64
	Errors           int64
}

// GetPeriodStats reads-and-resets the six session counters, reads (but
// does not reset) the three totals, and snapshots the four interval
// recorders, which clears them as a side effect. Counter resets happen
// before the recorder snapshots; a value recorded in the narrow window
// between the two may land in this interval's histogram while its
// byte/message count is attributed to the next one. This is accepted
// fuzz of at most a few records per snapshot, not a bug.
func (w *Worker) GetPeriodStats() PeriodStats {
	stats := PeriodStats{
		MessagesSent:     w.counters.MessagesSent.SumThenReset(),
		BytesSent:        w.counters.BytesSent.SumThenReset(),
		Errors:           w.counters.Errors.SumThenReset(),
		PollErrors:       w.counters.PollErrors.SumThenReset(),
		MessagesReceived: w.counters.MessagesReceived.SumThenReset(),
		BytesReceived:    w.counters.BytesReceived.SumThenReset(),

		TotalMessagesSent:     w.counters.TotalMessagesSent.Sum(),
		TotalErrors:           w.counters.TotalErrors.Sum(),
		TotalMessagesReceived: w.counters.TotalMessagesReceived.Sum(),
	}

	stats.Publish = w.recorders.Publish.Interval.SnapshotAndReset()
	stats.Schedule = w.recorders.Schedule.Interval.SnapshotAndReset()
	stats.PublishDelay = w.recorders.PublishDelay.Interval.SnapshotAndReset()
	stats.EndToEnd = w.recorders.EndToEnd.Interval.SnapshotAndReset()
	return stats
}

// GetCumulativeLatencies snapshots the four cumulative recorders without
// clearing them.
func (w *Worker) GetCumulativeLatencies() CumulativeLatencies {
	return CumulativeLatencies{
		Publish:      w.recorders.Publish.Cumulative.Snapshot(),
		Schedule:     w.recorders.Schedule.Cumulative.Snapshot(),
		PublishDelay: w.recorders.PublishDelay.Cumulative.Snapshot(),
		EndToEnd:     w.recorders.EndToEnd.Cumulative.Snapshot(),
	}
}

// GetCountersStats reads the running totals only.
func (w *Worker) GetCountersStats() CountersStats {
	return CountersStats{
		MessagesSent:     w.counters.TotalMessagesSent.Sum(),
		MessagesReceived: w.counters.TotalMessagesReceived.Sum(),
		Errors:           w.counters.TotalErrors.Sum(),
	}
}
