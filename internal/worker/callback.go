package worker

import "time"

// callback is the driver.ConsumerCallback every consumer this worker
// creates delivers messages through. It records size and end-to-end
// latency into the shared recorder/counter sets and enforces the pause
// gate before doing anything else.
type callback struct {
	w *Worker
}

// waitWhilePaused blocks in ~1s ticks while the worker's pause gate is
// raised, applying back-pressure to the driver's delivery pipeline.
func (w *Worker) waitWhilePaused() {
	for w.paused.Load() {
		time.Sleep(time.Second)
	}
}

func (c *callback) messageReceivedCommon(size int, publishTimestampMs int64) {
	c.w.waitWhilePaused()

	c.w.counters.MessagesReceived.Inc()
	c.w.counters.TotalMessagesReceived.Inc()
	c.w.counters.BytesReceived.Add(int64(size))
	c.w.sink.Counter("messages_received").Inc()

	nowWallUs := time.Now().UnixNano() / 1000
	e2eLatencyUs := nowWallUs - publishTimestampMs*1000
	if e2eLatencyUs <= 0 {
		// Forms 1 & 2: a negative or zero skew is dropped silently, but
		// the message is still counted as received.
		return
	}
	c.w.recorders.EndToEnd.RecordValue(e2eLatencyUs)
	c.w.sink.OpStats("end_to_end_latency").RegisterSuccessfulEvent(e2eLatencyUs, time.Microsecond)
}

// MessageReceived is the byte-slice form of the delivery callback.
func (c *callback) MessageReceived(payload []byte, publishTimestampMs int64) {
	c.messageReceivedCommon(len(payload), publishTimestampMs)
}

// MessageReceivedView is the zero-copy form: payload may be a view into a
// driver-owned buffer, and only its length is read.
func (c *callback) MessageReceivedView(payload []byte, publishTimestampMs int64) {
	c.messageReceivedCommon(len(payload), publishTimestampMs)
}

// MessageReceivedLatency is used when the driver itself has already
// computed the end-to-end latency in nanoseconds. Here, unlike the other
// two forms, a non-positive latency is treated as a poll error rather
// than dropped silently — the asymmetry is deliberate, matching the
// legacy callback's behavior rather than unifying it away.
func (c *callback) MessageReceivedLatency(payloadSize int, e2eLatencyNs int64) {
	c.w.waitWhilePaused()

	c.w.counters.MessagesReceived.Inc()
	c.w.counters.TotalMessagesReceived.Inc()
	c.w.counters.BytesReceived.Add(int64(payloadSize))
	c.w.sink.Counter("messages_received").Inc()

	if e2eLatencyNs <= 0 {
		c.w.counters.PollErrors.Inc()
		return
	}

	e2eLatencyUs := e2eLatencyNs / 1000
	c.w.recorders.EndToEnd.RecordValue(e2eLatencyUs)
	c.w.sink.OpStats("end_to_end_latency").RegisterSuccessfulEvent(e2eLatencyUs, time.Microsecond)
}

// Error is invoked by the driver on a poll or delivery error unrelated to
// any specific message.
func (c *callback) Error() {
	c.w.counters.PollErrors.Inc()
}
