package loopback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/torosent/benchworker/internal/driver"
)

type recordingCallback struct {
	received int
}

func (c *recordingCallback) MessageReceived(payload []byte, publishTimestampMs int64) {
	c.received++
}
func (c *recordingCallback) MessageReceivedView(payload []byte, publishTimestampMs int64) {
	c.received++
}
func (c *recordingCallback) MessageReceivedLatency(payloadSize int, e2eLatencyNs int64) {}
func (c *recordingCallback) Error()                                                     {}

func TestProducerDeliversToSubscribedConsumer(t *testing.T) {
	d := New()
	ctx := context.Background()

	const topic = "t0"
	if err := d.CreateTopic(ctx, topic, 1); err != nil {
		t.Fatalf("create topic: %v", err)
	}

	cb := &recordingCallback{}
	if _, err := d.CreateConsumer(ctx, topic, "sub", cb); err != nil {
		t.Fatalf("create consumer: %v", err)
	}
	p, err := d.CreateProducer(ctx, topic)
	if err != nil {
		t.Fatalf("create producer: %v", err)
	}

	errCh := p.SendAsync(ctx, nil, []byte("hello"))
	if err := <-errCh; err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if cb.received != 1 {
		t.Fatalf("expected 1 message delivered, got %d", cb.received)
	}
}

func TestHookInjectsDelayAndFailure(t *testing.T) {
	d := New()
	d.SetHook(func(seq int64) (time.Duration, error) {
		if seq%2 == 1 {
			return 0, errors.New("injected failure")
		}
		return 10 * time.Millisecond, nil
	})

	ctx := context.Background()
	topic := "t1"
	_ = d.CreateTopic(ctx, topic, 1)
	p, _ := d.CreateProducer(ctx, topic)

	start := time.Now()
	ch0 := p.SendAsync(ctx, nil, []byte("a"))
	if err := <-ch0; err != nil {
		t.Fatalf("expected seq 0 to succeed, got %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("expected injected delay to have elapsed")
	}

	ch1 := p.SendAsync(ctx, nil, []byte("b"))
	if err := <-ch1; err == nil {
		t.Fatalf("expected seq 1 to fail")
	}
}

func TestValidateTopicExists(t *testing.T) {
	d := New()
	ctx := context.Background()
	if ok, _ := d.ValidateTopicExists(ctx, "nope"); ok {
		t.Fatalf("expected nonexistent topic to report false")
	}
	_ = d.CreateTopic(ctx, "present", 1)
	if ok, _ := d.ValidateTopicExists(ctx, "present"); !ok {
		t.Fatalf("expected created topic to report true")
	}
}

var _ driver.Driver = (*Driver)(nil)
