package grpcloop

import (
	"context"
	"sync"
	"testing"
	"time"
)

type collectingCallback struct {
	mu       sync.Mutex
	received [][]byte
}

func (c *collectingCallback) MessageReceived(payload []byte, publishTimestampMs int64) {
	c.mu.Lock()
	c.received = append(c.received, payload)
	c.mu.Unlock()
}
func (c *collectingCallback) MessageReceivedView(payload []byte, publishTimestampMs int64) {
	c.MessageReceived(payload, publishTimestampMs)
}
func (c *collectingCallback) MessageReceivedLatency(payloadSize int, e2eLatencyNs int64) {}
func (c *collectingCallback) Error()                                                     {}

func (c *collectingCallback) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.received)
}

func TestSendIsDeliveredToSubscriber(t *testing.T) {
	d, err := New()
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	const topic = "orders"
	if err := d.CreateTopic(ctx, topic, 1); err != nil {
		t.Fatalf("create topic: %v", err)
	}

	cb := &collectingCallback{}
	consumer, err := d.CreateConsumer(ctx, topic, "sub", cb)
	if err != nil {
		t.Fatalf("create consumer: %v", err)
	}
	defer consumer.Close()

	time.Sleep(20 * time.Millisecond)

	producer, err := d.CreateProducer(ctx, topic)
	if err != nil {
		t.Fatalf("create producer: %v", err)
	}
	defer producer.Close()

	key := "key"
	errCh := producer.SendAsync(ctx, &key, []byte("payload"))
	if err := <-errCh; err != nil {
		t.Fatalf("send failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for cb.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if cb.count() != 1 {
		t.Fatalf("expected 1 message delivered, got %d", cb.count())
	}
}
