package driver

import (
	"context"
	"testing"

	"github.com/torosent/benchworker/internal/metricsink"
)

type fakeDriver struct{}

func (fakeDriver) TopicNamePrefix() string { return "fake" }
func (fakeDriver) CreateTopic(ctx context.Context, name string, partitions int) error {
	return nil
}
func (fakeDriver) ValidateTopicExists(ctx context.Context, name string) (bool, error) {
	return true, nil
}
func (fakeDriver) CreateProducer(ctx context.Context, topic string) (Producer, error) {
	return nil, nil
}
func (fakeDriver) CreateConsumer(ctx context.Context, topic, subscription string, cb ConsumerCallback) (Consumer, error) {
	return nil, nil
}
func (fakeDriver) Close() error { return nil }

func TestRegisterAndLookup(t *testing.T) {
	name := "test-registry-fake"
	Register(name, func(rawConfig []byte, sink metricsink.Sink) (Driver, error) {
		return fakeDriver{}, nil
	})

	factory, ok := Lookup(name)
	if !ok {
		t.Fatalf("expected driver registered under %q", name)
	}
	d, err := factory(nil, metricsink.NoopSink{})
	if err != nil {
		t.Fatalf("unexpected error from factory: %v", err)
	}
	if d.TopicNamePrefix() != "fake" {
		t.Fatalf("unexpected driver returned from factory")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	name := "test-registry-dup"
	Register(name, func(rawConfig []byte, sink metricsink.Sink) (Driver, error) { return fakeDriver{}, nil })

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic registering duplicate driver name")
		}
	}()
	Register(name, func(rawConfig []byte, sink metricsink.Sink) (Driver, error) { return fakeDriver{}, nil })
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	if _, ok := Lookup("does-not-exist"); ok {
		t.Fatalf("expected no driver registered under unused name")
	}
}

func TestNewReturnsErrorForUnknownDriver(t *testing.T) {
	if _, err := New("does-not-exist", nil, metricsink.NoopSink{}); err == nil {
		t.Fatalf("expected error for unknown driver name")
	}
}
