package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// TopicsInfo selects between reusing a fixed set of existing topics and
// creating a fresh batch of num_topics topics with partitions_per_topic
// partitions each.
type TopicsInfo struct {
	ExistingTopics     []string
	NumberOfTopics     int
	PartitionsPerTopic int
}

// ConsumerAssignmentEntry pairs a topic with the subscription name a
// consumer should be created against.
type ConsumerAssignmentEntry struct {
	Topic        string
	Subscription string
}

// ConsumerAssignment is the ordered list of (topic, subscription) pairs
// create_consumers materializes one consumer per entry for.
type ConsumerAssignment []ConsumerAssignmentEntry

const alnumAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// topicNameRand is a mutex-guarded source shared by every topic-name
// generation call, following the same pattern as the jitter source used
// elsewhere for non-cryptographic randomness under concurrent access.
var topicNameRand = struct {
	mu  sync.Mutex
	rnd *rand.Rand
}{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}

func randomAlnum(n int) string {
	out := make([]byte, n)
	topicNameRand.mu.Lock()
	for i := range out {
		out[i] = alnumAlphabet[topicNameRand.rnd.Intn(len(alnumAlphabet))]
	}
	topicNameRand.mu.Unlock()
	return string(out)
}

// CreateOrValidateTopics either validates that every topic in
// info.ExistingTopics exists, or creates info.NumberOfTopics fresh topics
// named "{prefix}-{random8}-{index:04}" with info.PartitionsPerTopic
// partitions each.
func (w *Worker) CreateOrValidateTopics(ctx context.Context, info TopicsInfo) ([]string, error) {
	w.mu.Lock()
	drv := w.drv
	w.mu.Unlock()
	if drv == nil {
		return nil, errors.New("worker: create_or_validate_topics requires an initialized driver")
	}

	if len(info.ExistingTopics) > 0 {
		for _, name := range info.ExistingTopics {
			ok, err := drv.ValidateTopicExists(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("worker: validate topic %q: %w", name, err)
			}
			if !ok {
				return nil, fmt.Errorf("worker: existing topic %q does not exist", name)
			}
		}
		return info.ExistingTopics, nil
	}

	prefix := drv.TopicNamePrefix()
	topics := make([]string, info.NumberOfTopics)
	for i := 0; i < info.NumberOfTopics; i++ {
		name := fmt.Sprintf("%s-%s-%04d", prefix, randomAlnum(8), i)
		if err := drv.CreateTopic(ctx, name, info.PartitionsPerTopic); err != nil {
			return nil, fmt.Errorf("worker: create topic %q: %w", name, err)
		}
		topics[i] = name
	}
	return topics, nil
}
