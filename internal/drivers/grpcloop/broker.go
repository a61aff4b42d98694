package grpcloop

import (
	"context"
	"sync"

	structpb "google.golang.org/protobuf/types/known/structpb"
	wrapperspb "google.golang.org/protobuf/types/known/wrapperspb"

	emptypb "google.golang.org/protobuf/types/known/emptypb"
)

// brokerService is the in-process implementation of brokerServer: Send
// fans a message out to every open Subscribe stream registered for the
// message's topic field.
type brokerService struct {
	mu   sync.Mutex
	hubs map[string]*topicHub
}

func newBrokerService() *brokerService {
	return &brokerService{hubs: map[string]*topicHub{}}
}

type topicHub struct {
	mu   sync.Mutex
	subs map[chan *structpb.Struct]struct{}
}

func (b *brokerService) hubFor(topic string) *topicHub {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.hubs[topic]
	if !ok {
		h = &topicHub{subs: map[chan *structpb.Struct]struct{}{}}
		b.hubs[topic] = h
	}
	return h
}

func (h *topicHub) addSubscriber() chan *structpb.Struct {
	ch := make(chan *structpb.Struct, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *topicHub) removeSubscriber(ch chan *structpb.Struct) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *topicHub) broadcast(msg *structpb.Struct) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			// Slow subscriber: drop rather than block the sender, matching
			// the driver contract that send_async must never block on
			// delivery to any one consumer.
		}
	}
}

func (b *brokerService) Send(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	topicName := in.Fields["topic"].GetStringValue()
	b.hubFor(topicName).broadcast(in)
	return &emptypb.Empty{}, nil
}

func (b *brokerService) Subscribe(req *wrapperspb.StringValue, stream brokerSubscribeServer) error {
	hub := b.hubFor(req.Value)
	ch := hub.addSubscriber()
	defer hub.removeSubscriber(ch)

	for {
		select {
		case msg := <-ch:
			if err := stream.Send(msg); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}
