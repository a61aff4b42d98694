package grpcloop

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	structpb "google.golang.org/protobuf/types/known/structpb"
	wrapperspb "google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/torosent/benchworker/internal/driver"
	"github.com/torosent/benchworker/internal/metricsink"
)

const DriverName = "grpcloop"

func init() {
	driver.Register(DriverName, func(rawConfig []byte, sink metricsink.Sink) (driver.Driver, error) {
		return NewWithSink(sink)
	})
}

// Driver runs an in-process gRPC broker bound to an ephemeral local port
// and dials a client connection against it for producers and consumers.
type Driver struct {
	listener net.Listener
	server   *grpc.Server
	conn     *grpc.ClientConn
	client   *brokerClient

	mu     sync.Mutex
	topics map[string]bool

	sendErrors metricsink.SinkCounter
}

// New starts the loopback gRPC broker and a client connection to it, with
// no metrics sink.
func New() (*Driver, error) {
	return NewWithSink(metricsink.NoopSink{})
}

// NewWithSink starts the loopback gRPC broker and a client connection to
// it, reporting RPC send errors through sink, scoped under
// "grpcloop".
func NewWithSink(sink metricsink.Sink) (*Driver, error) {
	if sink == nil {
		sink = metricsink.NoopSink{}
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("grpcloop: listen: %w", err)
	}

	server := grpc.NewServer()
	server.RegisterService(&serviceDesc, newBrokerService())
	go server.Serve(listener)

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		server.Stop()
		return nil, fmt.Errorf("grpcloop: dial: %w", err)
	}

	return &Driver{
		listener:   listener,
		server:     server,
		conn:       conn,
		client:     &brokerClient{cc: conn},
		topics:     map[string]bool{},
		sendErrors: sink.Scope(DriverName).Counter("send_errors"),
	}, nil
}

func (d *Driver) TopicNamePrefix() string { return "grpcloop" }

func (d *Driver) CreateTopic(ctx context.Context, name string, partitions int) error {
	d.mu.Lock()
	d.topics[name] = true
	d.mu.Unlock()
	return nil
}

func (d *Driver) ValidateTopicExists(ctx context.Context, name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.topics[name], nil
}

func (d *Driver) CreateProducer(ctx context.Context, topic string) (driver.Producer, error) {
	return &producer{client: d.client, topic: topic, sendErrors: d.sendErrors}, nil
}

func (d *Driver) CreateConsumer(ctx context.Context, topic, subscription string, cb driver.ConsumerCallback) (driver.Consumer, error) {
	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := d.client.Subscribe(streamCtx, wrapperspb.String(topic))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("grpcloop: subscribe: %w", err)
	}
	c := &consumer{cancel: cancel}
	go c.readLoop(stream, cb)
	return c, nil
}

func (d *Driver) Close() error {
	d.server.GracefulStop()
	return d.conn.Close()
}

type producer struct {
	client     *brokerClient
	topic      string
	sendErrors metricsink.SinkCounter
}

func (p *producer) SendAsync(ctx context.Context, key *string, payload []byte) <-chan error {
	ch := make(chan error, 1)

	fields := map[string]*structpb.Value{
		"topic":                structpb.NewStringValue(p.topic),
		"payload":              structpb.NewStringValue(base64.StdEncoding.EncodeToString(payload)),
		"publish_timestamp_ms": structpb.NewNumberValue(float64(time.Now().UnixNano() / int64(time.Millisecond))),
	}
	if key != nil {
		fields["key"] = structpb.NewStringValue(*key)
	}

	msg, err := structpb.NewStruct(nil)
	if err != nil {
		ch <- err
		return ch
	}
	msg.Fields = fields

	go func() {
		_, err := p.client.Send(ctx, msg)
		if err != nil && p.sendErrors != nil {
			p.sendErrors.Inc()
		}
		ch <- err
	}()
	return ch
}

func (p *producer) Close() error { return nil }

type consumer struct {
	cancel context.CancelFunc
}

func (c *consumer) readLoop(stream brokerSubscribeClient, cb driver.ConsumerCallback) {
	for {
		msg, err := stream.Recv()
		if err != nil {
			return
		}
		payload, err := base64.StdEncoding.DecodeString(msg.Fields["payload"].GetStringValue())
		if err != nil {
			cb.Error()
			continue
		}
		publishTimestampMs := int64(msg.Fields["publish_timestamp_ms"].GetNumberValue())
		cb.MessageReceived(payload, publishTimestampMs)
	}
}

func (c *consumer) Close() error {
	c.cancel()
	return nil
}
