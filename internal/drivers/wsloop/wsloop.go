// Package wsloop is an example driver that runs messages over WebSocket
// connections instead of in-process channels: it starts a small local
// broadcast server (one reader goroutine per connection, rebroadcasting
// what it reads to every other connection on the same topic) and drives
// producers/consumers against it as
// ordinary WebSocket clients, JSON-framing each message as
// {key, payload, publish_timestamp_ms}.
package wsloop

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/torosent/benchworker/internal/driver"
	"github.com/torosent/benchworker/internal/metricsink"
)

const DriverName = "wsloop"

func init() {
	driver.Register(DriverName, func(rawConfig []byte, sink metricsink.Sink) (driver.Driver, error) {
		return NewWithSink(sink)
	})
}

// frame is the wire format exchanged over the WebSocket connection.
type frame struct {
	Key                *string `json:"key,omitempty"`
	Payload            []byte  `json:"payload"`
	PublishTimestampMs int64   `json:"publish_timestamp_ms"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Driver runs a loopback broadcast server bound to an ephemeral local
// port and dials WebSocket clients against it for every producer and
// consumer the worker creates.
type Driver struct {
	listener net.Listener
	server   *http.Server
	baseURL  string

	mu   sync.Mutex
	hubs map[string]*hub

	writeErrors metricsink.SinkCounter
}

type hub struct {
	mu          sync.Mutex
	subscribers []*websocket.Conn
}

// New starts the loopback broadcast server and returns a Driver dialing
// against it, with no metrics sink.
func New() (*Driver, error) {
	return NewWithSink(metricsink.NoopSink{})
}

// NewWithSink starts the loopback broadcast server and returns a Driver
// that reports write errors through sink, scoped under "wsloop".
func NewWithSink(sink metricsink.Sink) (*Driver, error) {
	if sink == nil {
		sink = metricsink.NoopSink{}
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("wsloop: listen: %w", err)
	}

	d := &Driver{
		listener:    listener,
		baseURL:     "ws://" + listener.Addr().String(),
		hubs:        map[string]*hub{},
		writeErrors: sink.Scope(DriverName).Counter("write_errors"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/topics/", d.handleConnection)
	d.server = &http.Server{Handler: mux}
	go d.server.Serve(listener)

	return d, nil
}

func (d *Driver) hubFor(topic string) *hub {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.hubs[topic]
	if !ok {
		h = &hub{}
		d.hubs[topic] = h
	}
	return h
}

func topicFromPath(path string) string {
	const prefix = "/topics/"
	if len(path) <= len(prefix) {
		return ""
	}
	return path[len(prefix):]
}

func (d *Driver) handleConnection(w http.ResponseWriter, r *http.Request) {
	topic := topicFromPath(r.URL.Path)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h := d.hubFor(topic)
	h.mu.Lock()
	h.subscribers = append(h.subscribers, conn)
	h.mu.Unlock()

	// Every connection, producer or consumer, is read on the server side;
	// whatever it sends is rebroadcast to every other connection on the
	// topic. A pure consumer never writes, so this loop simply blocks
	// until the connection closes.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.remove(conn)
			return
		}
		h.broadcastExcept(conn, data)
	}
}

func (h *hub) remove(target *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, conn := range h.subscribers {
		if conn == target {
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			return
		}
	}
}

func (h *hub) broadcastExcept(sender *websocket.Conn, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conn := range h.subscribers {
		if conn == sender {
			continue
		}
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

func (d *Driver) TopicNamePrefix() string { return "wsloop" }

func (d *Driver) CreateTopic(ctx context.Context, name string, partitions int) error {
	d.hubFor(name)
	return nil
}

func (d *Driver) ValidateTopicExists(ctx context.Context, name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.hubs[name]
	return ok, nil
}

func (d *Driver) CreateProducer(ctx context.Context, topic string) (driver.Producer, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.baseURL+"/topics/"+topic, nil)
	if err != nil {
		return nil, fmt.Errorf("wsloop: dial producer: %w", err)
	}
	return &producer{conn: conn, writeErrors: d.writeErrors}, nil
}

func (d *Driver) CreateConsumer(ctx context.Context, topic, subscription string, cb driver.ConsumerCallback) (driver.Consumer, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.baseURL+"/topics/"+topic, nil)
	if err != nil {
		return nil, fmt.Errorf("wsloop: dial consumer: %w", err)
	}
	c := &consumer{conn: conn, done: make(chan struct{})}
	go c.readLoop(cb)
	return c, nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	for _, h := range d.hubs {
		h.mu.Lock()
		for _, conn := range h.subscribers {
			_ = conn.Close()
		}
		h.mu.Unlock()
	}
	d.mu.Unlock()
	return d.server.Close()
}

type producer struct {
	mu          sync.Mutex
	conn        *websocket.Conn
	writeErrors metricsink.SinkCounter
}

func (p *producer) SendAsync(ctx context.Context, key *string, payload []byte) <-chan error {
	ch := make(chan error, 1)
	f := frame{Key: key, Payload: payload, PublishTimestampMs: time.Now().UnixNano() / int64(time.Millisecond)}
	data, err := json.Marshal(f)
	if err != nil {
		ch <- err
		return ch
	}

	go func() {
		p.mu.Lock()
		err := p.conn.WriteMessage(websocket.TextMessage, data)
		p.mu.Unlock()
		if err != nil && p.writeErrors != nil {
			p.writeErrors.Inc()
		}
		ch <- err
	}()
	return ch
}

func (p *producer) Close() error { return p.conn.Close() }

type consumer struct {
	conn *websocket.Conn
	done chan struct{}
}

func (c *consumer) readLoop(cb driver.ConsumerCallback) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			cb.Error()
			continue
		}
		cb.MessageReceived(f.Payload, f.PublishTimestampMs)
	}
}

func (c *consumer) Close() error {
	close(c.done)
	return c.conn.Close()
}
