package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/posture-sensor/internal/logic"
)

// DefaultBufferSize is the number of messages kept while the broker is unreachable.
const DefaultBufferSize = 256

// DefaultPublishTimeout is short enough that a stalled broker cannot hold
// up the tick loop for long.
const DefaultPublishTimeout = 2 * time.Second

// Options configures a RealPublisher.
type Options struct {
	Broker string
	// ClientID defaults to "posture-sensor-" plus a random suffix.
	ClientID string
	// ConnectTimeout bounds the initial connection attempt. The publisher
	// keeps retrying in the background after it expires.
	ConnectTimeout time.Duration
	// RetryInterval is the delay between connection attempts.
	RetryInterval time.Duration
	// PublishTimeout bounds the wait for a single publish to complete.
	PublishTimeout time.Duration
	BufferSize     int
}

func (o *Options) setDefaults() {
	if o.ClientID == "" {
		o.ClientID = "posture-sensor-" + uuid.NewString()[:8]
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 5 * time.Second
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = DefaultPublishTimeout
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
}

// RealPublisher publishes to an actual MQTT broker. Events and system
// events published while disconnected are buffered and replayed, oldest
// first, once the connection is back. Nothing is sent directly while older
// messages are still queued, so the broker always sees publish order.
type RealPublisher struct {
	client  paho.Client
	topic   string
	timeout time.Duration

	mu          sync.Mutex
	buf         *outbox
	replaying   bool
	connections int
}

// NewRealPublisher creates a publisher for the given broker. It returns
// once connected or after ConnectTimeout, whichever comes first; an
// unreachable broker is not an error.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	o.setDefaults()

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	p := &RealPublisher{
		topic:   Topic,
		timeout: o.PublishTimeout,
		buf:     newOutbox(o.BufferSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(o.RetryInterval).
		SetMaxReconnectInterval(time.Minute).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("mqtt connection lost", "err", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(o.ConnectTimeout) {
		slog.Warn("mqtt broker not reachable yet, buffering", "broker", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect runs on a paho goroutine after every successful connection.
// paho marks the client connected before calling it, so publishes may
// already be arriving; they queue behind the replay.
func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	p.connections++
	reconnect := p.connections > 1
	pending := p.buf.len()
	start := !p.replaying
	p.replaying = true
	p.mu.Unlock()

	slog.Info("mqtt connected", "reconnect", reconnect, "buffered", pending)

	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err == nil {
			err = p.send(outMsg{topic: TopicSystem, payload: payload, qos: 1})
		}
		if err != nil {
			slog.Warn("failed to publish reconnected event", "err", err)
		}
	}

	if start {
		p.drain()
	}
}

// drain sends queued messages until the outbox is empty, picking up
// anything added while it runs. The caller must have set p.replaying.
// On a send failure the unsent messages go back to the front of the queue.
func (p *RealPublisher) drain() {
	for {
		p.mu.Lock()
		batch := p.buf.take()
		if len(batch) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		for i, m := range batch {
			if err := p.send(m); err != nil {
				slog.Warn("replay interrupted, requeueing", "topic", m.topic, "remaining", len(batch)-i, "err", err)
				p.mu.Lock()
				p.buf.requeue(batch[i:])
				p.replaying = false
				p.mu.Unlock()
				return
			}
		}
	}
}

// Publish sends a posture event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0, as the outbox already covers outages
	return p.publishOrBuffer(outMsg{topic: p.topic, payload: payload, qos: 0})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	return p.publishOrBuffer(outMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// PublishDiagnostics sends a diagnostics sample. Samples are dropped, not
// buffered, while disconnected.
func (p *RealPublisher) PublishDiagnostics(ts time.Time, d logic.Diagnostics) error {
	if !p.client.IsConnectionOpen() {
		return nil
	}
	payload, err := FormatDiagnosticsPayload(ts, d)
	if err != nil {
		return fmt.Errorf("format diagnostics payload: %w", err)
	}
	// QoS 0 (at-most-once), fire and forget
	p.client.Publish(TopicDiagnostics, 0, false, payload)
	return nil
}

// publishOrBuffer sends m directly only when connected and nothing older
// is waiting. A backlog left by an interrupted replay is retried here.
func (p *RealPublisher) publishOrBuffer(m outMsg) error {
	p.mu.Lock()
	open := p.client.IsConnectionOpen()
	if open && !p.replaying && p.buf.len() == 0 {
		p.mu.Unlock()
		return p.send(m)
	}
	p.buf.add(m)
	retry := open && !p.replaying
	if retry {
		p.replaying = true
	}
	p.mu.Unlock()

	if retry {
		go p.drain()
	}
	return nil
}

func (p *RealPublisher) send(m outMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Dropped returns the number of buffered messages lost to overflow.
func (p *RealPublisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.dropped
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
