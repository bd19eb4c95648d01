package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// Connect dials the NATS server at url with automatic reconnection.
// Extra nats.Option values (e.g. disconnect/reconnect handlers) can be appended.
func Connect(url, name string, opts ...nats.Option) (*nats.Conn, error) {
	defaults := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes JSON-encoded events to NATS subjects named after
// their topic. Connect to FORMDESK_NATS_URL.
type NATSPublisher struct {
	conn  *nats.Conn
	owned bool
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := Connect(url, "formdesk-publisher")
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc, owned: true}, nil
}

// NewNATSPublisherConn publishes on an existing connection. Close leaves
// the connection open.
func NewNATSPublisherConn(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: nc}
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.conn.Publish(topic, data)
}

func (p *NATSPublisher) Close() error {
	if p.owned {
		p.conn.Close()
	}
	return nil
}

// NATSSubscriber subscribes to events from NATS subjects.
type NATSSubscriber struct {
	conn    *nats.Conn
	owned   bool
	dropped atomic.Int64
}

// NewNATSSubscriber connects to NATS with automatic reconnection support.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := Connect(url, "formdesk-subscriber", opts...)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc, owned: true}, nil
}

// NewNATSSubscriberConn subscribes on an existing connection. Close leaves
// the connection open.
func NewNATSSubscriberConn(nc *nats.Conn) *NATSSubscriber {
	return &NATSSubscriber{conn: nc}
}

// Dropped returns how many messages were discarded because a consumer
// fell behind.
func (s *NATSSubscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Subscribe returns a channel that receives raw event payloads for the given
// topic (supports NATS wildcards like "formdesk.form.>"). Call the returned
// cancel function to unsubscribe and close the channel.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 64)

	var (
		mu     sync.Mutex
		closed bool
		once   sync.Once
	)

	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- msg.Data:
		default:
			// Never block the NATS client goroutine.
			if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
				slog.Warn("event subscriber dropping messages", "topic", msg.Subject, "dropped", n)
			}
		}
	})
	if err != nil {
		close(ch)
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// Flush ensures the subscription is registered on the server before
	// returning, so that messages published on other connections are routed.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		close(ch)
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			mu.Lock()
			closed = true
			mu.Unlock()
			// Drain remaining messages so senders don't block, then close.
			for {
				select {
				case <-ch:
				default:
					close(ch)
					return
				}
			}
		})
	}

	return ch, cancel, nil
}

func (s *NATSSubscriber) Close() error {
	if s.owned {
		s.conn.Close()
	}
	return nil
}
