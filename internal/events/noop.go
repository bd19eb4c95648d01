package events

import "context"

// NoopPublisher is a Publisher that does nothing (used when NATS is not configured).
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}

// NoopSubscriber is a Subscriber whose channels never deliver. Replicas
// without NATS only see their own writes.
type NoopSubscriber struct{}

func (n *NoopSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	ch := make(chan []byte)
	return ch, func() {}, nil
}

func (n *NoopSubscriber) Close() error {
	return nil
}
