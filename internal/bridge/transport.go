package bridge

import "context"

// Handler receives one inbound bus message.
type Handler func(topic string, payload []byte)

// Transport is the message bus the bridge listens and publishes on.
//
// Implementations must be safe for concurrent use.
type Transport interface {
	// Subscribe registers h for every topic matching filters. Subscriptions
	// survive reconnects.
	Subscribe(ctx context.Context, filters []string, h Handler) error

	// Publish sends payload on topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Connected reports whether the transport currently has a live
	// connection.
	Connected() bool

	// Close disconnects from the bus.
	Close()
}
