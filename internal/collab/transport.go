package collab

import (
	"context"
	"errors"
)

// ErrTransportClosed is returned by Publish after the transport has
// shut down, and reported by the session when its receive stream ends.
var ErrTransportClosed = errors.New("transport closed")

// Transport is one live subscription to a topic.
//
// Receive's channel closes when the subscription is lost, whether by
// Close or by connection failure; the session treats both the same way
// and reconnects through its Dialer.
type Transport interface {
	// Publish sends a message to every subscriber of the topic,
	// including the publisher itself (receivers filter by actor id).
	Publish(ctx context.Context, msg Message) error

	// Receive returns the inbound message stream.
	Receive() <-chan Message

	// Close tears down the subscription. Idempotent.
	Close() error
}

// Dialer opens transports. The session redials on every reconnect, so
// connecting, sending, and receiving stay the only suspension points in
// the model.
type Dialer interface {
	Dial(ctx context.Context, topic string) (Transport, error)
}
