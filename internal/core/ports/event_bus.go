package ports

import (
	"EventRelay/internal/shared/mpsc"

	"github.com/google/uuid"
)

// Message is any value that can travel on an event bus.
// Discriminant must depend only on the message's kind, never on its payload,
// so two messages of the same kind always yield equal discriminants.
type Message[D comparable] interface {
	Discriminant() D
}

// Endpoint is the producing side of a subscriber's private delivery queue.
// Send must fail, not panic, once the receiving side is gone.
type Endpoint[M any] interface {
	Send(msg M) error
	Close()
}

// Subscription is a registered interest in a set of message kinds.
type Subscription[D comparable, M Message[D]] interface {
	// ID identifies the subscription in logs and metrics.
	ID() uuid.UUID

	// SubscribedTo reports whether msg's discriminant is in the interest set.
	SubscribedTo(msg M) bool

	// DiscriminantSet returns the interest set in registration order.
	DiscriminantSet() []D

	// SendEvent hands msg to the private endpoint. It returns an
	// *mpsc.SendError carrying msg back when the endpoint is closed.
	SendEvent(msg M) error

	// Close releases the endpoint.
	Close()
}

// TerminationCondition decides, per ingested message, whether the
// distribution loop must stop. Implementations may keep state between calls.
type TerminationCondition[M any] interface {
	Terminates(msg M) bool
}

// EventDistributor owns a subscriber roster and fans messages out to it.
type EventDistributor[D comparable, M Message[D]] interface {
	// ServeEvents runs the distribution loop until the termination
	// condition fires.
	ServeEvents() error

	// EventSink returns a new producing handle onto the event intake.
	EventSink() *mpsc.Sender[M]

	// SubscriptionSink returns a new producing handle onto the subscription intake.
	SubscriptionSink() *mpsc.Sender[Subscription[D, M]]
}
