package eventbus

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"EventRelay/internal/shared/mpsc"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Subscriber is the concrete subscription: a private delivery endpoint plus
// the discriminants it wants.
type Subscriber[D comparable, M ports.Message[D]] struct {
	id              uuid.UUID
	endpoint        ports.Endpoint[M]
	discriminantSet []D
}

var _ ports.Subscription[domain.Kind, domain.Event] = (*Subscriber[domain.Kind, domain.Event])(nil)

// NewSubscriber creates a subscriber that delivers to endpoint every message
// whose discriminant is in set. An empty set matches nothing.
func NewSubscriber[D comparable, M ports.Message[D]](endpoint ports.Endpoint[M], set ...D) *Subscriber[D, M] {
	return &Subscriber[D, M]{
		id:              uuid.New(),
		endpoint:        endpoint,
		discriminantSet: slices.Clone(set),
	}
}

func (s *Subscriber[D, M]) ID() uuid.UUID {
	return s.id
}

// SubscribedTo is a linear scan; interest sets are expected to be tiny.
func (s *Subscriber[D, M]) SubscribedTo(msg M) bool {
	return slices.Contains(s.discriminantSet, msg.Discriminant())
}

func (s *Subscriber[D, M]) DiscriminantSet() []D {
	return slices.Clone(s.discriminantSet)
}

func (s *Subscriber[D, M]) SendEvent(msg M) error {
	return s.endpoint.Send(msg)
}

func (s *Subscriber[D, M]) Close() {
	s.endpoint.Close()
}

// Equal compares interest sets only; endpoints are ignored.
func (s *Subscriber[D, M]) Equal(other *Subscriber[D, M]) bool {
	if other == nil {
		return false
	}
	return slices.Equal(s.discriminantSet, other.discriminantSet)
}

func (s *Subscriber[D, M]) String() string {
	return fmt.Sprintf("subscriber(%s, %v)", s.id, s.discriminantSet)
}

// Subscribe creates a private queue, registers a Subscriber for set through
// sink and returns the queue's receiving end together with the subscriber ID.
func Subscribe[D comparable, M ports.Message[D]](
	sink *mpsc.Sender[ports.Subscription[D, M]],
	set ...D,
) (*mpsc.Receiver[M], uuid.UUID, error) {
	tx, rx := mpsc.New[M]()
	sub := NewSubscriber[D, M](tx, set...)

	if err := sink.Send(sub); err != nil {
		tx.Close()
		rx.Close()
		return nil, uuid.Nil, fmt.Errorf("could not register subscriber: %w", err)
	}
	return rx, sub.ID(), nil
}
