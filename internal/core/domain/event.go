package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the discriminant of an Event.
type Kind string

const (
	KindUserRegistered       Kind = "user.registered"
	KindVerificationApproved Kind = "verification.approved"
	KindVerificationRejected Kind = "verification.rejected"
	KindShutdown             Kind = "system.shutdown"
)

// AllKinds lists every known kind in declaration order.
var AllKinds = []Kind{
	KindUserRegistered,
	KindVerificationApproved,
	KindVerificationRejected,
	KindShutdown,
}

func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

var (
	ErrUnknownKind    = errors.New("unknown event kind")
	ErrMissingSubject = errors.New("event subject is required")
)

// Event is the message type carried by the relay bus.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Kind       Kind      `json:"kind"`
	Subject    string    `json:"subject"`
	Payload    string    `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ShutdownSentinel is the exact value that stops the relay bus.
var ShutdownSentinel = Event{Kind: KindShutdown}

// NewEvent creates an event stamped with a fresh ID and the current time.
func NewEvent(kind Kind, subject, payload string) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		Subject:    subject,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Discriminant implements ports.Message.
func (e Event) Discriminant() Kind {
	return e.Kind
}

// Validate checks an event coming from outside the process.
func (e Event) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	if e.Kind != KindShutdown && e.Subject == "" {
		return ErrMissingSubject
	}
	return nil
}
