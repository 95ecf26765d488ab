package ports

import (
	"EventRelay/internal/core/domain"
	"context"
)

// EventJournal is an append-only audit store fed by a bus subscriber.
type EventJournal interface {
	// Append stores one delivered event. Appending the same ID twice is a no-op.
	Append(ctx context.Context, event domain.Event) error

	// ListBySubject returns the events for subject, oldest first.
	ListBySubject(ctx context.Context, subject string) ([]domain.Event, error)
}
