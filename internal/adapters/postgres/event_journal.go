package postgres

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type eventJournal struct {
	db     *DB
	cipher ports.PayloadCipher // Payloads are stored sealed
	log    zerolog.Logger
}

var _ ports.EventJournal = (*eventJournal)(nil) // Ensure compliance

// NewEventJournal creates a journal backed by the event_journal table.
func NewEventJournal(db *DB, cipher ports.PayloadCipher, baseLogger *zerolog.Logger) ports.EventJournal {
	return &eventJournal{
		db:     db,
		cipher: cipher,
		log:    baseLogger.With().Str("component", "event_journal").Logger(),
	}
}

// Append seals the payload and inserts the event.
func (j *eventJournal) Append(ctx context.Context, event domain.Event) error {
	sealed, err := j.cipher.Seal(event.Payload)
	if err != nil {
		j.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("Failed to seal payload")
		return err
	}

	query := `
		INSERT INTO event_journal (id, kind, subject, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = j.db.pool.Exec(ctx, query,
		event.ID,
		string(event.Kind),
		event.Subject,
		sealed,
		event.OccurredAt,
	)
	if err != nil {
		j.log.Error().Err(err).
			Str("event_id", event.ID.String()).
			Str("kind", event.Kind.String()).
			Msg("Failed to append event")
		return fmt.Errorf("could not append event %s: %w", event.ID, err)
	}
	return nil
}

// ListBySubject returns the subject's events, oldest first, with payloads opened.
func (j *eventJournal) ListBySubject(ctx context.Context, subject string) ([]domain.Event, error) {
	query := `
		SELECT id, kind, subject, payload, occurred_at
		FROM event_journal
		WHERE subject = $1
		ORDER BY occurred_at, recorded_at
	`
	rows, err := j.db.pool.Query(ctx, query, subject)
	if err != nil {
		j.log.Error().Err(err).Str("subject", subject).Msg("Failed to query events")
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := j.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		j.log.Error().Err(err).Str("subject", subject).Msg("Failed to iterate events")
		return nil, err
	}
	return events, nil
}

// scanEvent is a helper to scan a row into an Event.
// It opens the sealed payload internally.
func (j *eventJournal) scanEvent(row pgx.Row) (*domain.Event, error) {
	var event domain.Event
	var kind, sealed string

	if err := row.Scan(&event.ID, &kind, &event.Subject, &sealed, &event.OccurredAt); err != nil {
		j.log.Error().Err(err).Msg("Failed to scan event row")
		return nil, err
	}
	event.Kind = domain.Kind(kind)

	payload, err := j.cipher.Open(sealed)
	if err != nil {
		j.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("Failed to open payload")
		return nil, err
	}
	event.Payload = payload
	event.OccurredAt = event.OccurredAt.UTC()
	return &event, nil
}
