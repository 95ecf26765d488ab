package relay

import (
	"EventRelay/internal/shared/mpsc"
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Handler processes one delivered message. A returned error is logged and
// the relay moves on to the next message.
type Handler[M any] func(ctx context.Context, msg M) error

// Relay drains one subscriber queue into a Handler.
type Relay[M any] struct {
	name     string
	receiver *mpsc.Receiver[M]
	handler  Handler[M]
	log      zerolog.Logger
}

// New creates a relay named name reading from receiver.
func New[M any](name string, receiver *mpsc.Receiver[M], handler Handler[M], baseLogger *zerolog.Logger) *Relay[M] {
	return &Relay[M]{
		name:     name,
		receiver: receiver,
		handler:  handler,
		log:      baseLogger.With().Str("component", "relay").Str("consumer", name).Logger(),
	}
}

// Name returns the consumer name.
func (r *Relay[M]) Name() string {
	return r.name
}

// Run hands every queued message to the handler until the queue is
// disconnected or ctx is done. Both are normal stops and return nil.
func (r *Relay[M]) Run(ctx context.Context) error {
	r.log.Info().Msg("Relay started")
	defer r.receiver.Close()

	handled, failed := 0, 0
	for {
		msg, err := r.receiver.Recv(ctx)
		if err != nil {
			switch {
			case errors.Is(err, mpsc.ErrDisconnected), errors.Is(err, mpsc.ErrClosed):
				r.log.Info().Int("handled", handled).Int("failed", failed).Msg("Queue disconnected, relay stopped")
				return nil
			case ctx.Err() != nil:
				r.log.Info().Int("handled", handled).Int("failed", failed).Msg("Relay cancelled")
				return nil
			default:
				return err
			}
		}

		if err := r.handler(r.log.WithContext(ctx), msg); err != nil {
			failed++
			r.log.Error().Err(err).Msg("Handler failed")
			continue
		}
		handled++
	}
}
