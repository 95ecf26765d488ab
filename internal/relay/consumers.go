package relay

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Deps carries the optional adapters consumers are built from. A nil field
// disables the consumers that need it.
type Deps struct {
	Journal  ports.EventJournal
	Notifier ports.NotifierPort
}

// ConsumerConstructor builds a consumer from deps. It reports false when a
// required dependency is missing.
type ConsumerConstructor func(deps Deps) (Consumer, bool)

// registry lists the built-in consumers in subscription order.
var registry = []ConsumerConstructor{
	auditConsumer,
	journalConsumer,
	notifierConsumer,
}

// RegisterAllConsumers builds every built-in consumer whose dependencies are
// present and registers it with orch. It returns the number registered.
func RegisterAllConsumers(orch *Orchestrator, deps Deps, baseLogger *zerolog.Logger) int {
	log := baseLogger.With().Str("component", "consumer_registry").Logger()

	n := 0
	for _, constructor := range registry {
		c, ok := constructor(deps)
		if !ok {
			continue
		}
		orch.Register(c)
		n++
	}
	log.Info().Int("consumers", n).Msg("Registered built-in consumers")
	return n
}

// businessKinds is every kind except the shutdown kind, which never reaches
// subscribers.
func businessKinds() []domain.Kind {
	kinds := make([]domain.Kind, 0, len(domain.AllKinds))
	for _, k := range domain.AllKinds {
		if k != domain.KindShutdown {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func auditConsumer(Deps) (Consumer, bool) {
	return Consumer{
		Name:  "audit",
		Kinds: businessKinds(),
		Handler: func(ctx context.Context, evt domain.Event) error {
			zerolog.Ctx(ctx).Info().
				Str("event_id", evt.ID.String()).
				Str("kind", evt.Kind.String()).
				Str("subject", evt.Subject).
				Time("occurred_at", evt.OccurredAt).
				Msg("Event delivered")
			return nil
		},
	}, true
}

func journalConsumer(deps Deps) (Consumer, bool) {
	if deps.Journal == nil {
		return Consumer{}, false
	}
	return Consumer{
		Name:  "journal",
		Kinds: businessKinds(),
		Handler: func(ctx context.Context, evt domain.Event) error {
			if err := deps.Journal.Append(ctx, evt); err != nil {
				return fmt.Errorf("journal append: %w", err)
			}
			return nil
		},
	}, true
}

func notifierConsumer(deps Deps) (Consumer, bool) {
	if deps.Notifier == nil {
		return Consumer{}, false
	}
	return Consumer{
		Name: "notifier",
		Kinds: []domain.Kind{
			domain.KindUserRegistered,
			domain.KindVerificationApproved,
			domain.KindVerificationRejected,
		},
		Handler: deps.Notifier.Notify,
	}, true
}
