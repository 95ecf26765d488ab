package relay

import (
	"EventRelay/internal/adapters/eventbus"
	"EventRelay/internal/core/domain"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// EventBus is the bus type the orchestrator drives.
type EventBus = eventbus.Bus[domain.Kind, domain.Event]

// Consumer is a named handler interested in a set of event kinds.
type Consumer struct {
	Name    string
	Kinds   []domain.Kind
	Handler Handler[domain.Event]
}

// Orchestrator owns the bus goroutine and runs every consumer relay next to
// it, plus the optional HTTP ingress.
type Orchestrator struct {
	bus        *EventBus
	consumers  []Consumer
	httpServer *http.Server
	baseLogger *zerolog.Logger
	log        zerolog.Logger
}

// NewOrchestrator creates an orchestrator for bus.
func NewOrchestrator(bus *EventBus, baseLogger *zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		bus:        bus,
		baseLogger: baseLogger,
		log:        baseLogger.With().Str("component", "orchestrator").Logger(),
	}
}

// Register adds a consumer. It must be called before Start.
func (o *Orchestrator) Register(c Consumer) {
	o.consumers = append(o.consumers, c)
	o.log.Info().Str("consumer", c.Name).Interface("kinds", c.Kinds).Msg("Registered consumer")
}

// WithHTTPServer makes Start serve srv for as long as the bus runs.
func (o *Orchestrator) WithHTTPServer(srv *http.Server) *Orchestrator {
	o.httpServer = srv
	return o
}

// Start subscribes every consumer, serves the bus and blocks until the bus
// has stopped and every relay has drained its queue. Cancelling ctx pushes
// the shutdown sentinel through the bus; events queued before it are still
// delivered.
func (o *Orchestrator) Start(ctx context.Context) error {
	relays, err := o.subscribeAll()
	if err != nil {
		// Release the subscribers that did get queued.
		if cerr := o.bus.Close(); cerr != nil {
			o.log.Error().Err(cerr).Msg("Failed to close bus")
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	stopped := make(chan struct{})

	// Bus owner. Close releases every subscriber so the relays see their
	// queues disconnect once drained.
	g.Go(func() error {
		defer close(stopped)
		serveErr := o.bus.ServeEvents()
		if err := o.bus.Close(); err != nil {
			o.log.Error().Err(err).Msg("Failed to close bus")
		}
		if serveErr != nil {
			return fmt.Errorf("event bus stopped: %w", serveErr)
		}
		o.log.Info().Msg("Event bus stopped")
		return nil
	})

	// Relays outlive ctx so that they drain what the bus delivered.
	relayCtx := context.WithoutCancel(ctx)
	for _, r := range relays {
		r := r
		g.Go(func() error {
			return r.Run(relayCtx)
		})
	}

	sink := o.bus.EventSink()
	g.Go(func() error {
		defer sink.Close()
		select {
		case <-stopped:
			return nil
		case <-gctx.Done():
		}
		o.log.Info().Msg("Shutdown requested, sending sentinel")
		if err := sink.Send(domain.ShutdownSentinel); err != nil {
			o.log.Warn().Err(err).Msg("Bus already closed")
		}
		return nil
	})

	if o.httpServer != nil {
		o.startHTTP(g, gctx, stopped)
	}

	return g.Wait()
}

func (o *Orchestrator) subscribeAll() ([]*Relay[domain.Event], error) {
	sink := o.bus.SubscriptionSink()
	defer sink.Close()

	relays := make([]*Relay[domain.Event], 0, len(o.consumers))
	for _, c := range o.consumers {
		rx, id, err := eventbus.Subscribe[domain.Kind, domain.Event](sink, c.Kinds...)
		if err != nil {
			return nil, fmt.Errorf("could not subscribe consumer %s: %w", c.Name, err)
		}
		o.log.Debug().Str("consumer", c.Name).Str("subscriber_id", id.String()).Msg("Consumer subscribed")
		relays = append(relays, New(c.Name, rx, c.Handler, o.baseLogger))
	}
	return relays, nil
}

func (o *Orchestrator) startHTTP(g *errgroup.Group, gctx context.Context, stopped <-chan struct{}) {
	srv := o.httpServer

	g.Go(func() error {
		o.log.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-stopped:
		case <-gctx.Done():
		}
		o.log.Info().Msg("Shutting down HTTP server...")
		ctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			o.log.Error().Err(err).Msg("HTTP server shutdown error")
			return err
		}
		o.log.Info().Msg("HTTP server stopped gracefully")
		return nil
	})
}
