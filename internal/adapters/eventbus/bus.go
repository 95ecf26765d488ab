package eventbus

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"EventRelay/internal/shared/mpsc"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrBusClosed is returned when the bus is used after Close.
	ErrBusClosed = errors.New("bus is closed")
	// ErrAlreadyServing is returned when ServeEvents is already running.
	ErrAlreadyServing = errors.New("bus is already serving")
)

// BusError is the error returned by the bus lifecycle methods.
type BusError struct {
	Op  string
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("eventbus %s: %v", e.Op, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

type busState int

const (
	stateIdle busState = iota
	stateServing
	stateClosed
)

// Bus is a single-owner event distributor. Producers and registrars talk to
// it only through the sinks; the roster is touched by the owner goroutine
// running ServeEvents and by nobody else.
type Bus[D comparable, M ports.Message[D]] struct {
	eventReceiver        *mpsc.Receiver[M]
	eventSender          *mpsc.Sender[M]
	subscriptionReceiver *mpsc.Receiver[ports.Subscription[D, M]]
	subscriptionSender   *mpsc.Sender[ports.Subscription[D, M]]
	terminationCondition ports.TerminationCondition[M]
	subscribers          []ports.Subscription[D, M]

	mu    sync.Mutex
	state busState

	opts options
	log  zerolog.Logger
}

var _ ports.EventDistributor[domain.Kind, domain.Event] = (*Bus[domain.Kind, domain.Event])(nil)

// NewBus creates a bus with empty intake queues and an empty roster.
// A nil cond never terminates.
func NewBus[D comparable, M ports.Message[D]](
	cond ports.TerminationCondition[M],
	baseLogger *zerolog.Logger,
	opts ...Option,
) *Bus[D, M] {
	if cond == nil {
		cond = Never[M]{}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	etx, erx := mpsc.New[M]()
	stx, srx := mpsc.New[ports.Subscription[D, M]]()

	return &Bus[D, M]{
		eventReceiver:        erx,
		eventSender:          etx,
		subscriptionReceiver: srx,
		subscriptionSender:   stx,
		terminationCondition: cond,
		opts:                 o,
		log:                  baseLogger.With().Str("component", "event_bus").Logger(),
	}
}

// EventSink returns a new producing handle for messages.
func (b *Bus[D, M]) EventSink() *mpsc.Sender[M] {
	return b.eventSender.Clone()
}

// SubscriptionSink returns a new producing handle for subscribers.
func (b *Bus[D, M]) SubscriptionSink() *mpsc.Sender[ports.Subscription[D, M]] {
	return b.subscriptionSender.Clone()
}

// ServeEvents runs the distribution loop on the calling goroutine until a
// message satisfies the termination condition, then returns nil. The
// terminating message and everything queued after it are never delivered.
func (b *Bus[D, M]) ServeEvents() error {
	if err := b.transition("serve", stateServing); err != nil {
		return err
	}
	defer b.transition("serve", stateIdle)

	b.log.Info().Bool("busy_poll", b.opts.busyPoll).Msg("Serving events")

	for {
		b.admitSubscribers()

		if b.distributeEvents() {
			b.log.Info().Int("subscribers", len(b.subscribers)).Msg("Termination condition met, stopping")
			return nil
		}

		if b.opts.busyPoll {
			runtime.Gosched()
			continue
		}

		select {
		case <-b.subscriptionReceiver.Ready():
		case <-b.eventReceiver.Ready():
		}
	}
}

// admitSubscribers drains the subscription intake into the roster.
func (b *Bus[D, M]) admitSubscribers() {
	admitted := 0
	for {
		sub, err := b.subscriptionReceiver.TryRecv()
		if err != nil {
			break
		}
		b.subscribers = append(b.subscribers, sub)
		admitted++
		b.log.Debug().
			Str("subscriber_id", sub.ID().String()).
			Interface("kinds", sub.DiscriminantSet()).
			Msg("Subscriber admitted")
	}
	if admitted > 0 {
		b.opts.metrics.observeRoster(admitted, 0, len(b.subscribers))
	}
}

// distributeEvents drains the event intake. It reports true when the
// termination condition fired.
func (b *Bus[D, M]) distributeEvents() bool {
	for {
		msg, err := b.eventReceiver.TryRecv()
		if err != nil {
			return false
		}
		b.opts.metrics.observeIngested()

		if b.terminationCondition.Terminates(msg) {
			return true
		}
		b.fanOut(msg)
	}
}

// fanOut delivers msg in roster order and drops every subscriber whose
// endpoint rejected it. Survivors keep their relative order.
func (b *Bus[D, M]) fanOut(msg M) {
	kind := msg.Discriminant()
	delivered, evicted := 0, 0

	kept := b.subscribers[:0]
	for _, sub := range b.subscribers {
		if !sub.SubscribedTo(msg) {
			kept = append(kept, sub)
			continue
		}

		if err := sub.SendEvent(cloneMessage(msg)); err != nil {
			b.log.Debug().
				Err(err).
				Str("subscriber_id", sub.ID().String()).
				Interface("kind", kind).
				Msg("Delivery failed, evicting subscriber")
			sub.Close()
			evicted++
			continue
		}
		delivered++
		kept = append(kept, sub)
	}

	clear(b.subscribers[len(kept):])
	b.subscribers = kept

	b.opts.metrics.observeDelivered(kind, delivered)
	if evicted > 0 {
		b.opts.metrics.observeRoster(0, evicted, len(b.subscribers))
	}
}

// cloneMessage uses the message's own Clone method when it has one.
func cloneMessage[M any](msg M) M {
	if c, ok := any(msg).(interface{ Clone() M }); ok {
		return c.Clone()
	}
	return msg
}

// Len reports the roster size. Call it from the owner goroutine only.
func (b *Bus[D, M]) Len() int {
	return len(b.subscribers)
}

// Close destroys the intake queues and releases every subscriber endpoint,
// including those still waiting in the subscription intake. Producers then
// get a SendError and subscriber receivers observe disconnection.
// Close fails while ServeEvents is running and is a no-op when repeated.
func (b *Bus[D, M]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return nil
	case stateServing:
		return &BusError{Op: "close", Err: ErrAlreadyServing}
	}
	b.state = stateClosed

	b.admitSubscribers()
	dropped := b.eventReceiver.Len()

	b.eventReceiver.Close()
	b.subscriptionReceiver.Close()
	b.eventSender.Close()
	b.subscriptionSender.Close()

	for _, sub := range b.subscribers {
		sub.Close()
	}
	released := len(b.subscribers)
	clear(b.subscribers)
	b.subscribers = nil
	b.opts.metrics.observeRoster(0, 0, 0)

	b.log.Info().
		Int("subscribers_released", released).
		Int("events_dropped", dropped).
		Msg("Event bus closed")
	return nil
}

func (b *Bus[D, M]) transition(op string, to busState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.state == stateClosed:
		return &BusError{Op: op, Err: ErrBusClosed}
	case to == stateServing && b.state == stateServing:
		return &BusError{Op: op, Err: ErrAlreadyServing}
	}
	b.state = to
	return nil
}
