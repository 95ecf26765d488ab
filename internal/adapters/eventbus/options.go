package eventbus

// Option configures a Bus.
type Option func(*options)

type options struct {
	metrics  *Metrics
	busyPoll bool
}

// WithMetrics reports bus activity to m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithBusyPoll makes the loop spin on both intake queues instead of
// sleeping until one of them is ready.
func WithBusyPoll() Option {
	return func(o *options) {
		o.busyPoll = true
	}
}
