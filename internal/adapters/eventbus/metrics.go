package eventbus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors a Bus reports to.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ingested   prometheus.Counter
	delivered  *prometheus.CounterVec
	evicted    prometheus.Counter
	admitted   prometheus.Counter
	subscribed prometheus.Gauge
}

// NewMetrics registers the bus collectors on reg.
// Labels carry the message kind only; subscriber IDs never become labels.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ingested: f.NewCounter(prometheus.CounterOpts{
			Name: "eventrelay_bus_events_ingested_total",
			Help: "Total number of events taken off the intake queue.",
		}),
		delivered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventrelay_bus_deliveries_total",
			Help: "Total number of successful deliveries to subscribers, by kind.",
		}, []string{"kind"}),
		evicted: f.NewCounter(prometheus.CounterOpts{
			Name: "eventrelay_bus_evictions_total",
			Help: "Total number of subscribers removed after a failed delivery.",
		}),
		admitted: f.NewCounter(prometheus.CounterOpts{
			Name: "eventrelay_bus_subscribers_admitted_total",
			Help: "Total number of subscribers admitted to the roster.",
		}),
		subscribed: f.NewGauge(prometheus.GaugeOpts{
			Name: "eventrelay_bus_subscribers",
			Help: "Current number of subscribers on the roster.",
		}),
	}
}

func (m *Metrics) observeIngested() {
	if m == nil {
		return
	}
	m.ingested.Inc()
}

func (m *Metrics) observeDelivered(kind any, n int) {
	if m == nil || n == 0 {
		return
	}
	m.delivered.WithLabelValues(fmt.Sprint(kind)).Add(float64(n))
}

func (m *Metrics) observeRoster(admitted, evicted, size int) {
	if m == nil {
		return
	}
	m.admitted.Add(float64(admitted))
	m.evicted.Add(float64(evicted))
	m.subscribed.Set(float64(size))
}
