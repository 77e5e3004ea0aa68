package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los collectors del servicio. Cada instancia usa su propio
// registry para que los tests puedan crear varias sin colisiones.
type Metrics struct {
	registry *prometheus.Registry

	RemindersScheduled prometheus.Counter
	RemindersSkipped   prometheus.Counter
	Recomputations     prometheus.Counter
	Deliveries         prometheus.Counter
	DoseResponses      *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		RemindersScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medipal",
			Name:      "reminders_scheduled_total",
			Help:      "Daily reminder triggers registered with the notifier.",
		}),
		RemindersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medipal",
			Name:      "reminders_skipped_total",
			Help:      "Reminder times skipped because they could not be parsed or registered.",
		}),
		Recomputations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medipal",
			Name:      "schedule_recomputations_total",
			Help:      "Full schedule teardown-and-rebuild passes.",
		}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medipal",
			Name:      "notifications_delivered_total",
			Help:      "Notifications fired by the local scheduler.",
		}),
		DoseResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medipal",
			Name:      "dose_responses_total",
			Help:      "Notification responses processed, by action and outcome.",
		}, []string{"action", "outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medipal",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		m.RemindersScheduled,
		m.RemindersSkipped,
		m.Recomputations,
		m.Deliveries,
		m.DoseResponses,
		m.HTTPRequests,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
