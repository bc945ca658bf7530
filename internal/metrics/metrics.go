package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lettercast/campaign-engine/internal/service"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	EmailsSent         prometheus.Counter
	EmailSendFailures  prometheus.Counter
	CampaignsFinalized prometheus.Counter
	CampaignsSending   prometheus.Gauge
	BatchDuration      prometheus.Histogram
	TrackingEvents     *prometheus.CounterVec
	TrackingDeduped    *prometheus.CounterVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EmailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total number of campaign emails accepted by the provider.",
		}),
		EmailSendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "email_send_failures_total",
			Help: "Total number of provider send failures.",
		}),
		CampaignsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaigns_finalized_total",
			Help: "Total number of campaigns completed to sent.",
		}),
		CampaignsSending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "campaigns_sending",
			Help: "Number of campaigns currently in the sending state.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_batch_seconds",
			Help:    "Wall-clock duration of one dispatch batch.",
			Buckets: prometheus.DefBuckets,
		}),
		TrackingEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracking_events_total",
			Help: "Total number of recorded engagement events.",
		}, []string{"action"}),
		TrackingDeduped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracking_events_deduplicated_total",
			Help: "Total number of engagement events suppressed by the dedup window.",
		}, []string{"action"}),
	}

	reg.MustRegister(
		m.EmailsSent,
		m.EmailSendFailures,
		m.CampaignsFinalized,
		m.CampaignsSending,
		m.BatchDuration,
		m.TrackingEvents,
		m.TrackingDeduped,
	)

	return m
}

// DispatchHooks returns the callbacks expected by service.MetricHooks.
// Centralises the prometheus observation calls so the service stays
// registry-free.
func (m *Metrics) DispatchHooks() service.MetricHooks {
	return service.MetricHooks{
		EmailSent:        m.EmailsSent.Inc,
		EmailSendFailure: m.EmailSendFailures.Inc,
		CampaignStarted:  m.CampaignsSending.Inc,
		CampaignFinalized: func() {
			m.CampaignsFinalized.Inc()
			m.CampaignsSending.Dec()
		},
		BatchDuration: m.BatchDuration.Observe,
	}
}

// TrackerHooks returns the callbacks expected by service.TrackerHooks.
func (m *Metrics) TrackerHooks() service.TrackerHooks {
	return service.TrackerHooks{
		EventRecorded: func(action string) {
			m.TrackingEvents.WithLabelValues(action).Inc()
		},
		EventDeduped: func(action string) {
			m.TrackingDeduped.WithLabelValues(action).Inc()
		},
	}
}
