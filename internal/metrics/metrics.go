package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	BookingsCreated      prometheus.Counter
	BookingConflicts     prometheus.Counter
	BookingTransitions   *prometheus.CounterVec
	SoftLocksAcquired    prometheus.Counter
	SoftLocksRefused     prometheus.Counter
	SoftLocksExpired     prometheus.Counter
	PenaltiesCreated     *prometheus.CounterVec
	NotificationsEmitted *prometheus.CounterVec
	NotificationFailures prometheus.Counter
	RatingRecomputations prometheus.Counter
	SweepDuration        *prometheus.HistogramVec
	SweepErrors          *prometheus.CounterVec
}

// New creates the collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		BookingsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total number of bookings created",
		}),
		BookingConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "booking_conflicts_total",
			Help: "Total number of booking attempts rejected with an overlapping window",
		}),
		BookingTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking lifecycle transitions by target status",
		}, []string{"status"}),
		SoftLocksAcquired: f.NewCounter(prometheus.CounterOpts{
			Name: "soft_locks_acquired_total",
			Help: "Total number of soft locks acquired",
		}),
		SoftLocksRefused: f.NewCounter(prometheus.CounterOpts{
			Name: "soft_locks_refused_total",
			Help: "Soft lock attempts refused because another user holds the resource",
		}),
		SoftLocksExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "soft_locks_expired_total",
			Help: "Soft locks removed by the expiry sweep",
		}),
		PenaltiesCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "penalties_created_total",
			Help: "Penalties created by kind",
		}, []string{"kind"}),
		NotificationsEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_emitted_total",
			Help: "Notification intents emitted by kind",
		}, []string{"kind"}),
		NotificationFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "notification_dispatch_failures_total",
			Help: "Notification intents that could not be handed to the dispatcher",
		}),
		RatingRecomputations: f.NewCounter(prometheus.CounterOpts{
			Name: "rating_recomputations_total",
			Help: "Total number of rating snapshots written",
		}),
		SweepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Sweep execution duration in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 30},
		}, []string{"job"}),
		SweepErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_errors_total",
			Help: "Sweeps that ended with an error",
		}, []string{"job"}),
	}
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordBookingCreated() {
	if m == nil {
		return
	}
	m.BookingsCreated.Inc()
}

func (m *Metrics) RecordBookingConflict() {
	if m == nil {
		return
	}
	m.BookingConflicts.Inc()
}

func (m *Metrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.BookingTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordSoftLockAcquired() {
	if m == nil {
		return
	}
	m.SoftLocksAcquired.Inc()
}

func (m *Metrics) RecordSoftLockRefused() {
	if m == nil {
		return
	}
	m.SoftLocksRefused.Inc()
}

func (m *Metrics) RecordSoftLocksExpired(n int) {
	if m == nil {
		return
	}
	m.SoftLocksExpired.Add(float64(n))
}

func (m *Metrics) RecordPenaltyCreated(kind string) {
	if m == nil {
		return
	}
	m.PenaltiesCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordNotification(kind string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.NotificationFailures.Inc()
		return
	}
	m.NotificationsEmitted.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordRatingRecomputed() {
	if m == nil {
		return
	}
	m.RatingRecomputations.Inc()
}

// RecordSweep records one sweep run
func (m *Metrics) RecordSweep(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.SweepDuration.WithLabelValues(job).Observe(duration.Seconds())
	if err != nil {
		m.SweepErrors.WithLabelValues(job).Inc()
	}
}
