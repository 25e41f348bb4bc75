package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the church review workflow.
// Tracks profile lifecycle counts and the staging engine's critical path.
type Metrics struct {
	ProfilesCreated     prometheus.Counter
	ProfilesSubmitted   prometheus.Counter
	ProfilesApproved    prometheus.Counter
	FieldsPublished     prometheus.Counter
	FieldsStaged        prometheus.Counter
	PendingResolved     *prometheus.CounterVec
	ApplyUpdateDuration prometheus.Histogram
}

// New creates a new Metrics instance with all church module metrics registered.
func New() *Metrics {
	return &Metrics{
		ProfilesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visita_profiles_created_total",
			Help: "Total number of church profiles created",
		}),
		ProfilesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visita_profiles_submitted_total",
			Help: "Total number of profiles submitted for review",
		}),
		ProfilesApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visita_profiles_approved_total",
			Help: "Total number of profiles approved for publication",
		}),
		FieldsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visita_fields_published_total",
			Help: "Total number of fields published directly to live profiles",
		}),
		FieldsStaged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visita_fields_staged_total",
			Help: "Total number of fields staged into pending change sets",
		}),
		PendingResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "visita_pending_resolved_total",
			Help: "Total number of pending change sets resolved, by outcome",
		}, []string{"outcome"}),
		ApplyUpdateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "visita_apply_update_duration_seconds",
			Help:    "Duration of staged update operations (parish edit critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveApplyUpdate records the duration of an update through the staging
// engine. Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveApplyUpdate(start time.Time) {
	m.ApplyUpdateDuration.Observe(time.Since(start).Seconds())
}

// IncrementPendingResolved records a change-set resolution by outcome
// ("approved" or "rejected").
func (m *Metrics) IncrementPendingResolved(outcome string) {
	m.PendingResolved.WithLabelValues(outcome).Inc()
}
