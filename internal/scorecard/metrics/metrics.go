package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the scorecard module.
// Tracks version lifecycle events: creation, activation, cleanup.
type Metrics struct {
	VersionsCreated     prometheus.Counter
	VersionsActivated   prometheus.Counter
	ActivationConflicts prometheus.Counter
	VersionsDeleted     prometheus.Counter
	VersionsRetained    prometheus.Counter
}

// New creates a new Metrics instance with all scorecard module metrics registered.
func New() *Metrics {
	return &Metrics{
		VersionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scorewise_scorecard_versions_created_total",
			Help: "Total number of scorecard versions created",
		}),
		VersionsActivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scorewise_scorecard_versions_activated_total",
			Help: "Total number of version activations",
		}),
		ActivationConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scorewise_scorecard_activation_conflicts_total",
			Help: "Total number of activations that lost a concurrent race",
		}),
		VersionsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scorewise_scorecard_versions_deleted_total",
			Help: "Total number of versions removed by cleanup",
		}),
		VersionsRetained: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scorewise_scorecard_versions_retained_total",
			Help: "Total number of cleanup candidates kept because an evaluation references them",
		}),
	}
}

// IncrementVersionCreated records a successful version creation.
func (m *Metrics) IncrementVersionCreated() {
	if m != nil {
		m.VersionsCreated.Inc()
	}
}

// IncrementVersionActivated records a successful activation.
func (m *Metrics) IncrementVersionActivated() {
	if m != nil {
		m.VersionsActivated.Inc()
	}
}

// IncrementActivationConflict records an activation lost to a concurrent writer.
func (m *Metrics) IncrementActivationConflict() {
	if m != nil {
		m.ActivationConflicts.Inc()
	}
}

// IncrementVersionDeleted records a version removed by cleanup.
func (m *Metrics) IncrementVersionDeleted() {
	if m != nil {
		m.VersionsDeleted.Inc()
	}
}

// IncrementVersionRetained records a cleanup candidate kept for audit integrity.
func (m *Metrics) IncrementVersionRetained() {
	if m != nil {
		m.VersionsRetained.Inc()
	}
}
