package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openlearnhq/learning-paths/pkg/enums"
)

// EnrollmentMetrics counts state machine transitions and group sync outcomes.
type EnrollmentMetrics struct {
	transitions *prometheus.CounterVec
	groupSync   *prometheus.CounterVec
	bulkItems   *prometheus.CounterVec
}

// NewEnrollmentMetrics registers the enrollment metrics on the provided
// registerer. A nil registerer yields a no-op collector, which keeps tests
// and optional wiring simple.
func NewEnrollmentMetrics(reg prometheus.Registerer) *EnrollmentMetrics {
	if reg == nil {
		return &EnrollmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_transitions_total",
		Help: "Enrollment state transitions recorded in the audit ledger.",
	}, []string{"transition"})
	groupSync := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "group_course_sync_total",
		Help: "Group-driven course enrollment operations by outcome.",
	}, []string{"status"})
	bulkItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulk_enrollment_items_total",
		Help: "Items processed by bulk enrollment operations.",
	}, []string{"operation"})
	reg.MustRegister(transitions, groupSync, bulkItems)
	return &EnrollmentMetrics{
		transitions: transitions,
		groupSync:   groupSync,
		bulkItems:   bulkItems,
	}
}

// ObserveTransition counts one audit row with the given label.
func (m *EnrollmentMetrics) ObserveTransition(label enums.StateTransition) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(label.String()).Inc()
}

// ObserveGroupSync counts one group-driven course operation outcome.
func (m *EnrollmentMetrics) ObserveGroupSync(status enums.GroupAuditStatus) {
	if m == nil || m.groupSync == nil {
		return
	}
	m.groupSync.WithLabelValues(status.String()).Inc()
}

// ObserveBulkItem counts one processed item for the named bulk operation.
func (m *EnrollmentMetrics) ObserveBulkItem(operation string) {
	if m == nil || m.bulkItems == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.bulkItems.WithLabelValues(operation).Inc()
}
