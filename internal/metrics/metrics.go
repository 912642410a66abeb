package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CityGroupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tango_city_groups_created_total",
		Help: "Total number of city groups created on demand.",
	})

	EventAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tango_event_group_assignments_total",
		Help: "Event to group assignment attempts, labelled by type and outcome.",
	}, []string{"assignment_type", "outcome"})

	GroupMembershipFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tango_group_membership_failures_total",
		Help: "Membership inserts that failed after a group was created.",
	})

	ComplianceAudits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tango_compliance_audits_total",
		Help: "Compliance audit runs, labelled by audit type and status.",
	}, []string{"audit_type", "status"})

	ComplianceOverallScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tango_compliance_overall_score",
		Help: "Overall score of the most recent compliance audit (0-100).",
	})

	ComplianceAuditDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tango_compliance_audit_duration_ms",
		Help:    "Compliance audit execution time in milliseconds.",
		Buckets: []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000},
	})
)

// Assignment outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeExisting = "existing"
	OutcomeFailed   = "failed"
)
