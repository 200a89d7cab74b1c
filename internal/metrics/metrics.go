package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconcilerPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqdrop",
		Name:      "reconciler_passes_total",
		Help:      "Completed reconciliation passes per job.",
	}, []string{"job"})

	ReconcilerRowErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqdrop",
		Name:      "reconciler_row_errors_total",
		Help:      "Per-row failures skipped during reconciliation passes.",
	}, []string{"job"})

	RequestsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reqdrop",
		Name:      "requests_expired_total",
		Help:      "File requests transitioned to inactive by the expiry reconciler.",
	})

	ExpiryWarningsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reqdrop",
		Name:      "expiry_warnings_sent_total",
		Help:      "Expiry warning notifications sent.",
	})

	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reqdrop",
		Name:      "reminders_sent_total",
		Help:      "Upload reminder notifications sent.",
	})

	OrphanRequestsRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reqdrop",
		Name:      "orphan_requests_repaired_total",
		Help:      "Requests whose missing owner was resolved from the recipient email.",
	})

	AdmissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqdrop",
		Name:      "admission_decisions_total",
		Help:      "Request-creation admission outcomes.",
	}, []string{"outcome"})
)
