package counting

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	countingsPerformed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "electiond",
		Name:      "countings_total",
		Help:      "Counting runs by outcome",
	}, []string{"status"})
	resultsFinalized = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "electiond",
		Name:      "results_finalized_total",
		Help:      "Result versions marked final",
	})
	auditAppendFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "electiond",
		Name:      "audit_append_failures_total",
		Help:      "Audit ledger appends that failed and were swallowed",
	})
)

func init() {
	prometheus.MustRegister(countingsPerformed, resultsFinalized, auditAppendFailures)
}
