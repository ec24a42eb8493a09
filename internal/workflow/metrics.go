package workflow

import (
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "forestgate"

const (
	outcomeApplied    = "applied"
	outcomeDenied     = "denied"
	outcomeNotFound   = "not_found"
	outcomeInvalid    = "invalid_transition"
	outcomeIncomplete = "incomplete"
	outcomeModified   = "modified"
	outcomeError      = "error"
)

var transitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "transitions_total",
		Help:      "Workflow actions by resource kind, action and outcome",
	},
	[]string{"kind", "action", "outcome"},
)

func recordTransition(kind domain.ResourceKind, action Action, outcome string) {
	transitionsTotal.WithLabelValues(string(kind), string(action), outcome).Inc()
}
