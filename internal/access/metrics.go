package access

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "forestgate"

var permissionDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "access",
		Name:      "decisions_total",
		Help:      "Permission checks by capability and outcome",
	},
	[]string{"capability", "decision"},
)

func recordDecision(c Capability, r reason) {
	label := string(c)
	if !c.IsValid() {
		label = "unknown"
	}
	permissionDecisions.WithLabelValues(label, string(r)).Inc()
}
