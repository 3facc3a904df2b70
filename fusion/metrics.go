package fusion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are package-level singletons, registered once at import time, the
// same pattern used for gauge registration elsewhere in the retrieval pack
// (a GaugeVec keyed by a label rather than one gauge per instance).
var (
	activeSensorsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sentinelfsm",
		Name:      "consensus_active_sensors",
		Help:      "Number of active (non-faulty, finite) sensors in the most recent consensus tick.",
	}, []string{"voter"})

	confidenceGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sentinelfsm",
		Name:      "consensus_confidence",
		Help:      "Confidence of the most recent consensus value, in [0, 1].",
	}, []string{"voter"})

	faultTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinelfsm",
		Name:      "fault_total",
		Help:      "Count of sticky fault latches observed, per channel or voter.",
	}, []string{"source"})
)
