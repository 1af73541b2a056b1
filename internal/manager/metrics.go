package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	gatewayStateGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "gatewayd",
			Subsystem: "gateway",
			Name:      "state",
			Help:      "Current gateway lifecycle state (1 for the active state)",
		},
		[]string{"state"},
	)

	startsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gatewayd",
		Subsystem: "gateway",
		Name:      "starts_total",
		Help:      "Total number of successful gateway spawns",
	})

	spawnFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gatewayd",
		Subsystem: "gateway",
		Name:      "spawn_failures_total",
		Help:      "Total number of failed gateway spawns",
	})

	crashesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gatewayd",
		Subsystem: "gateway",
		Name:      "crashes_total",
		Help:      "Total number of unexpected gateway exits",
	})

	logLinesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gatewayd",
		Subsystem: "gateway",
		Name:      "log_lines_total",
		Help:      "Total number of captured gateway output lines",
	})
)

func init() {
	prometheus.MustRegister(gatewayStateGauge, startsTotal, spawnFailuresTotal, crashesTotal, logLinesTotal)
}

func setStateGauge(s State) {
	for _, st := range allStates {
		v := 0.0
		if st == s {
			v = 1
		}
		gatewayStateGauge.WithLabelValues(string(st)).Set(v)
	}
}
