package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdi1d",
			Subsystem: "manager",
			Name:      "loads_total",
			Help:      "Pipeline loads by variant and result",
		},
		[]string{"variant", "result"},
	)

	loadFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdi1d",
			Subsystem: "manager",
			Name:      "load_fallbacks_total",
			Help:      "Loads retried with the reduced configuration",
		},
		[]string{"variant"},
	)

	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdi1d",
			Subsystem: "manager",
			Name:      "load_duration_seconds",
			Help:      "Time to bring a pipeline into memory",
			Buckets:   []float64{0.1, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"variant"},
	)

	loadedVariant = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hdi1d",
			Subsystem: "manager",
			Name:      "loaded_variant",
			Help:      "1 for the currently loaded variant, 0 otherwise",
		},
		[]string{"variant"},
	)

	admissionRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdi1d",
			Subsystem: "manager",
			Name:      "admission_rejects_total",
			Help:      "Requests refused by the admission gate",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadFallbacksTotal, loadDuration, loadedVariant, admissionRejects)
}
