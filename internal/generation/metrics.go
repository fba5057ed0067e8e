package generation

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdi1d",
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Generation requests by outcome (ok or error kind)",
		},
		[]string{"outcome"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdi1d",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "End-to-end duration of successful generations",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300, 600},
		},
		[]string{"variant"},
	)

	randomSeedsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hdi1d",
			Subsystem: "generation",
			Name:      "random_seeds_total",
			Help:      "Seeds drawn because the request asked for -1",
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, generationDuration, randomSeedsTotal)
}
