package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EndpointRotations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guard_endpoint_rotations_total",
		Help: "Number of read-endpoint rotations",
	})

	ReadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "guard_read_latency_seconds",
		Help:    "Latency of deadline-bounded remote reads",
		Buckets: prometheus.DefBuckets,
	})

	GuardRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_rejections_total",
		Help: "Guard rejections by reason",
	}, []string{"reason"})

	PipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_pipeline_runs_total",
		Help: "Pipeline runs by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		EndpointRotations,
		ReadLatency,
		GuardRejections,
		PipelineRuns,
	)
}
