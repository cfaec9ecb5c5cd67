// Package metrics exposes the Prometheus counters and gauges that track
// job throughput, queue depth, and classifier latency.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	JobsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aegis_jobs_total",
		Help: "Total triage jobs processed, labeled by terminal status.",
	}, []string{"status"})

	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aegis_queue_depth",
		Help: "Current depth of each queue lane.",
	}, []string{"lane"})

	ClassifierLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "aegis_classifier_latency_seconds",
		Help:    "Latency of LLM classification calls.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(JobsProcessed, QueueDepth, ClassifierLatency)
}
