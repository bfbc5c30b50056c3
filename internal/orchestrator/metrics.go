package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"

	"fleetd/internal/job"
)

var (
	metricBatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetd",
		Name:      "batches_total",
		Help:      "Executed batches by outcome.",
	}, []string{"outcome"})
	metricJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetd",
		Name:      "instances_processed_total",
		Help:      "Per-instance job runs by status.",
	}, []string{"status"})
	metricBatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fleetd",
		Name:      "batch_duration_seconds",
		Help:      "Wall time of whole batch runs.",
		Buckets:   prometheus.ExponentialBuckets(30, 2, 8),
	})
)

func init() {
	prometheus.MustRegister(metricBatches, metricJobs, metricBatchDuration)
}

func observeBatch(results BatchResults) {
	outcome := "ok"
	switch {
	case results.Processed() == 0:
		outcome = "failed"
	case results.SuccessRate < 1:
		outcome = "partial"
	}
	metricBatches.WithLabelValues(outcome).Inc()
	metricBatchDuration.Observe(results.Duration.Seconds())
}

func observeJobs(jobs map[int]job.Result) {
	for _, jr := range jobs {
		switch {
		case jr.Success:
			metricJobs.WithLabelValues("ok").Inc()
		case jr.TimedOut:
			metricJobs.WithLabelValues("timeout").Inc()
		default:
			metricJobs.WithLabelValues("failed").Inc()
		}
	}
}
