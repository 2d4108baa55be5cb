// Package metrics exposes Prometheus instrumentation for the advisor
// pipeline. All collectors are registered at init and updated by the
// orchestrator and lifecycle manager as the pipeline runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/capacitylab/fleet-advisor/pkg/models"
)

var (
	SamplesCollected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "advisor_samples_collected_total",
		Help: "Total number of metric samples collected.",
	})

	SampleFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "advisor_sample_failures_total",
		Help: "Total number of failed sample collections.",
	})

	CurrentLoadScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "advisor_load_score",
		Help: "Composite load score of the most recent sample.",
	})

	CurrentCPUPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "advisor_cpu_percent",
		Help: "CPU utilization of the most recent sample.",
	})

	CurrentMemoryPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "advisor_memory_percent",
		Help: "Memory utilization of the most recent sample.",
	})

	ForecastsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "advisor_forecasts_total",
		Help: "Total number of demand forecasts generated.",
	})

	AnomaliesDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "advisor_anomalies_detected_total",
		Help: "Total number of anomalous samples flagged.",
	})

	ModelTrained = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "advisor_model_trained",
		Help: "Whether the demand forecast model is trained (1) or not (0).",
	})

	DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "advisor_decisions_total",
		Help: "Total scaling decisions made, by action.",
	}, []string{"action"})

	ExecutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "advisor_executions_total",
		Help: "Total scaling executions, by action and status.",
	}, []string{"action", "status"})

	ExecutionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "advisor_execution_duration_seconds",
		Help:    "Duration of scaling executions in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	CurrentInstances = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "advisor_current_instances",
		Help: "Number of instances in the managed resource pool.",
	})

	HourlyCost = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "advisor_hourly_cost_dollars",
		Help: "Estimated hourly cost of the managed resource pool.",
	})
)

func init() {
	prometheus.MustRegister(
		SamplesCollected,
		SampleFailures,
		CurrentLoadScore,
		CurrentCPUPercent,
		CurrentMemoryPercent,
		ForecastsGenerated,
		AnomaliesDetected,
		ModelTrained,
		DecisionsTotal,
		ExecutionsTotal,
		ExecutionDuration,
		CurrentInstances,
		HourlyCost,
	)
}

// RecordSample updates the per-sample gauges and counters.
func RecordSample(sample *models.MetricSample) {
	SamplesCollected.Inc()
	CurrentLoadScore.Set(sample.LoadScore)
	CurrentCPUPercent.Set(sample.CPUPercent)
	CurrentMemoryPercent.Set(sample.MemoryPercent)
}

// RecordExecution updates the execution counters and histogram.
func RecordExecution(result *models.ExecutionResult) {
	ExecutionsTotal.WithLabelValues(string(result.Action), string(result.Status)).Inc()
	ExecutionDuration.Observe(result.ExecutionTimeSeconds)
}
