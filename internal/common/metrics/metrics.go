package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	PricingConfigLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_config_loads_total",
			Help: "Pricing configuration loads by resulting source (tenant or default)",
		},
		[]string{"source"},
	)

	PricingQuotes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_quotes_total",
			Help: "Vehicle price quotes calculated",
		},
		[]string{"task_type"},
	)
)
