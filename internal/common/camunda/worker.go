package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"panta-workers/internal/common/config"
	"panta-workers/internal/common/metrics"
	"panta-workers/internal/common/observability"
)

// StartWorker opens a job worker for taskType. It returns nil when the worker is disabled.
func StartWorker(
	client zbc.Client,
	taskType string,
	wcfg config.WorkerConfig,
	handler worker.JobHandler,
	obs *observability.Observability,
	log *zap.Logger,
) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handler, obs)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)

	return jobWorker
}

// Instrument wraps handler with the active-jobs gauge, the duration histogram and a span.
func Instrument(taskType string, handler worker.JobHandler, obs *observability.Observability) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()
		defer active.Dec()

		_, span := obs.StartSpan(context.Background(), taskType,
			attribute.Int64("job.key", job.Key),
			attribute.Int64("process.instance.key", job.ProcessInstanceKey),
		)
		defer span.End()

		start := time.Now()
		timer := prometheus.NewTimer(metrics.WorkerJobDuration.WithLabelValues(taskType))
		defer func() {
			timer.ObserveDuration()
			obs.RecordJobDuration(context.Background(), taskType, time.Since(start))
		}()

		handler(client, job)
	}
}
