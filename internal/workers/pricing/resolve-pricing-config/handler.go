package resolvepricingconfig

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"panta-workers/internal/common/errors"
	"panta-workers/internal/common/logger"
	"panta-workers/internal/common/metrics"
	"panta-workers/internal/pricing"
)

const (
	TaskType = "resolve-pricing-config"
)

// CacheInvalidator drops a tenant's cached configuration.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tenantID pricing.TenantID) error
}

type Handler struct {
	config   *Config
	registry *pricing.Registry
	cache    CacheInvalidator
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

// NewHandler builds the handler. cache may be nil when no shared cache is in use.
func NewHandler(config *Config, registry *pricing.Registry, cache CacheInvalidator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		registry: registry,
		cache:    cache,
		errors:   errors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		if stderrors.Is(err, pricing.ErrInvalidTenantID) {
			h.errors.HandleJobError(ctx, client, job, errors.NewInvalidTenantIDError(err.Error()))
			return
		}
		h.errors.HandleJobError(ctx, client, job, errors.NewParseError(err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.TenantID == "" {
		return nil, errors.NewInvalidTenantIDError("tenantId is required")
	}

	calc := h.registry.For(input.TenantID)

	var (
		cfg    pricing.Configuration
		origin pricing.ConfigOrigin
	)
	if input.ForceRefresh {
		if h.cache != nil {
			if err := h.cache.Invalidate(ctx, input.TenantID); err != nil {
				return nil, errors.NewCacheInvalidationFailedError(string(input.TenantID), err)
			}
		}
		cfg, origin = calc.Refresh(ctx)
	} else {
		cfg, origin = calc.Configuration(ctx)
	}

	h.logger.Info("pricing configuration resolved", map[string]interface{}{
		"tenantId":            string(input.TenantID),
		"configurationSource": string(origin),
		"refreshed":           input.ForceRefresh,
	})

	return &Output{
		TenantID:            input.TenantID,
		Configuration:       cfg,
		ConfigurationSource: origin,
		Refreshed:           input.ForceRefresh,
	}, nil
}
