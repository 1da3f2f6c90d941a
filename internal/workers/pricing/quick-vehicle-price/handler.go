package quickvehicleprice

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"panta-workers/internal/common/errors"
	"panta-workers/internal/common/logger"
	"panta-workers/internal/common/metrics"
	"panta-workers/internal/common/validation"
	"panta-workers/internal/pricing"
)

const (
	TaskType = "quick-vehicle-price"
)

// Handler prices one vehicle with a throwaway calculator, so every job reads
// the tenant configuration afresh.
type Handler struct {
	config   *Config
	source   pricing.ConfigSource
	vehicles *validation.VehicleValidator
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, source pricing.ConfigSource, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		source:   source,
		vehicles: validation.NewVehicleValidator(time.Now),
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

	vehicle, result, err := h.vehicles.Decode(input.Vehicle)
	if err != nil {
		return nil, errors.NewInvalidVehicleInfoError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidVehicleInfoError(result.Summary())
	}

	total := pricing.GetQuickPrice(ctx, h.source, input.TenantID, vehicle, input.BasePrice, h.logger,
		pricing.WithFetchTimeout(h.config.FetchTimeout))

	metrics.PricingQuotes.WithLabelValues(TaskType).Inc()

	h.logger.Debug("quick price calculated", map[string]interface{}{
		"tenantId":   string(input.TenantID),
		"totalPrice": total,
	})

	return &Output{TotalPrice: total}, nil
}
