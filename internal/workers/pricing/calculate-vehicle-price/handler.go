package calculatevehicleprice

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"panta-workers/internal/common/errors"
	"panta-workers/internal/common/logger"
	"panta-workers/internal/common/metrics"
	"panta-workers/internal/common/observability"
	"panta-workers/internal/common/validation"
	"panta-workers/internal/pricing"
)

const (
	TaskType = "calculate-vehicle-price"
)

// QuoteRecorder persists calculated quotes.
type QuoteRecorder interface {
	IndexQuote(ctx context.Context, rec pricing.QuoteRecord) error
}

type Handler struct {
	config   *Config
	registry *pricing.Registry
	quotes   QuoteRecorder
	vehicles *validation.VehicleValidator
	obs      *observability.Observability
	errors   *errors.ErrorHandler
	logger   logger.Logger
	now      func() time.Time
}

// NewHandler builds the handler. quotes and obs may be nil.
func NewHandler(config *Config, registry *pricing.Registry, quotes QuoteRecorder, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		registry: registry,
		quotes:   quotes,
		vehicles: validation.NewVehicleValidator(time.Now),
		obs:      obs,
		errors:   errors.NewErrorHandler(log),
		logger:   log,
		now:      time.Now,
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

	h.completeJob(ctx, client, job, output)
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

	calc := h.registry.For(input.TenantID)
	priced, source := calc.Quote(ctx, vehicle, input.BasePrice)

	output := &Output{
		QuoteID:             uuid.NewString(),
		TenantID:            input.TenantID,
		ConfigurationSource: source,
		Result:              priced,
	}

	metrics.PricingQuotes.WithLabelValues(TaskType).Inc()
	h.obs.RecordQuote(ctx, string(input.TenantID), string(source), priced.TotalPrice)

	if h.shouldRecord(input) {
		h.recordQuote(ctx, vehicle, output)
	}

	h.logger.Info("vehicle price calculated", map[string]interface{}{
		"tenantId":            string(input.TenantID),
		"quoteId":             output.QuoteID,
		"totalPrice":          priced.TotalPrice,
		"configurationSource": string(source),
	})

	return output, nil
}

func (h *Handler) shouldRecord(input *Input) bool {
	if h.quotes == nil {
		return false
	}
	if input.RecordQuote != nil {
		return *input.RecordQuote
	}
	return h.config.RecordQuotes
}

// recordQuote never fails the job; a lost audit document is only logged.
func (h *Handler) recordQuote(ctx context.Context, vehicle pricing.VehicleInfo, output *Output) {
	rec := pricing.QuoteRecord{
		QuoteID:             output.QuoteID,
		TenantID:            output.TenantID,
		Vehicle:             vehicle,
		Result:              output.Result,
		ConfigurationSource: output.ConfigurationSource,
		CalculatedAt:        h.now().UTC(),
	}
	if err := h.quotes.IndexQuote(ctx, rec); err != nil {
		h.logger.Warn("failed to record quote", map[string]interface{}{
			"quoteId": output.QuoteID,
			"error":   err.Error(),
		})
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
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
