package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"panta-workers/internal/common/camunda"
	"panta-workers/internal/common/config"
	"panta-workers/internal/common/database"
	"panta-workers/internal/common/logger"
	"panta-workers/internal/common/observability"
	"panta-workers/internal/pricing"
	"panta-workers/internal/pricing/store"
	cvp "panta-workers/internal/workers/pricing/calculate-vehicle-price"
	qvp "panta-workers/internal/workers/pricing/quick-vehicle-price"
	rpc "panta-workers/internal/workers/pricing/resolve-pricing-config"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output).With(
		zap.String("service", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	connectCtx, cancelConnect := context.WithTimeout(ctx, 2*time.Minute)
	zeebe, err := camunda.NewClientWithConfig(connectCtx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	})
	cancelConnect()
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	rdb := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled() {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return esClient.Ping(pingCtx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")

		indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = esClient.EnsureIndex(indexCtx, cfg.Pricing.QuoteIndex, store.QuoteIndexMapping)
		cancel()
		if err != nil {
			zapLog.Fatal("quote index setup failed", zap.Error(err), zap.String("index", cfg.Pricing.QuoteIndex))
		}
	}

	fetchTimeout := config.GetDuration(cfg.Pricing.ConfigFetchTimeout)
	cacheTTL := config.GetDuration(cfg.Pricing.CacheTTL)
	source := store.NewCachedSource(
		store.NewPostgresSource(pg.DB),
		rdb.Client,
		cacheTTL,
		log,
	)
	// calculators live as long as the cached record so table edits reach every worker
	registry := pricing.NewRegistry(source, log,
		pricing.WithFetchTimeout(fetchTimeout),
		pricing.WithEntryTTL(cacheTTL),
	)

	var jobWorkers []worker.JobWorker
	start := func(taskType string, handler worker.JobHandler) {
		w := camunda.StartWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handler, obs, zapLog)
		if w != nil {
			jobWorkers = append(jobWorkers, w)
		}
	}

	{
		wcfg := config.GetWorkerConfig(cfg, cvp.TaskType)
		var quotes cvp.QuoteRecorder
		if esClient != nil {
			quotes = store.NewQuoteIndex(esClient.Client, cfg.Pricing.QuoteIndex)
		}
		handler := cvp.NewHandler(
			&cvp.Config{
				Timeout:      config.GetDuration(wcfg.Timeout),
				RecordQuotes: cfg.Pricing.RecordQuotes,
			},
			registry, quotes, obs, log,
		)
		start(cvp.TaskType, handler.Handle)
	}

	{
		wcfg := config.GetWorkerConfig(cfg, qvp.TaskType)
		handler := qvp.NewHandler(
			&qvp.Config{
				Timeout:      config.GetDuration(wcfg.Timeout),
				FetchTimeout: fetchTimeout,
			},
			source, log,
		)
		start(qvp.TaskType, handler.Handle)
	}

	{
		wcfg := config.GetWorkerConfig(cfg, rpc.TaskType)
		handler := rpc.NewHandler(
			&rpc.Config{
				Timeout: config.GetDuration(wcfg.Timeout),
			},
			registry, source, log,
		)
		start(rpc.TaskType, handler.Handle)
	}

	zapLog.Info("Pricing workers registered", zap.Int("count", len(jobWorkers)))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]interface{}{"postgres": "ok", "redis": "ok"}
		status := http.StatusOK
		if err := pg.Ping(checkCtx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(checkCtx); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		checks["postgresPool"] = pg.Stats()
		checks["time"] = time.Now().Format(time.RFC3339)
		if status == http.StatusOK {
			checks["status"] = "ready"
		} else {
			checks["status"] = "not ready"
		}
		writeStatus(w, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.App.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range jobWorkers {
		w.Close()
		w.AwaitClose()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
