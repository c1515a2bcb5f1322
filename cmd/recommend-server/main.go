// cmd/recommend-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/api"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/catalog"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/camunda"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/config"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/database"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/logger"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/metrics"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/observability"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/matcher"
	rp "github.com/ChoeSuBin129/weather-date-mvp/internal/workers/places/recommend-places"
)

// retryWithBackoff attempts to execute a function with exponential backoff
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

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting recommend server...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name, cfg.App.Version, nil)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(ctx); err != nil {
			zapLog.Warn("observability shutdown failed", zap.Error(err))
		}
	}()

	ctx := context.Background()
	deps := catalog.Deps{Logger: log}
	var readyChecks []api.ReadyCheck

	// --- Catalog backing store ---
	switch cfg.Catalog.Source {
	case config.SourcePostgres:
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
		deps.Postgres = pg
		readyChecks = append(readyChecks, pingCheck(pg))

	case config.SourceRedis:
		redis := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")
		deps.Redis = redis
		readyChecks = append(readyChecks, pingCheck(redis))

	case config.SourceElastic:
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
		deps.Elasticsearch = es
		readyChecks = append(readyChecks, pingCheck(es))
	}

	// --- Catalog ---
	src, err := catalog.NewSource(cfg.Catalog, deps)
	if err != nil {
		zapLog.Fatal("catalog source init failed", zap.Error(err))
	}
	cat, loadErr := catalog.LoadWithTimeout(ctx, src, config.GetDuration(cfg.Catalog.Timeout), log)
	if loadErr == nil {
		metrics.CatalogPlaces.WithLabelValues(src.Describe()).Set(float64(cat.Len()))
	}
	// A failed load keeps the server up; requests answer DATA_UNAVAILABLE and /ready reports 503.
	provider := catalog.Fixed(cat, loadErr)

	m := matcher.New(cfg.Matcher.Weights, log)

	// --- Zeebe worker ---
	var recommendWorker *camunda.Worker
	var zeebeClient *camunda.Client
	if cfg.Camunda.Enabled {
		zeebeClient, err = camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda), log)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully", zap.String("broker", cfg.Camunda.BrokerAddress))

		handler := rp.NewHandler(rp.LoadConfig(cfg), m, provider, obs, log)
		recommendWorker = zeebeClient.StartWorker(rp.TaskType, handler, camunda.WorkerOptionsFrom(cfg.App.Name, cfg.Camunda))
		readyChecks = append(readyChecks, zeebeClient.HealthCheck)
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", rp.TaskType))
	}

	// --- HTTP server ---
	server := api.NewServer(api.Options{
		Matcher:       m,
		Catalog:       provider,
		Server:        cfg.Server,
		TopK:          cfg.Matcher.TopK,
		Logger:        log,
		Observability: obs,
		ReadyChecks:   readyChecks,
		Version:       cfg.App.Version,
	})
	httpServer := server.HTTPServer(":" + strconv.Itoa(cfg.Server.Port))

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if recommendWorker != nil {
		recommendWorker.Stop()
	}
	if zeebeClient != nil {
		if err := zeebeClient.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Recommend server stopped gracefully")
}

func pingCheck(p database.Pinger) api.ReadyCheck {
	return func(ctx context.Context) error {
		return database.PingAll(ctx, 2*time.Second, p)
	}
}
