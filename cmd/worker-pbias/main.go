// Command worker-pbias runs the Temporal workers for batch scoring.
// Queues are selected with -queues (batch, score, or both).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"go.temporal.io/sdk/worker"

	"github.com/pbias-leaderboard/pbias-go/internal/bootstrap"
	"github.com/pbias-leaderboard/pbias-go/internal/config"
	"github.com/pbias-leaderboard/pbias-go/internal/connectors/aws/cloudwatch"
	"github.com/pbias-leaderboard/pbias-go/internal/observability"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/activities"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/queues"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/versioning"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/workflows"
)

func main() {
	queueFlag := flag.String("queues", os.Getenv("PBIAS_WORKER_QUEUES"), "comma-separated task queues to poll (batch, score)")
	flag.Parse()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logger := observability.InitLogger(cfg.LogLevel)

	names, err := queues.ParseQueues(*queueFlag)
	if err != nil {
		logger.Error("invalid queues", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if cfg.OTELEnabled {
		shutdown, err := observability.InitTracer(ctx, "pbias-worker")
		if err != nil {
			logger.Error("otel init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	meter, err := observability.InitMeter("pbias-worker", true)
	if err != nil {
		logger.Error("metrics init failed", "error", err)
		os.Exit(1)
	}
	defer meter.Shutdown(context.Background())
	metrics, err := observability.NewMetrics(meter.Provider)
	if err != nil {
		logger.Error("metrics init failed", "error", err)
		os.Exit(1)
	}

	engine, err := bootstrap.NewEngine(cfg)
	if err != nil {
		logger.Error("engine init failed", "error", err)
		os.Exit(1)
	}
	store, err := bootstrap.NewStorage(ctx, cfg)
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	acts := &activities.Activities{
		Engine:   engine,
		Opener:   store,
		Defaults: bootstrap.NewDefaults(cfg, store),
		Metrics:  metrics,
		MaxBytes: cfg.MaxUploadBytes,
	}
	if cfg.CloudWatchNamespace != "" {
		acts.Publisher = cloudwatch.New(store.AWS, cfg.CloudWatchNamespace)
	}

	c, err := bootstrap.DialTemporal(cfg, logger)
	if err != nil {
		logger.Error("unable to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	configs := queues.DefaultConfigs()
	var workers []worker.Worker
	for _, name := range names {
		w := worker.New(c, name, configs[name].Options)
		if name == versioning.QueueBatch {
			w.RegisterWorkflow(workflows.BatchScoreWorkflow)
		}
		w.RegisterActivity(acts)

		if err := w.Start(); err != nil {
			logger.Error("worker start failed", "queue", name, "error", err)
			os.Exit(1)
		}
		workers = append(workers, w)
		logger.Info("worker started", "queue", name, "publisher", acts.Publisher != nil)
	}

	<-worker.InterruptCh()
	for _, w := range workers {
		w.Stop()
	}
	logger.Info("workers stopped")
}
