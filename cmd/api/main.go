// Command api runs the HTTP scoring API for the PBIAS leaderboard.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pbias-leaderboard/pbias-go/internal/api"
	"github.com/pbias-leaderboard/pbias-go/internal/bootstrap"
	"github.com/pbias-leaderboard/pbias-go/internal/config"
	"github.com/pbias-leaderboard/pbias-go/internal/observability"
	"github.com/pbias-leaderboard/pbias-go/internal/ratelimit"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/querier"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := observability.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTELEnabled {
		shutdown, err := observability.InitTracer(ctx, "pbias-api")
		if err != nil {
			logger.Error("otel init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	meter, err := observability.InitMeter("pbias-api", true)
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

	defaults := bootstrap.NewDefaults(cfg, store)
	stopWatch, err := bootstrap.WatchDefaults(ctx, cfg, defaults, metrics)
	if err != nil {
		logger.Warn("default ground truth watch disabled", "error", err)
	} else if stopWatch != nil {
		defer stopWatch()
	}

	limiter := ratelimit.NewClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	budget := ratelimit.NewSubmissionBudget(cfg.SubmissionBudget, cfg.SubmissionWindow)
	go pruneLimits(ctx, limiter, budget)

	deps := api.Deps{
		Engine:         engine,
		Defaults:       defaults,
		Limiter:        limiter,
		Budget:         budget,
		Metrics:        metrics,
		MetricsHandler: meter.Handler,
	}

	if cfg.TemporalHost != "" {
		c, err := bootstrap.DialTemporal(cfg, logger)
		if err != nil {
			logger.Error("unable to create Temporal client", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		deps.Batches = querier.New(c)
	}

	oidcCfg := api.OIDCConfig{
		IssuerURL: cfg.OIDCIssuer,
		Audience:  cfg.OIDCAudience,
		Enabled:   cfg.OIDCIssuer != "",
	}
	srv, err := api.New(ctx, deps, api.Options{
		CORSOrigins:    cfg.CORSOrigins,
		OIDC:           oidcCfg,
		MaxUploadBytes: cfg.MaxUploadBytes,
		ScoreTimeout:   cfg.ScoreTimeout,
		DefaultRange:   cfg.ColumnRange(),
	})
	if err != nil {
		logger.Error("api init failed", "error", err)
		os.Exit(1)
	}

	var handler http.Handler = srv
	if cfg.OTELEnabled {
		handler = otelhttp.NewHandler(handler, "pbias-api")
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", "error", err)
		}
	}()

	logger.Info("starting API server",
		"addr", httpSrv.Addr,
		"oidc_enabled", oidcCfg.Enabled,
		"batches_enabled", deps.Batches != nil,
		"default_groundtruth", cfg.DefaultGroundTruth,
	)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// pruneLimits drops idle client buckets and expired submission windows
// until ctx is done.
func pruneLimits(ctx context.Context, l *ratelimit.ClientLimiter, b *ratelimit.SubmissionBudget) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			clients, windows := l.Prune(30*time.Minute), b.Prune()
			if clients+windows > 0 {
				slog.Debug("pruned rate limit state", "clients", clients, "windows", windows)
			}
		}
	}
}
