// Command mcp-pbias runs the MCP tool server for scoring and batch
// operations over stdio.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pbias-leaderboard/pbias-go/internal/bootstrap"
	"github.com/pbias-leaderboard/pbias-go/internal/config"
	"github.com/pbias-leaderboard/pbias-go/internal/mcpserver"
	"github.com/pbias-leaderboard/pbias-go/internal/observability"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/querier"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// stdout carries the protocol.
	logger := observability.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine, err := bootstrap.NewEngine(cfg)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	store, err := bootstrap.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	deps := mcpserver.Deps{
		Engine:   engine,
		Opener:   store,
		Defaults: bootstrap.NewDefaults(cfg, store),
		MaxBytes: cfg.MaxUploadBytes,
	}
	if cfg.TemporalHost != "" {
		c, err := bootstrap.DialTemporal(cfg, logger)
		if err != nil {
			log.Fatalf("unable to create Temporal client: %v", err)
		}
		defer c.Close()
		deps.Batches = querier.New(c)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pbias-leaderboard",
		Version: "v1.0.0",
	}, nil)
	mcpserver.RegisterTools(server, deps)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
