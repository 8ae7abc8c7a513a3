// parity-compare scores one submission locally and against a reference
// scorer (a running HTTP service or an external command), then prints a
// JSON field-by-field comparison.
// Exit code 0 = reports match. Exit code 1 = divergence detected. Exit code 2 = error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pbias-leaderboard/pbias-go/internal/bootstrap"
	"github.com/pbias-leaderboard/pbias-go/internal/config"
	"github.com/pbias-leaderboard/pbias-go/internal/observability"
	"github.com/pbias-leaderboard/pbias-go/internal/parity"
	"github.com/pbias-leaderboard/pbias-go/internal/storage"
)

func main() {
	submission := flag.String("submission", "", "submission CSV path or URI (required)")
	groundTruth := flag.String("groundtruth", "", "ground truth CSV path or URI (required)")
	refURL := flag.String("reference-url", "", "reference scoring endpoint, e.g. http://host/calculate_pbias")
	refCmd := flag.String("reference-cmd", "", "reference scoring command; file paths are appended")
	tolerance := flag.Float64("tolerance", parity.DefaultTolerance, "largest PBIAS difference treated as equal")
	localOnly := flag.Bool("local-only", false, "print the local report and skip the comparison")
	flag.Parse()

	if *submission == "" || *groundTruth == "" {
		fmt.Fprintln(os.Stderr, "error: --submission and --groundtruth are required")
		flag.Usage()
		os.Exit(2)
	}
	*refCmd = strings.TrimSpace(*refCmd)
	if !*localOnly && (*refURL == "") == (*refCmd == "") {
		fmt.Fprintln(os.Stderr, "error: exactly one of --reference-url or --reference-cmd is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := observability.NewLogger(os.Stderr, "info")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Error("config error", "error", err)
		os.Exit(2)
	}
	engine, err := bootstrap.NewEngine(cfg)
	if err != nil {
		logger.Error("engine init failed", "error", err)
		os.Exit(2)
	}
	store, err := bootstrap.NewStorage(ctx, cfg)
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(2)
	}
	defer store.Close()

	sub, err := storage.ReadAll(ctx, store, *submission, cfg.MaxUploadBytes)
	if err != nil {
		logger.Error("read submission failed", "error", err)
		os.Exit(2)
	}
	gt, err := storage.ReadAll(ctx, store, *groundTruth, cfg.MaxUploadBytes)
	if err != nil {
		logger.Error("read ground truth failed", "error", err)
		os.Exit(2)
	}

	logger.Info("running local scorer", "submission", *submission, "groundtruth", *groundTruth)
	local := &parity.LocalRunner{Engine: engine}
	localJSON, err := local.Run(ctx, sub, gt)
	if err != nil {
		logger.Error("local scorer failed", "error", err)
		os.Exit(2)
	}

	if *localOnly {
		fmt.Println(string(localJSON))
		return
	}

	var ref parity.Runner
	if *refURL != "" {
		logger.Info("running reference endpoint", "url", *refURL)
		ref = &parity.HTTPRunner{URL: *refURL, Client: &http.Client{Timeout: cfg.ScoreTimeout + 10*time.Second}}
	} else {
		parts := strings.Fields(*refCmd)
		logger.Info("running reference command", "command", parts[0])
		ref = &parity.CommandRunner{Path: parts[0], Args: parts[1:]}
	}
	refJSON, err := ref.Run(ctx, sub, gt)
	if err != nil {
		logger.Error("reference scorer failed", "error", err)
		os.Exit(2)
	}

	result, err := parity.Compare(localJSON, refJSON, *tolerance)
	if err != nil {
		logger.Error("comparison failed", "error", err)
		os.Exit(2)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("marshal result failed", "error", err)
		os.Exit(2)
	}
	fmt.Println(string(out))

	if !result.AllMatch {
		logger.Warn("divergence detected", "summary", result.Summary)
		os.Exit(1)
	}
	logger.Info("reports match")
}
