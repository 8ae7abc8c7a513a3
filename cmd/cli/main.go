// Command pbias is a CLI for scoring submissions and managing batch scoring
// workflows.
//
// Usage:
//
//	pbias score        --submission URI [--groundtruth URI] [--start-column N] [--end-column N]
//	pbias default-info
//	pbias batch start  --submission ID=URI ... [--manifest FILE] [--groundtruth URI]
//	pbias batch status --id BATCH
//	pbias batch list   [--status Running]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/pbias-leaderboard/pbias-go/internal/bootstrap"
	"github.com/pbias-leaderboard/pbias-go/internal/config"
	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/observability"
	"github.com/pbias-leaderboard/pbias-go/internal/scoring"
	"github.com/pbias-leaderboard/pbias-go/internal/storage"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/querier"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/workflows"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "score":
		cmdScore(os.Args[2:])
	case "default-info":
		cmdDefaultInfo(os.Args[2:])
	case "batch":
		if len(os.Args) < 3 {
			usage()
		}
		switch os.Args[2] {
		case "start":
			cmdBatchStart(os.Args[3:])
		case "status":
			cmdBatchStatus(os.Args[3:])
		case "list":
			cmdBatchList(os.Args[3:])
		default:
			usage()
		}
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pbias <score|default-info|batch start|batch status|batch list> [flags]")
	os.Exit(1)
}

func loadConfig() config.Config {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	slog.SetDefault(observability.NewLogger(os.Stderr, cfg.LogLevel))
	return cfg
}

func openStorage(ctx context.Context, cfg config.Config) *bootstrap.Storage {
	st, err := bootstrap.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	return st
}

func querierFor(cfg config.Config) (*querier.TemporalQuerier, func()) {
	c, err := bootstrap.DialTemporal(cfg, slog.Default())
	if err != nil {
		log.Fatalf("unable to create Temporal client: %v", err)
	}
	return querier.New(c), c.Close
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal output: %v", err)
	}
	fmt.Println(string(data))
}

func cmdScore(args []string) {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	submission := fs.String("submission", "", "submission CSV path or URI (required)")
	groundTruth := fs.String("groundtruth", "", "ground truth CSV path or URI (default: configured default)")
	start := fs.Int("start-column", 0, "first scored column, 1-based (0 = configured)")
	end := fs.Int("end-column", 0, "last scored column, 1-based (0 = configured)")
	_ = fs.Parse(args)

	if *submission == "" {
		fs.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	cfg := loadConfig()
	engine, err := bootstrap.NewEngine(cfg)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	st := openStorage(ctx, cfg)
	defer st.Close()

	req := scoring.Request{}
	req.Submission, err = storage.ReadAll(ctx, st, *submission, cfg.MaxUploadBytes)
	if err != nil {
		log.Fatalf("read submission: %v", err)
	}
	if *groundTruth != "" {
		req.GroundTruth, err = storage.ReadAll(ctx, st, *groundTruth, cfg.MaxUploadBytes)
		if err != nil {
			log.Fatalf("read ground truth: %v", err)
		}
	} else {
		ds, err := bootstrap.NewDefaults(cfg, st).Get(ctx)
		if err != nil {
			log.Fatalf("default ground truth: %v", err)
		}
		req.GroundTruth = ds.Data
		req.UsedDefault = true
	}
	if *start != 0 || *end != 0 {
		rng := cfg.ColumnRange()
		if *start != 0 {
			rng.Start = *start
		}
		if *end != 0 {
			rng.End = *end
		}
		req.Range = &rng
	}

	res, err := engine.Score(ctx, req)
	if err != nil {
		if de := domain.AsError(err); de != nil {
			printJSON(map[string]any{"error": de.Message, "kind": de.Kind, "details": de.Details})
			os.Exit(1)
		}
		log.Fatalf("score: %v", err)
	}
	printJSON(res)
}

func cmdDefaultInfo(args []string) {
	fs := flag.NewFlagSet("default-info", flag.ExitOnError)
	_ = fs.Parse(args)

	ctx := context.Background()
	cfg := loadConfig()
	st := openStorage(ctx, cfg)
	defer st.Close()

	printJSON(bootstrap.NewDefaults(cfg, st).Info(ctx))
}

// submissionList collects repeated --submission ID=URI flags.
type submissionList []workflows.BatchSubmission

func (l *submissionList) String() string { return fmt.Sprint(len(*l)) }

func (l *submissionList) Set(v string) error {
	id, uri, ok := strings.Cut(v, "=")
	if !ok || id == "" || uri == "" {
		return fmt.Errorf("want ID=URI, got %q", v)
	}
	*l = append(*l, workflows.BatchSubmission{ID: id, URI: uri})
	return nil
}

func cmdBatchStart(args []string) {
	fs := flag.NewFlagSet("batch start", flag.ExitOnError)
	var subs submissionList
	fs.Var(&subs, "submission", "submission as ID=URI (repeatable)")
	manifest := fs.String("manifest", "", "JSON file holding a list of {\"id\",\"uri\"} submissions")
	groundTruth := fs.String("groundtruth", "", "ground truth URI (default: worker's default)")
	parallelism := fs.Int("parallelism", 0, "concurrent scoring activities (0 = workflow default)")
	_ = fs.Parse(args)

	if *manifest != "" {
		data, err := os.ReadFile(*manifest)
		if err != nil {
			log.Fatalf("read manifest: %v", err)
		}
		var fromFile []workflows.BatchSubmission
		if err := json.Unmarshal(data, &fromFile); err != nil {
			log.Fatalf("parse manifest: %v", err)
		}
		subs = append(subs, fromFile...)
	}
	if len(subs) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	cfg := loadConfig()
	q, closeFn := querierFor(cfg)
	defer closeFn()

	handle, err := q.StartBatch(context.Background(), workflows.BatchInput{
		GroundTruthURI: *groundTruth,
		Submissions:    subs,
		Parallelism:    *parallelism,
	})
	if err != nil {
		log.Fatalf("failed to start batch: %v", err)
	}
	fmt.Printf("started batch %s (run=%s)\n", handle.BatchID, handle.RunID)
}

func cmdBatchStatus(args []string) {
	fs := flag.NewFlagSet("batch status", flag.ExitOnError)
	id := fs.String("id", "", "batch ID (required)")
	_ = fs.Parse(args)

	if *id == "" {
		fs.Usage()
		os.Exit(1)
	}

	cfg := loadConfig()
	q, closeFn := querierFor(cfg)
	defer closeFn()

	state, err := q.GetBatchState(context.Background(), *id)
	if err != nil {
		log.Fatalf("failed to get batch state: %v", err)
	}
	printJSON(state)
}

func cmdBatchList(args []string) {
	fs := flag.NewFlagSet("batch list", flag.ExitOnError)
	status := fs.String("status", "", "filter by workflow status (e.g. Running, Completed)")
	limit := fs.Int("limit", 20, "maximum results")
	_ = fs.Parse(args)

	cfg := loadConfig()
	q, closeFn := querierFor(cfg)
	defer closeFn()

	batches, err := q.ListWorkflows(context.Background(), querier.ListOptions{StatusFilter: *status, PageSize: *limit})
	if err != nil {
		log.Fatalf("failed to list batches: %v", err)
	}
	printJSON(batches)
}
