// Package bootstrap builds the runtime pieces shared by the binaries from
// a loaded Config.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.temporal.io/sdk/client"

	"github.com/pbias-leaderboard/pbias-go/internal/config"
	awsauth "github.com/pbias-leaderboard/pbias-go/internal/connectors/aws"
	"github.com/pbias-leaderboard/pbias-go/internal/connectors/aws/s3"
	"github.com/pbias-leaderboard/pbias-go/internal/connectors/gcs"
	"github.com/pbias-leaderboard/pbias-go/internal/grid"
	"github.com/pbias-leaderboard/pbias-go/internal/groundtruth"
	"github.com/pbias-leaderboard/pbias-go/internal/observability"
	"github.com/pbias-leaderboard/pbias-go/internal/scoring"
	"github.com/pbias-leaderboard/pbias-go/internal/storage"
)

// LoadOptions returns the table parse options for cfg.
func LoadOptions(cfg config.Config) grid.Options {
	opts := grid.DefaultOptions("")
	opts.Delimiter = cfg.Delimiter
	opts.EmptyAsZero = cfg.EmptyAsZero
	opts.Range = cfg.ColumnRange()
	return opts
}

// ScoringOptions returns the engine options for cfg.
func ScoringOptions(cfg config.Config) scoring.Options {
	return scoring.Options{
		Load:          LoadOptions(cfg),
		Metric:        cfg.Metric,
		SplitFraction: cfg.SplitFraction,
		SplitSeed:     cfg.SplitSeed,
		SeedStrategy:  cfg.SeedStrategy,
		Degenerate:    cfg.DegeneratePolicy,
	}
}

// NewEngine builds the scoring engine for cfg.
func NewEngine(cfg config.Config) (*scoring.Engine, error) {
	eng, err := scoring.New(ScoringOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("scoring engine: %w", err)
	}
	return eng, nil
}

// Storage is the object opener for file, s3 and gs URIs.
type Storage struct {
	*storage.Router
	// AWS is the resolved config, reused by other AWS connectors.
	AWS aws.Config
	gcs *gcs.Client
}

// NewStorage wires S3 through the AWS config for cfg and GCS through
// service-account or default credentials. GCS is left unconfigured, with a
// warning, when no credentials can be found.
func NewStorage(ctx context.Context, cfg config.Config) (*Storage, error) {
	awsCfg, err := awsauth.NewAWSConfig(ctx, cfg.AWSRegion, cfg.AWSProfile, cfg.AWSRoleARN)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	st := &Storage{Router: &storage.Router{S3: s3.New(awsCfg)}, AWS: awsCfg}

	gc, err := gcs.NewClient(ctx, cfg.GCSCredentials)
	if err != nil {
		if cfg.GCSCredentials != "" {
			return nil, err
		}
		slog.Warn("gcs disabled", "error", err)
		return st, nil
	}
	st.gcs = gc
	st.Router.GCS = gc
	return st, nil
}

// Close releases the GCS client.
func (s *Storage) Close() error {
	if s.gcs == nil {
		return nil
	}
	return s.gcs.Close()
}

// NewDefaults creates the default ground truth store for cfg. Reads are
// bounded by the upload limit.
func NewDefaults(cfg config.Config, opener storage.Opener) *groundtruth.Store {
	return groundtruth.NewStore(cfg.DefaultGroundTruth, opener, LoadOptions(cfg), cfg.MaxUploadBytes)
}

// WatchDefaults reloads store whenever its local file changes, until ctx
// is done. It returns a nil stop func when watching is disabled or the
// default is not a local file.
func WatchDefaults(ctx context.Context, cfg config.Config, store *groundtruth.Store, metrics *observability.Metrics) (func() error, error) {
	if !cfg.WatchDefault {
		return nil, nil
	}
	path, ok := storage.LocalPath(store.URI())
	if !ok {
		return nil, nil
	}

	w, err := groundtruth.NewWatcher(path, store, func() {
		_, err := store.Reload(ctx)
		metrics.RecordGroundTruthLoad(ctx, "watch", err)
		if err != nil {
			slog.Warn("default ground truth reload failed", "path", path, "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	go w.Run(ctx)
	return w.Close, nil
}

// DialTemporal connects to Temporal at cfg.TemporalHost (the SDK default
// when empty), logging through logger.
func DialTemporal(cfg config.Config, logger *slog.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalHost,
		Logger:   observability.NewTemporalSlogAdapter(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial: %w", err)
	}
	return c, nil
}
