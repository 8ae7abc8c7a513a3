package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbias-leaderboard/pbias-go/internal/config"
	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/storage"
	"github.com/pbias-leaderboard/pbias-go/internal/testutil"
)

func testConfig() config.Config {
	return config.Config{
		DefaultGroundTruth: "mem://gt.csv",
		MaxUploadBytes:     config.DefaultMaxUploadBytes,
		StartColumn:        6,
		EndColumn:          7,
		Delimiter:          ';',
		EmptyAsZero:        true,
		Metric:             domain.MetricAbsPBIAS,
		SplitFraction:      0.25,
		SplitSeed:          7,
		SeedStrategy:       domain.SeedFixed,
		DegeneratePolicy:   domain.DegenerateFail,
	}
}

func TestScoringOptions(t *testing.T) {
	opts := ScoringOptions(testConfig())

	assert.Equal(t, ';', opts.Load.Delimiter)
	assert.True(t, opts.Load.HasHeader)
	assert.True(t, opts.Load.EmptyAsZero)
	assert.Equal(t, domain.ColumnRange{Start: 6, End: 7}, opts.Load.Range)
	assert.Equal(t, domain.MetricAbsPBIAS, opts.Metric)
	assert.Equal(t, 0.25, opts.SplitFraction)
	assert.Equal(t, uint64(7), opts.SplitSeed)
	assert.Equal(t, domain.SeedFixed, opts.SeedStrategy)
	assert.Equal(t, domain.DegenerateFail, opts.Degenerate)
}

func TestNewEngine_RejectsBadRange(t *testing.T) {
	cfg := testConfig()
	cfg.StartColumn = 0

	_, err := NewEngine(cfg)
	require.Error(t, err)
}

func TestNewDefaults_UsesConfiguredURI(t *testing.T) {
	cfg := testConfig()
	cfg.Delimiter = ','
	mem := testutil.NewMemStore(map[string][]byte{
		"mem://gt.csv": testutil.CSV([][]float64{{1, 2}, {3, 4}}),
	})

	store := NewDefaults(cfg, mem)
	assert.Equal(t, "mem://gt.csv", store.URI())

	ds, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Shape{Rows: 2, Cols: 7}, ds.Shape)
}

func TestWatchDefaults_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.WatchDefault = false
	store := NewDefaults(cfg, testutil.NewMemStore(nil))

	stop, err := WatchDefaults(context.Background(), cfg, store, nil)
	require.NoError(t, err)
	assert.Nil(t, stop)
}

func TestWatchDefaults_RemoteURI(t *testing.T) {
	cfg := testConfig()
	cfg.WatchDefault = true
	cfg.DefaultGroundTruth = "s3://bucket/gt.csv"
	store := NewDefaults(cfg, testutil.NewMemStore(nil))

	stop, err := WatchDefaults(context.Background(), cfg, store, nil)
	require.NoError(t, err)
	assert.Nil(t, stop)
}

func TestWatchDefaults_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gt.csv")
	require.NoError(t, os.WriteFile(path, testutil.CSV([][]float64{{1}}), 0o600))

	cfg := testConfig()
	cfg.Delimiter = ','
	cfg.WatchDefault = true
	cfg.DefaultGroundTruth = path
	store := NewDefaults(cfg, &storage.Router{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop, err := WatchDefaults(ctx, cfg, store, nil)
	require.NoError(t, err)
	require.NotNil(t, stop)
	assert.NoError(t, stop())
}
