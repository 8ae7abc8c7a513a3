package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("dropped")
	logger.Warn("kept", "request_id", "abc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "abc", rec["request_id"])
}

func TestTemporalSlogAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	a := NewTemporalSlogAdapter(NewLogger(&buf, "debug"))
	a.With("workflow", "batch").(*TemporalSlogAdapter).Info("started")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "batch", rec["workflow"])
}

func TestMetrics_PrometheusExport(t *testing.T) {
	setup, err := InitMeter("pbias-test", false)
	require.NoError(t, err)
	defer setup.Shutdown(context.Background())

	m, err := NewMetrics(setup.Provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordScore(ctx, "api", 20*time.Millisecond, &domain.ScoreResult{PBIASScore: 4.2, Metric: domain.MetricPBIAS}, nil)
	m.RecordScore(ctx, "api", time.Millisecond, nil, domain.ParseError("bad"))
	m.RecordUpload(ctx, 2048)
	m.RecordGroundTruthLoad(ctx, "reload", errors.New("gone"))
	m.RecordActivity(ctx, "ScoreSubmission")

	rec := httptest.NewRecorder()
	setup.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "pbias_score_requests_total")
	assert.Contains(t, text, `outcome="parse_error"`)
	assert.Contains(t, text, "pbias_activity_calls_total")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordScore(context.Background(), "api", time.Second, nil, nil)
		m.RecordUpload(context.Background(), 1)
		m.RecordGroundTruthLoad(context.Background(), "lazy", nil)
		m.RecordActivity(context.Background(), "x")
	})
}
