package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
)

// Metrics holds OTel metric instruments for the scoring service. A nil
// *Metrics records nothing.
type Metrics struct {
	ScoreRequests   metric.Int64Counter
	ScoreDuration   metric.Float64Histogram
	ScoreValue      metric.Float64Histogram
	UploadBytes     metric.Int64Histogram
	GroundTruthLoad metric.Int64Counter
	ActivityCalls   metric.Int64Counter
}

// NewMetrics creates the instruments on mp, or on the global provider when
// mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter("pbias")

	scoreRequests, err := meter.Int64Counter("pbias.score.requests",
		metric.WithDescription("Scoring requests by source and outcome"),
	)
	if err != nil {
		return nil, err
	}

	scoreDuration, err := meter.Float64Histogram("pbias.score.duration",
		metric.WithDescription("Wall time spent scoring a submission"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	scoreValue, err := meter.Float64Histogram("pbias.score.value",
		metric.WithDescription("Overall PBIAS of successfully scored submissions"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, err
	}

	uploadBytes, err := meter.Int64Histogram("pbias.upload.size",
		metric.WithDescription("Combined size of uploaded CSV files"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gtLoad, err := meter.Int64Counter("pbias.groundtruth.loads",
		metric.WithDescription("Default ground truth load attempts"),
	)
	if err != nil {
		return nil, err
	}

	activityCalls, err := meter.Int64Counter("pbias.activity.calls",
		metric.WithDescription("Number of activity invocations"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ScoreRequests:   scoreRequests,
		ScoreDuration:   scoreDuration,
		ScoreValue:      scoreValue,
		UploadBytes:     uploadBytes,
		GroundTruthLoad: gtLoad,
		ActivityCalls:   activityCalls,
	}, nil
}

// RecordScore records one scoring attempt. outcome is "ok" or the error kind.
func (m *Metrics) RecordScore(ctx context.Context, source string, d time.Duration, res *domain.ScoreResult, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	)
	m.ScoreRequests.Add(ctx, 1, attrs)
	m.ScoreDuration.Record(ctx, d.Seconds(), attrs)
	if err == nil && res != nil {
		m.ScoreValue.Record(ctx, res.PBIASScore,
			metric.WithAttributes(attribute.String("metric", string(res.Metric))))
	}
}

// RecordUpload records the combined upload size of a request.
func (m *Metrics) RecordUpload(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.UploadBytes.Record(ctx, n)
}

// RecordGroundTruthLoad records a default ground truth load attempt.
func (m *Metrics) RecordGroundTruthLoad(ctx context.Context, trigger string, err error) {
	if m == nil {
		return
	}
	m.GroundTruthLoad.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.Bool("success", err == nil),
	))
}

// RecordActivity records an activity invocation.
func (m *Metrics) RecordActivity(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.ActivityCalls.Add(ctx, 1,
		metric.WithAttributes(attribute.String("activity", name)),
	)
}
