package cloudwatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCWAPI struct {
	inputs []*cw.PutMetricDataInput
	err    error
}

func (m *mockCWAPI) PutMetricData(_ context.Context, in *cw.PutMetricDataInput, _ ...func(*cw.Options)) (*cw.PutMetricDataOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.inputs = append(m.inputs, in)
	return &cw.PutMetricDataOutput{}, nil
}

func TestPublishScores(t *testing.T) {
	mock := &mockCWAPI{}
	client := NewFromAPI(mock, "PBIAS/Leaderboard")
	client.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	n, err := client.PublishScores(context.Background(), "batch-1", []Score{
		{SubmissionID: "team-a", PBIAS: 4.5, Public: aws.Float64(3), Private: aws.Float64(6)},
		{SubmissionID: "team-b", PBIAS: -2},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.Len(t, mock.inputs, 1)

	in := mock.inputs[0]
	assert.Equal(t, "PBIAS/Leaderboard", *in.Namespace)
	require.Len(t, in.MetricData, 4)
	assert.Equal(t, "PBIAS", *in.MetricData[0].MetricName)
	assert.Equal(t, "PBIASPublic", *in.MetricData[1].MetricName)
	assert.Equal(t, "PBIASPrivate", *in.MetricData[2].MetricName)
	assert.Equal(t, -2.0, *in.MetricData[3].Value)
	assert.Equal(t, "team-b", *in.MetricData[3].Dimensions[1].Value)
	assert.Equal(t, "batch-1", *in.MetricData[3].Dimensions[0].Value)
}

func TestPublishScores_Chunks(t *testing.T) {
	mock := &mockCWAPI{}
	client := NewFromAPI(mock, "ns")

	scores := make([]Score, 1500)
	for i := range scores {
		scores[i] = Score{SubmissionID: fmt.Sprintf("s%d", i), PBIAS: float64(i)}
	}
	n, err := client.PublishScores(context.Background(), "b", scores)
	require.NoError(t, err)
	assert.Equal(t, 1500, n)
	require.Len(t, mock.inputs, 2)
	assert.Len(t, mock.inputs[0].MetricData, 1000)
	assert.Len(t, mock.inputs[1].MetricData, 500)
}

func TestPublishScores_Empty(t *testing.T) {
	mock := &mockCWAPI{}
	n, err := NewFromAPI(mock, "ns").PublishScores(context.Background(), "b", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, mock.inputs)
}

func TestPublishScores_Error(t *testing.T) {
	mock := &mockCWAPI{err: errors.New("access denied")}
	_, err := NewFromAPI(mock, "ns").PublishScores(context.Background(), "b", []Score{{SubmissionID: "x"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
