// Package cloudwatch publishes leaderboard scores as CloudWatch custom
// metrics so score drift across re-scoring batches can be alarmed on.
package cloudwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// maxDatumsPerCall is the PutMetricData request limit.
const maxDatumsPerCall = 1000

// API is the subset of the CloudWatch client used by this package.
type API interface {
	PutMetricData(ctx context.Context, params *cw.PutMetricDataInput, optFns ...func(*cw.Options)) (*cw.PutMetricDataOutput, error)
}

// Client wraps the CloudWatch API.
type Client struct {
	api       API
	namespace string
	now       func() time.Time
}

// New creates a CloudWatch client from an AWS config.
func New(cfg aws.Config, namespace string) *Client {
	return NewFromAPI(cw.NewFromConfig(cfg), namespace)
}

// NewFromAPI creates a Client from an explicit API implementation (for testing).
func NewFromAPI(api API, namespace string) *Client {
	return &Client{api: api, namespace: namespace, now: time.Now}
}

// Score is one scored submission of a batch.
type Score struct {
	SubmissionID string
	PBIAS        float64
	Public       *float64
	Private      *float64
}

// PublishScores writes PBIAS, PBIASPublic and PBIASPrivate datapoints
// dimensioned by batch and submission. It returns the number of datums sent.
func (c *Client) PublishScores(ctx context.Context, batchID string, scores []Score) (int, error) {
	ts := aws.Time(c.now().UTC())
	var data []cwtypes.MetricDatum
	for _, s := range scores {
		dims := []cwtypes.Dimension{
			{Name: aws.String("BatchId"), Value: aws.String(batchID)},
			{Name: aws.String("SubmissionId"), Value: aws.String(s.SubmissionID)},
		}
		data = append(data, datum("PBIAS", s.PBIAS, dims, ts))
		if s.Public != nil {
			data = append(data, datum("PBIASPublic", *s.Public, dims, ts))
		}
		if s.Private != nil {
			data = append(data, datum("PBIASPrivate", *s.Private, dims, ts))
		}
	}

	for start := 0; start < len(data); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(data))
		_, err := c.api.PutMetricData(ctx, &cw.PutMetricDataInput{
			Namespace:  aws.String(c.namespace),
			MetricData: data[start:end],
		})
		if err != nil {
			return start, fmt.Errorf("cloudwatch: put metric data: %w", err)
		}
	}
	return len(data), nil
}

func datum(name string, v float64, dims []cwtypes.Dimension, ts *time.Time) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(v),
		Unit:       cwtypes.StandardUnitPercent,
		Dimensions: dims,
		Timestamp:  ts,
	}
}
