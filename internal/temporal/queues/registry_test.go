package queues

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbias-leaderboard/pbias-go/internal/temporal/versioning"
)

func TestDefaultConfigs(t *testing.T) {
	configs := DefaultConfigs()
	assert.Len(t, configs, 2)
	assert.Contains(t, configs, versioning.QueueBatch)
	assert.Contains(t, configs, versioning.QueueScore)

	// Scoring workers never run workflow tasks in parallel.
	scoreCfg := configs[versioning.QueueScore]
	assert.Equal(t, 1, scoreCfg.Options.MaxConcurrentWorkflowTaskExecutionSize)
	assert.GreaterOrEqual(t, scoreCfg.Options.MaxConcurrentActivityExecutionSize, 1)
}

func TestParseQueues(t *testing.T) {
	all := []string{versioning.QueueBatch, versioning.QueueScore}
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr string
	}{
		{"empty means all", "", all, ""},
		{"short name batch", "batch", []string{versioning.QueueBatch}, ""},
		{"short name score", "score", []string{versioning.QueueScore}, ""},
		{"full name", "pbias-score", []string{versioning.QueueScore}, ""},
		{"multiple", "score,batch", []string{versioning.QueueScore, versioning.QueueBatch}, ""},
		{"deduplicate", "batch,pbias-batch", []string{versioning.QueueBatch}, ""},
		{"spaces trimmed", " batch , score ", all, ""},
		{"only commas", ",,", all, ""},
		{"unknown queue", "bogus", nil, `unknown queue "bogus"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQueues(tt.raw)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
