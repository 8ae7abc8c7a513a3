package aws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRoleARN(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"arn:aws:iam::123456789012:role/ScoreReader":        true,
		"arn:aws:iam::123456789012:role/path/ScoreReader":   true,
		"arn:aws-cn:iam::123456789012:role/ScoreReader":     true,
		"arn:aws-us-gov:iam::123456789012:role/ScoreReader": true,
		"arn:aws:iam::12345:role/Short":                     false,
		"arn:aws:iam::123456789012:user/NotARole":           false,
		"arn:aws:iam::123456789012:role/":                   false,
		"arn:aws:iam::123456789012:role/has space":          false,
		"":                                                  false,
		"not-an-arn":                                        false,
	}

	for arn, valid := range cases {
		t.Run(arn, func(t *testing.T) {
			t.Parallel()
			err := ValidateRoleARN(arn)
			if valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoad_RejectsBadRoleARN(t *testing.T) {
	_, err := Load(context.Background(), Settings{Region: "us-east-1", RoleARN: "arn:aws:iam::1:user/x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid IAM role ARN")
}

func isolateEnv(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")
}

func TestLoad_StaticCredentials(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load(context.Background(), Settings{Region: "eu-west-2"})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-2", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
}

func TestNewAWSConfig_AssumeRoleWrapsCredentials(t *testing.T) {
	isolateEnv(t)

	cfg, err := NewAWSConfig(context.Background(), "eu-west-2", "", "arn:aws:iam::123456789012:role/ScoreReader")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-2", cfg.Region)
	assert.NotNil(t, cfg.Credentials)
}
