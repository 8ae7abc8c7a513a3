// Package aws resolves the AWS configuration shared by the S3 reader and
// the CloudWatch publisher.
package aws

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// DefaultSessionName names the STS session of an assumed role.
const DefaultSessionName = "pbias-scorer"

// Role ARNs in any partition (aws, aws-cn, aws-us-gov).
var roleARNPattern = regexp.MustCompile(`^arn:aws(-cn|-us-gov)?:iam::\d{12}:role/[\w+=,.@/-]+$`)

// Settings selects where AWS credentials come from.
type Settings struct {
	Region  string
	Profile string
	// RoleARN, when set, is assumed on top of the base credentials.
	RoleARN     string
	SessionName string
}

// ValidateRoleARN reports whether arn names an IAM role.
func ValidateRoleARN(arn string) error {
	if !roleARNPattern.MatchString(arn) {
		return fmt.Errorf("invalid IAM role ARN: %q", arn)
	}
	return nil
}

// NewAWSConfig loads the default credential chain for the given region and
// optional profile, then assumes roleARN if one is given.
func NewAWSConfig(ctx context.Context, region, profile, roleARN string) (aws.Config, error) {
	return Load(ctx, Settings{Region: region, Profile: profile, RoleARN: roleARN})
}

// Load resolves s into an aws.Config. Role credentials are cached and
// refreshed by the SDK.
func Load(ctx context.Context, s Settings) (aws.Config, error) {
	if s.RoleARN != "" {
		if err := ValidateRoleARN(s.RoleARN); err != nil {
			return aws.Config{}, fmt.Errorf("aws auth: %w", err)
		}
	}
	if s.SessionName == "" {
		s.SessionName = DefaultSessionName
	}

	var opts []func(*awsconfig.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s.Region))
	}
	if s.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(s.Profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("aws auth: load config: %w", err)
	}
	if s.RoleARN == "" {
		return cfg, nil
	}

	provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), s.RoleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = s.SessionName
	})
	cfg.Credentials = aws.NewCredentialsCache(provider)
	return cfg, nil
}
