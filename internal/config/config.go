// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
)

// DefaultMaxUploadBytes is the combined upload limit for one scoring request.
const DefaultMaxUploadBytes int64 = 200 * 1024 * 1024

// Config holds all application configuration.
type Config struct {
	// API server settings.
	APIPort      string
	LogLevel     string
	CORSOrigins  []string
	OTELEnabled  bool
	OIDCIssuer   string
	OIDCAudience string

	// Default ground truth.
	DefaultGroundTruth string
	WatchDefault       bool

	// Scoring.
	MaxUploadBytes   int64
	ScoreTimeout     time.Duration
	StartColumn      int
	EndColumn        int
	Delimiter        rune
	EmptyAsZero      bool
	Metric           domain.Metric
	SplitFraction    float64
	SplitSeed        uint64
	SeedStrategy     domain.SeedStrategy
	DegeneratePolicy domain.DegeneratePolicy

	// Admission control.
	RateLimitRPS     float64
	RateLimitBurst   int
	SubmissionBudget int
	SubmissionWindow time.Duration

	// Cloud.
	AWSRegion           string
	AWSProfile          string
	AWSRoleARN          string
	GCSCredentials      string
	CloudWatchNamespace string
	TemporalHost        string
}

// LoadFromEnv reads configuration from environment variables with sensible defaults.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		APIPort:             envOr("PBIAS_API_PORT", "8080"),
		LogLevel:            envOr("PBIAS_LOG_LEVEL", "info"),
		CORSOrigins:         parseCORSOrigins(os.Getenv("PBIAS_CORS_ORIGINS")),
		OIDCIssuer:          os.Getenv("PBIAS_OIDC_ISSUER"),
		OIDCAudience:        os.Getenv("PBIAS_OIDC_AUDIENCE"),
		DefaultGroundTruth:  envOr("PBIAS_DEFAULT_GROUNDTRUTH", "groundtruth.csv"),
		Metric:              domain.Metric(envOr("PBIAS_METRIC", string(domain.MetricPBIAS))),
		SeedStrategy:        domain.SeedStrategy(envOr("PBIAS_SEED_STRATEGY", string(domain.SeedGroundTruth))),
		DegeneratePolicy:    domain.DegeneratePolicy(envOr("PBIAS_DEGENERATE_POLICY", string(domain.DegenerateWarn))),
		AWSRegion:           envOr("AWS_REGION", "us-east-1"),
		AWSProfile:          os.Getenv("AWS_PROFILE"),
		AWSRoleARN:          os.Getenv("PBIAS_AWS_ROLE_ARN"),
		GCSCredentials:      os.Getenv("PBIAS_GCS_CREDENTIALS"),
		CloudWatchNamespace: os.Getenv("PBIAS_CLOUDWATCH_NAMESPACE"),
		TemporalHost:        os.Getenv("PBIAS_TEMPORAL_HOST"),
	}

	var p parser
	cfg.OTELEnabled = p.getBool("PBIAS_OTEL_ENABLED", false)
	cfg.WatchDefault = p.getBool("PBIAS_WATCH_DEFAULT", true)
	cfg.EmptyAsZero = p.getBool("PBIAS_EMPTY_AS_ZERO", false)
	cfg.MaxUploadBytes = p.getInt64("PBIAS_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	cfg.ScoreTimeout = p.getDuration("PBIAS_SCORE_TIMEOUT", 60*time.Second)
	cfg.StartColumn = p.getInt("PBIAS_START_COLUMN", 6)
	cfg.EndColumn = p.getInt("PBIAS_END_COLUMN", 0)
	cfg.SplitFraction = p.getFloat("PBIAS_SPLIT_FRACTION", 0.5)
	cfg.SplitSeed = p.getUint64("PBIAS_SPLIT_SEED", 69420)
	cfg.RateLimitRPS = p.getFloat("PBIAS_RATE_LIMIT_RPS", 5)
	cfg.RateLimitBurst = p.getInt("PBIAS_RATE_LIMIT_BURST", 10)
	cfg.SubmissionBudget = p.getInt("PBIAS_SUBMISSION_BUDGET", 0)
	cfg.SubmissionWindow = p.getDuration("PBIAS_SUBMISSION_WINDOW", 24*time.Hour)
	cfg.Delimiter = p.getDelimiter("PBIAS_DELIMITER", ',')
	if p.err != nil {
		return Config{}, p.err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ColumnRange returns the configured default scoring range.
func (c Config) ColumnRange() domain.ColumnRange {
	return domain.ColumnRange{Start: c.StartColumn, End: c.EndColumn}
}

func (c Config) validate() error {
	if err := domain.ValidateColumnRange(c.ColumnRange()); err != nil {
		return fmt.Errorf("config: PBIAS_START_COLUMN/PBIAS_END_COLUMN: %w", err)
	}
	if err := domain.ValidateSplitFraction(c.SplitFraction); err != nil {
		return fmt.Errorf("config: PBIAS_SPLIT_FRACTION: %w", err)
	}
	if !c.Metric.Valid() {
		return fmt.Errorf("config: invalid PBIAS_METRIC %q (must be pbias or abs_pbias)", c.Metric)
	}
	if !c.SeedStrategy.Valid() {
		return fmt.Errorf("config: invalid PBIAS_SEED_STRATEGY %q (must be fixed, groundtruth or submission)", c.SeedStrategy)
	}
	if !c.DegeneratePolicy.Valid() {
		return fmt.Errorf("config: invalid PBIAS_DEGENERATE_POLICY %q (must be warn or fail)", c.DegeneratePolicy)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: PBIAS_MAX_UPLOAD_BYTES must be positive")
	}
	if c.ScoreTimeout <= 0 {
		return fmt.Errorf("config: PBIAS_SCORE_TIMEOUT must be positive")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 || c.SubmissionBudget < 0 {
		return fmt.Errorf("config: rate limits must not be negative")
	}
	if c.SubmissionBudget > 0 && c.SubmissionWindow <= 0 {
		return fmt.Errorf("config: PBIAS_SUBMISSION_WINDOW must be positive when a budget is set")
	}
	if c.OIDCIssuer != "" && c.OIDCAudience == "" {
		return fmt.Errorf("config: PBIAS_OIDC_AUDIENCE required when PBIAS_OIDC_ISSUER is set")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser records the first malformed variable.
type parser struct{ err error }

func (p *parser) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != "" && p.err == nil
}

func (p *parser) fail(key, v string, err error) {
	p.err = fmt.Errorf("config: invalid %s %q: %w", key, v, err)
}

func (p *parser) getBool(key string, fallback bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

func (p *parser) getInt(key string, fallback int) int {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) getInt64(key string, fallback int64) int64 {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) getUint64(key string, fallback uint64) uint64 {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) getFloat(key string, fallback float64) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *parser) getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}

func (p *parser) getDelimiter(key string, fallback rune) rune {
	v := os.Getenv(key)
	if v == "" || p.err != nil {
		return fallback
	}
	if v == `\t` {
		return '\t'
	}
	r, size := utf8.DecodeRuneInString(v)
	if size != len(v) || r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		p.fail(key, v, fmt.Errorf("must be a single character"))
		return fallback
	}
	return r
}

func parseCORSOrigins(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(o); t != "" {
			origins = append(origins, t)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
