package domain

// Metric selects the bias statistic reported as pbias_score.
type Metric string

const (
	// MetricPBIAS is the signed percent bias: 100 * Σ(truth - sub) / Σtruth.
	MetricPBIAS Metric = "pbias"
	// MetricAbsPBIAS is 100 * Σ|sub - truth| / Σtruth.
	MetricAbsPBIAS Metric = "abs_pbias"
)

func (m Metric) Valid() bool {
	switch m {
	case MetricPBIAS, MetricAbsPBIAS:
		return true
	}
	return false
}

// SeedStrategy decides how the public/private split seed is derived.
type SeedStrategy string

const (
	// SeedFixed uses the configured base seed unchanged.
	SeedFixed SeedStrategy = "fixed"
	// SeedGroundTruth mixes the base seed with a hash of the ground truth payload.
	SeedGroundTruth SeedStrategy = "groundtruth"
	// SeedSubmission mixes the base seed with a hash of the submission payload.
	SeedSubmission SeedStrategy = "submission"
)

func (s SeedStrategy) Valid() bool {
	switch s {
	case SeedFixed, SeedGroundTruth, SeedSubmission:
		return true
	}
	return false
}

// DegeneratePolicy decides what happens when Σtruth == 0.
type DegeneratePolicy string

const (
	// DegenerateWarn reports 0 and attaches a warning.
	DegenerateWarn DegeneratePolicy = "warn"
	// DegenerateFail surfaces the DegenerateGroundTruth error.
	DegenerateFail DegeneratePolicy = "fail"
)

func (p DegeneratePolicy) Valid() bool {
	switch p {
	case DegenerateWarn, DegenerateFail:
		return true
	}
	return false
}

// ErrorKind classifies a scoring failure for callers.
type ErrorKind string

const (
	KindParse                 ErrorKind = "parse_error"
	KindShapeMismatch         ErrorKind = "shape_mismatch"
	KindDegenerateGroundTruth ErrorKind = "degenerate_ground_truth"
	KindSizeLimit             ErrorKind = "size_limit"
	KindTimeout               ErrorKind = "timeout"
	KindRateLimited           ErrorKind = "rate_limited"
	KindInvalidRequest        ErrorKind = "invalid_request"
	KindUnavailable           ErrorKind = "unavailable"
	KindInternal              ErrorKind = "internal"
)

func (k ErrorKind) Valid() bool {
	switch k {
	case KindParse, KindShapeMismatch, KindDegenerateGroundTruth, KindSizeLimit,
		KindTimeout, KindRateLimited, KindInvalidRequest, KindUnavailable, KindInternal:
		return true
	}
	return false
}
