package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/grid"
)

const (
	submissionName  = "Submission file"
	groundTruthName = "Ground truth file"
)

// Options configures an Engine.
type Options struct {
	// Load holds the parse settings shared by both tables; Name is ignored.
	Load          grid.Options
	Metric        domain.Metric
	SplitFraction float64 // 0 disables the public/private split
	SplitSeed     uint64
	SeedStrategy  domain.SeedStrategy
	Degenerate    domain.DegeneratePolicy
}

// DefaultOptions mirrors the leaderboard defaults: columns 6..last, signed
// PBIAS, a 50/50 split, and warn-on-degenerate.
func DefaultOptions() Options {
	return Options{
		Load:          grid.DefaultOptions(""),
		Metric:        domain.MetricPBIAS,
		SplitFraction: 0.5,
		SplitSeed:     DefaultSplitSeed,
		SeedStrategy:  domain.SeedGroundTruth,
		Degenerate:    domain.DegenerateWarn,
	}
}

// Request is one scoring job. Engines keep no per-request state, so a
// single Engine may serve concurrent requests.
type Request struct {
	Submission  []byte
	GroundTruth []byte
	// Range overrides the configured column range when non-nil.
	Range       *domain.ColumnRange
	UsedDefault bool
	RequestID   string
}

// Engine scores submissions against ground truth.
type Engine struct {
	opts Options
	calc Calculator
	now  func() time.Time
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	calc, err := CalculatorFor(opts.Metric)
	if err != nil {
		return nil, err
	}
	if opts.Metric == "" {
		opts.Metric = domain.MetricPBIAS
	}
	if err := domain.ValidateColumnRange(opts.Load.Range); err != nil {
		return nil, err
	}
	if err := domain.ValidateSplitFraction(opts.SplitFraction); err != nil {
		return nil, err
	}
	if opts.SeedStrategy == "" {
		opts.SeedStrategy = domain.SeedGroundTruth
	}
	if !opts.SeedStrategy.Valid() {
		return nil, fmt.Errorf("invalid seed strategy %q", opts.SeedStrategy)
	}
	if opts.Degenerate == "" {
		opts.Degenerate = domain.DegenerateWarn
	}
	if !opts.Degenerate.Valid() {
		return nil, fmt.Errorf("invalid degenerate policy %q", opts.Degenerate)
	}
	return &Engine{opts: opts, calc: calc, now: time.Now}, nil
}

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// Score parses both payloads, validates their shapes, and computes the
// overall and split scores.
func (e *Engine) Score(ctx context.Context, req Request) (*domain.ScoreResult, error) {
	start := e.now()

	subOpts, truthOpts := e.opts.Load, e.opts.Load
	subOpts.Name, truthOpts.Name = submissionName, groundTruthName
	if req.Range != nil {
		if err := domain.ValidateColumnRange(*req.Range); err != nil {
			return nil, domain.NewError(domain.KindInvalidRequest, "Invalid column range", err.Error())
		}
		subOpts.Range, truthOpts.Range = *req.Range, *req.Range
	}

	var (
		sub, truth       *grid.Grid
		subErr, truthErr error
		g                errgroup.Group
	)
	g.Go(func() error {
		sub, subErr = grid.LoadBytes(ctx, req.Submission, subOpts)
		return subErr
	})
	g.Go(func() error {
		truth, truthErr = grid.LoadBytes(ctx, req.GroundTruth, truthOpts)
		return truthErr
	})
	// Wait reports only the first failure; both tables' details are returned.
	if err := g.Wait(); err != nil {
		return nil, domain.Merge(subErr, truthErr)
	}
	if err := grid.Align(sub, truth); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.AsError(err)
	}

	var warnings []string
	res := &domain.ScoreResult{
		Metric:           e.opts.Metric,
		SubmissionShape:  sub.Shape,
		GroundTruthShape: truth.Shape,
		StartColumn:      sub.Range.Start,
		EndColumn:        sub.Range.End,
		PositionStats:    Classify(sub, truth, nil),
		UsedDefault:      req.UsedDefault,
		RequestID:        req.RequestID,
	}

	overall, err := e.bias("PBIAS score", sub, truth, nil, &warnings)
	if err != nil {
		return nil, err
	}
	res.PBIASScore = overall

	if e.opts.SplitFraction > 0 {
		if err := ctx.Err(); err != nil {
			return nil, domain.AsError(err)
		}
		if err := e.scoreSplit(res, sub, truth, req, &warnings); err != nil {
			return nil, err
		}
	}

	if len(warnings) > 0 {
		res.Warnings = strings.Join(warnings, "; ")
	}
	res.ProcessingTime = math.Round(e.now().Sub(start).Seconds()*100) / 100
	return res, nil
}

func (e *Engine) scoreSplit(res *domain.ScoreResult, sub, truth *grid.Grid, req Request, warnings *[]string) error {
	seed, err := DeriveSeed(e.opts.SeedStrategy, e.opts.SplitSeed, req.Submission, req.GroundTruth)
	if err != nil {
		return err
	}
	split, err := Partition(sub.Rows(), e.opts.SplitFraction, seed)
	if err != nil {
		return err
	}

	public := e.sideBias("Public PBIAS", sub, truth, split.Public, warnings)
	private := e.sideBias("Private PBIAS", sub, truth, split.Private, warnings)
	pubStats := Classify(sub, truth, split.Public)
	privStats := Classify(sub, truth, split.Private)
	pubRows, privRows := len(split.Public), len(split.Private)

	res.PBIASPublic = &public
	res.PBIASPrivate = &private
	res.PublicRows = &pubRows
	res.PrivateRows = &privRows
	res.PublicPositionStats = &pubStats
	res.PrivatePositionStats = &privStats
	res.SplitFraction = e.opts.SplitFraction
	res.SplitSeed = &split.Seed
	return nil
}

// bias applies the degenerate policy: under warn a zero denominator yields 0
// and a warning, under fail the error is returned.
func (e *Engine) bias(label string, sub, truth *grid.Grid, rows []int, warnings *[]string) (float64, error) {
	v, err := e.calc(sub, truth, rows)
	if err == nil {
		return v, nil
	}
	if !domain.IsKind(err, domain.KindDegenerateGroundTruth) || e.opts.Degenerate == domain.DegenerateFail {
		return 0, err
	}
	*warnings = append(*warnings, label+" is NaN (possibly due to zero values in ground truth)")
	return 0, nil
}

// sideBias scores one side of the split. The overall score has already
// passed the degenerate policy, so an empty side or one whose ground truth
// sums to 0 is a property of the split: it reports 0 with a warning.
func (e *Engine) sideBias(label string, sub, truth *grid.Grid, rows []int, warnings *[]string) float64 {
	v, err := e.calc(sub, truth, rows)
	if err != nil {
		*warnings = append(*warnings, label+" is NaN (possibly due to zero values in ground truth)")
		return 0
	}
	return v
}
