// Package api serves the scoring HTTP API.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/pbias-leaderboard/pbias-go/internal/config"
	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/groundtruth"
	"github.com/pbias-leaderboard/pbias-go/internal/observability"
	"github.com/pbias-leaderboard/pbias-go/internal/ratelimit"
	"github.com/pbias-leaderboard/pbias-go/internal/scoring"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/querier"
)

// Scorer scores one request. *scoring.Engine satisfies it.
type Scorer interface {
	Score(ctx context.Context, req scoring.Request) (*domain.ScoreResult, error)
}

// Deps are the collaborators behind the API. Only Engine is required.
type Deps struct {
	Engine   Scorer
	Defaults *groundtruth.Store
	// Batches is nil when no Temporal client is configured; batch routes
	// then answer 503.
	Batches        querier.WorkflowQuerier
	Limiter        *ratelimit.ClientLimiter
	Budget         *ratelimit.SubmissionBudget
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
}

// Options configures request handling.
type Options struct {
	CORSOrigins    []string
	OIDC           OIDCConfig
	MaxUploadBytes int64
	ScoreTimeout   time.Duration
	// DefaultRange is the column range that start_column / end_column
	// form fields override.
	DefaultRange domain.ColumnRange
}

// Server is the HTTP API server for the scoring service.
type Server struct {
	deps    Deps
	opts    Options
	mux     *http.ServeMux
	handler http.Handler
}

// New creates a Server. When OIDC is enabled the issuer is discovered
// with ctx.
func New(ctx context.Context, deps Deps, opts Options) (*Server, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("api: scoring engine is required")
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = config.DefaultMaxUploadBytes
	}
	if opts.DefaultRange.Start == 0 {
		opts.DefaultRange = domain.DefaultColumnRange()
	}

	s := &Server{deps: deps, opts: opts, mux: http.NewServeMux()}
	s.routes()

	var h http.Handler = s.mux
	if opts.OIDC.Enabled {
		provider, err := oidc.NewProvider(ctx, opts.OIDC.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("oidc discovery: %w", err)
		}
		h = oidcAuth(provider, opts.OIDC.Audience)(h)
	}
	s.handler = requestID(logging(cors(opts.CORSOrigins, h)))
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	s.mux.Handle("POST /calculate_pbias", s.limited(s.handleScore))
	s.mux.Handle("POST /api/v1/score", s.limited(s.handleScore))

	s.mux.HandleFunc("GET /check_default_groundtruth", s.handleDefaultInfo)
	s.mux.HandleFunc("GET /api/v1/groundtruth/default", s.handleDefaultInfo)
	s.mux.HandleFunc("POST /api/v1/groundtruth/default/reload", s.handleDefaultReload)

	s.mux.Handle("POST /api/v1/batches", s.limited(s.handleStartBatch))
	s.mux.HandleFunc("GET /api/v1/batches", s.handleListBatches)
	s.mux.HandleFunc("GET /api/v1/batches/{id}", s.handleGetBatch)

	if s.deps.MetricsHandler != nil {
		s.mux.Handle("GET /metrics", s.deps.MetricsHandler)
	}
}
