package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/storage"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/querier"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/workflows"
)

// maxBatchSubmissions caps one batch request.
const maxBatchSubmissions = 10000

type startBatchRequest struct {
	BatchID        string                      `json:"batch_id"`
	GroundTruthURI string                      `json:"groundtruth_uri"`
	Submissions    []workflows.BatchSubmission `json:"submissions"`
	StartColumn    *int                        `json:"start_column"`
	EndColumn      *int                        `json:"end_column"`
	Parallelism    int                         `json:"parallelism"`
}

func (s *Server) batchesAvailable(w http.ResponseWriter) bool {
	if s.deps.Batches == nil {
		writeDomainError(w, domain.NewError(domain.KindUnavailable, "Batch scoring is not configured"))
		return false
	}
	return true
}

func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	if !s.batchesAvailable(w) {
		return
	}

	var body startBatchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindInvalidRequest, "invalid request body", err.Error())
		return
	}

	input, err := s.batchInput(body)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h, err := s.deps.Batches.StartBatch(r.Context(), input)
	if err != nil {
		writeDomainError(w, &domain.Error{Kind: domain.KindUnavailable, Message: "Could not start batch", Err: err})
		return
	}
	writeJSON(w, http.StatusAccepted, h)
}

func (s *Server) batchInput(body startBatchRequest) (workflows.BatchInput, error) {
	invalid := func(msg string, details ...string) error {
		return domain.NewError(domain.KindInvalidRequest, msg, details...)
	}

	switch n := len(body.Submissions); {
	case n == 0:
		return workflows.BatchInput{}, invalid("At least one submission is required")
	case n > maxBatchSubmissions:
		return workflows.BatchInput{}, invalid("Too many submissions",
			fmt.Sprintf("At most %d submissions per batch", maxBatchSubmissions))
	}

	var details []string
	seen := make(map[string]bool, len(body.Submissions))
	for i, sub := range body.Submissions {
		switch {
		case sub.ID == "":
			details = append(details, fmt.Sprintf("submissions[%d]: id is required", i))
		case seen[sub.ID]:
			details = append(details, fmt.Sprintf("submissions[%d]: duplicate id %q", i, sub.ID))
		}
		seen[sub.ID] = true
		if err := objectURI(sub.URI); err != nil {
			details = append(details, fmt.Sprintf("submissions[%d]: %v", i, err))
		}
	}
	if body.GroundTruthURI != "" {
		if err := objectURI(body.GroundTruthURI); err != nil {
			details = append(details, fmt.Sprintf("groundtruth_uri: %v", err))
		}
	} else if s.deps.Defaults == nil {
		details = append(details, "groundtruth_uri is required when no default ground truth is configured")
	}
	if len(details) > 0 {
		return workflows.BatchInput{}, invalid("Invalid batch request", details...)
	}

	input := workflows.BatchInput{
		BatchID:        body.BatchID,
		GroundTruthURI: body.GroundTruthURI,
		Submissions:    body.Submissions,
		Parallelism:    body.Parallelism,
	}
	if body.StartColumn != nil || body.EndColumn != nil {
		rng := s.opts.DefaultRange
		if body.StartColumn != nil {
			rng.Start = *body.StartColumn
		}
		if body.EndColumn != nil {
			rng.End = *body.EndColumn
		}
		if err := domain.ValidateColumnRange(rng); err != nil {
			return workflows.BatchInput{}, invalid("Invalid column range", err.Error())
		}
		input.Range = &rng
	}
	return input, nil
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	if !s.batchesAvailable(w) {
		return
	}
	opts := querier.ListOptions{StatusFilter: r.URL.Query().Get("status")}

	batches, err := s.deps.Batches.ListWorkflows(r.Context(), opts)
	if err != nil {
		writeDomainError(w, &domain.Error{Kind: domain.KindUnavailable, Message: "Could not list batches", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	if !s.batchesAvailable(w) {
		return
	}
	id := r.PathValue("id")

	state, err := s.deps.Batches.GetBatchState(r.Context(), id)
	if errors.Is(err, querier.ErrNotFound) {
		writeError(w, http.StatusNotFound, domain.KindInvalidRequest, "batch not found", id)
		return
	}
	if err != nil {
		writeDomainError(w, &domain.Error{Kind: domain.KindUnavailable, Message: "Could not read batch", Details: []string{err.Error()}, Err: err})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// objectURI accepts only s3:// and gs:// locations. Batches are read by the
// worker, so local paths would expose the worker's filesystem to callers.
func objectURI(uri string) error {
	loc, err := storage.ParseURI(uri)
	if err != nil {
		return err
	}
	if loc.Scheme == storage.SchemeFile {
		return fmt.Errorf("%q: only s3:// and gs:// URIs are accepted", uri)
	}
	return nil
}
