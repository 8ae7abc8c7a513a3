package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/scoring"
)

// maxFormMemory is how much of a multipart body is kept in memory before
// spilling file parts to disk.
const maxFormMemory = 32 << 20

// headerSubmissionsRemaining reports the caller's budget left in the current
// window after a submission is accepted.
const headerSubmissionsRemaining = "X-Submissions-Remaining"

type uploadField struct {
	name    string
	missing string
	empty   string
	notCSV  string
}

var (
	submissionField = uploadField{
		name:    "submission",
		missing: "Submission CSV file is required",
		empty:   "No submission file selected",
		notCSV:  "Only CSV files are allowed",
	}
	groundTruthField = uploadField{
		name:    "groundtruth",
		missing: "Ground truth file is required when not using default",
		empty:   "No ground truth file selected",
		notCSV:  "Only CSV files are allowed for ground truth",
	}
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScore scores an uploaded submission against an uploaded or the
// default ground truth.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.ContentLength > s.opts.MaxUploadBytes {
		writeDomainError(w, domain.SizeLimitError(s.opts.MaxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeDomainError(w, s.formError(err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	form := r.MultipartForm

	sub, err := readUpload(form, submissionField)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	uploaded := int64(len(sub))
	req := scoring.Request{
		Submission: sub,
		RequestID:  RequestIDFromContext(r.Context()),
	}
	if strings.EqualFold(formValue(form, "use_default"), "true") {
		if s.deps.Defaults == nil {
			writeDomainError(w, domain.NewError(domain.KindUnavailable, "No default ground truth configured"))
			return
		}
		ds, err := s.deps.Defaults.Get(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		req.GroundTruth = ds.Data
		req.UsedDefault = true
	} else {
		gt, err := readUpload(form, groundTruthField)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		req.GroundTruth = gt
		uploaded += int64(len(gt))
	}
	s.deps.Metrics.RecordUpload(r.Context(), uploaded)

	if req.Range, err = s.formRange(form); err != nil {
		writeDomainError(w, err)
		return
	}

	if s.deps.Budget != nil {
		// Keyed on the authenticated caller or address, never on form input.
		key := clientKey(r)
		if err := s.deps.Budget.Take(key); err != nil {
			writeDomainError(w, err)
			return
		}
		if left := s.deps.Budget.Remaining(key); left >= 0 {
			w.Header().Set(headerSubmissionsRemaining, strconv.Itoa(left))
		}
	}

	ctx := r.Context()
	if s.opts.ScoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ScoreTimeout)
		defer cancel()
	}

	res, err := s.deps.Engine.Score(ctx, req)
	s.deps.Metrics.RecordScore(r.Context(), "http", time.Since(start), res, err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) formError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
		return domain.SizeLimitError(s.opts.MaxUploadBytes)
	case errors.Is(err, http.ErrNotMultipart):
		return domain.NewError(domain.KindInvalidRequest, submissionField.missing)
	default:
		return domain.NewError(domain.KindInvalidRequest, "Invalid multipart form", err.Error())
	}
}

func readUpload(form *multipart.Form, f uploadField) ([]byte, error) {
	files := form.File[f.name]
	if len(files) == 0 {
		if _, ok := form.Value[f.name]; ok {
			return nil, domain.NewError(domain.KindInvalidRequest, f.empty)
		}
		return nil, domain.NewError(domain.KindInvalidRequest, f.missing)
	}
	fh := files[0]
	if fh.Filename == "" {
		return nil, domain.NewError(domain.KindInvalidRequest, f.empty)
	}
	if !allowedFile(fh.Filename) {
		return nil, domain.NewError(domain.KindInvalidRequest, f.notCSV)
	}

	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s upload: %w", f.name, err)
	}
	defer file.Close()
	b, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s upload: %w", f.name, err)
	}
	return b, nil
}

func allowedFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// formRange reads start_column / end_column. It returns nil when neither
// is set so the engine keeps its configured range.
func (s *Server) formRange(form *multipart.Form) (*domain.ColumnRange, error) {
	startStr, endStr := formValue(form, "start_column"), formValue(form, "end_column")
	if startStr == "" && endStr == "" {
		return nil, nil
	}
	rng := s.opts.DefaultRange
	if startStr != "" {
		v, err := strconv.Atoi(startStr)
		if err != nil {
			return nil, domain.NewError(domain.KindInvalidRequest, "Invalid column range", "start_column must be an integer")
		}
		rng.Start = v
	}
	if endStr != "" {
		v, err := strconv.Atoi(endStr)
		if err != nil {
			return nil, domain.NewError(domain.KindInvalidRequest, "Invalid column range", "end_column must be an integer")
		}
		rng.End = v
	}
	return &rng, nil
}

func (s *Server) handleDefaultInfo(w http.ResponseWriter, r *http.Request) {
	if s.deps.Defaults == nil {
		writeJSON(w, http.StatusOK, domain.DefaultGroundTruthInfo{Exists: false})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Defaults.Info(r.Context()))
}

type reloadResponse struct {
	Exists   bool         `json:"exists"`
	URI      string       `json:"uri"`
	Shape    domain.Shape `json:"shape"`
	Hash     string       `json:"hash"`
	LoadedAt time.Time    `json:"loaded_at"`
}

func (s *Server) handleDefaultReload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Defaults == nil {
		writeDomainError(w, domain.NewError(domain.KindUnavailable, "No default ground truth configured"))
		return
	}
	ds, err := s.deps.Defaults.Reload(r.Context())
	s.deps.Metrics.RecordGroundTruthLoad(r.Context(), "api", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{
		Exists:   true,
		URI:      ds.URI,
		Shape:    ds.Shape,
		Hash:     fmt.Sprintf("%016x", ds.Hash),
		LoadedAt: ds.LoadedAt,
	})
}
