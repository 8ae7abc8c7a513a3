package parity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/scoring"
)

// Runner scores one submission against one ground truth and returns the
// JSON score report.
type Runner interface {
	Run(ctx context.Context, submission, groundTruth []byte) ([]byte, error)
}

// Scorer scores one request. *scoring.Engine satisfies it.
type Scorer interface {
	Score(ctx context.Context, req scoring.Request) (*domain.ScoreResult, error)
}

// LocalRunner scores in-process.
type LocalRunner struct {
	Engine Scorer
}

// Run implements Runner.
func (r *LocalRunner) Run(ctx context.Context, submission, groundTruth []byte) ([]byte, error) {
	res, err := r.Engine.Score(ctx, scoring.Request{Submission: submission, GroundTruth: groundTruth})
	if err != nil {
		return nil, fmt.Errorf("local score: %w", err)
	}
	return json.Marshal(res)
}

// HTTPRunner posts both files to a /calculate_pbias style endpoint.
type HTTPRunner struct {
	URL    string
	Client *http.Client
}

// Run implements Runner. Error responses are returned as reports so the
// comparator can surface the reference's message.
func (r *HTTPRunner) Run(ctx context.Context, submission, groundTruth []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range []struct {
		field, name string
		data        []byte
	}{
		{"submission", "submission.csv", submission},
		{"groundtruth", "groundtruth.csv", groundTruth},
	} {
		fw, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			return nil, fmt.Errorf("build form: %w", err)
		}
		if _, err := fw.Write(f.data); err != nil {
			return nil, fmt.Errorf("build form: %w", err)
		}
	}
	if err := mw.WriteField("use_default", "false"); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, &body)
	if err != nil {
		return nil, fmt.Errorf("reference request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reference request: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read reference response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("reference scorer: %s: %s", resp.Status, bytes.TrimSpace(out))
	}
	return out, nil
}

// CommandRunner runs an external scorer. The submission and ground truth
// are written to temporary files whose paths are appended to Args; the
// command must print the JSON report on stdout.
type CommandRunner struct {
	Path string
	Args []string
}

// Run implements Runner.
func (r *CommandRunner) Run(ctx context.Context, submission, groundTruth []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "pbias-parity-")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	subPath := filepath.Join(dir, "submission.csv")
	gtPath := filepath.Join(dir, "groundtruth.csv")
	if err := os.WriteFile(subPath, submission, 0o600); err != nil {
		return nil, fmt.Errorf("write submission: %w", err)
	}
	if err := os.WriteFile(gtPath, groundTruth, 0o600); err != nil {
		return nil, fmt.Errorf("write ground truth: %w", err)
	}

	args := append(append([]string(nil), r.Args...), subPath, gtPath)
	cmd := exec.CommandContext(ctx, r.Path, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("reference command failed: %s\n%s", err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("reference command: %w", err)
	}
	return out, nil
}
