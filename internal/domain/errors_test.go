package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, KindParse, KindOf(ParseError("bad")))
	assert.Equal(t, KindShapeMismatch, KindOf(fmt.Errorf("wrap: %w", ShapeMismatchError("rows"))))
	assert.Equal(t, KindTimeout, KindOf(fmt.Errorf("load: %w", context.DeadlineExceeded)))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestAsError(t *testing.T) {
	t.Parallel()
	de := AsError(errors.New("boom"))
	assert.Equal(t, KindInternal, de.Kind)
	assert.EqualError(t, errors.Unwrap(de), "boom")

	cancelled := AsError(context.Canceled)
	assert.Equal(t, KindTimeout, cancelled.Kind)
}

func TestMerge(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Merge(nil, nil))

	err := Merge(
		ParseError("Data validation failed", "Submission file: Column 'a' has 2 null values"),
		nil,
		ShapeMismatchError("Data shape mismatch"),
		ParseError("x", "Ground truth file: Column 'b' has 1 null values"),
	)
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindParse, de.Kind)
	assert.Equal(t, []string{
		"Submission file: Column 'a' has 2 null values",
		"Data shape mismatch",
		"Ground truth file: Column 'b' has 1 null values",
	}, de.Details)
}

func TestSizeLimitError(t *testing.T) {
	t.Parallel()
	err := SizeLimitError(200 * 1024 * 1024)
	assert.Equal(t, KindSizeLimit, err.Kind)
	assert.Contains(t, err.Details, "Maximum total file size is 200MB")
}
