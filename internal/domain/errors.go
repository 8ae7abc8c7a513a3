package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error is a structured scoring failure with a human-readable message and
// optional detail lines.
type Error struct {
	Kind    ErrorKind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Details, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, msg string, details ...string) *Error {
	return &Error{Kind: kind, Message: msg, Details: details}
}

// Errorf builds an Error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ParseError reports a malformed numeric payload.
func ParseError(msg string, details ...string) *Error {
	return NewError(KindParse, msg, details...)
}

// ShapeMismatchError reports a row or column count disagreement.
func ShapeMismatchError(msg string, details ...string) *Error {
	return NewError(KindShapeMismatch, msg, details...)
}

// DegenerateGroundTruthError reports a zero PBIAS denominator.
func DegenerateGroundTruthError(details ...string) *Error {
	return NewError(KindDegenerateGroundTruth, "ground truth sums to zero over the selected range", details...)
}

// SizeLimitError reports a payload above the configured maximum.
func SizeLimitError(limit int64) *Error {
	return NewError(KindSizeLimit, "File too large",
		fmt.Sprintf("Maximum total file size is %s", FormatBytes(limit)),
		"Please use smaller files or compress them",
	)
}

// KindOf returns the kind of err. Context deadline errors map to KindTimeout;
// anything unrecognised is KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// IsKind reports whether err is a domain Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// AsError converts any error into a domain Error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "scoring timed out", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Message: "scoring cancelled", Err: err}
	}
	return &Error{Kind: KindInternal, Message: "An unexpected error occurred", Err: err}
}

// Merge folds several errors into one. The first error decides the kind and
// message; details of all domain errors are concatenated.
func Merge(errs ...error) error {
	var merged *Error
	for _, err := range errs {
		if err == nil {
			continue
		}
		de := AsError(err)
		if merged == nil {
			cp := *de
			cp.Details = append([]string(nil), de.Details...)
			merged = &cp
			continue
		}
		if len(de.Details) == 0 {
			merged.Details = append(merged.Details, de.Message)
			continue
		}
		merged.Details = append(merged.Details, de.Details...)
	}
	if merged == nil {
		return nil
	}
	return merged
}

// FormatBytes renders a byte count in MB the way upload limits are quoted.
func FormatBytes(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%.1fMB", float64(n)/mb)
}
