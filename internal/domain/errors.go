package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Every failure surfaced by the loaders and the engine matches
// exactly one of these with errors.Is (InconsistentPairedFileError matches two).
var (
	ErrConfig                 = errors.New("config error")
	ErrMalformedRecord        = errors.New("malformed record")
	ErrUnknownFieldType       = errors.New("unknown field type")
	ErrInconsistentPairedFile = errors.New("inconsistent paired file")
	ErrInsufficientData       = errors.New("insufficient data")
	ErrTimeRange              = errors.New("time out of range")
)

// MalformedRecordError reports an archive line that does not have the expected shape.
type MalformedRecordError struct {
	Source string
	Line   int // 1-based; 0 when the problem is not tied to a line
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed record: %s:%d: %s", e.Source, e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed record: %s: %s", e.Source, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// Malformed is shorthand for building a *MalformedRecordError.
func Malformed(source string, line int, format string, args ...any) error {
	return &MalformedRecordError{Source: source, Line: line, Reason: fmt.Sprintf(format, args...)}
}

// InconsistentPairedFileError reports a gridded snapshot whose pressure and wind
// files disagree on geometry or time.
type InconsistentPairedFileError struct {
	Time     time.Time
	Field    string
	Pressure string
	Wind     string
}

func (e *InconsistentPairedFileError) Error() string {
	return fmt.Sprintf("inconsistent paired file at %s: %s differs (pressure %s, wind %s)",
		e.Time.UTC().Format(time.RFC3339), e.Field, e.Pressure, e.Wind)
}

func (e *InconsistentPairedFileError) Unwrap() []error {
	return []error{ErrInconsistentPairedFile, ErrUnknownFieldType}
}

// TimeRangeError reports a query time that no snapshot pair covers.
type TimeRangeError struct {
	Query time.Time
	First time.Time
	Last  time.Time
}

func (e *TimeRangeError) Error() string {
	return fmt.Sprintf("time out of range: %s outside series %s to %s",
		e.Query.UTC().Format(time.RFC3339), e.First.UTC().Format(time.RFC3339), e.Last.UTC().Format(time.RFC3339))
}

func (e *TimeRangeError) Unwrap() error { return ErrTimeRange }
