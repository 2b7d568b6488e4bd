package dispatcher

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrLengthMismatch marks a backend response whose length differs from the
// number of texts sent.
var ErrLengthMismatch = errors.New("translation length mismatch")

// BatchTranslationError is the failure of a single batch call.
type BatchTranslationError struct {
	Stream     string
	BatchIndex int
	Err        error
}

func (e *BatchTranslationError) Error() string {
	if e.Stream == "" {
		return fmt.Sprintf("batch %d: %v", e.BatchIndex, e.Err)
	}
	return fmt.Sprintf("%s batch %d: %v", e.Stream, e.BatchIndex, e.Err)
}

func (e *BatchTranslationError) Unwrap() error { return e.Err }

// AggregateTranslationError collects every failed batch of a job run. It is
// raised once, after all batches have completed.
type AggregateTranslationError struct {
	Failures []*BatchTranslationError
}

// NewAggregate builds an aggregate from failures ordered by stream and
// BatchIndex. It returns nil when there is nothing to report.
func NewAggregate(failures ...*BatchTranslationError) *AggregateTranslationError {
	if len(failures) == 0 {
		return nil
	}
	sorted := make([]*BatchTranslationError, len(failures))
	copy(sorted, failures)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Stream != sorted[j].Stream {
			return sorted[i].Stream < sorted[j].Stream
		}
		return sorted[i].BatchIndex < sorted[j].BatchIndex
	})
	return &AggregateTranslationError{Failures: sorted}
}

func (e *AggregateTranslationError) Error() string {
	if len(e.Failures) == 1 {
		return "translation failed: " + e.Failures[0].Error()
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("translation failed in %d batches: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes every batch failure to errors.Is and errors.As.
func (e *AggregateTranslationError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f
	}
	return out
}

// Merge combines aggregates from several streams of the same job.
func Merge(errs ...*AggregateTranslationError) *AggregateTranslationError {
	var all []*BatchTranslationError
	for _, e := range errs {
		if e != nil {
			all = append(all, e.Failures...)
		}
	}
	return NewAggregate(all...)
}
