// Package dispatcher runs one translation call per batch under a bounded
// worker pool. Batch failures are recorded and never cancel sibling batches.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/doctran/internal/batch"
)

// TranslateFunc translates texts and must return exactly len(texts) strings
// in the same order.
type TranslateFunc func(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error)

// Config controls dispatch.
type Config struct {
	// MaxConcurrency bounds in-flight calls. Values below 1 mean 1.
	MaxConcurrency int
	Logger         *slog.Logger
}

// Outcome is the result of one batch: either Translated or Err is set.
type Outcome struct {
	Batch      batch.Batch
	Translated []string
	Err        error
	Latency    time.Duration
}

// OK reports whether the batch succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Result is the complete outcome mapping of one dispatch.
type Result struct {
	Stream    string
	Outcomes  map[int]Outcome
	Succeeded int
	Failed    int

	mu       sync.Mutex
	failures []*BatchTranslationError
}

func (r *Result) addFailure(f *BatchTranslationError) {
	r.mu.Lock()
	r.failures = append(r.failures, f)
	r.mu.Unlock()
}

// Err returns the aggregate of all failed batches, or nil.
func (r *Result) Err() *AggregateTranslationError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return NewAggregate(r.failures...)
}

type Dispatcher struct {
	translate TranslateFunc
	config    Config
	logger    *slog.Logger
}

func New(fn TranslateFunc, config Config) *Dispatcher {
	if config.MaxConcurrency < 1 {
		config.MaxConcurrency = 1
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{translate: fn, config: config, logger: logger}
}

// Dispatch sends every batch of one stream and waits for all of them. The
// returned mapping always holds one outcome per batch, keyed by BatchIndex.
// A cancelled context fails the batches that have not started yet.
func (d *Dispatcher) Dispatch(ctx context.Context, stream string, batches []batch.Batch, sourceLang, targetLang string) *Result {
	result := &Result{Stream: stream, Outcomes: make(map[int]Outcome, len(batches))}
	if len(batches) == 0 {
		return result
	}

	outcomes := make([]Outcome, len(batches))

	var g errgroup.Group
	g.SetLimit(d.config.MaxConcurrency)

	for i, b := range batches {
		g.Go(func() error {
			out := d.run(ctx, b, sourceLang, targetLang)
			if out.Err != nil {
				failure := &BatchTranslationError{Stream: stream, BatchIndex: b.BatchIndex, Err: out.Err}
				out.Err = failure
				result.addFailure(failure)
				d.logger.Warn("batch failed", "stream", stream, "batch", b.BatchIndex, "nodes", len(b.Nodes), "error", failure.Err)
			} else {
				d.logger.Debug("batch translated", "stream", stream, "batch", b.BatchIndex, "nodes", len(b.Nodes), "chars", b.TotalChars, "latency", out.Latency)
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outcomes {
		result.Outcomes[out.Batch.BatchIndex] = out
		if out.OK() {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	return result
}

func (d *Dispatcher) run(ctx context.Context, b batch.Batch, sourceLang, targetLang string) (out Outcome) {
	out.Batch = b
	start := time.Now()
	defer func() {
		out.Latency = time.Since(start)
		if r := recover(); r != nil {
			out.Translated = nil
			out.Err = fmt.Errorf("translate panicked: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	texts := b.Texts()
	translated, err := d.translate(ctx, texts, sourceLang, targetLang)
	if err != nil {
		out.Err = err
		return out
	}
	if len(translated) != len(texts) {
		out.Err = fmt.Errorf("%w: sent %d, received %d", ErrLengthMismatch, len(texts), len(translated))
		return out
	}
	out.Translated = translated
	return out
}
