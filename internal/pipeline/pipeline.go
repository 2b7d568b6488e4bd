// Package pipeline drives one document through extraction, batching,
// dispatch, reassembly and saving.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/valpere/doctran/internal/batch"
	"github.com/valpere/doctran/internal/dispatcher"
	"github.com/valpere/doctran/internal/format"
	"github.com/valpere/doctran/internal/langcode"
	"github.com/valpere/doctran/internal/reassemble"
	"github.com/valpere/doctran/internal/store"
)

// LanguageDetector guesses the language of a document from sample texts.
type LanguageDetector interface {
	DetectSample(texts []string) (string, bool)
}

// JobRecorder keeps the job history.
type JobRecorder interface {
	SaveJob(ctx context.Context, job *store.JobRecord) error
}

type Options struct {
	// Concurrency bounds in-flight batches per stream. Values below 1 mean 1.
	Concurrency   int
	MaxBatchCount int
	MaxBatchChars int
	FailurePolicy FailurePolicy
	// Formats defaults to DefaultTable().
	Formats  *format.Table
	Detector LanguageDetector
	Recorder JobRecorder
	Logger   *slog.Logger
}

// Report summarises a run.
type Report struct {
	JobID          string
	OutputPath     string
	Kind           format.Kind
	SourceLanguage string
	Streams        int
	Nodes          int
	Batches        int
	FailedBatches  int
}

type Pipeline struct {
	translate dispatcher.TranslateFunc
	opts      Options
	logger    *slog.Logger
}

func New(fn dispatcher.TranslateFunc, opts Options) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxBatchCount <= 0 {
		opts.MaxBatchCount = batch.MaxBatchCount
	}
	if opts.MaxBatchChars <= 0 {
		opts.MaxBatchChars = batch.MaxBatchChars
	}
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = Discard
	}
	if opts.Formats == nil {
		opts.Formats = DefaultTable()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{translate: fn, opts: opts, logger: logger}
}

// Run translates job and returns the path of the written document. When
// batches failed under the keep-partial policy both the path and the
// *dispatcher.AggregateTranslationError are returned.
func (p *Pipeline) Run(ctx context.Context, job DocumentJob) (string, error) {
	report, err := p.Execute(ctx, job)
	return report.OutputPath, err
}

// Execute is Run with the full report. The report is never nil.
func (p *Pipeline) Execute(ctx context.Context, job DocumentJob) (*Report, error) {
	report := &Report{JobID: job.ID}
	rec := p.begin(ctx, job)
	if rec != nil {
		report.JobID = rec.ID
	}
	log := p.logger.With("job", report.JobID, "source", job.SourcePath)

	err := p.execute(ctx, job, report, log)
	p.finish(ctx, rec, report, err)
	return report, err
}

func (p *Pipeline) execute(ctx context.Context, job DocumentJob, report *Report, log *slog.Logger) error {
	target, err := langcode.ParseTarget(job.TargetLanguage)
	if err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}
	source, err := langcode.Parse(job.SourceLanguage)
	if err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}

	outPath := OutputPath(job.SourcePath, target)
	if err := removeExisting(outPath); err != nil {
		return &SaveError{Path: outPath, Err: err}
	}

	doc, kind, err := p.open(job)
	if err != nil {
		log.Error("extraction failed", "state", StateFailed, "error", err)
		return err
	}
	report.Kind = kind
	log.Info("document extracted", "state", StateExtracted, "kind", kind, "streams", len(doc.Streams()))

	source = p.detectSource(doc, source, log)
	report.SourceLanguage = source

	agg, err := p.translateDocument(ctx, doc, source, target, report, log)
	if err != nil {
		log.Error("reassembly failed", "state", StateFailed, "error", err)
		return err
	}
	if agg != nil {
		log.Warn("batches failed", "failed", len(agg.Failures), "policy", p.opts.FailurePolicy)
		if p.opts.FailurePolicy != KeepPartial {
			log.Error("document discarded", "state", StateFailed)
			return agg
		}
	}

	if err := doc.Write(); err != nil {
		log.Error("write failed", "state", StateFailed, "error", err)
		return &SaveError{Path: outPath, Err: err}
	}
	if err := doc.Save(outPath); err != nil {
		log.Error("save failed", "state", StateFailed, "error", err)
		return &SaveError{Path: outPath, Err: err}
	}
	report.OutputPath = outPath
	log.Info("document saved", "state", StateSaved, "output", outPath, "nodes", report.Nodes, "batches", report.Batches)

	if agg != nil {
		return agg
	}
	return nil
}

func (p *Pipeline) open(job DocumentJob) (format.Document, format.Kind, error) {
	f, err := p.opts.Formats.Resolve(job.Kind, job.SourcePath)
	if err != nil {
		return nil, "", err
	}
	doc, err := f.Open(job.SourcePath)
	if err != nil {
		var ee *format.ExtractionError
		if errors.As(err, &ee) {
			return nil, "", err
		}
		return nil, "", &format.ExtractionError{Path: job.SourcePath, Kind: f.Kind(), Err: err}
	}
	return doc, f.Kind(), nil
}

// detectSource resolves an auto source language from the first stream that
// has text. Detection failures leave the language as auto.
func (p *Pipeline) detectSource(doc format.Document, source string, log *slog.Logger) string {
	if source != langcode.Auto || p.opts.Detector == nil {
		return source
	}
	for _, reg := range doc.Streams() {
		if reg.Len() == 0 {
			continue
		}
		if code, ok := p.opts.Detector.DetectSample(reg.Texts()); ok {
			log.Info("source language detected", "language", code, "stream", reg.Name())
			return code
		}
		break
	}
	log.Warn("source language not detected, sending auto")
	return source
}

// translateDocument runs every stream through batching, dispatch and
// reassembly. Batch failures are collected across streams and returned as
// one aggregate; any other error stops the run.
func (p *Pipeline) translateDocument(ctx context.Context, doc format.Document, source, target string, report *Report, log *slog.Logger) (*dispatcher.AggregateTranslationError, error) {
	d := dispatcher.New(p.translate, dispatcher.Config{MaxConcurrency: p.opts.Concurrency, Logger: log})

	var aggs []*dispatcher.AggregateTranslationError
	for _, reg := range doc.Streams() {
		if reg.Len() == 0 {
			continue
		}
		report.Streams++
		report.Nodes += reg.Len()

		batches, err := batch.Split(reg.Nodes(), p.opts.MaxBatchCount, p.opts.MaxBatchChars)
		if err != nil {
			return nil, err
		}
		report.Batches += len(batches)
		log.Info("stream batched", "state", StateBatched, "stream", reg.Name(), "nodes", reg.Len(), "batches", len(batches))

		result := d.Dispatch(ctx, reg.Name(), batches, source, target)
		report.FailedBatches += result.Failed
		log.Info("stream dispatched", "state", StateDispatched, "stream", reg.Name(), "succeeded", result.Succeeded, "failed", result.Failed)

		if _, err := reassemble.Reassemble(reg, result); err != nil {
			var agg *dispatcher.AggregateTranslationError
			if !errors.As(err, &agg) {
				return nil, err
			}
			aggs = append(aggs, agg)
		}
		log.Info("stream reassembled", "state", StateReassembled, "stream", reg.Name())
	}

	return dispatcher.Merge(aggs...), nil
}

func removeExisting(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (p *Pipeline) begin(ctx context.Context, job DocumentJob) *store.JobRecord {
	if p.opts.Recorder == nil {
		return nil
	}
	rec := &store.JobRecord{
		ID:         job.ID,
		SourcePath: job.SourcePath,
		Kind:       string(job.Kind),
		SourceLang: job.SourceLanguage,
		TargetLang: job.TargetLanguage,
		Status:     store.JobRunning,
	}
	if err := p.opts.Recorder.SaveJob(ctx, rec); err != nil {
		p.logger.Warn("failed to record job", "source", job.SourcePath, "error", err)
	}
	return rec
}

func (p *Pipeline) finish(ctx context.Context, rec *store.JobRecord, report *Report, err error) {
	if rec == nil {
		return
	}
	rec.OutputPath = report.OutputPath
	if report.Kind != "" {
		rec.Kind = string(report.Kind)
	}
	if report.SourceLanguage != "" {
		rec.SourceLang = report.SourceLanguage
	}
	rec.Nodes = report.Nodes
	rec.Batches = report.Batches
	rec.FailedBatches = report.FailedBatches
	rec.Status = store.JobSaved
	if report.OutputPath == "" {
		rec.Status = store.JobFailed
	}
	if err != nil {
		rec.Error = err.Error()
	}
	// The run's own context may be cancelled by now.
	if err := p.opts.Recorder.SaveJob(context.WithoutCancel(ctx), rec); err != nil {
		p.logger.Warn("failed to record job", "job", rec.ID, "error", err)
	}
}
