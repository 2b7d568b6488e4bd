package pipeline

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/valpere/doctran/internal/format"
	"github.com/valpere/doctran/internal/langcode"
)

// Align translates job like Run but, instead of the translated document,
// writes a bilingual CSV next to the source: <file>.<code>.csv with a header
// of the upper-cased language codes and one source,translation row per
// non-blank node. The third column keeps the layout of earlier alignment
// files; no backend reports word alignments, so it stays empty.
func (p *Pipeline) Align(ctx context.Context, job DocumentJob) (string, error) {
	log := p.logger.With("source", job.SourcePath, "mode", "align")

	target, err := langcode.ParseTarget(job.TargetLanguage)
	if err != nil {
		return "", err
	}
	source, err := langcode.Parse(job.SourceLanguage)
	if err != nil {
		return "", err
	}

	outPath := AlignmentPath(job.SourcePath, target)
	if err := removeExisting(outPath); err != nil {
		return "", &SaveError{Path: outPath, Err: err}
	}

	doc, kind, err := p.open(job)
	if err != nil {
		return "", err
	}
	log.Info("document extracted", "state", StateExtracted, "kind", kind)
	source = p.detectSource(doc, source, log)

	// Originals must be captured before reassembly overwrites them.
	originals := make([][]string, len(doc.Streams()))
	for i, reg := range doc.Streams() {
		originals[i] = reg.Texts()
	}

	agg, err := p.translateDocument(ctx, doc, source, target, &Report{}, log)
	if err != nil {
		return "", err
	}
	if agg != nil && p.opts.FailurePolicy != KeepPartial {
		log.Error("alignment discarded", "state", StateFailed, "failed", len(agg.Failures))
		return "", agg
	}

	err = format.WriteFileAtomic(outPath, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{strings.ToUpper(source), strings.ToUpper(target), alignmentColumn}); err != nil {
			return err
		}
		for i, reg := range doc.Streams() {
			for j, translated := range reg.Texts() {
				if strings.TrimSpace(originals[i][j]) == "" {
					continue
				}
				if err := cw.Write([]string{originals[i][j], translated, ""}); err != nil {
					return err
				}
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return "", &SaveError{Path: outPath, Err: err}
	}
	log.Info("alignment saved", "state", StateSaved, "output", outPath)

	if agg != nil {
		return outPath, agg
	}
	return outPath, nil
}

const alignmentColumn = "Word Alignment"

// AlignmentPath is the bilingual CSV written by Align for sourcePath. The
// source extension is kept so notes.txt and notes.md do not collide.
func AlignmentPath(sourcePath, code string) string {
	return sourcePath + "." + code + ".csv"
}
