package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/valpere/doctran/internal/format"
)

// DocumentJob describes one document to translate.
type DocumentJob struct {
	// ID names the job in the job history. It is generated when empty.
	ID         string
	SourcePath string
	// SourceLanguage is an ISO code or "auto".
	SourceLanguage string
	TargetLanguage string
	// Kind selects the format family. Empty means derive it from the
	// file extension.
	Kind format.Kind
}

// FailurePolicy decides what happens to a document when some batches failed.
type FailurePolicy string

const (
	// Discard writes nothing when any batch failed.
	Discard FailurePolicy = "discard"
	// KeepPartial saves the document with failed nodes left untranslated and
	// still reports the failure.
	KeepPartial FailurePolicy = "keep-partial"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Discard:
		return Discard, nil
	case KeepPartial:
		return KeepPartial, nil
	}
	return "", fmt.Errorf("unknown failure policy %q (want %s or %s)", s, Discard, KeepPartial)
}

// State is a step of a job run.
type State string

const (
	StateExtracted   State = "extracted"
	StateBatched     State = "batched"
	StateDispatched  State = "dispatched"
	StateReassembled State = "reassembled"
	StateSaved       State = "saved"
	StateFailed      State = "failed"
)

// OutputPath inserts the language code before the extension:
// report.pptx and "en" give report.en.pptx.
func OutputPath(sourcePath, code string) string {
	dir, base := filepath.Split(sourcePath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, name+"."+code+ext)
}

// SaveError is an I/O failure while writing the translated document.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to save %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
