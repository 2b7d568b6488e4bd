// Package format defines how documents are opened, exposed as translatable
// node streams, rewritten from those streams and saved.
package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/valpere/doctran/internal/registry"
)

// Kind is the document category that selects extraction behaviour.
type Kind string

const (
	Word         Kind = "word"
	Spreadsheet  Kind = "spreadsheet"
	Presentation Kind = "presentation"
	Text         Kind = "text"
	Markup       Kind = "markup"
	Subtitle     Kind = "subtitle"
)

// Kinds lists every supported kind.
var Kinds = []Kind{Word, Spreadsheet, Presentation, Text, Markup, Subtitle}

// ParseKind accepts a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown document kind %q", s)
}

// Stream names shared by the formats.
const (
	StreamBody     = "body"
	StreamHeaders  = "headers"
	StreamComments = "comments"
	StreamNotes    = "notes"
	StreamCells    = "cells"
	StreamTables   = "tables"
)

// Document is an opened source document. Streams are extracted on Open and
// stay attached to the document; Write applies their current texts back into
// the document structure and Save serialises it.
type Document interface {
	Streams() []*registry.Registry
	Write() error
	Save(path string) error
}

// Format opens documents of one file type.
type Format interface {
	Kind() Kind
	Extensions() []string
	Open(path string) (Document, error)
}

// ErrUnsupported is returned when no format handles a path.
var ErrUnsupported = errors.New("unsupported document")

// ExtractionError reports a document that could not be opened or parsed.
type ExtractionError struct {
	Path string
	Kind Kind
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("failed to extract %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to extract %s document %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Table maps kinds and extensions to formats.
type Table struct {
	byKind map[Kind][]Format
	byExt  map[string]Format
}

// NewTable builds a lookup table. A later format claiming an extension
// already registered replaces the earlier one.
func NewTable(formats ...Format) *Table {
	t := &Table{byKind: make(map[Kind][]Format), byExt: make(map[string]Format)}
	for _, f := range formats {
		t.byKind[f.Kind()] = append(t.byKind[f.Kind()], f)
		for _, ext := range f.Extensions() {
			t.byExt[strings.ToLower(ext)] = f
		}
	}
	return t
}

// KindFor returns the kind that handles path's extension.
func (t *Table) KindFor(path string) (Kind, error) {
	f, ok := t.byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", &ExtractionError{Path: path, Err: ErrUnsupported}
	}
	return f.Kind(), nil
}

// Resolve selects the format for a document of the given kind. An empty kind
// is derived from the extension. A kind with several formats (markup covers
// HTML and Markdown) picks the one claiming the extension.
func (t *Table) Resolve(kind Kind, path string) (Format, error) {
	if kind == "" {
		k, err := t.KindFor(path)
		if err != nil {
			return nil, err
		}
		kind = k
	}
	formats := t.byKind[kind]
	if len(formats) == 0 {
		return nil, &ExtractionError{Path: path, Kind: kind, Err: ErrUnsupported}
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range formats {
		for _, e := range f.Extensions() {
			if strings.EqualFold(e, ext) {
				return f, nil
			}
		}
	}
	return nil, &ExtractionError{Path: path, Kind: kind, Err: fmt.Errorf("%w: extension %q", ErrUnsupported, ext)}
}

// Extensions returns every registered extension.
func (t *Table) Extensions() []string {
	out := make([]string, 0, len(t.byExt))
	for ext := range t.byExt {
		out = append(out, ext)
	}
	return out
}
