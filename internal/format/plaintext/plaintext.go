// Package plaintext translates plain text files line by line.
package plaintext

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/valpere/doctran/internal/format"
	"github.com/valpere/doctran/internal/registry"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Format handles .txt files. Every line is one node, empty lines included,
// so that the line structure survives translation. Line endings (LF or CRLF),
// the trailing newline and a leading UTF-8 BOM are preserved.
type Format struct{}

func (Format) Kind() format.Kind    { return format.Text }
func (Format) Extensions() []string { return []string{".txt", ".text"} }

func (Format) Open(path string) (format.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &format.ExtractionError{Path: path, Kind: format.Text, Err: err}
	}
	return Parse(data), nil
}

// Document is a parsed text file.
type Document struct {
	bom      bool
	eol      string
	trailing bool
	body     *registry.Registry
	out      []byte
}

// Parse splits data into lines.
func Parse(data []byte) *Document {
	d := &Document{eol: "\n", body: registry.New(format.StreamBody)}
	if bytes.HasPrefix(data, bom) {
		d.bom = true
		data = data[len(bom):]
	}
	text := string(data)
	if strings.Contains(text, "\r\n") {
		d.eol = "\r\n"
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.HasSuffix(text, "\n") {
		d.trailing = true
		text = strings.TrimSuffix(text, "\n")
	}
	if text == "" && !d.trailing {
		return d
	}
	for _, line := range strings.Split(text, "\n") {
		d.body.Add(line, nil)
	}
	return d
}

func (d *Document) Streams() []*registry.Registry {
	return []*registry.Registry{d.body}
}

// Lines returns the current line texts.
func (d *Document) Lines() []string {
	return d.body.Texts()
}

func (d *Document) Write() error {
	var buf bytes.Buffer
	if d.bom {
		buf.Write(bom)
	}
	for i, line := range d.body.Texts() {
		if i > 0 {
			buf.WriteString(d.eol)
		}
		// A translated line must stay one line.
		line = strings.ReplaceAll(line, "\r\n", " ")
		buf.WriteString(strings.ReplaceAll(line, "\n", " "))
	}
	if d.trailing {
		buf.WriteString(d.eol)
	}
	d.out = buf.Bytes()
	return nil
}

func (d *Document) Save(path string) error {
	if d.out == nil {
		if err := d.Write(); err != nil {
			return err
		}
	}
	if err := format.WriteBytesAtomic(path, d.out); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
