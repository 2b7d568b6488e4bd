// Package delimited translates comma-separated spreadsheets cell by cell.
package delimited

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/valpere/doctran/internal/format"
	"github.com/valpere/doctran/internal/registry"
)

type cell struct{ row, col int }

// Format handles .csv files. Every non-empty cell is a node in row-major
// order. Cells that hold only a number are left untouched.
type Format struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune
}

func (Format) Kind() format.Kind    { return format.Spreadsheet }
func (Format) Extensions() []string { return []string{".csv"} }

func (f Format) Open(path string) (format.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &format.ExtractionError{Path: path, Kind: format.Spreadsheet, Err: err}
	}
	doc, err := Parse(data, f.Comma)
	if err != nil {
		return nil, &format.ExtractionError{Path: path, Kind: format.Spreadsheet, Err: err}
	}
	return doc, nil
}

// Document is a parsed CSV table.
type Document struct {
	comma rune
	crlf  bool
	rows  [][]string
	cells *registry.Registry
	out   []byte
}

// Parse reads all records. Rows may have different lengths.
func Parse(data []byte, comma rune) (*Document, error) {
	if comma == 0 {
		comma = ','
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	d := &Document{comma: comma, crlf: bytes.Contains(data, []byte("\r\n")), cells: registry.New(format.StreamCells)}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		d.rows = append(d.rows, rec)
	}

	for i, row := range d.rows {
		for j, v := range row {
			if translatable(v) {
				d.cells.Add(v, cell{row: i, col: j})
			}
		}
	}
	return d, nil
}

func translatable(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	return strings.IndexFunc(v, func(r rune) bool {
		return !(r >= '0' && r <= '9') && !strings.ContainsRune("+-.,%$€ ", r)
	}) >= 0
}

func (d *Document) Streams() []*registry.Registry {
	return []*registry.Registry{d.cells}
}

// Rows returns the table with current cell texts.
func (d *Document) Rows() [][]string {
	rows := make([][]string, len(d.rows))
	for i, row := range d.rows {
		rows[i] = append([]string(nil), row...)
	}
	for _, n := range d.cells.Nodes() {
		c := n.Handle.(cell)
		rows[c.row][c.col] = n.OriginalText
	}
	return rows
}

func (d *Document) Write() error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = d.comma
	w.UseCRLF = d.crlf
	if err := w.WriteAll(d.Rows()); err != nil {
		return fmt.Errorf("failed to encode csv: %w", err)
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
