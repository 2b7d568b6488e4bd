package ooxml

import (
	"encoding/xml"
	"strings"

	"github.com/valpere/doctran/internal/format"
)

const sheetNS = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"

// Workbook handles .xlsx workbooks. Streams: cells (shared strings and inline
// strings), tables (table column names), comments. Phonetic runs are never
// translated. Formulas and numeric cells are untouched since they live in
// elements no rule selects.
type Workbook struct{}

func (Workbook) Kind() format.Kind    { return format.Spreadsheet }
func (Workbook) Extensions() []string { return []string{".xlsx"} }

func (Workbook) Open(path string) (format.Document, error) {
	text := []xml.Name{{Space: sheetNS, Local: "t"}}
	phonetic := []xml.Name{{Space: sheetNS, Local: "rPh"}}

	return open(path, format.Spreadsheet, "xl/workbook.xml", []rule{
		{
			stream:   format.StreamCells,
			match:    anyOf(oneOf("xl/sharedStrings.xml"), prefixSuffix("xl/worksheets/sheet", ".xml")),
			elements: text,
			exclude:  phonetic,
			minLen:   1,
		},
		{
			stream:   format.StreamTables,
			match:    prefixSuffix("xl/tables/table", ".xml"),
			elements: []xml.Name{{Space: sheetNS, Local: "tableColumn"}},
			attr:     "name",
			minLen:   1,
		},
		{
			stream: format.StreamComments,
			match: func(name string) bool {
				return strings.HasPrefix(name, "xl/comments") && strings.HasSuffix(name, ".xml")
			},
			elements: text,
			exclude:  phonetic,
			minLen:   1,
		},
	})
}
