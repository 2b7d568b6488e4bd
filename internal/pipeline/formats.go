package pipeline

import (
	"github.com/valpere/doctran/internal/format"
	"github.com/valpere/doctran/internal/format/delimited"
	"github.com/valpere/doctran/internal/format/markup"
	"github.com/valpere/doctran/internal/format/ooxml"
	"github.com/valpere/doctran/internal/format/plaintext"
	"github.com/valpere/doctran/internal/format/subtitle"
)

// DefaultTable registers every supported document format.
func DefaultTable() *format.Table {
	return format.NewTable(
		ooxml.Word{},
		ooxml.Workbook{},
		delimited.Format{Comma: ','},
		ooxml.Presentation{},
		plaintext.Format{},
		markup.HTML{},
		markup.Markdown{},
		subtitle.Format{},
	)
}
