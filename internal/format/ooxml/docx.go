package ooxml

import (
	"encoding/xml"

	"github.com/valpere/doctran/internal/format"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

var wordText = []xml.Name{{Space: wordNS, Local: "t"}}

// Word handles .docx documents. Streams: body, headers (headers and footers),
// comments, notes (footnotes and endnotes). Single-character runs are left
// alone since they are mostly bullets, numbering and stray punctuation.
type Word struct{}

func (Word) Kind() format.Kind    { return format.Word }
func (Word) Extensions() []string { return []string{".docx"} }

func (Word) Open(path string) (format.Document, error) {
	return open(path, format.Word, "word/document.xml", []rule{
		{
			stream:   format.StreamBody,
			match:    oneOf("word/document.xml"),
			elements: wordText,
			minLen:   2,
		},
		{
			stream:   format.StreamHeaders,
			match:    anyOf(prefixSuffix("word/header", ".xml"), prefixSuffix("word/footer", ".xml")),
			elements: wordText,
			minLen:   2,
		},
		{
			stream:   format.StreamComments,
			match:    oneOf("word/comments.xml"),
			elements: wordText,
			minLen:   2,
		},
		{
			stream:   format.StreamNotes,
			match:    oneOf("word/footnotes.xml", "word/endnotes.xml"),
			elements: wordText,
			minLen:   2,
		},
	})
}
