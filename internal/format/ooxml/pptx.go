package ooxml

import (
	"encoding/xml"

	"github.com/valpere/doctran/internal/format"
)

const (
	drawingNS      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	presentationNS = "http://schemas.openxmlformats.org/presentationml/2006/main"
)

// Presentation handles .pptx decks. Streams: body (slides in slide order),
// notes (speaker notes), comments (legacy and modern comment parts).
type Presentation struct{}

func (Presentation) Kind() format.Kind    { return format.Presentation }
func (Presentation) Extensions() []string { return []string{".pptx"} }

func (Presentation) Open(path string) (format.Document, error) {
	text := []xml.Name{{Space: drawingNS, Local: "t"}}

	return open(path, format.Presentation, "ppt/presentation.xml", []rule{
		{
			stream:   format.StreamBody,
			match:    prefixSuffix("ppt/slides/slide", ".xml"),
			elements: text,
			minLen:   1,
		},
		{
			stream:   format.StreamNotes,
			match:    prefixSuffix("ppt/notesSlides/notesSlide", ".xml"),
			elements: text,
			minLen:   1,
		},
		{
			stream:   format.StreamComments,
			match:    prefixSuffix("ppt/comments/", ".xml"),
			elements: append(text, xml.Name{Space: presentationNS, Local: "text"}),
			minLen:   1,
		},
	})
}
