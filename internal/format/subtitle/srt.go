// Package subtitle translates SubRip (.srt) subtitle files. Cue numbering and
// timing lines are kept verbatim; only cue text is exposed for translation.
package subtitle

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/valpere/doctran/internal/format"
	"github.com/valpere/doctran/internal/registry"
)

var (
	bom        = []byte{0xEF, 0xBB, 0xBF}
	timeLineRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}[,.]\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}[,.]\d{3}`)
)

// Cue is one subtitle block.
type Cue struct {
	Seq  string
	Time string
	Text string
}

// Format handles .srt files.
type Format struct{}

func (Format) Kind() format.Kind    { return format.Subtitle }
func (Format) Extensions() []string { return []string{".srt"} }

func (Format) Open(path string) (format.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &format.ExtractionError{Path: path, Kind: format.Subtitle, Err: err}
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, &format.ExtractionError{Path: path, Kind: format.Subtitle, Err: err}
	}
	return doc, nil
}

// Document is a parsed subtitle file. Each cue's text is one node whose
// lines are joined with "\n".
type Document struct {
	bom  bool
	eol  string
	cues []Cue
	body *registry.Registry
	out  []byte
}

// Parse reads SRT blocks: a sequence line, a timing line, text lines up to
// an empty line.
func Parse(data []byte) (*Document, error) {
	d := &Document{eol: "\n", body: registry.New(format.StreamBody)}
	if bytes.HasPrefix(data, bom) {
		d.bom = true
		data = data[len(bom):]
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("invalid UTF-8 in subtitle file")
	}
	text := string(data)
	if strings.Contains(text, "\r\n") {
		d.eol = "\r\n"
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	for i := 0; i < len(lines); {
		seq := strings.TrimSpace(lines[i])
		if seq == "" {
			i++
			continue
		}
		if _, err := strconv.Atoi(seq); err != nil {
			return nil, fmt.Errorf("line %d: invalid sequence line %q", i+1, lines[i])
		}
		if i+1 >= len(lines) || !timeLineRe.MatchString(strings.TrimSpace(lines[i+1])) {
			return nil, fmt.Errorf("line %d: invalid time line after cue %s", i+2, seq)
		}
		cue := Cue{Seq: seq, Time: strings.TrimSpace(lines[i+1])}
		i += 2

		var texts []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			texts = append(texts, lines[i])
			i++
		}
		cue.Text = strings.Join(texts, "\n")
		d.cues = append(d.cues, cue)
		d.body.Add(cue.Text, len(d.cues)-1)
	}
	return d, nil
}

func (d *Document) Streams() []*registry.Registry {
	return []*registry.Registry{d.body}
}

// Cues returns the cues with their current texts.
func (d *Document) Cues() []Cue {
	out := make([]Cue, len(d.cues))
	copy(out, d.cues)
	for _, n := range d.body.Nodes() {
		out[n.Handle.(int)].Text = n.OriginalText
	}
	return out
}

func (d *Document) Write() error {
	var buf bytes.Buffer
	if d.bom {
		buf.Write(bom)
	}
	for i, cue := range d.Cues() {
		if i > 0 {
			buf.WriteString(d.eol)
		}
		buf.WriteString(cue.Seq + d.eol)
		buf.WriteString(cue.Time + d.eol)
		for _, line := range strings.Split(strings.ReplaceAll(cue.Text, "\r\n", "\n"), "\n") {
			// An empty line would terminate the cue early.
			if strings.TrimSpace(line) == "" {
				continue
			}
			buf.WriteString(line + d.eol)
		}
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
