// Package ooxml translates Office Open XML packages (.docx, .xlsx, .pptx).
//
// A package is a zip archive of XML parts. Text is located by streaming each
// part through encoding/xml and recording the byte span of every matching
// element body or attribute value. Translations are spliced into those spans
// so the surrounding markup stays byte-for-byte intact, and parts without
// changes are copied into the output archive without recompression.
package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/valpere/doctran/internal/format"
	"github.com/valpere/doctran/internal/registry"
)

// rule selects the translatable text of one stream.
type rule struct {
	stream   string
	match    func(name string) bool
	elements []xml.Name
	// attr translates this attribute of the matched elements instead of
	// their character content.
	attr string
	// exclude skips matches nested inside these elements.
	exclude []xml.Name
	// minLen leaves texts with fewer runes untouched.
	minLen int
}

type span struct {
	start, end int
	original   string
	text       string
}

type part struct {
	name  string
	data  []byte
	spans []span
}

// ref is the node handle: a span inside a part.
type ref struct {
	part *part
	span int
}

// Document is an opened OOXML package.
type Document struct {
	kind    format.Kind
	path    string
	zr      *zip.Reader
	parts   map[string]*part
	streams []*registry.Registry
	out     map[string][]byte
}

func open(path string, kind format.Kind, required string, rules []rule) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &format.ExtractionError{Path: path, Kind: kind, Err: err}
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &format.ExtractionError{Path: path, Kind: kind, Err: fmt.Errorf("not a zip package: %w", err)}
	}

	doc := &Document{kind: kind, path: path, zr: zr, parts: make(map[string]*part)}

	files := make(map[string]*zip.File, len(zr.File))
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
		names = append(names, f.Name)
	}
	if _, ok := files[required]; !ok {
		return nil, &format.ExtractionError{Path: path, Kind: kind, Err: fmt.Errorf("missing part %s", required)}
	}

	for _, r := range rules {
		reg := registry.New(r.stream)
		var matched []string
		for _, name := range names {
			if r.match(name) {
				matched = append(matched, name)
			}
		}
		sortParts(matched)

		for _, name := range matched {
			p, err := doc.load(files[name])
			if err != nil {
				return nil, &format.ExtractionError{Path: path, Kind: kind, Err: err}
			}
			spans, err := scan(p.data, r)
			if err != nil {
				return nil, &format.ExtractionError{Path: path, Kind: kind, Err: fmt.Errorf("%s: %w", name, err)}
			}
			for _, s := range spans {
				p.spans = append(p.spans, s)
				reg.Add(s.original, ref{part: p, span: len(p.spans) - 1})
			}
		}
		doc.streams = append(doc.streams, reg)
	}
	return doc, nil
}

func (d *Document) load(f *zip.File) (*part, error) {
	if p, ok := d.parts[f.Name]; ok {
		return p, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open part %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
	}
	p := &part{name: f.Name, data: data}
	d.parts[f.Name] = p
	return p, nil
}

// Streams returns the node streams in a fixed order.
func (d *Document) Streams() []*registry.Registry {
	return d.streams
}

// Write rebuilds every part whose texts changed.
func (d *Document) Write() error {
	for _, reg := range d.streams {
		for _, n := range reg.Nodes() {
			h, ok := n.Handle.(ref)
			if !ok {
				return fmt.Errorf("node %d of %s has a foreign handle", n.GlobalIndex, reg.Name())
			}
			h.part.spans[h.span].text = n.OriginalText
		}
	}

	d.out = make(map[string][]byte)
	for name, p := range d.parts {
		if data, changed := p.splice(); changed {
			d.out[name] = data
		}
	}
	return nil
}

// Save writes the package to path, preserving entry order and metadata.
func (d *Document) Save(path string) error {
	return format.WriteFileAtomic(path, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		for _, f := range d.zr.File {
			data, ok := d.out[f.Name]
			if !ok {
				if err := zw.Copy(f); err != nil {
					return fmt.Errorf("failed to copy %s: %w", f.Name, err)
				}
				continue
			}
			fw, err := zw.CreateHeader(&zip.FileHeader{
				Name:     f.Name,
				Comment:  f.Comment,
				Method:   f.Method,
				Modified: f.Modified,
			})
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", f.Name, err)
			}
			if _, err := fw.Write(data); err != nil {
				return fmt.Errorf("failed to write %s: %w", f.Name, err)
			}
		}
		return zw.Close()
	})
}

func (p *part) splice() ([]byte, bool) {
	var changed []span
	for _, s := range p.spans {
		if s.text != s.original {
			changed = append(changed, s)
		}
	}
	if len(changed) == 0 {
		return nil, false
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].start < changed[j].start })

	var buf bytes.Buffer
	buf.Grow(len(p.data))
	pos := 0
	for _, s := range changed {
		buf.Write(p.data[pos:s.start])
		_ = xml.EscapeText(&buf, []byte(s.text))
		pos = s.end
	}
	buf.Write(p.data[pos:])
	return buf.Bytes(), true
}

var errNested = errors.New("nested element")

// scan returns the spans selected by r in document order.
func scan(data []byte, r rule) ([]span, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	var spans []span
	excluded := 0

	for {
		before := int(d.InputOffset())
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			after := int(d.InputOffset())
			if hasName(r.exclude, t.Name) {
				excluded++
				continue
			}
			if excluded > 0 || !hasName(r.elements, t.Name) {
				continue
			}
			if r.attr != "" {
				if s, ok := attrSpan(data[before:after], before, t, r.attr); ok && runeLen(s.original) >= r.minLen {
					spans = append(spans, s)
				}
				continue
			}
			if bytes.HasSuffix(data[before:after], []byte("/>")) {
				continue
			}
			s, err := textSpan(d, after)
			if errors.Is(err, errNested) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if s.original != "" && runeLen(s.original) >= r.minLen {
				spans = append(spans, s)
			}
		case xml.EndElement:
			if hasName(r.exclude, t.Name) && excluded > 0 {
				excluded--
			}
		}
	}
	return spans, nil
}

// textSpan consumes the body of an element whose start tag ends at start.
// Mixed content cannot be replaced as one string, so an element with child
// elements is drained and reported as errNested.
func textSpan(d *xml.Decoder, start int) (span, error) {
	var sb strings.Builder
	for {
		before := int(d.InputOffset())
		tok, err := d.Token()
		if err != nil {
			return span{}, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if err := skipTo(d); err != nil {
				return span{}, err
			}
			if err := skipTo(d); err != nil {
				return span{}, err
			}
			return span{}, errNested
		case xml.EndElement:
			text := sb.String()
			return span{start: start, end: before, original: text, text: text}, nil
		}
	}
}

// skipTo consumes tokens up to the end of the current element.
func skipTo(d *xml.Decoder) error {
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
}

func attrPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\s` + regexp.QuoteMeta(name) + `\s*=\s*(?:"([^"]*)"|'([^']*)')`)
}

// attrSpan locates the raw value of attribute name inside a start tag that
// begins at offset base.
func attrSpan(raw []byte, base int, el xml.StartElement, name string) (span, bool) {
	var value string
	found := false
	for _, a := range el.Attr {
		if a.Name.Local == name && a.Name.Space == "" {
			value, found = a.Value, true
			break
		}
	}
	if !found || value == "" {
		return span{}, false
	}
	m := attrPattern(name).FindSubmatchIndex(raw)
	if m == nil {
		return span{}, false
	}
	start, end := m[2], m[3]
	if start < 0 {
		start, end = m[4], m[5]
	}
	return span{start: base + start, end: base + end, original: value, text: value}, true
}

func hasName(names []xml.Name, n xml.Name) bool {
	for _, x := range names {
		if x.Local == n.Local && x.Space == n.Space {
			return true
		}
	}
	return false
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

var numberedPart = regexp.MustCompile(`^(.*?)(\d+)(\.xml)$`)

// sortParts orders names with numeric suffixes by number so that slide10
// follows slide9.
func sortParts(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		a, b := numberedPart.FindStringSubmatch(names[i]), numberedPart.FindStringSubmatch(names[j])
		if a != nil && b != nil && a[1] == b[1] {
			na, _ := strconv.Atoi(a[2])
			nb, _ := strconv.Atoi(b[2])
			if na != nb {
				return na < nb
			}
		}
		return names[i] < names[j]
	})
}

func prefixSuffix(prefix, suffix string) func(string) bool {
	return func(name string) bool {
		return strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix)
	}
}

func oneOf(names ...string) func(string) bool {
	return func(name string) bool {
		for _, n := range names {
			if name == n {
				return true
			}
		}
		return false
	}
}

func anyOf(preds ...func(string) bool) func(string) bool {
	return func(name string) bool {
		for _, p := range preds {
			if p(name) {
				return true
			}
		}
		return false
	}
}
