// Package markup translates HTML and Markdown documents in place. Only the
// visible text is exposed; tags, attributes, scripts, styles and code are
// copied through byte for byte.
package markup

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/valpere/doctran/internal/format"
	"github.com/valpere/doctran/internal/registry"
)

// skipped elements never contribute text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Code:     true,
	atom.Pre:      true,
	atom.Xmp:      true,
	atom.Iframe:   true,
	atom.Noembed:  true,
	atom.Noframes: true,
	atom.Template: true,
}

// HTML handles .html and .htm files.
type HTML struct{}

func (HTML) Kind() format.Kind    { return format.Markup }
func (HTML) Extensions() []string { return []string{".html", ".htm", ".xhtml"} }

func (HTML) Open(path string) (format.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &format.ExtractionError{Path: path, Kind: format.Markup, Err: err}
	}
	doc, err := ParseHTML(data)
	if err != nil {
		return nil, &format.ExtractionError{Path: path, Kind: format.Markup, Err: err}
	}
	return doc, nil
}

type textToken struct {
	segment  int
	lead     string
	trail    string
	original string
}

// HTMLDocument is a tokenized HTML file.
type HTMLDocument struct {
	segments [][]byte
	body     *registry.Registry
	policy   *bluemonday.Policy
	out      []byte
}

// ParseHTML tokenizes data. Each text token outside skipped elements becomes
// a node holding the token text without its surrounding whitespace.
func ParseHTML(data []byte) (*HTMLDocument, error) {
	d := &HTMLDocument{body: registry.New(format.StreamBody), policy: bluemonday.StrictPolicy()}
	z := html.NewTokenizer(bytes.NewReader(data))
	depth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to tokenize html: %w", z.Err())
		}
		raw := append([]byte(nil), z.Raw()...)
		d.segments = append(d.segments, raw)

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			if skipped[atom.Lookup(name)] {
				depth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipped[atom.Lookup(name)] && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth > 0 {
				continue
			}
			s := string(raw)
			core := strings.TrimFunc(s, unicode.IsSpace)
			if core == "" {
				continue
			}
			start := strings.Index(s, core)
			text := html.UnescapeString(core)
			d.body.Add(text, textToken{
				segment:  len(d.segments) - 1,
				lead:     s[:start],
				trail:    s[start+len(core):],
				original: text,
			})
		}
	}
	return d, nil
}

func (d *HTMLDocument) Streams() []*registry.Registry {
	return []*registry.Registry{d.body}
}

// Write replaces changed text tokens. Backends sometimes answer with markup
// of their own, so the translation is reduced to plain text and escaped.
func (d *HTMLDocument) Write() error {
	segments := make([][]byte, len(d.segments))
	copy(segments, d.segments)

	for _, n := range d.body.Nodes() {
		tok := n.Handle.(textToken)
		if n.OriginalText == tok.original {
			continue
		}
		clean := html.UnescapeString(d.policy.Sanitize(n.OriginalText))
		segments[tok.segment] = []byte(tok.lead + html.EscapeString(clean) + tok.trail)
	}
	d.out = bytes.Join(segments, nil)
	return nil
}

func (d *HTMLDocument) Save(path string) error {
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
