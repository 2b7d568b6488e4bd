package markup

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"

	"github.com/valpere/doctran/internal/format"
	"github.com/valpere/doctran/internal/registry"
)

// Markdown handles .md and .markdown files.
type Markdown struct{}

func (Markdown) Kind() format.Kind    { return format.Markup }
func (Markdown) Extensions() []string { return []string{".md", ".markdown"} }

func (Markdown) Open(path string) (format.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &format.ExtractionError{Path: path, Kind: format.Markup, Err: err}
	}
	return ParseMarkdown(data), nil
}

type literal struct {
	start, end int
	original   string
}

// MarkdownDocument is a Markdown source with the byte spans of its text
// leaves. Code spans, code blocks, raw HTML and link targets are not text
// leaves, and the search for the next leaf starts after them.
type MarkdownDocument struct {
	src  []byte
	body *registry.Registry
	out  []byte
}

// ParseMarkdown parses src and locates every text leaf in it. A leaf whose
// literal does not occur verbatim in the source (escapes, entities, lazy
// continuation lines) is left untranslated.
func ParseMarkdown(src []byte) *MarkdownDocument {
	d := &MarkdownDocument{src: src, body: registry.New(format.StreamBody)}

	p := parser.NewWithExtensions(parser.CommonExtensions)
	root := p.Parse(bytes.Clone(src))

	cursor := 0
	ast.WalkFunc(root, func(node ast.Node, entering bool) ast.WalkStatus {
		switch n := node.(type) {
		case *ast.CodeBlock:
			if n.IsFenced {
				cursor = skipLines(src, cursor, n.Info)
			}
			cursor = skipLines(src, cursor, n.Literal)
			return ast.SkipChildren
		case *ast.Code:
			cursor = skipLines(src, cursor, n.Literal)
			return ast.SkipChildren
		case *ast.HTMLBlock:
			cursor = skipLines(src, cursor, n.Literal)
			return ast.SkipChildren
		case *ast.HTMLSpan:
			cursor = skipLines(src, cursor, n.Literal)
			return ast.SkipChildren
		case *ast.Link:
			if !entering {
				cursor = skipDestination(src, cursor, n.Destination, n.Title)
			}
			return ast.GoToNext
		case *ast.Image:
			if !entering {
				cursor = skipDestination(src, cursor, n.Destination, n.Title)
			}
			return ast.GoToNext
		}

		if !entering {
			return ast.GoToNext
		}
		leaf, ok := node.(*ast.Text)
		if !ok || len(bytes.TrimSpace(leaf.Literal)) == 0 {
			return ast.GoToNext
		}
		lit := bytes.TrimSpace(leaf.Literal)
		idx := bytes.Index(src[cursor:], lit)
		if idx < 0 {
			return ast.GoToNext
		}
		start := cursor + idx
		end := start + len(lit)
		cursor = end
		d.body.Add(string(lit), literal{start: start, end: end, original: string(lit)})
		return ast.GoToNext
	})
	return d
}

// skipLines moves cursor past each non-blank line of lit in source order.
// Lines are matched one by one since the parser strips code block
// indentation and blockquote markers from the literal.
func skipLines(src []byte, cursor int, lit []byte) int {
	for _, line := range bytes.Split(lit, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if idx := bytes.Index(src[cursor:], line); idx >= 0 {
			cursor += idx + len(line)
		}
	}
	return cursor
}

// skipDestination moves cursor past an inline link target. Reference links
// keep their target elsewhere in the file; those are recognised by text
// between the label and the first match, and the cursor stays put.
func skipDestination(src []byte, cursor int, dest, title []byte) int {
	for _, part := range [][]byte{dest, title} {
		if len(part) == 0 {
			continue
		}
		idx := bytes.Index(src[cursor:], part)
		if idx < 0 || !markupOnly(src[cursor:cursor+idx]) {
			return cursor
		}
		cursor += idx + len(part)
	}
	return cursor
}

func markupOnly(gap []byte) bool {
	for _, r := range string(gap) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\n' {
			return false
		}
	}
	return true
}

func (d *MarkdownDocument) Streams() []*registry.Registry {
	return []*registry.Registry{d.body}
}

func (d *MarkdownDocument) Write() error {
	type edit struct {
		literal
		text string
	}
	var edits []edit
	for _, n := range d.body.Nodes() {
		lit := n.Handle.(literal)
		if n.OriginalText == lit.original {
			continue
		}
		text := n.OriginalText
		if !strings.Contains(lit.original, "\n") {
			// A new line break could turn a heading or list item into a paragraph.
			text = strings.Join(strings.Fields(text), " ")
		}
		edits = append(edits, edit{literal: lit, text: text})
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var buf bytes.Buffer
	buf.Grow(len(d.src))
	pos := 0
	for _, e := range edits {
		buf.Write(d.src[pos:e.start])
		buf.WriteString(e.text)
		pos = e.end
	}
	buf.Write(d.src[pos:])
	d.out = buf.Bytes()
	return nil
}

func (d *MarkdownDocument) Save(path string) error {
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
