// Package placeholder shields the parts of a text node that must survive
// translation verbatim: inline markup, code, subtitle override tags, format
// variables and URLs. Each protected span becomes a numbered [PHn] marker
// that LLM backends are told to keep.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// rules are applied in order, so longer constructs claim their text before
// the shorter patterns nested inside them.
var rules = []*regexp.Regexp{
	// fenced code
	regexp.MustCompile("(?s)```.*?```"),
	// inline code
	regexp.MustCompile("`[^`\n]+`"),
	// markup tags
	regexp.MustCompile(`<[A-Za-z/!][^<>]*>`),
	// subtitle overrides such as {\i1}
	regexp.MustCompile(`\{\\[^{}]*\}`),
	regexp.MustCompile(`https?://[^\s<>"'\])]+`),
	// template variables
	regexp.MustCompile(`\{\{[^{}]+\}\}|\{[A-Za-z0-9_.]+\}`),
	// printf verbs
	regexp.MustCompile(`%(?:\d+\$)?[-+#0]*\d*(?:\.\d+)?[sdfvqxX]`),
}

var marker = regexp.MustCompile(`\[PH(\d+)\]`)

// Protected is a text with its shielded spans replaced by markers.
type Protected struct {
	Text  string
	Spans []string
}

// Protect replaces every shielded span of text with [PH0], [PH1], ... in
// order of discovery.
func Protect(text string) Protected {
	p := Protected{Text: text}
	for _, re := range rules {
		p.Text = re.ReplaceAllStringFunc(p.Text, func(match string) string {
			// A marker produced by an earlier rule is never re-protected.
			if marker.MatchString(match) {
				return match
			}
			id := fmt.Sprintf("[PH%d]", len(p.Spans))
			p.Spans = append(p.Spans, match)
			return id
		})
	}
	return p
}

// Restore puts the original spans back into a translation of p.Text.
// Unknown marker indices are left untouched.
func (p Protected) Restore(translated string) string {
	if len(p.Spans) == 0 {
		return translated
	}
	return marker.ReplaceAllStringFunc(translated, func(m string) string {
		idx, err := strconv.Atoi(marker.FindStringSubmatch(m)[1])
		if err != nil || idx >= len(p.Spans) {
			return m
		}
		return p.Spans[idx]
	})
}

// Missing lists the marker indices absent from translated.
func (p Protected) Missing(translated string) []int {
	var missing []int
	for i := range p.Spans {
		if !strings.Contains(translated, "[PH"+strconv.Itoa(i)+"]") {
			missing = append(missing, i)
		}
	}
	return missing
}

// InstructionHint is appended to LLM prompts.
func InstructionHint() string {
	return "Keep every [PHn] marker exactly as written. Do not translate, move or drop them."
}
