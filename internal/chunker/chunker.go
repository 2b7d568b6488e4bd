// Package chunker cuts a long text into pieces that fit a backend's
// per-request size limit. Cuts fall on paragraph, sentence or word
// boundaries when one exists inside the limit.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Piece is one chunk and the whitespace that followed it in the source.
type Piece struct {
	Text string
	Sep  string
}

// Split cuts text into pieces of at most maxBytes bytes. Concatenating every
// Text followed by its Sep gives back text exactly. A maxBytes of 0 or less
// means no limit.
func Split(text string, maxBytes int) []Piece {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return []Piece{{Text: text}}
	}

	var pieces []Piece
	rest := text
	for len(rest) > maxBytes {
		cut := findCut(rest, maxBytes)
		end := cut
		for end < len(rest) {
			r, size := utf8.DecodeRuneInString(rest[end:])
			if !unicode.IsSpace(r) {
				break
			}
			end += size
		}
		body := strings.TrimRightFunc(rest[:cut], unicode.IsSpace)
		pieces = append(pieces, Piece{Text: body, Sep: rest[len(body):end]})
		rest = rest[end:]
	}
	if rest != "" {
		pieces = append(pieces, Piece{Text: rest})
	}
	return pieces
}

// Join rebuilds a text from translated pieces and the separators of the
// source pieces.
func Join(pieces []Piece, texts []string) string {
	var sb strings.Builder
	for i, p := range pieces {
		if i < len(texts) {
			sb.WriteString(texts[i])
		}
		sb.WriteString(p.Sep)
	}
	return sb.String()
}

// findCut returns the byte offset at which to end the next piece. The result
// is always positive and never splits a rune.
func findCut(text string, maxBytes int) int {
	n := maxBytes
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	if n == 0 {
		_, size := utf8.DecodeRuneInString(text)
		return size
	}
	window := text[:n]

	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return idx
	}
	for i := len(window) - 1; i > 0; i-- {
		switch window[i] {
		case '.', '!', '?':
			if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t') {
				return i + 1
			}
		}
	}
	if idx := strings.LastIndexFunc(window, unicode.IsSpace); idx > 0 {
		return idx
	}
	return n
}
