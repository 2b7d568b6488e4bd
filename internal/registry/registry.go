// Package registry holds the ordered, indexed text nodes extracted from one
// document stream together with the opaque handles that the owning format
// uses to write a translation back into the source structure.
package registry

import (
	"fmt"
	"unicode/utf8"
)

// TextNode is one unit of translatable text.
type TextNode struct {
	// GlobalIndex is the 0-based position of the node in extraction order.
	GlobalIndex int
	// OriginalText starts as the extracted text and is replaced in place
	// with the translation during reassembly.
	OriginalText string
	// Handle points back into the source document. Only the format that
	// created the node interprets it.
	Handle any
}

// Len returns the character length of the node text. Empty text counts as
// one character so that placeholder nodes still occupy batch capacity.
func (n TextNode) Len() int {
	if n.OriginalText == "" {
		return 1
	}
	return utf8.RuneCountInString(n.OriginalText)
}

// Registry is one named stream of nodes (body, comments, notes, ...).
// Streams are batched and dispatched independently of each other.
type Registry struct {
	name  string
	nodes []TextNode
}

// New creates an empty stream.
func New(name string) *Registry {
	return &Registry{name: name}
}

// Name returns the stream name.
func (r *Registry) Name() string {
	return r.name
}

// Add appends a node and returns its GlobalIndex.
func (r *Registry) Add(text string, handle any) int {
	idx := len(r.nodes)
	r.nodes = append(r.nodes, TextNode{GlobalIndex: idx, OriginalText: text, Handle: handle})
	return idx
}

// Len returns the number of nodes in the stream.
func (r *Registry) Len() int {
	return len(r.nodes)
}

// Nodes returns a copy of the node sequence in extraction order.
func (r *Registry) Nodes() []TextNode {
	out := make([]TextNode, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// Node returns the node at GlobalIndex i.
func (r *Registry) Node(i int) (TextNode, error) {
	if i < 0 || i >= len(r.nodes) {
		return TextNode{}, fmt.Errorf("registry %s: index %d out of range [0,%d)", r.name, i, len(r.nodes))
	}
	return r.nodes[i], nil
}

// Set replaces the text of the node at GlobalIndex i.
func (r *Registry) Set(i int, text string) error {
	if i < 0 || i >= len(r.nodes) {
		return fmt.Errorf("registry %s: index %d out of range [0,%d)", r.name, i, len(r.nodes))
	}
	r.nodes[i].OriginalText = text
	return nil
}

// Texts returns the current text of every node in order.
func (r *Registry) Texts() []string {
	out := make([]string, len(r.nodes))
	for i, n := range r.nodes {
		out[i] = n.OriginalText
	}
	return out
}
