// Package batch partitions an ordered node sequence into batches bounded by
// element count and cumulative character length.
package batch

import (
	"errors"

	"github.com/valpere/doctran/internal/registry"
)

const (
	// MaxBatchCount is the default upper bound on nodes per batch.
	MaxBatchCount = 99
	// MaxBatchChars is the default character budget per batch. A batch's
	// total must stay strictly below it unless the batch is a single node.
	MaxBatchChars = 9000
)

// ErrInvalidLimit is returned when a bound is not positive.
var ErrInvalidLimit = errors.New("batch: limits must be > 0")

// Batch is a group of consecutive nodes sent to the backend in one call.
type Batch struct {
	BatchIndex int
	Nodes      []registry.TextNode
	TotalChars int
}

// Texts returns the node texts in batch order.
func (b Batch) Texts() []string {
	out := make([]string, len(b.Nodes))
	for i, n := range b.Nodes {
		out[i] = n.OriginalText
	}
	return out
}

// Start returns the GlobalIndex of the first node, or -1 for an empty batch.
func (b Batch) Start() int {
	if len(b.Nodes) == 0 {
		return -1
	}
	return b.Nodes[0].GlobalIndex
}

// Split runs a greedy forward scan over nodes. At each offset it takes up to
// maxCount nodes and drops nodes from the tail until the window's character
// total is below maxChars. A node that alone reaches maxChars is emitted as a
// singleton batch since it cannot be split without breaking its text apart.
func Split(nodes []registry.TextNode, maxCount, maxChars int) ([]Batch, error) {
	if maxCount <= 0 || maxChars <= 0 {
		return nil, ErrInvalidLimit
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	// prefix[i] is the character total of nodes[:i].
	prefix := make([]int, len(nodes)+1)
	for i, n := range nodes {
		prefix[i+1] = prefix[i] + n.Len()
	}

	var batches []Batch
	for start := 0; start < len(nodes); {
		size := maxCount
		if rest := len(nodes) - start; size > rest {
			size = rest
		}
		for size > 1 && prefix[start+size]-prefix[start] >= maxChars {
			size--
		}

		batches = append(batches, Batch{
			BatchIndex: len(batches),
			Nodes:      nodes[start : start+size : start+size],
			TotalChars: prefix[start+size] - prefix[start],
		})
		start += size
	}
	return batches, nil
}
