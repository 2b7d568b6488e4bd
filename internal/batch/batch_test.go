package batch

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/valpere/doctran/internal/registry"
)

func makeNodes(texts ...string) []registry.TextNode {
	r := registry.New("body")
	for _, t := range texts {
		r.Add(t, nil)
	}
	return r.Nodes()
}

func TestSplit_Empty(t *testing.T) {
	batches, err := Split(nil, MaxBatchCount, MaxBatchChars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 0 {
		t.Errorf("expected no batches, got %d", len(batches))
	}
}

func TestSplit_InvalidLimits(t *testing.T) {
	nodes := makeNodes("a")
	for _, tc := range []struct{ count, chars int }{{0, 10}, {10, 0}, {-1, -1}} {
		if _, err := Split(nodes, tc.count, tc.chars); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("Split(count=%d, chars=%d) err = %v, want ErrInvalidLimit", tc.count, tc.chars, err)
		}
	}
}

func TestSplit_CountCap(t *testing.T) {
	texts := make([]string, 100)
	for i := range texts {
		texts[i] = "x"
	}

	batches, err := Split(makeNodes(texts...), 99, 9000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0].Nodes) != 99 || len(batches[1].Nodes) != 1 {
		t.Errorf("expected sizes 99 and 1, got %d and %d", len(batches[0].Nodes), len(batches[1].Nodes))
	}
	if batches[1].Start() != 99 {
		t.Errorf("second batch should start at 99, got %d", batches[1].Start())
	}
}

func TestSplit_OversizedSingleton(t *testing.T) {
	batches, err := Split(makeNodes(strings.Repeat("a", 10000)), 99, 9000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if len(batches[0].Nodes) != 1 || batches[0].TotalChars != 10000 {
		t.Errorf("unexpected singleton batch: %d nodes, %d chars", len(batches[0].Nodes), batches[0].TotalChars)
	}
}

func TestSplit_OversizedNodeInTheMiddle(t *testing.T) {
	nodes := makeNodes("short", strings.Repeat("b", 50), "tail")
	batches, err := Split(nodes, 99, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sizes []int
	for _, b := range batches {
		sizes = append(sizes, len(b.Nodes))
	}
	want := []int{1, 1, 1}
	if len(sizes) != len(want) {
		t.Fatalf("sizes = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("sizes = %v, want %v", sizes, want)
		}
	}
}

func TestSplit_CharBoundIsExclusive(t *testing.T) {
	// 3 + 3 + 3 = 9 reaches the bound of 9, so only two nodes fit.
	batches, err := Split(makeNodes("aaa", "bbb", "ccc"), 99, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 2 || len(batches[0].Nodes) != 2 || batches[0].TotalChars != 6 {
		t.Fatalf("unexpected batches: %+v", batches)
	}
}

func TestSplit_EmptyTextIsPlaceholder(t *testing.T) {
	batches, err := Split(makeNodes("", "", ""), 99, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].TotalChars != 2 || len(batches[0].Nodes) != 2 {
		t.Errorf("empty nodes should count as one char each: %+v", batches[0])
	}
}

func TestSplit_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		n := rng.Intn(400)
		texts := make([]string, n)
		for i := range texts {
			texts[i] = strings.Repeat("z", rng.Intn(300))
		}
		nodes := makeNodes(texts...)
		maxCount := 1 + rng.Intn(120)
		maxChars := 1 + rng.Intn(2000)

		batches, err := Split(nodes, maxCount, maxChars)
		if err != nil {
			t.Fatalf("round %d: unexpected error: %v", round, err)
		}

		var flat []registry.TextNode
		for i, b := range batches {
			if b.BatchIndex != i {
				t.Fatalf("round %d: batch %d has BatchIndex %d", round, i, b.BatchIndex)
			}
			if len(b.Nodes) == 0 {
				t.Fatalf("round %d: empty batch %d", round, i)
			}
			if len(b.Nodes) > maxCount {
				t.Fatalf("round %d: batch %d exceeds count cap", round, i)
			}
			if b.TotalChars >= maxChars && len(b.Nodes) != 1 {
				t.Fatalf("round %d: batch %d has %d chars in %d nodes (limit %d)", round, i, b.TotalChars, len(b.Nodes), maxChars)
			}
			flat = append(flat, b.Nodes...)
		}

		if len(flat) != len(nodes) {
			t.Fatalf("round %d: concatenation has %d nodes, want %d", round, len(flat), len(nodes))
		}
		for i := range nodes {
			if flat[i].GlobalIndex != nodes[i].GlobalIndex || flat[i].OriginalText != nodes[i].OriginalText {
				t.Fatalf("round %d: node %d reordered or altered", round, i)
			}
		}
	}
}
