package oracle

import (
	"math/rand"
	"testing"
)

func TestHNSWSmallCorpusRecall(t *testing.T) {
	h := NewHNSW(16, 200)
	rng := rand.New(rand.NewSource(5))

	const n, dim = 50, 4
	vecs := make([][]float32, n)
	for i := 0; i < n; i++ {
		vec := make([]float32, dim)
		for d := range vec {
			vec[d] = rng.Float32()
		}
		vecs[i] = vec
		h.Insert(vec, i)
	}

	if got := h.Len(); got != n {
		t.Fatalf("Len: got %d, want %d", got, n)
	}

	// With the exploration width covering the whole corpus, a search for
	// everything must return everything, the query's own vector first.
	h.EnsureSearchBreadth(n)
	got := h.Search(vecs[10], n)
	if len(got) != n {
		t.Fatalf("Search returned %d ids, want %d", len(got), n)
	}
	if got[0] != 10 {
		t.Errorf("nearest neighbor of a stored vector is %d, want itself (10)", got[0])
	}
	seen := make(map[int]bool, n)
	for _, id := range got {
		if id < 0 || id >= n || seen[id] {
			t.Fatalf("invalid or duplicate id %d in %v", id, got)
		}
		seen[id] = true
	}
}

func TestHNSWSearchEmptyAndZeroCount(t *testing.T) {
	h := NewHNSW(16, 200)
	if got := h.Search([]float32{1, 2}, 0); got != nil {
		t.Errorf("count 0: got %v", got)
	}

	h.Insert([]float32{1, 2}, 0)
	if got := h.Search([]float32{1, 2}, -1); got != nil {
		t.Errorf("negative count: got %v", got)
	}
}

func TestHNSWEnsureSearchBreadthOnlyGrows(t *testing.T) {
	h := NewHNSW(16, 100)
	h.EnsureSearchBreadth(50)
	if h.graph.EfSearch != 100 {
		t.Errorf("breadth shrank to %d", h.graph.EfSearch)
	}
	h.EnsureSearchBreadth(300)
	if h.graph.EfSearch != 300 {
		t.Errorf("breadth did not grow: %d", h.graph.EfSearch)
	}
}
