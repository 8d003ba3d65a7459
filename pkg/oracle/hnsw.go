package oracle

import (
	"github.com/coder/hnsw"
)

// HNSW adapts a coder/hnsw graph to the Oracle interface. The graph ranks by
// Euclidean distance, which orders candidates identically to the squared
// distance used for exact re-ranking.
type HNSW struct {
	graph *hnsw.Graph[int]
}

// NewHNSW builds an HNSW oracle. m is the per-node link budget and efSearch
// the initial exploration width; non-positive values keep the graph's
// defaults.
func NewHNSW(m, efSearch int) *HNSW {
	g := hnsw.NewGraph[int]()
	g.Distance = hnsw.EuclideanDistance
	if m > 0 {
		g.M = m
	}
	if efSearch > 0 {
		g.EfSearch = efSearch
	}
	return &HNSW{graph: g}
}

func (h *HNSW) Insert(vec []float32, id int) {
	h.graph.Add(hnsw.MakeNode(id, vec))
}

func (h *HNSW) Search(query []float32, count int) []int {
	if count <= 0 {
		return nil
	}
	nodes := h.graph.Search(query, count)
	ids := make([]int, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.Key)
	}
	return ids
}

func (h *HNSW) EnsureSearchBreadth(ef int) {
	if ef > h.graph.EfSearch {
		h.graph.EfSearch = ef
	}
}

func (h *HNSW) Len() int {
	return h.graph.Len()
}
