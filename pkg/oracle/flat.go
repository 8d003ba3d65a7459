package oracle

import (
	"sort"

	"rangeann/pkg/common"
)

// Flat is an exact-scan Oracle: Search computes the true distance to every
// registered vector. O(n) per query, but deterministic and fully recalling,
// which makes it the reference implementation in tests and a reasonable
// choice for small corpora.
type Flat struct {
	vecs []flatEntry
}

type flatEntry struct {
	id  int
	vec []float32
}

// NewFlat creates an empty exact-scan oracle.
func NewFlat() *Flat {
	return &Flat{}
}

func (f *Flat) Insert(vec []float32, id int) {
	f.vecs = append(f.vecs, flatEntry{id: id, vec: vec})
}

func (f *Flat) Search(query []float32, count int) []int {
	if count <= 0 || len(f.vecs) == 0 {
		return nil
	}

	type scored struct {
		id   int
		dist float32
	}
	ranked := make([]scored, 0, len(f.vecs))
	for _, e := range f.vecs {
		ranked = append(ranked, scored{id: e.id, dist: common.SquaredL2(query, e.vec)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].dist != ranked[j].dist {
			return ranked[i].dist < ranked[j].dist
		}
		return ranked[i].id < ranked[j].id
	})

	if count > len(ranked) {
		count = len(ranked)
	}
	ids := make([]int, count)
	for i := 0; i < count; i++ {
		ids[i] = ranked[i].id
	}
	return ids
}

// EnsureSearchBreadth is a no-op: an exact scan always sees everything.
func (f *Flat) EnsureSearchBreadth(ef int) {}

func (f *Flat) Len() int {
	return len(f.vecs)
}
