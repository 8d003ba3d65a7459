// Package oracle defines the approximate nearest-neighbor capability the
// hybrid index composes with, plus the two shipped implementations: an HNSW
// graph for real workloads and an exact scan for small corpora and tests.
package oracle

// Oracle answers approximate nearest-neighbor queries over registered
// vectors. Implementations are not required to be safe for concurrent use;
// the hybrid index serializes access.
type Oracle interface {
	// Insert registers a vector under an id. IDs are never reused.
	Insert(vec []float32, id int)

	// Search returns up to count ids approximately ordered by ascending
	// distance to query. It may return fewer than count.
	Search(query []float32, count int) []int

	// EnsureSearchBreadth raises the oracle's internal exploration width
	// to at least ef, so a following Search can actually surface that
	// many candidates. Implementations without such a knob ignore it.
	EnsureSearchBreadth(ef int)

	// Len returns the number of registered vectors.
	Len() int
}
