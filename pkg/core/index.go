package core

// VectorIndex abstracts the query surface exposed to the network and HTTP
// layers, hiding whether results come from the probabilistic hybrid path or
// an exact fallback.
type VectorIndex interface {
	Insert(vec []float32, tag float32) (int, error)
	Query(vec []float32, k int, smin, smax float32, alpha float64) ([]int, error)
	Len() int
	Stats() map[string]interface{}
}
