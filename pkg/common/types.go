package common

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyVector is returned when an insert carries a zero-length vector.
	ErrEmptyVector = errors.New("cannot insert empty vector")

	// ErrDimensionMismatch is returned when a vector's length differs from
	// the dimension fixed by the first insert.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Record is one stored (feature vector, scalar tag) pair. IDs are assigned
// sequentially at insert time, starting at 0, and are never reused.
type Record struct {
	ID  int
	Tag float32
	Vec []float32
}

func (r *Record) String() string {
	return fmt.Sprintf("Record{ID: %d, Tag: %g, Dim: %d}", r.ID, r.Tag, len(r.Vec))
}

// SquaredL2 computes the squared Euclidean distance between two vectors of
// the same dimension. The caller guarantees len(a) == len(b).
func SquaredL2(a, b []float32) float32 {
	var dist float32
	for i := range a {
		d := a[i] - b[i]
		dist += d * d
	}
	return dist
}
