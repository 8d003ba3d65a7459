// Package bptree implements an order-preserving B+ tree multi-map with
// cached subtree sizes, so counting the records in an arbitrary key range
// costs O(log n) instead of a scan. Keys map to lists of values; duplicate
// inserts of a key append to its list. Leaves are chained left-to-right for
// ordered range scans.
package bptree

import (
	"cmp"
	"errors"
	"slices"
)

// ErrInvalidOrder is returned by New when the order is below 3. The
// split/borrow/merge protocol needs at least a ternary branching factor.
var ErrInvalidOrder = errors.New("bptree: order must be at least 3")

// node is either a leaf (values + next link) or an internal node (children).
// size caches the total number of values stored beneath the node.
type node[K cmp.Ordered, V any] struct {
	leaf     bool
	keys     []K
	children []*node[K, V] // internal only
	values   [][]V         // leaf only, values[i] belongs to keys[i]
	next     *node[K, V]   // leaf only, next leaf in key order
	size     int
}

func (n *node[K, V]) computeSize() int {
	count := 0
	if n.leaf {
		for _, vs := range n.values {
			count += len(vs)
		}
	} else {
		for _, c := range n.children {
			count += c.size
		}
	}
	return count
}

// Tree is an order-statistic B+ tree. It is not safe for concurrent use;
// the owning index serializes access.
type Tree[K cmp.Ordered, V any] struct {
	root  *node[K, V]
	order int // maximum number of keys a node may hold, exclusive
}

// New creates an empty tree. order is the maximum key count of a node plus
// one: a node holding order keys is split.
func New[K cmp.Ordered, V any](order int) (*Tree[K, V], error) {
	if order < 3 {
		return nil, ErrInvalidOrder
	}
	return &Tree[K, V]{
		root:  &node[K, V]{leaf: true},
		order: order,
	}, nil
}

// Order returns the tree's configured order.
func (t *Tree[K, V]) Order() int { return t.order }

// Len returns the total number of stored values.
func (t *Tree[K, V]) Len() int { return t.root.size }

func (t *Tree[K, V]) minKeys() int { return (t.order - 1) / 2 }

// upperBound returns the first index whose key is strictly greater than x.
func upperBound[K cmp.Ordered](keys []K, x K) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if keys[mid] <= x {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// lowerBound returns the first index whose key is >= x.
func lowerBound[K cmp.Ordered](keys []K, x K) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if keys[mid] < x {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// descend walks from the root to the leaf owning key, collecting the path.
// A key equal to a separator routes to the right child.
func (t *Tree[K, V]) descend(key K) []*node[K, V] {
	path := make([]*node[K, V], 0, 8)
	n := t.root
	for {
		path = append(path, n)
		if n.leaf {
			return path
		}
		n = n.children[upperBound(n.keys, key)]
	}
}

// refresh recomputes cached sizes bottom-up along a root-to-node path.
func refresh[K cmp.Ordered, V any](path []*node[K, V]) {
	for i := len(path) - 1; i >= 0; i-- {
		path[i].size = path[i].computeSize()
	}
}

// Insert adds value under key. Existing keys accumulate values in insertion
// order.
func (t *Tree[K, V]) Insert(key K, value V) {
	path := t.descend(key)
	leaf := path[len(path)-1]

	i := lowerBound(leaf.keys, key)
	if i < len(leaf.keys) && leaf.keys[i] == key {
		leaf.values[i] = append(leaf.values[i], value)
	} else {
		leaf.keys = slices.Insert(leaf.keys, i, key)
		leaf.values = slices.Insert(leaf.values, i, []V{value})
	}

	if len(leaf.keys) >= t.order {
		t.splitLeaf(path)
	} else {
		refresh(path)
	}
}

// splitLeaf splits the leaf at the end of path, promoting the new right
// leaf's first key into the parent.
func (t *Tree[K, V]) splitLeaf(path []*node[K, V]) {
	leaf := path[len(path)-1]
	mid := (t.order + 1) / 2

	right := &node[K, V]{leaf: true}
	right.keys = append(right.keys, leaf.keys[mid:]...)
	right.values = append(right.values, leaf.values[mid:]...)
	right.next = leaf.next

	leaf.keys = leaf.keys[:mid]
	leaf.values = leaf.values[:mid]
	leaf.next = right

	leaf.size = leaf.computeSize()
	right.size = right.computeSize()

	t.insertIntoParent(path[:len(path)-1], leaf, right.keys[0], right)
}

// insertIntoParent links right as the sibling of left under the last node of
// path, keyed by the promoted separator. An empty path means left was the
// root and the tree grows a level.
func (t *Tree[K, V]) insertIntoParent(path []*node[K, V], left *node[K, V], key K, right *node[K, V]) {
	if len(path) == 0 {
		t.root = &node[K, V]{
			keys:     []K{key},
			children: []*node[K, V]{left, right},
			size:     left.size + right.size,
		}
		return
	}

	parent := path[len(path)-1]
	i := upperBound(parent.keys, key)
	parent.keys = slices.Insert(parent.keys, i, key)
	parent.children = slices.Insert(parent.children, i+1, right)

	if len(parent.keys) >= t.order {
		t.splitInternal(path)
	} else {
		refresh(path)
	}
}

// splitInternal splits the internal node at the end of path. The middle key
// moves up without being kept in either half.
func (t *Tree[K, V]) splitInternal(path []*node[K, V]) {
	n := path[len(path)-1]
	mid := len(n.keys) / 2
	up := n.keys[mid]

	right := &node[K, V]{}
	right.keys = append(right.keys, n.keys[mid+1:]...)
	right.children = append(right.children, n.children[mid+1:]...)

	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]

	n.size = n.computeSize()
	right.size = right.computeSize()

	t.insertIntoParent(path[:len(path)-1], n, up, right)
}

// Remove erases key and every value stored under it. It reports whether the
// key was present. Underflowing nodes borrow from a sibling when possible,
// otherwise merge; rebalancing cascades through internal levels up to the
// root.
func (t *Tree[K, V]) Remove(key K) bool {
	path := t.descend(key)
	leaf := path[len(path)-1]

	i := lowerBound(leaf.keys, key)
	if i >= len(leaf.keys) || leaf.keys[i] != key {
		return false
	}

	leaf.keys = slices.Delete(leaf.keys, i, i+1)
	leaf.values = slices.Delete(leaf.values, i, i+1)

	t.rebalance(path)
	return true
}

// rebalance walks the removal path bottom-up, fixing underflow and
// recomputing cached sizes. path[0] is the root.
func (t *Tree[K, V]) rebalance(path []*node[K, V]) {
	for level := len(path) - 1; level >= 1; level-- {
		n := path[level]
		n.size = n.computeSize()
		if len(n.keys) >= t.minKeys() {
			continue
		}

		parent := path[level-1]
		idx := slices.Index(parent.children, n)

		var left, right *node[K, V]
		if idx > 0 {
			left = parent.children[idx-1]
		}
		if idx < len(parent.children)-1 {
			right = parent.children[idx+1]
		}

		switch {
		case left != nil && len(left.keys) > t.minKeys():
			t.borrowFromLeft(n, left, parent, idx)
		case right != nil && len(right.keys) > t.minKeys():
			t.borrowFromRight(n, right, parent, idx)
		case left != nil:
			t.merge(left, n, parent, idx-1)
		case right != nil:
			t.merge(n, right, parent, idx)
		}
	}

	root := path[0]
	root.size = root.computeSize()
	if !root.leaf && len(root.keys) == 0 {
		t.root = root.children[0]
	}
}

// borrowFromLeft moves the left sibling's last entry into n. For leaves the
// entry moves directly and the separator becomes n's new first key; for
// internal nodes the separator rotates down through the parent.
func (t *Tree[K, V]) borrowFromLeft(n, left *node[K, V], parent *node[K, V], idx int) {
	if n.leaf {
		last := len(left.keys) - 1
		n.keys = slices.Insert(n.keys, 0, left.keys[last])
		n.values = slices.Insert(n.values, 0, left.values[last])
		left.keys = left.keys[:last]
		left.values = left.values[:last]
		parent.keys[idx-1] = n.keys[0]
	} else {
		last := len(left.keys) - 1
		n.keys = slices.Insert(n.keys, 0, parent.keys[idx-1])
		parent.keys[idx-1] = left.keys[last]
		n.children = slices.Insert(n.children, 0, left.children[last+1])
		left.keys = left.keys[:last]
		left.children = left.children[:last+1]
	}
	left.size = left.computeSize()
	n.size = n.computeSize()
}

// borrowFromRight moves the right sibling's first entry into n.
func (t *Tree[K, V]) borrowFromRight(n, right *node[K, V], parent *node[K, V], idx int) {
	if n.leaf {
		n.keys = append(n.keys, right.keys[0])
		n.values = append(n.values, right.values[0])
		right.keys = slices.Delete(right.keys, 0, 1)
		right.values = slices.Delete(right.values, 0, 1)
		parent.keys[idx] = right.keys[0]
	} else {
		n.keys = append(n.keys, parent.keys[idx])
		parent.keys[idx] = right.keys[0]
		n.children = append(n.children, right.children[0])
		right.keys = slices.Delete(right.keys, 0, 1)
		right.children = slices.Delete(right.children, 0, 1)
	}
	right.size = right.computeSize()
	n.size = n.computeSize()
}

// merge folds right into left and drops the separator at sepIdx from the
// parent. For internal nodes the separator is pulled down between the two
// key lists; for leaves it simply disappears and the chain is relinked.
func (t *Tree[K, V]) merge(left, right *node[K, V], parent *node[K, V], sepIdx int) {
	if left.leaf {
		left.keys = append(left.keys, right.keys...)
		left.values = append(left.values, right.values...)
		left.next = right.next
	} else {
		left.keys = append(left.keys, parent.keys[sepIdx])
		left.keys = append(left.keys, right.keys...)
		left.children = append(left.children, right.children...)
	}
	parent.keys = slices.Delete(parent.keys, sepIdx, sepIdx+1)
	parent.children = slices.Delete(parent.children, sepIdx+1, sepIdx+2)

	left.size = left.computeSize()
}

// Search returns the first value stored under key.
func (t *Tree[K, V]) Search(key K) (V, bool) {
	var zero V
	vals, ok := t.SearchAll(key)
	if !ok || len(vals) == 0 {
		return zero, false
	}
	return vals[0], true
}

// SearchAll returns every value stored under key, in insertion order. The
// returned slice aliases tree storage and must not be modified.
func (t *Tree[K, V]) SearchAll(key K) ([]V, bool) {
	n := t.root
	for !n.leaf {
		n = n.children[upperBound(n.keys, key)]
	}
	i := lowerBound(n.keys, key)
	if i < len(n.keys) && n.keys[i] == key {
		return n.values[i], true
	}
	return nil, false
}

// countBound counts stored values with key <= x (inclusive) or key < x
// (strict). On the descent path it sums the cached sizes of all fully
// covered children, so only one root-to-leaf path is visited.
func (t *Tree[K, V]) countBound(x K, inclusive bool) int {
	bound := lowerBound[K]
	if inclusive {
		bound = upperBound[K]
	}

	count := 0
	n := t.root
	for !n.leaf {
		i := bound(n.keys, x)
		for c := 0; c < i; c++ {
			count += n.children[c].size
		}
		n = n.children[i]
	}
	i := bound(n.keys, x)
	for c := 0; c < i; c++ {
		count += len(n.values[c])
	}
	return count
}

// CountLessOrEqual returns the number of stored values whose key is <= x.
func (t *Tree[K, V]) CountLessOrEqual(x K) int {
	return t.countBound(x, true)
}

// CountLess returns the number of stored values whose key is strictly less
// than x. This is the strict-lower-bound primitive that makes range counting
// valid for key types without a decrement.
func (t *Tree[K, V]) CountLess(x K) int {
	return t.countBound(x, false)
}

// CountInRange returns the number of stored values whose key lies in
// [lo, hi].
func (t *Tree[K, V]) CountInRange(lo, hi K) int {
	if hi < lo {
		return 0
	}
	return t.CountLessOrEqual(hi) - t.CountLess(lo)
}

// RangeQuery returns the values of every key in [lo, hi], grouped by key in
// ascending key order. Cost is O(log n + result size): one descent, then a
// walk along the leaf chain.
func (t *Tree[K, V]) RangeQuery(lo, hi K) []V {
	if hi < lo {
		return nil
	}

	var results []V
	n := t.root
	for !n.leaf {
		n = n.children[upperBound(n.keys, lo)]
	}

	for n != nil {
		for i, key := range n.keys {
			if key > hi {
				return results
			}
			if key >= lo {
				results = append(results, n.values[i]...)
			}
		}
		n = n.next
	}
	return results
}

// Ascend walks all entries in ascending key order, invoking fn with each key
// and its values. Walking stops when fn returns false.
func (t *Tree[K, V]) Ascend(fn func(key K, values []V) bool) {
	n := t.root
	for !n.leaf {
		n = n.children[0]
	}
	for n != nil {
		for i, key := range n.keys {
			if !fn(key, n.values[i]) {
				return
			}
		}
		n = n.next
	}
}
