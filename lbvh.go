// Package lbvh builds linear bounding volume hierarchies in parallel and
// answers spatial queries (box overlap, point containment, nearest box,
// ray casting) against them.
//
// The tree is a radix tree over the morton codes of the input box
// centroids: construction sorts the codes, derives every internal node's
// split independently from common-prefix lengths, then propagates leaf
// boxes bottom-up. All stages are expressed as order-independent loops
// over index ranges and dispatched through a pluggable execution backend.
package lbvh

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBoxes is returned by Build when called with zero primitives.
	ErrNoBoxes = errors.New("lbvh: no input boxes")
	// ErrNonFiniteBox is returned by Build when an input box carries a
	// NaN or infinite coordinate, or one at the ±MaxFloat32 sentinel
	// magnitude that box publication reserves.
	ErrNonFiniteBox = errors.New("lbvh: non-finite or out-of-range box coordinates")
)

// BVH is an immutable bounding volume hierarchy over a set of boxes.
// A built tree answers any number of concurrent queries without locking.
// Rebuilding produces a new tree; callers that swap a shared tree variable
// must serialize the swap against in-flight queries themselves.
type BVH[T Float] struct {
	numLeaves int
	dims      int
	bounds    Box[T]

	// node arenas; parent spans all 2N-1 nodes, the child and box arrays
	// cover the N-1 internal nodes, leaves sit at [N-1, 2N-2]
	parent     []int32
	leftChild  []int32
	rightChild []int32
	innerBox   []Box[T]

	// per-leaf data in sorted code order
	leafBox []Box[T]
	leafID  []int32
	codes   []uint64
}

type config[T Float] struct {
	backend Backend
	dims    int
	wide    bool
	scale   T
}

// Option configures a Build call.
type Option[T Float] func(*config[T])

// WithBackend selects the execution backend. Default: Sequential.
func WithBackend[T Float](be Backend) Option[T] {
	return func(c *config[T]) { c.backend = be }
}

// WithDims sets the input dimensionality, 2 or 3. Default: 3.
func WithDims[T Float](dims int) Option[T] {
	return func(c *config[T]) { c.dims = dims }
}

// WithMorton64 selects 64-bit morton codes (21 bits per axis in 3D)
// instead of the default 32-bit codes. Denser inputs separate better at
// the cost of a wider sort key.
func WithMorton64[T Float]() Option[T] {
	return func(c *config[T]) { c.wide = true }
}

// WithScaleFactor inflates every input box about its centroid before the
// build. Default: 1 (no inflation).
func WithScaleFactor[T Float](factor T) Option[T] {
	return func(c *config[T]) { c.scale = factor }
}

// Build constructs a tree over the given boxes. The input slice is not
// modified; leaf order inside the tree follows the morton ordering of the
// box centroids, with queries reporting original indices.
func Build[T Float](boxes []Box[T], opts ...Option[T]) (*BVH[T], error) {
	n := len(boxes)
	if n == 0 {
		return nil, ErrNoBoxes
	}

	cfg := config[T]{backend: Sequential(), dims: 3, scale: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.dims != 2 && cfg.dims != 3 {
		return nil, fmt.Errorf("lbvh: dims must be 2 or 3, got %d", cfg.dims)
	}
	be := cfg.backend

	t := &BVH[T]{
		numLeaves: n,
		dims:      cfg.dims,
		parent:    make([]int32, 2*n-1),
		leafBox:   make([]Box[T], n),
		leafID:    make([]int32, n),
		codes:     make([]uint64, n),
	}
	if n > 1 {
		t.leftChild = make([]int32, n-1)
		t.rightChild = make([]int32, n-1)
		t.innerBox = make([]Box[T], n-1)
	}

	// copy (and optionally inflate) so the caller's boxes stay untouched
	be.For(n, func(i int) {
		b := boxes[i]
		if cfg.scale != 1 {
			b.Scale(cfg.scale)
		}
		t.leafBox[i] = b
	})

	// global bounds reduction; also the input validation pass
	bounds := InvalidBox[T]()
	for i := 0; i < n; i++ {
		if !t.leafBox[i].IsFinite() {
			return nil, fmt.Errorf("box %d: %w", i, ErrNonFiniteBox)
		}
		bounds.Expand(t.leafBox[i])
	}
	t.bounds = bounds

	enc := newMortonEncoder(bounds, cfg.dims, cfg.wide)
	be.For(n, func(i int) {
		t.codes[i] = enc.encode(t.leafBox[i].Centroid())
		t.leafID[i] = int32(i)
	})

	be.SortPairs(t.codes, t.leafID)
	t.leafBox = reorder(t.leafID, t.leafBox)

	if n > 1 {
		buildTree(t, be)
	} else {
		t.parent[0] = nilNode
	}
	propagate(t, be)

	return t, nil
}

// Bounds returns the union of all input boxes (the root box).
func (t *BVH[T]) Bounds() Box[T] { return t.bounds }

// NumLeaves returns the number of primitives in the tree.
func (t *BVH[T]) NumLeaves() int { return t.numLeaves }

// NumInner returns the number of internal nodes, numLeaves-1 (0 for a
// single-leaf tree).
func (t *BVH[T]) NumInner() int {
	if t.numLeaves <= 1 {
		return 0
	}
	return t.numLeaves - 1
}

// Dims returns the dimensionality the tree was built with.
func (t *BVH[T]) Dims() int { return t.dims }

// LeafBox returns the box stored at leaf position i (in sorted order).
func (t *BVH[T]) LeafBox(i int) Box[T] { return t.leafBox[i] }

// LeafID returns the original primitive index stored at leaf position i.
func (t *BVH[T]) LeafID(i int) int32 { return t.leafID[i] }
