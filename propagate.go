package lbvh

import (
	"math"
	"sync/atomic"
)

// Bottom-up AABB propagation. One climb starts at every leaf; the per-node
// arrival counter guarantees exactly one of each sibling pair performs the
// merge. The first thread to increment a counter terminates, the second
// merges its own subtree's finalized box with the sibling's and continues
// toward the root.
//
// On the CPU backends the sibling's box is a plain store that precedes the
// sibling's counter increment, and the increments are sync/atomic
// operations, so the merging thread always observes the fully written box.
// On poll backends the box never travels through plain memory: every
// coordinate word is published with an atomic store and re-read until the
// invalid-box sentinel disappears.

func propagate[T Float](t *BVH[T], be Backend) {
	innerSize := int32(t.numLeaves - 1)
	if innerSize == 0 {
		t.bounds = t.leafBox[0]
		return
	}

	be.For(int(innerSize), func(i int) {
		t.innerBox[i] = InvalidBox[T]()
	})

	var pub *boxWords[T]
	if be.PollPublication() {
		pub = newBoxWords[T](int(innerSize))
	}

	counters := make([]int32, innerSize)

	be.For(t.numLeaves, func(i int) {
		aabb := t.leafBox[i]
		last := int32(i) + innerSize
		cur := t.parent[last]

		for cur != nilNode {
			if atomic.AddInt32(&counters[cur], 1) == 1 {
				// first arrival; the sibling finishes this node
				return
			}

			other := t.leftChild[cur]
			if other == last {
				other = t.rightChild[cur]
			}

			var otherBox Box[T]
			switch {
			case other >= innerSize:
				otherBox = t.leafBox[other-innerSize]
			case pub != nil:
				otherBox = pub.load(other)
			default:
				otherBox = t.innerBox[other]
			}
			aabb.Expand(otherBox)

			if pub != nil {
				pub.store(cur, aabb)
			} else {
				t.innerBox[cur] = aabb
			}

			last = cur
			cur = t.parent[cur]
		}
	})

	if pub != nil {
		be.For(int(innerSize), func(i int) {
			t.innerBox[i] = pub.load(int32(i))
		})
	}

	t.bounds = t.innerBox[0]
}

// boxWords publishes boxes as six uint64 words per node. Coordinates are
// widened to float64 bit patterns (lossless for float32), with the
// invalid-box value as the not-yet-written sentinel.
type boxWords[T Float] struct {
	words       []uint64
	sentinelMin uint64
	sentinelMax uint64
}

func newBoxWords[T Float](n int) *boxWords[T] {
	inv := InvalidBox[T]()
	p := &boxWords[T]{
		words:       make([]uint64, 6*n),
		sentinelMin: math.Float64bits(float64(inv.Min[0])),
		sentinelMax: math.Float64bits(float64(inv.Max[0])),
	}
	for i := 0; i < n; i++ {
		for a := 0; a < 3; a++ {
			p.words[i*6+a] = p.sentinelMin
			p.words[i*6+3+a] = p.sentinelMax
		}
	}
	return p
}

func (p *boxWords[T]) store(node int32, b Box[T]) {
	base := int(node) * 6
	for a := 0; a < 3; a++ {
		atomic.StoreUint64(&p.words[base+a], math.Float64bits(float64(b.Min[a])))
		atomic.StoreUint64(&p.words[base+3+a], math.Float64bits(float64(b.Max[a])))
	}
}

// load spins per word until a non-sentinel value is visible.
func (p *boxWords[T]) load(node int32) Box[T] {
	base := int(node) * 6
	var b Box[T]
	for a := 0; a < 3; a++ {
		for {
			w := atomic.LoadUint64(&p.words[base+a])
			if w != p.sentinelMin {
				b.Min[a] = T(math.Float64frombits(w))
				break
			}
		}
		for {
			w := atomic.LoadUint64(&p.words[base+3+a])
			if w != p.sentinelMax {
				b.Max[a] = T(math.Float64frombits(w))
				break
			}
		}
	}
	return b
}
