package lbvh

import "math"

// Queries never mutate tree state, so any number of them may run
// concurrently against a finished tree.

// Traverse walks the tree depth-first from the root. enter is evaluated
// against a node's box before descending into (or visiting) it; visit
// receives the original primitive index of each reached leaf. Child order
// is unspecified: callers that need nearest-first ordering must encode it
// in their predicate (see Nearest).
func (t *BVH[T]) Traverse(enter func(Box[T]) bool, visit func(leafID int32)) {
	if t.numLeaves == 0 {
		return
	}
	if t.numLeaves == 1 {
		if enter(t.leafBox[0]) {
			visit(t.leafID[0])
		}
		return
	}

	innerSize := int32(t.numLeaves - 1)
	if !enter(t.innerBox[0]) {
		return
	}

	stack := make([]int32, 1, 64)
	stack[0] = 0
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, c := range [2]int32{t.leftChild[node], t.rightChild[node]} {
			if c >= innerSize {
				leaf := c - innerSize
				if enter(t.leafBox[leaf]) {
					visit(t.leafID[leaf])
				}
			} else if enter(t.innerBox[c]) {
				stack = append(stack, c)
			}
		}
	}
}

// Search returns the original indices of all boxes overlapping the query.
func (t *BVH[T]) Search(query Box[T]) []int {
	return t.SearchFast(query, nil)
}

// SearchFast accepts a 'results' as input. If you are performing millions
// of queries, then reusing a 'results' slice will reduce the number of
// allocations.
func (t *BVH[T]) SearchFast(query Box[T], results []int) []int {
	results = results[:0]
	t.Traverse(
		func(b Box[T]) bool { return b.Intersects(query) },
		func(id int32) { results = append(results, int(id)) },
	)
	return results
}

// Contains returns the original indices of all boxes containing the point.
func (t *BVH[T]) Contains(p [3]T, results []int) []int {
	results = results[:0]
	t.Traverse(
		func(b Box[T]) bool { return b.Contains(p) },
		func(id int32) { results = append(results, int(id)) },
	)
	return results
}

// RayCast visits every leaf whose box the ray starting at origin passes
// through. dir need not be normalized.
func (t *BVH[T]) RayCast(origin, dir [3]T, visit func(leafID int32)) {
	rr := newRayRecips(dir)
	t.Traverse(
		func(b Box[T]) bool {
			_, ok := b.rayIntersects(origin, rr)
			return ok
		},
		visit,
	)
}

// Nearest returns the original index of the box closest to p and its
// squared distance. Ties break toward the lower original index. ok is
// false only for a tree with no leaves.
func (t *BVH[T]) Nearest(p [3]T) (id int32, distSq T, ok bool) {
	if t.numLeaves == 0 {
		return -1, 0, false
	}

	best := T(math.Inf(1))
	bestID := int32(-1)
	tryLeaf := func(leaf int32) {
		d := t.leafBox[leaf].DistanceSq(p)
		lid := t.leafID[leaf]
		if d < best || (d == best && (bestID == -1 || lid < bestID)) {
			best = d
			bestID = lid
		}
	}

	if t.numLeaves == 1 {
		tryLeaf(0)
		return bestID, best, true
	}

	innerSize := int32(t.numLeaves - 1)

	type entry struct {
		node int32
		d    T
	}
	stack := make([]entry, 1, 64)
	stack[0] = entry{node: 0, d: t.innerBox[0].DistanceSq(p)}

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.d > best {
			continue
		}

		// leaf children resolve immediately; internal children queue up
		// with the nearer one on top so the bound shrinks early
		var cand [2]entry
		n := 0
		for _, c := range [2]int32{t.leftChild[e.node], t.rightChild[e.node]} {
			if c >= innerSize {
				tryLeaf(c - innerSize)
				continue
			}
			if d := t.innerBox[c].DistanceSq(p); d <= best {
				cand[n] = entry{node: c, d: d}
				n++
			}
		}
		if n == 2 && cand[0].d < cand[1].d {
			cand[0], cand[1] = cand[1], cand[0]
		}
		stack = append(stack, cand[:n]...)
	}
	return bestID, best, true
}
