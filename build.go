package lbvh

import (
	"fmt"
	"math/bits"
)

// Radix-tree topology construction over sorted morton codes, after
// Karras, "Maximizing Parallelism in the Construction of BVHs, Octrees,
// and k-d Trees" (HPG 2012). Every internal node computes its leaf range
// and split independently from the immutable sorted code array, writing
// only its own child slots, so the loop needs no synchronization at all.

const nilNode = int32(-1)

// delta is the common-prefix length of the codes at leaf positions a and b.
// Out-of-range b compares as -1 (infinitely dissimilar). Equal codes break
// the tie on the positions themselves, keeping the metric strict even when
// every input collapses to one code.
func delta(a, b, innerSize int32, codes []uint64) int32 {
	if b < 0 || b > innerSize {
		return -1
	}
	exor := codes[a] ^ codes[b]
	if exor == 0 {
		return 64 + int32(bits.LeadingZeros64(uint64(a)^uint64(b)))
	}
	return int32(bits.LeadingZeros64(exor))
}

// buildTree fills parent/leftChild/rightChild from the sorted codes.
// innerSize = numLeaves-1; leaves occupy [innerSize, 2*innerSize] in the
// parent array.
func buildTree[T Float](t *BVH[T], be Backend) {
	innerSize := int32(t.numLeaves - 1)
	codes := t.codes
	parent := t.parent
	left := t.leftChild
	right := t.rightChild

	be.For(int(innerSize), func(ii int) {
		i := int32(ii)

		// range direction
		d := int32(1)
		if delta(i, i+1, innerSize, codes)-delta(i, i-1, innerSize, codes) < 0 {
			d = -1
		}

		// upper bound for the range length
		minDelta := delta(i, i-d, innerSize, codes)
		lmax := int32(2)
		for delta(i, i+lmax*d, innerSize, codes) > minDelta {
			lmax *= 2
		}

		// binary search for the other end
		l := int32(0)
		for t := lmax / 2; t >= 1; t /= 2 {
			if delta(i, i+(l+t)*d, innerSize, codes) > minDelta {
				l += t
			}
		}
		j := i + l*d

		// binary search for the split position
		deltaNode := delta(i, j, innerSize, codes)
		s := int32(0)
		for div := int32(2); ; div *= 2 {
			t := (l + div - 1) / div
			if delta(i, i+(s+t)*d, innerSize, codes) > deltaNode {
				s += t
			}
			if t == 1 {
				break
			}
		}

		split := i + s*d + min(d, 0)

		if min(i, j) == split {
			// left child is a leaf
			parent[split+innerSize] = i
			left[i] = split + innerSize
		} else {
			parent[split] = i
			left[i] = split
		}

		if max(i, j) == split+1 {
			// right child is a leaf
			parent[split+1+innerSize] = i
			right[i] = split + 1 + innerSize
		} else {
			parent[split+1] = i
			right[i] = split + 1
		}

		if i == 0 {
			parent[0] = nilNode
		}
	})
}

// Validate checks the structural invariants of a built tree: full binary
// topology, mutual parent/child linkage, monotone leaf codes, and
// containment of every child box by its parent. Intended for tests and
// debugging; a tree returned by Build always passes.
func (t *BVH[T]) Validate() error {
	n := t.numLeaves
	if n == 0 {
		return fmt.Errorf("lbvh: tree has no leaves")
	}
	innerSize := int32(n - 1)
	if len(t.leafBox) != n || len(t.parent) != 2*n-1 {
		return fmt.Errorf("lbvh: array sizes inconsistent with %d leaves", n)
	}
	if n == 1 {
		return nil
	}
	if t.parent[0] != nilNode {
		return fmt.Errorf("lbvh: root parent = %d, want -1", t.parent[0])
	}

	for i := int32(0); i < innerSize; i++ {
		for _, c := range [2]int32{t.leftChild[i], t.rightChild[i]} {
			if c < 0 || int(c) >= 2*n-1 || c == i {
				return fmt.Errorf("lbvh: node %d has child %d out of range", i, c)
			}
			if t.parent[c] != i {
				return fmt.Errorf("lbvh: node %d child %d has parent %d", i, c, t.parent[c])
			}
			var childBox Box[T]
			if c >= innerSize {
				childBox = t.leafBox[c-innerSize]
			} else {
				childBox = t.innerBox[c]
			}
			if !t.innerBox[i].ContainsBox(childBox) {
				return fmt.Errorf("lbvh: node %d box does not contain child %d", i, c)
			}
		}
	}

	for i := 1; i < n; i++ {
		if t.codes[i-1] > t.codes[i] {
			return fmt.Errorf("lbvh: leaf codes not sorted at %d", i)
		}
	}

	// every non-root node must be referenced exactly once as a child
	seen := make([]int, 2*n-1)
	for i := int32(0); i < innerSize; i++ {
		seen[t.leftChild[i]]++
		seen[t.rightChild[i]]++
	}
	for node := 1; node < 2*n-1; node++ {
		if seen[node] != 1 {
			return fmt.Errorf("lbvh: node %d referenced %d times as a child", node, seen[node])
		}
	}
	if seen[0] != 0 {
		return fmt.Errorf("lbvh: root referenced as a child")
	}
	return nil
}
