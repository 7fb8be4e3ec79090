package lbvh

import "sort"

// Key/value sorting of morton codes with their index payload. Both paths
// are stable: equal codes keep their original relative order, which is what
// makes rebuilds on unchanged input deterministic.

// radixSortPairs sorts codes ascending, moving indices along with them.
// 8-bit LSD counting passes; passes whose byte is constant across every key
// are skipped, so narrow (30/32 bit) codes never pay for the full 64 bits.
func radixSortPairs(codes []uint64, indices []int32) {
	n := len(codes)
	if n <= 1 {
		return
	}
	if n <= 64 {
		insertionSortPairs(codes, indices)
		return
	}

	srcC, srcI := codes, indices
	dstC := make([]uint64, n)
	dstI := make([]int32, n)

	for shift := uint(0); shift < 64; shift += 8 {
		var counts [256]int
		for _, v := range srcC {
			counts[(v>>shift)&0xFF]++
		}
		if counts[(srcC[0]>>shift)&0xFF] == n {
			continue
		}

		total := 0
		for i := range counts {
			c := counts[i]
			counts[i] = total
			total += c
		}

		for i, v := range srcC {
			b := (v >> shift) & 0xFF
			dstC[counts[b]] = v
			dstI[counts[b]] = srcI[i]
			counts[b]++
		}

		srcC, dstC = dstC, srcC
		srcI, dstI = dstI, srcI
	}

	if &srcC[0] != &codes[0] {
		copy(codes, srcC)
		copy(indices, srcI)
	}
}

// insertionSortPairs handles small inputs where counting passes cost more
// than they save.
func insertionSortPairs(codes []uint64, indices []int32) {
	for i := 1; i < len(codes); i++ {
		c, id := codes[i], indices[i]
		j := i - 1
		for j >= 0 && codes[j] > c {
			codes[j+1], indices[j+1] = codes[j], indices[j]
			j--
		}
		codes[j+1], indices[j+1] = c, id
	}
}

// stableSortPairs is the fallback used by the sequential backend: stable
// sort of a counting permutation comparing codes only, followed by an
// explicit gather of codes and payload through it. Carries indices as
// opaque payload, exactly like radixSortPairs.
func stableSortPairs(codes []uint64, indices []int32) {
	perm := make([]int32, len(codes))
	for i := range perm {
		perm[i] = int32(i)
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return codes[perm[a]] < codes[perm[b]]
	})
	codesCopy := make([]uint64, len(codes))
	copy(codesCopy, codes)
	indicesCopy := make([]int32, len(indices))
	copy(indicesCopy, indices)
	for i, p := range perm {
		codes[i] = codesCopy[p]
		indices[i] = indicesCopy[p]
	}
}

// reorder gathers data through a permutation: out[i] = data[perm[i]].
// Applied to every companion array that must follow the code ordering.
func reorder[E any](perm []int32, data []E) []E {
	out := make([]E, len(data))
	for i, p := range perm {
		out[i] = data[p]
	}
	return out
}
