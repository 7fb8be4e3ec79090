package lbvh

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func makePairs(rng *rand.Rand, n int, mask uint64) ([]uint64, []int32) {
	codes := make([]uint64, n)
	indices := make([]int32, n)
	for i := range codes {
		codes[i] = rng.Uint64() & mask
		indices[i] = int32(i)
	}
	return codes, indices
}

func TestSortPairsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 2, 63, 64, 65, 1000, 5000} {
		// narrow mask forces duplicate keys, full mask exercises all passes
		for _, mask := range []uint64{0xFF, 0x3FFFFFFF, ^uint64(0)} {
			c1, i1 := makePairs(rng, n, mask)
			c2 := append([]uint64{}, c1...)
			i2 := append([]int32{}, i1...)

			radixSortPairs(c1, i1)
			stableSortPairs(c2, i2)

			require.Equal(t, c2, c1, "codes n=%d mask=%x", n, mask)
			require.Equal(t, i2, i1, "indices n=%d mask=%x", n, mask)
		}
	}
}

func TestSortPairsStable(t *testing.T) {
	// all keys equal: the payload must keep its original order
	for _, sorter := range []func([]uint64, []int32){radixSortPairs, stableSortPairs} {
		n := 300
		codes := make([]uint64, n)
		indices := make([]int32, n)
		for i := range indices {
			indices[i] = int32(i)
		}
		sorter(codes, indices)
		for i := range indices {
			require.Equal(t, int32(i), indices[i])
		}
	}
}

func TestSortPairsSorted(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	codes, indices := makePairs(rng, 2000, ^uint64(0))
	orig := append([]uint64(nil), codes...)

	radixSortPairs(codes, indices)

	for i := 1; i < len(codes); i++ {
		require.LessOrEqual(t, codes[i-1], codes[i])
	}
	// the permutation points back at the value's original slot
	for i, p := range indices {
		require.Equal(t, orig[p], codes[i])
	}
}

func TestSortPairsArbitraryPayload(t *testing.T) {
	// the payload is opaque: both sorters must carry any values, not
	// just the identity permutation
	rng := rand.New(rand.NewSource(3))
	for _, sorter := range []func([]uint64, []int32){radixSortPairs, stableSortPairs} {
		n := 500
		codes := make([]uint64, n)
		payload := make([]int32, n)
		for i := range codes {
			codes[i] = rng.Uint64() & 0xFF // plenty of duplicate keys
			payload[i] = int32(rng.Intn(10)) - 5
		}

		type pair struct {
			code    uint64
			payload int32
		}
		want := make([]pair, n)
		for i := range want {
			want[i] = pair{codes[i], payload[i]}
		}
		sort.SliceStable(want, func(a, b int) bool { return want[a].code < want[b].code })

		sorter(codes, payload)
		for i := range want {
			require.Equal(t, want[i].code, codes[i], "position %d", i)
			require.Equal(t, want[i].payload, payload[i], "position %d", i)
		}
	}
}

func TestReorder(t *testing.T) {
	// gather semantics: out[i] = data[perm[i]]
	out := reorder([]int32{1, 0, 2}, []string{"a", "b", "c"})
	require.Equal(t, []string{"b", "a", "c"}, out)
}
