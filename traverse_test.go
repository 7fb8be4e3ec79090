package lbvh

import (
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTraverseZeroValue(t *testing.T) {
	// a zero tree never comes out of Build, but traversal on it is a no-op
	var tree BVH[float64]
	tree.Traverse(
		func(Box[float64]) bool { return true },
		func(int32) { t.Fatal("visited a leaf on an empty tree") },
	)
	require.Empty(t, tree.Search(NewBox3[float64](0, 0, 0, 1, 1, 1)))
	_, _, ok := tree.Nearest([3]float64{0, 0, 0})
	require.False(t, ok)
}

func TestSearchBruteForce(t *testing.T) {
	testSearchBruteForce[float32](t)
	testSearchBruteForce[float64](t)
}

func testSearchBruteForce[TFloat Float](t *testing.T) {
	dim := 40
	boxes := make([]Box[TFloat], 0, dim*dim)
	for x := TFloat(0); x < TFloat(dim); x++ {
		for y := TFloat(0); y < TFloat(dim); y++ {
			boxes = append(boxes, NewBox3(x+0.1, y+0.1, 0, x+0.9, y+0.9, 1))
		}
	}
	tree, err := Build(boxes, WithBackend[TFloat](Threads(0)))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(0))

	totalResults := 0
	nSamples := 500
	results := []int{}
	for i := 0; i < nSamples; i++ {
		minx := TFloat(rng.Float32())*TFloat(dim) - 3
		miny := TFloat(rng.Float32())*TFloat(dim) - 3
		query := NewBox3(minx, miny, 0, minx+TFloat(rng.Float32())*5, miny+TFloat(rng.Float32())*5, 1)

		results = tree.SearchFast(query, results)
		totalResults += len(results)

		// brute force validation: exactly the overlapping set, no more
		want := []int{}
		for j, b := range boxes {
			if b.Intersects(query) {
				want = append(want, j)
			}
		}
		got := append([]int{}, results...)
		sort.Ints(got)
		require.Equal(t, want, got)
	}
	require.Greater(t, totalResults, 0)
}

func TestNearestBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	boxes := randomBoxes[float64](rng, 5000, 100, 1)

	tree, err := Build(boxes, WithBackend[float64](Threads(0)))
	require.NoError(t, err)

	for q := 0; q < 200; q++ {
		p := [3]float64{
			rng.Float64()*120 - 10,
			rng.Float64()*120 - 10,
			rng.Float64()*120 - 10,
		}

		wantID := int32(-1)
		wantD := float64(0)
		for i, b := range boxes {
			d := b.DistanceSq(p)
			if wantID == -1 || d < wantD || (d == wantD && int32(i) < wantID) {
				wantID = int32(i)
				wantD = d
			}
		}

		id, d, ok := tree.Nearest(p)
		require.True(t, ok)
		require.Equal(t, wantD, d, "query %d", q)
		require.Equal(t, wantID, id, "query %d", q)
	}
}

func TestContains(t *testing.T) {
	boxes := []Box[float64]{
		NewBox3[float64](0, 0, 0, 2, 2, 2),
		NewBox3[float64](1, 1, 1, 3, 3, 3),
		NewBox3[float64](10, 10, 10, 11, 11, 11),
	}
	tree, err := Build(boxes)
	require.NoError(t, err)

	got := tree.Contains([3]float64{1.5, 1.5, 1.5}, nil)
	sort.Ints(got)
	require.Equal(t, []int{0, 1}, got)

	require.Empty(t, tree.Contains([3]float64{5, 5, 5}, nil))
}

func TestRayCast(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	boxes := randomBoxes[float64](rng, 800, 50, 2)

	tree, err := Build(boxes)
	require.NoError(t, err)

	for q := 0; q < 50; q++ {
		origin := [3]float64{rng.Float64() * 50, rng.Float64() * 50, rng.Float64() * 50}
		dir := [3]float64{rng.Float64()*2 - 1, rng.Float64()*2 - 1, rng.Float64()*2 - 1}

		got := []int{}
		tree.RayCast(origin, dir, func(id int32) { got = append(got, int(id)) })
		sort.Ints(got)

		rr := newRayRecips(dir)
		want := []int{}
		for i, b := range boxes {
			if _, ok := b.rayIntersects(origin, rr); ok {
				want = append(want, i)
			}
		}
		require.Equal(t, want, got, "query %d", q)
	}
}

func TestConcurrentQueries(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	boxes := randomBoxes[float64](rng, 2000, 100, 1)

	tree, err := Build(boxes, WithBackend[float64](Threads(0)))
	require.NoError(t, err)

	// pre-compute expected answers single-threaded
	points := make([][3]float64, 64)
	wantID := make([]int32, len(points))
	for i := range points {
		points[i] = [3]float64{rng.Float64() * 100, rng.Float64() * 100, rng.Float64() * 100}
		wantID[i], _, _ = tree.Nearest(points[i])
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rep := 0; rep < 50; rep++ {
				for i, p := range points {
					id, _, ok := tree.Nearest(p)
					if !ok || id != wantID[i] {
						t.Errorf("concurrent nearest mismatch at point %d", i)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
