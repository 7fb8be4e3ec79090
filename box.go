package lbvh

import "math"

// Float is the coordinate type of a tree.
type Float interface {
	~float32 | ~float64
}

// Box is an axis-aligned bounding box in 2 or 3 dimensions.
// 2D boxes leave the Z axis zeroed; every operation runs over all three
// axes, so a zero Z range behaves as a degenerate (but valid) slab.
type Box[T Float] struct {
	Min [3]T
	Max [3]T
}

// InvalidBox returns the empty sentinel box. Expanding it by any valid box
// yields that box, which makes Expand usable as an unordered reduction.
func InvalidBox[T Float]() Box[T] {
	return Box[T]{
		Min: [3]T{T(math.MaxFloat32), T(math.MaxFloat32), T(math.MaxFloat32)},
		Max: [3]T{T(-math.MaxFloat32), T(-math.MaxFloat32), T(-math.MaxFloat32)},
	}
}

// NewBox2 builds a 2D box. The Z axis collapses to [0,0].
func NewBox2[T Float](minX, minY, maxX, maxY T) Box[T] {
	return Box[T]{Min: [3]T{minX, minY, 0}, Max: [3]T{maxX, maxY, 0}}
}

// NewBox3 builds a 3D box.
func NewBox3[T Float](minX, minY, minZ, maxX, maxY, maxZ T) Box[T] {
	return Box[T]{Min: [3]T{minX, minY, minZ}, Max: [3]T{maxX, maxY, maxZ}}
}

// Valid reports whether the box encloses at least one point.
func (b Box[T]) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Expand grows the box to also cover o (union). Commutative and
// associative, so merge order across siblings does not matter.
func (b *Box[T]) Expand(o Box[T]) {
	for a := 0; a < 3; a++ {
		b.Min[a] = min(b.Min[a], o.Min[a])
		b.Max[a] = max(b.Max[a], o.Max[a])
	}
}

// Centroid returns the box center.
func (b Box[T]) Centroid() [3]T {
	return [3]T{
		(b.Min[0] + b.Max[0]) * 0.5,
		(b.Min[1] + b.Max[1]) * 0.5,
		(b.Min[2] + b.Max[2]) * 0.5,
	}
}

// Contains reports whether the point lies inside the box, boundary inclusive.
func (b Box[T]) Contains(p [3]T) bool {
	for a := 0; a < 3; a++ {
		if p[a] < b.Min[a] || p[a] > b.Max[a] {
			return false
		}
	}
	return true
}

// Intersects reports whether the two boxes overlap, boundary inclusive.
func (b Box[T]) Intersects(o Box[T]) bool {
	for a := 0; a < 3; a++ {
		if o.Max[a] < b.Min[a] || o.Min[a] > b.Max[a] {
			return false
		}
	}
	return true
}

// ContainsBox reports whether o lies entirely inside b.
func (b Box[T]) ContainsBox(o Box[T]) bool {
	for a := 0; a < 3; a++ {
		if o.Min[a] < b.Min[a] || o.Max[a] > b.Max[a] {
			return false
		}
	}
	return true
}

// DistanceSq returns the squared distance from the point to the box,
// zero when the point is inside.
func (b Box[T]) DistanceSq(p [3]T) T {
	var d T
	for a := 0; a < 3; a++ {
		if v := b.Min[a] - p[a]; v > 0 {
			d += v * v
		} else if v := p[a] - b.Max[a]; v > 0 {
			d += v * v
		}
	}
	return d
}

// Scale inflates (or deflates) the box about its centroid.
func (b *Box[T]) Scale(factor T) {
	c := b.Centroid()
	for a := 0; a < 3; a++ {
		b.Min[a] = c[a] + (b.Min[a]-c[a])*factor
		b.Max[a] = c[a] + (b.Max[a]-c[a])*factor
	}
}

// IsFinite reports whether every coordinate is a finite number strictly
// below the InvalidBox sentinel magnitude. Coordinates at ±MaxFloat32 are
// rejected: they are indistinguishable from the not-yet-written sentinel
// the propagation poll protocol spins against.
func (b Box[T]) IsFinite() bool {
	for a := 0; a < 3; a++ {
		if !isFinite(b.Min[a]) || !isFinite(b.Max[a]) {
			return false
		}
	}
	return true
}

func isFinite[T Float](v T) bool {
	f := float64(v)
	return !math.IsNaN(f) && f < math.MaxFloat32 && f > -math.MaxFloat32
}

// rayRecips caches per-axis reciprocal directions for slab tests.
// Axes with a (near) zero direction component are flagged parallel.
type rayRecips[T Float] struct {
	inv [3]T
	par [3]bool
}

func newRayRecips[T Float](dir [3]T) rayRecips[T] {
	const eps = 1e-30
	var rr rayRecips[T]
	for a := 0; a < 3; a++ {
		d := float64(dir[a])
		if d > eps || d < -eps {
			rr.inv[a] = 1 / dir[a]
		} else {
			rr.par[a] = true
		}
	}
	return rr
}

// rayIntersects performs the slab test for a ray starting at origin.
// Returns the entry parameter (clamped to 0 when the origin is inside).
func (b Box[T]) rayIntersects(origin [3]T, rr rayRecips[T]) (T, bool) {
	var tmin T
	tmax := T(math.MaxFloat32)
	for a := 0; a < 3; a++ {
		if rr.par[a] {
			// Ray parallel to this slab: origin must already be inside it.
			if origin[a] < b.Min[a] || origin[a] > b.Max[a] {
				return 0, false
			}
			continue
		}
		t0 := (b.Min[a] - origin[a]) * rr.inv[a]
		t1 := (b.Max[a] - origin[a]) * rr.inv[a]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = max(tmin, t0)
		tmax = min(tmax, t1)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
