package lbvh

// Morton (Z-order) codes: per-axis quantized coordinates, bit interleaved.
// Codes are carried as uint64 regardless of the encoded width so the sorter
// and tree builder have a single key type.

// expand2 spreads the low 16 bits of v so a second axis can interleave.
func expand2(v uint64) uint64 {
	v &= 0xFFFF
	v = (v | (v << 8)) & 0x00FF00FF
	v = (v | (v << 4)) & 0x0F0F0F0F
	v = (v | (v << 2)) & 0x33333333
	v = (v | (v << 1)) & 0x55555555
	return v
}

// expand2Wide spreads the low 31 bits of v across 62 bits.
func expand2Wide(v uint64) uint64 {
	v &= 0x7FFFFFFF
	v = (v | (v << 16)) & 0x0000FFFF0000FFFF
	v = (v | (v << 8)) & 0x00FF00FF00FF00FF
	v = (v | (v << 4)) & 0x0F0F0F0F0F0F0F0F
	v = (v | (v << 2)) & 0x3333333333333333
	v = (v | (v << 1)) & 0x5555555555555555
	return v
}

// expand3 spreads the low 10 bits of v so three axes interleave into 30 bits.
func expand3(v uint64) uint64 {
	v &= 0x3FF
	v = (v | (v << 16)) & 0x030000FF
	v = (v | (v << 8)) & 0x0300F00F
	v = (v | (v << 4)) & 0x030C30C3
	v = (v | (v << 2)) & 0x09249249
	return v
}

// expand3Wide spreads the low 21 bits of v across 63 bits.
func expand3Wide(v uint64) uint64 {
	v &= 0x1FFFFF
	v = (v | (v << 32)) & 0x001F00000000FFFF
	v = (v | (v << 16)) & 0x001F0000FF0000FF
	v = (v | (v << 8)) & 0x100F00F00F00F00F
	v = (v | (v << 4)) & 0x10C30C30C30C30C3
	v = (v | (v << 2)) & 0x1249249249249249
	return v
}

// mortonEncoder quantizes centroids normalized against a global bound.
type mortonEncoder[T Float] struct {
	minCorner [3]T
	invExtent [3]T
	dims      int
	wide      bool
}

func newMortonEncoder[T Float](bounds Box[T], dims int, wide bool) mortonEncoder[T] {
	enc := mortonEncoder[T]{minCorner: bounds.Min, dims: dims, wide: wide}
	for a := 0; a < 3; a++ {
		extent := bounds.Max[a] - bounds.Min[a]
		// A zero-extent axis collapses instead of dividing by zero.
		if extent > 0 {
			enc.invExtent[a] = 1 / extent
		}
	}
	return enc
}

func (e mortonEncoder[T]) bitsPerAxis() int {
	switch {
	case e.dims == 2 && e.wide:
		return 31
	case e.dims == 2:
		return 16
	case e.wide:
		return 21
	default:
		return 10
	}
}

// encode maps a centroid to its spatial key. Deterministic for identical
// normalized input.
func (e mortonEncoder[T]) encode(c [3]T) uint64 {
	bits := e.bitsPerAxis()
	scale := float64(uint64(1) << bits)
	ceiling := scale - 1

	var q [3]uint64
	for a := 0; a < e.dims; a++ {
		norm := float64((c[a] - e.minCorner[a]) * e.invExtent[a])
		v := norm * scale
		if v < 0 {
			v = 0
		} else if v > ceiling {
			v = ceiling
		}
		q[a] = uint64(v)
	}

	switch {
	case e.dims == 2 && e.wide:
		return expand2Wide(q[0]) | (expand2Wide(q[1]) << 1)
	case e.dims == 2:
		return expand2(q[0]) | (expand2(q[1]) << 1)
	case e.wide:
		return expand3Wide(q[0]) | (expand3Wide(q[1]) << 1) | (expand3Wide(q[2]) << 2)
	default:
		return expand3(q[0]) | (expand3(q[1]) << 1) | (expand3(q[2]) << 2)
	}
}
