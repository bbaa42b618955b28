package math

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Clamp returns f limited to the range [low, high].
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// MipLevels is the length of a full mip chain for a width x height image,
// base level included. A zero-sized image has no levels.
func MipLevels(width, height uint32) uint32 {
	largest := Max(width, height)
	if largest == 0 {
		return 0
	}
	return uint32(bits.Len32(largest))
}

// HalveDimension is the size of the next mip level along one axis.
func HalveDimension[T constraints.Integer](v T) T {
	if v > 1 {
		return v / 2
	}
	return 1
}
