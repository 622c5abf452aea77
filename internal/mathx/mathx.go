// Package mathx holds small generic numeric helpers shared by the CPU
// kernels and the atlas layout code.
package mathx

import "golang.org/x/exp/constraints"

type number interface {
	constraints.Integer | constraints.Float
}

// Clamp limits v to [lo, hi].
func Clamp[T number](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CeilDiv returns ceil(x / y) for positive y.
func CeilDiv[T constraints.Integer](x, y T) T {
	return (x + y - 1) / y
}

// NextMultipleOf rounds x up to a multiple of y.
func NextMultipleOf[T constraints.Integer](x, y T) T {
	return CeilDiv(x, y) * y
}

// SquareSide returns the smallest side s with s*s >= n, at least 1.
func SquareSide(n int) int {
	if n <= 1 {
		return 1
	}
	s := 1
	for s*s < n {
		s <<= 1
	}
	// Binary search down from the power of two.
	lo, hi := s>>1, s
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if mid*mid >= n {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi
}

// Mod returns the non-negative remainder of x / m.
func Mod[T constraints.Integer](x, m T) T {
	r := x % m
	if r < 0 {
		r += m
	}
	return r
}
