package clamp

import "golang.org/x/exp/constraints"

// Value limits v to [lo, hi]. A NaN input collapses to lo.
func Value[T constraints.Ordered](v, lo, hi T) T {
	if v != v {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Symmetric limits v to [-limit, limit], keeping its sign.
func Symmetric[T constraints.Signed | constraints.Float](v, limit T) T {
	if limit < 0 {
		limit = -limit
	}
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
