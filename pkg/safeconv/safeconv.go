// Package safeconv provides integer conversions that panic instead of wrapping.
package safeconv

import "math"

// MustIntToUint32 converts int to uint32, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToUint32(v int) uint32 {
	if v < 0 || v > math.MaxUint32 {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}

// MustUint64ToInt64 converts a counter to int64, panics on overflow.
func MustUint64ToInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		panic("safeconv: uint64 to int64 overflow")
	}

	return int64(v)
}
