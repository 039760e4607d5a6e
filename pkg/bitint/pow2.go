// SPDX-License-Identifier: MIT

// Package bitint provides power-of-2 helpers for FFT window and ring
// buffer sizing. All operations are constant time and allocation free.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Exact powers
// of 2 are preserved; zero and negative sizes map to 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
