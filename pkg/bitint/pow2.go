// SPDX-License-Identifier: MIT
/*
Package bitint provides power-of-2 helpers for FFT and buffer sizing.

Design Principles:
- Zero Allocations: All operations use stack memory only
- Predictable Performance: O(1) constant time operations
- Real-Time Safe: No locks, syscalls, or blocking operations

Usage:

	// Truncate an extracted block to the largest FFT size it can fill
	size := bitint.PrevPowerOfTwo(1022) // Returns 512

	// Key a plan cache by exponent
	exp := bitint.Log2(size) // Returns 9

----------------------------------------------------------------------

What this code does:

	bits.Len(n) is the position of the highest set bit plus one, so
	bits.Len(n)-1 is floor(log2(n)) for n > 0:

	- For input 1022 (binary 11_1111_1110):
	  bits.Len(1022) = 10
	  floor(log2(1022)) = 9
	  1 << 9 = 512

	- For input 512 (binary 10_0000_0000):
	  bits.Len(512) = 10
	  floor(log2(512)) = 9
	  1 << 9 = 512 (powers of 2 are preserved)
*/
package bitint

import "math/bits"

// Log2 returns floor(log2(n)) for n > 0 and -1 otherwise.
//
// Examples:
//
//	Input  Output
//	1      0
//	1022   9
//	1024   10
//	0      -1
func Log2(n int) int {
	if n <= 0 {
		return -1
	}
	return bits.Len(uint(n)) - 1
}

// PrevPowerOfTwo returns the largest power of 2 <= n, or 0 when n < 1.
func PrevPowerOfTwo(n int) int {
	if n <= 0 {
		return 0
	}
	return 1 << Log2(n)
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// The expression (n & (n-1)) == 0 works because:
//   - Powers of 2 have exactly one bit set
//   - Subtracting 1 from a power of 2 sets all lower bits
//   - AND operation will be 0 only for powers of 2
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
