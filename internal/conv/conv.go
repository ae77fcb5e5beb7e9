// Package conv provides checked conversion helpers for the bytecode
// encoding.
//
// Jump offsets are signed quantities stored in unsigned 64-bit bytecode
// words using two's complement. These helpers centralize the casts and
// perform bounds checking where a narrowing conversion could silently
// overflow. They panic on overflow since this indicates a programming
// error (a program larger than the encoding's internal limits).
package conv

import "math"

// OffsetToWord encodes a signed relative offset as a bytecode word.
//
//go:inline
func OffsetToWord(off int) uint64 {
	return uint64(int64(off))
}

// WordToOffset decodes a bytecode word as a signed relative offset.
// Panics if the value cannot be represented as an int.
//
//go:inline
func WordToOffset(w uint64) int {
	v := int64(w)
	if v > math.MaxInt || v < math.MinInt {
		panic("integer overflow: offset word out of int range")
	}
	return int(v)
}

// IntToWord safely converts a non-negative int to a bytecode word.
// Panics if n < 0, since addresses and counts are never negative.
//
//go:inline
func IntToWord(n int) uint64 {
	if n < 0 {
		panic("integer overflow: negative value for unsigned bytecode word")
	}
	return uint64(n)
}

// WordToInt safely converts a bytecode word holding an address or count
// to an int. Panics if n > math.MaxInt.
//
//go:inline
func WordToInt(n uint64) int {
	if n > math.MaxInt {
		panic("integer overflow: word value out of int range")
	}
	return int(n)
}
