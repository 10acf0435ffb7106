// Package utils provides the Fiat-Shamir channel, the verifier
// configuration, and shared helpers.
package utils

import (
	"encoding/binary"
	"math/bits"
)

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns floor(log2(n)) for positive n.
func Log2(n int) int {
	return bits.Len(uint(n)) - 1
}

// BitReverseIndex reverses the lowest logSize bits of i.
func BitReverseIndex(i int, logSize uint32) int {
	if logSize == 0 {
		return i
	}
	return int(bits.Reverse32(uint32(i)) >> (32 - logSize))
}

// AppendUint32LE appends the little-endian encoding of v.
func AppendUint32LE(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

// AppendUint64LE appends the little-endian encoding of v.
func AppendUint64LE(b []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, v)
}

// SortedUniqueDesc sorts the values descending and removes duplicates.
func SortedUniqueDesc(values []uint32) []uint32 {
	out := append([]uint32(nil), values...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] > out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}

// SortedUniqueInts sorts the values ascending and removes duplicates.
func SortedUniqueInts(values []int) []int {
	out := append([]int(nil), values...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}
