package core

import "golang.org/x/crypto/sha3"

// HashSize is the byte length of a Keccak-256 digest.
const HashSize = 32

// Hash is a Keccak-256 digest, used for channel states and Merkle nodes.
type Hash [HashSize]byte

// Keccak256 computes the Keccak-256 hash of the concatenation of the given
// byte slices.
func Keccak256(data ...[]byte) Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	var h Hash
	d.Sum(h[:0])
	return h
}

// Bytes returns the digest as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}
