package utils

import (
	"encoding/binary"
	"errors"
	"math/bits"

	"github.com/holiman/uint256"

	"github.com/vybium/stwo-verifier/internal/stwo-verifier/core"
)

// ErrChannelExhausted is returned when rejection sampling exceeds its retry
// bound. Hitting it indicates a protocol bug, not bad luck.
var ErrChannelExhausted = errors.New("channel exhausted: rejection sampling retry bound exceeded")

// drawRetryBound caps the rejection-sampling retries in DrawBaseFelts.
const drawRetryBound = 100

// powPrefix is the little-endian magic prefixing the proof-of-work digest.
const powPrefix uint32 = 0x12345678

// Channel is the Keccak-based Fiat-Shamir transcript. All verifier
// randomness derives deterministically from (digest, nDraws); every mix
// resets the draw counter. The channel is a strictly sequential state
// machine and must not be shared.
type Channel struct {
	digest core.Hash
	nDraws uint32
}

// NewChannel creates a channel from an initial digest and draw counter.
func NewChannel(digest core.Hash, nDraws uint32) *Channel {
	return &Channel{digest: digest, nDraws: nDraws}
}

// Digest returns the current transcript digest.
func (c *Channel) Digest() core.Hash {
	return c.digest
}

// NDraws returns the number of draws since the last mix.
func (c *Channel) NDraws() uint32 {
	return c.nDraws
}

// MixU32s absorbs a sequence of u32 values, little-endian.
func (c *Channel) MixU32s(data []uint32) {
	buf := make([]byte, 0, core.HashSize+4*len(data))
	buf = append(buf, c.digest[:]...)
	for _, v := range data {
		buf = AppendUint32LE(buf, v)
	}
	c.digest = core.Keccak256(buf)
	c.nDraws = 0
}

// MixU64 absorbs a u64 value as its low and high u32 halves.
func (c *Channel) MixU64(v uint64) {
	c.MixU32s([]uint32{uint32(v), uint32(v >> 32)})
}

// MixFelts absorbs secure field elements, 16 bytes each (4 u32
// coordinates, little-endian).
func (c *Channel) MixFelts(felts []core.QM31) {
	buf := make([]byte, 0, core.HashSize+16*len(felts))
	buf = append(buf, c.digest[:]...)
	for _, f := range felts {
		for _, coord := range f.ToM31s() {
			buf = AppendUint32LE(buf, uint32(coord))
		}
	}
	c.digest = core.Keccak256(buf)
	c.nDraws = 0
}

// MixRoot absorbs a commitment root: digest <- Keccak(digest || root).
func (c *Channel) MixRoot(root core.Hash) {
	c.digest = core.Keccak256(c.digest[:], root[:])
	c.nDraws = 0
}

// DrawU32s derives 8 u32 values from (digest, nDraws) and advances the
// draw counter.
func (c *Channel) DrawU32s() [8]uint32 {
	buf := make([]byte, 0, core.HashSize+5)
	buf = append(buf, c.digest[:]...)
	buf = AppendUint32LE(buf, c.nDraws)
	buf = append(buf, 0x00)
	h := core.Keccak256(buf)
	c.nDraws++

	var out [8]uint32
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(h[4*i:])
	}
	return out
}

// DrawBaseFelts draws 8 uniform base field elements, rejection-sampling
// whole batches until every raw u32 is below 2P.
func (c *Channel) DrawBaseFelts() ([8]core.M31, error) {
	for try := 0; try < drawRetryBound; try++ {
		raw := c.DrawU32s()
		ok := true
		for _, v := range raw {
			if v >= 2*core.Modulus {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		var out [8]core.M31
		for i, v := range raw {
			out[i] = core.NewM31(uint64(v))
		}
		return out, nil
	}
	return [8]core.M31{}, ErrChannelExhausted
}

// DrawSecureFelt draws one uniform secure field element from the first
// four base field elements of a fresh batch.
func (c *Channel) DrawSecureFelt() (core.QM31, error) {
	felts, err := c.DrawBaseFelts()
	if err != nil {
		return core.QM31{}, err
	}
	return core.NewQM31(felts[0], felts[1], felts[2], felts[3]), nil
}

// DrawSecureFelts draws n uniform secure field elements, packing base-felt
// batches and starting a new batch whenever fewer than four remain.
func (c *Channel) DrawSecureFelts(n int) ([]core.QM31, error) {
	out := make([]core.QM31, 0, n)
	var buf []core.M31
	for len(out) < n {
		if len(buf) < 4 {
			felts, err := c.DrawBaseFelts()
			if err != nil {
				return nil, err
			}
			buf = felts[:]
		}
		out = append(out, core.NewQM31(buf[0], buf[1], buf[2], buf[3]))
		buf = buf[4:]
	}
	return out, nil
}

// VerifyPowNonce checks a proof-of-work nonce against the current digest:
// the final Keccak digest, read as a little-endian 256-bit integer, must
// have at least nBits trailing zero bits.
func (c *Channel) VerifyPowNonce(nBits uint32, nonce uint64) bool {
	prefix := make([]byte, 0, 64)
	prefix = AppendUint32LE(prefix, powPrefix)
	prefix = append(prefix, make([]byte, 24)...)
	prefix = append(prefix, c.digest[:]...)
	prefix = AppendUint32LE(prefix, nBits)
	digestP := core.Keccak256(prefix)

	final := core.Keccak256(digestP[:], AppendUint64LE(nil, nonce))
	return trailingZeros256(final) >= nBits
}

// trailingZeros256 counts the trailing zero bits of a digest interpreted
// as a little-endian 256-bit integer.
func trailingZeros256(h core.Hash) uint32 {
	v := uint256.Int{
		binary.LittleEndian.Uint64(h[0:8]),
		binary.LittleEndian.Uint64(h[8:16]),
		binary.LittleEndian.Uint64(h[16:24]),
		binary.LittleEndian.Uint64(h[24:32]),
	}
	var tz uint32
	for _, limb := range v {
		if limb == 0 {
			tz += 64
			continue
		}
		tz += uint32(bits.TrailingZeros64(limb))
		break
	}
	return tz
}
