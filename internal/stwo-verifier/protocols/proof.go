package protocols

import (
	"encoding/binary"
	"fmt"

	"github.com/vybium/stwo-verifier/internal/stwo-verifier/core"
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/utils"
)

// Proof is the parsed STARK proof. Commitment order is preprocessed,
// original, interaction, composition.
type Proof struct {
	Commitments     []core.Hash
	SampledValues   [][][]core.QM31
	Decommitments   []MerkleDecommitment
	QueriedValues   [][]core.M31
	ProofOfWork     uint64
	FriProof        FriProof
	CompositionPoly CompositionPoly
	Config          utils.PcsConfig
}

// FriProof carries the per-layer FRI commitments and witnesses plus the
// explicit last layer polynomial coefficients (in FFT order).
type FriProof struct {
	FirstLayer    FriLayerProof
	InnerLayers   []FriLayerProof
	LastLayerPoly []core.QM31
}

// FriLayerProof is one committed FRI layer: the witness evaluations at
// sibling positions the verifier cannot reconstruct, the Merkle
// decommitment, and the layer root.
type FriLayerProof struct {
	FriWitness   []core.QM31
	Decommitment MerkleDecommitment
	Commitment   core.Hash
}

// CompositionPoly is the composition polynomial split into the four M31
// coefficient vectors of its QM31 basis components.
type CompositionPoly struct {
	Coeffs [4][]core.M31
}

// VerificationParams describes the committed trace layout to verify
// against.
type VerificationParams struct {
	ComponentParams                     []ComponentParams
	NPreprocessedColumns                uint32
	ComponentsCompositionLogDegreeBound uint32
}

// ComponentParams holds the public inputs of one AIR component.
type ComponentParams struct {
	LogSize    uint32
	ClaimedSum core.QM31
	Info       ComponentInfo
}

// ComponentInfo describes a component's trace shape: the mask offsets per
// tree and column, and which preprocessed columns it reads.
type ComponentInfo struct {
	MaxConstraintLogDegreeBound uint32
	LogSize                     uint32
	MaskOffsets                 [][][]int32
	PreprocessedColumns         []uint32
}

// proofReader decodes the little-endian, length-prefixed proof wire
// format.
type proofReader struct {
	buf []byte
	pos int
}

func (r *proofReader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *proofReader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("%w: truncated u32 at offset %d", ErrShape, r.pos)
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *proofReader) u64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, fmt.Errorf("%w: truncated u64 at offset %d", ErrShape, r.pos)
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// length reads a u32 length prefix and bounds it against the remaining
// bytes so corrupt prefixes cannot trigger huge allocations.
func (r *proofReader) length(elemSize int) (int, error) {
	n, err := r.u32()
	if err != nil {
		return 0, err
	}
	if int64(n)*int64(elemSize) > int64(r.remaining()) {
		return 0, fmt.Errorf("%w: length %d exceeds remaining bytes at offset %d", ErrShape, n, r.pos)
	}
	return int(n), nil
}

func (r *proofReader) hash() (core.Hash, error) {
	var h core.Hash
	if r.remaining() < core.HashSize {
		return h, fmt.Errorf("%w: truncated hash at offset %d", ErrShape, r.pos)
	}
	copy(h[:], r.buf[r.pos:])
	r.pos += core.HashSize
	return h, nil
}

func (r *proofReader) m31() (core.M31, error) {
	v, err := r.u32()
	if err != nil {
		return 0, err
	}
	if v >= core.Modulus {
		return 0, fmt.Errorf("%w: unreduced field element %d", ErrShape, v)
	}
	return core.M31(v), nil
}

func (r *proofReader) qm31() (core.QM31, error) {
	var coords [4]core.M31
	for i := range coords {
		v, err := r.m31()
		if err != nil {
			return core.QM31{}, err
		}
		coords[i] = v
	}
	return core.NewQM31(coords[0], coords[1], coords[2], coords[3]), nil
}

func (r *proofReader) m31Vec() ([]core.M31, error) {
	n, err := r.length(4)
	if err != nil {
		return nil, err
	}
	out := make([]core.M31, n)
	for i := range out {
		if out[i], err = r.m31(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *proofReader) qm31Vec() ([]core.QM31, error) {
	n, err := r.length(16)
	if err != nil {
		return nil, err
	}
	out := make([]core.QM31, n)
	for i := range out {
		if out[i], err = r.qm31(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *proofReader) decommitment() (MerkleDecommitment, error) {
	var d MerkleDecommitment
	n, err := r.length(core.HashSize)
	if err != nil {
		return d, err
	}
	d.HashWitness = make([]core.Hash, n)
	for i := range d.HashWitness {
		if d.HashWitness[i], err = r.hash(); err != nil {
			return d, err
		}
	}
	if d.ColumnWitness, err = r.m31Vec(); err != nil {
		return d, err
	}
	return d, nil
}

func (r *proofReader) friLayerProof() (FriLayerProof, error) {
	var p FriLayerProof
	var err error
	if p.FriWitness, err = r.qm31Vec(); err != nil {
		return p, err
	}
	if p.Decommitment, err = r.decommitment(); err != nil {
		return p, err
	}
	if p.Commitment, err = r.hash(); err != nil {
		return p, err
	}
	return p, nil
}

// ParseProof decodes a serialized proof. The layout is the wire order of
// the proof fields, little-endian throughout, with u32 length prefixes.
func ParseProof(data []byte) (*Proof, error) {
	r := &proofReader{buf: data}
	proof := &Proof{}

	nCommitments, err := r.length(core.HashSize)
	if err != nil {
		return nil, err
	}
	proof.Commitments = make([]core.Hash, nCommitments)
	for i := range proof.Commitments {
		if proof.Commitments[i], err = r.hash(); err != nil {
			return nil, err
		}
	}

	nTrees, err := r.length(4)
	if err != nil {
		return nil, err
	}
	proof.SampledValues = make([][][]core.QM31, nTrees)
	for t := range proof.SampledValues {
		nCols, err := r.length(4)
		if err != nil {
			return nil, err
		}
		proof.SampledValues[t] = make([][]core.QM31, nCols)
		for c := range proof.SampledValues[t] {
			if proof.SampledValues[t][c], err = r.qm31Vec(); err != nil {
				return nil, err
			}
		}
	}

	if nTrees, err = r.length(4); err != nil {
		return nil, err
	}
	proof.Decommitments = make([]MerkleDecommitment, nTrees)
	for t := range proof.Decommitments {
		if proof.Decommitments[t], err = r.decommitment(); err != nil {
			return nil, err
		}
	}

	if nTrees, err = r.length(4); err != nil {
		return nil, err
	}
	proof.QueriedValues = make([][]core.M31, nTrees)
	for t := range proof.QueriedValues {
		if proof.QueriedValues[t], err = r.m31Vec(); err != nil {
			return nil, err
		}
	}

	if proof.ProofOfWork, err = r.u64(); err != nil {
		return nil, err
	}

	if proof.FriProof.FirstLayer, err = r.friLayerProof(); err != nil {
		return nil, err
	}
	nLayers, err := r.length(1)
	if err != nil {
		return nil, err
	}
	proof.FriProof.InnerLayers = make([]FriLayerProof, nLayers)
	for i := range proof.FriProof.InnerLayers {
		if proof.FriProof.InnerLayers[i], err = r.friLayerProof(); err != nil {
			return nil, err
		}
	}
	if proof.FriProof.LastLayerPoly, err = r.qm31Vec(); err != nil {
		return nil, err
	}

	for i := range proof.CompositionPoly.Coeffs {
		if proof.CompositionPoly.Coeffs[i], err = r.m31Vec(); err != nil {
			return nil, err
		}
	}

	cfg := &proof.Config
	if cfg.PowBits, err = r.u32(); err != nil {
		return nil, err
	}
	if cfg.FriConfig.LogBlowupFactor, err = r.u32(); err != nil {
		return nil, err
	}
	if cfg.FriConfig.LogLastLayerDegreeBound, err = r.u32(); err != nil {
		return nil, err
	}
	if cfg.FriConfig.NQueries, err = r.u32(); err != nil {
		return nil, err
	}

	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrShape, r.remaining())
	}
	return proof, nil
}

// EncodeProof serializes a proof into the wire format ParseProof decodes.
func EncodeProof(proof *Proof) []byte {
	var buf []byte

	buf = utils.AppendUint32LE(buf, uint32(len(proof.Commitments)))
	for _, h := range proof.Commitments {
		buf = append(buf, h[:]...)
	}

	buf = utils.AppendUint32LE(buf, uint32(len(proof.SampledValues)))
	for _, tree := range proof.SampledValues {
		buf = utils.AppendUint32LE(buf, uint32(len(tree)))
		for _, col := range tree {
			buf = appendQM31Vec(buf, col)
		}
	}

	buf = utils.AppendUint32LE(buf, uint32(len(proof.Decommitments)))
	for _, d := range proof.Decommitments {
		buf = appendDecommitment(buf, d)
	}

	buf = utils.AppendUint32LE(buf, uint32(len(proof.QueriedValues)))
	for _, tree := range proof.QueriedValues {
		buf = appendM31Vec(buf, tree)
	}

	buf = utils.AppendUint64LE(buf, proof.ProofOfWork)

	buf = appendFriLayerProof(buf, proof.FriProof.FirstLayer)
	buf = utils.AppendUint32LE(buf, uint32(len(proof.FriProof.InnerLayers)))
	for _, layer := range proof.FriProof.InnerLayers {
		buf = appendFriLayerProof(buf, layer)
	}
	buf = appendQM31Vec(buf, proof.FriProof.LastLayerPoly)

	for _, coeffs := range proof.CompositionPoly.Coeffs {
		buf = appendM31Vec(buf, coeffs)
	}

	buf = utils.AppendUint32LE(buf, proof.Config.PowBits)
	buf = utils.AppendUint32LE(buf, proof.Config.FriConfig.LogBlowupFactor)
	buf = utils.AppendUint32LE(buf, proof.Config.FriConfig.LogLastLayerDegreeBound)
	buf = utils.AppendUint32LE(buf, proof.Config.FriConfig.NQueries)
	return buf
}

func appendM31Vec(buf []byte, vec []core.M31) []byte {
	buf = utils.AppendUint32LE(buf, uint32(len(vec)))
	for _, v := range vec {
		buf = utils.AppendUint32LE(buf, uint32(v))
	}
	return buf
}

func appendQM31Vec(buf []byte, vec []core.QM31) []byte {
	buf = utils.AppendUint32LE(buf, uint32(len(vec)))
	for _, v := range vec {
		for _, coord := range v.ToM31s() {
			buf = utils.AppendUint32LE(buf, uint32(coord))
		}
	}
	return buf
}

func appendDecommitment(buf []byte, d MerkleDecommitment) []byte {
	buf = utils.AppendUint32LE(buf, uint32(len(d.HashWitness)))
	for _, h := range d.HashWitness {
		buf = append(buf, h[:]...)
	}
	return appendM31Vec(buf, d.ColumnWitness)
}

func appendFriLayerProof(buf []byte, p FriLayerProof) []byte {
	buf = appendQM31Vec(buf, p.FriWitness)
	buf = appendDecommitment(buf, p.Decommitment)
	return append(buf, p.Commitment[:]...)
}
