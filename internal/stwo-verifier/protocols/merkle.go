package protocols

import (
	"fmt"

	"github.com/vybium/stwo-verifier/internal/stwo-verifier/core"
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/utils"
)

// MerkleDecommitment is the witness for a multi-column Merkle opening: the
// sibling hashes the verifier cannot recompute, and the column values at
// positions that are hashed but not queried.
type MerkleDecommitment struct {
	HashWitness   []core.Hash
	ColumnWitness []core.M31
}

// MerkleVerifier checks openings of one committed tree. Columns of
// heterogeneous log sizes hang off the same root: each unique log size
// contributes leaves at its own depth, and interior nodes absorb both the
// child hashes and the column values injected at that depth.
type MerkleVerifier struct {
	Root           core.Hash
	ColumnLogSizes []uint32
}

// NewMerkleVerifier creates a verifier for a tree with the given root and
// per-column log sizes.
func NewMerkleVerifier(root core.Hash, columnLogSizes []uint32) *MerkleVerifier {
	return &MerkleVerifier{Root: root, ColumnLogSizes: append([]uint32(nil), columnLogSizes...)}
}

// indexedHash is a computed node hash at its position within a layer.
type indexedHash struct {
	index int
	hash  core.Hash
}

// hashNode hashes an interior or leaf node: child hashes (when present)
// followed by the layer's column values, little-endian.
func hashNode(children []core.Hash, values []core.M31) core.Hash {
	buf := make([]byte, 0, len(children)*core.HashSize+len(values)*4)
	for _, h := range children {
		buf = append(buf, h[:]...)
	}
	for _, v := range values {
		buf = utils.AppendUint32LE(buf, uint32(v))
	}
	return core.Keccak256(buf)
}

// Verify walks the tree from the largest log size to the root, hashing
// queried leaves and witness siblings together, and compares the final
// hash against the committed root.
//
// queriesPerLogSize maps each log size to its sorted unique query
// positions; queriedValues holds, per column, the values at that column's
// query positions.
func (v *MerkleVerifier) Verify(queriesPerLogSize map[uint32][]int, queriedValues [][]core.M31, decommitment MerkleDecommitment) error {
	if len(queriedValues) != len(v.ColumnLogSizes) {
		return fmt.Errorf("%w: got %d value columns for %d committed columns", ErrMerkleShape, len(queriedValues), len(v.ColumnLogSizes))
	}
	if len(v.ColumnLogSizes) == 0 {
		return fmt.Errorf("%w: tree has no columns", ErrMerkleShape)
	}

	var maxLog uint32
	colsByLog := make(map[uint32][]int)
	for col, logSize := range v.ColumnLogSizes {
		colsByLog[logSize] = append(colsByLog[logSize], col)
		if logSize > maxLog {
			maxLog = logSize
		}
	}
	for logSize, queries := range queriesPerLogSize {
		if logSize > maxLog {
			return fmt.Errorf("%w: queries at log size %d above tree depth %d", ErrMerkleOOB, logSize, maxLog)
		}
		for _, q := range queries {
			if q < 0 || q >= 1<<logSize {
				return fmt.Errorf("%w: query %d at log size %d", ErrMerkleOOB, q, logSize)
			}
		}
	}

	hashWitness := decommitment.HashWitness
	columnWitness := decommitment.ColumnWitness

	var prev []indexedHash
	for layerLog := maxLog; ; layerLog-- {
		queries := queriesPerLogSize[layerLog]

		// Nodes needed this layer: parents of the previous layer plus
		// this layer's own queries, in ascending index order.
		var nodeIndices []int
		if prev != nil {
			for _, ih := range prev {
				nodeIndices = append(nodeIndices, ih.index>>1)
			}
		}
		nodeIndices = utils.SortedUniqueInts(append(nodeIndices, queries...))

		layerCols := colsByLog[layerLog]
		colPos := make([]int, len(layerCols))

		cur := make([]indexedHash, 0, len(nodeIndices))
		prevPtr := 0
		queryPtr := 0
		for _, idx := range nodeIndices {
			var children []core.Hash
			if prev != nil {
				for _, childIdx := range [2]int{2 * idx, 2*idx + 1} {
					if prevPtr < len(prev) && prev[prevPtr].index == childIdx {
						children = append(children, prev[prevPtr].hash)
						prevPtr++
					} else {
						if len(hashWitness) == 0 {
							return fmt.Errorf("%w: hash witness exhausted at layer %d", ErrMerkleShape, layerLog)
						}
						children = append(children, hashWitness[0])
						hashWitness = hashWitness[1:]
					}
				}
			}

			for queryPtr < len(queries) && queries[queryPtr] < idx {
				queryPtr++
			}
			isQueried := queryPtr < len(queries) && queries[queryPtr] == idx

			values := make([]core.M31, len(layerCols))
			for ci, col := range layerCols {
				if isQueried {
					if colPos[ci] >= len(queriedValues[col]) {
						return fmt.Errorf("%w: queried values exhausted for column %d", ErrMerkleShape, col)
					}
					values[ci] = queriedValues[col][colPos[ci]]
					colPos[ci]++
				} else {
					if len(columnWitness) == 0 {
						return fmt.Errorf("%w: column witness exhausted at layer %d", ErrMerkleShape, layerLog)
					}
					values[ci] = columnWitness[0]
					columnWitness = columnWitness[1:]
				}
			}

			cur = append(cur, indexedHash{index: idx, hash: hashNode(children, values)})
		}

		for ci, col := range layerCols {
			if colPos[ci] != len(queriedValues[col]) {
				return fmt.Errorf("%w: column %d has %d unconsumed values", ErrMerkleShape, col, len(queriedValues[col])-colPos[ci])
			}
		}

		prev = cur
		if layerLog == 0 {
			break
		}
	}

	if len(hashWitness) != 0 || len(columnWitness) != 0 {
		return fmt.Errorf("%w: %d hashes and %d values left in witness", ErrMerkleShape, len(hashWitness), len(columnWitness))
	}
	if len(prev) != 1 {
		return fmt.Errorf("%w: expected a single root, got %d nodes", ErrMerkleShape, len(prev))
	}
	if prev[0].hash != v.Root {
		return fmt.Errorf("%w", ErrMerkleMismatch)
	}
	return nil
}
