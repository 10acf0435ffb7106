package protocols

import (
	"fmt"

	"github.com/vybium/stwo-verifier/internal/stwo-verifier/core"
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/utils"
)

// CommitmentSchemeVerifier registers the committed trees of one proof and
// derives the FRI degree bounds from their column log sizes.
type CommitmentSchemeVerifier struct {
	Config utils.PcsConfig
	Trees  []*MerkleVerifier
}

// NewCommitmentSchemeVerifier creates an empty registry.
func NewCommitmentSchemeVerifier(config utils.PcsConfig) *CommitmentSchemeVerifier {
	return &CommitmentSchemeVerifier{Config: config}
}

// Commit mixes a tree root into the channel and records the tree with its
// column log sizes blown up by the configured factor.
func (s *CommitmentSchemeVerifier) Commit(root core.Hash, columnLogSizes []uint32, channel *utils.Channel) error {
	channel.MixRoot(root)
	blown := make([]uint32, len(columnLogSizes))
	for i, logSize := range columnLogSizes {
		blown[i] = logSize + s.Config.FriConfig.LogBlowupFactor
		if blown[i] > core.MaxCircleDomainLogSize {
			return fmt.Errorf("%w: column log size %d with blowup exceeds maximum %d", ErrShape, logSize, core.MaxCircleDomainLogSize)
		}
	}
	s.Trees = append(s.Trees, NewMerkleVerifier(root, blown))
	return nil
}

// ColumnLogSizes returns the blown-up column log sizes of every registered
// tree, in commitment order.
func (s *CommitmentSchemeVerifier) ColumnLogSizes() [][]uint32 {
	out := make([][]uint32, len(s.Trees))
	for i, tree := range s.Trees {
		out[i] = tree.ColumnLogSizes
	}
	return out
}

// CalculateBounds derives the circle polynomial degree bounds: the unique
// committed column log sizes, descending, with the blowup removed.
func (s *CommitmentSchemeVerifier) CalculateBounds() []uint32 {
	var all []uint32
	for _, tree := range s.Trees {
		all = append(all, tree.ColumnLogSizes...)
	}
	unique := utils.SortedUniqueDesc(all)
	bounds := make([]uint32, len(unique))
	for i, logSize := range unique {
		bounds[i] = logSize - s.Config.FriConfig.LogBlowupFactor
	}
	return bounds
}
